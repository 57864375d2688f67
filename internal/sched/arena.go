package sched

import "sync"

// DefaultArenaBytes is the per-arena scratch capacity when no override is
// configured.
const DefaultArenaBytes = 1 << 20 // 1 MiB

// Arena is a fixed-capacity bump allocator. Each pool worker owns exactly
// one, so allocation never contends; caller-side scratch goes through
// ArenaPool instead. The backing buffer is allocated on first use and lives
// until the arena is garbage.
//
// Allocations are only valid until the enclosing scope resets the arena.
// Holding a slice across a reset and dereferencing it reads whatever the
// next scope wrote there; that contract is on the caller and cannot be
// enforced here.
type Arena struct {
	capacity int
	buf      []byte
	off      int
}

// NewArena creates an arena with the given capacity in bytes. Non-positive
// capacities fall back to DefaultArenaBytes.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		capacity = DefaultArenaBytes
	}
	return &Arena{capacity: capacity}
}

// Alloc reserves count*elemSize bytes at the requested alignment, which must
// be a power of two. The returned slice is capped so appends cannot bleed
// into later allocations. Returns false when the arena cannot satisfy the
// request; that is the recoverable "no space" result, and callers fall back
// to the heap or fail the operation themselves.
//
// Returned memory is not zeroed. After a reset it holds whatever the
// previous scope left behind.
func (a *Arena) Alloc(count, elemSize, align int) ([]byte, bool) {
	size := count * elemSize
	if size == 0 {
		return []byte{}, true
	}
	if align < 1 {
		align = 1
	}
	off := (a.off + align - 1) &^ (align - 1)
	if off+size > a.capacity {
		arenaExhausted.Inc()
		return nil, false
	}
	if a.buf == nil {
		a.buf = make([]byte, a.capacity)
	}
	a.off = off + size
	arenaAllocs.Inc()
	return a.buf[off : off+size : off+size], true
}

// Reset moves the cursor back to zero, invalidating every allocation made
// since the last reset. O(1); the memory itself is left as-is.
func (a *Arena) Reset() {
	a.off = 0
}

// Scope runs f and resets the arena on every exit path, including panics.
func (a *Arena) Scope(f func() error) error {
	defer a.Reset()
	return f()
}

// Cap returns the fixed capacity in bytes.
func (a *Arena) Cap() int { return a.capacity }

// Used returns the bytes consumed since the last reset, including alignment
// padding.
func (a *Arena) Used() int { return a.off }

// Remaining returns the bytes still available before exhaustion.
func (a *Arena) Remaining() int { return a.capacity - a.off }

// ArenaPool hands out scratch arenas to calling goroutines. Workers own
// their arenas outright; callers have no stable identity, so their scratch
// is pooled and recycled instead, which keeps allocation contention-free
// after warmup.
type ArenaPool struct {
	pool sync.Pool
}

// NewArenaPool creates a pool whose arenas have the given capacity.
func NewArenaPool(capacity int) *ArenaPool {
	return &ArenaPool{pool: sync.Pool{New: func() any {
		return NewArena(capacity)
	}}}
}

// Scope borrows an arena, runs f with it, and returns it reset regardless of
// how f exits. The arena must not be retained after f returns.
func (p *ArenaPool) Scope(f func(*Arena) error) error {
	a := p.pool.Get().(*Arena)
	defer func() {
		a.Reset()
		p.pool.Put(a)
	}()
	return f(a)
}
