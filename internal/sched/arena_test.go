package sched

import (
	"errors"
	"testing"
)

func TestArenaAlignmentPadding(t *testing.T) {
	a := NewArena(256)

	if _, ok := a.Alloc(1, 1, 1); !ok {
		t.Fatal("first alloc failed")
	}
	if got := a.Used(); got != 1 {
		t.Fatalf("Used() = %d, want 1", got)
	}

	// Cursor at 1 must round up to 8 before a 16-byte block.
	if _, ok := a.Alloc(4, 4, 8); !ok {
		t.Fatal("aligned alloc failed")
	}
	if got := a.Used(); got != 24 {
		t.Fatalf("Used() = %d, want 24 (8 aligned + 16)", got)
	}
	if got := a.Remaining(); got != 256-24 {
		t.Fatalf("Remaining() = %d, want %d", got, 256-24)
	}
}

func TestArenaExhaustionIsRecoverable(t *testing.T) {
	a := NewArena(64)

	if _, ok := a.Alloc(16, 4, 4); !ok {
		t.Fatal("full-capacity alloc failed")
	}
	if b, ok := a.Alloc(1, 1, 1); ok || b != nil {
		t.Fatalf("Alloc past capacity = (%v, %v), want (nil, false)", b, ok)
	}

	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("Used() after Reset = %d, want 0", a.Used())
	}
	if _, ok := a.Alloc(16, 4, 4); !ok {
		t.Fatal("alloc after Reset failed; exhaustion should not be sticky")
	}
}

func TestArenaAllocationsDoNotOverlap(t *testing.T) {
	a := NewArena(DefaultArenaBytes)

	b1, ok := a.Alloc(8, 1, 1)
	if !ok {
		t.Fatal("alloc b1 failed")
	}
	b2, ok := a.Alloc(8, 1, 1)
	if !ok {
		t.Fatal("alloc b2 failed")
	}
	for i := range b1 {
		b1[i] = 0x11
	}
	for i := range b2 {
		b2[i] = 0x22
	}
	for i := range b1 {
		if b1[i] != 0x11 {
			t.Fatalf("b1[%d] = %#x, clobbered by b2", i, b1[i])
		}
	}
}

func TestArenaZeroCount(t *testing.T) {
	a := NewArena(64)
	b, ok := a.Alloc(0, 4, 4)
	if !ok || len(b) != 0 {
		t.Fatalf("Alloc(0) = (len %d, %v), want (0, true)", len(b), ok)
	}
	if a.Used() != 0 {
		t.Fatalf("zero-count alloc moved cursor to %d", a.Used())
	}
}

func TestArenaReusesBytesWithoutZeroing(t *testing.T) {
	a := NewArena(64)
	b, _ := a.Alloc(4, 1, 1)
	b[0] = 0xAB

	a.Reset()
	b2, _ := a.Alloc(4, 1, 1)
	if b2[0] != 0xAB {
		t.Fatalf("reused byte = %#x, want stale %#x; arena should not zero", b2[0], 0xAB)
	}
}

func TestArenaScopeResetsOnPanic(t *testing.T) {
	a := NewArena(64)
	func() {
		defer func() { recover() }()
		a.Scope(func() error {
			a.Alloc(8, 1, 1)
			panic("boom")
		})
	}()
	if a.Used() != 0 {
		t.Fatalf("Used() after panicking scope = %d, want 0", a.Used())
	}
}

func TestArenaPoolScope(t *testing.T) {
	p := NewArenaPool(128)

	wantErr := errors.New("scope error")
	err := p.Scope(func(a *Arena) error {
		if _, ok := a.Alloc(16, 4, 4); !ok {
			t.Fatal("alloc inside scope failed")
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Scope error = %v, want %v", err, wantErr)
	}

	// A panicking scope must still return the arena reset.
	func() {
		defer func() { recover() }()
		p.Scope(func(a *Arena) error {
			a.Alloc(16, 4, 4)
			panic("boom")
		})
	}()
	err = p.Scope(func(a *Arena) error {
		if a.Used() != 0 {
			t.Fatalf("borrowed arena starts at Used() = %d, want 0", a.Used())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scope after panic = %v", err)
	}
}

func BenchmarkArenaAlloc(b *testing.B) {
	a := NewArena(DefaultArenaBytes)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, ok := a.Alloc(64, 4, 64); !ok {
			a.Reset()
		}
	}
}
