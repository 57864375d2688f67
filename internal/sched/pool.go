// Package sched provides the worker pool and scratch arenas behind the
// parallel operations. The pool is work-stealing: each worker owns a deque,
// pops its own newest task for cache locality, and steals the oldest task
// from a neighbour when idle. Workers park on a condition variable when the
// whole pool is drained, so an idle pool costs nothing.
package sched

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by For once the pool has been shut down.
var ErrClosed = errors.New("sched: pool is closed")

// PanicError reports a panic recovered inside a pool task. The dispatch that
// spawned the task fails with this error; the worker itself survives.
type PanicError struct {
	Worker int
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sched: worker %d: task panicked: %v", e.Worker, e.Value)
}

// Pool is a fixed-size work-stealing worker pool. Construct with NewPool and
// release with Close; both are cheap enough for per-test pools.
type Pool struct {
	workers []*Worker
	next    atomic.Uint32

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	closed  bool

	wg sync.WaitGroup
}

// Worker is one pool thread. Tasks receive their worker so they can use its
// private arena without any locking.
type Worker struct {
	id   int
	pool *Pool
	aren *Arena

	mu    sync.Mutex
	tasks []task
}

// ID returns the worker index in [0, pool size).
func (w *Worker) ID() int { return w.id }

// Arena returns the worker-owned scratch arena. It is reset after every
// task, so anything allocated from it must be consumed before the task
// returns.
func (w *Worker) Arena() *Arena { return w.aren }

type task struct {
	d          *dispatch
	start, end int
}

// dispatch tracks one For call across its chunk tasks.
type dispatch struct {
	body func(w *Worker, start, end int)
	wg   sync.WaitGroup

	mu  sync.Mutex
	err error
}

func (d *dispatch) fail(err error) {
	d.mu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.mu.Unlock()
}

// NewPool starts a pool with the given worker count and per-worker arena
// capacity in bytes. Non-positive workers defaults to runtime.NumCPU();
// non-positive arenaBytes defaults to DefaultArenaBytes.
func NewPool(workers, arenaBytes int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{workers: make([]*Worker, workers)}
	p.cond = sync.NewCond(&p.mu)
	for i := range p.workers {
		p.workers[i] = &Worker{id: i, pool: p, aren: NewArena(arenaBytes)}
	}
	p.wg.Add(workers)
	for _, w := range p.workers {
		go w.loop()
	}
	poolWorkers.Set(float64(workers))
	log.Debug().Int("workers", workers).Int("arena_bytes", arenaBytes).
		Msg("Initialized worker pool")
	return p
}

// Size returns the worker count.
func (p *Pool) Size() int { return len(p.workers) }

// ChunkSize returns the per-task range length For uses to split n items
// across workers: ceil(n/workers). Callers that accumulate per-chunk
// partials index them with start/ChunkSize(...).
func ChunkSize(n, workers int) int {
	return (n + workers - 1) / workers
}

// For splits [0, n) into contiguous chunks of ChunkSize(n, Size()) and runs
// body on the pool, blocking until every chunk has finished. Chunks cover
// the range exactly once, so bodies may write disjoint output slices without
// synchronization.
//
// A panicking body does not kill its worker: the panic is recovered, the
// remaining chunks still run, and For returns a *PanicError (the first one,
// if several chunks panicked). n <= 0 is a no-op.
func (p *Pool) For(n int, body func(w *Worker, start, end int)) error {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.mu.Unlock()

	chunk := ChunkSize(n, len(p.workers))
	d := &dispatch{body: body}
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		d.wg.Add(1)
		p.push(task{d: d, start: start, end: end})
	}
	d.wg.Wait()
	return d.err
}

// Close drains queued work and stops the workers. For fails with ErrClosed
// afterwards. Safe to call once; idempotence is not needed because the pool
// owner controls shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) push(t task) {
	w := p.workers[int(p.next.Add(1))%len(p.workers)]
	w.mu.Lock()
	w.tasks = append(w.tasks, t)
	w.mu.Unlock()

	p.mu.Lock()
	p.pending++
	p.cond.Signal()
	p.mu.Unlock()
}

func (p *Pool) tookOne() {
	p.mu.Lock()
	p.pending--
	p.mu.Unlock()
}

func (w *Worker) loop() {
	p := w.pool
	defer p.wg.Done()
	for {
		t, ok := w.take()
		if ok {
			w.run(t)
			continue
		}
		p.mu.Lock()
		for p.pending == 0 && !p.closed {
			p.cond.Wait()
		}
		stop := p.closed && p.pending == 0
		p.mu.Unlock()
		if stop {
			return
		}
	}
}

// take pops the newest task from the worker's own deque, or failing that
// steals the oldest task from the first non-empty neighbour. Own-newest
// keeps caches warm; steal-oldest takes the chunk its owner would have
// reached last.
func (w *Worker) take() (task, bool) {
	w.mu.Lock()
	if n := len(w.tasks); n > 0 {
		t := w.tasks[n-1]
		w.tasks = w.tasks[:n-1]
		w.mu.Unlock()
		w.pool.tookOne()
		return t, true
	}
	w.mu.Unlock()

	ws := w.pool.workers
	for i := 1; i < len(ws); i++ {
		v := ws[(w.id+i)%len(ws)]
		v.mu.Lock()
		if len(v.tasks) > 0 {
			t := v.tasks[0]
			v.tasks = v.tasks[1:]
			v.mu.Unlock()
			poolSteals.Inc()
			w.pool.tookOne()
			return t, true
		}
		v.mu.Unlock()
	}
	return task{}, false
}

func (w *Worker) run(t task) {
	defer t.d.wg.Done()
	defer w.aren.Reset()
	defer func() {
		if r := recover(); r != nil {
			poolPanics.Inc()
			log.Error().Int("worker", w.id).Interface("value", r).
				Msg("Recovered panic in pool task")
			t.d.fail(&PanicError{Worker: w.id, Value: r, Stack: debug.Stack()})
		}
	}()
	poolTasks.Inc()
	t.d.body(w, t.start, t.end)
}
