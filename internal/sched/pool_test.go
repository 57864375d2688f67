package sched

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestForCoversRangeExactlyOnce(t *testing.T) {
	p := NewPool(4, 0)
	defer p.Close()

	const n = 10_000
	hits := make([]int32, n)
	err := p.For(n, func(_ *Worker, start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times, want exactly once", i, h)
		}
	}
}

func TestForChunkBounds(t *testing.T) {
	p := NewPool(4, 0)
	defer p.Close()

	const n = 10 // ceil(10/4) = 3 -> [0,3) [3,6) [6,9) [9,10)
	var mu sync.Mutex
	var spans [][2]int
	err := p.For(n, func(_ *Worker, start, end int) {
		mu.Lock()
		spans = append(spans, [2]int{start, end})
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}

	chunk := ChunkSize(n, p.Size())
	if chunk != 3 {
		t.Fatalf("ChunkSize(10, 4) = %d, want 3", chunk)
	}
	if len(spans) != 4 {
		t.Fatalf("got %d chunks, want 4", len(spans))
	}
	covered := 0
	for _, s := range spans {
		if s[0]%chunk != 0 {
			t.Errorf("chunk start %d is not a multiple of %d", s[0], chunk)
		}
		if s[1]-s[0] > chunk {
			t.Errorf("chunk [%d,%d) longer than %d", s[0], s[1], chunk)
		}
		covered += s[1] - s[0]
	}
	if covered != n {
		t.Errorf("chunks cover %d items, want %d", covered, n)
	}
}

func TestChunkSize(t *testing.T) {
	cases := []struct{ n, workers, want int }{
		{10, 4, 3},
		{1_000_000, 8, 125_000},
		{7, 8, 1},
		{1, 4, 1},
		{8, 4, 2},
	}
	for _, c := range cases {
		if got := ChunkSize(c.n, c.workers); got != c.want {
			t.Errorf("ChunkSize(%d, %d) = %d, want %d", c.n, c.workers, got, c.want)
		}
	}
}

func TestForEmptyRange(t *testing.T) {
	p := NewPool(2, 0)
	defer p.Close()

	called := false
	if err := p.For(0, func(_ *Worker, _, _ int) { called = true }); err != nil {
		t.Fatalf("For(0): %v", err)
	}
	if called {
		t.Error("body ran for an empty range")
	}
}

func TestForPanicFailsDispatchNotPool(t *testing.T) {
	p := NewPool(4, 0)
	defer p.Close()

	const n = 100
	var ran int32
	err := p.For(n, func(_ *Worker, start, end int) {
		atomic.AddInt32(&ran, 1)
		if start == 0 {
			panic("kernel blew up")
		}
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("For error = %v, want *PanicError", err)
	}
	if pe.Value != "kernel blew up" {
		t.Errorf("PanicError.Value = %v", pe.Value)
	}
	if len(pe.Stack) == 0 {
		t.Error("PanicError.Stack is empty")
	}
	chunk := ChunkSize(n, p.Size())
	wantChunks := (n + chunk - 1) / chunk
	if int(ran) != wantChunks {
		t.Errorf("%d chunks ran, want all %d despite the panic", ran, wantChunks)
	}

	// The worker that recovered must still take work.
	if err := p.For(n, func(_ *Worker, _, _ int) {}); err != nil {
		t.Fatalf("For after panic: %v", err)
	}
}

func TestForConcurrentDispatches(t *testing.T) {
	p := NewPool(4, 0)
	defer p.Close()

	const (
		callers = 8
		n       = 5_000
	)
	var wg sync.WaitGroup
	errs := make([]error, callers)
	sums := make([]int64, callers)
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			errs[c] = p.For(n, func(_ *Worker, start, end int) {
				var local int64
				for i := start; i < end; i++ {
					local += int64(i)
				}
				atomic.AddInt64(&sums[c], local)
			})
		}(c)
	}
	wg.Wait()

	want := int64(n) * int64(n-1) / 2
	for c := 0; c < callers; c++ {
		if errs[c] != nil {
			t.Fatalf("caller %d: %v", c, errs[c])
		}
		if sums[c] != want {
			t.Errorf("caller %d sum = %d, want %d", c, sums[c], want)
		}
	}
}

func TestWorkerArenaResetBetweenTasks(t *testing.T) {
	p := NewPool(2, 1<<16)
	defer p.Close()

	var dirty int32
	body := func(w *Worker, start, end int) {
		if w.Arena().Used() != 0 {
			atomic.AddInt32(&dirty, 1)
		}
		w.Arena().Alloc(128, 4, 4)
	}
	for round := 0; round < 10; round++ {
		if err := p.For(64, body); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
	if dirty != 0 {
		t.Errorf("%d tasks saw a dirty arena; worker arenas must reset after each task", dirty)
	}
}

func TestPoolClose(t *testing.T) {
	p := NewPool(2, 0)
	p.Close()
	if err := p.For(10, func(_ *Worker, _, _ int) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("For on closed pool = %v, want ErrClosed", err)
	}
}

func BenchmarkForSum(b *testing.B) {
	p := NewPool(0, 0)
	defer p.Close()

	const n = 1 << 20
	data := make([]float32, n)
	for i := range data {
		data[i] = 1
	}
	b.SetBytes(n * 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chunk := ChunkSize(n, p.Size())
		partials := make([]float64, (n+chunk-1)/chunk)
		p.For(n, func(_ *Worker, start, end int) {
			var s float64
			for _, v := range data[start:end] {
				s += float64(v)
			}
			partials[start/chunk] = s
		})
	}
}
