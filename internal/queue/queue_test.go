package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	q := New("test", 0, 0)
	if q.BatchSize() != DefaultBatchSize || q.Interval() != DefaultInterval {
		t.Fatalf("unexpected defaults: %d %v", q.BatchSize(), q.Interval())
	}
}

func TestBatchPacing(t *testing.T) {
	q := New("pacing", 2, 600*time.Millisecond)

	var mu sync.Mutex
	starts := make([]time.Time, 5)
	handles := make([]*Handle, 5)
	for i := 0; i < 5; i++ {
		i := i
		handles[i] = q.Add(func() (any, error) {
			mu.Lock()
			starts[i] = time.Now()
			mu.Unlock()
			return i, nil
		})
	}
	for i, h := range handles {
		v, err := h.Wait()
		if err != nil || v.(int) != i {
			t.Fatalf("task %d: got %v, %v", i, v, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if d := starts[1].Sub(starts[0]); d > 200*time.Millisecond {
		t.Fatalf("second task should share the first batch, started %v later", d)
	}
	if d := starts[2].Sub(starts[0]); d < 550*time.Millisecond {
		t.Fatalf("third task started %v after the first, want >= ~600ms", d)
	}
	if d := starts[4].Sub(starts[0]); d < 1150*time.Millisecond {
		t.Fatalf("fifth task started %v after the first, want >= ~1200ms", d)
	}
}

func TestBatchAdmissionIsFIFO(t *testing.T) {
	q := New("fifo", 1, 10*time.Millisecond)

	var mu sync.Mutex
	var order []int
	handles := make([]*Handle, 4)
	for i := range handles {
		i := i
		handles[i] = q.Add(func() (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
	}
	for _, h := range handles {
		h.Wait()
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", order)
		}
	}
}

func TestTaskFailureIsIsolated(t *testing.T) {
	q := New("errors", 2, 10*time.Millisecond)
	boom := errors.New("boom")

	failing := q.Add(func() (any, error) { return nil, boom })
	panicking := q.Add(func() (any, error) { panic("bad payload") })
	ok := q.Add(func() (any, error) { return "fine", nil })

	if _, err := failing.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected task error, got %v", err)
	}
	if _, err := panicking.Wait(); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if v, err := ok.Wait(); err != nil || v != "fine" {
		t.Fatalf("sibling task affected: %v, %v", v, err)
	}
}

func TestRestartsAfterIdle(t *testing.T) {
	q := New("restart", 2, 10*time.Millisecond)

	if _, err := q.Add(func() (any, error) { return 1, nil }).Wait(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, q)

	v, err := q.Add(func() (any, error) { return 2, nil }).Wait()
	if err != nil || v.(int) != 2 {
		t.Fatalf("idle queue did not restart: %v, %v", v, err)
	}
}

func TestAddDoesNotBlock(t *testing.T) {
	q := New("nonblocking", 1, 50*time.Millisecond)
	release := make(chan struct{})
	started := make(chan struct{})

	first := q.Add(func() (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started
	start := time.Now()
	second := q.Add(func() (any, error) { return nil, nil })
	if time.Since(start) > 20*time.Millisecond {
		t.Fatalf("Add blocked while a task was running")
	}
	if q.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", q.Pending())
	}

	close(release)
	first.Wait()
	second.Wait()
}

type countingObserver struct {
	batches int64
	tasks   int64
}

func (o *countingObserver) QueueDepth(string, int) {}

func (o *countingObserver) BatchExecuted(_ string, size int, _ time.Duration) {
	atomic.AddInt64(&o.batches, 1)
	atomic.AddInt64(&o.tasks, int64(size))
}

func TestSubmitTypedAndObserved(t *testing.T) {
	obs := &countingObserver{}
	q := New("typed", 2, 10*time.Millisecond, WithObserver(obs))

	futures := make([]*Future[string], 3)
	for i, s := range []string{"a", "b", "c"} {
		s := s
		futures[i] = Submit(q, func() (string, error) { return s + s, nil })
	}
	for i, want := range []string{"aa", "bb", "cc"} {
		got, err := futures[i].Wait()
		if err != nil || got != want {
			t.Fatalf("future %d = %q, %v", i, got, err)
		}
	}
	waitIdle(t, q)
	if atomic.LoadInt64(&obs.batches) != 2 || atomic.LoadInt64(&obs.tasks) != 3 {
		t.Fatalf("observer saw %d batches / %d tasks", obs.batches, obs.tasks)
	}
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		q.mu.Lock()
		draining := q.draining
		q.mu.Unlock()
		if !draining {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue %s never went idle", q.Label())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
