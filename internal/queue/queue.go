package queue

import (
	"fmt"
	"sync"
	"time"

	"cryptosnap/logger"
)

const (
	DefaultBatchSize = 2
	DefaultInterval  = 600 * time.Millisecond
)

// Task is a deferred computation run by the queue.
type Task func() (any, error)

// Observer receives queue activity, e.g. for Prometheus gauges.
type Observer interface {
	QueueDepth(label string, depth int)
	BatchExecuted(label string, size int, elapsed time.Duration)
}

// Handle resolves once its task has run.
type Handle struct {
	done  chan struct{}
	value any
	err   error
}

// Wait blocks until the task has run and returns its own result.
func (h *Handle) Wait() (any, error) {
	<-h.done
	return h.value, h.err
}

// Done is closed when the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type entry struct {
	task   Task
	handle *Handle
}

func (e *entry) run() {
	defer func() {
		if r := recover(); r != nil {
			e.handle.value = nil
			e.handle.err = fmt.Errorf("queue task panicked: %v", r)
		}
		close(e.handle.done)
	}()
	e.handle.value, e.handle.err = e.task()
}

// Queue runs tasks FIFO in concurrent batches of batchSize, leaving at least
// interval between the start of consecutive batches while work is pending.
// One instance per exchange is shared by every job in the process.
type Queue struct {
	label     string
	batchSize int
	interval  time.Duration

	mu       sync.Mutex
	pending  []*entry
	draining bool

	log      *logger.Log
	observer Observer
}

type Option func(*Queue)

func WithLogger(log *logger.Log) Option {
	return func(q *Queue) { q.log = log }
}

func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observer = o }
}

// New builds a queue. Non-positive batchSize or interval fall back to the
// defaults.
func New(label string, batchSize int, interval time.Duration, opts ...Option) *Queue {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	q := &Queue{
		label:     label,
		batchSize: batchSize,
		interval:  interval,
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Label() string { return q.label }

func (q *Queue) BatchSize() int { return q.batchSize }

func (q *Queue) Interval() time.Duration { return q.interval }

// Pending returns the number of tasks not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Add enqueues task and returns immediately. An idle queue starts draining.
func (q *Queue) Add(task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	q.mu.Lock()
	q.pending = append(q.pending, &entry{task: task, handle: h})
	depth := len(q.pending)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	q.reportDepth(depth)
	if start {
		go q.drain()
	}
	return h
}

func (q *Queue) drain() {
	for {
		batch, remaining := q.nextBatch()
		if batch == nil {
			q.log.WithComponent("queue").WithFields(logger.Fields{"queue": q.label}).Debug("queue drained")
			return
		}
		q.reportDepth(remaining)

		start := time.Now()
		var wg sync.WaitGroup
		for _, e := range batch {
			wg.Add(1)
			go func(e *entry) {
				defer wg.Done()
				e.run()
			}(e)
		}
		wg.Wait()
		elapsed := time.Since(start)

		if q.observer != nil {
			q.observer.BatchExecuted(q.label, len(batch), elapsed)
		}

		if q.Pending() > 0 && elapsed < q.interval {
			time.Sleep(q.interval - elapsed)
		}
	}
}

// nextBatch removes up to batchSize tasks from the head. It clears the
// draining flag and returns nil when nothing is pending.
func (q *Queue) nextBatch() ([]*entry, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.draining = false
		return nil, 0
	}

	n := q.batchSize
	if n > len(q.pending) {
		n = len(q.pending)
	}
	batch := make([]*entry, n)
	copy(batch, q.pending[:n])
	q.pending = append(q.pending[:0:0], q.pending[n:]...)
	return batch, len(q.pending)
}

func (q *Queue) reportDepth(depth int) {
	if q.observer != nil {
		q.observer.QueueDepth(q.label, depth)
	}
}

// Future is a typed view over a Handle.
type Future[T any] struct {
	h *Handle
}

// Submit enqueues fn on q and returns a typed future for its result.
func Submit[T any](q *Queue, fn func() (T, error)) *Future[T] {
	h := q.Add(func() (any, error) {
		return fn()
	})
	return &Future[T]{h: h}
}

func (f *Future[T]) Wait() (T, error) {
	v, err := f.h.Wait()
	t, _ := v.(T)
	return t, err
}
