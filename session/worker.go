package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/onnwee/metasepia/telemetry"
)

// Job is one persistence call executed on the worker goroutine.
type Job struct {
	Op  string
	Run func(ctx context.Context) error
	// Done, when set, is called on the worker goroutine with Run's result.
	Done func(err error)
}

// Worker runs persistence jobs one at a time in submission order. Submit
// never blocks; the queue is unbounded.
type Worker struct {
	mu      sync.Mutex
	queue   []Job
	wake    chan struct{}
	closed  bool
	idle    chan struct{} // closed when the queue is empty and no job runs
	running bool

	done chan struct{}
	ctx  context.Context
	stop context.CancelFunc
}

// NewWorker starts a worker goroutine. Jobs run with a context derived from
// ctx; cancelling ctx aborts in-flight calls.
func NewWorker(ctx context.Context) *Worker {
	wctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		wake: make(chan struct{}, 1),
		idle: make(chan struct{}),
		done: make(chan struct{}),
		ctx:  wctx,
		stop: cancel,
	}
	close(w.idle)
	go w.loop()
	return w
}

// Submit enqueues j. Jobs submitted after Close are dropped.
func (w *Worker) Submit(j Job) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		slog.Warn("persistence job dropped after close", slog.String("op", j.Op), slog.String("component", "session_worker"))
		return
	}
	if len(w.queue) == 0 && !w.running {
		w.idle = make(chan struct{})
	}
	w.queue = append(w.queue, j)
	telemetry.SetPersistenceQueueDepth(len(w.queue))
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		w.mu.Lock()
		if w.ctx.Err() != nil && len(w.queue) > 0 {
			slog.Warn("persistence jobs abandoned", slog.Int("count", len(w.queue)), slog.String("component", "session_worker"))
			w.queue = nil
			telemetry.SetPersistenceQueueDepth(0)
		}
		if len(w.queue) == 0 {
			w.running = false
			select {
			case <-w.idle:
			default:
				close(w.idle)
			}
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-w.wake:
				continue
			case <-w.ctx.Done():
				return
			}
		}
		j := w.queue[0]
		w.queue[0] = Job{}
		w.queue = w.queue[1:]
		w.running = true
		telemetry.SetPersistenceQueueDepth(len(w.queue))
		w.mu.Unlock()

		w.run(j)
	}
}

func (w *Worker) run(j Job) {
	ctx, span := telemetry.StartPersistSpan(w.ctx, j.Op)
	defer span.End()
	var err error
	d := telemetry.TimeFunc(nil, func() { err = j.Run(ctx) })
	telemetry.ObservePersistence(j.Op, d, err)
	telemetry.FinishSpan(span, err)
	if j.Done != nil {
		j.Done(err)
	}
}

// Flush waits until every job submitted so far has finished or ctx ends.
func (w *Worker) Flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, lets the queue drain until ctx ends, then stops
// the worker goroutine. It is safe to call more than once.
func (w *Worker) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	var err error
	select {
	case <-w.done:
	case <-ctx.Done():
		err = ctx.Err()
		w.stop()
		<-w.done
	}
	w.stop()
	return err
}
