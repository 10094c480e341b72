package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrQueueFull is returned by Submit when the buffer has no room.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Task is one unit of side-effect work.
type Task func(ctx context.Context)

// DropRecorder counts dropped tasks.  *metrics.CheckinMetrics satisfies it.
type DropRecorder interface {
	RecordDispatchDropped()
}

// Dispatcher runs tasks on a fixed pool of workers fed by a buffered
// channel.  Submit never blocks: when the buffer is full the task is
// dropped.  Close stops intake and waits for queued tasks to finish.
type Dispatcher struct {
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	drops  DropRecorder
	log    *slog.Logger
}

// NewDispatcher starts workers goroutines draining a buffer of size
// buffer.  drops may be nil.
func NewDispatcher(workers, buffer int, drops DropRecorder, log *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		tasks:  make(chan Task, buffer),
		ctx:    ctx,
		cancel: cancel,
		drops:  drops,
		log:    log,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit queues t without blocking.
func (d *Dispatcher) Submit(t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.tasks <- t:
		return nil
	default:
		if d.drops != nil {
			d.drops.RecordDispatchDropped()
		}
		d.log.Warn("dispatcher: queue full, task dropped", "capacity", cap(d.tasks))
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits until queued ones have run or ctx
// is done, whichever comes first.  Tasks still running when ctx expires
// see their context cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("dispatcher: drain interrupted: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatcher: task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	t(d.ctx)
}
