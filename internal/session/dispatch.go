package session

import (
	"sync"
)

// Dispatcher serializes event handling per user id. Events for one user run
// in arrival order on a dedicated worker, so the state read at the start of
// an event always reflects the mutations of the previous event for that
// user. Distinct users run in parallel, and Dispatch never blocks the
// caller: one user's backlog must not stall the shared poller goroutine
// that feeds every other user.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
	closed bool
}

// userQueue is one user's pending tasks. All fields are guarded by the
// dispatcher mutex; the worker pops tasks under it and runs them outside it.
type userQueue struct {
	tasks   []func()
	running bool
}

// NewDispatcher creates a dispatcher with no active workers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: make(map[int64]*userQueue)}
}

// Dispatch appends a task to the user's queue, starting a worker for the
// user if none is draining it. Tasks dispatched after Close are dropped.
func (d *Dispatcher) Dispatch(userID int64, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	q, ok := d.queues[userID]
	if !ok {
		q = &userQueue{}
		d.queues[userID] = q
	}
	q.tasks = append(q.tasks, task)
	if !q.running {
		q.running = true
		d.wg.Add(1)
		go d.drain(q)
	}
}

// drain runs one user's tasks in order until the queue is empty.
func (d *Dispatcher) drain(q *userQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			d.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		d.mu.Unlock()

		task()
	}
}

// Close stops accepting tasks and waits for every queued task to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
