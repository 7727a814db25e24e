package discovery

import "sync"

// serialQueue runs posted functions one at a time, in order, on a single
// goroutine. post never blocks, so code already running on the queue (or a
// callback invoked from it) can post more work without deadlocking.
type serialQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go q.run()
	return q
}

// post enqueues fn. It returns false if the queue has been closed.
func (q *serialQueue) post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// close stops accepting work and drops tasks that have not started yet.
func (q *serialQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

func (q *serialQueue) run() {
	defer close(q.exited)
	for {
		select {
		case <-q.wake:
		case <-q.done:
			return
		}

		for {
			fn := q.next()
			if fn == nil {
				break
			}
			fn()
		}
	}
}

func (q *serialQueue) next() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.tasks) == 0 {
		q.tasks = nil
		return nil
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn
}
