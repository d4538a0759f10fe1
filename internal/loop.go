package internal

import (
	"context"
	"sync"
)

// Loop runs posted closures one at a time on a single goroutine. State owned
// by a loop is only touched from inside those closures.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	stop  sync.Once
	wg    sync.WaitGroup
}

// NewLoop starts a loop with the given queue depth.
func NewLoop(queue int) *Loop {
	if queue <= 0 {
		queue = 64
	}
	l := &Loop{
		tasks: make(chan func(), queue),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			// drain what was already queued
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post queues fn. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		l.wg.Wait()
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop after running already queued work. It is idempotent.
func (l *Loop) Close() {
	l.stop.Do(func() { close(l.done) })
	l.wg.Wait()
}
