// internal/activity/loop.go
//
// Per-session event loop.
// Responsibilities:
//   - Run posted tasks one at a time, in post order, on a single goroutine.
//   - Let HTTP/websocket handlers run a task and wait for its result (Do).
//   - Adapt the loop into a scene.Timer so delayed callbacks also run on it.
//
// Everything that touches a session's runtime or gesture state runs here.

package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wholepart/internal/scene"
)

// ErrStopped is returned for work posted to a stopped loop.
var ErrStopped = errors.New("activity: loop stopped")

// Loop is an unbounded FIFO of tasks drained by one goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewLoop starts a loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 || l.stopped {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("loop task panicked")
		}
	}()
	fn()
}

// Post enqueues fn and reports whether the loop accepted it. Safe to call from
// any goroutine, including tasks running on the loop.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for its error. It must not be called from
// a task already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	ok := l.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("loop task panicked")
				errc <- fmt.Errorf("activity: task panicked: %v", r)
			}
		}()
		errc <- fn()
	})
	if !ok {
		return ErrStopped
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Stop discards queued tasks and waits for the running one to finish. Calling
// Stop from a loop task deadlocks.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.quit)
	})
	<-l.done
}

// loopTimer fires callbacks on the loop instead of the timer goroutine.
type loopTimer struct{ l *Loop }

func (t loopTimer) AfterFunc(d time.Duration, fn func()) scene.Stopper {
	return time.AfterFunc(d, func() { t.l.Post(fn) })
}

// Timer returns a scene.Timer whose callbacks run on l.
func (l *Loop) Timer() scene.Timer { return loopTimer{l} }
