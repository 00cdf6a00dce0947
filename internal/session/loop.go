package session

import (
	"context"
	"errors"
)

// ErrLoopClosed is returned by Do once the loop has stopped
var ErrLoopClosed = errors.New("session loop closed")

// Loop owns a Session and applies events to it one at a time on the goroutine
// running Run. MIDI callbacks, port polling and API handlers all reach the
// session through it, so dispatch never overlaps.
type Loop struct {
	session *Session
	events  chan func(*Session)
	done    chan struct{}
}

// NewLoop wraps s. Nothing else may touch s once the loop is running.
func NewLoop(s *Session) *Loop {
	return &Loop{
		session: s,
		events:  make(chan func(*Session), 64),
		done:    make(chan struct{}),
	}
}

// Run processes events until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn(l.session)
		}
	}
}

// Post queues fn without waiting for it. It reports false if the loop has
// stopped.
func (l *Loop) Post(fn func(*Session)) bool {
	if l.closed() {
		return false
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for its result. It must not be called
// from inside another event, including Listener callbacks.
func (l *Loop) Do(ctx context.Context, fn func(*Session) error) error {
	errc := make(chan error, 1)
	wrapped := func(s *Session) { errc <- fn(s) }

	if l.closed() {
		return ErrLoopClosed
	}
	select {
	case l.events <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-l.done:
		// fn may have completed just before the loop stopped.
		select {
		case err := <-errc:
			return err
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
