package event

import (
	"context"
	"sync/atomic"
)

// Subscription is a buffered stream of events. When the buffer is full new
// events are dropped and counted; once the reader catches up it first
// receives a Lagged event carrying the number of events it missed.
type Subscription struct {
	id      uint64
	ch      chan Event
	filter  func(Event) bool
	bus     *Bus
	pending uint64
	missed  atomic.Uint64
}

// C returns the receive channel. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Missed returns the total number of events dropped for this subscription.
func (s *Subscription) Missed() uint64 { return s.missed.Load() }

// Recv waits for the next event. ok is false once the subscription is closed.
func (s *Subscription) Recv(ctx context.Context) (e Event, ok bool, err error) {
	select {
	case e, ok = <-s.ch:
		return e, ok, nil
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	}
}

// Close detaches the subscription from the bus and closes its channel.
// Closing twice is a no-op.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

// offer never blocks. The caller holds the bus lock.
func (s *Subscription) offer(e Event) {
	if s.pending > 0 {
		select {
		case s.ch <- Event{Type: Lagged, Count: s.pending}:
			s.pending = 0
		default:
			s.drop(e)
			return
		}
	}
	select {
	case s.ch <- e:
	default:
		s.drop(e)
	}
}

func (s *Subscription) drop(e Event) {
	s.pending++
	s.missed.Add(1)
	s.bus.dropped.Add(1)
	if s.pending == 1 {
		s.bus.logger.Warn("subscriber lagging, dropping events", "subscription", s.id, "event", e.Type.String())
	}
}
