package runtime_test

import (
	"time"

	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/runtime"
)

type recorder struct {
	events []event.Event
}

func record(c *runtime.Context) *recorder {
	r := &recorder{}
	c.OnEvent(func(e event.Event) { r.events = append(r.events, e) })
	return r
}

func (r *recorder) of(t event.Type) []event.Event {
	var out []event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) types() []event.Type {
	out := make([]event.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

type fakeClock struct{ t time.Time }

func newClock() *fakeClock { return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
