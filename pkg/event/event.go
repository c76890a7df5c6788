package event

import (
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// Type identifies what happened.
type Type uint8

const (
	BeforeChange Type = iota + 1
	AfterChange
	ValidationStarted
	ValidationPassed
	ValidationFailed
	Touched
	Reset
	VisibilityChanged
	EnabledChanged
	ActionTriggered
	BatchUpdate
	// Lagged is delivered to a subscription that fell behind; Count holds
	// the number of events it missed.
	Lagged
)

var typeNames = map[Type]string{
	BeforeChange:      "before_change",
	AfterChange:       "after_change",
	ValidationStarted: "validation_started",
	ValidationPassed:  "validation_passed",
	ValidationFailed:  "validation_failed",
	Touched:           "touched",
	Reset:             "reset",
	VisibilityChanged: "visibility_changed",
	EnabledChanged:    "enabled_changed",
	ActionTriggered:   "action_triggered",
	BatchUpdate:       "batch_update",
	Lagged:            "lagged",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(text []byte) error {
	for typ, name := range typeNames {
		if name == string(text) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", text)
}

// Event is a change notification. Which fields are set depends on Type:
//
//	BeforeChange, AfterChange  Key, Old, New
//	Reset                      Key, New
//	ValidationFailed           Key, Errors
//	VisibilityChanged          Key, Flag (visible)
//	EnabledChanged             Key, Flag (enabled)
//	ActionTriggered            Key, Time
//	BatchUpdate                Keys
//	Lagged                     Count
type Event struct {
	Type   Type                `json:"type"`
	Key    value.Key           `json:"key,omitempty"`
	Old    value.Value         `json:"old"`
	New    value.Value         `json:"new"`
	Errors []schema.FieldError `json:"errors,omitempty"`
	Flag   bool                `json:"flag,omitempty"`
	Keys   []value.Key         `json:"keys,omitempty"`
	Count  uint64              `json:"count,omitempty"`
	Time   time.Time           `json:"time"`
}

// Concerns reports whether the event is about key.
func (e Event) Concerns(key value.Key) bool {
	if e.Type == BatchUpdate {
		for _, k := range e.Keys {
			if k == key {
				return true
			}
		}
		return false
	}
	return e.Key == key
}

func (e Event) String() string {
	switch e.Type {
	case BeforeChange, AfterChange:
		return fmt.Sprintf("%s %s: %s -> %s", e.Type, e.Key, e.Old, e.New)
	case BatchUpdate:
		return fmt.Sprintf("%s %v", e.Type, e.Keys)
	case Lagged:
		return fmt.Sprintf("%s %d", e.Type, e.Count)
	default:
		return fmt.Sprintf("%s %s", e.Type, e.Key)
	}
}
