package runner

import (
	"context"

	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (console) and JSON (structured) modes.
type IOHandler interface {
	// Input reads the next command. It returns io.EOF when the input is
	// exhausted and ctx.Err() when ctx is done first.
	Input(ctx context.Context) (Command, error)

	// Output presents the outcome of a command.
	Output(ctx context.Context, resp Response) error

	// SystemOutput presents a meta-message (greeting, status, parse errors).
	SystemOutput(ctx context.Context, msg string) error
}

// Response is the outcome of one command. Value holds a plain Go value
// (see value.Value.Any).
type Response struct {
	Op      Op                  `json:"op"`
	OK      bool                `json:"ok"`
	Key     value.Key           `json:"key,omitempty"`
	Value   any                 `json:"value,omitempty"`
	Params  []dto.ParameterView `json:"params,omitempty"`
	Errors  []schema.FieldError `json:"errors,omitempty"`
	Events  []event.Event       `json:"events,omitempty"`
	Message string              `json:"message,omitempty"`
}
