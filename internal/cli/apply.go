package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of Apply.
type Report struct {
	Instance string              `yaml:"instance,omitempty"`
	Saved    bool                `yaml:"saved"`
	Values   map[string]any      `yaml:"values"`
	Changes  []dto.Change        `yaml:"changes"`
	Errors   []schema.FieldError `yaml:"errors,omitempty"`
}

// Apply sets each assignment on an instance, in order. Rejected values and
// kind mismatches are reported and skipped; any other error aborts. With a backend and an
// instance ID the instance is loaded first and saved afterwards, unless
// something was rejected.
func Apply(ctx context.Context, eng *tendril.Engine, backend *Backend, instanceID string, assignments []Assignment) (*Report, error) {
	if instanceID == "" {
		instanceID = "default"
	}
	sessions := eng.Sessions(backend.SessionOptions()...)
	defer sessions.Close()

	report := &Report{Instance: instanceID}
	err := sessions.WithInstance(ctx, instanceID, func(ctx context.Context, c *runtime.Context) error {
		before := c.Snapshot("apply")
		for _, a := range assignments {
			err := c.Set(ctx, a.Key, a.Value)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrValidation):
				report.Errors = append(report.Errors, domain.FieldErrors(err)...)
			case errors.Is(err, domain.ErrTypeMismatch):
				report.Errors = append(report.Errors, schema.FieldError{Key: a.Key, Code: schema.CodeKind, Message: err.Error()})
			default:
				return err
			}
		}
		if err := c.ValidateAll(ctx); err != nil {
			report.Errors = append(report.Errors, domain.FieldErrors(err)...)
		}
		report.Values = c.CollectValues().Plain()
		report.Changes = dto.Changes(snapshot.Compute(before.Values, c.CollectValues()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if backend != nil && len(report.Errors) == 0 {
		if err := sessions.Save(ctx, instanceID); err != nil {
			return nil, fmt.Errorf("failed to save instance: %w", err)
		}
		report.Saved = true
	}
	return report, nil
}

// WriteYAML renders the report.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
