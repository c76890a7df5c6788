package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
)

// Masked replaces sensitive values in stored snapshots.
var Masked = value.Text("***")

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values whose key, or the
// key of a nested Object field, matches one of the patterns. Masking is one
// way: loaded snapshots carry the mask.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, instanceID string, snap *snapshot.Snapshot) error {
	// Values are immutable, so replacing them in a clone leaves the caller's
	// snapshot untouched.
	cloned := snap.Clone()
	for k, v := range cloned.Values {
		if m.matches(k) {
			cloned.Values[k] = Masked
			if st, ok := cloned.States[k]; ok {
				// Error messages may quote the value.
				st.Errors = nil
				cloned.States[k] = st
			}
			continue
		}
		cloned.Values[k] = m.mask(v)
	}
	return m.next.Save(ctx, instanceID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, instanceID string) (*snapshot.Snapshot, error) {
	return m.next.Load(ctx, instanceID)
}

func (m *piiMiddleware) Delete(ctx context.Context, instanceID string) error {
	return m.next.Delete(ctx, instanceID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(k value.Key) bool {
	for _, p := range m.patterns {
		if p.MatchString(string(k)) {
			return true
		}
	}
	return false
}

// mask walks Objects and Arrays, masking matching Object fields.
func (m *piiMiddleware) mask(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindObject:
		fields := v.Fields()
		for k, f := range fields {
			if m.matches(k) {
				fields[k] = Masked
			} else {
				fields[k] = m.mask(f)
			}
		}
		return value.Object(fields)
	case value.KindArray:
		elems := v.Elements()
		for i, e := range elems {
			elems[i] = m.mask(e)
		}
		return value.Array(elems...)
	default:
		return v
	}
}
