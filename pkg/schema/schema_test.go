package schema_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := schema.New(
		schema.Define("a", value.KindInt),
		schema.Define("a", value.KindText),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate parameter "a"`)
}

func TestNew_RejectsBadDefault(t *testing.T) {
	_, err := schema.New(schema.Define("n", value.KindInt, schema.Default(value.Text("x"))))
	assert.Error(t, err)
}

func TestSchema_Order(t *testing.T) {
	s := schema.MustNew(
		schema.Define("z", value.KindInt, schema.Default(value.Int(1))),
		schema.Define("a", value.KindText),
	)
	assert.Equal(t, []value.Key{"z", "a"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	p, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, value.KindText, p.ExpectedKind())

	_, ok = s.Lookup("missing")
	assert.False(t, ok)

	defaults := s.Defaults()
	assert.Len(t, defaults, 1)
}

func TestCheckKind(t *testing.T) {
	f := schema.Define("f", value.KindFloat)
	n := schema.Define("n", value.KindText, schema.Nullable())
	a := schema.Define("a", value.KindAny)

	assert.True(t, schema.CheckKind(f, value.Float(1)))
	assert.True(t, schema.CheckKind(f, value.Int(1)), "int widens to float")
	assert.False(t, schema.CheckKind(f, value.Text("1")))
	assert.False(t, schema.CheckKind(f, value.Null()))
	assert.True(t, schema.CheckKind(n, value.Null()))
	assert.True(t, schema.CheckKind(a, value.Array()))
	assert.True(t, schema.CheckKind(a, value.Null()))
}

func TestDescriptor_Transform(t *testing.T) {
	d := schema.Define("opacity", value.KindFloat,
		schema.Default(value.Int(1)),
		schema.Transforms(schema.Clamp(0, 1), schema.Round(2)),
	)
	def, ok := d.DefaultValue()
	require.True(t, ok)
	assert.True(t, value.Equal(value.Float(1), def), "default is widened")

	assert.True(t, value.Equal(value.Float(1), d.Transform(value.Float(1.5))))
	assert.True(t, value.Equal(value.Float(0), d.Transform(value.Int(-3))))
	assert.True(t, value.Equal(value.Float(0.33), d.Transform(value.Float(0.3333))))
}

func TestTransforms(t *testing.T) {
	tests := []struct {
		name string
		t    schema.Transform
		in   value.Value
		want value.Value
	}{
		{"clamp int high", schema.Clamp(0, 10), value.Int(11), value.Int(10)},
		{"clamp int inside", schema.Clamp(0, 10), value.Int(5), value.Int(5)},
		{"clamp float low", schema.Clamp(0, 1), value.Float(-0.5), value.Float(0)},
		{"clamp text untouched", schema.Clamp(0, 1), value.Text("x"), value.Text("x")},
		{"wrap int", schema.Wrap(0, 360), value.Int(370), value.Int(10)},
		{"wrap negative", schema.Wrap(0, 360), value.Int(-90), value.Int(270)},
		{"wrap float", schema.Wrap(-180, 180), value.Float(190), value.Float(-170)},
		{"round", schema.Round(1), value.Float(2.26), value.Float(2.3)},
		{"trim", schema.TrimSpace(), value.Text("  hi "), value.Text("hi")},
		{"lower", schema.Lowercase(), value.Text("HeLLo"), value.Text("hello")},
		{"upper", schema.Uppercase(), value.Text("hi"), value.Text("HI")},
		{"int from float", schema.IntFromFloat(), value.Float(4), value.Int(4)},
		{"int from fractional", schema.IntFromFloat(), value.Float(4.5), value.Float(4.5)},
		{"chain", schema.Chain(schema.TrimSpace(), schema.Uppercase()), value.Text(" a "), value.Text("A")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.t(tt.in)
			assert.True(t, value.Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name     string
		v        schema.Validator
		in       value.Value
		wantCode string
	}{
		{"required null", schema.Required(), value.Null(), schema.CodeRequired},
		{"required empty", schema.Required(), value.Text(""), schema.CodeRequired},
		{"required zero ok", schema.Required(), value.Int(0), ""},
		{"min length", schema.MinLength(3), value.Text("ab"), schema.CodeMinLength},
		{"min length runes", schema.MinLength(3), value.Text("äöü"), ""},
		{"max length", schema.MaxLength(2), value.Text("abc"), schema.CodeMaxLength},
		{"pattern", schema.Pattern(regexp.MustCompile(`^\d+$`)), value.Text("12a"), schema.CodePattern},
		{"email ok", schema.Email(), value.Text("a@example.com"), ""},
		{"email bad", schema.Email(), value.Text("not-an-email"), schema.CodeEmail},
		{"email null skipped", schema.Email(), value.Null(), ""},
		{"range", schema.Range(0, 1), value.Float(1.5), schema.CodeRange},
		{"range int ok", schema.Range(0, 10), value.Int(10), ""},
		{"one of", schema.OneOf(value.Text("a"), value.Text("b")), value.Text("c"), schema.CodeOneOf},
		{"min items", schema.MinItems(1), value.Array(), schema.CodeMinItems},
		{"max items", schema.MaxItems(1), value.Array(value.Int(1), value.Int(2)), schema.CodeMaxItems},
		{"each", schema.Each(schema.KindOf(value.KindInt)), value.Array(value.Int(1), value.Text("x")), schema.CodeKind},
		{"func", schema.Func("even", "must be even", func(v value.Value) bool {
			i, _ := v.AsInt()
			return i%2 == 0
		}), value.Int(3), "even"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v(tt.in)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, schema.NewFieldError("k", err).Code)
		})
	}
}

func TestValidateSync_AccumulatesAll(t *testing.T) {
	d := schema.Define("name", value.KindText, schema.Validators(
		schema.MinLength(5),
		schema.Pattern(regexp.MustCompile(`^[a-z]+$`)),
		schema.Func("", "custom failure", func(value.Value) bool { return false }),
	))
	errs := d.ValidateSync(value.Text("AB"))
	require.Len(t, errs, 3)
	assert.Equal(t, schema.CodeMinLength, errs[0].Code)
	assert.Equal(t, schema.CodePattern, errs[1].Code)
	assert.Equal(t, schema.CodeCustom, errs[2].Code)
	assert.Equal(t, value.Key("name"), errs[2].Key)
}

func TestValidateAsync_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	slow := func(ctx context.Context, v value.Value) error {
		started <- struct{}{}
		<-release
		return errors.New("taken")
	}
	fine := func(ctx context.Context, v value.Value) error {
		started <- struct{}{}
		<-release
		return nil
	}
	d := schema.Define("user", value.KindText, schema.AsyncValidators(slow, fine))

	done := make(chan []schema.FieldError)
	go func() { done <- d.ValidateAsync(context.Background(), value.Text("bob")) }()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("validators did not run concurrently")
		}
	}
	close(release)

	errs := <-done
	require.Len(t, errs, 1)
	assert.Equal(t, "taken", errs[0].Message)
	assert.Equal(t, schema.CodeCustom, errs[0].Code)
}

const schemaYAML = `
parameters:
  - key: mode
    kind: string
    default: basic
    validators:
      - one_of: [basic, advanced]
  - key: opacity
    kind: float
    default: 1
    transforms:
      - clamp: {min: 0, max: 1}
      - round: 2
  - key: email
    kind: text
    nullable: true
    validators: [email]
    visible_when: {eq: [mode, advanced]}
  - key: handle
    kind: text
    default: ""
    validators:
      - func: slug
  - key: apply
    kind: "null"
    action: true
`

func TestParseYAML(t *testing.T) {
	catalog := schema.NewCatalog()
	catalog.Validators.Register("slug", schema.Pattern(regexp.MustCompile(`^[a-z0-9-]*$`)))

	s, err := schema.Parse([]byte(schemaYAML), "yaml", catalog)
	require.NoError(t, err)
	assert.Equal(t, []value.Key{"mode", "opacity", "email", "handle", "apply"}, s.Keys())

	opacity, _ := s.Lookup("opacity")
	def, ok := opacity.DefaultValue()
	require.True(t, ok)
	assert.True(t, value.Equal(value.Float(1), def))
	assert.True(t, value.Equal(value.Float(0.5), opacity.Transform(value.Float(0.499))))

	email, _ := s.Lookup("email")
	assert.True(t, schema.CheckKind(email, value.Null()))
	assert.Equal(t, []value.Key{"mode"}, expr.Dependencies(email.VisibleWhen()))
	assert.Len(t, email.ValidateSync(value.Text("nope")), 1)

	mode, _ := s.Lookup("mode")
	assert.Len(t, mode.ValidateSync(value.Text("expert")), 1)

	handle, _ := s.Lookup("handle")
	assert.Len(t, handle.ValidateSync(value.Text("Not A Slug")), 1)

	apply, _ := s.Lookup("apply")
	assert.True(t, schema.IsAction(apply))
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown kind":      "parameters: [{key: a, kind: matrix}]",
		"unknown field":     "parameters: [{key: a, kind: int, colour: red}]",
		"unknown validator": "parameters: [{key: a, kind: int, validators: [prime]}]",
		"bad pattern":       "parameters: [{key: a, kind: text, validators: [{pattern: '('}]}]",
		"clamp inverted":    "parameters: [{key: a, kind: int, transforms: [{clamp: {min: 2, max: 1}}]}]",
		"missing key":       "parameters: [{kind: int}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := schema.Parse([]byte(doc), "yaml", nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	doc := `{"parameters": [
		{"key": "count", "kind": "int", "default": 3, "validators": [{"range": {"min": 0, "max": 10}}]},
		{"key": "tags", "kind": "array", "default": [], "validators": [{"max_items": 2}]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := schema.LoadFile(path, nil)
	require.NoError(t, err)

	count, _ := s.Lookup("count")
	def, _ := count.DefaultValue()
	assert.True(t, value.Equal(value.Int(3), def), "json numbers keep integer kind")
	assert.Len(t, count.ValidateSync(value.Int(11)), 1)

	tags, _ := s.Lookup("tags")
	assert.Len(t, tags.ValidateSync(value.Array(value.Int(1), value.Int(2), value.Int(3))), 1)
}
