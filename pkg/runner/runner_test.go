package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstance(t *testing.T) *runtime.Context {
	t.Helper()
	s := schema.MustNew(
		schema.Define("mode", value.KindText, schema.Default(value.Text("basic"))),
		schema.Define("width", value.KindInt,
			schema.Default(value.Int(100)),
			schema.Validators(schema.Range(1, 4096)),
		),
		schema.Define("gamma", value.KindFloat,
			schema.Default(value.Float(2.2)),
			schema.Visible(expr.Eq{Key: "mode", Value: value.Text("advanced")}),
		),
		schema.Define("email", value.KindText,
			schema.Default(value.Text("nope")),
			schema.Validators(schema.Email()),
		),
		schema.Define("apply", value.KindNull, schema.AsAction()),
	)
	c := runtime.New(s)
	t.Cleanup(c.Close)
	return c
}

func runText(t *testing.T, c *runtime.Context, input string, opts ...runner.Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]runner.Option{runner.WithInputHandler(runner.NewTextHandler(strings.NewReader(input), &out))}, opts...)
	require.NoError(t, runner.New(opts...).Run(context.Background(), c))
	return out.String()
}

func TestRunner_TextSession(t *testing.T) {
	c := newInstance(t)
	out := runText(t, c, strings.Join([]string{
		"get width",
		"set mode advanced",
		"width=9000",
		"set width 120",
		"bogus",
		"undo",
		"undo",
		"redo",
		"trigger apply",
		"get nope",
	}, "\n"))

	assert.Contains(t, out, "width = 100\n")
	assert.Contains(t, out, `mode = "advanced"`+"\n  gamma is now visible\n")
	assert.Contains(t, out, "! width (range):")
	assert.Contains(t, out, "width = 120\n")
	assert.Contains(t, out, `error: unknown command "bogus"`)
	assert.Contains(t, out, "gamma is now hidden")
	assert.Contains(t, out, "apply triggered")
	assert.Contains(t, out, "error: ")

	// Two undos then one redo: width is back to default, mode is advanced.
	assert.True(t, value.Equal(value.Int(100), c.MustGet("width")))
	assert.True(t, value.Equal(value.Text("advanced"), c.MustGet("mode")))
}

func TestRunner_ShowAndValidate(t *testing.T) {
	c := newInstance(t)
	out := runText(t, c, "show\nvalidate\nundo\nhelp\nquit\nset width 5\n")

	assert.Regexp(t, `gamma\s+2\.2\s+\[hidden\]`, out)
	assert.Regexp(t, `mode\s+"basic"`, out)
	assert.Contains(t, out, "! email (")
	assert.Contains(t, out, "nothing to undo")
	assert.Contains(t, out, "commands:")

	// quit stops before the last line.
	assert.True(t, value.Equal(value.Int(100), c.MustGet("width")))
}

func TestRunner_Greeting(t *testing.T) {
	out := runText(t, newInstance(t), "", runner.WithGreeting("editing default"))
	assert.Equal(t, "editing default\n", out)
}

func TestRunner_Interceptor(t *testing.T) {
	c := newInstance(t)
	out := runText(t, c, "set width 7\nset mode advanced\nget width\n",
		runner.WithInterceptor(runner.ProtectKeys("width")))

	assert.Contains(t, out, "error: set refused: width is protected")
	assert.Contains(t, out, "width = 100")
	assert.True(t, value.Equal(value.Text("advanced"), c.MustGet("mode")))

	c = newInstance(t)
	out = runText(t, c, "set mode advanced\nshow\n", runner.WithInterceptor(runner.ReadOnly()))
	assert.Contains(t, out, "read-only")
	assert.True(t, value.Equal(value.Text("basic"), c.MustGet("mode")))
}

func TestRunner_AutoSave(t *testing.T) {
	store := memory.NewStore()
	c := newInstance(t)
	ctx := context.Background()

	out := runText(t, c, "save\nset width 7\nset width 0\n", runner.WithStore(store, "inst"))
	assert.Contains(t, out, "saved inst")

	snap, err := store.Load(ctx, "inst")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(7), snap.Values["width"]), "rejected set must not be saved")

	out = runText(t, newInstance(t), "save\n")
	assert.Contains(t, out, "error: no store configured")
}

func TestRunner_JSONSession(t *testing.T) {
	c := newInstance(t)
	in := strings.Join([]string{
		`{"op":"set","key":"width","value":120}`,
		`{"op":"set","key":"width","value":"wide"}`,
		`not json`,
		`{"op":"set","key":"mode","value":"advanced"}`,
		`{"op":"show"}`,
		`{"op":"quit"}`,
	}, "\n")
	var out bytes.Buffer
	r := runner.New(runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(in), &out)))
	require.NoError(t, r.Run(context.Background(), c))

	dec := json.NewDecoder(&out)
	var resps []map[string]any
	for {
		var m map[string]any
		if err := dec.Decode(&m); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		resps = append(resps, m)
	}
	require.Len(t, resps, 5)

	assert.Equal(t, true, resps[0]["ok"])
	assert.Equal(t, float64(120), resps[0]["value"])
	assert.Equal(t, value.KindInt, c.MustGet("width").Kind(), "JSON integers stay Int")

	assert.Equal(t, false, resps[1]["ok"])
	errs := resps[1]["errors"].([]any)
	assert.Equal(t, schema.CodeKind, errs[0].(map[string]any)["code"])

	assert.Equal(t, false, resps[2]["ok"])
	assert.Contains(t, resps[2]["message"], "invalid command")

	events := resps[3]["events"].([]any)
	var types []any
	for _, e := range events {
		types = append(types, e.(map[string]any)["type"])
	}
	assert.Contains(t, types, "after_change")
	assert.Contains(t, types, "visibility_changed")

	assert.Len(t, resps[4]["params"], 5)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := runner.New(runner.WithInputHandler(runner.NewTextHandler(pr, io.Discard)))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, newInstance(t)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
