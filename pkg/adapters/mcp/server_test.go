package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := schema.New(
		schema.Define("width", value.KindInt,
			schema.Default(value.Int(10)),
			schema.Validators(schema.Range(1, 100))),
		schema.Define("title", value.KindText, schema.Default(value.Text("untitled"))),
	)
	require.NoError(t, err)
	mgr := session.NewManager(s)
	t.Cleanup(mgr.Close)
	return NewServer(mgr)
}

func find(t *testing.T, resp ValuesResponse, key string) any {
	t.Helper()
	for _, v := range resp.Values {
		if v.Key == key {
			return v.Value
		}
	}
	t.Fatalf("key %q missing from response", key)
	return nil
}

func TestTools_SetUndoRedo(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	resp, err := s.handleSetValue(ctx, req, map[string]interface{}{"key": "width", "value": "42"})
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, DefaultInstance, resp.InstanceID)
	assert.Equal(t, int64(42), find(t, resp, "width"))

	resp, err = s.handleUndo(ctx, req, map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, int64(10), find(t, resp, "width"))

	resp, err = s.handleRedo(ctx, req, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), find(t, resp, "width"))

	resp, err = s.handleResetValue(ctx, req, map[string]interface{}{"key": "width"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), find(t, resp, "width"))
}

func TestTools_ValidationFailureIsReported(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleSetValue(ctx, mcp.CallToolRequest{}, map[string]interface{}{"key": "width", "value": "500"})
	require.NoError(t, err)
	assert.False(t, resp.Applied)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, schema.CodeRange, resp.Errors[0].Code)
	assert.Equal(t, int64(10), find(t, resp, "width"))
}

func TestTools_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSetValue(ctx, mcp.CallToolRequest{}, map[string]interface{}{"key": "ghost", "value": "1"})
	assert.Error(t, err)

	_, err = s.handleSetValue(ctx, mcp.CallToolRequest{}, map[string]interface{}{"key": "width", "value": `"wide"`})
	assert.Error(t, err)
}

func TestTools_InstancesAreSeparate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSetValue(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"instance_id": "a", "key": "title", "value": "plain words",
	})
	require.NoError(t, err)

	resp, err := s.handleGetValues(ctx, mcp.CallToolRequest{}, map[string]interface{}{"instance_id": "b"})
	require.NoError(t, err)
	assert.Equal(t, "untitled", find(t, resp, "title"))

	resp, err = s.handleGetValues(ctx, mcp.CallToolRequest{}, map[string]interface{}{"instance_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "plain words", find(t, resp, "title"), "non-JSON input is taken as text")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want value.Value
	}{
		{"3", value.Int(3)},
		{"0.5", value.Float(0.5)},
		{`"x"`, value.Text("x")},
		{"true", value.Bool(true)},
		{"null", value.Null()},
		{"[1, 2]", value.Array(value.Int(1), value.Int(2))},
		{"hello", value.Text("hello")},
		{"1 2", value.Text("1 2")},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.raw)
		require.NoError(t, err)
		assert.True(t, value.Equal(tt.want, got), "%s: got %s", tt.raw, got)
	}
}
