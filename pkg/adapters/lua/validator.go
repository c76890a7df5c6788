// Package lua runs cross-parameter validation rules written in Lua.
//
// A rule script sees the current values in the global table `values` and
// reports problems by calling `fail(key, message)`:
//
//	if values.min > values.max then
//	  fail("max", "max must not be below min")
//	end
//
// Scripts run in a fresh state per validation with only the base, table,
// string and math libraries opened.
package lua

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = time.Second

// CodeScript marks failures caused by the script itself rather than by the
// values it checked.
const CodeScript = "script"

// Validator is a compiled rule script. It is safe for concurrent use; each
// call to Validate runs in its own Lua state.
type Validator struct {
	name    string
	proto   *lua.FunctionProto
	timeout time.Duration
	scope   []value.Key
	logger  *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout bounds each script run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) { v.timeout = d }
}

// WithScope lists the keys a script failure is reported against. Without a
// scope, script failures are only logged.
func WithScope(keys ...value.Key) Option {
	return func(v *Validator) { v.scope = append(v.scope, keys...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// Compile parses source once. name identifies the script in error messages.
func Compile(name, source string, opts ...Option) (*Validator, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	v := &Validator{
		name:    name,
		proto:   proto,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Name returns the script name given to Compile.
func (v *Validator) Name() string { return v.name }

// Validate runs the script against values. It matches runtime.CrossValidator,
// so a Validator registers with runtime.WithCrossValidator(v.Validate).
func (v *Validator) Validate(ctx context.Context, values value.Map) []schema.FieldError {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)
	L.SetContext(ctx)

	var failures []schema.FieldError
	L.SetGlobal("values", mapToTable(L, values))
	L.SetGlobal("fail", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		msg := L.OptString(2, "invalid value")
		failures = append(failures, schema.FieldError{Key: value.Key(key), Code: schema.CodeCross, Message: msg})
		return 0
	}))

	L.Push(L.NewFunctionFromProto(v.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		v.logger.Warn("lua rule failed", "script", v.name, "err", err)
		for _, key := range v.scope {
			failures = append(failures, schema.FieldError{
				Key:     key,
				Code:    CodeScript,
				Message: fmt.Sprintf("rule %s failed: %v", v.name, err),
			})
		}
	}
	return failures
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func mapToTable(L *lua.LState, values value.Map) *lua.LTable {
	t := L.NewTable()
	for k, v := range values {
		t.RawSetString(string(k), toLua(L, v))
	}
	return t
}

// toLua converts a value. Null becomes nil, so `values.x == nil` tests for
// an unset parameter. Arrays are 1-based sequences.
func toLua(L *lua.LState, v value.Value) lua.LValue {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case value.KindInt, value.KindFloat:
		n, _ := v.Number()
		return lua.LNumber(n)
	case value.KindText:
		s, _ := v.AsText()
		return lua.LString(s)
	case value.KindBinary:
		return lua.LString(v.Bytes())
	case value.KindExpression:
		s, _ := v.Template()
		return lua.LString(s)
	case value.KindArray:
		t := L.NewTable()
		for i, elem := range v.Elements() {
			t.RawSetInt(i+1, toLua(L, elem))
		}
		return t
	case value.KindObject:
		return mapToTable(L, value.Map(v.Fields()))
	default:
		return lua.LNil
	}
}
