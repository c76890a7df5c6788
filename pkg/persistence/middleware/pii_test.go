package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	// Mask keys containing "password" or "ssn"
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)

	st := domain.NewParameterState(false)
	st.Errors = []schema.FieldError{{Key: "user_password", Code: "min_length", Message: `"secret123" is too short`}}
	snap := snapshot.New("", time.Now(), value.Map{
		"username":      value.Text("jdoe"),
		"user_password": value.Text("secret123"),
		"details": value.Object(map[value.Key]value.Value{
			"address":    value.Text("123 St"),
			"ssn_number": value.Text("999-99-9999"),
		}),
		"contacts": value.Array(value.Object(map[value.Key]value.Value{
			"ssn": value.Int(1),
		})),
	}, map[value.Key]domain.ParameterState{"user_password": st})

	ctx := context.Background()
	require.NoError(t, secure.Save(ctx, "pii", snap))

	// The caller's snapshot is untouched.
	assert.True(t, value.Equal(value.Text("secret123"), snap.Values["user_password"]))

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Text("jdoe"), stored.Values["username"]))
	assert.True(t, value.Equal(middleware.Masked, stored.Values["user_password"]))
	assert.Empty(t, stored.States["user_password"].Errors, "errors may leak the value")

	ssn, ok := stored.Values["details"].Field("ssn_number")
	require.True(t, ok)
	assert.True(t, value.Equal(middleware.Masked, ssn))
	addr, _ := stored.Values["details"].Field("address")
	assert.True(t, value.Equal(value.Text("123 St"), addr))

	first, _ := stored.Values["contacts"].Index(0)
	nested, _ := first.Field("ssn")
	assert.True(t, value.Equal(middleware.Masked, nested), "objects inside arrays are walked")
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.Chain(
		middleware.NewPIIMiddleware([]string{"token"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)(underlying)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "c", snapshot.New("", time.Now(), value.Map{
		"api_token": value.Text("abc"),
		"name":      value.Text("x"),
	}, nil)))

	// Masking happens before encryption, so decrypting shows the mask.
	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.True(t, value.Equal(middleware.Masked, loaded.Values["api_token"]))
	assert.True(t, value.Equal(value.Text("x"), loaded.Values["name"]))

	raw, err := underlying.Load(ctx, "c")
	require.NoError(t, err)
	assert.Contains(t, raw.Values, middleware.EnvelopeKey)
}
