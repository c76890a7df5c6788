package runner

import (
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain", input: "set width 10", want: "set width 10"},
		{name: "keeps tab", input: "set title a\tb", want: "set title a\tb"},
		{name: "drops trailing carriage return", input: "set width 10\r", want: "set width 10"},
		{name: "strips escape codes", input: "set\x1b[31m title x", want: "set[31m title x"},
		{name: "rejects NUL", input: "set title a\x00b", wantErr: ErrNULByte},
		{name: "invalid utf8", input: "set \xff", wantErr: ErrInvalidUTF8},
		{name: "too large", input: strings.Repeat("a", DefaultMaxLine+1), wantErr: ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_EnvLimit(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "8")
	_, err := SanitizeInput("123456789")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	t.Setenv(EnvMaxInputSize, "bogus")
	_, err = SanitizeInput("123456789")
	assert.NoError(t, err)
}

func TestCheckValue(t *testing.T) {
	assert.NoError(t, CheckValue(value.Text("fine")))
	assert.NoError(t, CheckValue(value.Binary([]byte{0})), "binary may hold NUL")

	nested := value.Object(map[value.Key]value.Value{
		"tags": value.Array(value.Text("ok"), value.Text("bad\x00")),
	})
	err := CheckValue(nested)
	assert.ErrorIs(t, err, ErrNULByte)
	assert.Contains(t, err.Error(), "tags: [1]")
}

func TestDecodeCommand_RejectsEscapedNUL(t *testing.T) {
	_, err := decodeCommand(`{"op":"set","key":"title","value":"a\u0000b"}`)
	assert.ErrorIs(t, err, ErrNULByte)

	cmd, err := decodeCommand(`{"op":"set","key":"title","value":"ab"}`)
	require.NoError(t, err)
	assert.Equal(t, OpSet, cmd.Op)
}
