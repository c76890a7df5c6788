package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/tendril/pkg/value"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines
// communication. Each input line is an object such as
//
//	{"op":"set","key":"width","value":120}
//
// and each output line is an encoded Response.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

type jsonCommand struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Input reads one JSON line. Malformed lines are answered with a failed
// Response and skipped. Cancellation is observed between lines only.
func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		text, err := h.Reader.ReadString('\n')
		if strings.TrimSpace(text) == "" {
			if err != nil {
				if err == io.EOF {
					return Command{}, io.EOF
				}
				return Command{}, fmt.Errorf("input error: %w", err)
			}
			continue
		}

		cmd, perr := decodeCommand(text)
		if perr != nil {
			if oerr := h.Output(ctx, Response{Message: perr.Error()}); oerr != nil {
				return Command{}, oerr
			}
			continue
		}
		return cmd, nil
	}
}

func decodeCommand(text string) (Command, error) {
	text, err := SanitizeInput(text)
	if err != nil {
		return Command{}, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw jsonCommand
	if err := dec.Decode(&raw); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}

	cmd := Command{Op: raw.Op, Key: value.Key(raw.Key)}
	switch cmd.Op {
	case OpGet, OpSet, OpReset, OpTrigger:
		if cmd.Key == "" {
			return Command{}, fmt.Errorf("%s: missing key", cmd.Op)
		}
	case OpUndo, OpRedo, OpShow, OpValidate, OpSave, OpHelp, OpQuit:
	default:
		return Command{}, fmt.Errorf("unknown command %q", raw.Op)
	}
	if cmd.Op == OpSet {
		v, err := value.FromAny(raw.Value)
		if err != nil {
			return Command{}, fmt.Errorf("set %s: %w", cmd.Key, err)
		}
		if err := CheckValue(v); err != nil {
			return Command{}, fmt.Errorf("set %s: %w", cmd.Key, err)
		}
		cmd.Value = v
	}
	return cmd, nil
}

func (h *JSONHandler) Output(ctx context.Context, resp Response) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(resp)
}

// SystemOutput emits {"message": msg}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(map[string]string{"message": msg})
}
