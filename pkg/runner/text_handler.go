package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/value"
)

// TextHandler implements the line-oriented console.
type TextHandler struct {
	Reader *bufio.Reader
	Writer io.Writer
	// Prompt is printed before each read. Empty disables it.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithPrompt sets the prompt printed before each read.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// The pump reads on its own goroutine so that Input can honor ctx while a
// read is blocked.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

// Input reads lines until one parses into a command. Parse errors are
// reported through SystemOutput and the read continues.
func (h *TextHandler) Input(ctx context.Context) (Command, error) {
	h.initPump()
	for {
		if h.Prompt != "" {
			fmt.Fprint(h.Writer, h.Prompt)
		}

		var res inputResult
		var ok bool
		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok = <-h.inputChan:
		}
		if !ok {
			return Command{}, io.EOF
		}
		if res.err != nil {
			return Command{}, fmt.Errorf("input error: %w", res.err)
		}

		line, err := SanitizeInput(res.text)
		if err != nil {
			_ = h.SystemOutput(ctx, "error: "+err.Error())
			continue
		}
		cmd, err := ParseLine(line)
		if err != nil {
			_ = h.SystemOutput(ctx, "error: "+err.Error())
			continue
		}
		if cmd.Op == "" {
			continue
		}
		return cmd, nil
	}
}

func (h *TextHandler) Output(ctx context.Context, resp Response) error {
	var b strings.Builder

	switch {
	case resp.Op == OpShow:
		writeParams(&b, resp)
	case resp.OK && resp.Key != "" && resp.Op != OpTrigger:
		fmt.Fprintf(&b, "%s = %s\n", resp.Key, display(resp.Value))
	case resp.OK && resp.Op == OpValidate:
		b.WriteString("all parameters valid\n")
	}

	for _, fe := range resp.Errors {
		fmt.Fprintf(&b, "! %s (%s): %s\n", fe.Key, fe.Code, fe.Message)
	}
	if resp.Message != "" {
		if !resp.OK && len(resp.Errors) == 0 {
			b.WriteString("error: ")
		}
		b.WriteString(strings.TrimRight(resp.Message, "\n") + "\n")
	}
	for _, e := range resp.Events {
		if line := describeEvent(e); line != "" {
			b.WriteString("  " + line + "\n")
		}
	}

	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, msg)
	return err
}

func writeParams(b *strings.Builder, resp Response) {
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	for _, p := range resp.Params {
		var flags []string
		if !p.Visible {
			flags = append(flags, "hidden")
		}
		if !p.Enabled {
			flags = append(flags, "disabled")
		}
		if !p.Valid {
			flags = append(flags, "invalid")
		}
		if p.Pending {
			flags = append(flags, "pending")
		}
		mark := ""
		if len(flags) > 0 {
			mark = "[" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, display(p.Value), mark)
	}
	_ = tw.Flush()
}

func display(plain any) string {
	v, err := value.FromAny(plain)
	if err != nil {
		return fmt.Sprint(plain)
	}
	return v.String()
}

func describeEvent(e event.Event) string {
	switch e.Type {
	case event.VisibilityChanged:
		if e.Flag {
			return fmt.Sprintf("%s is now visible", e.Key)
		}
		return fmt.Sprintf("%s is now hidden", e.Key)
	case event.EnabledChanged:
		if e.Flag {
			return fmt.Sprintf("%s is now enabled", e.Key)
		}
		return fmt.Sprintf("%s is now disabled", e.Key)
	case event.ActionTriggered:
		return fmt.Sprintf("%s triggered", e.Key)
	case event.Lagged:
		return e.String()
	}
	return ""
}
