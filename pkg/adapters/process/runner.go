// Package process runs external commands as asynchronous validators.
//
// A registered command receives the candidate value as JSON on stdin and,
// for convenience, in TENDRIL_VALUE (raw text for Text values, JSON
// otherwise). Exit status zero accepts the value; any other status rejects
// it with the command's stderr (or stdout) as the message.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// DefaultTimeout bounds a single validation run.
const DefaultTimeout = 5 * time.Second

// EnvValue carries the value in the command environment.
const EnvValue = "TENDRIL_VALUE"

// Runner executes allow-listed commands.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(validators map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, cfg := range validators {
			cfg.Name = name
			r.registry[name] = cfg
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names lists the registered validators, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAll adds every registered command to the catalog's async
// validators, under its name.
func (r *Runner) RegisterAll(catalog *schema.Catalog) {
	for _, name := range r.Names() {
		catalog.Async.Register(name, r.Validator(name))
	}
}

// Validator returns the async validator running the named command.
func (r *Runner) Validator(name string) schema.AsyncValidator {
	return func(ctx context.Context, v value.Value) error {
		return r.Run(ctx, name, v)
	}
}

// Run executes the named command against v. A nil error means the command
// accepted the value.
func (r *Runner) Run(ctx context.Context, name string, v value.Value) error {
	proc, ok := r.registry[name]
	if !ok {
		return fmt.Errorf("process validator not registered: %s", name)
	}

	payload, err := json.Marshal(v.Any())
	if err != nil {
		return fmt.Errorf("%s: failed to encode value: %w", name, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// The value travels on stdin and in the environment, never as
	// arguments, so it cannot inject flags.
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(payload)
	env := []string{EnvValue + "=" + envValue(v, payload)}
	for k, val := range proc.Environment {
		env = append(env, k+"="+val)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("process validator finished", "validator", name, "duration", time.Since(start), "err", err)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("%s: execution failed: %w", name, err)
	}
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		msg = strings.TrimSpace(stdout.String())
	}
	if msg == "" {
		msg = fmt.Sprintf("rejected by %s (exit %d)", name, exitErr.ExitCode())
	}
	return errors.New(msg)
}

func envValue(v value.Value, payload []byte) string {
	if s, ok := v.AsText(); ok {
		return s
	}
	return string(payload)
}
