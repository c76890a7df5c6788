package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultInstance is used when a tool call names no instance.
const DefaultInstance = "default"

// ValuesResponse is the structured result of every tool.
type ValuesResponse struct {
	InstanceID string              `json:"instance_id" jsonschema_description:"The instance the tool acted on"`
	Values     []dto.ParameterView `json:"values" jsonschema_description:"Every parameter of the instance after the call"`
	Applied    bool                `json:"applied" jsonschema_description:"Whether the requested change was committed"`
	Errors     []schema.FieldError `json:"errors,omitempty" jsonschema_description:"Validation errors of a rejected change"`
}

// Server exposes a session manager as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("tendril-mcp", strings.TrimSpace(tendril.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func instanceOption() mcp.ToolOption {
	return mcp.WithString("instance_id", mcp.Description("Instance to act on (defaults to \""+DefaultInstance+"\")"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_values",
		mcp.WithDescription("Read every parameter of an instance with its validity and visibility."),
		instanceOption(),
		mcp.WithOutputSchema[ValuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetValues))

	s.mcpServer.AddTool(mcp.NewTool("set_value",
		mcp.WithDescription("Set a parameter. The value is transformed and validated; a rejected value is not committed."),
		instanceOption(),
		mcp.WithString("key", mcp.Required(), mcp.Description("Parameter key")),
		mcp.WithString("value", mcp.Required(), mcp.Description(`JSON-encoded value, e.g. 0.5, "text" or [1, 2]. Non-JSON input is taken as text.`)),
		mcp.WithOutputSchema[ValuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetValue))

	s.mcpServer.AddTool(mcp.NewTool("reset_value",
		mcp.WithDescription("Reset a parameter to its default value."),
		instanceOption(),
		mcp.WithString("key", mcp.Required(), mcp.Description("Parameter key")),
		mcp.WithOutputSchema[ValuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleResetValue))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change of an instance."),
		instanceOption(),
		mcp.WithOutputSchema[ValuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change of an instance."),
		instanceOption(),
		mcp.WithOutputSchema[ValuesResponse](),
	), mcp.NewStructuredToolHandler(s.handleRedo))
}

// Handler methods for structured tools

func (s *Server) handleGetValues(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValuesResponse, error) {
	return s.act(ctx, args, func(ctx context.Context, c *runtime.Context) (bool, error) {
		return false, nil
	})
}

func (s *Server) handleSetValue(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValuesResponse, error) {
	key, _ := args["key"].(string)
	raw, _ := args["value"].(string)
	v, err := parseValue(raw)
	if err != nil {
		return ValuesResponse{}, fmt.Errorf("invalid value: %w", err)
	}
	return s.act(ctx, args, func(ctx context.Context, c *runtime.Context) (bool, error) {
		return true, c.Set(ctx, value.Key(key), v)
	})
}

func (s *Server) handleResetValue(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValuesResponse, error) {
	key, _ := args["key"].(string)
	return s.act(ctx, args, func(ctx context.Context, c *runtime.Context) (bool, error) {
		return true, c.Reset(ctx, value.Key(key))
	})
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValuesResponse, error) {
	return s.act(ctx, args, func(ctx context.Context, c *runtime.Context) (bool, error) {
		return c.Undo(ctx)
	})
}

func (s *Server) handleRedo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValuesResponse, error) {
	return s.act(ctx, args, func(ctx context.Context, c *runtime.Context) (bool, error) {
		return c.Redo(ctx)
	})
}

// act runs fn on the instance named by args. Validation failures are part of
// the response rather than tool errors, so the caller can correct the value.
func (s *Server) act(ctx context.Context, args map[string]interface{}, fn func(context.Context, *runtime.Context) (bool, error)) (ValuesResponse, error) {
	id, _ := args["instance_id"].(string)
	if id == "" {
		id = DefaultInstance
	}
	resp := ValuesResponse{InstanceID: id}
	err := s.sessions.WithInstance(ctx, id, func(ctx context.Context, c *runtime.Context) error {
		applied, err := fn(ctx, c)
		if errors.Is(err, domain.ErrValidation) {
			resp.Errors = domain.FieldErrors(err)
			err = nil
			applied = false
		}
		resp.Applied = applied
		resp.Values = dto.Views(c)
		return err
	})
	if err != nil {
		s.logger.Warn("MCP tool failed", "instance_id", id, "err", err)
		return ValuesResponse{}, err
	}
	return resp, nil
}

// parseValue decodes raw as JSON, keeping integers distinct from floats.
// Text that is not JSON is taken verbatim.
func parseValue(raw string) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil || dec.More() {
		return value.Text(raw), nil
	}
	return value.FromAny(decoded)
}

func (s *Server) registerResources() {
	// EXPOSE: tendril://schema
	s.mcpServer.AddResource(mcp.NewResource("tendril://schema", "Parameter Schema",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(dto.Describe(s.sessions.Schema()))
		if err != nil {
			return nil, fmt.Errorf("failed to describe schema: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "tendril://schema",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
