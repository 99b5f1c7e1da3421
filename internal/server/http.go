package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/logging"
)

const (
	// DefaultRequestTimeout bounds one question, model and calendar calls included.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxBodyBytes caps the request body of /mcp.
	DefaultMaxBodyBytes = 64 << 10

	// QuestionPath is the question endpoint.
	QuestionPath = "/mcp"

	// ToolsPath is where the MCP tool surface is mounted.
	ToolsPath = "/mcp/tools"
)

// AskRequest is the body of a question.
type AskRequest struct {
	Pergunta *string `json:"pergunta"`
}

// AskResponse is the body of an answer.
type AskResponse struct {
	Resposta string `json:"resposta"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	// RequestTimeout is the per-request deadline. Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration

	// CORSOrigins lists the allowed origins. Empty allows all.
	CORSOrigins []string

	// ExposeTools mounts the MCP tool surface at ToolsPath.
	ExposeTools bool

	// Version is reported by the MCP tool surface.
	Version string

	// MaxBodyBytes caps the request body. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// HTTPServer serves the question endpoint and the health endpoints.
type HTTPServer struct {
	sc      *ServerContext
	config  HTTPConfig
	health  *HealthChecker
	handler http.Handler
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// NewHTTPServer builds the routes and middleware.
func NewHTTPServer(sc *ServerContext, config HTTPConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &HTTPServer{
		sc:     sc,
		config: config,
		health: NewHealthChecker(sc, config.Version),
		logger: logging.WithOperation(sc.Logger(), "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(QuestionPath, s.handleAsk)
	s.health.RegisterHealthEndpoints(mux)

	if config.ExposeTools {
		if sc.Tools() == nil {
			return nil, fmt.Errorf("tool surface requested but no tools are registered")
		}
		mcpSrv := mcpserver.NewMCPServer("agenda", config.Version,
			mcpserver.WithToolCapabilities(false),
		)
		sc.Tools().RegisterMCP(mcpSrv)
		mux.Handle(ToolsPath, mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath(ToolsPath),
			mcpserver.WithLogger(logging.NewPrintfAdapter(s.logger)),
		))
	}

	s.handler = chain(mux,
		requestIDMiddleware,
		metricsMiddleware(sc),
		corsMiddleware(config.CORSOrigins),
	)
	return s, nil
}

// Handler returns the complete handler, middleware included.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the health checker, e.g. to flip readiness on shutdown.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start listens on addr and blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", slog.String("addr", addr))
	return srv.ListenAndServe()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return srv.Shutdown(ctx)
}

// handleAsk answers GET|POST /mcp.
func (s *HTTPServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error:   "method_not_allowed",
			Message: fmt.Sprintf("method %s is not allowed", r.Method),
		})
		return
	}

	question, err := s.readQuestion(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	answer, err := s.sc.Asker().Ask(ctx, question)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !failure.Is(err, failure.KindTimeout) {
			err = failure.Timeout(err)
		}
		s.logger.WarnContext(ctx, "question failed",
			logging.RequestID(logging.RequestIDFromContext(ctx)),
			logging.FailureKind(string(failure.KindOf(err))),
			logging.Err(err))
		s.health.RecordQuestion(err)
		writeFailure(w, err)
		return
	}

	s.health.RecordQuestion(nil)
	writeJSON(w, http.StatusOK, AskResponse{Resposta: answer})
}

// readQuestion takes the question from the JSON body or, for GET requests
// without a body, from the pergunta query parameter.
func (s *HTTPServer) readQuestion(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Body == nil {
		r.Body = http.NoBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", failure.Validation("body", "must not exceed %d bytes", tooLarge.Limit)
		}
		return "", failure.Validation("body", "could not be read: %v", err)
	}

	var question string
	if len(strings.TrimSpace(string(body))) > 0 {
		var req AskRequest
		if err := json.Unmarshal(body, &req); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "pergunta" {
				return "", failure.Validation("pergunta", "must be a string")
			}
			return "", failure.Validation("body", "must be a JSON object: %v", err)
		}
		if req.Pergunta != nil {
			question = *req.Pergunta
		}
	} else if r.Method == http.MethodGet {
		question = r.URL.Query().Get("pergunta")
	}

	if strings.TrimSpace(question) == "" {
		return "", failure.Validation("pergunta", "is required")
	}
	return question, nil
}
