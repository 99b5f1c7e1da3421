package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/tools/common"
)

// Asker answers one natural-language question. *agent.Agent implements it.
type Asker interface {
	Ask(ctx context.Context, utterance string) (string, error)
}

// ServerContext holds the dependencies shared by the HTTP handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	asker    Asker
	tools    *common.Registry
	provider *instrumentation.Provider
	logger   *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithTools exposes the tool registry (used by the MCP tool surface).
func WithTools(r *common.Registry) ServerContextOption {
	return func(sc *ServerContext) {
		sc.tools = r
	}
}

// WithInstrumentation attaches the instrumentation provider.
func WithInstrumentation(p *instrumentation.Provider) ServerContextOption {
	return func(sc *ServerContext) {
		sc.provider = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServerContextOption {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// NewServerContext creates a new server context around asker.
func NewServerContext(ctx context.Context, asker Asker, opts ...ServerContextOption) (*ServerContext, error) {
	if asker == nil {
		return nil, fmt.Errorf("server context needs an agent")
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		asker:  asker,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context, canceled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Asker returns the agent.
func (sc *ServerContext) Asker() Asker {
	return sc.asker
}

// Tools returns the tool registry, or nil.
func (sc *ServerContext) Tools() *common.Registry {
	return sc.tools
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.provider == nil {
		return nil
	}
	return sc.provider.Metrics()
}

// InstrumentationProvider returns the instrumentation provider, or nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	return sc.provider
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
