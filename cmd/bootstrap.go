package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/config"
	"github.com/teemow/agenda/internal/google"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/timeparse"
	"github.com/teemow/agenda/internal/tools/calendar_tools"
	"github.com/teemow/agenda/internal/tools/common"
)

// envConfigFile names the YAML file when --config is not given.
const envConfigFile = "AGENDA_CONFIG"

// globalFlags are the persistent flags of the root command. They override
// the file and the environment only when set explicitly.
type globalFlags struct {
	configFile string
	envFile    string

	debug     bool
	logLevel  string
	logFormat string
	logFile   string

	provider    string
	model       string
	baseURL     string
	maxSteps    int
	dateContext bool

	zone       string
	calendarID string
}

func registerGlobalFlags(cmd *cobra.Command, f *globalFlags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&f.configFile, "config", "", "YAML configuration file. Can also use AGENDA_CONFIG env var.")
	pf.StringVar(&f.envFile, "env-file", config.DefaultEnvFile, "Dotenv file loaded into the environment when present")

	pf.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
	pf.StringVar(&f.logFile, "log-file", "", "Also write logs to this file, rotated by size. Can also use LOG_FILE env var.")

	pf.StringVar(&f.provider, "provider", agent.DefaultProvider, "Model provider: openai, anthropic, googleai or ollama. Can also use LLM_PROVIDER env var.")
	pf.StringVar(&f.model, "model", agent.DefaultModel, "Model name. Can also use LLM_MODEL env var.")
	pf.StringVar(&f.baseURL, "base-url", "", "Model endpoint override (OpenAI-compatible gateway, remote Ollama). Can also use LLM_BASE_URL env var.")
	pf.IntVar(&f.maxSteps, "max-steps", agent.DefaultMaxSteps, "Maximum model calls per question. Can also use AGENT_MAX_STEPS env var.")
	pf.BoolVar(&f.dateContext, "date-context", true, "Append the current date and time to every question. Can also use AGENT_DATE_CONTEXT env var.")

	pf.StringVar(&f.zone, "zone", config.DefaultZone, "IANA time zone dates are read in. Can also use AGENDA_TIME_ZONE env var.")
	pf.StringVar(&f.calendarID, "calendar-id", calendar.DefaultCalendarID, "Google Calendar id. Can also use CALENDAR_ID env var.")
}

// loadConfig builds the configuration of cmd: .env, file, environment and
// then the global flags. The caller applies its own flags and validates.
func loadConfig(cmd *cobra.Command, f *globalFlags) (config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, err
	}

	path := f.configFile
	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	applyGlobalFlags(cmd, f, &cfg)
	return cfg, nil
}

func applyGlobalFlags(cmd *cobra.Command, f *globalFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if changed("log-file") {
		cfg.Logging.File = f.logFile
	}
	if changed("provider") {
		cfg.Agent.Provider = f.provider
	}
	if changed("model") {
		cfg.Agent.Model = f.model
	}
	if changed("base-url") {
		cfg.Agent.BaseURL = f.baseURL
	}
	if changed("max-steps") {
		cfg.Agent.MaxSteps = f.maxSteps
	}
	if changed("date-context") {
		cfg.Agent.DateContext = f.dateContext
	}
	if changed("zone") {
		cfg.Calendar.TimeZone = f.zone
	}
	if changed("calendar-id") {
		cfg.Calendar.ID = f.calendarID
	}
}

// appDeps are the optional observability hooks of an app.
type appDeps struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// app is the wired calendar agent.
type app struct {
	client *calendar.Client
	tools  *common.Registry
	agent  *agent.Agent
}

// newCalendarClient loads the Google credentials and creates the client.
func newCalendarClient(ctx context.Context, cfg config.Config, deps appDeps) (*calendar.Client, error) {
	creds, err := google.Load(ctx, cfg.GoogleSettings(), deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	client, err := calendar.NewClient(ctx, calendar.ClientConfig{
		CalendarID: cfg.Calendar.ID,
		MaxResults: cfg.Calendar.MaxResults,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	}, creds.ClientOptions()...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newApp wires credentials, the calendar client, the resolver, the tool
// registry, the model and the agent.
func newApp(ctx context.Context, cfg config.Config, deps appDeps) (*app, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	client, err := newCalendarClient(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	resolver, err := timeparse.NewResolver(cfg.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to create time resolver: %w", err)
	}

	registry := common.NewRegistry(&common.Instrumentation{
		Metrics: deps.Metrics,
		Audit:   deps.Audit,
		Logger:  deps.Logger,
	})
	if err := calendar_tools.Register(registry, calendar_tools.Config{
		Events:   client,
		Resolver: resolver,
		Metrics:  deps.Metrics,
	}); err != nil {
		return nil, err
	}

	model, err := agent.NewModel(ctx, cfg.ModelSettings())
	if err != nil {
		return nil, err
	}

	agentCfg, err := cfg.AgentSettings()
	if err != nil {
		return nil, err
	}
	a, err := agent.New(agentCfg, model, registry,
		agent.WithMetrics(deps.Metrics),
		agent.WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &app{
		client: client,
		tools:  registry,
		agent:  a,
	}, nil
}
