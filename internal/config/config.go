package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/google"
	"github.com/teemow/agenda/internal/logging"
)

// Defaults applied before any file, environment variable or flag.
const (
	DefaultPort           = 3000
	DefaultRequestTimeout = 60 * time.Second
	DefaultZone           = agent.DefaultZone
	DefaultMetricsAddr    = ":9090"
	DefaultEnvFile        = ".env"
)

// Config is the startup configuration of agenda. It is built once by Load,
// adjusted by command line flags and then passed around by value.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	Calendar CalendarConfig `yaml:"calendar"`
	Google   GoogleConfig   `yaml:"google"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP endpoint and the metrics server.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	ExposeTools    bool          `yaml:"expose_tools"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
	MetricsAddr    string        `yaml:"metrics_addr"`
}

// AgentConfig configures the language model and the agent prompt.
type AgentConfig struct {
	Name         string  `yaml:"name"`
	Instructions string  `yaml:"instructions"`
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"-"`
	Temperature  float64 `yaml:"temperature"`
	MaxSteps     int     `yaml:"max_steps"`
	DateContext  bool    `yaml:"date_context"`
}

// CalendarConfig selects the calendar and the zone dates are resolved in.
type CalendarConfig struct {
	ID         string `yaml:"id"`
	MaxResults int64  `yaml:"max_results"`
	TimeZone   string `yaml:"time_zone"`
}

// GoogleConfig points at the Google credentials. Secrets are only read
// from the environment.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Subject         string `yaml:"subject"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"-"`
	TokenFile       string `yaml:"token_file"`
	RefreshToken    string `yaml:"-"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           DefaultPort,
			RequestTimeout: DefaultRequestTimeout,
			MetricsEnabled: true,
			MetricsAddr:    DefaultMetricsAddr,
		},
		Agent: AgentConfig{
			Name:         agent.DefaultName,
			Instructions: agent.DefaultInstructions,
			Provider:     agent.DefaultProvider,
			Model:        agent.DefaultModel,
			MaxSteps:     agent.DefaultMaxSteps,
			DateContext:  true,
		},
		Calendar: CalendarConfig{
			ID:         calendar.DefaultCalendarID,
			MaxResults: calendar.DefaultMaxResults,
			TimeZone:   DefaultZone,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from the defaults, the optional YAML file
// at path and the environment, in that order. Flags are applied by the
// caller, which then calls Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos in the file surface at startup.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Server.RequestTimeout)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must not be negative, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MetricsEnabled && c.Server.MetricsAddr == "" {
		return errors.New("metrics address is required when the metrics server is enabled")
	}

	if !agent.IsKnownProvider(c.Agent.Provider) {
		return fmt.Errorf("unknown model provider %q, must be one of: %s", c.Agent.Provider, strings.Join(agent.Providers(), ", "))
	}
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Agent.Temperature)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Calendar.MaxResults < 1 {
		return fmt.Errorf("calendar max results must be at least 1, got %d", c.Calendar.MaxResults)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Logging.Format)
	}
	return nil
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

// Addr is the listen address of the question endpoint.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// AgentSettings returns the agent configuration.
func (c Config) AgentSettings() (agent.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return agent.Config{}, err
	}
	return agent.Config{
		Name:         c.Agent.Name,
		Instructions: c.Agent.Instructions,
		Provider:     c.Agent.Provider,
		Model:        c.Agent.Model,
		Temperature:  c.Agent.Temperature,
		MaxSteps:     c.Agent.MaxSteps,
		DateContext:  c.Agent.DateContext,
		Location:     loc,
	}, nil
}

// ModelSettings returns what agent.NewModel needs.
func (c Config) ModelSettings() agent.ModelConfig {
	return agent.ModelConfig{
		Provider: c.Agent.Provider,
		Model:    c.Agent.Model,
		BaseURL:  c.Agent.BaseURL,
		APIKey:   c.Agent.APIKey,
	}
}

// GoogleSettings returns the credential sources for google.Load.
func (c Config) GoogleSettings() google.Config {
	return google.Config{
		CredentialsFile: c.Google.CredentialsFile,
		Subject:         c.Google.Subject,
		ClientID:        c.Google.ClientID,
		ClientSecret:    c.Google.ClientSecret,
		TokenFile:       c.Google.TokenFile,
		RefreshToken:    c.Google.RefreshToken,
	}
}

// LoggingSettings returns the logger configuration.
func (c Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		File:      c.Logging.File,
		Component: "agenda",
	}
}
