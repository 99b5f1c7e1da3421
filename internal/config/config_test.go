package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/agent"
)

// clearEnv unsets every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvPort, EnvRequestTimeout, EnvCORSOrigins, EnvExposeTools, EnvMaxBodyBytes, EnvMetricsEnabled, EnvMetricsAddr,
		EnvAgentName, EnvAgentInstructions, EnvProvider, EnvModel, EnvBaseURL, EnvAPIKey, EnvTemperature, EnvMaxSteps, EnvDateContext,
		EnvCalendarID, EnvCalendarMaxResults, EnvTimeZone,
		EnvGoogleCredentialsFile, EnvGoogleSubject, EnvGoogleClientID, EnvGoogleClientSecret, EnvGoogleTokenFile, EnvGoogleRefreshToken,
		EnvLogLevel, EnvLogFormat, EnvLogFile,
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "America/Sao_Paulo", cfg.Calendar.TimeZone)
	assert.Equal(t, "primary", cfg.Calendar.ID)
	assert.Equal(t, agent.DefaultProvider, cfg.Agent.Provider)
	assert.True(t, cfg.Agent.DateContext)
	assert.True(t, cfg.Server.MetricsEnabled)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "agenda.yaml", `
server:
  port: 8080
  request_timeout: 90s
  cors_origins: [https://agenda.example.com]
  expose_tools: true
agent:
  instructions: Responda em uma frase.
  provider: anthropic
  model: claude-test
  max_steps: 4
  date_context: false
calendar:
  id: equipe@example.com
  time_zone: America/Recife
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://agenda.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.ExposeTools)
	assert.Equal(t, "Responda em uma frase.", cfg.Agent.Instructions)
	assert.Equal(t, agent.ProviderAnthropic, cfg.Agent.Provider)
	assert.Equal(t, "claude-test", cfg.Agent.Model)
	assert.Equal(t, 4, cfg.Agent.MaxSteps)
	assert.False(t, cfg.Agent.DateContext)
	assert.Equal(t, "equipe@example.com", cfg.Calendar.ID)
	assert.Equal(t, "America/Recife", cfg.Calendar.TimeZone)
	assert.Equal(t, "json", cfg.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, agent.DefaultName, cfg.Agent.Name)
	assert.Equal(t, int64(50), cfg.Calendar.MaxResults)
}

func TestLoad_YAMLErrors(t *testing.T) {
	clearEnv(t)

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeFile(t, "agenda.yaml", "server:\n  prot: 8080\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "agenda.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "agenda.yaml", "server:\n  port: 8080\nagent:\n  model: from-file\n")

	t.Setenv(EnvPort, "4000")
	t.Setenv(EnvRequestTimeout, "15")
	t.Setenv(EnvCORSOrigins, "https://a.example, https://b.example,")
	t.Setenv(EnvModel, "from-env")
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvDateContext, "false")
	t.Setenv(EnvTimeZone, "UTC")
	t.Setenv(EnvGoogleTokenFile, "/secrets/token.json")
	t.Setenv(EnvGoogleClientSecret, "shh")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "from-env", cfg.Agent.Model)
	assert.Equal(t, "sk-test", cfg.ModelSettings().APIKey)
	assert.False(t, cfg.Agent.DateContext)
	assert.Equal(t, "/secrets/token.json", cfg.GoogleSettings().TokenFile)
	assert.Equal(t, "shh", cfg.GoogleSettings().ClientSecret)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvPort, "três mil"},
		{EnvRequestTimeout, "soon"},
		{EnvExposeTools, "talvez"},
		{EnvTemperature, "quente"},
		{EnvCalendarMaxResults, "many"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"negative body limit", func(c *Config) { c.Server.MaxBodyBytes = -1 }},
		{"metrics without address", func(c *Config) { c.Server.MetricsAddr = "" }},
		{"unknown provider", func(c *Config) { c.Agent.Provider = "skynet" }},
		{"zero max steps", func(c *Config) { c.Agent.MaxSteps = 0 }},
		{"temperature out of range", func(c *Config) { c.Agent.Temperature = 3 }},
		{"bad zone", func(c *Config) { c.Calendar.TimeZone = "America/Atlantida" }},
		{"zero max results", func(c *Config) { c.Calendar.MaxResults = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("metrics disabled without address", func(t *testing.T) {
		cfg := Default()
		cfg.Server.MetricsEnabled = false
		cfg.Server.MetricsAddr = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestAgentSettings(t *testing.T) {
	cfg := Default()
	cfg.Agent.Temperature = 0.2
	cfg.Calendar.TimeZone = "America/Manaus"

	ac, err := cfg.AgentSettings()
	require.NoError(t, err)
	assert.Equal(t, agent.DefaultInstructions, ac.Instructions)
	assert.Equal(t, 0.2, ac.Temperature)
	assert.True(t, ac.DateContext)
	require.NotNil(t, ac.Location)
	assert.Equal(t, "America/Manaus", ac.Location.String())

	cfg.Calendar.TimeZone = "Nowhere/City"
	_, err = cfg.AgentSettings()
	assert.Error(t, err)
}

func TestLoggingSettings(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = "/var/log/agenda.log"

	lc := cfg.LoggingSettings()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "/var/log/agenda.log", lc.File)
	assert.Equal(t, "agenda", lc.Component)
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("does not override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvModel, "already-set")
		// clearEnv leaves CALENDAR_ID set to "", which godotenv would keep.
		require.NoError(t, os.Unsetenv(EnvCalendarID))
		path := writeFile(t, ".env", "LLM_MODEL=from-dotenv\nCALENDAR_ID=dotenv@example.com\n")

		require.NoError(t, LoadDotEnv(path))

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "already-set", cfg.Agent.Model)
		assert.Equal(t, "dotenv@example.com", cfg.Calendar.ID)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"60", time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single value", input: "https://a.example", expected: []string{"https://a.example"}},
		{name: "values with spaces around comma", input: "https://a.example, https://b.example", expected: []string{"https://a.example", "https://b.example"}},
		{name: "trailing comma", input: "https://a.example,", expected: []string{"https://a.example"}},
		{name: "multiple consecutive commas", input: "a,,b", expected: []string{"a", "b"}},
		{name: "only commas and spaces", input: ",  , , ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}
