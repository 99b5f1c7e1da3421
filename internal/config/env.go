package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by Load.
const (
	EnvPort           = "PORT"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvCORSOrigins    = "CORS_ORIGINS"
	EnvExposeTools    = "EXPOSE_TOOLS"
	EnvMaxBodyBytes   = "MAX_BODY_BYTES"
	EnvMetricsEnabled = "METRICS_ENABLED"
	EnvMetricsAddr    = "METRICS_ADDR"

	EnvAgentName         = "AGENT_NAME"
	EnvAgentInstructions = "AGENT_INSTRUCTIONS"
	EnvProvider          = "LLM_PROVIDER"
	EnvModel             = "LLM_MODEL"
	EnvBaseURL           = "LLM_BASE_URL"
	EnvAPIKey            = "LLM_API_KEY"
	EnvTemperature       = "LLM_TEMPERATURE"
	EnvMaxSteps          = "AGENT_MAX_STEPS"
	EnvDateContext       = "AGENT_DATE_CONTEXT"

	EnvCalendarID         = "CALENDAR_ID"
	EnvCalendarMaxResults = "CALENDAR_MAX_RESULTS"
	EnvTimeZone           = "AGENDA_TIME_ZONE"

	EnvGoogleCredentialsFile = "GOOGLE_CREDENTIALS_FILE"
	EnvGoogleSubject         = "GOOGLE_SUBJECT"
	EnvGoogleClientID        = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvGoogleTokenFile       = "GOOGLE_TOKEN_FILE"
	EnvGoogleRefreshToken    = "GOOGLE_REFRESH_TOKEN"

	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogFile   = "LOG_FILE"
)

type lookupFunc func(key string) (string, bool)

// envReader applies environment values onto a Config and remembers every
// malformed one.
type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) string(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := r.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be an integer", key, v))
			return
		}
		*dst = n
	}
}

func (r *envReader) int64(key string, dst *int64) {
	if v, ok := r.value(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be an integer", key, v))
			return
		}
		*dst = n
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be a number", key, v))
			return
		}
		*dst = f
	}
}

func (r *envReader) bool(key string, dst *bool) {
	if v, ok := r.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid %s %q: must be true or false", key, v))
			return
		}
		*dst = b
	}
}

// duration accepts Go durations ("90s", "2m") and plain seconds ("60").
func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.value(key); ok {
		d, err := ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
			return
		}
		*dst = d
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := r.value(key); ok {
		*dst = SplitList(v)
	}
}

func applyEnv(cfg *Config, lookup lookupFunc) error {
	r := &envReader{lookup: lookup}

	r.int(EnvPort, &cfg.Server.Port)
	r.duration(EnvRequestTimeout, &cfg.Server.RequestTimeout)
	r.list(EnvCORSOrigins, &cfg.Server.CORSOrigins)
	r.bool(EnvExposeTools, &cfg.Server.ExposeTools)
	r.int64(EnvMaxBodyBytes, &cfg.Server.MaxBodyBytes)
	r.bool(EnvMetricsEnabled, &cfg.Server.MetricsEnabled)
	r.string(EnvMetricsAddr, &cfg.Server.MetricsAddr)

	r.string(EnvAgentName, &cfg.Agent.Name)
	r.string(EnvAgentInstructions, &cfg.Agent.Instructions)
	r.string(EnvProvider, &cfg.Agent.Provider)
	r.string(EnvModel, &cfg.Agent.Model)
	r.string(EnvBaseURL, &cfg.Agent.BaseURL)
	r.string(EnvAPIKey, &cfg.Agent.APIKey)
	r.float(EnvTemperature, &cfg.Agent.Temperature)
	r.int(EnvMaxSteps, &cfg.Agent.MaxSteps)
	r.bool(EnvDateContext, &cfg.Agent.DateContext)

	r.string(EnvCalendarID, &cfg.Calendar.ID)
	r.int64(EnvCalendarMaxResults, &cfg.Calendar.MaxResults)
	r.string(EnvTimeZone, &cfg.Calendar.TimeZone)

	r.string(EnvGoogleCredentialsFile, &cfg.Google.CredentialsFile)
	r.string(EnvGoogleSubject, &cfg.Google.Subject)
	r.string(EnvGoogleClientID, &cfg.Google.ClientID)
	r.string(EnvGoogleClientSecret, &cfg.Google.ClientSecret)
	r.string(EnvGoogleTokenFile, &cfg.Google.TokenFile)
	r.string(EnvGoogleRefreshToken, &cfg.Google.RefreshToken)

	r.string(EnvLogLevel, &cfg.Logging.Level)
	r.string(EnvLogFormat, &cfg.Logging.Format)
	r.string(EnvLogFile, &cfg.Logging.File)

	return errors.Join(r.errs...)
}

// ParseDuration parses a Go duration or a whole number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("must be a duration such as 60s or a number of seconds")
	}
	return d, nil
}

// SplitList splits a comma separated list, trimming spaces and dropping
// empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
