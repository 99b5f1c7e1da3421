package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Credential sources, in the order they are tried.
const (
	SourceServiceAccount = "service_account"
	SourceOAuthToken     = "oauth_token"
	SourceDefault        = "application_default"
)

// Config says where the Google credentials come from. Agenda never runs a
// consent flow; tokens are obtained out of band.
type Config struct {
	// CredentialsFile is either a service account key or an OAuth client
	// secret ("installed"/"web") downloaded from the Cloud console.
	CredentialsFile string

	// Subject is the user a service account impersonates (domain-wide delegation).
	Subject string

	// ClientID and ClientSecret replace the client secret file.
	ClientID     string
	ClientSecret string

	// TokenFile holds an oauth2.Token as JSON.
	TokenFile string

	// RefreshToken replaces TokenFile.
	RefreshToken string
}

// Credentials is the outcome of Load.
type Credentials struct {
	Source      string
	TokenSource oauth2.TokenSource
}

// ClientOptions returns the API client options carrying the credentials.
func (c *Credentials) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithTokenSource(c.TokenSource)}
}

// Load resolves cfg into a token source. A service account key wins, then
// an OAuth client with a stored token, then Application Default Credentials.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*Credentials, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var keyData []byte
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("credentials file %s not found", cfg.CredentialsFile)
			}
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		keyData = data
	}

	if keyData != nil && credentialType(keyData) == SourceServiceAccount {
		jwtConfig, err := google.JWTConfigFromJSON(keyData, CalendarScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account key: %w", err)
		}
		jwtConfig.Subject = cfg.Subject
		logger.Info("using Google service account credentials",
			slog.String("client_email", jwtConfig.Email),
			slog.Bool("impersonating", cfg.Subject != ""))
		return &Credentials{Source: SourceServiceAccount, TokenSource: jwtConfig.TokenSource(ctx)}, nil
	}

	if keyData != nil || cfg.ClientID != "" {
		conf, err := oauthConfig(cfg, keyData)
		if err != nil {
			return nil, err
		}
		token, err := loadToken(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using Google OAuth client credentials", slog.String("client_id", conf.ClientID))
		return &Credentials{Source: SourceOAuthToken, TokenSource: conf.TokenSource(ctx, token)}, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, CalendarScopes...)
	if err != nil {
		return nil, fmt.Errorf("no Google credentials configured and no application default credentials found: %w", err)
	}
	logger.Info("using Google application default credentials")
	return &Credentials{Source: SourceDefault, TokenSource: creds.TokenSource}, nil
}

// credentialType reads the "type" discriminator of a Google JSON key.
func credentialType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Type
}

// oauthConfig builds the OAuth client config. Explicit client id and
// secret take precedence over the client secret file.
func oauthConfig(cfg Config, keyData []byte) (*oauth2.Config, error) {
	if cfg.ClientID != "" {
		if cfg.ClientSecret == "" {
			return nil, fmt.Errorf("google client secret is required when a client id is set")
		}
		return &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       CalendarScopes,
		}, nil
	}

	conf, err := google.ConfigFromJSON(keyData, CalendarScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file: %w", err)
	}
	return conf, nil
}

func loadToken(cfg Config) (*oauth2.Token, error) {
	if cfg.RefreshToken != "" {
		return &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}, nil
	}
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("an OAuth client is configured but neither a token file nor a refresh token was given")
	}
	return tokenFromFile(cfg.TokenFile)
}

// tokenFromFile reads a token stored as JSON.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("token file %s holds neither an access nor a refresh token", path)
	}
	return token, nil
}
