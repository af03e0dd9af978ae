package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBaseURL   = "https://www.reddit.com"
	defaultOAuthBaseURL = "https://oauth.reddit.com"
	defaultAuthBaseURL  = "https://www.reddit.com/api/v1"
	defaultClientID     = "nRmCfHkYTP8eVw"
	defaultSubreddit    = "front"
)

// Config holds the runtime settings for the browser. Values are resolved in
// priority order: built-in defaults, then environment, then the optional
// YAML config file, then command-line flags (applied by the caller).
type Config struct {
	Subreddit    string
	Link         string
	APIBaseURL   string
	OAuthBaseURL string
	AuthBaseURL  string
	ClientID     string
	UserAgent    string
	TokenPath    string
	DBPath       string
	Unicode      bool
	Persistent   bool
}

// fileConfig mirrors the YAML file with pointer fields so absent keys
// don't clobber already-resolved values.
type fileConfig struct {
	Subreddit  *string `yaml:"subreddit"`
	ClientID   *string `yaml:"client_id"`
	ASCII      *bool   `yaml:"ascii"`
	Persistent *bool   `yaml:"persistent"`
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Subreddit:    envOr("REDDTERM_SUBREDDIT", defaultSubreddit),
		APIBaseURL:   envOr("REDDTERM_API_BASE_URL", defaultAPIBaseURL),
		OAuthBaseURL: envOr("REDDTERM_OAUTH_BASE_URL", defaultOAuthBaseURL),
		AuthBaseURL:  envOr("REDDTERM_AUTH_BASE_URL", defaultAuthBaseURL),
		ClientID:     envOr("REDDTERM_CLIENT_ID", defaultClientID),
		UserAgent:    envOr("REDDTERM_USER_AGENT", "reddterm (terminal reddit browser)"),
		TokenPath:    os.Getenv("REDDTERM_TOKEN_PATH"),
		DBPath:       os.Getenv("REDDTERM_DB_PATH"),
		Unicode:      true,
		Persistent:   true,
	}

	if cfg.TokenPath == "" || cfg.DBPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve config directory: %w", err)
		}
		if cfg.TokenPath == "" {
			cfg.TokenPath = filepath.Join(base, "reddterm", "refresh_token")
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(base, "reddterm", "history.db")
		}
	}
	return cfg, nil
}

// ApplyFile overlays settings from a YAML config file. A missing file is
// not an error.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Subreddit != nil && *fc.Subreddit != "" {
		c.Subreddit = *fc.Subreddit
	}
	if fc.ClientID != nil && *fc.ClientID != "" {
		c.ClientID = *fc.ClientID
	}
	if fc.ASCII != nil {
		c.Unicode = !*fc.ASCII
	}
	if fc.Persistent != nil {
		c.Persistent = *fc.Persistent
	}
	return nil
}

// DefaultFilePath is where ApplyFile looks when the user doesn't name a
// config file explicitly.
func DefaultFilePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "reddterm", "config.yaml"), nil
}

func (c Config) Validate() error {
	if c.Subreddit == "" {
		return errors.New("Subreddit is required")
	}
	if c.ClientID == "" {
		return errors.New("ClientID is required")
	}
	if c.TokenPath == "" {
		return errors.New("TokenPath is required")
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	for name, u := range map[string]string{
		"APIBaseURL":   c.APIBaseURL,
		"OAuthBaseURL": c.OAuthBaseURL,
		"AuthBaseURL":  c.AuthBaseURL,
	} {
		if u == "" {
			return fmt.Errorf("%s is required", name)
		}
		if strings.HasSuffix(u, "/") {
			return fmt.Errorf("%s must not end with '/': %s", name, u)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
