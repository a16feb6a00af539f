package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultBaseURL is the hosted Green Haven assistant API.
const DefaultBaseURL = "https://green-haven-706451831123.us-central1.run.app/api"

// Config aggregates every setting the client needs.
type Config struct {
	Server    ServerConfig
	Assistant AssistantConfig
	UI        UIConfig
	Log       LogConfig
}

// ServerConfig describes the local web UI listener.
type ServerConfig struct {
	Addr string
}

// AssistantConfig describes the remote assistant service.
type AssistantConfig struct {
	BaseURL        string        `env:"ASSISTANT_BASE_URL" envDefault:"https://green-haven-706451831123.us-central1.run.app/api"`
	OrganizationID string        `env:"ASSISTANT_ORGANIZATION_ID" envDefault:"green"`
	Channel        string        `env:"ASSISTANT_CHANNEL" envDefault:"web"`
	Timeout        time.Duration `env:"ASSISTANT_TIMEOUT" envDefault:"0s"`
}

// UIConfig controls presentation details shared by the web and terminal views.
type UIConfig struct {
	Title        string        `env:"UI_TITLE" envDefault:"Green Haven AI Assistant"`
	TypingDelay  time.Duration `env:"UI_TYPING_DELAY" envDefault:"15ms"`
	CookieSecure bool          `env:"UI_COOKIE_SECURE" envDefault:"false"`
	SessionIdle  time.Duration `env:"UI_SESSION_IDLE" envDefault:"24h"`
}

// LogConfig selects the log level and output format ("console" or "json").
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	var assistant AssistantConfig
	if err := env.Parse(&assistant); err != nil {
		return nil, fmt.Errorf("parse assistant config: %w", err)
	}
	assistant.BaseURL = strings.TrimRight(strings.TrimSpace(assistant.BaseURL), "/")

	var ui UIConfig
	if err := env.Parse(&ui); err != nil {
		return nil, fmt.Errorf("parse ui config: %w", err)
	}

	var logCfg LogConfig
	if err := env.Parse(&logCfg); err != nil {
		return nil, fmt.Errorf("parse log config: %w", err)
	}

	cfg := &Config{Server: server, Assistant: assistant, UI: ui, Log: logCfg}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that required fields carry usable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Assistant.BaseURL == "" {
		return fmt.Errorf("ASSISTANT_BASE_URL cannot be empty")
	}
	u, err := url.Parse(c.Assistant.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ASSISTANT_BASE_URL must be an absolute URL, got %q", c.Assistant.BaseURL)
	}
	if c.Assistant.OrganizationID == "" {
		return fmt.Errorf("ASSISTANT_ORGANIZATION_ID cannot be empty")
	}
	if c.Assistant.Timeout < 0 {
		return fmt.Errorf("ASSISTANT_TIMEOUT cannot be negative")
	}
	if c.UI.TypingDelay < 0 {
		return fmt.Errorf("UI_TYPING_DELAY cannot be negative")
	}
	if c.UI.SessionIdle <= 0 {
		return fmt.Errorf("UI_SESSION_IDLE must be positive")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// loadServerConfig resolves the listen address from PORT.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as-is.
		return ServerConfig{Addr: port}, nil
	}

	return ServerConfig{Addr: ":" + port}, nil
}
