package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the SDK.
type Config struct {
	AppName        string
	AppEnv         string
	APIBaseURL     string
	WebsocketURL   string
	NATSURL        string
	NATSSubject    string
	AccessToken    string
	HTTPTimeout    time.Duration
	SearchDebounce time.Duration
	SessionFile    string
	MetricsAddr    string
}

// Load reads configuration values from environment variables and an
// optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ASTERION")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Asterion Client")
	v.SetDefault("app.env", "development")
	v.SetDefault("nats.subject", "asterion.events")
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("search.debounce", "300ms")
	v.SetDefault("metrics.addr", "")

	timeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid http timeout: %w", err)
	}

	debounce, err := time.ParseDuration(v.GetString("search.debounce"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid search debounce: %w", err)
	}

	sessionFile := v.GetString("session.file")
	if sessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		sessionFile = filepath.Join(home, ".asterion", "session.json")
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		APIBaseURL:     v.GetString("api.base_url"),
		WebsocketURL:   v.GetString("ws.url"),
		NATSURL:        v.GetString("nats.url"),
		NATSSubject:    v.GetString("nats.subject"),
		AccessToken:    v.GetString("access.token"),
		HTTPTimeout:    timeout,
		SearchDebounce: debounce,
		SessionFile:    sessionFile,
		MetricsAddr:    v.GetString("metrics.addr"),
	}

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("api base url must be provided")
	}

	if cfg.AccessToken == "" {
		return Config{}, fmt.Errorf("access token must be provided")
	}

	return cfg, nil
}
