package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the dashboard client.
type Config struct {
	APIBaseURL          string
	AuthURL             string
	AuthAnonKey         string
	AuthRedirectAddr    string
	StateDBPath         string
	RequestTimeout      time.Duration
	PollInterval        time.Duration
	ChatPollInterval    time.Duration
	ReplyPollInterval   time.Duration
	ReplyMaxAttempts    int
	TypingGraceDelay    time.Duration
	LogLevel            string
	DownloadConcurrency int
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultAPIBaseURL = "https://gptsweetheart.com"

	cfg := Config{
		APIBaseURL:          normalizeBaseURL(getEnv("API_BASE_URL", defaultAPIBaseURL), defaultAPIBaseURL),
		AuthRedirectAddr:    getEnv("AUTH_REDIRECT_ADDR", "127.0.0.1:43117"),
		StateDBPath:         getEnv("STATE_DB_PATH", ""),
		RequestTimeout:      time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 30)),
		PollInterval:        time.Second * time.Duration(getInt("POLL_INTERVAL_SECONDS", 5)),
		ChatPollInterval:    time.Second * time.Duration(getInt("CHAT_POLL_INTERVAL_SECONDS", 5)),
		ReplyPollInterval:   time.Second * time.Duration(getInt("REPLY_POLL_INTERVAL_SECONDS", 2)),
		ReplyMaxAttempts:    getInt("REPLY_MAX_ATTEMPTS", 30),
		TypingGraceDelay:    time.Second * time.Duration(getInt("TYPING_GRACE_SECONDS", 1)),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DownloadConcurrency: getInt("DOWNLOAD_CONCURRENCY", 4),
	}

	cfg.AuthURL = strings.TrimRight(os.Getenv("AUTH_URL"), "/")
	cfg.AuthAnonKey = os.Getenv("AUTH_ANON_KEY")

	if cfg.StateDBPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.StateDBPath = filepath.Join(dir, "sweetdash", "state.db")
	}

	var missing []string
	if cfg.AuthURL == "" {
		missing = append(missing, "AUTH_URL")
	}
	if cfg.AuthAnonKey == "" {
		missing = append(missing, "AUTH_ANON_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.ReplyMaxAttempts <= 0 {
		cfg.ReplyMaxAttempts = 30
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 4
	}

	return cfg, nil
}

// normalizeBaseURL keeps the API base URL usable even when the env var carries
// a bare host or a trailing slash.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running without an env file is fine for a client install; required
	// variables are checked by the caller of loadEnvFile.
	return nil
}
