package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultSessionSecret lets a fresh checkout start; serve warns when it is used.
const defaultSessionSecret = "change_me"

type Config struct {
	Port               string
	AnalysisServiceURL string
	RemoteTimeout      time.Duration
	SessionSecret      string
	SessionTTL         time.Duration
	RunStore           string // none | mongo | sqlite
	MongoURI           string
	MongoDB            string
	SQLitePath         string
	CORSOrigins        []string
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	LogLevel           string
	LogFormat          string
}

// loadConfig reads an optional .env file, then the environment.
func loadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var errs []error
	cfg := Config{
		Port:               getenv("PORT", "8080"),
		AnalysisServiceURL: getenv("ANALYSIS_SERVICE_URL", "http://localhost:5000/api"),
		SessionSecret:      getenv("SESSION_SECRET", defaultSessionSecret),
		RunStore:           strings.ToLower(getenv("RUN_STORE", "none")),
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getenv("MONGO_DB", "fieldrisk"),
		SQLitePath:         getenv("SQLITE_PATH", "./data/runs.db"),
		CORSOrigins:        splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:3000")),
		TracingExporter:    strings.ToLower(getenv("TRACING_EXPORTER", "stdout")),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", ""),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.RemoteTimeout, err = getenvDuration("REMOTE_TIMEOUT", 25*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 2*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.TracingEnabled, err = getenvBool("TRACING_ENABLED", false); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid key at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, errors.New("REMOTE_TIMEOUT must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	switch c.RunStore {
	case "none", "":
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when RUN_STORE=mongo"))
		}
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when RUN_STORE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("RUN_STORE must be none, mongo or sqlite, got %q", c.RunStore))
	}
	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER must be stdout or otlp, got %q", c.TracingExporter))
	}
	return errors.Join(errs...)
}

// DefaultSecret reports whether session tokens are signed with the
// built-in secret.
func (c Config) DefaultSecret() bool { return c.SessionSecret == defaultSessionSecret }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func getenvBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
