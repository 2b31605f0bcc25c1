package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile            = ".env"
	defaultAddress            = ":8080"
	defaultBasePath           = "/admin"
	defaultEnvironment        = "local"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultTiersBackend       = BackendStatic
	defaultTiersTimeout       = 10 * time.Second
	defaultTiersCollection    = "delivery_tier_settings"
	defaultSessionCookieName  = "delivery_admin_session"
	defaultSessionIdleTimeout = 30 * time.Minute
)

// Tier persistence backends.
const (
	BackendStatic    = "static"
	BackendHTTP      = "http"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Postgres  PostgresConfig
	Tiers     TiersConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Address         string
	BasePath        string
	Environment     string
	// SignInURL receives unauthenticated browsers; empty answers 401 instead.
	SignInURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SessionConfig holds the signed cookie settings.
type SessionConfig struct {
	CookieName   string
	HashKey      string
	BlockKey     string
	CookieSecure bool
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PostgresConfig stores the connection string for the row store.
type PostgresConfig struct {
	URL         string
	AutoMigrate bool
}

// TiersConfig selects where tier definitions are persisted.
type TiersConfig struct {
	Backend       string
	APIBaseURL    string
	RemoteTimeout time.Duration
	Collection    string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides
// and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultAddress),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			Environment:     strings.ToLower(stringWithDefault(lookup, "ADMIN_ENVIRONMENT", defaultEnvironment)),
			SignInURL:       stringWithDefault(lookup, "ADMIN_SIGN_IN_URL", ""),
			ReadTimeout:     durationWithDefault(lookup, "ADMIN_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "ADMIN_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "ADMIN_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Session: SessionConfig{
			CookieName:   stringWithDefault(lookup, "ADMIN_SESSION_COOKIE_NAME", defaultSessionCookieName),
			HashKey:      stringWithDefault(lookup, "ADMIN_SESSION_HASH_KEY", ""),
			BlockKey:     stringWithDefault(lookup, "ADMIN_SESSION_BLOCK_KEY", ""),
			CookieSecure: boolWithDefault(lookup, "ADMIN_SESSION_COOKIE_SECURE", false),
			IdleTimeout:  durationWithDefault(lookup, "ADMIN_SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Postgres: PostgresConfig{
			URL:         stringWithDefault(lookup, "DATABASE_URL", ""),
			AutoMigrate: boolWithDefault(lookup, "TIERS_AUTO_MIGRATE", false),
		},
		Tiers: TiersConfig{
			Backend:       strings.ToLower(stringWithDefault(lookup, "TIERS_BACKEND", defaultTiersBackend)),
			APIBaseURL:    stringWithDefault(lookup, "TIERS_API_BASE_URL", ""),
			RemoteTimeout: durationWithDefault(lookup, "TIERS_REMOTE_TIMEOUT", defaultTiersTimeout),
			Collection:    stringWithDefault(lookup, "TIERS_FIRESTORE_COLLECTION", defaultTiersCollection),
		},
	}

	// Firestore project defaults to Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		missing = append(missing, "Server.Address")
	}
	if cfg.Tiers.RemoteTimeout <= 0 {
		missing = append(missing, "Tiers.RemoteTimeout")
	}
	switch cfg.Tiers.Backend {
	case BackendStatic:
	case BackendHTTP:
		if cfg.Tiers.APIBaseURL == "" {
			missing = append(missing, "Tiers.APIBaseURL")
		}
	case BackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Tiers.Collection) == "" {
			missing = append(missing, "Tiers.Collection")
		}
	case BackendPostgres:
		if cfg.Postgres.URL == "" {
			missing = append(missing, "Postgres.URL")
		}
	default:
		missing = append(missing, "Tiers.Backend")
	}
	if (cfg.Session.HashKey == "") != (cfg.Session.BlockKey == "") {
		missing = append(missing, "Session.HashKey/BlockKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
