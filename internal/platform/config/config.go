package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultEnvironment     = "local"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultStorageBackend  = StorageBackendMemory
	defaultKeyPrefix       = "storefront"
	defaultRedisAddr       = "localhost:6379"
	defaultCollection      = "storefront_sessions"
	defaultCookieName      = "clickora_session"
	defaultTokenTTL        = 24 * time.Hour
	defaultSessionIdle     = 30 * time.Minute
	defaultSweepInterval   = time.Minute
	defaultAuthDelay       = time.Second
	defaultOrderDelay      = 2 * time.Second
	defaultPageSize        = 12
	defaultKafkaTopic      = "storefront.notifications"
)

// Storage backends accepted by Storage.Backend.
const (
	StorageBackendMemory    = "memory"
	StorageBackendRedis     = "redis"
	StorageBackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Storage       StorageConfig
	Redis         RedisConfig
	Firestore     FirestoreConfig
	Session       SessionConfig
	Notifications NotificationConfig
	Simulation    SimulationConfig
	Catalog       CatalogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig selects the zap level.
type LoggingConfig struct {
	Level string
}

// StorageConfig selects the key/value backend that replaces on-device storage.
type StorageConfig struct {
	Backend   string
	KeyPrefix string
}

// RedisConfig stores connection parameters for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FirestoreConfig stores database parameters for the firestore backend.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
}

// SessionConfig controls session cookies, bearer tokens and in-memory session eviction.
type SessionConfig struct {
	CookieName    string
	CookieSecure  bool
	HashKey       string
	BlockKey      string
	TokenSecret   string
	TokenTTL      time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// NotificationConfig lists optional fan-out targets for shopper notifications.
type NotificationConfig struct {
	PubSubProjectID string
	PubSubTopic     string
	KafkaBrokers    []string
	KafkaTopic      string
}

// SimulationConfig holds the artificial latencies standing in for remote calls.
type SimulationConfig struct {
	AuthDelay  time.Duration
	OrderDelay time.Duration
}

// CatalogConfig controls the product source and listing page size.
type CatalogConfig struct {
	ProductsFile string
	PageSize     int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
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

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map win over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Lookup returns a single effective value using the same precedence as Load
// (dotenv < OS env < explicit map). It is used to bootstrap the secret fetcher.
func Lookup(key string, opts ...Option) (string, bool, error) {
	options := newLoaderOptions(opts)
	lookup, err := options.lookupFunc()
	if err != nil {
		return "", false, err
	}
	value, ok := lookup(key)
	return value, ok, nil
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	lookup, err := options.lookupFunc()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:     durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Logging: LoggingConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(stringWithDefault(lookup, "STOREFRONT_STORAGE_BACKEND", defaultStorageBackend)),
			KeyPrefix: stringWithDefault(lookup, "STOREFRONT_STORAGE_KEY_PREFIX", defaultKeyPrefix),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "STOREFRONT_REDIS_ADDR", defaultRedisAddr),
			Password: stringWithDefault(lookup, "STOREFRONT_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "STOREFRONT_REDIS_DB", 0),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "STOREFRONT_FIRESTORE_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			EmulatorHost: stringWithDefault(lookup, "STOREFRONT_FIRESTORE_EMULATOR_HOST", ""),
			Collection:   stringWithDefault(lookup, "STOREFRONT_FIRESTORE_COLLECTION", defaultCollection),
		},
		Session: SessionConfig{
			CookieName:    stringWithDefault(lookup, "STOREFRONT_SESSION_COOKIE_NAME", defaultCookieName),
			CookieSecure:  boolWithDefault(lookup, "STOREFRONT_SESSION_COOKIE_SECURE", false),
			HashKey:       stringWithDefault(lookup, "STOREFRONT_SESSION_HASH_KEY", ""),
			BlockKey:      stringWithDefault(lookup, "STOREFRONT_SESSION_BLOCK_KEY", ""),
			TokenSecret:   stringWithDefault(lookup, "STOREFRONT_SESSION_TOKEN_SECRET", ""),
			TokenTTL:      durationWithDefault(lookup, "STOREFRONT_SESSION_TOKEN_TTL", defaultTokenTTL),
			IdleTimeout:   durationWithDefault(lookup, "STOREFRONT_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
			SweepInterval: durationWithDefault(lookup, "STOREFRONT_SESSION_SWEEP_INTERVAL", defaultSweepInterval),
		},
		Notifications: NotificationConfig{
			PubSubProjectID: stringWithDefault(lookup, "STOREFRONT_PUBSUB_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			PubSubTopic:     stringWithDefault(lookup, "STOREFRONT_PUBSUB_TOPIC", ""),
			KafkaBrokers:    csvWithDefault(lookup, "STOREFRONT_KAFKA_BROKERS"),
			KafkaTopic:      stringWithDefault(lookup, "STOREFRONT_KAFKA_TOPIC", defaultKafkaTopic),
		},
		Simulation: SimulationConfig{
			AuthDelay:  durationWithDefault(lookup, "STOREFRONT_SIMULATED_AUTH_DELAY", defaultAuthDelay),
			OrderDelay: durationWithDefault(lookup, "STOREFRONT_SIMULATED_ORDER_DELAY", defaultOrderDelay),
		},
		Catalog: CatalogConfig{
			ProductsFile: stringWithDefault(lookup, "STOREFRONT_CATALOG_PRODUCTS_FILE", ""),
			PageSize:     intWithDefault(lookup, "STOREFRONT_CATALOG_PAGE_SIZE", defaultPageSize),
		},
	}

	secretFields := []*string{
		&cfg.Redis.Password,
		&cfg.Session.HashKey,
		&cfg.Session.BlockKey,
		&cfg.Session.TokenSecret,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsLocal reports whether the configuration targets a developer machine.
func (c Config) IsLocal() bool {
	return c.Environment == "" || c.Environment == defaultEnvironment
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

func (o loaderOptions) lookupFunc() (func(string) (string, bool), error) {
	dotEnvValues, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	switch cfg.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			invalid = append(invalid, "Redis.Addr")
		}
	case StorageBackendFirestore:
		if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Storage.Backend")
	}
	if !cfg.IsLocal() {
		if len(cfg.Session.HashKey) < 32 {
			invalid = append(invalid, "Session.HashKey")
		}
		if len(cfg.Session.TokenSecret) < 32 {
			invalid = append(invalid, "Session.TokenSecret")
		}
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		invalid = append(invalid, "Session.BlockKey")
	}
	if cfg.Session.TokenTTL <= 0 {
		invalid = append(invalid, "Session.TokenTTL")
	}
	if cfg.Session.IdleTimeout <= 0 {
		invalid = append(invalid, "Session.IdleTimeout")
	}
	if cfg.Simulation.AuthDelay < 0 {
		invalid = append(invalid, "Simulation.AuthDelay")
	}
	if cfg.Simulation.OrderDelay < 0 {
		invalid = append(invalid, "Simulation.OrderDelay")
	}
	if cfg.Catalog.PageSize <= 0 {
		invalid = append(invalid, "Catalog.PageSize")
	}
	if len(cfg.Notifications.KafkaBrokers) > 0 && strings.TrimSpace(cfg.Notifications.KafkaTopic) == "" {
		invalid = append(invalid, "Notifications.KafkaTopic")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
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
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
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

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
