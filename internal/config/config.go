// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Runtime modes.
const (
	ModeLambda = "lambda"
	ModeServe  = "serve"
)

// Validator backends.
const (
	ValidatorLambda = "lambda"
	ValidatorHTTP   = "http"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/aws-gateway/config.toml",
	"/var/task/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Mode     string `kong:"short='m',help='Runtime mode: lambda|serve (overrides config).',env='GATEWAY_MODE'"`
	Host     string `kong:"help='Listen host in serve mode (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port in serve mode (overrides config).',env='PORT'"`
	BaseURL  string `kong:"help='Backend base URL (overrides config).',env='OUTBOUND_BASE_URL'"`
	Bucket   string `kong:"help='Upload bucket name (overrides config).',env='UPLOAD_BUCKET'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Runtime   RuntimeConfig   `toml:"runtime"`
	Server    ServerConfig    `toml:"server"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Validator ValidatorConfig `toml:"validator"`
	Storage   StorageConfig   `toml:"storage"`
	Routes    RoutesConfig    `toml:"routes"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// RuntimeConfig selects how the gateway receives requests.
type RuntimeConfig struct {
	Mode string `toml:"mode"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds backend connection settings.
type UpstreamConfig struct {
	BaseURL         string               `toml:"base_url"`
	TimeoutSeconds  int                  `toml:"timeout_seconds"`
	IdleConnections int                  `toml:"idle_connections"`
	CircuitBreaker  CircuitBreakerConfig `toml:"circuit_breaker"`
}

// CircuitBreakerConfig controls the breaker guarding backend calls.
// It trips once Threshold requests have been seen and at least half failed.
type CircuitBreakerConfig struct {
	Enabled        bool `toml:"enabled"`
	Threshold      int  `toml:"threshold"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// ValidatorConfig points at the external signature and token validator.
type ValidatorConfig struct {
	Mode              string `toml:"mode"`
	Region            string `toml:"region"`
	SignatureFunction string `toml:"signature_function"`
	TokenFunction     string `toml:"token_function"`
	BaseURL           string `toml:"base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// StorageConfig describes where uploaded images are written.
type StorageConfig struct {
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Key            string `toml:"key"`
	Endpoint       string `toml:"endpoint"`
	ForcePathStyle bool   `toml:"force_path_style"`
	ContentType    string `toml:"content_type"`
	CacheControl   string `toml:"cache_control"`
}

// RoutesConfig overrides the built-in path tables. Empty lists keep the defaults.
type RoutesConfig struct {
	SignatureFragments []string `toml:"signature_fragments"`
	PublicPaths        []string `toml:"public_paths"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// configSearchPaths in order.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Mode != "" {
		c.Runtime.Mode = cli.Mode
	}
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BaseURL != "" {
		c.Upstream.BaseURL = cli.BaseURL
	}
	if cli.Bucket != "" {
		c.Storage.Bucket = cli.Bucket
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Runtime.Mode) {
	case ModeLambda, ModeServe, "":
		// valid
	default:
		return fmt.Errorf("runtime.mode must be one of: lambda, serve; got %q", c.Runtime.Mode)
	}

	if err := validateHTTPURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
		return err
	}

	switch strings.ToLower(c.Validator.Mode) {
	case ValidatorLambda, "":
		if c.Validator.SignatureFunction == "" || c.Validator.TokenFunction == "" {
			return fmt.Errorf("validator.signature_function and validator.token_function are required in lambda mode")
		}
	case ValidatorHTTP:
		if err := validateHTTPURL("validator.base_url", c.Validator.BaseURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("validator.mode must be one of: lambda, http; got %q", c.Validator.Mode)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Storage.Endpoint != "" {
		if _, err := url.Parse(c.Storage.Endpoint); err != nil {
			return fmt.Errorf("storage.endpoint is not a valid URL: %w", err)
		}
	}

	for _, p := range c.Routes.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("routes.public_paths entries must start with '/'; got %q", p)
		}
	}
	for _, f := range c.Routes.SignatureFragments {
		if f == "" {
			return fmt.Errorf("routes.signature_fragments must not contain empty entries")
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.CircuitBreaker.Threshold < 0 {
		return fmt.Errorf("upstream.circuit_breaker.threshold must be non-negative; got %d", c.Upstream.CircuitBreaker.Threshold)
	}
	if c.Upstream.CircuitBreaker.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.circuit_breaker.timeout_seconds must be non-negative; got %d", c.Upstream.CircuitBreaker.TimeoutSeconds)
	}
	if c.Validator.TimeoutSeconds < 0 {
		return fmt.Errorf("validator.timeout_seconds must be non-negative; got %d", c.Validator.TimeoutSeconds)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/healthz", "/gateway/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https; got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host; got %q", field, raw)
	}
	return nil
}

// setDefaults fills zero-valued fields with defaults.
// For integer fields zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	c.Runtime.Mode = strings.ToLower(c.Runtime.Mode)
	if c.Runtime.Mode == "" {
		c.Runtime.Mode = ModeLambda
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB, the API Gateway payload cap
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 29
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.CircuitBreaker.Threshold == 0 {
		c.Upstream.CircuitBreaker.Threshold = 5
	}
	if c.Upstream.CircuitBreaker.TimeoutSeconds == 0 {
		c.Upstream.CircuitBreaker.TimeoutSeconds = 30
	}
	c.Validator.Mode = strings.ToLower(c.Validator.Mode)
	if c.Validator.Mode == "" {
		c.Validator.Mode = ValidatorLambda
	}
	if c.Validator.TimeoutSeconds == 0 {
		c.Validator.TimeoutSeconds = 10
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "ap-southeast-1"
	}
	if c.Validator.Region == "" {
		c.Validator.Region = c.Storage.Region
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "image.jpg"
	}
	if c.Storage.ContentType == "" {
		c.Storage.ContentType = "image/jpeg"
	}
	if c.Storage.CacheControl == "" {
		c.Storage.CacheControl = "public, max-age=31536000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
