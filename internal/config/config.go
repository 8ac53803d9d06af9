package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "NETDASH"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8501"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"45s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8501"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	SessionSecret  string          `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	SecureCookies  bool            `yaml:"secure_cookies" envconfig:"SECURE_COOKIES" default:"false"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/netdash.log"`
}

// SessionConfig controls the lifetime of per-browser dashboard sessions
type SessionConfig struct {
	CookieName      string        `yaml:"cookie_name" envconfig:"COOKIE_NAME" default:"netdash_session"`
	IdleTTL         time.Duration `yaml:"idle_ttl" envconfig:"IDLE_TTL" default:"2h"`
	MaxSessions     int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"200"`
	JanitorInterval time.Duration `yaml:"janitor_interval" envconfig:"JANITOR_INTERVAL" default:"5m"`
}

// UploadConfig bounds what the data loader accepts
type UploadConfig struct {
	MaxFileBytes        int64  `yaml:"max_file_bytes" envconfig:"MAX_FILE_BYTES" default:"209715200"`
	Separator           string `yaml:"separator" envconfig:"SEPARATOR" default:";"`
	MaxConcurrentParses int64  `yaml:"max_concurrent_parses" envconfig:"MAX_CONCURRENT_PARSES" default:"4"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"netdash"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays file values onto the env config. A value explicitly set
// in the environment wins; otherwise the file value replaces the env default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	set := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}

	if fileConfig.Server.Host != "" && !set("SERVER_HOST") {
		envConfig.Server.Host = fileConfig.Server.Host
	}
	if fileConfig.Server.Port != 0 && !set("SERVER_PORT") {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 && !set("SERVER_READ_TIMEOUT") {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && !set("SERVER_WRITE_TIMEOUT") {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.RequestTimeout != 0 && !set("SERVER_REQUEST_TIMEOUT") {
		envConfig.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}
	if len(fileConfig.Security.AllowedOrigins) > 0 && !set("SECURITY_ALLOWED_ORIGINS") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Security.SessionSecret != "" && !set("SECURITY_SESSION_SECRET") {
		envConfig.Security.SessionSecret = fileConfig.Security.SessionSecret
	}
	if fileConfig.Logging.Level != "" && !set("LOGGING_LEVEL") {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" && !set("LOGGING_OUTPUT") {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" && !set("LOGGING_FILE_PATH") {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if fileConfig.Session.IdleTTL != 0 && !set("SESSION_IDLE_TTL") {
		envConfig.Session.IdleTTL = fileConfig.Session.IdleTTL
	}
	if fileConfig.Session.MaxSessions != 0 && !set("SESSION_MAX_SESSIONS") {
		envConfig.Session.MaxSessions = fileConfig.Session.MaxSessions
	}
	if fileConfig.Upload.MaxFileBytes != 0 && !set("UPLOAD_MAX_FILE_BYTES") {
		envConfig.Upload.MaxFileBytes = fileConfig.Upload.MaxFileBytes
	}
	if fileConfig.Upload.Separator != "" && !set("UPLOAD_SEPARATOR") {
		envConfig.Upload.Separator = fileConfig.Upload.Separator
	}
	if fileConfig.Telemetry.TraceExporter != "" && !set("TELEMETRY_TRACE_EXPORTER") {
		envConfig.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if fileConfig.Telemetry.MetricExporter != "" && !set("TELEMETRY_METRIC_EXPORTER") {
		envConfig.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}
	if fileConfig.Telemetry.Environment != "" && !set("TELEMETRY_ENVIRONMENT") {
		envConfig.Telemetry.Environment = fileConfig.Telemetry.Environment
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive")
	}

	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max sessions must be positive")
	}

	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("upload max file bytes must be positive")
	}

	if len([]rune(c.Upload.Separator)) != 1 {
		return fmt.Errorf("upload separator must be a single character, got %q", c.Upload.Separator)
	}

	if c.Upload.MaxConcurrentParses <= 0 {
		c.Upload.MaxConcurrentParses = 1
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		locations = []string{explicit}
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8501,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8501"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/netdash.log",
		},
		Session: SessionConfig{
			CookieName:      "netdash_session",
			IdleTTL:         2 * time.Hour,
			MaxSessions:     200,
			JanitorInterval: 5 * time.Minute,
		},
		Upload: UploadConfig{
			MaxFileBytes:        200 << 20, // 200MB
			Separator:           ";",
			MaxConcurrentParses: 4,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "netdash",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
	}
}
