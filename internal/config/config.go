// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/gravmusic/internal/catalog"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = time.Duration(0) // the command stream stays open
	defaultShutdownTimeout           = 10 * time.Second
	defaultDatabasePath              = "./data/gravmusic.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultMediaLibraryPath          = "./public"
	defaultMediaAudioExtension       = ".mp3"
	defaultMediaProbeConcurrency     = 4
	defaultMediaProbeTimeout         = 30 * time.Second
	defaultCatalogManifest           = "./public/albums.json"
	defaultCatalogWatch              = false
	defaultCatalogWatchDebounce      = 500 * time.Millisecond
	defaultCatalogFetchTimeout       = 15 * time.Second
	defaultPlayerInboxSize           = 64
	defaultPlayerInitialVolume       = 1.0
	defaultPlayerClientBuffer        = 32
	envPrefix                        = "GRAVMUSIC"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Media    MediaConfig
	Catalog  CatalogConfig
	Player   PlayerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds the duration cache database configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// MediaConfig holds media library and probing configuration
type MediaConfig struct {
	LibraryPath      string
	AudioExtension   string
	ProbeBaseURL     string // probe over http instead of the local library when set
	ProbeConcurrency int
	ProbeTimeout     time.Duration
}

// CatalogConfig holds album manifest configuration
type CatalogConfig struct {
	Manifest      string // file path or http(s) url
	Watch         bool
	WatchDebounce time.Duration
	FetchTimeout  time.Duration // for http(s) manifests
}

// PlayerConfig holds transport controller configuration
type PlayerConfig struct {
	InboxSize     int
	InitialVolume float64
	ClientBuffer  int
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gravmusic")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Keys without a default are not picked up from the environment.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)
	v.SetDefault("server.shutdowntimeout", defaultShutdownTimeout)
	v.SetDefault("server.corsorigins", []string{"*"})

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Media defaults
	v.SetDefault("media.librarypath", defaultMediaLibraryPath)
	v.SetDefault("media.audioextension", defaultMediaAudioExtension)
	v.SetDefault("media.probebaseurl", "")
	v.SetDefault("media.probeconcurrency", defaultMediaProbeConcurrency)
	v.SetDefault("media.probetimeout", defaultMediaProbeTimeout)

	// Catalog defaults
	v.SetDefault("catalog.manifest", defaultCatalogManifest)
	v.SetDefault("catalog.watch", defaultCatalogWatch)
	v.SetDefault("catalog.watchdebounce", defaultCatalogWatchDebounce)
	v.SetDefault("catalog.fetchtimeout", defaultCatalogFetchTimeout)

	// Player defaults
	v.SetDefault("player.inboxsize", defaultPlayerInboxSize)
	v.SetDefault("player.initialvolume", defaultPlayerInitialVolume)
	v.SetDefault("player.clientbuffer", defaultPlayerClientBuffer)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	// Zero disables the write timeout, which the command stream needs
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("invalid write timeout: %v (must be >= 0)", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v (must be > 0)", c.Server.ShutdownTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !lo.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Media.LibraryPath == "" {
		return fmt.Errorf("media library path is required")
	}
	if c.Media.ProbeConcurrency < 1 {
		return fmt.Errorf("invalid probe concurrency: %d (must be >= 1)", c.Media.ProbeConcurrency)
	}
	if c.Media.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", c.Media.ProbeTimeout)
	}
	if c.Media.ProbeBaseURL != "" && !catalog.IsRemoteSource(c.Media.ProbeBaseURL) {
		return fmt.Errorf("invalid probe base url: %s (must start with http:// or https://)", c.Media.ProbeBaseURL)
	}

	if c.Catalog.Manifest == "" {
		return fmt.Errorf("catalog manifest is required")
	}
	if c.Catalog.Watch && catalog.IsRemoteSource(c.Catalog.Manifest) {
		return fmt.Errorf("catalog watch requires a local manifest, got %s", c.Catalog.Manifest)
	}
	if c.Catalog.FetchTimeout <= 0 {
		return fmt.Errorf("invalid catalog fetch timeout: %v (must be > 0)", c.Catalog.FetchTimeout)
	}

	if c.Player.InboxSize < 1 {
		return fmt.Errorf("invalid player inbox size: %d (must be >= 1)", c.Player.InboxSize)
	}
	if c.Player.InitialVolume < 0 || c.Player.InitialVolume > 1 {
		return fmt.Errorf("invalid initial volume: %v (must be between 0 and 1)", c.Player.InitialVolume)
	}
	if c.Player.ClientBuffer < 2 {
		return fmt.Errorf("invalid player client buffer: %d (must be >= 2)", c.Player.ClientBuffer)
	}

	return nil
}

// Addr returns the host:port the server listens on
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
