// Package config provides configuration management for mythctl using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultBackendPort     = 6543
	defaultProtocolVersion = 88
	defaultBackendTimeout  = 10 * time.Second
	defaultMaxPacketSize   = 64 * MiB
	defaultDatabasePort    = 3306
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultMonitorSchedule = "0 */5 * * * *"
	defaultLookAhead       = Duration(24 * time.Hour)
	defaultFreeSpaceWarn   = 50 * GiB
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// BackendConfig holds the MythTV backend connection settings.
type BackendConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ProtocolVersion int           `mapstructure:"protocol_version" yaml:"protocol_version"`
	RetryRejected   bool          `mapstructure:"retry_rejected" yaml:"retry_rejected"` // reconnect with the backend's version after REJECT
	Hostname        string        `mapstructure:"hostname" yaml:"hostname"`             // announced client name (empty = os hostname)
	Announce        string        `mapstructure:"announce" yaml:"announce"`             // Playback, Monitor
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxPacketSize   ByteSize      `mapstructure:"max_packet_size" yaml:"max_packet_size"`
}

// DatabaseConfig holds MythTV database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // mysql, sqlite
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`       // overrides host, port, user, password and name
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Name            string        `mapstructure:"name" yaml:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`           // silent, error, warn, info
	SchemaVersion   int           `mapstructure:"schema_version" yaml:"schema_version"` // 0 = read settings.DBSchemaVer
	TimeZone        string        `mapstructure:"time_zone" yaml:"time_zone"`           // zone of pre-UTC timestamps
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // trace, debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source" yaml:"add_source"`
	TimeFormat string `mapstructure:"time_format" yaml:"time_format"`
}

// MonitorConfig holds the settings of the monitor command.
type MonitorConfig struct {
	Schedule         string   `mapstructure:"schedule" yaml:"schedule"` // 6-field cron expression
	LookAhead        Duration `mapstructure:"look_ahead" yaml:"look_ahead"`
	FreeSpaceWarning ByteSize `mapstructure:"free_space_warning" yaml:"free_space_warning"`
}

// ServerConfig holds the status API served by the monitor command.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"` // 0 = disabled
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Enabled reports whether the status API should be started.
func (c *ServerConfig) Enabled() bool { return c.Port > 0 }

// Address returns the listen address in host:port format.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MYTHCTL_ and use underscores for nesting.
// Example: MYTHCTL_BACKEND_HOST=mythbackend.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mythctl")
		v.AddConfigPath("$HOME/.mythctl")
	}

	v.SetEnvPrefix("MYTHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return Unmarshal(v)
}

// Unmarshal decodes and validates the configuration held by v.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.host", "localhost")
	v.SetDefault("backend.port", defaultBackendPort)
	v.SetDefault("backend.protocol_version", defaultProtocolVersion)
	v.SetDefault("backend.retry_rejected", true)
	v.SetDefault("backend.hostname", "")
	v.SetDefault("backend.announce", "Monitor")
	v.SetDefault("backend.timeout", defaultBackendTimeout)
	v.SetDefault("backend.max_packet_size", defaultMaxPacketSize.String())

	// Database defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", defaultDatabasePort)
	v.SetDefault("database.user", "mythtv")
	v.SetDefault("database.password", "mythtv")
	v.SetDefault("database.name", "mythconverg")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.schema_version", 0)
	v.SetDefault("database.time_zone", "Local")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Monitor defaults
	v.SetDefault("monitor.schedule", defaultMonitorSchedule)
	v.SetDefault("monitor.look_ahead", defaultLookAhead.String())
	v.SetDefault("monitor.free_space_warning", defaultFreeSpaceWarn.String())

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Backend.Host == "" {
		return fmt.Errorf("backend.host is required")
	}
	if c.Backend.Port < 1 || c.Backend.Port > maxPort {
		return fmt.Errorf("backend.port must be between 1 and %d", maxPort)
	}
	if c.Backend.ProtocolVersion < 1 {
		return fmt.Errorf("backend.protocol_version must be positive")
	}
	validAnnounce := map[string]bool{"Playback": true, "Monitor": true}
	if !validAnnounce[c.Backend.Announce] {
		return fmt.Errorf("backend.announce must be one of: Playback, Monitor")
	}
	if c.Backend.MaxPacketSize < 0 {
		return fmt.Errorf("backend.max_packet_size must not be negative")
	}

	validDrivers := map[string]bool{"mysql": true, "sqlite": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: mysql, sqlite")
	}
	if c.Database.DSN == "" && (c.Database.Driver == "sqlite" || c.Database.Host == "") {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.SchemaVersion < 0 {
		return fmt.Errorf("database.schema_version must not be negative")
	}
	if _, err := c.Database.Location(); err != nil {
		return fmt.Errorf("database.time_zone: %w", err)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Monitor.Schedule == "" {
		return fmt.Errorf("monitor.schedule is required")
	}
	if c.Monitor.LookAhead < 0 {
		return fmt.Errorf("monitor.look_ahead must not be negative")
	}

	if c.Server.Port < 0 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 0 and %d", maxPort)
	}

	return nil
}

// Address returns the backend address in host:port format.
func (c *BackendConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Address returns the database server address in host:port format.
func (c *DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location resolves TimeZone. Empty and "Local" select the local zone.
func (c *DatabaseConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// Redacted returns a copy of the configuration with secrets masked.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "********"
	}
	if c.Database.DSN != "" {
		c.Database.DSN = redactDSN(c.Database.DSN)
	}
	return c
}

// redactDSN masks the password of a user:password@... DSN.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:colon+1] + "********" + dsn[at:]
}
