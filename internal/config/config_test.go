package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Backend: BackendConfig{Host: "mythbackend", Port: 6543, ProtocolVersion: 88, Announce: "Monitor"},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "mythbackend",
			Port:   3306,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Monitor: MonitorConfig{Schedule: "0 */5 * * * *"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Backend.Host)
	assert.Equal(t, 6543, cfg.Backend.Port)
	assert.Equal(t, 88, cfg.Backend.ProtocolVersion)
	assert.True(t, cfg.Backend.RetryRejected)
	assert.Equal(t, "Monitor", cfg.Backend.Announce)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 64*MiB, cfg.Backend.MaxPacketSize)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "mythconverg", cfg.Database.Name)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 0, cfg.Database.SchemaVersion)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.Equal(t, "0 */5 * * * *", cfg.Monitor.Schedule)
	assert.Equal(t, 24*time.Hour, cfg.Monitor.LookAhead.Duration())
	assert.Equal(t, 50*GiB, cfg.Monitor.FreeSpaceWarning)

	assert.False(t, cfg.Server.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mythctl.yaml")
	content := `
backend:
  host: mythbackend
  protocol_version: 91
  timeout: 3s
  max_packet_size: 16MB
database:
  driver: sqlite
  dsn: ":memory:"
  schema_version: 1350
monitor:
  look_ahead: 2d12h
  free_space_warning: 1.5 TB
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mythbackend", cfg.Backend.Host)
	assert.Equal(t, 91, cfg.Backend.ProtocolVersion)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 16*MiB, cfg.Backend.MaxPacketSize)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 1350, cfg.Database.SchemaVersion)
	assert.Equal(t, 60*time.Hour, cfg.Monitor.LookAhead.Duration())
	assert.Equal(t, ByteSize(1.5*float64(TiB)), cfg.Monitor.FreeSpaceWarning)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MYTHCTL_BACKEND_HOST", "envhost")
	t.Setenv("MYTHCTL_BACKEND_PORT", "7000")
	t.Setenv("MYTHCTL_LOGGING_LEVEL", "debug")
	t.Setenv("MYTHCTL_MONITOR_LOOK_AHEAD", "1w")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "envhost", cfg.Backend.Host)
	assert.Equal(t, 7000, cfg.Backend.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7*24*time.Hour, cfg.Monitor.LookAhead.Duration())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUnmarshal_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("logging.format", "xml")

	_, err := Unmarshal(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "no backend host", modify: func(c *Config) { c.Backend.Host = "" }, wantErr: "backend.host"},
		{name: "bad port", modify: func(c *Config) { c.Backend.Port = 70000 }, wantErr: "backend.port"},
		{name: "bad announce", modify: func(c *Config) { c.Backend.Announce = "Frontend" }, wantErr: "backend.announce"},
		{name: "postgres", modify: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: "database.driver"},
		{name: "sqlite needs dsn", modify: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: "database.dsn"},
		{name: "bad zone", modify: func(c *Config) { c.Database.TimeZone = "Mars/Olympus" }, wantErr: "database.time_zone"},
		{name: "bad level", modify: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "logging.level"},
		{name: "no schedule", modify: func(c *Config) { c.Monitor.Schedule = "" }, wantErr: "monitor.schedule"},
		{name: "bad server port", modify: func(c *Config) { c.Server.Port = -1 }, wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validTestConfig()
	cfg.Database.Password = "secret"
	cfg.Database.DSN = "mythtv:secret@tcp(db:3306)/mythconverg"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.Database.Password)
	assert.Equal(t, "mythtv:********@tcp(db:3306)/mythconverg", red.Database.DSN)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestAddress(t *testing.T) {
	cfg := validTestConfig()
	assert.Equal(t, "mythbackend:6543", cfg.Backend.Address())
	assert.Equal(t, "mythbackend:3306", cfg.Database.Address())

	cfg.Server.Host, cfg.Server.Port = "127.0.0.1", 8080
	assert.True(t, cfg.Server.Enabled())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address())
}

func TestByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"4096", 4096},
		{"4KB", 4 * KiB},
		{"1.5 GB", ByteSize(1.5 * float64(GiB))},
		{"2TiB", 2 * TiB},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseByteSize("12 parsecs")
	assert.Error(t, err)
	_, err = ParseByteSize("")
	assert.Error(t, err)

	assert.Equal(t, "1.5GB", ByteSize(1.5*float64(GiB)).String())
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "2MB", KiBytes(2048).String())
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		str  string
	}{
		{"90s", 90 * time.Second, "1m30s"},
		{"2h", 2 * time.Hour, "2h"},
		{"1d", 24 * time.Hour, "1d"},
		{"1w2d12h", 9*24*time.Hour + 12*time.Hour, "1w2d12h"},
		{"1h30m", 90 * time.Minute, "1h30m"},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Duration(), tt.in)
		assert.Equal(t, tt.str, got.String(), tt.in)
	}

	_, err := ParseDuration("soon")
	assert.Error(t, err)
	_, err = ParseDuration("")
	assert.Error(t, err)
}
