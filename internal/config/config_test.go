package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/report"
)

func setFirestoreEnv(t *testing.T) {
	t.Setenv("FIREBASE_API_KEY", "key")
	t.Setenv("FIREBASE_PROJECT_ID", "water-monitor")
	t.Setenv("FIREBASE_USER_EMAIL", "device@example.com")
	t.Setenv("FIREBASE_USER_PASSWORD", "secret")
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	setFirestoreEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Poll)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
	assert.Equal(t, logic.DefaultThresholds, cfg.Thresholds())
	assert.Equal(t, 1, cfg.Levels.Confirm)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, 200*time.Millisecond, cfg.GPIO.Pulse)
	assert.False(t, cfg.Display.Disabled)
	assert.Equal(t, "/sys/bus/iio/devices/iio:device0/in_voltage0_raw", cfg.ADCPath())
	assert.Equal(t, "pool.ntp.org", cfg.Clock.Server)
	assert.Equal(t, BackendFirestore, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, report.UnsyncedSkip, cfg.UnsyncedPolicy())
	assert.False(t, cfg.StartupPolicy().Bounded())
	assert.True(t, cfg.HTTP.Enabled())
	assert.Empty(t, cfg.MQTT.Broker)

	fs := cfg.FirestoreStore()
	assert.Equal(t, "water-monitor", fs.ProjectID)
	assert.Equal(t, "secret", fs.Password)
	assert.Equal(t, 10*time.Second, fs.Timeout)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "redis.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Poll)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.DeviceID)
	assert.Equal(t, logic.Thresholds{Medium: 1800, High: 2300}, cfg.Thresholds())
	assert.Equal(t, 3, cfg.Levels.Confirm)
	assert.Equal(t, 13, cfg.Pins().Red)
	assert.True(t, cfg.Display.Disabled)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "10.0.0.5:6379", cfg.RedisStore().Addr)
	assert.Equal(t, "tank:", cfg.RedisStore().Prefix)
	assert.Equal(t, report.UnsyncedFallback, cfg.UnsyncedPolicy())
	assert.False(t, cfg.HTTP.Enabled())
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("WATER_POLL", "5s")
	t.Setenv("WATER_REDIS_ADDR", "redis:6379")

	cfg, err := Load(filepath.Join("testdata", "redis.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Poll)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestLoadPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, filepath.Join("testdata", "redis.yaml"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Poll:   2 * time.Second,
		Levels: LevelsConfig{Medium: 1900, High: 2200, Confirm: 1},
		GPIO:   GPIOConfig{Green: 17, Yellow: 27, Red: 22, Buzzer: 18},
		Display: DisplayConfig{
			RS: 25, EN: 24, D4: 23, D5: 5, D6: 6, D7: 16,
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
			SQLite:  SQLiteConfig{Path: "/tmp/readings.db"},
		},
		Report: ReportConfig{Unsynced: "skip"},
		Log:    LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll", func(c *Config) { c.Poll = 0 }},
		{"sub-second poll", func(c *Config) { c.Poll = 500 * time.Millisecond }},
		{"inverted thresholds", func(c *Config) { c.Levels.Medium, c.Levels.High = 2200, 1900 }},
		{"duplicate LED pin", func(c *Config) { c.GPIO.Red = c.GPIO.Green }},
		{"LCD clashes with buzzer", func(c *Config) { c.Display.D7 = c.GPIO.Buzzer }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }},
		{"firestore without credentials", func(c *Config) { c.Store.Backend = BackendFirestore }},
		{"bad unsynced policy", func(c *Config) { c.Report.Unsynced = "buffer" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateIgnoresLCDPinsWhenDisabled(t *testing.T) {
	c := validConfig()
	c.Display.Disabled = true
	c.Display.D7 = c.GPIO.Buzzer
	assert.NoError(t, c.Validate())
}

func TestADCPathOverride(t *testing.T) {
	c := validConfig()
	c.ADC.Path = "/tmp/raw"
	assert.Equal(t, "/tmp/raw", c.ADCPath())
}

func TestMain(m *testing.M) {
	os.Unsetenv(EnvPath)
	os.Exit(m.Run())
}
