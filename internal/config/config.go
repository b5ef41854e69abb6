// Package config loads daemon settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sweeney/water-sensor/internal/adc"
	"github.com/sweeney/water-sensor/internal/display"
	"github.com/sweeney/water-sensor/internal/gpio"
	"github.com/sweeney/water-sensor/internal/logging"
	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/report"
	"github.com/sweeney/water-sensor/internal/retry"
	"github.com/sweeney/water-sensor/internal/store"
)

// EnvPath names the variable consulted when no -config flag is given.
const EnvPath = "WATER_SENSOR_CONFIG"

type Config struct {
	// Poll is at least 1s. Report keys are second-resolution timestamps, so a
	// faster poll could collide two changes on one key.
	Poll      time.Duration `yaml:"poll" env:"WATER_POLL" env-default:"2s"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"WATER_HEARTBEAT" env-default:"15m"`
	// DeviceID overrides the hardware address used as device identity.
	DeviceID string `yaml:"device_id" env:"WATER_DEVICE_ID"`

	Levels  LevelsConfig  `yaml:"levels"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Display DisplayConfig `yaml:"display"`
	ADC     ADCConfig     `yaml:"adc"`
	Clock   ClockConfig   `yaml:"clock"`
	Network NetworkConfig `yaml:"network"`
	Startup RetryConfig   `yaml:"startup"`
	Store   StoreConfig   `yaml:"store"`
	Report  ReportConfig  `yaml:"report"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

type LevelsConfig struct {
	Medium int `yaml:"medium" env:"WATER_LEVEL_MEDIUM" env-default:"1900"`
	High   int `yaml:"high" env:"WATER_LEVEL_HIGH" env-default:"2200"`
	// Confirm is the number of consecutive samples needed to accept a new level.
	Confirm int `yaml:"confirm" env:"WATER_LEVEL_CONFIRM" env-default:"1"`
}

type GPIOConfig struct {
	Chip   string        `yaml:"chip" env:"WATER_GPIO_CHIP" env-default:"gpiochip0"`
	Green  int           `yaml:"green" env-default:"17"`
	Yellow int           `yaml:"yellow" env-default:"27"`
	Red    int           `yaml:"red" env-default:"22"`
	Buzzer int           `yaml:"buzzer" env-default:"18"`
	Pulse  time.Duration `yaml:"pulse" env-default:"200ms"`
}

type DisplayConfig struct {
	Disabled bool `yaml:"disabled" env:"WATER_DISPLAY_DISABLED"`
	RS       int  `yaml:"rs" env-default:"25"`
	EN       int  `yaml:"en" env-default:"24"`
	D4       int  `yaml:"d4" env-default:"23"`
	D5       int  `yaml:"d5" env-default:"5"`
	D6       int  `yaml:"d6" env-default:"6"`
	D7       int  `yaml:"d7" env-default:"16"`
}

type ADCConfig struct {
	Device  int `yaml:"device" env-default:"0"`
	Channel int `yaml:"channel" env-default:"0"`
	// Path overrides Device/Channel with an explicit sysfs attribute.
	Path string `yaml:"path" env:"WATER_ADC_PATH"`
}

type ClockConfig struct {
	Server  string        `yaml:"server" env:"WATER_NTP_SERVER" env-default:"pool.ntp.org"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type NetworkConfig struct {
	// Interface is the link used for connectivity and identity. Empty picks
	// the first non-loopback interface with a hardware address.
	Interface string `yaml:"interface" env:"WATER_INTERFACE"`
}

type RetryConfig struct {
	// MaxAttempts of 0 retries forever.
	MaxAttempts  int           `yaml:"max_attempts" env:"WATER_STARTUP_MAX_ATTEMPTS" env-default:"0"`
	InitialDelay time.Duration `yaml:"initial_delay" env-default:"300ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env-default:"30s"`
}

type StoreConfig struct {
	Backend   string          `yaml:"backend" env:"WATER_STORE" env-default:"firestore"`
	Timeout   time.Duration   `yaml:"timeout" env-default:"10s"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
}

type FirestoreConfig struct {
	APIKey    string `yaml:"api_key" env:"FIREBASE_API_KEY"`
	ProjectID string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	Email     string `yaml:"email" env:"FIREBASE_USER_EMAIL"`
	Password  string `yaml:"password" env:"FIREBASE_USER_PASSWORD"`
	BaseURL   string `yaml:"base_url"`
	AuthURL   string `yaml:"auth_url"`
	TokenURL  string `yaml:"token_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"WATER_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"WATER_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
	Prefix   string `yaml:"prefix" env-default:"water:"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"WATER_POSTGRES_URL"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"WATER_SQLITE_PATH" env-default:"/var/lib/water-sensor/readings.db"`
}

type ReportConfig struct {
	// Unsynced is "skip" or "fallback".
	Unsynced string `yaml:"unsynced" env:"WATER_REPORT_UNSYNCED" env-default:"skip"`
}

type MQTTConfig struct {
	// Broker is empty to disable the event mirror.
	Broker   string `yaml:"broker" env:"WATER_MQTT_BROKER"`
	ClientID string `yaml:"client_id" env:"WATER_MQTT_CLIENT_ID"`
}

type HTTPConfig struct {
	// Addr is "off" to disable the status server.
	Addr string `yaml:"addr" env:"WATER_HTTP_ADDR" env-default:":80"`
}

// Enabled reports whether the status server should run.
func (h HTTPConfig) Enabled() bool {
	return h.Addr != "" && h.Addr != "off"
}

type LogConfig struct {
	Level  string `yaml:"level" env:"WATER_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"WATER_LOG_FORMAT" env-default:"json"`
}

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// Load reads path (or $WATER_SENSOR_CONFIG) and applies environment
// overrides. With no file at all, settings come from the environment and
// defaults alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cleanenv cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.Poll < time.Second {
		errs = append(errs, fmt.Errorf("poll must be at least 1s, got %v", c.Poll))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := distinctPins(c.GPIO, c.Display); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case BackendFirestore:
		f := c.Store.Firestore
		if f.APIKey == "" || f.ProjectID == "" || f.Email == "" {
			errs = append(errs, errors.New("firestore needs api_key, project_id and email"))
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("redis needs addr"))
		}
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres needs url"))
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite needs path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if _, err := report.ParseUnsyncedPolicy(c.Report.Unsynced); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func distinctPins(g GPIOConfig, d DisplayConfig) error {
	pins := map[string]int{"green": g.Green, "yellow": g.Yellow, "red": g.Red, "buzzer": g.Buzzer}
	if !d.Disabled {
		for name, pin := range map[string]int{"rs": d.RS, "en": d.EN, "d4": d.D4, "d5": d.D5, "d6": d.D6, "d7": d.D7} {
			pins["lcd "+name] = pin
		}
	}

	seen := make(map[int]string, len(pins))
	for name, pin := range pins {
		if pin < 0 {
			return fmt.Errorf("pin %s: negative offset %d", name, pin)
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("pin %d used by both %s and %s", pin, other, name)
		}
		seen[pin] = name
	}
	return nil
}

// Thresholds returns the classifier breakpoints.
func (c *Config) Thresholds() logic.Thresholds {
	return logic.Thresholds{Medium: c.Levels.Medium, High: c.Levels.High}
}

// Pins returns the LED and buzzer wiring.
func (c *Config) Pins() gpio.Pins {
	return gpio.Pins{Green: c.GPIO.Green, Yellow: c.GPIO.Yellow, Red: c.GPIO.Red, Buzzer: c.GPIO.Buzzer}
}

// DisplayPins returns the LCD wiring.
func (c *Config) DisplayPins() display.Pins {
	d := c.Display
	return display.Pins{RS: d.RS, EN: d.EN, D4: d.D4, D5: d.D5, D6: d.D6, D7: d.D7}
}

// ADCPath returns the sysfs attribute to sample.
func (c *Config) ADCPath() string {
	if c.ADC.Path != "" {
		return c.ADC.Path
	}
	return adc.ChannelPath(c.ADC.Device, c.ADC.Channel)
}

// StartupPolicy returns the retry policy for network and store bring-up.
func (c *Config) StartupPolicy() retry.Policy {
	return retry.NewPolicy(c.Startup.MaxAttempts, c.Startup.InitialDelay, c.Startup.MaxDelay)
}

// UnsyncedPolicy returns the validated empty-timestamp policy.
func (c *Config) UnsyncedPolicy() report.UnsyncedPolicy {
	p, _ := report.ParseUnsyncedPolicy(c.Report.Unsynced)
	return p
}

// FirestoreStore returns the store package settings for the Firestore backend.
func (c *Config) FirestoreStore() store.FirestoreConfig {
	f := c.Store.Firestore
	return store.FirestoreConfig{
		APIKey:    f.APIKey,
		ProjectID: f.ProjectID,
		Email:     f.Email,
		Password:  f.Password,
		BaseURL:   f.BaseURL,
		AuthURL:   f.AuthURL,
		TokenURL:  f.TokenURL,
		Timeout:   c.Store.Timeout,
	}
}

// RedisStore returns the store package settings for the Redis backend.
func (c *Config) RedisStore() store.RedisConfig {
	r := c.Store.Redis
	return store.RedisConfig{Addr: r.Addr, Password: r.Password, DB: r.DB, Prefix: r.Prefix}
}
