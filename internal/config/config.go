package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables; components
// receive the sections they need at construction.
type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	RoomService RoomServiceConfig
	Widget      WidgetConfig
	Calls       CallsConfig
	Seed        SeedConfig
}

type AppConfig struct {
	Env  string
	Port int
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	// Driver selects the SQL backend: postgres (pgx) or sqlite (embedded, local/dev).
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Path is the sqlite database file. Only used when Driver is sqlite.
	Path string

	AutoMigrate bool
}

// RedisConfig is optional. When Host is empty the process runs without
// status publishing and without per-channel call caps.
type RedisConfig struct {
	Host string
	Port int
}

// RoomServiceConfig carries process-wide defaults for the room service.
// Per-channel provider config overrides URL, APIKey and APISecret.
type RoomServiceConfig struct {
	URL       string
	APIKey    string
	APISecret string

	EmptyTimeout time.Duration
	Timeout      time.Duration
}

type WidgetConfig struct {
	FrontendURL string
}

// CallsConfig bounds concurrent calls per channel. MaxPerChannel <= 0 disables the cap.
type CallsConfig struct {
	MaxPerChannel int
	CapTTL        time.Duration
}

type SeedConfig struct {
	ChannelsFile string
}

const (
	DefaultRoomServiceURL   = "ws://localhost:7880"
	DefaultEmptyTimeout     = 300 * time.Second
	DefaultRoomRPCTimeout   = 60 * time.Second
	DefaultCallCapTTL       = 2 * time.Hour
	DefaultSQLitePath       = "data/voice-broker.db"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Driver = strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if c.DB.Driver == "" {
		c.DB.Driver = DriverPostgres
	}
	if c.DB.Driver == DriverPostgres {
		c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
		{
			n, err := mustInt("DB_PORT")
			n, parseErrs = appendParseErr(parseErrs, n, err)
			c.DB.Port = n
		}
		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}
	c.DB.Path = strings.TrimSpace(os.Getenv("DB_PATH"))
	c.DB.AutoMigrate = optionalBool("DB_AUTO_MIGRATE")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.RoomService.URL = strings.TrimSpace(os.Getenv("ROOM_SERVICE_URL"))
	c.RoomService.APIKey = strings.TrimSpace(os.Getenv("ROOM_SERVICE_API_KEY"))
	c.RoomService.APISecret = os.Getenv("ROOM_SERVICE_API_SECRET")
	// Duration env vars are optional; defaults applied in Validate().
	c.RoomService.EmptyTimeout = mustDuration("ROOM_SERVICE_EMPTY_TIMEOUT")
	c.RoomService.Timeout = mustDuration("ROOM_SERVICE_TIMEOUT")

	c.Widget.FrontendURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FRONTEND_URL")), "/")

	if v := strings.TrimSpace(os.Getenv("CALLS_MAX_PER_CHANNEL")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("CALLS_MAX_PER_CHANNEL must be an integer, got %q", v))
		}
		c.Calls.MaxPerChannel = n
	}
	c.Calls.CapTTL = mustDuration("CALLS_CAP_TTL")

	c.Seed.ChannelsFile = strings.TrimSpace(os.Getenv("CHANNELS_FILE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.DB.Driver {
	case DriverPostgres:
		errs = append(errs, c.validatePostgres()...)
	case DriverSQLite:
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_DRIVER sqlite is not allowed in production"))
		}
		if c.DB.Path == "" {
			c.DB.Path = DefaultSQLitePath
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, got %q", c.DB.Driver))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Calls.MaxPerChannel > 0 && c.Redis.Host == "" {
		errs = append(errs, errors.New("CALLS_MAX_PER_CHANNEL requires REDIS_HOST"))
	}
	if c.Calls.CapTTL <= 0 {
		c.Calls.CapTTL = DefaultCallCapTTL
	}

	if c.RoomService.URL == "" {
		c.RoomService.URL = DefaultRoomServiceURL
	}
	if !hasRoomServiceScheme(c.RoomService.URL) {
		errs = append(errs, fmt.Errorf("ROOM_SERVICE_URL must use ws, wss, http or https, got %q", c.RoomService.URL))
	}
	if c.RoomService.EmptyTimeout <= 0 {
		c.RoomService.EmptyTimeout = DefaultEmptyTimeout
	}
	if c.RoomService.Timeout <= 0 {
		c.RoomService.Timeout = DefaultRoomRPCTimeout
	}

	return joinErrors(errs)
}

func (c *Config) validatePostgres() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.Path
	}
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// SQLDriverName maps the configured driver to the registered database/sql driver.
func (c Config) SQLDriverName() string {
	if c.DB.Driver == DriverSQLite {
		return "sqlite"
	}
	return "pgx"
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func optionalBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func hasRoomServiceScheme(raw string) bool {
	for _, p := range []string{"ws://", "wss://", "http://", "https://"} {
		if strings.HasPrefix(strings.ToLower(raw), p) {
			return true
		}
	}
	return false
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
