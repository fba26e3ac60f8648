package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/support-relay/internal/pg"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// GRPC with an empty addr disables the gRPC query API.
type GRPC struct {
	Addr           string        `yaml:"addr"`
	DefaultTimeout time.Duration `yaml:"defaultTimeout"`
}

type CORS struct {
	Origins []string `yaml:"origins"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // support-relay
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	Level     string `yaml:"level"`   // debug|info|warn|error
	AddSource bool   `yaml:"addSource"`
	Debug     bool   `yaml:"debug"`
}

type Storage struct {
	// Driver is postgres or memory. Empty picks postgres when a DSN is known.
	Driver string `yaml:"driver"`
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
	Migrate           bool          `yaml:"migrate"`
}

func (p Postgres) ToPGConfig() pg.Config {
	return pg.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type Auth struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"passwordHash"` // bcrypt; wins over password
	BcryptCost   int           `yaml:"bcryptCost"`
	JWTSecret    string        `yaml:"jwtSecret"` // empty: random per process
	Issuer       string        `yaml:"issuer"`
	TokenTTL     time.Duration `yaml:"tokenTTL"`
}

func (a Auth) Validate() error {
	if a.BcryptCost != 0 && (a.BcryptCost < 4 || a.BcryptCost > 18) {
		return errors.New("auth.bcryptCost must be in [4..18]")
	}
	if a.TokenTTL < 0 {
		return errors.New("auth.tokenTTL must be >= 0")
	}
	return nil
}

// Redis with an empty addr disables presence tracking.
type Redis struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	PresenceTTL time.Duration `yaml:"presenceTTL"`
}

// Kafka with no brokers disables event export.
type Kafka struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	QueueSize    int           `yaml:"queueSize"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxFailures  uint32        `yaml:"maxFailures"`
	OpenTimeout  time.Duration `yaml:"openTimeout"`
}

type WS struct {
	PingEvery      time.Duration `yaml:"pingEvery"`
	WriteWait      time.Duration `yaml:"writeWait"`
	SendBuffer     int           `yaml:"sendBuffer"`
	ReadLimit      int64         `yaml:"readLimit"`
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	CORS     CORS     `yaml:"cors"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	WS       WS       `yaml:"ws"`
}

// LoadConfig reads .env (if present), then the yaml file at CONFIG_PATH, then env overrides.
// Without CONFIG_PATH a missing ./config/config.yaml means built-in defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.HTTP.Addr = ":" + port
	}
	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		c.CORS.Origins = splitList(origins)
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Postgres.DSN = dsn
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Logging.Env = env
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3001"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if len(c.CORS.Origins) == 0 {
		c.CORS.Origins = []string{"*"}
	}

	switch c.Storage.Driver {
	case "":
		if c.Postgres.DSN != "" {
			c.Storage.Driver = DriverPostgres
		} else {
			c.Storage.Driver = DriverMemory
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn (or DATABASE_URL) is required for storage.driver=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		c.Auth.Password = "admin123"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "support-relay"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		c.Kafka.Topic = "support.events"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "support"
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "support-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
