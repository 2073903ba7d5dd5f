package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/2beens/bodylog/pkg"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

// env vars holding secrets, never kept in the toml file
const (
	EnvAPIToken        = "BODYLOG_API_TOKEN"
	EnvRedisPassword   = "BODYLOG_REDIS_PASS"
	EnvPostgresPass    = "BODYLOG_POSTGRES_PASS"
	EnvGoogleCredsFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	// store
	StoreBackend string `toml:"store_backend"`
	// firestore
	FirebaseProjectID       string `toml:"firebase_project_id"`
	FirebaseCredentialsFile string `toml:"firebase_credentials_file"`
	// postgres
	PostgresHost string `toml:"postgres_host"`
	PostgresPort string `toml:"postgres_port"`
	PostgresDB   string `toml:"postgres_db"`
	PostgresUser string `toml:"postgres_user"`
	// redis, rate limiting
	RedisHost          string `toml:"redis_host"`
	RedisPort          string `toml:"redis_port"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
	// metrics and tracing
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	HoneycombEnabled      bool   `toml:"honeycomb_enabled"`
	// http
	AllowedOrigins []string `toml:"allowed_origins"`

	// secrets, filled from the environment
	APIToken         string `toml:"-"`
	RedisPassword    string `toml:"-"`
	PostgresPassword string `toml:"-"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config for env: %s", env)
	}
	return cfg, nil
}

// Load reads the config of the given env from the toml file at path, loads the optional
// .env file next to the process, and fills the secrets from the environment.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg.APIToken = os.Getenv(EnvAPIToken)
	cfg.RedisPassword = os.Getenv(EnvRedisPassword)
	cfg.PostgresPassword = os.Getenv(EnvPostgresPass)
	if cfg.FirebaseCredentialsFile == "" {
		cfg.FirebaseCredentialsFile = os.Getenv(EnvGoogleCredsFile)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads the file into the environment when it exists. Variables already set win.
func LoadDotEnv(path string) error {
	exists, err := pkg.PathExists(path, false)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if !exists {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debugf("loaded env vars from %s", path)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreMemory
	}
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("firestore store: firebase_project_id not set")
		}
	case StorePostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" {
			return fmt.Errorf("postgres store: postgres_host and postgres_db must be set")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid rate_limit_per_minute: %d", c.RateLimitPerMinute)
	}
	return nil
}
