package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppPort  string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	MySQLHost  string `envconfig:"MYSQL_HOST" default:"mysql"`
	MySQLPort  string `envconfig:"MYSQL_PORT" default:"3306"`
	MySQLDB    string `envconfig:"MYSQL_DB" default:"ncd"`
	MySQLUser  string `envconfig:"MYSQL_USER" default:"ncd"`
	MySQLPass  string `envconfig:"MYSQL_PASS" default:"ncd"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"ncd.db"`

	RedisAddr      string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	StateKeyPrefix string `envconfig:"STATE_KEY_PREFIX" default:"ncd:"`
	DataVersion    string `envconfig:"DATA_VERSION" default:"1"`

	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"24h"`
	IdempTTLSecs      int           `envconfig:"IDEMPOTENCY_TTL_SECONDS" default:"300"`
	AuditTimeout      time.Duration `envconfig:"AUDIT_TIMEOUT" default:"5s"`

	JWTSecret string `envconfig:"JWT_SECRET"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", c.ReconcileInterval)
	}
	if c.DataVersion == "" {
		return errors.New("missing DATA_VERSION")
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
