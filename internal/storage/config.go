package storage

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Config defines fields used to build a connection string for the database
type Config struct {
	User     string
	Password string
	Host     string
	Port     uint16
	DBName   string
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     uint16 `env:"DB_PORT" envDefault:"5432"`
	DBName   string `env:"DB_NAME" envDefault:"chatroom"`
}

// Config converts parsed environment variables to a Config struct
func (c EnvConfig) Config() Config {
	return Config{
		User:     c.User,
		Password: c.Password,
		Host:     c.Host,
		Port:     c.Port,
		DBName:   c.DBName,
	}
}

// DSN builds a keyword/value connection string accepted by pgx
func (c Config) DSN() string {
	return "user=" + c.User +
		" password=" + c.Password +
		" host=" + c.Host +
		" port=" + strconv.FormatUint(uint64(c.Port), 10) +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

// TestConfig points at the local database used by package-level tests
var TestConfig = Config{
	User:     "postgres",
	Password: "postgres",
	Host:     "localhost",
	Port:     5432,
	DBName:   "chatroom_test",
}

// Option alters the default configuration of the pgxpool.Config used during new Store construction
type Option interface {
	apply(*pgxpool.Config)
}

type optionFunc func(c *pgxpool.Config)

func (f optionFunc) apply(c *pgxpool.Config) { f(c) }

// ConnectionTimeout sets timeout for connection to be established
func ConnectionTimeout(d time.Duration) Option {
	return optionFunc(func(c *pgxpool.Config) {
		c.ConnConfig.ConnectTimeout = d
	})
}
