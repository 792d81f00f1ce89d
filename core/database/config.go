package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds database connection settings.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// Path is the SQLite database file.
	Path string `yaml:"path" envconfig:"DB_PATH"`
}

// Normalize validates the driver and fills defaults.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "postgresql":
		c.Driver = DriverPostgres
	case "sqlite3":
		c.Driver = DriverSQLite
	}
	switch c.Driver {
	case DriverPostgres:
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.Name == "" {
			return fmt.Errorf("database.name is required for driver %q", c.Driver)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "facilitybot.db"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite, memory", c.Driver)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.Driver == DriverSQLite {
		c.MaxConnections = 1
	}
	return nil
}

// ConnString returns the database/sql data source for the driver.
func (c Config) ConnString() string {
	switch c.Driver {
	case DriverSQLite:
		return "file:" + c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	default:
		return fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
		)
	}
}

// MigrateURL returns the database URL understood by golang-migrate.
func (c Config) MigrateURL() string {
	switch c.Driver {
	case DriverSQLite:
		return "sqlite://" + c.Path
	default:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Name,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	}
}
