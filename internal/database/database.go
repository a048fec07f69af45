package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverOracle   = "oracle"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// pingTimeout bounds the connection check made when opening a database.
const pingTimeout = 10 * time.Second

// DBConfig holds database connection configuration
type DBConfig struct {
	Driver         string
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
	SSLMode        string
	Path           string
}

// DSN builds a properly encoded connection string for the configured driver.
func (c DBConfig) DSN() (string, error) {
	switch c.Driver {
	case DriverOracle, "":
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			return "", fmt.Errorf("invalid oracle port %q: %w", c.Port, err)
		}
		opts := map[string]string{}
		if c.WalletLocation != "" {
			// wallet-based mTLS, as required by Autonomous Database on 1522
			opts["SSL"] = "true"
			opts["WALLET"] = c.WalletLocation
		}
		return go_ora.BuildUrl(c.Host, port, c.Service, c.Username, c.Password, opts), nil
	case DriverPostgres:
		sslmode := c.SSLMode
		if sslmode == "" {
			sslmode = "require"
		}
		return (&url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Username, c.Password), // escapes automatically
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Service,
			RawQuery: "sslmode=" + url.QueryEscape(sslmode),
		}).String(), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite database requires a path")
		}
		return c.Path, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

// DriverName returns the database/sql driver to open.
func (c DBConfig) DriverName() string {
	if c.Driver == "" {
		return DriverOracle
	}
	return c.Driver
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config DBConfig
	logger *zap.Logger
}

// NewDatabase opens a connection and checks it with a short ping.
func NewDatabase(ctx context.Context, config DBConfig, logger *zap.Logger) (*Database, error) {
	connStr, err := config.DSN()
	if err != nil {
		return nil, err
	}

	logger.Info("connecting to database",
		zap.String("driver", config.DriverName()),
		zap.String("host", config.Host),
		zap.String("service", config.Service))

	db, err := sql.Open(config.DriverName(), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// FromDB wraps an already open handle.
func FromDB(db *sql.DB, config DBConfig, logger *zap.Logger) *Database {
	return &Database{db: db, config: config, logger: logger}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// LoadDatabaseConfig loads database configuration from environment variables
// named <prefix>_DB_HOST, <prefix>_DB_PORT and so on. The .env file, if any,
// is loaded by the caller beforehand.
func LoadDatabaseConfig(prefix, driver string) DBConfig {
	key := func(name string) string { return prefix + "_DB_" + name }

	defaultPort, defaultService := "1521", "XE"
	if driver == DriverPostgres {
		defaultPort, defaultService = "5432", "postgres"
	}

	return DBConfig{
		Driver:         driver,
		Host:           getEnvOrDefault(key("HOST"), "localhost"),
		Port:           getEnvOrDefault(key("PORT"), defaultPort),
		Service:        getEnvOrDefault(key("SERVICE"), defaultService),
		Username:       getEnvOrDefault(key("USERNAME"), ""),
		Password:       getEnvOrDefault(key("PASSWORD"), ""),
		WalletLocation: getEnvOrDefault(key("WALLET_LOCATION"), ""),
		SSLMode:        getEnvOrDefault(key("SSLMODE"), ""),
		Path:           getEnvOrDefault(key("PATH"), ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
