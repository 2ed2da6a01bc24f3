// Package source opens the read-only database the extractors query.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const (
	defaultConnectTimeout  = 12 * time.Second
	defaultConnMaxLifetime = 30 * time.Minute
	defaultMaxOpenConns    = 4
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// DSN overrides the discrete fields when set. It is required for sqlite.
	DSN string

	Location        *time.Location
	ConnectTimeout  time.Duration
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
}

// DB is a pooled handle plus the SQL dialect of its driver.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects, tunes the pool and pings once so a bad host fails fast.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch cfg.Driver {
	case DriverMySQL:
		mc, err := mysqlConfig(cfg)
		if err != nil {
			return nil, err
		}
		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("mysql connector: %w", err)
		}
		db = sql.OpenDB(connector)
	default:
		dsn, err := dataSourceName(cfg)
		if err != nil {
			return nil, err
		}
		if db, err = sql.Open(cfg.Driver, dsn); err != nil {
			return nil, err
		}
	}

	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetConnMaxLifetime(lifetime)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

func mysqlConfig(cfg Config) (*mysql.Config, error) {
	if cfg.DSN != "" {
		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse mysql DSN: %w", err)
		}
		return parsed, nil
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(cfg.Host, cfg.Port, 3306)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	if cfg.Location != nil {
		mc.Loc = cfg.Location
	}
	return mc, nil
}

func dataSourceName(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch cfg.Driver {
	case DriverPostgres:
		parts := []string{
			"host=" + hostOr(cfg.Host),
			"port=" + strconv.Itoa(portOr(cfg.Port, 5432)),
			"dbname=" + cfg.Name,
		}
		if cfg.User != "" {
			parts = append(parts, "user="+cfg.User)
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+quoteKeyword(cfg.Password))
		}
		return strings.Join(parts, " "), nil
	case DriverSQLite:
		if cfg.Name == "" {
			return "", errors.New("sqlite needs DB_NAME or DB_DSN")
		}
		return cfg.Name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
}

func hostPort(host string, port, fallback int) string {
	return net.JoinHostPort(hostOr(host), strconv.Itoa(portOr(port, fallback)))
}

func hostOr(host string) string {
	if host = strings.TrimSpace(host); host != "" {
		return host
	}
	return "localhost"
}

func portOr(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

func quoteKeyword(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}
