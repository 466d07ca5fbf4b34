// Package database opens bun handles for the call log store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects the driver and DSN. An empty DSN disables persistence.
type Config struct {
	Driver          string        `split_words:"true" default:"sqlite"`
	DSN             string        `envconfig:"DSN"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"30m"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case DriverPostgres, DriverSQLite, "":
		return nil
	default:
		return fmt.Errorf("%w: unsupported database driver %q", contractx.ErrValidation, c.Driver)
	}
}

// Open returns a bun.DB for the configured driver and verifies the connection.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: database dsn is required", contractx.ErrValidation)
	}

	var db *bun.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serializes writers; one connection keeps :memory: databases shared
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
