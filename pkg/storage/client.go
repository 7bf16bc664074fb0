// Package storage persists subscriber watchlists through gorm, on postgres
// or a local sqlite file.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"perpscanner/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Client struct {
	DB *gorm.DB
}

// NewClient wraps an open dialector and migrates the watchlist table.
func NewClient(dialector gorm.Dialector) (*Client, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := &Client{DB: db}
	if err := client.AutoMigrateWatchlist(); err != nil {
		return nil, err
	}
	return client, nil
}

// Open connects using the configured driver, optionally creating the postgres
// database first.
func Open(cfg config.StorageConfig, env string) (*Client, error) {
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.CreateDatabase {
			if err := CreateDatabase(cfg.Postgres); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		return NewClient(postgres.Open(cfg.Postgres.DSN(env)))

	case DriverSQLite, "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return NewClient(sqlite.Open(cfg.SQLitePath))

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func (c *Client) AutoMigrateWatchlist() error {
	if err := c.DB.AutoMigrate(&WatchlistRecord{}); err != nil {
		return fmt.Errorf("auto-migrate watchlist table: %w", err)
	}
	return nil
}

// IsHealthy pings the underlying connection pool.
func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
