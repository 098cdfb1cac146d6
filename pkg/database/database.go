package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simulacro-api/pkg/config"
)

const applicationName = "simulacro-api"

// Open connects to the driver selected by cfg.Driver. Repositories write
// their queries with '?' and rebind, so either driver serves the same code.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "", config.DriverPostgres:
		return NewPostgres(cfg)
	case config.DriverMySQL:
		return NewMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func configure(db *sqlx.DB, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s at %s: %w", db.DriverName(), hostPort(cfg.Host, cfg.Port), err)
	}
	return db, nil
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
