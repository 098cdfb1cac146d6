package database

import (
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/simulacro-api/pkg/config"
)

// NewMySQL opens a MySQL pool. Timestamps are parsed as UTC.
func NewMySQL(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	mcfg := mysql.NewConfig()
	mcfg.User = cfg.User
	mcfg.Passwd = cfg.Password
	mcfg.Net = "tcp"
	mcfg.Addr = hostPort(cfg.Host, cfg.Port)
	mcfg.DBName = cfg.Name
	mcfg.ParseTime = true
	mcfg.Loc = time.UTC
	mcfg.Timeout = 5 * time.Second
	mcfg.ConnectionAttributes = "program_name:" + applicationName

	db, err := sqlx.Open("mysql", mcfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	return configure(db, cfg)
}
