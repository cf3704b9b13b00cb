package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/shoe-erp/internal/config"
)

// MySQLDSN builds the driver DSN. Multi statements and client-side
// interpolation are always enabled because the order detail read sends two
// parameterised statements in one batch; found-rows makes RowsAffected count
// matched rows.
func MySQLDSN(cfg config.MySQLConfig) (string, error) {
	var (
		mc  *mysql.Config
		err error
	)
	if cfg.DSN != "" {
		mc, err = mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
	} else {
		mc = mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Addr
		mc.DBName = cfg.Database
	}

	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.MultiStatements = true
	mc.InterpolateParams = true
	mc.ClientFoundRows = true

	return mc.FormatDSN(), nil
}

func OpenMySQL(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	dsn, err := MySQLDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}
