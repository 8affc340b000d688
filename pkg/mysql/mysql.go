package mysql

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

// Config is read from MYSQL_* variables and provides the defaults for
// connections opened from the chat surfaces.
type Config struct {
	Host            string        `split_words:"true" default:"localhost"`
	Port            int           `split_words:"true" default:"3306"`
	User            string        `split_words:"true"`
	Password        string        `split_words:"true"`
	Database        string        `split_words:"true"`
	ConnectTimeout  time.Duration `split_words:"true" default:"5s"`
	MaxOpenConns    int           `split_words:"true" default:"5"`
	MaxIdleConns    int           `split_words:"true" default:"2"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
}

// Addr returns host:port, accepting a host that already carries a port.
func (c *Config) Addr() string {
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// DSN renders the go-sql-driver connection string.
func (c *Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Addr()
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Timeout = c.ConnectTimeout
	return cfg.FormatDSN()
}

// New opens a pool and verifies it with a ping.
func (c *Config) New(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, c.DSN())
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
