package mysql

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNRoundTrip(t *testing.T) {
	cfg := Config{
		Host:           "db.internal",
		Port:           3307,
		User:           "analyst",
		Password:       "p@ss:word",
		Database:       "retail_db",
		ConnectTimeout: 4 * time.Second,
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "analyst", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "retail_db", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 4*time.Second, parsed.Timeout)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "localhost:3306", (&Config{Host: "localhost"}).Addr())
	assert.Equal(t, "127.0.0.1:3310", (&Config{Host: "127.0.0.1:3310", Port: 3306}).Addr())
	assert.Equal(t, "example.com:4000", (&Config{Host: "example.com", Port: 4000}).Addr())
}
