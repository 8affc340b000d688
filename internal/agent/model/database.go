package model

import "context"

// Database is a connected user database the assistant can describe and query.
type Database interface {
	// Schema returns the table definitions and sample rows fed to the SQL model.
	Schema(ctx context.Context) (string, error)

	// Execute runs a single statement and returns its rows.
	Execute(ctx context.Context, query string) (*QueryResult, error)
}

// DatabaseProvider resolves the database attached to a conversation.
type DatabaseProvider interface {
	Lookup(conversationID string) (Database, error)
}

// ConnectionParams are the sidebar connection settings. Empty fields fall
// back to the configured MYSQL_* defaults.
type ConnectionParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}
