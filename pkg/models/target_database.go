package models

import (
	"time"

	"github.com/google/uuid"
)

// Dialect identifies the SQL dialect of a registered target database.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectPostgreSQL Dialect = "postgresql"
	DialectSQLServer  Dialect = "sqlserver"
	DialectOracle     Dialect = "oracle"
	DialectH2         Dialect = "h2"
)

// Dialects lists every dialect the engine knows how to build a
// connection string for.
var Dialects = []Dialect{
	DialectMySQL,
	DialectPostgreSQL,
	DialectSQLServer,
	DialectOracle,
	DialectH2,
}

// Valid reports whether d is a known dialect.
func (d Dialect) Valid() bool {
	switch d {
	case DialectMySQL, DialectPostgreSQL, DialectSQLServer, DialectOracle, DialectH2:
		return true
	}
	return false
}

// TargetDatabase describes one external database registered by a user.
// Lifecycle (create/update/delete) is owned by the config store; the
// engine only reads these records.
type TargetDatabase struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Dialect  Dialect   `json:"dialect"`
	Host     string    `json:"host"`
	Port     int       `json:"port,omitempty"` // 0 means use the dialect default
	FilePath string    `json:"file_path,omitempty"`
	Username string    `json:"username"`
	Password string    `json:"-"` // never serialized or logged
	Database string    `json:"database"`

	CreatedAt time.Time `json:"created_at"`
}
