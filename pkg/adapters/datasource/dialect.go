// Package datasource opens short-lived connections to user-registered
// target databases for schema introspection and validated query
// execution. Connections are never pooled: each is opened, used once
// and closed within the same call, trading setup cost for isolation.
package datasource

import (
	"fmt"
	"net/url"

	"github.com/dbchat-ai/dbchat-engine/pkg/models"

	// Target-database drivers. Oracle and H2 have no pure-Go driver
	// here; their DSNs are built but sql.Open fails with an unknown
	// driver error, surfaced as the driver-missing category.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// dialectInfo is one entry of the dialect strategy table: driver name,
// default port, DSN construction and metadata scoping rules.
type dialectInfo struct {
	driverName  string
	defaultPort int

	// buildDSN renders the driver connection string. port is already
	// resolved against the default.
	buildDSN func(db *models.TargetDatabase, port int) string

	// catalog returns the catalog value for dialects that scope
	// metadata by catalog (the database name), or "".
	catalog func(db *models.TargetDatabase) string

	// schemaPattern returns the schema filter for schema-scoped
	// dialects, or "".
	schemaPattern func(db *models.TargetDatabase) string
}

var dialects = map[models.Dialect]dialectInfo{
	models.DialectMySQL: {
		driverName:  "mysql",
		defaultPort: 3306,
		buildDSN: func(db *models.TargetDatabase, port int) string {
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
				db.Username, db.Password, db.Host, port, db.Database)
		},
		catalog:       func(db *models.TargetDatabase) string { return db.Database },
		schemaPattern: func(db *models.TargetDatabase) string { return "" },
	},
	models.DialectPostgreSQL: {
		driverName:  "pgx",
		defaultPort: 5432,
		buildDSN: func(db *models.TargetDatabase, port int) string {
			return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=prefer",
				url.QueryEscape(db.Username), url.QueryEscape(db.Password),
				db.Host, port, db.Database)
		},
		catalog:       func(db *models.TargetDatabase) string { return "" },
		schemaPattern: func(db *models.TargetDatabase) string { return "public" },
	},
	models.DialectSQLServer: {
		driverName:  "sqlserver",
		defaultPort: 1433,
		buildDSN: func(db *models.TargetDatabase, port int) string {
			return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
				url.QueryEscape(db.Username), url.QueryEscape(db.Password),
				db.Host, port, url.QueryEscape(db.Database))
		},
		catalog:       func(db *models.TargetDatabase) string { return db.Database },
		schemaPattern: func(db *models.TargetDatabase) string { return "dbo" },
	},
	models.DialectOracle: {
		driverName:  "oracle",
		defaultPort: 1521,
		buildDSN: func(db *models.TargetDatabase, port int) string {
			return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
				url.QueryEscape(db.Username), url.QueryEscape(db.Password),
				db.Host, port, db.Database)
		},
		catalog:       func(db *models.TargetDatabase) string { return "" },
		schemaPattern: func(db *models.TargetDatabase) string { return db.Username },
	},
	models.DialectH2: {
		driverName:  "h2",
		defaultPort: 9092,
		buildDSN: func(db *models.TargetDatabase, port int) string {
			path := db.FilePath
			if path == "" {
				path = db.Database
			}
			return fmt.Sprintf("h2://%s:%d/%s", db.Host, port, path)
		},
		catalog:       func(db *models.TargetDatabase) string { return "" },
		schemaPattern: func(db *models.TargetDatabase) string { return "PUBLIC" },
	},
}

// resolveDialect returns the strategy-table entry for db's dialect.
// Unknown dialects fail fast with a configuration error; no connection
// is ever attempted for them.
func resolveDialect(db *models.TargetDatabase) (dialectInfo, error) {
	info, ok := dialects[db.Dialect]
	if !ok {
		return dialectInfo{}, fmt.Errorf("unsupported dialect %q for database %s", db.Dialect, db.Name)
	}
	return info, nil
}

// BuildDSN renders the driver connection string for db, applying the
// dialect's default port when none is configured.
func BuildDSN(db *models.TargetDatabase) (driverName, dsn string, err error) {
	info, err := resolveDialect(db)
	if err != nil {
		return "", "", err
	}
	port := db.Port
	if port == 0 {
		port = info.defaultPort
	}
	return info.driverName, info.buildDSN(db, port), nil
}
