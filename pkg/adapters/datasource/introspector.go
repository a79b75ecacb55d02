package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// bookkeepingTables are migration-tool tables hidden from the model.
// The schema document describes the user's data, not tooling state.
var bookkeepingTables = map[string]bool{
	"schema_migrations":     true,
	"flyway_schema_history": true,
}

// introspectionQueries holds the metadata statements for one dialect.
// Each takes a single scope argument in the dialect's native
// placeholder style: the catalog for catalog-scoped dialects, the
// schema name otherwise.
type introspectionQueries struct {
	tables      string
	columns     string
	primaryKeys string
	foreignKeys string
	indexes     string
}

var introspection = map[models.Dialect]introspectionQueries{
	models.DialectMySQL: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = ? AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT table_name, column_name, data_type,
				COALESCE(character_maximum_length, numeric_precision, 0),
				is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_schema = ?
			ORDER BY table_name, ordinal_position`,
		primaryKeys: `SELECT table_name, column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = ? AND constraint_name = 'PRIMARY'
			ORDER BY table_name, ordinal_position`,
		foreignKeys: `SELECT kcu.table_name, kcu.column_name,
				kcu.referenced_table_name, kcu.referenced_column_name,
				rc.update_rule, rc.delete_rule
			FROM information_schema.key_column_usage kcu
			JOIN information_schema.referential_constraints rc
				ON rc.constraint_schema = kcu.table_schema
				AND rc.constraint_name = kcu.constraint_name
			WHERE kcu.table_schema = ? AND kcu.referenced_table_name IS NOT NULL
			ORDER BY kcu.table_name, kcu.ordinal_position`,
		indexes: `SELECT table_name, index_name, column_name, non_unique = 0
			FROM information_schema.statistics
			WHERE table_schema = ?
			ORDER BY table_name, index_name, seq_in_index`,
	},
	models.DialectPostgreSQL: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = $1 AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT table_name, column_name, data_type,
				COALESCE(character_maximum_length, numeric_precision, 0),
				is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_schema = $1
			ORDER BY table_name, ordinal_position`,
		primaryKeys: `SELECT tc.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_schema = tc.constraint_schema
				AND kcu.constraint_name = tc.constraint_name
			WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
			ORDER BY tc.table_name, kcu.ordinal_position`,
		foreignKeys: `SELECT tc.table_name, kcu.column_name,
				ccu.table_name, ccu.column_name,
				rc.update_rule, rc.delete_rule
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_schema = tc.constraint_schema
				AND kcu.constraint_name = tc.constraint_name
			JOIN information_schema.referential_constraints rc
				ON rc.constraint_schema = tc.constraint_schema
				AND rc.constraint_name = tc.constraint_name
			JOIN information_schema.constraint_column_usage ccu
				ON ccu.constraint_schema = rc.unique_constraint_schema
				AND ccu.constraint_name = rc.unique_constraint_name
			WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
			ORDER BY tc.table_name, kcu.ordinal_position`,
		indexes: `SELECT t.relname, i.relname, a.attname, ix.indisunique
			FROM pg_class t
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_index ix ON ix.indrelid = t.oid
			JOIN pg_class i ON i.oid = ix.indexrelid
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE n.nspname = $1 AND t.relkind = 'r'
			ORDER BY t.relname, i.relname`,
	},
	models.DialectSQLServer: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_catalog = @p1 AND table_schema = 'dbo'
				AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT table_name, column_name, data_type,
				COALESCE(character_maximum_length, numeric_precision, 0),
				is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_catalog = @p1 AND table_schema = 'dbo'
			ORDER BY table_name, ordinal_position`,
		primaryKeys: `SELECT tc.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name
			WHERE tc.table_catalog = @p1 AND tc.table_schema = 'dbo'
				AND tc.constraint_type = 'PRIMARY KEY'
			ORDER BY tc.table_name, kcu.ordinal_position`,
		foreignKeys: `SELECT kcu.table_name, kcu.column_name,
				kcu2.table_name, kcu2.column_name,
				rc.update_rule, rc.delete_rule
			FROM information_schema.referential_constraints rc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = rc.constraint_name
			JOIN information_schema.key_column_usage kcu2
				ON kcu2.constraint_name = rc.unique_constraint_name
				AND kcu2.ordinal_position = kcu.ordinal_position
			WHERE rc.constraint_catalog = @p1
			ORDER BY kcu.table_name, kcu.ordinal_position`,
		indexes: `SELECT t.name, i.name, c.name, i.is_unique
			FROM sys.indexes i
			JOIN sys.tables t ON t.object_id = i.object_id
			JOIN sys.index_columns ic
				ON ic.object_id = i.object_id AND ic.index_id = i.index_id
			JOIN sys.columns c
				ON c.object_id = ic.object_id AND c.column_id = ic.column_id
			WHERE i.name IS NOT NULL AND DB_NAME() = @p1
			ORDER BY t.name, i.name, ic.key_ordinal`,
	},
}

// Introspector extracts a full schema snapshot from a target database.
type Introspector struct {
	logger *zap.Logger
}

// NewIntrospector creates a schema introspector.
func NewIntrospector(logger *zap.Logger) *Introspector {
	return &Introspector{logger: logger.Named("introspector")}
}

// Introspect connects to the target database and reads its tables,
// columns, primary keys, foreign keys and indexes into one document.
// Extraction is all-or-nothing: any metadata query failure aborts the
// snapshot rather than returning a partial schema the model would then
// hallucinate around.
func (in *Introspector) Introspect(ctx context.Context, target *models.TargetDatabase) (*models.SchemaDocument, error) {
	driverName, dsn, err := BuildDSN(target)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, classifyConnectionError(err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, classifyConnectionError(err)
	}

	doc, err := introspectDB(ctx, db, target)
	if err != nil {
		return nil, err
	}

	in.logger.Info("schema extracted",
		zap.String("database", target.Database),
		zap.String("dialect", string(target.Dialect)),
		zap.Int("tables", len(doc.Tables)))
	return doc, nil
}

// introspectDB runs the metadata queries against an open handle. Split
// out so tests can drive it with a mock connection.
func introspectDB(ctx context.Context, db *sql.DB, target *models.TargetDatabase) (*models.SchemaDocument, error) {
	queries, ok := introspection[target.Dialect]
	if !ok {
		return nil, fmt.Errorf("schema introspection is not supported for dialect %q", target.Dialect)
	}

	info, err := resolveDialect(target)
	if err != nil {
		return nil, err
	}
	scope := info.catalog(target)
	if scope == "" {
		scope = info.schemaPattern(target)
	}

	doc := &models.SchemaDocument{
		DatabaseName: target.Database,
		Dialect:      target.Dialect,
		ExtractedAt:  time.Now().UTC(),
	}
	// Indexes into doc.Tables, not pointers: appending to the slice
	// while listing tables would leave pointers into a stale backing
	// array.
	byName := make(map[string]int)

	err = eachRow(ctx, db, queries.tables, scope, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if bookkeepingTables[strings.ToLower(name)] {
			return nil
		}
		doc.Tables = append(doc.Tables, models.SchemaTable{Name: name})
		byName[name] = len(doc.Tables) - 1
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	err = eachRow(ctx, db, queries.columns, scope, func(rows *sql.Rows) error {
		var (
			table, column, dataType, nullable string
			size                              sql.NullInt64
			ordinal                           int
		)
		if err := rows.Scan(&table, &column, &dataType, &size, &nullable, &ordinal); err != nil {
			return err
		}
		i, ok := byName[table]
		if !ok {
			return nil
		}
		t := &doc.Tables[i]
		t.Columns = append(t.Columns, models.SchemaColumn{
			Name:     column,
			DataType: dataType,
			Size:     size.Int64,
			Nullable: strings.EqualFold(nullable, "YES"),
			Ordinal:  ordinal,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	err = eachRow(ctx, db, queries.primaryKeys, scope, func(rows *sql.Rows) error {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if i, ok := byName[table]; ok {
			t := &doc.Tables[i]
			t.PrimaryKey = append(t.PrimaryKey, column)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list primary keys: %w", err)
	}

	err = eachRow(ctx, db, queries.foreignKeys, scope, func(rows *sql.Rows) error {
		var table, column, refTable, refColumn, updateRule, deleteRule string
		if err := rows.Scan(&table, &column, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return err
		}
		if i, ok := byName[table]; ok {
			t := &doc.Tables[i]
			t.ForeignKeys = append(t.ForeignKeys, models.ForeignKeyEdge{
				Column:           column,
				ReferencedTable:  refTable,
				ReferencedColumn: refColumn,
				UpdateRule:       updateRule,
				DeleteRule:       deleteRule,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	err = eachRow(ctx, db, queries.indexes, scope, func(rows *sql.Rows) error {
		var (
			table, index, column string
			unique               bool
		)
		if err := rows.Scan(&table, &index, &column, &unique); err != nil {
			return err
		}
		if i, ok := byName[table]; ok {
			t := &doc.Tables[i]
			t.Indexes = append(t.Indexes, models.SchemaIndex{
				Name:   index,
				Column: column,
				Unique: unique,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	return doc, nil
}

// eachRow runs query with the scope argument and invokes scan for every
// row, closing the cursor on all paths.
func eachRow(ctx context.Context, db *sql.DB, query, scope string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, scope)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
