package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/logging"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// Executor runs validated SELECT statements against target databases.
// It must only ever receive queries that passed the security gate.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor creates a query executor.
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger.Named("executor")}
}

// Execute opens one connection to the target database, runs the single
// statement, and maps every row into a record keyed by result column
// label (not physical column name, so aliases are honored). Statement,
// cursor and connection are closed on every path.
func (e *Executor) Execute(ctx context.Context, target *models.TargetDatabase, query string) (*models.ExecutionResult, error) {
	driverName, dsn, err := BuildDSN(target)
	if err != nil {
		// Configuration error: unknown dialect, no connection attempted.
		return nil, err
	}

	e.logger.Debug("executing query",
		zap.String("dialect", string(target.Dialect)),
		zap.String("dsn", logging.SanitizeDSN(dsn)),
		zap.String("query", logging.SanitizeQuery(query)))

	start := time.Now()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, classifyConnectionError(err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, classifyConnectionError(err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapExecutionError(err)
	}
	defer rows.Close()

	columns, resultRows, err := scanRows(rows)
	if err != nil {
		return nil, wrapExecutionError(err)
	}

	elapsed := time.Since(start).Milliseconds()
	e.logger.Info("query executed",
		zap.Int("rows", len(resultRows)),
		zap.Int64("elapsed_ms", elapsed))

	return &models.ExecutionResult{
		Success:   true,
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		ElapsedMs: elapsed,
	}, nil
}

// scanRows maps a result cursor into generic records. Column order is
// preserved in the returned label slice; duplicate labels overwrite
// within each row map.
func scanRows(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read result columns: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, label := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			record[label] = val
		}
		resultRows = append(resultRows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return columns, resultRows, nil
}

// wrapExecutionError classifies a failure that happened after the
// connection was established.
func wrapExecutionError(err error) error {
	switch {
	case apperrors.IsTimeout(err):
		return apperrors.New(apperrors.CategoryTimeout, "the query timed out", err)
	case apperrors.IsSchemaNotFound(err):
		return apperrors.New(apperrors.CategorySchemaNotFound, "the query referenced a table or column that does not exist", err)
	}
	return fmt.Errorf("query execution failed: %w", err)
}
