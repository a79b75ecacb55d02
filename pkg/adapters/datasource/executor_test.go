package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

func TestScanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"customer", "total"}).
			AddRow([]byte("Acme Corp"), 1250).
			AddRow([]byte("Globex"), nil))

	rows, err := db.Query("SELECT customer, total FROM orders")
	require.NoError(t, err)
	defer rows.Close()

	columns, records, err := scanRows(rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"customer", "total"}, columns)
	require.Len(t, records, 2)
	// Byte slices are converted to strings for display and JSON.
	assert.Equal(t, "Acme Corp", records[0]["customer"])
	assert.EqualValues(t, 1250, records[0]["total"])
	assert.Nil(t, records[1]["total"])
}

func TestScanRows_AliasedLabels(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"month", "revenue"}).
			AddRow("2026-01", 9000))

	rows, err := db.Query("SELECT created AS month, SUM(total) AS revenue FROM orders")
	require.NoError(t, err)
	defer rows.Close()

	columns, records, err := scanRows(rows)
	require.NoError(t, err)

	// Records are keyed by the result label, not the physical column.
	assert.Equal(t, []string{"month", "revenue"}, columns)
	assert.Equal(t, "2026-01", records[0]["month"])
}

func TestScanRows_EmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	rows, err := db.Query("SELECT name FROM products WHERE 1=0")
	require.NoError(t, err)
	defer rows.Close()

	columns, records, err := scanRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, columns)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestExecute_UnsupportedDialect(t *testing.T) {
	exec := NewExecutor(zap.NewNop())
	_, err := exec.Execute(context.Background(), &models.TargetDatabase{
		Dialect: "foxpro", Name: "legacy",
	}, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestWrapExecutionError(t *testing.T) {
	schemaErr := errors.New("Error 1054: Unknown column 'revenue' in 'field list'")
	wrapped := wrapExecutionError(schemaErr)
	assert.Equal(t, apperrors.CategorySchemaNotFound, apperrors.Classify(wrapped))
	assert.ErrorIs(t, wrapped, schemaErr)

	timeoutErr := wrapExecutionError(context.DeadlineExceeded)
	assert.Equal(t, apperrors.CategoryTimeout, apperrors.Classify(timeoutErr))

	plain := wrapExecutionError(errors.New("syntax error at or near FROM"))
	assert.Equal(t, apperrors.CategoryUnclassified, apperrors.Classify(plain))
}
