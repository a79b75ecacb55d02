// Package repositories provides pgx data access for the engine store:
// registered target databases, sessions, conversation turns and usage
// counters.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dbchat-ai/dbchat-engine/pkg/apperrors"
	"github.com/dbchat-ai/dbchat-engine/pkg/crypto"
	"github.com/dbchat-ai/dbchat-engine/pkg/database"
	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// DatasourceRepository provides data access for registered target
// databases.
type DatasourceRepository interface {
	Create(ctx context.Context, target *models.TargetDatabase) error
	Get(ctx context.Context, id uuid.UUID, userID string) (*models.TargetDatabase, error)
	ListByUser(ctx context.Context, userID string) ([]*models.TargetDatabase, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type datasourceRepository struct {
	db  *database.DB
	enc *crypto.CredentialEncryptor
}

// NewDatasourceRepository creates a new DatasourceRepository. With a
// non-nil encryptor, target-database passwords are encrypted at rest.
func NewDatasourceRepository(db *database.DB, enc *crypto.CredentialEncryptor) DatasourceRepository {
	return &datasourceRepository{db: db, enc: enc}
}

var _ DatasourceRepository = (*datasourceRepository)(nil)

func (r *datasourceRepository) encryptPassword(plaintext string) (string, error) {
	if r.enc == nil {
		return plaintext, nil
	}
	return r.enc.Encrypt(plaintext)
}

func (r *datasourceRepository) decryptPassword(stored string) (string, error) {
	if r.enc == nil {
		return stored, nil
	}
	return r.enc.Decrypt(stored)
}

func (r *datasourceRepository) Create(ctx context.Context, target *models.TargetDatabase) error {
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	target.CreatedAt = time.Now()

	password, err := r.encryptPassword(target.Password)
	if err != nil {
		return fmt.Errorf("failed to encrypt target password: %w", err)
	}

	query := `
		INSERT INTO target_databases (
			id, user_id, name, dialect, host, port, file_path,
			username, password, database_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		target.ID, target.UserID, target.Name, target.Dialect,
		target.Host, target.Port, target.FilePath,
		target.Username, password, target.Database, target.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create target database: %w", err)
	}
	return nil
}

// Get loads a target database scoped to its owner. A connection
// registered by one user is invisible to every other user.
func (r *datasourceRepository) Get(ctx context.Context, id uuid.UUID, userID string) (*models.TargetDatabase, error) {
	query := `
		SELECT id, user_id, name, dialect, host, port, file_path,
			username, password, database_name, created_at
		FROM target_databases
		WHERE id = $1 AND user_id = $2`

	var target models.TargetDatabase
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&target.ID, &target.UserID, &target.Name, &target.Dialect,
		&target.Host, &target.Port, &target.FilePath,
		&target.Username, &target.Password, &target.Database, &target.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target database: %w", err)
	}
	if target.Password, err = r.decryptPassword(target.Password); err != nil {
		return nil, fmt.Errorf("failed to decrypt target password: %w", err)
	}
	return &target, nil
}

func (r *datasourceRepository) ListByUser(ctx context.Context, userID string) ([]*models.TargetDatabase, error) {
	query := `
		SELECT id, user_id, name, dialect, host, port, file_path,
			username, password, database_name, created_at
		FROM target_databases
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list target databases: %w", err)
	}
	defer rows.Close()

	var targets []*models.TargetDatabase
	for rows.Next() {
		var target models.TargetDatabase
		err := rows.Scan(
			&target.ID, &target.UserID, &target.Name, &target.Dialect,
			&target.Host, &target.Port, &target.FilePath,
			&target.Username, &target.Password, &target.Database, &target.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target database: %w", err)
		}
		if target.Password, err = r.decryptPassword(target.Password); err != nil {
			return nil, fmt.Errorf("failed to decrypt target password: %w", err)
		}
		targets = append(targets, &target)
	}
	return targets, rows.Err()
}

func (r *datasourceRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM target_databases WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete target database: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
