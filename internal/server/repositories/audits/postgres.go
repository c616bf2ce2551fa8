package audits

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *models.AuditLog) error {

	query :=
		`INSERT INTO audit_log (user_id, action, details, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		userID, entry.Action, entry.Details, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listQuery = `SELECT a.id, a.user_id, COALESCE(u.username, 'SYSTEM'), a.action, a.details, a.created_at
	 FROM audit_log a
	 LEFT JOIN users u ON u.id = a.user_id
	 `

func (r *PostgresRepository) scanRows(rows *sql.Rows) ([]*models.AuditLog, error) {
	var result []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		var userID sql.NullInt64
		if err := rows.Scan(&e.ID, &userID, &e.Username, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	query := listQuery + `ORDER BY a.created_at DESC, a.id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *PostgresRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AuditLog, error) {
	query := listQuery + `WHERE a.user_id = $1 ORDER BY a.created_at DESC, a.id DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return r.scanRows(rows)
}
