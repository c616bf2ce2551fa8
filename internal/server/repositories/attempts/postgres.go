package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {

	query :=
		`INSERT INTO login_attempts (user_id, username, attempt_time, success, source_address)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	var userID sql.NullInt64
	if attempt.UserID != nil {
		userID = sql.NullInt64{Int64: *attempt.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		userID, attempt.Username, attempt.AttemptTime, attempt.Success, attempt.SourceAddress).
		Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CountRecentFailed(ctx context.Context, username string, window time.Duration) (int, error) {

	query :=
		`SELECT count(*) FROM login_attempts
		 WHERE username = $1 AND success = false AND attempt_time > $2
		 `

	var n int
	cutoff := time.Now().Add(-window)
	if err := r.db.QueryRowContext(ctx, query, username, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) DeleteFailed(ctx context.Context, username string) error {
	query := `DELETE FROM login_attempts WHERE username = $1 AND success = false`

	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {

	query :=
		`SELECT id, user_id, username, attempt_time, success, source_address
		 FROM login_attempts
		 WHERE username = $1
		 ORDER BY attempt_time DESC, id DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.LoginAttempt
	for rows.Next() {
		a := &models.LoginAttempt{}
		var userID sql.NullInt64
		if err := rows.Scan(&a.ID, &userID, &a.Username, &a.AttemptTime, &a.Success, &a.SourceAddress); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			a.UserID = &id
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
