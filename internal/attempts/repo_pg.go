package attempts

import (
	"context"
	"database/sql"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Record(ctx context.Context, attempt Attempt) error {
	if attempt.ID == "" || attempt.UserID == "" {
		return ErrInvalidInput
	}
	const query = `
INSERT INTO face_attempts (id, user_id, kind, success, matches, processed, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		attempt.ID,
		attempt.UserID,
		string(attempt.Kind),
		attempt.Success,
		attempt.Matches,
		attempt.Processed,
		nullableString(attempt.Message),
		attempt.CreatedAt,
	)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	const query = `
SELECT id, user_id, kind, success, matches, processed, message, created_at
FROM face_attempts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a       Attempt
			kind    string
			message sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &kind, &a.Success, &a.Matches, &a.Processed, &message, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = Kind(kind)
		if message.Valid {
			a.Message = message.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
