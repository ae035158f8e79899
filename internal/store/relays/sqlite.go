package relays

import (
	"context"
	"fmt"
	"time"

	"github.com/okatenko/beamlink/internal/dbx"
	"github.com/okatenko/beamlink/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, message_id, origin_sender_id, origin_sender_name, target_id, target_name,
	ciphertext, created_at, status`

func (r *SQLiteRepository) Save(ctx context.Context, rel *models.Relay) error {
	query := `INSERT INTO relays (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	status := rel.Status
	if status == "" {
		status = models.RelayStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		rel.ID, rel.MessageID, rel.OriginSenderID, rel.OriginSenderName,
		rel.TargetID, rel.TargetName, rel.Ciphertext, rel.CreatedAt.Unix(), status)
	if err != nil {
		return fmt.Errorf("failed to insert relay: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Relay, error) {
	return r.list(ctx, `SELECT `+columns+` FROM relays ORDER BY created_at`)
}

func (r *SQLiteRepository) ListForRecipient(ctx context.Context, did string) ([]models.Relay, error) {
	return r.list(ctx, `SELECT `+columns+` FROM relays WHERE target_id = ? ORDER BY created_at`, did)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM relays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relay: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM relays WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to gc relays: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Relay, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select relays: %w", err)
	}
	defer rows.Close()

	var result []models.Relay
	for rows.Next() {
		var rel models.Relay
		var createdAt int64
		if err := rows.Scan(&rel.ID, &rel.MessageID, &rel.OriginSenderID, &rel.OriginSenderName,
			&rel.TargetID, &rel.TargetName, &rel.Ciphertext, &createdAt, &rel.Status); err != nil {
			return nil, err
		}
		rel.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
