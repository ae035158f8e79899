package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okatenko/beamlink/internal/common"
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

const columns = `id, sender_id, sender_name, recipient_id, recipient_name, content,
	ciphertext, created_at, status, is_relay`

func (r *SQLiteRepository) Save(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO messages (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.SenderID, m.SenderName, m.RecipientID, m.RecipientName,
		m.Content, m.Ciphertext, m.CreatedAt.Unix(), string(m.Status), boolToInt(m.IsRelay))
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, m *models.Message) (bool, error) {
	query := `INSERT OR IGNORE INTO messages (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.SenderID, m.SenderName, m.RecipientID, m.RecipientName,
		m.Content, m.Ciphertext, m.CreatedAt.Unix(), string(m.Status), boolToInt(m.IsRelay))
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select message: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListReceived(ctx context.Context) ([]models.Message, error) {
	return r.list(ctx,
		`SELECT `+columns+` FROM messages WHERE status = ? ORDER BY created_at DESC`,
		string(models.MessageStatusReceived))
}

func (r *SQLiteRepository) ListSent(ctx context.Context) ([]models.Message, error) {
	return r.list(ctx,
		`SELECT `+columns+` FROM messages WHERE status IN (?, ?) ORDER BY created_at DESC`,
		string(models.MessageStatusSent), string(models.MessageStatusDelivered))
}

func (r *SQLiteRepository) PendingFor(ctx context.Context, did string) ([]models.Message, error) {
	return r.list(ctx,
		`SELECT `+columns+` FROM messages
		WHERE recipient_id = ? AND status = ? AND is_relay = 0 ORDER BY created_at`,
		did, string(models.MessageStatusSent))
}

func (r *SQLiteRepository) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	args = append(args, string(models.MessageStatusDelivered))
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark messages delivered: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanMessage(scan func(dest ...any) error) (*models.Message, error) {
	var m models.Message
	var createdAt int64
	var status string
	var isRelay int

	err := scan(&m.ID, &m.SenderID, &m.SenderName, &m.RecipientID, &m.RecipientName,
		&m.Content, &m.Ciphertext, &createdAt, &status, &isRelay)
	if err != nil {
		return nil, err
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	m.Status = models.MessageStatus(status)
	m.IsRelay = isRelay != 0
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
