package connections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

const selectColumns = `id, did, public_key, first_name, last_name, nickname, bio, picture,
	first_connected_at, last_connected_at, expires_at, connection_count, backup_snapshot`

func (r *SQLiteRepository) GetByDid(ctx context.Context, did string) (*models.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM connections WHERE did = ?`, did)

	c, err := scanConnection(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select connection: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, in *models.Connection, now time.Time) (*models.Connection, error) {
	existing, err := r.GetByDid(ctx, in.DID)

	switch {
	case errors.Is(err, common.ErrorNotFound):
		c := *in
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.FirstConnectedAt = now
		c.LastConnectedAt = now
		c.ExpiresAt = now.Add(models.ConnectionTTL)
		c.ConnectionCount = 1
		c.BackupSnapshot = ""
		if err := r.insert(ctx, &c); err != nil {
			return nil, err
		}
		return &c, nil

	case err != nil:
		return nil, err

	default:
		snapshot, merr := json.Marshal(existing)
		if merr != nil {
			return nil, merr
		}
		existing.Merge(in)
		existing.LastConnectedAt = now
		existing.ExpiresAt = now.Add(models.ConnectionTTL)
		existing.ConnectionCount++
		existing.BackupSnapshot = string(snapshot)
		if err := r.update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
}

func (r *SQLiteRepository) insert(ctx context.Context, c *models.Connection) error {
	query := `INSERT INTO connections (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.DID, c.PublicKey, c.FirstName, c.LastName,
		nullable(c.Nickname), nullable(c.Bio), c.Picture,
		c.FirstConnectedAt.Unix(), c.LastConnectedAt.Unix(), c.ExpiresAt.Unix(),
		c.ConnectionCount, c.BackupSnapshot)
	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) update(ctx context.Context, c *models.Connection) error {
	query := `UPDATE connections SET public_key = ?, first_name = ?, last_name = ?,
		nickname = ?, bio = ?, picture = ?, last_connected_at = ?, expires_at = ?,
		connection_count = ?, backup_snapshot = ? WHERE did = ?`

	_, err := r.db.ExecContext(ctx, query,
		c.PublicKey, c.FirstName, c.LastName, nullable(c.Nickname), nullable(c.Bio), c.Picture,
		c.LastConnectedAt.Unix(), c.ExpiresAt.Unix(), c.ConnectionCount, c.BackupSnapshot, c.DID)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, now time.Time) ([]models.Connection, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM connections WHERE expires_at > ? ORDER BY last_connected_at DESC`,
		now.Unix())
}

func (r *SQLiteRepository) ListNearExpiration(ctx context.Context, now time.Time, window time.Duration) ([]models.Connection, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM connections WHERE expires_at > ? AND expires_at <= ? ORDER BY expires_at`,
		now.Unix(), now.Add(window).Unix())
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Connection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select connections: %w", err)
	}
	defer rows.Close()

	var result []models.Connection
	for rows.Next() {
		c, err := scanConnection(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, did string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE did = ?`, did)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired connections: %w", err)
	}
	return res.RowsAffected()
}

func scanConnection(scan func(dest ...any) error) (*models.Connection, error) {
	var c models.Connection
	var nickname, bio sql.NullString
	var firstAt, lastAt, expiresAt int64

	err := scan(&c.ID, &c.DID, &c.PublicKey, &c.FirstName, &c.LastName,
		&nickname, &bio, &c.Picture, &firstAt, &lastAt, &expiresAt,
		&c.ConnectionCount, &c.BackupSnapshot)
	if err != nil {
		return nil, err
	}

	if nickname.Valid {
		c.Nickname = &nickname.String
	}
	if bio.Valid {
		c.Bio = &bio.String
	}
	c.FirstConnectedAt = time.Unix(firstAt, 0)
	c.LastConnectedAt = time.Unix(lastAt, 0)
	c.ExpiresAt = time.Unix(expiresAt, 0)
	return &c, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
