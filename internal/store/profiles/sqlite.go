package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

func (r *SQLiteRepository) Get(ctx context.Context) (*models.Profile, error) {
	query := `SELECT p.id, p.first_name, p.last_name, p.nickname, p.bio, p.picture,
			p.created_at, p.updated_at, i.did, i.public_key, i.private_key, i.created_at
		FROM profiles p JOIN identities i ON i.did = p.did LIMIT 1`

	var p models.Profile
	var nickname, bio sql.NullString
	var createdAt, updatedAt, idCreatedAt int64

	err := r.db.QueryRowContext(ctx, query).Scan(
		&p.ID, &p.FirstName, &p.LastName, &nickname, &bio, &p.Picture,
		&createdAt, &updatedAt,
		&p.Identity.DID, &p.Identity.PublicKey, &p.Identity.PrivateKey, &idCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}

	if nickname.Valid {
		p.Nickname = &nickname.String
	}
	if bio.Valid {
		p.Bio = &bio.String
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	p.Identity.CreatedAt = time.Unix(idCreatedAt, 0)

	return &p, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.Profile) error {
	identityQuery := `INSERT INTO identities (did, public_key, private_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE SET public_key = excluded.public_key,
			private_key = excluded.private_key`

	_, err := r.db.ExecContext(ctx, identityQuery,
		p.Identity.DID, p.Identity.PublicKey, p.Identity.PrivateKey, p.Identity.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	profileQuery := `INSERT INTO profiles (id, first_name, last_name, nickname, bio, picture, did, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET first_name = excluded.first_name,
			last_name = excluded.last_name,
			nickname = excluded.nickname,
			bio = excluded.bio,
			picture = excluded.picture,
			did = excluded.did,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, profileQuery,
		p.ID, p.FirstName, p.LastName, nullable(p.Nickname), nullable(p.Bio), p.Picture,
		p.Identity.DID, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceIdentity(ctx context.Context, id *models.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (did, public_key, private_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE SET public_key = excluded.public_key,
			private_key = excluded.private_key`,
		id.DID, id.PublicKey, id.PrivateKey, id.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET did = ?`, id.DID)
	if err != nil {
		return fmt.Errorf("failed to repoint profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNoProfile
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
