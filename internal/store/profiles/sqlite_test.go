package profiles

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE identities (
  did TEXT PRIMARY KEY,
  public_key TEXT NOT NULL,
  private_key TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE TABLE profiles (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  nickname TEXT,
  bio TEXT,
  picture BLOB,
  did TEXT NOT NULL REFERENCES identities(did),
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func newProfile(t *testing.T) *models.Profile {
	t.Helper()
	id, err := models.NewIdentity()
	require.NoError(t, err)
	now := time.Now()
	return &models.Profile{
		ID:        uuid.NewString(),
		FirstName: "Alice",
		LastName:  "Smith",
		Identity:  *id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := newProfile(t)
	require.NoError(t, r.Save(ctx, p))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, p.Identity.DID, got.Identity.DID)
	assert.Equal(t, p.Identity.PrivateKey, got.Identity.PrivateKey)
	assert.Nil(t, got.Nickname)
	assert.Nil(t, got.Bio)
}

func TestGet_NotFoundBeforeSetup(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.Get(context.Background())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSave_UpdatesExisting(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := newProfile(t)
	require.NoError(t, r.Save(ctx, p))

	bio := "likes long walks"
	p.Bio = &bio
	p.FirstName = "Alicia"
	require.NoError(t, r.Save(ctx, p))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
	require.NotNil(t, got.Bio)
	assert.Equal(t, bio, *got.Bio)
}

func TestReplaceIdentity(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := newProfile(t)
	require.NoError(t, r.Save(ctx, p))

	imported, err := models.NewIdentity()
	require.NoError(t, err)
	require.NoError(t, r.ReplaceIdentity(ctx, imported))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, imported.DID, got.Identity.DID)
}

func TestReplaceIdentity_NoProfile(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	id, err := models.NewIdentity()
	require.NoError(t, err)

	err = r.ReplaceIdentity(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrorNoProfile)
}
