package relays

import (
	"context"
	"database/sql"
	"testing"
	"time"

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
CREATE TABLE relays (
  id TEXT PRIMARY KEY,
  message_id TEXT NOT NULL,
  origin_sender_id TEXT NOT NULL,
  origin_sender_name TEXT NOT NULL DEFAULT '',
  target_id TEXT NOT NULL,
  target_name TEXT NOT NULL DEFAULT '',
  ciphertext BLOB NOT NULL,
  created_at INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending'
);
`)
	require.NoError(t, err)
	return db
}

func relay(id, target string, createdAt time.Time) *models.Relay {
	return &models.Relay{
		ID:             id,
		MessageID:      "msg-" + id,
		OriginSenderID: "did:beam:me",
		TargetID:       target,
		Ciphertext:     []byte("ct"),
		CreatedAt:      createdAt,
	}
}

func TestSaveAndListForRecipient(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, relay("r1", "did:beam:bob", time.Now())))
	require.NoError(t, r.Save(ctx, relay("r2", "did:beam:carol", time.Now())))

	got, err := r.ListForRecipient(ctx, "did:beam:bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, models.RelayStatusPending, got[0].Status)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, relay("r1", "did:beam:bob", time.Now())))
	require.NoError(t, r.Delete(ctx, "r1"))

	got, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteOlderThan(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, r.Save(ctx, relay("stale", "did:beam:gone", now.Add(-100*24*time.Hour))))
	require.NoError(t, r.Save(ctx, relay("recent", "did:beam:bob", now)))

	n, err := r.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].ID)
}
