package messages

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
CREATE TABLE messages (
  id TEXT PRIMARY KEY,
  sender_id TEXT NOT NULL,
  sender_name TEXT NOT NULL DEFAULT '',
  recipient_id TEXT NOT NULL,
  recipient_name TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  ciphertext BLOB NOT NULL,
  created_at INTEGER NOT NULL,
  status TEXT NOT NULL,
  is_relay INTEGER NOT NULL DEFAULT 0
);
`)
	require.NoError(t, err)
	return db
}

func message(id, sender, recipient string, status models.MessageStatus) *models.Message {
	return &models.Message{
		ID:          id,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     "hello",
		Ciphertext:  []byte("ct-" + id),
		CreatedAt:   time.Now(),
		Status:      status,
	}
}

func TestInsertIfAbsent_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	m := message("m1", "did:beam:a", "did:beam:b", models.MessageStatusReceived)

	inserted, err := r.InsertIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = r.InsertIfAbsent(ctx, m)
	require.NoError(t, err)
	assert.False(t, inserted, "same id must not be stored twice")

	got, err := r.ListReceived(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPendingFor_FiltersByRecipientStatusAndRelayFlag(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, message("m1", "me", "did:beam:bob", models.MessageStatusSent)))
	require.NoError(t, r.Save(ctx, message("m2", "me", "did:beam:carol", models.MessageStatusSent)))
	require.NoError(t, r.Save(ctx, message("m3", "me", "did:beam:bob", models.MessageStatusDelivered)))

	relayed := message("m4", "me", "did:beam:bob", models.MessageStatusSent)
	relayed.IsRelay = true
	require.NoError(t, r.Save(ctx, relayed))

	pending, err := r.PendingFor(ctx, "did:beam:bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m1", pending[0].ID)
}

func TestMarkDelivered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, message("m1", "me", "did:beam:bob", models.MessageStatusSent)))
	require.NoError(t, r.Save(ctx, message("m2", "me", "did:beam:bob", models.MessageStatusSent)))

	require.NoError(t, r.MarkDelivered(ctx, []string{"m1", "m2"}))

	pending, err := r.PendingFor(ctx, "did:beam:bob")
	require.NoError(t, err)
	assert.Empty(t, pending)

	m, err := r.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, m.Status)
}

func TestMarkDelivered_EmptyIDs(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	require.NoError(t, r.MarkDelivered(context.Background(), nil))
}

func TestListSent_IncludesDelivered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, message("m1", "me", "did:beam:bob", models.MessageStatusSent)))
	require.NoError(t, r.Save(ctx, message("m2", "me", "did:beam:bob", models.MessageStatusDelivered)))
	require.NoError(t, r.Save(ctx, message("m3", "did:beam:bob", "me", models.MessageStatusReceived)))

	sent, err := r.ListSent(ctx)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}
