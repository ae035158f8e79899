// Package connections persists remote peers keyed by DID and enforces the
// merge/expiry invariants of the record model.
package connections

import (
	"context"
	"time"

	"github.com/okatenko/beamlink/internal/models"
)

type Repository interface {
	// GetByDid returns the connection for did, or common.ErrorNotFound.
	GetByDid(ctx context.Context, did string) (*models.Connection, error)

	// Upsert commits a handshake result. A new DID creates a record with
	// connection_count=1; a known DID is merged (non-empty incoming fields
	// win), its count incremented, expiry recomputed and the previous state
	// kept as backup snapshot. The stored record is returned.
	Upsert(ctx context.Context, in *models.Connection, now time.Time) (*models.Connection, error)

	// ListActive returns non-expired connections ordered by last contact.
	ListActive(ctx context.Context, now time.Time) ([]models.Connection, error)

	// ListNearExpiration returns active connections expiring within window.
	ListNearExpiration(ctx context.Context, now time.Time, window time.Duration) ([]models.Connection, error)

	// Delete removes a connection by did.
	Delete(ctx context.Context, did string) error

	// DeleteExpired removes every connection whose expiry has passed and
	// returns how many were dropped.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
