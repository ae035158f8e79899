// Package relays persists store-and-forward Relay records.
package relays

import (
	"context"
	"time"

	"github.com/okatenko/beamlink/internal/models"
)

type Repository interface {
	// Save inserts a relay record.
	Save(ctx context.Context, rel *models.Relay) error

	// ListAll lists every pending relay, oldest first.
	ListAll(ctx context.Context) ([]models.Relay, error)

	// ListForRecipient lists pending relays targeted at the given did.
	ListForRecipient(ctx context.Context, did string) ([]models.Relay, error)

	// Delete removes a relay by id (after successful delivery).
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan garbage-collects relays created before the cutoff and
	// returns how many were dropped.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
