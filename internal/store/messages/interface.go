// Package messages persists Message records.
package messages

import (
	"context"

	"github.com/okatenko/beamlink/internal/models"
)

type Repository interface {
	// Save inserts or replaces a message by id.
	Save(ctx context.Context, m *models.Message) error

	// InsertIfAbsent inserts the message unless a record with the same id
	// already exists. Reports whether a row was actually inserted.
	InsertIfAbsent(ctx context.Context, m *models.Message) (bool, error)

	// GetByID returns a message, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Message, error)

	// ListReceived lists locally received messages, newest first.
	ListReceived(ctx context.Context) ([]models.Message, error)

	// ListSent lists locally authored messages, newest first.
	ListSent(ctx context.Context) ([]models.Message, error)

	// PendingFor lists sent, non-relay messages addressed to the given did
	// that have not been delivered yet.
	PendingFor(ctx context.Context, did string) ([]models.Message, error)

	// MarkDelivered flips the status of the given message ids to delivered.
	MarkDelivered(ctx context.Context, ids []string) error
}
