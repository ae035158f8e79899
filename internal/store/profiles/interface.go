// Package profiles persists the single local Profile and its Identity.
package profiles

import (
	"context"

	"github.com/okatenko/beamlink/internal/models"
)

type Repository interface {
	// Get returns the local profile, or common.ErrorNotFound before setup.
	Get(ctx context.Context) (*models.Profile, error)

	// Save upserts the profile and its identity.
	Save(ctx context.Context, p *models.Profile) error

	// ReplaceIdentity swaps the stored identity wholesale (identity import)
	// and points the profile at it.
	ReplaceIdentity(ctx context.Context, id *models.Identity) error
}
