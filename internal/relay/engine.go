// Package relay authors outgoing messages, queues store-and-forward copies
// and garbage-collects stale records. Forwarding itself happens during an
// exchange; the engine owns everything around it.
package relay

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/cryptox"
	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/models"
	"github.com/okatenko/beamlink/internal/store/connections"
	"github.com/okatenko/beamlink/internal/store/messages"
	"github.com/okatenko/beamlink/internal/store/relays"
)

// DefaultRelayTTL is how long an undelivered relay copy is kept before the
// cleanup pass drops it.
const DefaultRelayTTL = 90 * 24 * time.Hour

// Engine queues messages and maintains the message and relay stores.
type Engine struct {
	profile  *models.Profile
	conns    connections.Repository
	messages messages.Repository
	relays   relays.Repository
	logger   logging.Logger
	relayTTL time.Duration
	now      func() time.Time
}

func NewEngine(profile *models.Profile, conns connections.Repository,
	msgs messages.Repository, rels relays.Repository,
	logger logging.Logger, relayTTL time.Duration) *Engine {
	if relayTTL <= 0 {
		relayTTL = DefaultRelayTTL
	}
	return &Engine{
		profile:  profile,
		conns:    conns,
		messages: msgs,
		relays:   rels,
		logger:   logger,
		relayTTL: relayTTL,
		now:      time.Now,
	}
}

// Queue authors a message to a known connection. The content is sealed to the
// recipient's encryption key and stored as a pending sent message; it leaves
// the device on the next exchange with that peer.
//
// When viaRelay is set, delivery switches to the store-and-forward queue: a
// relay record carries the ciphertext and the message record stays local
// bookkeeping, excluded from direct pending delivery by its relay flag.
func (e *Engine) Queue(ctx context.Context, targetDID, content string, viaRelay bool) (*models.Message, error) {
	if len([]rune(content)) > common.MaxMessageChars {
		return nil, common.ErrorMessageTooLong
	}

	target, err := e.conns.GetByDid(ctx, targetDID)
	if err != nil {
		return nil, err
	}

	pub, err := models.EncryptionPublicKey(target.PublicKey)
	if err != nil {
		return nil, err
	}
	ciphertext, err := cryptox.SealAnonymous([]byte(content), pub)
	if err != nil {
		return nil, err
	}

	targetName := target.FirstName + " " + target.LastName
	m := &models.Message{
		ID:            uuid.NewString(),
		SenderID:      e.profile.Identity.DID,
		SenderName:    e.profile.DisplayName(),
		RecipientID:   target.DID,
		RecipientName: targetName,
		Content:       content,
		Ciphertext:    ciphertext,
		CreatedAt:     e.now(),
		Status:        models.MessageStatusSent,
		IsRelay:       viaRelay,
	}
	if err := e.messages.Save(ctx, m); err != nil {
		return nil, err
	}

	if viaRelay {
		rel := &models.Relay{
			ID:               uuid.NewString(),
			MessageID:        m.ID,
			OriginSenderID:   m.SenderID,
			OriginSenderName: m.SenderName,
			TargetID:         target.DID,
			TargetName:       targetName,
			Ciphertext:       ciphertext,
			CreatedAt:        m.CreatedAt,
			Status:           models.RelayStatusPending,
		}
		if err := e.relays.Save(ctx, rel); err != nil {
			return nil, err
		}
	}

	e.logger.Info(ctx, "message queued", "id", m.ID, "to", target.DID, "relay", viaRelay)
	return m, nil
}

// CleanupStats reports what one maintenance pass removed.
type CleanupStats struct {
	ExpiredConnections int64
	StaleRelays        int64
}

// Cleanup drops expired connections and relays older than the engine's TTL.
func (e *Engine) Cleanup(ctx context.Context) (CleanupStats, error) {
	now := e.now()
	var stats CleanupStats

	dropped, err := e.conns.DeleteExpired(ctx, now)
	if err != nil {
		return stats, err
	}
	stats.ExpiredConnections = dropped

	dropped, err = e.relays.DeleteOlderThan(ctx, now.Add(-e.relayTTL))
	if err != nil {
		return stats, err
	}
	stats.StaleRelays = dropped

	if stats.ExpiredConnections > 0 || stats.StaleRelays > 0 {
		e.logger.Info(ctx, "cleanup pass",
			"expired_connections", stats.ExpiredConnections,
			"stale_relays", stats.StaleRelays)
	}
	return stats, nil
}

// RunPeriodic runs a cleanup pass immediately and then on every tick until
// the context is canceled.
func (e *Engine) RunPeriodic(ctx context.Context, interval time.Duration) {
	if _, err := e.Cleanup(ctx); err != nil {
		e.logger.Error(ctx, "cleanup failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Cleanup(ctx); err != nil {
				e.logger.Error(ctx, "cleanup failed", "error", err)
			}
		}
	}
}

// NearExpiration lists active connections that will expire within window,
// so the user can be nudged to reconnect.
func (e *Engine) NearExpiration(ctx context.Context, window time.Duration) ([]models.Connection, error) {
	return e.conns.ListNearExpiration(ctx, e.now(), window)
}
