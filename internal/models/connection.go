package models

import "time"

// ConnectionTTL is how long a connection stays valid after the last
// successful handshake.
const ConnectionTTL = 365 * 24 * time.Hour

// Connection is a remote peer the local user has completed a handshake with,
// keyed uniquely by DID. Re-handshaking with a known DID updates the record
// instead of creating a new one.
type Connection struct {
	ID               string
	DID              string
	PublicKey        string
	FirstName        string
	LastName         string
	Nickname         *string
	Bio              *string
	Picture          []byte
	FirstConnectedAt time.Time
	LastConnectedAt  time.Time
	ExpiresAt        time.Time
	ConnectionCount  int64
	BackupSnapshot   string
}

// Merge applies the repeat-handshake update policy: non-empty
// incoming fields overwrite, empty or absent fields preserve the existing
// values. Timestamps, count and snapshot are managed by the repository, not
// here.
func (c *Connection) Merge(in *Connection) {
	if in.PublicKey != "" {
		c.PublicKey = in.PublicKey
	}
	if in.FirstName != "" {
		c.FirstName = in.FirstName
	}
	if in.LastName != "" {
		c.LastName = in.LastName
	}
	if in.Nickname != nil {
		c.Nickname = in.Nickname
	}
	if in.Bio != nil {
		c.Bio = in.Bio
	}
	if len(in.Picture) > 0 {
		c.Picture = in.Picture
	}
}

// Expired reports whether the connection has passed its expiry at the given
// instant.
func (c *Connection) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
