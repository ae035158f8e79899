package models

import "time"

// Profile is the local user's record. Exactly one per installation; it is
// mutated by profile updates and never deleted.
//
// Nickname and Bio are pointers so "not set" is distinct from "empty".
// Picture is nil when the user has no profile picture.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Nickname  *string
	Bio       *string
	Picture   []byte
	Identity  Identity
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the name shown to peers: nickname when set, otherwise
// "First Last".
func (p *Profile) DisplayName() string {
	if p.Nickname != nil && *p.Nickname != "" {
		return *p.Nickname
	}
	return p.FirstName + " " + p.LastName
}

// HasPicture reports picture presence without exposing the bytes; offer
// payloads carry only this flag, never the image itself.
func (p *Profile) HasPicture() bool {
	return len(p.Picture) > 0
}
