// Package handshake implements the optical-code handshake: the payload
// schemas that travel inside the two scanned codes, and the connection state
// machine that drives a transport session from them.
package handshake

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/okatenko/beamlink/internal/models"
)

// PayloadType discriminates every encodable payload.
type PayloadType string

const (
	PayloadTypeConnection PayloadType = "connection"
	PayloadTypeAnswer     PayloadType = "connection_answer"
	PayloadTypeOnboarding PayloadType = "onboarding"
)

// ProfileCard is the public slice of a profile bundled into an offer.
// ProfilePicture is a presence flag only; image bytes never enter an optical
// code.
type ProfileCard struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Nickname       *string `json:"nickname,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	ProfilePicture bool    `json:"profilePicture"`
}

// ConnectionPayload is the offer code: local identity plus the transport
// offer descriptor.
type ConnectionPayload struct {
	Type         PayloadType `json:"type"`
	DID          string      `json:"did"`
	PublicKey    string      `json:"publicKey"`
	Profile      ProfileCard `json:"profile"`
	Timestamp    int64       `json:"timestamp"`
	SessionOffer string      `json:"sessionOffer"`
}

// AnswerPayload is the answer code. DID echoes the did of the offer that was
// scanned, so the offerer can cross-check it against its own.
type AnswerPayload struct {
	Type          PayloadType `json:"type"`
	DID           string      `json:"did"`
	SessionAnswer string      `json:"sessionAnswer"`
	Timestamp     int64       `json:"timestamp"`
}

// Onboarding is the alternate URL form of a scanned code: a referral link
// instead of a live handshake.
type Onboarding struct {
	DID      string
	PubKey   string
	Name     string
	Referrer string
}

// NewConnectionPayload bundles a profile's public fields with a transport
// offer descriptor.
func NewConnectionPayload(p *models.Profile, sessionOffer string) *ConnectionPayload {
	return &ConnectionPayload{
		Type:      PayloadTypeConnection,
		DID:       p.Identity.DID,
		PublicKey: p.Identity.PublicKey,
		Profile: ProfileCard{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Nickname:       p.Nickname,
			Bio:            p.Bio,
			ProfilePicture: p.HasPicture(),
		},
		Timestamp:    time.Now().Unix(),
		SessionOffer: sessionOffer,
	}
}

// Scanned is the decoded form of one scanned optical code. Exactly one of
// the three pointers is set.
type Scanned struct {
	Type       PayloadType
	Connection *ConnectionPayload
	Answer     *AnswerPayload
	Onboarding *Onboarding
}

// ParseScanned decodes raw scanner output. JSON payloads must carry a known
// type discriminator; non-JSON input is checked for the onboarding URL form
// before being rejected as unparseable.
func ParseScanned(data []byte) (*Scanned, error) {
	var probe struct {
		Type PayloadType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		if ob, ok := parseOnboardingURL(string(data)); ok {
			return &Scanned{Type: PayloadTypeOnboarding, Onboarding: ob}, nil
		}
		return nil, Wrap(KindPayloadParse, "scanned data is not a valid payload", err)
	}

	switch probe.Type {
	case PayloadTypeConnection:
		var p ConnectionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, Wrap(KindPayloadParse, "malformed connection payload", err)
		}
		if p.DID == "" || !models.ValidDID(p.DID) {
			return nil, New(KindPayloadParse, "connection payload carries no valid did")
		}
		return &Scanned{Type: PayloadTypeConnection, Connection: &p}, nil

	case PayloadTypeAnswer:
		var p AnswerPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, Wrap(KindPayloadParse, "malformed answer payload", err)
		}
		return &Scanned{Type: PayloadTypeAnswer, Answer: &p}, nil

	default:
		return nil, New(KindUnsupportedPayload, "unsupported payload type "+string(probe.Type))
	}
}

func parseOnboardingURL(s string) (*Onboarding, bool) {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return nil, false
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	q := u.Query()
	if q.Get("type") != string(PayloadTypeOnboarding) {
		return nil, false
	}
	return &Onboarding{
		DID:      q.Get("did"),
		PubKey:   q.Get("pubKey"),
		Name:     q.Get("name"),
		Referrer: q.Get("referrer"),
	}, true
}
