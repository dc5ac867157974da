// Package ticket issues tickets, signs their QR payloads and runs the
// check-in workflow.
package ticket

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/partystacker/internal/model"
)

// QR verification errors.  Their messages are shown to door staff.
var (
	ErrQRFormat    = errors.New("invalid QR code format")
	ErrQRSignature = errors.New("invalid signature")
	ErrQRExpired   = errors.New("QR code expired")
)

// DefaultQRMaxAge is how long a QR payload stays valid after signing.
const DefaultQRMaxAge = 24 * time.Hour

// Signer produces and checks QR payload signatures with a shared secret.
type Signer struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer.  maxAge <= 0 disables expiry.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: secret, maxAge: maxAge, now: time.Now}
}

// signature is the hex SHA-256 of the payload fields followed by the secret.
func (s *Signer) signature(p model.QRPayload) string {
	sum := sha256.Sum256([]byte(p.TicketID + p.EventID + p.OwnerAddress + string(p.Tier) +
		strconv.FormatInt(p.Timestamp, 10) + s.secret))
	return hex.EncodeToString(sum[:])
}

// Sign builds the payload for a ticket and returns it together with its
// base64 JSON encoding.
func (s *Signer) Sign(ticketID, eventID, owner string, tier model.TierName, at time.Time) (string, model.QRPayload, error) {
	p := model.QRPayload{
		TicketID:     ticketID,
		EventID:      eventID,
		OwnerAddress: owner,
		Tier:         tier,
		Timestamp:    at.UnixMilli(),
	}
	p.Signature = s.signature(p)
	b, err := json.Marshal(p)
	if err != nil {
		return "", model.QRPayload{}, err
	}
	return base64.StdEncoding.EncodeToString(b), p, nil
}

// Verify decodes a QR blob and checks its signature and age.
func (s *Signer) Verify(blob string) (*model.QRPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrQRFormat
	}
	var p model.QRPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.TicketID == "" {
		return nil, ErrQRFormat
	}
	want := s.signature(p)
	if subtle.ConstantTimeCompare([]byte(want), []byte(p.Signature)) != 1 {
		return nil, ErrQRSignature
	}
	if s.maxAge > 0 && s.now().Sub(time.UnixMilli(p.Timestamp)) > s.maxAge {
		return &p, ErrQRExpired
	}
	return &p, nil
}
