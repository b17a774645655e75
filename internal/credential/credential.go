// Package credential decodes scanned access tokens into claimed
// identities. The member app renders its token as a QR code containing a
// small JSON payload; nothing here verifies the person, it only
// establishes which member is claimed. Admission rules live in gate.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gymgate/internal/database"
)

// ErrInvalidToken means the token could not be decoded or is stale. Not a
// failure: no identity was established this cycle.
var ErrInvalidToken = errors.New("invalid credential token")

// clockSkew tolerates member devices with a slightly fast clock.
const clockSkew = 30 * time.Second

// Payload is the JSON the member app encodes into its QR code. The
// timestamp is refreshed client-side so captured screenshots expire.
type Payload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// Decoder validates scanned payloads.
type Decoder struct {
	maxAge time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

// NewDecoder creates a decoder that rejects payloads older than maxAge.
// A maxAge of zero disables the age check.
func NewDecoder(maxAge time.Duration) *Decoder {
	return &Decoder{maxAge: maxAge, now: time.Now}
}

// Decode parses a scanned token and returns the normalized claimed
// identity. All failures wrap ErrInvalidToken.
func (d *Decoder) Decode(token string) (string, error) {
	var p Payload
	if err := json.Unmarshal([]byte(token), &p); err != nil {
		return "", fmt.Errorf("%w: not a JSON payload", ErrInvalidToken)
	}

	if _, err := uuid.Parse(p.ID); err != nil {
		return "", fmt.Errorf("%w: malformed member id", ErrInvalidToken)
	}

	identity := database.NormalizeIdentity(p.Email)
	if identity == "" {
		return "", fmt.Errorf("%w: missing email", ErrInvalidToken)
	}

	if d.maxAge > 0 {
		now := d.now().UTC()
		if p.Timestamp.IsZero() {
			return "", fmt.Errorf("%w: missing timestamp", ErrInvalidToken)
		}
		if p.Timestamp.After(now.Add(clockSkew)) {
			return "", fmt.Errorf("%w: timestamp in the future", ErrInvalidToken)
		}
		if now.Sub(p.Timestamp) > d.maxAge {
			return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
	}

	return identity, nil
}
