package settle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TicketIssuer signs compact settlement tickets over an assembled bundle.
// The ticket is the credential an external settlement client presents
// alongside the bundle; this module knows nothing about the ledger itself.
type TicketIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTicketIssuer constructs an issuer. A zero ttl defaults to one hour.
func NewTicketIssuer(secret []byte, issuer string, ttl time.Duration) (*TicketIssuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("ticket secret is required")
	}
	if issuer == "" {
		return nil, fmt.Errorf("ticket issuer is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TicketIssuer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// BundleDigest returns the hex sha256 of the bundle's canonical JSON form.
func BundleDigest(b *Bundle) (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Issue signs an HS256 ticket binding the bundle digest, winner and prize
// card to the game id.
func (t *TicketIssuer) Issue(b *Bundle) (string, error) {
	digest, err := BundleDigest(b)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":        t.issuer,
		"sub":        b.GameID,
		"iat":        now.Unix(),
		"exp":        now.Add(t.ttl).Unix(),
		"bundle_sha": digest,
		"winner":     int(b.Winner),
		"prize_card": int(b.PrizeCardID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a ticket and checks it against the bundle it claims to cover.
func (t *TicketIssuer) Verify(ticket string, b *Bundle) error {
	parsed, err := jwt.Parse(ticket, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("unexpected claims type")
	}

	digest, err := BundleDigest(b)
	if err != nil {
		return err
	}
	if claims["bundle_sha"] != digest {
		return fmt.Errorf("ticket does not cover this bundle")
	}
	if claims["sub"] != b.GameID {
		return fmt.Errorf("ticket bound to a different game")
	}
	return nil
}
