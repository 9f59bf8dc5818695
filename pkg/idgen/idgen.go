// Package idgen mints learner identities and auth tokens. Learner ids are a
// pure function of the endpoint; tokens are signed with a secret that is
// either configured or generated for the process lifetime, and carry their
// issue time. Nothing is persisted across restarts, matching spec.md's
// non-goal.
package idgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fedgo/controller/pkg/model"
)

// learnerNamespace is a fixed namespace UUID so that GenerateLearnerID is
// stable across process restarts for the same endpoint, per spec.md §4.2
// ("id is a deterministic function of endpoint"). Any fixed UUID works;
// this one is arbitrary but never changes.
var learnerNamespace = uuid.MustParse("6f6e9b2a-6e1e-4e2a-9f0a-1f3c6e9b2a6f")

// GenerateLearnerID computes a deterministic id from a learner's endpoint.
// Re-admitting the same endpoint always yields the same id, so a second
// AddLearner for it is detected as a duplicate registration.
func GenerateLearnerID(ep model.Endpoint) string {
	name := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	return uuid.NewSHA1(learnerNamespace, []byte(name)).String()
}

// TokenMinter issues and verifies per-learner auth tokens. Tokens are
// signed JWTs carrying the learner id and an issued-at time as claims, so a stolen token
// cannot be replayed against a different learner id and cannot be forged
// without the secret — resolving spec.md §9's call to replace the
// reference's sequence-number token with something unguessable.
type TokenMinter struct {
	secret []byte
}

// NewTokenMinter builds a minter from a configured secret. An empty secret
// generates a random 256-bit one, valid for this process's lifetime only.
func NewTokenMinter(configuredSecret string) (*TokenMinter, error) {
	if configuredSecret != "" {
		return &TokenMinter{secret: []byte(configuredSecret)}, nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	return &TokenMinter{secret: secret}, nil
}

type learnerClaims struct {
	LearnerID string `json:"lid"`
	jwt.RegisteredClaims
}

// Mint issues a new auth token for learnerID.
func (m *TokenMinter) Mint(learnerID string) (string, error) {
	claims := learnerClaims{
		LearnerID: learnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify reports whether token is a valid, unexpired token minted for
// learnerID.
func (m *TokenMinter) Verify(learnerID, token string) bool {
	if token == "" {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, &learnerClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(*learnerClaims)
	return ok && claims.LearnerID == learnerID
}
