package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ResetGuard checks the shared secret presented to the daily reset endpoint.
type ResetGuard struct {
	secret []byte
	hash   []byte
}

// NewResetGuard accepts a plain secret, a bcrypt hash of it, or both. With neither
// configured every check fails.
func NewResetGuard(secret, secretHash string) *ResetGuard {
	g := &ResetGuard{}
	if secret != "" {
		g.secret = []byte(secret)
	}
	if h := strings.TrimSpace(secretHash); h != "" {
		g.hash = []byte(h)
	}
	return g
}

// Check returns ErrUnauthorized unless key matches.
func (g *ResetGuard) Check(key string) error {
	if key == "" {
		return fmt.Errorf("%w: missing reset key", ErrUnauthorized)
	}
	if len(g.hash) > 0 && bcrypt.CompareHashAndPassword(g.hash, []byte(key)) == nil {
		return nil
	}
	if len(g.secret) > 0 && subtle.ConstantTimeCompare(g.secret, []byte(key)) == 1 {
		return nil
	}
	return fmt.Errorf("%w: reset key mismatch", ErrUnauthorized)
}
