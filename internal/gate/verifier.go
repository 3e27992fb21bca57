package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptVerifier checks secrets against bcrypt hashes of a fixed operator set.
type BcryptVerifier struct {
	hashes map[string][]byte
	dummy  []byte
}

// NewBcryptVerifier builds a verifier from username to bcrypt hash.
func NewBcryptVerifier(hashes map[string]string) (*BcryptVerifier, error) {
	v := &BcryptVerifier{hashes: make(map[string][]byte, len(hashes))}
	for user, hash := range hashes {
		user = strings.TrimSpace(user)
		hash = strings.TrimSpace(hash)
		if user == "" || hash == "" {
			return nil, fmt.Errorf("gate: empty operator entry")
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("gate: operator %q: %w", user, err)
		}
		v.hashes[user] = []byte(hash)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("caza-2026-unknown-operator"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	v.dummy = dummy
	return v, nil
}

// ParseOperators reads "user:hash,user:hash" as found in the OPERATORS variable.
func ParseOperators(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, hash, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(user) == "" || strings.TrimSpace(hash) == "" {
			return nil, fmt.Errorf("gate: malformed operator entry %q", entry)
		}
		out[strings.TrimSpace(user)] = strings.TrimSpace(hash)
	}
	return out, nil
}

// Operators returns the number of configured operators.
func (v *BcryptVerifier) Operators() int {
	return len(v.hashes)
}

// Verify implements Verifier.
func (v *BcryptVerifier) Verify(_ context.Context, username, secret string) (bool, error) {
	hash, ok := v.hashes[username]
	if !ok {
		// Keep timing similar for unknown users.
		_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(secret))
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, username, secret string) (bool, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, username, secret string) (bool, error) {
	return f(ctx, username, secret)
}
