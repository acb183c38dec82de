// Package auth verifies the shared presenter secret.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pkt.systems/tileboard/schema"
)

// Verifier checks presenter secrets. The zero value accepts everything
// (open access).
type Verifier struct {
	secret string
	hash   string
}

// NewVerifier builds a verifier from a plaintext secret and an optional
// bcrypt hash. The hash takes precedence when both are set.
func NewVerifier(secret, hash string) *Verifier {
	return &Verifier{
		secret: strings.TrimSpace(secret),
		hash:   strings.TrimSpace(hash),
	}
}

// Required reports whether presenters must supply a secret.
func (v *Verifier) Required() bool {
	if v == nil {
		return false
	}
	return v.secret != "" || v.hash != ""
}

// Verify checks a provided secret. Open verifiers accept anything.
// Mismatches return schema.ErrWrongPassword.
func (v *Verifier) Verify(provided string) error {
	if !v.Required() {
		return nil
	}
	if v.hash != "" {
		if bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(provided)) != nil {
			return schema.ErrWrongPassword
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(v.secret), []byte(provided)) != 1 {
		return schema.ErrWrongPassword
	}
	return nil
}

// HashSecret returns a bcrypt hash suitable for teacher_password_hash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
