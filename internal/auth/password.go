// Package auth holds credential handling: password hashing, session tokens
// and verification codes.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const legacyUnsaltedPrefix = "hashed_"

// PasswordHasher hashes new passwords and checks stored ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare reports whether password matches stored and whether stored
	// should be replaced by a fresh Hash.
	Compare(password, stored string) (ok bool, rehash bool)
}

// BcryptHasher hashes with bcrypt and still accepts the two reversible
// formats written by earlier clients:
//
//	<salt>:<reverse(password+salt)>
//	hashed_<reverse(password)>
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using bcrypt.DefaultCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(password, stored string) (bool, bool) {
	if stored == "" {
		return false, false
	}
	if isBcrypt(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if err != nil {
			return false, false
		}
		return true, false
	}
	return compareLegacy(password, stored), true
}

func isBcrypt(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

func compareLegacy(password, stored string) bool {
	salt, hash, found := strings.Cut(stored, ":")
	if !found || salt == "" || hash == "" {
		return constantEqual(stored, legacyUnsaltedPrefix+reverse(password))
	}
	return constantEqual(hash, reverse(password+salt))
}

func constantEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
