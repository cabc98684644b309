package service

import (
	"crypto/subtle"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash stored for newly registered users.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MatchPassword compares a supplied password with a stored value. The
// credential relations are not consistent: rows written by registration hold
// bcrypt hashes, imported rows may hold crypt(3) hashes, and older rows hold
// plaintext. Anything without a recognised hash prefix is compared verbatim.
func MatchPassword(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	switch {
	case isBcrypt(stored):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	case strings.HasPrefix(stored, "$1$"), strings.HasPrefix(stored, "$5$"), strings.HasPrefix(stored, "$6$"):
		return cryptFor(stored).Verify(stored, []byte(supplied)) == nil
	default:
		return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
	}
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func cryptFor(hash string) crypt.Crypter {
	switch hash[:3] {
	case "$1$":
		return md5_crypt.New()
	case "$5$":
		return sha256_crypt.New()
	default:
		return sha512_crypt.New()
	}
}
