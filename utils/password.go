package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// dummyHash stands in for accounts without a password so a failed lookup costs as
// much as a failed comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("knowledge-nexus-placeholder"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty hash (unknown user or
// OAuth-only account) never matches but still runs a full bcrypt comparison.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordAcceptable applies the registration length rules; bcrypt ignores bytes past 72.
func PasswordAcceptable(password string) bool {
	return len(password) >= minPasswordLen && len(password) <= 72
}
