package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordMismatch covers both a wrong password and an unknown account.
var ErrPasswordMismatch = errors.New("password does not match")

// dummyHashes holds one throwaway hash per cost, used for unknown accounts.
var dummyHashes sync.Map

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies plain against a stored hash.
func ComparePassword(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// RejectPassword spends one bcrypt comparison at cost and always fails, so a
// login for an account that does not exist takes as long as a wrong password.
func RejectPassword(plain string, cost int) error {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(plain))
	return ErrPasswordMismatch
}

func dummyHash(cost int) []byte {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("unknown-account-placeholder"), cost)
	if err != nil {
		return nil
	}
	actual, _ := dummyHashes.LoadOrStore(cost, h)
	return actual.([]byte)
}
