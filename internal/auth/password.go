package auth

import (
	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher falls back to bcrypt.DefaultCost for an out-of-range cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &PasswordHasher{cost: cost, dummy: dummy}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyNothing burns the same time as a failed Verify so unknown emails
// cannot be told apart from wrong passwords by latency.
func (h *PasswordHasher) VerifyNothing(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
