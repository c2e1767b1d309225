package model

import (
	"strings"
	"time"

	"glory-ledger/internal/domain"

	"github.com/google/uuid"
)

// User is a dashboard account with its two credit counters.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	BasicCredits   int64     `json:"basic_credits"`
	PremiumCredits int64     `json:"premium_credits"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const maxUsernameLen = 64

// NewUser validates and builds a user with an optional initial grant.
func NewUser(id, username string, initialBasic, initialPremium int64) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Invalid("username", "must not be empty")
	}
	if len(username) > maxUsernameLen {
		return nil, domain.Invalid("username", "too long")
	}
	if initialBasic < 0 || initialPremium < 0 {
		return nil, domain.Invalid("credits", "initial grant must not be negative")
	}
	now := time.Now().UTC()
	return &User{
		ID:             id,
		Username:       username,
		BasicCredits:   initialBasic,
		PremiumCredits: initialPremium,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) Balances() Balances {
	return Balances{UserID: u.ID, BasicCredits: u.BasicCredits, PremiumCredits: u.PremiumCredits}
}
