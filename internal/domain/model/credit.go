package model

import (
	"math"
	"strings"

	"glory-ledger/internal/domain"
)

type CreditType string

const (
	CreditBasic   CreditType = "basic"
	CreditPremium CreditType = "premium"
)

func (c CreditType) Valid() bool { return c == CreditBasic || c == CreditPremium }

// ParseCreditType accepts "basic" or "premium" in any case.
func ParseCreditType(s string) (CreditType, error) {
	c := CreditType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", domain.Invalid("credit_type", "must be basic or premium")
	}
	return c, nil
}

// Balances is the pair of independent counters held per user.
type Balances struct {
	UserID         string `json:"user_id"`
	BasicCredits   int64  `json:"basic_credits"`
	PremiumCredits int64  `json:"premium_credits"`
}

// Apply adds the deltas counter by counter, clamping each result at zero.
func (b Balances) Apply(dBasic, dPremium int64) Balances {
	b.BasicCredits = clampAdd(b.BasicCredits, dBasic)
	b.PremiumCredits = clampAdd(b.PremiumCredits, dPremium)
	return b
}

// CreditDelta returns the (basic, premium) pair that grants n credits of type c.
func CreditDelta(c CreditType, n int64) (int64, int64) {
	if c == CreditPremium {
		return 0, n
	}
	return n, 0
}

// clampAdd returns max(0, cur+delta), saturating at math.MaxInt64.
func clampAdd(cur, delta int64) int64 {
	switch {
	case delta > 0 && cur > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && cur < math.MinInt64-delta:
		return 0
	}
	v := cur + delta
	if v < 0 {
		return 0
	}
	return v
}
