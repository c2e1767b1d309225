package model

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"glory-ledger/internal/domain"
)

// Coupon is a single-use code worth a fixed number of credits.
type Coupon struct {
	Code       string     `json:"code"`
	Basic      int64      `json:"basic"`
	Premium    int64      `json:"premium"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	RedeemedBy *string    `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

func NewCoupon(createdBy string, basic, premium int64) (*Coupon, error) {
	if basic < 0 || premium < 0 {
		return nil, domain.Invalid("credits", "must not be negative")
	}
	if basic == 0 && premium == 0 {
		return nil, domain.Invalid("credits", "coupon must carry at least one credit")
	}
	code, err := GenerateCouponCode()
	if err != nil {
		return nil, err
	}
	return &Coupon{
		Code:      code,
		Basic:     basic,
		Premium:   premium,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (c *Coupon) Redeemed() bool { return c != nil && c.RedeemedBy != nil }

// couponAlphabet avoids ambiguous characters like O/0 and I/1.
const couponAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCouponCode returns a random code formatted XXXX-XXXX-XXXX.
func GenerateCouponCode() (string, error) {
	const codeLength = 12
	buf := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = couponAlphabet[int(buf[i])%len(couponAlphabet)]
	}
	return string(buf[0:4]) + "-" + string(buf[4:8]) + "-" + string(buf[8:12]), nil
}

// NormalizeCouponCode upper-cases and trims user input.
func NormalizeCouponCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
