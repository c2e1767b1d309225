//go:build !integration

package model

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"glory-ledger/internal/domain"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user with zero balances", func(t *testing.T) {
		user, err := NewUser("", "  raider  ", 0, 0)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be generated")
		}
		if user.Username != "raider" {
			t.Errorf("expected trimmed username 'raider', got %q", user.Username)
		}
		if user.BasicCredits != 0 || user.PremiumCredits != 0 {
			t.Errorf("expected zero balances, got %+v", user.Balances())
		}
	})

	t.Run("should accept an initial grant", func(t *testing.T) {
		user, err := NewUser("u-1", "raider", 3, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b := user.Balances(); b.BasicCredits != 3 || b.PremiumCredits != 1 || b.UserID != "u-1" {
			t.Errorf("unexpected balances %+v", b)
		}
	})

	t.Run("should reject empty username and negative grants", func(t *testing.T) {
		if _, err := NewUser("", " ", 0, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty username, got %v", err)
		}
		if _, err := NewUser("", "raider", -1, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for negative grant, got %v", err)
		}
	})
}

// --- Balance Tests ---

func TestBalancesApply_ClampsAtZero(t *testing.T) {
	cases := []struct {
		name             string
		start            Balances
		dBasic, dPremium int64
		want             Balances
	}{
		{"add", Balances{BasicCredits: 1, PremiumCredits: 2}, 4, 0, Balances{BasicCredits: 5, PremiumCredits: 2}},
		{"remove within balance", Balances{BasicCredits: 4}, -3, 0, Balances{BasicCredits: 1}},
		{"remove more than held", Balances{BasicCredits: 4}, -10, 0, Balances{BasicCredits: 0}},
		{"independent counters", Balances{BasicCredits: 4, PremiumCredits: 1}, 2, -5, Balances{BasicCredits: 6, PremiumCredits: 0}},
		{"saturates at max", Balances{BasicCredits: 5}, math.MaxInt64, 0, Balances{BasicCredits: math.MaxInt64}},
		{"max stays max", Balances{PremiumCredits: math.MaxInt64}, 0, 1, Balances{PremiumCredits: math.MaxInt64}},
		{"min removes all", Balances{BasicCredits: 5, PremiumCredits: 3}, math.MinInt64, -math.MaxInt64, Balances{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.start.Apply(tc.dBasic, tc.dPremium)
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCreditDelta(t *testing.T) {
	if b, p := CreditDelta(CreditBasic, 5); b != 5 || p != 0 {
		t.Errorf("basic delta = (%d,%d)", b, p)
	}
	if b, p := CreditDelta(CreditPremium, 3); b != 0 || p != 3 {
		t.Errorf("premium delta = (%d,%d)", b, p)
	}
}

func TestParseCreditType(t *testing.T) {
	if c, err := ParseCreditType(" Premium "); err != nil || c != CreditPremium {
		t.Errorf("got %q, %v", c, err)
	}
	if _, err := ParseCreditType("gold"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// --- Pricing Tests ---

func TestPriceTableQuote(t *testing.T) {
	p := DefaultPriceTable()

	amt, err := p.Quote(CreditPremium, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amt.Equal(decimal.RequireFromString("45.00")) {
		t.Errorf("expected 45.00, got %s", amt)
	}

	amt, _ = p.Quote(CreditBasic, 5)
	if !amt.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected 5, got %s", amt)
	}

	if _, err := p.Quote(CreditBasic, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero credits, got %v", err)
	}
}

// --- PurchaseRequest Tests ---

func TestNewPurchaseRequest(t *testing.T) {
	t.Run("should build a pending request", func(t *testing.T) {
		r, err := NewPurchaseRequest("u-1", CreditBasic, 5, decimal.NewFromInt(5), " tx-123 ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Status != RequestStatusPending {
			t.Errorf("expected pending, got %s", r.Status)
		}
		if r.ConfirmedAt != nil {
			t.Error("pending request must not carry confirmedAt")
		}
		if r.ExternalReference != "tx-123" {
			t.Errorf("expected trimmed reference, got %q", r.ExternalReference)
		}
		if r.ID == "" {
			t.Error("expected an id")
		}
	})

	invalid := []struct {
		name    string
		credits int64
		amount  decimal.Decimal
		ref     string
		field   string
	}{
		{"zero credits", 0, decimal.Zero, "tx", "credits"},
		{"negative credits", -2, decimal.Zero, "tx", "credits"},
		{"empty reference", 1, decimal.NewFromInt(1), "   ", "external_reference"},
		{"long reference", 1, decimal.NewFromInt(1), strings.Repeat("x", 200), "external_reference"},
		{"negative amount", 1, decimal.NewFromInt(-1), "tx", "amount_due"},
	}
	for _, tc := range invalid {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			_, err := NewPurchaseRequest("u-1", CreditBasic, tc.credits, tc.amount, tc.ref)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestPurchaseRequestDecide(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("confirm stamps confirmedAt", func(t *testing.T) {
		r, _ := NewPurchaseRequest("u-1", CreditBasic, 1, decimal.NewFromInt(1), "tx")
		if err := r.Decide(RequestStatusConfirmed, "admin", at); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.ConfirmedAt == nil || !r.ConfirmedAt.Equal(at) {
			t.Errorf("expected confirmedAt %v, got %v", at, r.ConfirmedAt)
		}
	})

	t.Run("reject leaves confirmedAt nil", func(t *testing.T) {
		r, _ := NewPurchaseRequest("u-1", CreditBasic, 1, decimal.NewFromInt(1), "tx")
		if err := r.Decide(RequestStatusRejected, "admin", at); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.ConfirmedAt != nil {
			t.Error("rejected request must not carry confirmedAt")
		}
	})

	t.Run("terminal requests never move again", func(t *testing.T) {
		r, _ := NewPurchaseRequest("u-1", CreditBasic, 1, decimal.NewFromInt(1), "tx")
		_ = r.Decide(RequestStatusRejected, "admin", at)
		if err := r.Decide(RequestStatusConfirmed, "admin", at); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
		if r.Status != RequestStatusRejected {
			t.Errorf("status changed to %s", r.Status)
		}
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		r, _ := NewPurchaseRequest("u-1", CreditBasic, 1, decimal.NewFromInt(1), "tx")
		if err := r.Decide(RequestStatusPending, "admin", at); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRequestFilterNormalize(t *testing.T) {
	f := RequestFilter{Limit: 0, Offset: -5}.Normalize()
	if f.Limit != DefaultListLimit || f.Offset != 0 {
		t.Errorf("unexpected normalize %+v", f)
	}
	if f := (RequestFilter{Limit: 10_000}).Normalize(); f.Limit != MaxListLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxListLimit, f.Limit)
	}
}

// --- Coupon Tests ---

func TestCouponCode(t *testing.T) {
	code, err := GenerateCouponCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 14 || code[4] != '-' || code[9] != '-' {
		t.Errorf("unexpected code format %q", code)
	}
	for _, ch := range strings.ReplaceAll(code, "-", "") {
		if !strings.ContainsRune(couponAlphabet, ch) {
			t.Errorf("unexpected character %q in %q", ch, code)
		}
	}
	if got := NormalizeCouponCode(" abcd-efgh-jkmn "); got != "ABCD-EFGH-JKMN" {
		t.Errorf("normalize = %q", got)
	}
}

func TestNewCoupon(t *testing.T) {
	if _, err := NewCoupon("u-1", 0, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty coupon, got %v", err)
	}
	if _, err := NewCoupon("u-1", -1, 2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative coupon, got %v", err)
	}
	c, err := NewCoupon("u-1", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Redeemed() {
		t.Error("new coupon must not be redeemed")
	}
}

func TestPrincipalCanAccess(t *testing.T) {
	user := Principal{UserID: "u-1"}
	admin := Principal{UserID: "a-1", IsAdmin: true}
	if !user.CanAccess("u-1") || user.CanAccess("u-2") {
		t.Error("users may only access their own data")
	}
	if !admin.CanAccess("u-2") {
		t.Error("admins may access any user")
	}
	if (Principal{}).CanAccess("") {
		t.Error("zero principal must not access anything")
	}
}
