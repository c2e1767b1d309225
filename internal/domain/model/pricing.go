package model

import (
	"github.com/shopspring/decimal"

	"glory-ledger/internal/domain"
)

// PriceTable holds the unit price per credit type, in one currency.
type PriceTable struct {
	Basic    decimal.Decimal `json:"basic"`
	Premium  decimal.Decimal `json:"premium"`
	Currency string          `json:"currency"`
	PayID    string          `json:"pay_id"`
}

func DefaultPriceTable() PriceTable {
	return PriceTable{
		Basic:    decimal.RequireFromString("1.00"),
		Premium:  decimal.RequireFromString("15.00"),
		Currency: "USD",
	}
}

func (p PriceTable) UnitPrice(c CreditType) (decimal.Decimal, error) {
	switch c {
	case CreditBasic:
		return p.Basic, nil
	case CreditPremium:
		return p.Premium, nil
	default:
		return decimal.Zero, domain.Invalid("credit_type", "must be basic or premium")
	}
}

// Quote returns credits × unitPrice(c), rounded to cents.
func (p PriceTable) Quote(c CreditType, credits int64) (decimal.Decimal, error) {
	if credits <= 0 {
		return decimal.Zero, domain.Invalid("credits", "must be positive")
	}
	unit, err := p.UnitPrice(c)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(credits)).Round(2), nil
}

func (p PriceTable) Validate() error {
	if p.Basic.IsNegative() || p.Premium.IsNegative() {
		return domain.Invalid("pricing", "unit price must not be negative")
	}
	return nil
}
