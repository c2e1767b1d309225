package model

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"glory-ledger/internal/domain"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"   // submitted; awaiting an admin decision
	RequestStatusConfirmed RequestStatus = "confirmed" // credited to the user
	RequestStatusRejected  RequestStatus = "rejected"  // closed without credit
)

func (s RequestStatus) Valid() bool {
	return s == RequestStatusPending || s == RequestStatusConfirmed || s == RequestStatusRejected
}

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusConfirmed || s == RequestStatusRejected
}

func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", domain.Invalid("status", "must be pending, confirmed or rejected")
	}
	return st, nil
}

const maxExternalReferenceLen = 128

// PurchaseRequest is a user's claim that they paid for credits out of band.
// AmountDue is frozen at creation so later price changes never alter it.
type PurchaseRequest struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	CreditType        CreditType      `json:"credit_type"`
	CreditsRequested  int64           `json:"credits_requested"`
	AmountDue         decimal.Decimal `json:"amount_due"`
	ExternalReference string          `json:"external_reference"`
	Status            RequestStatus   `json:"status"`
	DecidedBy         string          `json:"decided_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ConfirmedAt       *time.Time      `json:"confirmed_at"`
}

// NewPurchaseRequest validates input and returns a pending request.
func NewPurchaseRequest(userID string, c CreditType, credits int64, amountDue decimal.Decimal, externalRef string) (*PurchaseRequest, error) {
	if userID == "" {
		return nil, domain.Invalid("user_id", "must not be empty")
	}
	if !c.Valid() {
		return nil, domain.Invalid("credit_type", "must be basic or premium")
	}
	if credits <= 0 {
		return nil, domain.Invalid("credits", "must be positive")
	}
	if amountDue.IsNegative() {
		return nil, domain.Invalid("amount_due", "must not be negative")
	}
	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return nil, domain.Invalid("external_reference", "transaction id is required")
	}
	if len(externalRef) > maxExternalReferenceLen {
		return nil, domain.Invalid("external_reference", "too long")
	}
	now := time.Now().UTC()
	return &PurchaseRequest{
		ID:                ulid.Make().String(),
		UserID:            userID,
		CreditType:        c,
		CreditsRequested:  credits,
		AmountDue:         amountDue,
		ExternalReference: externalRef,
		Status:            RequestStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (r *PurchaseRequest) IsPending() bool { return r != nil && r.Status == RequestStatusPending }

// Decide moves a pending request to a terminal status in memory.
func (r *PurchaseRequest) Decide(status RequestStatus, by string, at time.Time) error {
	if !status.Terminal() {
		return domain.Invalid("status", "must be confirmed or rejected")
	}
	if !r.IsPending() {
		return domain.ErrInvalidTransition
	}
	r.Status = status
	r.DecidedBy = by
	r.UpdatedAt = at
	if status == RequestStatusConfirmed {
		t := at
		r.ConfirmedAt = &t
	}
	return nil
}

// RequestFilter narrows List results. Zero values mean "any".
type RequestFilter struct {
	Status RequestStatus
	UserID string
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Normalize clamps paging to sane bounds.
func (f RequestFilter) Normalize() RequestFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
