package apiv1

import (
	"time"

	"glory-ledger/internal/domain/model"
)

type PurchaseRequest struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	CreditType        string     `json:"credit_type"`
	CreditsRequested  int64      `json:"credits_requested"`
	AmountDue         string     `json:"amount_due"`
	ExternalReference string     `json:"external_reference"`
	Status            string     `json:"status"`
	DecidedBy         string     `json:"decided_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
}

func toRequest(pr *model.PurchaseRequest) PurchaseRequest {
	return PurchaseRequest{
		ID:                pr.ID,
		UserID:            pr.UserID,
		CreditType:        string(pr.CreditType),
		CreditsRequested:  pr.CreditsRequested,
		AmountDue:         pr.AmountDue.StringFixed(2),
		ExternalReference: pr.ExternalReference,
		Status:            string(pr.Status),
		DecidedBy:         pr.DecidedBy,
		CreatedAt:         pr.CreatedAt,
		ConfirmedAt:       pr.ConfirmedAt,
	}
}

func toRequests(in []*model.PurchaseRequest) []PurchaseRequest {
	out := make([]PurchaseRequest, 0, len(in))
	for _, pr := range in {
		out = append(out, toRequest(pr))
	}
	return out
}

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	BasicCredits   int64     `json:"basic_credits"`
	PremiumCredits int64     `json:"premium_credits"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUser(u *model.User) User {
	return User{
		ID:             u.ID,
		Username:       u.Username,
		BasicCredits:   u.BasicCredits,
		PremiumCredits: u.PremiumCredits,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      u.CreatedAt,
	}
}

type Pricing struct {
	Basic    string `json:"basic"`
	Premium  string `json:"premium"`
	Currency string `json:"currency"`
	PayID    string `json:"pay_id"`
}

type Items[T any] struct {
	Items []T `json:"items"`
}

type createRequestBody struct {
	CreditType        string `json:"credit_type"`
	Credits           int64  `json:"credits"`
	ExternalReference string `json:"external_reference"`
}

type createOrderBody struct {
	Basic             int64  `json:"basic"`
	Premium           int64  `json:"premium"`
	ExternalReference string `json:"external_reference"`
}

type couponBody struct {
	Basic   int64 `json:"basic"`
	Premium int64 `json:"premium"`
}

type redeemBody struct {
	Code string `json:"code"`
}

type createUserBody struct {
	Username       string `json:"username"`
	IsAdmin        bool   `json:"is_admin"`
	BasicCredits   int64  `json:"basic_credits"`
	PremiumCredits int64  `json:"premium_credits"`
}

type adjustBody struct {
	DeltaBasic   int64 `json:"delta_basic"`
	DeltaPremium int64 `json:"delta_premium"`
}
