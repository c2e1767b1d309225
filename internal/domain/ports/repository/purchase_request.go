package repository

import (
	"context"
	"time"

	"glory-ledger/internal/domain/model"
)

// -----------------------------
// Purchase requests
// -----------------------------

type PurchaseRequestRepository interface {
	Create(ctx context.Context, tx Tx, r *model.PurchaseRequest) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.PurchaseRequest, error)
	// List is ordered newest first (created_at DESC, id DESC).
	List(ctx context.Context, tx Tx, f model.RequestFilter) ([]*model.PurchaseRequest, error)
	// SetStatusIfPending is a compare-and-swap on status='pending'.
	// It reports false when the request is missing or already decided.
	SetStatusIfPending(ctx context.Context, tx Tx, id string, status model.RequestStatus, decidedBy string, confirmedAt *time.Time) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.PurchaseRequest, error)
}
