package repository

import (
	"context"

	"glory-ledger/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.User, error)
	// List returns users newest first; search matches a username substring case-insensitively.
	List(ctx context.Context, tx Tx, search string, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context, tx Tx) (int, error)

	GetBalances(ctx context.Context, tx Tx, userID string) (model.Balances, error)
	// AdjustBalances applies max(0, current+delta) to each counter atomically.
	AdjustBalances(ctx context.Context, tx Tx, userID string, dBasic, dPremium int64) (model.Balances, error)
	// DebitIfSufficient subtracts both amounts only if neither counter would go negative.
	DebitIfSufficient(ctx context.Context, tx Tx, userID string, basic, premium int64) (model.Balances, bool, error)
}
