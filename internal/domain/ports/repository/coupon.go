package repository

import (
	"context"
	"time"

	"glory-ledger/internal/domain/model"
)

type CouponRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Coupon) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
	// MarkRedeemed succeeds only for a coupon nobody redeemed yet.
	MarkRedeemed(ctx context.Context, tx Tx, code, userID string, at time.Time) (bool, error)
}
