package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CouponRepository = (*CouponRepo)(nil)

type CouponRepo struct {
	pool *pgxpool.Pool
}

func NewCouponRepo(pool *pgxpool.Pool) *CouponRepo {
	return &CouponRepo{pool: pool}
}

func (r *CouponRepo) Create(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (code, basic, premium, created_by, created_at, redeemed_by, redeemed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err := execSQL(ctx, r.pool, tx, q, c.Code, c.Basic, c.Premium, c.CreatedBy, c.CreatedAt, c.RedeemedBy, c.RedeemedAt)
	return mapWriteErr(err, nil)
}

func (r *CouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	q := `SELECT code, basic, premium, created_by, created_at, redeemed_by, redeemed_at FROM coupons WHERE code = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	var c model.Coupon
	if err := row.Scan(&c.Code, &c.Basic, &c.Premium, &c.CreatedBy, &c.CreatedAt, &c.RedeemedBy, &c.RedeemedAt); err != nil {
		return nil, mapReadErr(err, domain.ErrCouponNotFound)
	}
	return &c, nil
}

// MarkRedeemed is a compare-and-swap on redeemed_by IS NULL.
func (r *CouponRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code, userID string, at time.Time) (bool, error) {
	const q = `UPDATE coupons SET redeemed_by = $2, redeemed_at = $3 WHERE code = $1 AND redeemed_by IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, code, userID, at)
	if err != nil {
		return false, mapWriteErr(err, domain.ErrUserNotFound)
	}
	return cmd.RowsAffected() == 1, nil
}
