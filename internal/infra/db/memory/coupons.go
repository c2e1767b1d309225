package memory

import (
	"context"
	"time"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ s *Store }

func cloneCoupon(c *model.Coupon) *model.Coupon {
	cp := *c
	cp.RedeemedBy = copyString(c.RedeemedBy)
	cp.RedeemedAt = copyTime(c.RedeemedAt)
	return &cp
}

func (r *couponRepo) Create(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.s.coupons[c.Code]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.coupons[c.Code] = cloneCoupon(c)
	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := r.s.coupons[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	return cloneCoupon(c), nil
}

func (r *couponRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code, userID string, at time.Time) (bool, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return false, err
	}
	defer unlock()

	c, ok := r.s.coupons[code]
	if !ok || c.RedeemedBy != nil {
		return false, nil
	}
	uid, t := userID, at
	c.RedeemedBy = &uid
	c.RedeemedAt = &t
	return true, nil
}
