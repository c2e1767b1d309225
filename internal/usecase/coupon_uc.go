package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/logging"
	"glory-ledger/internal/infra/metrics"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

// CouponUseCase turns credits into shareable codes and back.
type CouponUseCase interface {
	Create(ctx context.Context, actor model.Principal, basic, premium int64) (*model.Coupon, error)
	Redeem(ctx context.Context, actor model.Principal, code string) (model.Balances, error)
}

type couponUC struct {
	coupons repository.CouponRepository
	users   repository.UserRepository
	tm      repository.TransactionManager
	now     Clock
	log     *zerolog.Logger
}

func NewCouponUseCase(coupons repository.CouponRepository, users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *couponUC {
	l := logger.With().Str("component", "coupons").Logger()
	return &couponUC{coupons: coupons, users: users, tm: tm, now: systemClock, log: &l}
}

// Create mints a coupon. Users pay for it from their own balance; admin
// coupons are free grants.
func (u *couponUC) Create(ctx context.Context, actor model.Principal, basic, premium int64) (*model.Coupon, error) {
	defer logging.TraceDuration(u.log, "CouponUC.Create")()

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	c, err := model.NewCoupon(actor.UserID, basic, premium)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = u.now()

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if !actor.IsAdmin {
			_, ok, err := u.users.DebitIfSufficient(ctx, tx, actor.UserID, basic, premium)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInsufficientCredits
			}
		}
		return u.coupons.Create(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCoupon("created")
	logging.With(ctx, u.log).Info().
		Str("creator_id", actor.UserID).
		Bool("grant", actor.IsAdmin).
		Int64("basic", basic).
		Int64("premium", premium).
		Msg("coupon created")
	return c, nil
}

// Redeem credits the coupon's value to the caller exactly once.
func (u *couponUC) Redeem(ctx context.Context, actor model.Principal, code string) (model.Balances, error) {
	defer logging.TraceDuration(u.log, "CouponUC.Redeem")()

	if err := requireAuth(actor); err != nil {
		return model.Balances{}, err
	}
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return model.Balances{}, domain.Invalid("code", "must not be empty")
	}

	var (
		b      model.Balances
		coupon *model.Coupon
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.coupons.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if c.Redeemed() {
			return domain.ErrCouponRedeemed
		}
		ok, err := u.coupons.MarkRedeemed(ctx, tx, code, actor.UserID, u.now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCouponRedeemed
		}
		b, err = u.users.AdjustBalances(ctx, tx, actor.UserID, c.Basic, c.Premium)
		if err != nil {
			return err
		}
		coupon = c
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrCouponRedeemed) {
			logging.With(ctx, u.log).Error().Err(err).Msg("coupon redeem failed")
		}
		return model.Balances{}, err
	}

	metrics.IncCoupon("redeemed")
	metrics.AddCreditsGranted(string(model.CreditBasic), coupon.Basic)
	metrics.AddCreditsGranted(string(model.CreditPremium), coupon.Premium)
	logging.With(ctx, u.log).Info().
		Str("code", logging.Redact(code, false)).
		Int64("basic", coupon.Basic).
		Int64("premium", coupon.Premium).
		Msg("coupon redeemed")
	return b, nil
}
