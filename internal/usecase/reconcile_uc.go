package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/logging"
	"glory-ledger/internal/infra/metrics"
	red "glory-ledger/internal/infra/redis"
)

// Compile-time check
var _ ReconciliationUseCase = (*reconcileUC)(nil)

// ReconciliationUseCase decides pending purchase requests.
type ReconciliationUseCase interface {
	Confirm(ctx context.Context, actor model.Principal, requestID string) (*model.PurchaseRequest, error)
	Reject(ctx context.Context, actor model.Principal, requestID string) (*model.PurchaseRequest, error)
}

type reconcileUC struct {
	ledger  LedgerUseCase
	users   repository.UserRepository
	tm      repository.TransactionManager
	locker  Locker
	lockTTL time.Duration
	log     *zerolog.Logger
}

func NewReconciliationUseCase(
	ledger LedgerUseCase,
	users repository.UserRepository,
	tm repository.TransactionManager,
	locker Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *reconcileUC {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	l := logger.With().Str("component", "reconciler").Logger()
	return &reconcileUC{
		ledger:  ledger,
		users:   users,
		tm:      tm,
		locker:  locker,
		lockTTL: lockTTL,
		log:     &l,
	}
}

// Confirm credits the requested amount and marks the request confirmed.
// The balance change and the status change commit together or not at all.
func (u *reconcileUC) Confirm(ctx context.Context, actor model.Principal, requestID string) (*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Confirm")()
	return u.decide(ctx, actor, requestID, model.RequestStatusConfirmed)
}

// Reject closes the request without touching balances.
func (u *reconcileUC) Reject(ctx context.Context, actor model.Principal, requestID string) (*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Reject")()
	return u.decide(ctx, actor, requestID, model.RequestStatusRejected)
}

func (u *reconcileUC) decide(ctx context.Context, actor model.Principal, requestID string, status model.RequestStatus) (*model.PurchaseRequest, error) {
	action := actionName(status)
	if err := requireAdmin(actor); err != nil {
		metrics.IncReconciliation(action, "forbidden")
		return nil, err
	}

	unlock, err := u.lock(ctx, requestID)
	if err != nil {
		metrics.IncReconciliation(action, "already_processed")
		return nil, err
	}
	defer unlock()

	var (
		decided *model.PurchaseRequest
		balance model.Balances
	)
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		pr, err := u.ledger.SetRequestStatus(ctx, actor, tx, requestID, status)
		if err != nil {
			return err
		}
		if status == model.RequestStatusConfirmed {
			dBasic, dPremium := model.CreditDelta(pr.CreditType, pr.CreditsRequested)
			balance, err = u.users.AdjustBalances(ctx, tx, pr.UserID, dBasic, dPremium)
			if err != nil {
				return err
			}
		}
		decided = pr
		return nil
	})

	log := logging.With(ctx, u.log)
	if err != nil {
		outcome := outcomeOf(err)
		metrics.IncReconciliation(action, outcome)
		ev := log.Warn()
		if outcome == "error" {
			ev = log.Error()
		}
		ev.Err(err).Str("request_id", requestID).Str("action", action).Msg("reconciliation failed")
		return nil, err
	}

	metrics.IncReconciliation(action, "ok")
	ev := log.Info().
		Str("request_id", decided.ID).
		Str("action", action).
		Str("admin_id", actor.UserID).
		Str("target_user_id", decided.UserID)
	if status == model.RequestStatusConfirmed {
		metrics.AddCreditsGranted(string(decided.CreditType), decided.CreditsRequested)
		ev = ev.Str("credit_type", string(decided.CreditType)).
			Int64("credits", decided.CreditsRequested).
			Int64("basic_credits", balance.BasicCredits).
			Int64("premium_credits", balance.PremiumCredits)
	}
	ev.Msg("purchase request decided")
	return decided, nil
}

// lock takes the cross-process request lock when a locker is configured.
// A held lock means another decision is in flight. Any other locker failure
// proceeds unlocked; the status CAS still admits a single winner.
func (u *reconcileUC) lock(ctx context.Context, requestID string) (func(), error) {
	if u.locker == nil {
		return func() {}, nil
	}
	key := red.RequestLockKey(requestID)
	token, err := u.locker.TryLock(ctx, key, u.lockTTL)
	switch {
	case errors.Is(err, red.ErrLockHeld):
		logging.With(ctx, u.log).Debug().Str("request_id", requestID).Msg("request lock held")
		return nil, domain.ErrInvalidTransition
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.With(ctx, u.log).Warn().Err(err).Str("request_id", requestID).Msg("request lock unavailable; relying on status CAS")
		return func() {}, nil
	}
	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := u.locker.Unlock(uctx, key, token); err != nil {
			u.log.Warn().Err(err).Str("request_id", requestID).Msg("request lock release failed")
		}
	}, nil
}

func actionName(s model.RequestStatus) string {
	if s == model.RequestStatusConfirmed {
		return "confirm"
	}
	return "reject"
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "already_processed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
