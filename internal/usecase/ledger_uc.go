package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/logging"
	"glory-ledger/internal/infra/metrics"
	red "glory-ledger/internal/infra/redis"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase covers request creation, listing and balance bookkeeping.
type LedgerUseCase interface {
	CreateRequest(ctx context.Context, actor model.Principal, userID string, c model.CreditType, credits int64, amountDue decimal.Decimal, externalRef string) (*model.PurchaseRequest, error)
	SubmitPurchase(ctx context.Context, actor model.Principal, c model.CreditType, credits int64, externalRef string) (*model.PurchaseRequest, error)
	SubmitOrder(ctx context.Context, actor model.Principal, basic, premium int64, externalRef string) ([]*model.PurchaseRequest, error)
	ListRequests(ctx context.Context, actor model.Principal, f model.RequestFilter) ([]*model.PurchaseRequest, error)
	GetBalances(ctx context.Context, actor model.Principal, userID string) (model.Balances, error)
	AdjustBalances(ctx context.Context, actor model.Principal, userID string, dBasic, dPremium int64) (model.Balances, error)
	SetRequestStatus(ctx context.Context, actor model.Principal, tx repository.Tx, id string, status model.RequestStatus) (*model.PurchaseRequest, error)
	Quote(c model.CreditType, credits int64) (decimal.Decimal, error)
	Pricing() model.PriceTable
}

// LedgerOptions carries the tunables read from config.
type LedgerOptions struct {
	Prices       model.PriceTable
	SubmitLimit  int
	SubmitWindow time.Duration
	Dev          bool
}

type ledgerUC struct {
	users    repository.UserRepository
	requests repository.PurchaseRequestRepository
	tm       repository.TransactionManager
	limiter  Limiter
	opts     LedgerOptions
	now      Clock
	log      *zerolog.Logger
}

func NewLedgerUseCase(
	users repository.UserRepository,
	requests repository.PurchaseRequestRepository,
	tm repository.TransactionManager,
	limiter Limiter,
	opts LedgerOptions,
	logger *zerolog.Logger,
) *ledgerUC {
	if opts.Prices.Basic.IsZero() && opts.Prices.Premium.IsZero() {
		opts.Prices = model.DefaultPriceTable()
	}
	l := logger.With().Str("component", "ledger").Logger()
	return &ledgerUC{
		users:    users,
		requests: requests,
		tm:       tm,
		limiter:  limiter,
		opts:     opts,
		now:      systemClock,
		log:      &l,
	}
}

// WithClock overrides the time source.
func (u *ledgerUC) WithClock(c Clock) *ledgerUC {
	u.now = c
	return u
}

func (u *ledgerUC) Pricing() model.PriceTable { return u.opts.Prices }

func (u *ledgerUC) Quote(c model.CreditType, credits int64) (decimal.Decimal, error) {
	return u.opts.Prices.Quote(c, credits)
}

func (u *ledgerUC) CreateRequest(ctx context.Context, actor model.Principal, userID string, c model.CreditType, credits int64, amountDue decimal.Decimal, externalRef string) (*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.CreateRequest")()

	if err := requireAccess(actor, userID); err != nil {
		return nil, err
	}
	pr, err := model.NewPurchaseRequest(userID, c, credits, amountDue, externalRef)
	if err != nil {
		return nil, err
	}
	pr.CreatedAt = u.now()
	pr.UpdatedAt = pr.CreatedAt

	if err := u.requests.Create(ctx, repository.NoTX, pr); err != nil {
		return nil, err
	}

	metrics.IncRequestCreated(string(pr.CreditType))
	logging.With(ctx, u.log).Info().
		Str("request_id", pr.ID).
		Str("credit_type", string(pr.CreditType)).
		Int64("credits", pr.CreditsRequested).
		Str("amount_due", pr.AmountDue.StringFixed(2)).
		Str("external_reference", logging.Redact(pr.ExternalReference, u.opts.Dev)).
		Msg("purchase request created")
	return pr, nil
}

func (u *ledgerUC) SubmitPurchase(ctx context.Context, actor model.Principal, c model.CreditType, credits int64, externalRef string) (*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.SubmitPurchase")()

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if err := u.allowSubmit(ctx, actor); err != nil {
		return nil, err
	}
	amount, err := u.opts.Prices.Quote(c, credits)
	if err != nil {
		return nil, err
	}
	return u.CreateRequest(ctx, actor, actor.UserID, c, credits, amount, externalRef)
}

// SubmitOrder creates one request per credit type with a positive count,
// all carrying the same external reference.
func (u *ledgerUC) SubmitOrder(ctx context.Context, actor model.Principal, basic, premium int64, externalRef string) ([]*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.SubmitOrder")()

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if basic < 0 || premium < 0 {
		return nil, domain.Invalid("credits", "must not be negative")
	}
	if basic == 0 && premium == 0 {
		return nil, domain.Invalid("credits", "order must contain at least one credit")
	}
	if strings.TrimSpace(externalRef) == "" {
		return nil, domain.Invalid("external_reference", "must not be empty")
	}
	if err := u.allowSubmit(ctx, actor); err != nil {
		return nil, err
	}

	type line struct {
		c model.CreditType
		n int64
	}
	var lines []line
	if basic > 0 {
		lines = append(lines, line{model.CreditBasic, basic})
	}
	if premium > 0 {
		lines = append(lines, line{model.CreditPremium, premium})
	}

	out := make([]*model.PurchaseRequest, 0, len(lines))
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, ln := range lines {
			amount, err := u.opts.Prices.Quote(ln.c, ln.n)
			if err != nil {
				return err
			}
			pr, err := model.NewPurchaseRequest(actor.UserID, ln.c, ln.n, amount, externalRef)
			if err != nil {
				return err
			}
			pr.CreatedAt = u.now()
			pr.UpdatedAt = pr.CreatedAt
			if err := u.requests.Create(ctx, tx, pr); err != nil {
				return err
			}
			out = append(out, pr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, pr := range out {
		metrics.IncRequestCreated(string(pr.CreditType))
	}
	logging.With(ctx, u.log).Info().
		Int64("basic", basic).
		Int64("premium", premium).
		Int("requests", len(out)).
		Str("external_reference", logging.Redact(externalRef, u.opts.Dev)).
		Msg("order submitted")
	return out, nil
}

func (u *ledgerUC) allowSubmit(ctx context.Context, actor model.Principal) error {
	if u.limiter == nil || u.opts.SubmitLimit <= 0 || actor.IsAdmin {
		return nil
	}
	ok, err := u.limiter.Allow(ctx, red.UserActionKey(actor.UserID, "submit"), u.opts.SubmitLimit, u.opts.SubmitWindow)
	if err != nil {
		// Limiter outages must not block purchases.
		logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

func (u *ledgerUC) ListRequests(ctx context.Context, actor model.Principal, f model.RequestFilter) ([]*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.ListRequests")()

	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		if f.UserID != "" && f.UserID != actor.UserID {
			return nil, domain.ErrForbidden
		}
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}
	return u.requests.List(ctx, repository.NoTX, f.Normalize())
}

func (u *ledgerUC) GetBalances(ctx context.Context, actor model.Principal, userID string) (model.Balances, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.GetBalances")()

	if err := requireAccess(actor, userID); err != nil {
		return model.Balances{}, err
	}
	return u.users.GetBalances(ctx, repository.NoTX, userID)
}

// AdjustBalances applies signed deltas, clamping each counter at zero.
func (u *ledgerUC) AdjustBalances(ctx context.Context, actor model.Principal, userID string, dBasic, dPremium int64) (model.Balances, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.AdjustBalances")()

	if err := requireAdmin(actor); err != nil {
		return model.Balances{}, err
	}
	b, err := u.users.AdjustBalances(ctx, repository.NoTX, userID, dBasic, dPremium)
	if err != nil {
		return model.Balances{}, err
	}

	metrics.IncBalanceAdjustment(dBasic, dPremium)
	logging.With(ctx, u.log).Info().
		Str("admin_id", actor.UserID).
		Str("target_user_id", userID).
		Int64("delta_basic", dBasic).
		Int64("delta_premium", dPremium).
		Int64("basic_credits", b.BasicCredits).
		Int64("premium_credits", b.PremiumCredits).
		Msg("balances adjusted")
	return b, nil
}

// SetRequestStatus moves a pending request to a terminal status. It runs on
// tx when given so callers can pair it with a balance change.
func (u *ledgerUC) SetRequestStatus(ctx context.Context, actor model.Principal, tx repository.Tx, id string, status model.RequestStatus) (*model.PurchaseRequest, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.SetRequestStatus")()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return nil, domain.Invalid("status", "must be confirmed or rejected")
	}

	pr, err := u.requests.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !pr.IsPending() {
		return nil, domain.ErrInvalidTransition
	}

	at := u.now()
	var confirmedAt *time.Time
	if status == model.RequestStatusConfirmed {
		confirmedAt = &at
	}
	ok, err := u.requests.SetStatusIfPending(ctx, tx, id, status, actor.UserID, confirmedAt)
	if err != nil {
		return nil, fmt.Errorf("set status %s: %w", status, err)
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	if err := pr.Decide(status, actor.UserID, at); err != nil {
		return nil, err
	}
	return pr, nil
}
