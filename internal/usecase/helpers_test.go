//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/db/memory"
	red "glory-ledger/internal/infra/redis"
	"glory-ledger/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

var admin = model.Principal{UserID: "admin-1", IsAdmin: true}

type harness struct {
	store     *memory.Store
	ledger    usecase.LedgerUseCase
	reconcile usecase.ReconciliationUseCase
	coupons   usecase.CouponUseCase
	users     usecase.UserUseCase
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()
	cfg := harnessConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	s := memory.NewStore()
	log := newTestLogger()

	users := s.Users()
	if cfg.wrapUsers != nil {
		users = cfg.wrapUsers(users)
	}
	ledger := usecase.NewLedgerUseCase(users, s.Requests(), s, cfg.limiter, usecase.LedgerOptions{
		Prices:       model.DefaultPriceTable(),
		SubmitLimit:  cfg.submitLimit,
		SubmitWindow: time.Minute,
	}, log)
	return &harness{
		store:     s,
		ledger:    ledger,
		reconcile: usecase.NewReconciliationUseCase(ledger, users, s, cfg.locker, time.Second, log),
		coupons:   usecase.NewCouponUseCase(s.Coupons(), users, s, log),
		users:     usecase.NewUserUseCase(users, s, log),
	}
}

type harnessConfig struct {
	limiter     usecase.Limiter
	submitLimit int
	locker      usecase.Locker
	wrapUsers   func(repository.UserRepository) repository.UserRepository
}

// seedUser stores a user directly and returns its principal.
func (h *harness) seedUser(t *testing.T, name string, basic, premium int64) model.Principal {
	t.Helper()
	u, err := model.NewUser("", name, basic, premium)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := h.store.Users().Save(context.Background(), repository.NoTX, u); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return model.Principal{UserID: u.ID}
}

func (h *harness) balances(t *testing.T, userID string) model.Balances {
	t.Helper()
	b, err := h.store.Users().GetBalances(context.Background(), repository.NoTX, userID)
	if err != nil {
		t.Fatalf("GetBalances: %v", err)
	}
	return b
}

// --- fakes ---

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	unlocked int
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = make(map[string]string)
	}
	if _, ok := f.held[key]; ok {
		return "", red.ErrLockHeld
	}
	f.held[key] = "tok"
	return "tok", nil
}

func (f *fakeLocker) Unlock(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.unlocked++
	}
	return nil
}

// downLocker fails every call the way an unreachable Redis does.
type downLocker struct {
	calls int
}

func (d *downLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	d.calls++
	return "", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func (d *downLocker) Unlock(context.Context, string, string) error {
	return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

// failingAdjust lets the real adjustment run, then reports an error so the
// surrounding transaction must roll back.
type failingAdjust struct {
	repository.UserRepository
}

var errAdjust = errors.New("adjust exploded")

func (f failingAdjust) AdjustBalances(ctx context.Context, tx repository.Tx, userID string, dBasic, dPremium int64) (model.Balances, error) {
	if _, err := f.UserRepository.AdjustBalances(ctx, tx, userID, dBasic, dPremium); err != nil {
		return model.Balances{}, err
	}
	return model.Balances{}, errAdjust
}
