//go:build !integration

package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

func seedUser(t *testing.T, s *Store, name string, basic, premium int64) *model.User {
	t.Helper()
	u, err := model.NewUser("", name, basic, premium)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := s.Users().Save(context.Background(), nil, u); err != nil {
		t.Fatalf("Save user: %v", err)
	}
	return u
}

func seedRequest(t *testing.T, s *Store, userID string, c model.CreditType, n int64, createdAt time.Time) *model.PurchaseRequest {
	t.Helper()
	r, err := model.NewPurchaseRequest(userID, c, n, decimal.NewFromInt(n), "tx-ref")
	if err != nil {
		t.Fatalf("NewPurchaseRequest: %v", err)
	}
	if !createdAt.IsZero() {
		r.CreatedAt = createdAt
	}
	if err := s.Requests().Create(context.Background(), nil, r); err != nil {
		t.Fatalf("Create request: %v", err)
	}
	return r
}

func TestUsers_AdjustBalancesClamps(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 4, 2)

	b, err := s.Users().AdjustBalances(ctx, nil, u.ID, -10, 3)
	if err != nil {
		t.Fatalf("AdjustBalances: %v", err)
	}
	if b.BasicCredits != 0 || b.PremiumCredits != 5 {
		t.Errorf("expected {0,5}, got %+v", b)
	}

	if _, err := s.Users().AdjustBalances(ctx, nil, "missing", 1, 0); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsers_AdjustBalancesSaturates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "hoarder", 5, 1)

	b, err := s.Users().AdjustBalances(ctx, nil, u.ID, math.MaxInt64, math.MinInt64)
	if err != nil {
		t.Fatalf("AdjustBalances: %v", err)
	}
	if b.BasicCredits != math.MaxInt64 || b.PremiumCredits != 0 {
		t.Errorf("expected {MaxInt64,0}, got %+v", b)
	}
}

func TestUsers_ConcurrentAdjustmentsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Users().AdjustBalances(ctx, nil, u.ID, 1, 2)
		}()
	}
	wg.Wait()

	b, _ := s.Users().GetBalances(ctx, nil, u.ID)
	if b.BasicCredits != 100 || b.PremiumCredits != 200 {
		t.Errorf("lost updates: %+v", b)
	}
}

func TestUsers_UniqueUsernameAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "GloryHunter", 0, 0)
	seedUser(t, s, "clanmate", 0, 0)

	dup, _ := model.NewUser("", "gloryhunter", 0, 0)
	if err := s.Users().Save(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	found, err := s.Users().List(ctx, nil, "HUNT", 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(found) != 1 || found[0].Username != "GloryHunter" {
		t.Errorf("unexpected search result %+v", found)
	}
	if n, _ := s.Users().Count(ctx, nil); n != 2 {
		t.Errorf("expected 2 users, got %d", n)
	}
}

func TestUsers_DebitIfSufficient(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 3, 1)

	if _, ok, err := s.Users().DebitIfSufficient(ctx, nil, u.ID, 4, 0); err != nil || ok {
		t.Fatalf("expected refusal, got ok=%v err=%v", ok, err)
	}
	b, ok, err := s.Users().DebitIfSufficient(ctx, nil, u.ID, 3, 1)
	if err != nil || !ok {
		t.Fatalf("expected debit, got ok=%v err=%v", ok, err)
	}
	if b.BasicCredits != 0 || b.PremiumCredits != 0 {
		t.Errorf("unexpected balances %+v", b)
	}
}

func TestRequests_SetStatusIfPendingIsCAS(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 0, 0)
	r := seedRequest(t, s, u.ID, model.CreditBasic, 5, time.Time{})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := time.Now()
			ok, err := s.Requests().SetStatusIfPending(ctx, nil, r.ID, model.RequestStatusConfirmed, "admin", &at)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	got, _ := s.Requests().FindByID(ctx, nil, r.ID)
	if got.Status != model.RequestStatusConfirmed || got.ConfirmedAt == nil {
		t.Errorf("unexpected final request %+v", got)
	}

	if ok, _ := s.Requests().SetStatusIfPending(ctx, nil, "missing", model.RequestStatusRejected, "admin", nil); ok {
		t.Error("missing request must not transition")
	}
}

func TestRequests_ListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 0, 0)
	other := seedUser(t, s, "other", 0, 0)

	base := time.Now().Add(-time.Hour)
	oldest := seedRequest(t, s, u.ID, model.CreditBasic, 1, base)
	middle := seedRequest(t, s, other.ID, model.CreditPremium, 1, base.Add(time.Minute))
	newest := seedRequest(t, s, u.ID, model.CreditBasic, 2, base.Add(2*time.Minute))
	_, _ = s.Requests().SetStatusIfPending(ctx, nil, middle.ID, model.RequestStatusRejected, "admin", nil)

	all, _ := s.Requests().List(ctx, nil, model.RequestFilter{})
	if len(all) != 3 || all[0].ID != newest.ID || all[2].ID != oldest.ID {
		t.Fatalf("expected newest first, got %v", ids(all))
	}

	pending, _ := s.Requests().List(ctx, nil, model.RequestFilter{Status: model.RequestStatusPending})
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %v", ids(pending))
	}

	mine, _ := s.Requests().List(ctx, nil, model.RequestFilter{UserID: other.ID})
	if len(mine) != 1 || mine[0].ID != middle.ID {
		t.Errorf("expected only the other user's request, got %v", ids(mine))
	}

	paged, _ := s.Requests().List(ctx, nil, model.RequestFilter{Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].ID != middle.ID {
		t.Errorf("unexpected page %v", ids(paged))
	}

	stale, _ := s.Requests().ListPendingOlderThan(ctx, nil, base.Add(90*time.Second), 10)
	if len(stale) != 1 || stale[0].ID != oldest.ID {
		t.Errorf("unexpected stale list %v", ids(stale))
	}
}

func TestRequests_CreateRequiresUser(t *testing.T) {
	s := NewStore()
	r, _ := model.NewPurchaseRequest("ghost", model.CreditBasic, 1, decimal.NewFromInt(1), "tx")
	if err := s.Requests().Create(context.Background(), nil, r); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "raider", 1, 0)
	r := seedRequest(t, s, u.ID, model.CreditBasic, 5, time.Time{})
	boom := errors.New("boom")

	err := s.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.Users().AdjustBalances(ctx, tx, u.ID, 5, 0); err != nil {
			return err
		}
		at := time.Now()
		if _, err := s.Requests().SetStatusIfPending(ctx, tx, r.ID, model.RequestStatusConfirmed, "admin", &at); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	b, _ := s.Users().GetBalances(ctx, nil, u.ID)
	if b.BasicCredits != 1 {
		t.Errorf("balance change was not rolled back: %+v", b)
	}
	got, _ := s.Requests().FindByID(ctx, nil, r.ID)
	if got.Status != model.RequestStatusPending {
		t.Errorf("status change was not rolled back: %s", got.Status)
	}
}

func TestCoupons_MarkRedeemedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c, _ := model.NewCoupon("admin", 2, 0)
	if err := s.Coupons().Create(ctx, nil, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	at := time.Now()
	if ok, _ := s.Coupons().MarkRedeemed(ctx, nil, c.Code, "u-1", at); !ok {
		t.Fatal("expected first redemption to win")
	}
	if ok, _ := s.Coupons().MarkRedeemed(ctx, nil, c.Code, "u-2", at); ok {
		t.Fatal("coupon redeemed twice")
	}
	got, _ := s.Coupons().FindByCode(ctx, nil, c.Code)
	if !got.Redeemed() || *got.RedeemedBy != "u-1" {
		t.Errorf("unexpected coupon state %+v", got)
	}
	if _, err := s.Coupons().FindByCode(ctx, nil, "NOPE"); !errors.Is(err, domain.ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestForeignTxIsRejected(t *testing.T) {
	s := NewStore()
	other := NewStore()
	_ = other.WithTx(context.Background(), pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := s.Users().Count(ctx, tx)
		if !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Errorf("expected ErrInvalidExecContext, got %v", err)
		}
		return nil
	})
}

func ids(rs []*model.PurchaseRequest) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
