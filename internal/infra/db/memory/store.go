// Package memory is an in-process ledger store used in dev mode and tests.
// All access is serialized on one mutex; a transaction holds it for its whole
// duration and restores a snapshot if the callback fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*Store)(nil)

type Store struct {
	mu        sync.Mutex
	users     map[string]*model.User
	usernames map[string]string // lower(username) -> id
	requests  map[string]*model.PurchaseRequest
	coupons   map[string]*model.Coupon
}

// memTx marks calls made inside WithTx; the store lock is already held.
type memTx struct{ s *Store }

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		usernames: make(map[string]string),
		requests:  make(map[string]*model.PurchaseRequest),
		coupons:   make(map[string]*model.Coupon),
	}
}

func (s *Store) Users() repository.UserRepository                { return &userRepo{s: s} }
func (s *Store) Requests() repository.PurchaseRequestRepository { return &requestRepo{s: s} }
func (s *Store) Coupons() repository.CouponRepository           { return &couponRepo{s: s} }

// WithTx runs fn with the store locked. The isolation options are ignored:
// memory transactions are always fully serialized.
func (s *Store) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// acquire locks the store unless tx is one of our own open transactions.
func (s *Store) acquire(tx repository.Tx) (func(), error) {
	switch v := tx.(type) {
	case nil:
		s.mu.Lock()
		return s.mu.Unlock, nil
	case *memTx:
		if v.s != s {
			return nil, domain.ErrInvalidExecContext
		}
		return func() {}, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

type snapshot struct {
	users     map[string]model.User
	usernames map[string]string
	requests  map[string]model.PurchaseRequest
	coupons   map[string]model.Coupon
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		users:     make(map[string]model.User, len(s.users)),
		usernames: make(map[string]string, len(s.usernames)),
		requests:  make(map[string]model.PurchaseRequest, len(s.requests)),
		coupons:   make(map[string]model.Coupon, len(s.coupons)),
	}
	for k, v := range s.users {
		snap.users[k] = *v
	}
	for k, v := range s.usernames {
		snap.usernames[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = *v
	}
	for k, v := range s.coupons {
		snap.coupons[k] = *v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.users = make(map[string]*model.User, len(snap.users))
	for k, v := range snap.users {
		u := v
		s.users[k] = &u
	}
	s.usernames = snap.usernames
	s.requests = make(map[string]*model.PurchaseRequest, len(snap.requests))
	for k, v := range snap.requests {
		r := v
		s.requests[k] = &r
	}
	s.coupons = make(map[string]*model.Coupon, len(snap.coupons))
	for k, v := range snap.coupons {
		c := v
		s.coupons[k] = &c
	}
}

func now() time.Time { return time.Now().UTC() }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
