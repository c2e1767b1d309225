package usecase

import (
	"context"
	"time"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
)

// Limiter is a per-key fixed-window rate limit. Nil disables limiting.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Locker guards a key across processes. Nil disables locking. TryLock
// reports contention as redis.ErrLockHeld.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Clock is swapped in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func requireAuth(actor model.Principal) error {
	if actor.IsZero() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor model.Principal) error {
	if err := requireAuth(actor); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func requireAccess(actor model.Principal, userID string) error {
	if err := requireAuth(actor); err != nil {
		return err
	}
	if !actor.CanAccess(userID) {
		return domain.ErrForbidden
	}
	return nil
}
