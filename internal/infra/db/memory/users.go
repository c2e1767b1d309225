package memory

import (
	"context"
	"sort"
	"strings"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ s *Store }

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return err
	}
	defer unlock()

	key := strings.ToLower(u.Username)
	if id, ok := r.s.usernames[key]; ok && id != u.ID {
		return domain.ErrAlreadyExists
	}
	if prev, ok := r.s.users[u.ID]; ok {
		delete(r.s.usernames, strings.ToLower(prev.Username))
	}
	cp := *u
	r.s.users[u.ID] = &cp
	r.s.usernames[key] = u.ID
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	id, ok := r.s.usernames[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.s.users[id]
	return &cp, nil
}

func (r *userRepo) List(ctx context.Context, tx repository.Tx, search string, offset, limit int) ([]*model.User, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if needle != "" && !strings.Contains(strings.ToLower(u.Username), needle) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, offset, limit), nil
}

func (r *userRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.s.users), nil
}

func (r *userRepo) GetBalances(ctx context.Context, tx repository.Tx, userID string) (model.Balances, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return model.Balances{}, err
	}
	defer unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return model.Balances{}, domain.ErrUserNotFound
	}
	return u.Balances(), nil
}

func (r *userRepo) AdjustBalances(ctx context.Context, tx repository.Tx, userID string, dBasic, dPremium int64) (model.Balances, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return model.Balances{}, err
	}
	defer unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return model.Balances{}, domain.ErrUserNotFound
	}
	b := u.Balances().Apply(dBasic, dPremium)
	u.BasicCredits, u.PremiumCredits = b.BasicCredits, b.PremiumCredits
	u.UpdatedAt = now()
	return b, nil
}

func (r *userRepo) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, basic, premium int64) (model.Balances, bool, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return model.Balances{}, false, err
	}
	defer unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return model.Balances{}, false, domain.ErrUserNotFound
	}
	if u.BasicCredits < basic || u.PremiumCredits < premium {
		return u.Balances(), false, nil
	}
	u.BasicCredits -= basic
	u.PremiumCredits -= premium
	u.UpdatedAt = now()
	return u.Balances(), true, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
