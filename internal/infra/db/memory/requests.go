package memory

import (
	"context"
	"sort"
	"time"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.PurchaseRequestRepository = (*requestRepo)(nil)

type requestRepo struct{ s *Store }

func cloneRequest(r *model.PurchaseRequest) *model.PurchaseRequest {
	cp := *r
	cp.ConfirmedAt = copyTime(r.ConfirmedAt)
	return &cp
}

func (r *requestRepo) Create(ctx context.Context, tx repository.Tx, pr *model.PurchaseRequest) error {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.s.users[pr.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.s.requests[pr.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.requests[pr.ID] = cloneRequest(pr)
	return nil
}

func (r *requestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PurchaseRequest, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pr, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return cloneRequest(pr), nil
}

func (r *requestRepo) List(ctx context.Context, tx repository.Tx, f model.RequestFilter) ([]*model.PurchaseRequest, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f = f.Normalize()
	out := make([]*model.PurchaseRequest, 0)
	for _, pr := range r.s.requests {
		if f.Status != "" && pr.Status != f.Status {
			continue
		}
		if f.UserID != "" && pr.UserID != f.UserID {
			continue
		}
		out = append(out, cloneRequest(pr))
	}
	sortNewestFirst(out)
	return page(out, f.Offset, f.Limit), nil
}

func (r *requestRepo) SetStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.RequestStatus, decidedBy string, confirmedAt *time.Time) (bool, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return false, err
	}
	defer unlock()

	pr, ok := r.s.requests[id]
	if !ok || pr.Status != model.RequestStatusPending {
		return false, nil
	}
	pr.Status = status
	pr.DecidedBy = decidedBy
	pr.ConfirmedAt = copyTime(confirmedAt)
	pr.UpdatedAt = now()
	return true, nil
}

func (r *requestRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PurchaseRequest, error) {
	unlock, err := r.s.acquire(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if limit <= 0 {
		limit = model.DefaultListLimit
	}
	out := make([]*model.PurchaseRequest, 0)
	for _, pr := range r.s.requests {
		if pr.Status == model.RequestStatusPending && pr.CreatedAt.Before(cutoff) {
			out = append(out, cloneRequest(pr))
		}
	}
	// oldest first, like the SQL implementation
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, 0, limit), nil
}

func sortNewestFirst(rs []*model.PurchaseRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}
