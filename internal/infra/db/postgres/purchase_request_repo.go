package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.PurchaseRequestRepository = (*PurchaseRequestRepo)(nil)

type PurchaseRequestRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRequestRepo(pool *pgxpool.Pool) *PurchaseRequestRepo {
	return &PurchaseRequestRepo{pool: pool}
}

const requestColumns = `id, user_id, credit_type, credits_requested, amount_due, external_reference, status, decided_by, created_at, updated_at, confirmed_at`

func scanRequest(row pgx.Row) (*model.PurchaseRequest, error) {
	var (
		pr         model.PurchaseRequest
		creditType string
		status     string
	)
	err := row.Scan(&pr.ID, &pr.UserID, &creditType, &pr.CreditsRequested, &pr.AmountDue, &pr.ExternalReference,
		&status, &pr.DecidedBy, &pr.CreatedAt, &pr.UpdatedAt, &pr.ConfirmedAt)
	if err != nil {
		return nil, mapReadErr(err, domain.ErrRequestNotFound)
	}
	pr.CreditType = model.CreditType(creditType)
	pr.Status = model.RequestStatus(status)
	return &pr, nil
}

func (r *PurchaseRequestRepo) Create(ctx context.Context, tx repository.Tx, pr *model.PurchaseRequest) error {
	const q = `
INSERT INTO purchase_requests (` + requestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q,
		pr.ID, pr.UserID, string(pr.CreditType), pr.CreditsRequested, pr.AmountDue, pr.ExternalReference,
		string(pr.Status), pr.DecidedBy, pr.CreatedAt, pr.UpdatedAt, pr.ConfirmedAt)
	return mapWriteErr(err, domain.ErrUserNotFound)
}

func (r *PurchaseRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PurchaseRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRequest(row)
}

func (r *PurchaseRequestRepo) List(ctx context.Context, tx repository.Tx, f model.RequestFilter) ([]*model.PurchaseRequest, error) {
	f = f.Normalize()

	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + requestColumns + ` FROM purchase_requests`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, f.Offset, f.Limit)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d;", len(args)-1, len(args))

	return r.collect(ctx, tx, b.String(), args...)
}

// SetStatusIfPending atomically updates status only when the current status is 'pending'.
func (r *PurchaseRequestRepo) SetStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.RequestStatus, decidedBy string, confirmedAt *time.Time) (bool, error) {
	const q = `
UPDATE purchase_requests
   SET status       = $2,
       decided_by   = $3,
       confirmed_at = $4,
       updated_at   = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), decidedBy, confirmedAt)
	if err != nil {
		return false, mapWriteErr(err, nil)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *PurchaseRequestRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PurchaseRequest, error) {
	if limit <= 0 {
		limit = model.DefaultListLimit
	}
	const q = `SELECT ` + requestColumns + ` FROM purchase_requests WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.collect(ctx, tx, q, cutoff, limit)
}

func (r *PurchaseRequestRepo) collect(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PurchaseRequest, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapWriteErr(err, nil)
	}
	defer rows.Close()

	out := make([]*model.PurchaseRequest, 0)
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	return out, nil
}
