package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, basic_credits, premium_credits, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.BasicCredits, &u.PremiumCredits, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapReadErr(err, domain.ErrUserNotFound)
	}
	return &u, nil
}

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  username=$2, basic_credits=$3, premium_credits=$4, is_admin=$5, updated_at=$7;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.BasicCredits, u.PremiumCredits, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	return mapWriteErr(err, nil)
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *UserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE LOWER(username)=LOWER($1);`
	row, err := pickRow(ctx, r.pool, tx, q, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *UserRepo) List(ctx context.Context, tx repository.Tx, search string, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = model.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	const q = `
SELECT ` + userColumns + `
  FROM users
 WHERE ($1 = '' OR username ILIKE '%' || $1 || '%')
 ORDER BY created_at DESC, id DESC
 OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, strings.TrimSpace(search), offset, limit)
	if err != nil {
		return nil, mapWriteErr(err, nil)
	}
	defer rows.Close()

	out := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *UserRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) GetBalances(ctx context.Context, tx repository.Tx, userID string) (model.Balances, error) {
	const q = `SELECT basic_credits, premium_credits FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return model.Balances{}, err
	}
	return scanBalances(row, userID)
}

// AdjustBalances is a single UPDATE so concurrent callers never lose updates.
// The sum is taken in numeric so it saturates at the bigint ceiling instead of
// raising out-of-range.
func (r *UserRepo) AdjustBalances(ctx context.Context, tx repository.Tx, userID string, dBasic, dPremium int64) (model.Balances, error) {
	const q = `
UPDATE users
   SET basic_credits   = GREATEST(0, LEAST(9223372036854775807, basic_credits::numeric + $2::bigint))::bigint,
       premium_credits = GREATEST(0, LEAST(9223372036854775807, premium_credits::numeric + $3::bigint))::bigint,
       updated_at      = NOW()
 WHERE id = $1
RETURNING basic_credits, premium_credits;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, dBasic, dPremium)
	if err != nil {
		return model.Balances{}, err
	}
	return scanBalances(row, userID)
}

func (r *UserRepo) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, basic, premium int64) (model.Balances, bool, error) {
	const q = `
UPDATE users
   SET basic_credits   = basic_credits - $2,
       premium_credits = premium_credits - $3,
       updated_at      = NOW()
 WHERE id = $1
   AND basic_credits >= $2
   AND premium_credits >= $3
RETURNING basic_credits, premium_credits;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, basic, premium)
	if err != nil {
		return model.Balances{}, false, err
	}
	b, err := scanBalances(row, userID)
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return model.Balances{}, false, err
	}
	// No row updated: either the user is unknown or the balance is short.
	cur, err := r.GetBalances(ctx, tx, userID)
	if err != nil {
		return model.Balances{}, false, err
	}
	return cur, false, nil
}

func scanBalances(row pgx.Row, userID string) (model.Balances, error) {
	b := model.Balances{UserID: userID}
	if err := row.Scan(&b.BasicCredits, &b.PremiumCredits); err != nil {
		return model.Balances{}, mapReadErr(err, domain.ErrUserNotFound)
	}
	return b, nil
}
