package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user operations used by the admin panel and the profile page.
type UserUseCase interface {
	Create(ctx context.Context, actor model.Principal, username string, isAdmin bool, initialBasic, initialPremium int64) (*model.User, error)
	Get(ctx context.Context, actor model.Principal, id string) (*model.User, error)
	List(ctx context.Context, actor model.Principal, search string, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context, actor model.Principal) (int, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "users").Logger()
	return &userUC{
		users: users,
		tm:    tm,
		log:   &l,
	}
}

func (u *userUC) Create(ctx context.Context, actor model.Principal, username string, isAdmin bool, initialBasic, initialPremium int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Create")()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	nu, err := model.NewUser("", username, initialBasic, initialPremium)
	if err != nil {
		return nil, err
	}
	nu.IsAdmin = isAdmin

	// The lookup and insert run in one transaction; the unique index still
	// catches a concurrent insert of the same name.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.users.FindByUsername(ctx, tx, nu.Username)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyExists
		}
		return u.users.Save(ctx, tx, nu)
	})
	if err != nil {
		return nil, err
	}

	logging.With(ctx, u.log).Info().
		Str("admin_id", actor.UserID).
		Str("new_user_id", nu.ID).
		Str("username", nu.Username).
		Bool("is_admin", nu.IsAdmin).
		Msg("user created")
	return nu, nil
}

func (u *userUC) Get(ctx context.Context, actor model.Principal, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	if err := requireAccess(actor, id); err != nil {
		return nil, err
	}
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) List(ctx context.Context, actor model.Principal, search string, offset, limit int) ([]*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.List")()
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = model.DefaultListLimit
	}
	if limit > model.MaxListLimit {
		limit = model.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return u.users.List(ctx, repository.NoTX, search, offset, limit)
}

func (u *userUC) Count(ctx context.Context, actor model.Principal) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	return u.users.Count(ctx, repository.NoTX)
}
