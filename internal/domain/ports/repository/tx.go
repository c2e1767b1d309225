package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a storage transaction, passing the
// underlying handle via tx.
//
// Repositories that receive a non-nil tx run on it (and take row locks where
// they read-for-update); a nil tx means the non-transactional path.
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
//
// If fn returns an error every write made through tx is rolled back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
