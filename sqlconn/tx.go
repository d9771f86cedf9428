package sqlconn

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

// Compile-time interface check.
var _ dbconn.TransactionManager = (*transactionManager)(nil)

// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
var ErrNoTransaction = errors.New("sqlconn: no transaction in progress")

// transactionManager implements ANSI transactions on one connection.
// The outermost level is a real transaction; inner levels are savepoints.
type transactionManager struct {
	conn  *sqlx.Conn
	tx    *sqlx.Tx
	depth int
}

func savepointName(depth int) string {
	return fmt.Sprintf("sentinel_savepoint_%d", depth)
}

// Begin implements dbconn.TransactionManager.
func (tm *transactionManager) Begin(ctx context.Context) error {
	if tm.depth == 0 {
		tx, err := tm.conn.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		tm.tx = tx
		tm.depth = 1
		return nil
	}

	if _, err := tm.tx.ExecContext(ctx, "SAVEPOINT "+savepointName(tm.depth)); err != nil {
		return err
	}
	tm.depth++
	return nil
}

// Commit implements dbconn.TransactionManager.
func (tm *transactionManager) Commit(ctx context.Context) error {
	switch tm.depth {
	case 0:
		return ErrNoTransaction
	case 1:
		// A failed COMMIT still ends the transaction in database/sql.
		defer tm.reset()
		return tm.tx.Commit()
	}

	if _, err := tm.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName(tm.depth-1)); err != nil {
		return err
	}
	tm.depth--
	return nil
}

// Rollback implements dbconn.TransactionManager.
func (tm *transactionManager) Rollback(ctx context.Context) error {
	switch tm.depth {
	case 0:
		return ErrNoTransaction
	case 1:
		defer tm.reset()
		return tm.tx.Rollback()
	}

	if _, err := tm.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName(tm.depth-1)); err != nil {
		return err
	}
	tm.depth--
	return nil
}

// Depth implements dbconn.TransactionManager.
func (tm *transactionManager) Depth() int {
	return tm.depth
}

func (tm *transactionManager) reset() {
	tm.tx = nil
	tm.depth = 0
}
