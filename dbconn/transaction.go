package dbconn

import (
	"context"
	"errors"
)

// Transaction implements Conn.
//
// The transaction is traced as a "transaction" span named after the
// connection ID. body receives c itself, so statements it runs are traced
// as children of the transaction span. Nested calls open savepoints and
// nested spans.
func (c *TracedConn) Transaction(ctx context.Context, body TxFunc) (err error) {
	if err := c.ready(); err != nil {
		return err
	}

	op := c.begin(ctx, kindTransaction, c.id.String(), c.cfg.baseAttributes(c.info))
	defer op.finish(&err)

	return RunTransaction(op.ctx, c.inner.TransactionManager(), c, body)
}

// RunTransaction runs body between Begin and Commit on tm, passing conn.
//
// If body returns an error or panics the transaction is rolled back; the
// body's error is returned unchanged, joined with the rollback error if
// that fails too. Conn implementations use it to provide Transaction.
func RunTransaction(ctx context.Context, tm TransactionManager, conn Conn, body TxFunc) error {
	if err := tm.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tm.Rollback(ctx)
			panic(r)
		}
	}()

	if err := body(ctx, conn); err != nil {
		if rbErr := tm.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tm.Commit(ctx)
}

// Transact is Conn.Transaction for bodies that produce a value.
//
// Example:
//
//	n, err := dbconn.Transact(ctx, conn, func(ctx context.Context, c dbconn.Conn) (int64, error) {
//	    return c.ExecuteReturningCount(ctx, dbconn.Raw("UPDATE jobs SET state = 'done'"))
//	})
func Transact[T any](
	ctx context.Context,
	conn Conn,
	body func(ctx context.Context, conn Conn) (T, error),
) (T, error) {
	var out T
	err := conn.Transaction(ctx, func(ctx context.Context, c Conn) error {
		var err error
		out, err = body(ctx, c)
		return err
	})
	return out, err
}
