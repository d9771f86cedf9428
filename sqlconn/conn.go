package sqlconn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

// Compile-time interface checks.
var (
	_ dbconn.Conn   = (*Conn)(nil)
	_ dbconn.Driver = Driver{}
)

// Driver establishes connections through a registered database/sql driver.
type Driver struct {
	// DriverName is the name the driver registered with sql.Register,
	// e.g. "mysql" or "postgres".
	DriverName string
}

// Establish implements dbconn.Driver.
// It opens a dedicated *sql.DB limited to one connection and pins it.
func (d Driver) Establish(ctx context.Context, url string) (dbconn.Conn, error) {
	db, err := sqlx.Open(d.DriverName, url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	c, err := newConn(ctx, db, true)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Conn is a single pinned database/sql connection.
type Conn struct {
	db     *sqlx.DB
	conn   *sqlx.Conn
	tm     *transactionManager
	ownsDB bool
}

// New pins one connection from an existing pool.
// Closing the returned Conn returns the connection to db but leaves db open.
//
// Example:
//
//	sqlDB, _ := sql.Open("mysql", dsn)
//	conn, err := sqlconn.New(ctx, sqlDB, "mysql")
func New(ctx context.Context, db *sql.DB, driverName string) (*Conn, error) {
	return newConn(ctx, sqlx.NewDb(db, driverName), false)
}

func newConn(ctx context.Context, db *sqlx.DB, ownsDB bool) (*Conn, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{
		db:     db,
		conn:   conn,
		tm:     &transactionManager{conn: conn},
		ownsDB: ownsDB,
	}, nil
}

// runner is implemented by both *sqlx.Conn and *sqlx.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// runner returns the open transaction, if any, or the bare connection.
func (c *Conn) runner() runner {
	if c.tm.tx != nil {
		return c.tm.tx
	}
	return c.conn
}

// BatchExecute implements dbconn.Conn.
func (c *Conn) BatchExecute(ctx context.Context, query string) error {
	_, err := c.runner().ExecContext(ctx, query)
	return err
}

// Load implements dbconn.Conn. The rows are *sqlx.Rows and support
// StructScan and MapScan.
func (c *Conn) Load(ctx context.Context, q dbconn.Query) (dbconn.Rows, error) {
	text, args := q.SQL()
	rows, err := c.runner().QueryxContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecuteReturningCount implements dbconn.Conn.
func (c *Conn) ExecuteReturningCount(ctx context.Context, q dbconn.Query) (int64, error) {
	text, args := q.SQL()
	res, err := c.runner().ExecContext(ctx, text, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Transaction implements dbconn.Conn.
func (c *Conn) Transaction(ctx context.Context, body dbconn.TxFunc) error {
	return dbconn.RunTransaction(ctx, c.tm, c, body)
}

// TransactionManager implements dbconn.Conn.
func (c *Conn) TransactionManager() dbconn.TransactionManager {
	return c.tm
}

// Ping implements dbconn.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// Close implements dbconn.Conn. An open transaction is rolled back.
func (c *Conn) Close() error {
	var err error
	if c.tm.tx != nil {
		err = c.tm.tx.Rollback()
		c.tm.reset()
	}
	err = errors.Join(err, c.conn.Close())
	if c.ownsDB {
		err = errors.Join(err, c.db.Close())
	}
	return err
}

// DB returns the sqlx handle the connection was pinned from.
func (c *Conn) DB() *sqlx.DB {
	return c.db
}
