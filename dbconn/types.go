package dbconn

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
)

// bindsMarker separates the statement from its binds in rendered text.
const bindsMarker = " -- binds: "

// Driver establishes connections from a database URL.
type Driver interface {
	Establish(ctx context.Context, url string) (Conn, error)
}

// Conn is the capability set of a single database connection.
// Implementations are not safe for concurrent use; hand out one Conn per
// borrower (see package pool).
type Conn interface {
	// BatchExecute runs one or more raw statements without bind arguments.
	BatchExecute(ctx context.Context, sql string) error

	// Load runs q and streams its rows.
	Load(ctx context.Context, q Query) (Rows, error)

	// ExecuteReturningCount runs q and returns the number of affected rows.
	ExecuteReturningCount(ctx context.Context, q Query) (int64, error)

	// Transaction runs body inside a transaction, committing when it returns
	// nil and rolling back otherwise. Calls nest through savepoints.
	Transaction(ctx context.Context, body TxFunc) error

	// TransactionManager exposes the connection's transaction state.
	TransactionManager() TransactionManager

	// Ping checks that the connection is still alive.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// TxFunc is the body of a transaction. It receives the connection to run
// its statements on.
type TxFunc func(ctx context.Context, conn Conn) error

// TransactionManager drives ANSI transactions on a connection.
// Depth is 0 outside a transaction and grows by one per nested level.
type TransactionManager interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Depth() int
}

// Rows iterates over a query result. *sql.Rows and *sqlx.Rows satisfy it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Query is a statement with its bind arguments.
type Query interface {
	SQL() (text string, args []any)
}

// Statement is the plain Query implementation.
type Statement struct {
	Text string
	Args []any
}

// SQL implements Query.
func (s Statement) SQL() (string, []any) {
	return s.Text, s.Args
}

// Raw builds a Statement.
//
// Example:
//
//	rows, err := conn.Load(ctx, dbconn.Raw("SELECT name FROM users WHERE id = ?", 42))
func Raw(text string, args ...any) Statement {
	return Statement{Text: text, Args: args}
}

// Render returns the debug text of q: the SQL followed by its binds.
//
// Example:
//
//	Render(Raw("SELECT * FROM users WHERE id = ?", 1))
//	// returns `SELECT * FROM users WHERE id = ? -- binds: [1]`
func Render(q Query) string {
	text, args := q.SQL()
	if len(args) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString(bindsMarker)

	encoded, err := json.Marshal(args)
	if err != nil {
		b.WriteString("[?]")
		return b.String()
	}
	b.Write(encoded)

	return b.String()
}
