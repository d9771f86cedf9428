// Package dbconn traces a database connection with OpenTelemetry.
//
// A TracedConn wraps any Conn and brackets connection setup, statements and
// transactions with spans, while returning results and errors of the wrapped
// connection unchanged.
//
// # Quick Start
//
//	conn, err := dbconn.Establish(ctx, sqlconn.Driver{DriverName: "mysql"}, dsn,
//	    dbconn.WithDialect(dbconn.MySQL),
//	    dbconn.WithTracerProvider(tp),
//	)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	rows, err := conn.Load(ctx, dbconn.Raw("SELECT id FROM users WHERE email = ?", email))
//
// # Transactions
//
// Statements issued inside a transaction body become children of the
// transaction span:
//
//	err := conn.Transaction(ctx, func(ctx context.Context, tx dbconn.Conn) error {
//	    _, err := tx.ExecuteReturningCount(ctx, dbconn.Raw("UPDATE accounts SET balance = balance - ?", amount))
//	    return err
//	})
//
// # Observability
//
// Traces:
//   - "establish" span (op db.connection) per connection
//   - one span per statement (op db.sql.query), named after the rendered SQL
//   - one span per transaction (op db.transaction), named after the connection ID
//   - Attributes: db.system, db.name, db.version, db.statement, otel.kind
//
// Metrics:
//   - db.client.operation.duration (histogram by operation kind and status)
//
// Statements touching the session table (" `Session` ") are not traced.
package dbconn
