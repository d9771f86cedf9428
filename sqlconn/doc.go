// Package sqlconn provides a dbconn.Conn backed by database/sql and
// jmoiron/sqlx.
//
// Each Conn pins exactly one connection, so session state such as the
// current transaction is never shared:
//
//	drv := dbconn.WrapDriver(sqlconn.Driver{DriverName: "mysql"})
//	conn, err := drv.Establish(ctx, "user:pass@tcp(localhost:3306)/app")
//
// # Transactions
//
// Transactions follow ANSI semantics. The outermost Begin starts a real
// transaction; nested levels use SAVEPOINT sentinel_savepoint_<n>, released
// on Commit and rolled back to on Rollback.
package sqlconn
