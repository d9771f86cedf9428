package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
	"github.com/kroma-labs/sentinel-dbtrace/phonenumber"
)

// User represents a user in the database
type User struct {
	ID    int                     `db:"id"`
	Name  string                  `db:"name"`
	Email string                  `db:"email"`
	Phone phonenumber.PhoneNumber `db:"phone"`
}

// CreateTable creates the users table if it doesn't exist
func (db *DB) CreateTable(ctx context.Context) error {
	lease, err := db.Get(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return lease.BatchExecute(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100),
			email VARCHAR(100) UNIQUE,
			phone VARCHAR(32)
		)
	`)
}

// InsertUsers inserts sample users in one transaction.
func (db *DB) InsertUsers(ctx context.Context) (int64, error) {
	users := []User{
		{Name: "Alice", Email: "alice@example.com", Phone: phonenumber.MustParse("(415) 555-2671")},
		{Name: "Bob", Email: "bob@example.com", Phone: phonenumber.MustParse("+44 20 7946 0958")},
		{Name: "Charlie", Email: "charlie@example.com"},
	}

	lease, err := db.Get(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	return dbconn.Transact(ctx, lease, func(ctx context.Context, tx dbconn.Conn) (int64, error) {
		var inserted int64
		for _, user := range users {
			n, err := tx.ExecuteReturningCount(ctx, dbconn.Raw(
				"INSERT INTO users (name, email, phone) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
				user.Name, user.Email, user.Phone,
			))
			if err != nil {
				return 0, err
			}
			inserted += n
		}
		return inserted, nil
	})
}

// QueryUsers loads up to ten users.
func (db *DB) QueryUsers(ctx context.Context) ([]User, error) {
	lease, err := db.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := lease.Load(ctx, dbconn.Raw("SELECT id, name, email, phone FROM users LIMIT 10"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	if err := sqlx.StructScan(rows, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RenameWithSavepoint renames a user inside a nested transaction that is
// rolled back, leaving the outer transaction to commit.
func (db *DB) RenameWithSavepoint(ctx context.Context, logger zerolog.Logger) error {
	lease, err := db.Get(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return lease.Transaction(ctx, func(ctx context.Context, tx dbconn.Conn) error {
		if _, err := tx.ExecuteReturningCount(ctx, dbconn.Raw(
			"UPDATE users SET name = $1 WHERE email = $2", "Alice", "alice@example.com",
		)); err != nil {
			return err
		}

		nestedErr := tx.Transaction(ctx, func(ctx context.Context, tx dbconn.Conn) error {
			if _, err := tx.ExecuteReturningCount(ctx, dbconn.Raw(
				"UPDATE users SET name = $1 WHERE email = $2", "Mallory", "alice@example.com",
			)); err != nil {
				return err
			}
			return errRenameRejected
		})
		logger.Info().Err(nestedErr).Msg("nested transaction rolled back to savepoint")
		return nil
	})
}
