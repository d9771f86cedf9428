package dbconn

import (
	"context"
	"database/sql"
)

// ConnectionInfo identifies the server a connection talks to.
// It is captured once at establish time and never changes.
type ConnectionInfo struct {
	CurrentDatabase string
	Version         string
}

// Dialect names the database system and how to ask the server who it is.
//
// ProbeQuery must return a single row of two text columns: the current
// database name and the server version.
type Dialect struct {
	System     string
	ProbeQuery string
}

// Known dialects.
var (
	// MySQL uses the information functions DATABASE() and VERSION().
	MySQL = Dialect{
		System:     "mysql",
		ProbeQuery: "SELECT DATABASE(), VERSION()",
	}

	PostgreSQL = Dialect{
		System:     "postgresql",
		ProbeQuery: "SELECT current_database(), version()",
	}

	// SQLite has no database name; the main schema is reported instead.
	SQLite = Dialect{
		System:     "sqlite",
		ProbeQuery: "SELECT 'main', sqlite_version()",
	}
)

// probe runs the capability probe directly on conn.
func (d Dialect) probe(ctx context.Context, conn Conn) (ConnectionInfo, error) {
	rows, err := conn.Load(ctx, Raw(d.ProbeQuery))
	if err != nil {
		return ConnectionInfo{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ConnectionInfo{}, err
		}
		return ConnectionInfo{}, errProbeNoRows
	}

	// DATABASE() is NULL when no schema is selected.
	var name, version sql.NullString
	if err := rows.Scan(&name, &version); err != nil {
		return ConnectionInfo{}, err
	}

	return ConnectionInfo{
		CurrentDatabase: name.String,
		Version:         version.String,
	}, rows.Err()
}
