package sqlconn

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kroma-labs/sentinel-dbtrace/dbconn"
)

func newMockConn(t *testing.T) (*Conn, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	conn, err := New(context.Background(), mockDB, "sqlmock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, mock
}

func TestConn_Load(t *testing.T) {
	type user struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}

	tests := []struct {
		name    string
		mockFn  func(sqlmock.Sqlmock)
		wantErr assert.ErrorAssertionFunc
		want    []user
	}{
		{
			name: "given matching rows, then struct scans them",
			mockFn: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(1, "John").
					AddRow(2, "Jane")
				mock.ExpectQuery("SELECT id, name FROM users WHERE id > ?").
					WithArgs(0).
					WillReturnRows(rows)
			},
			wantErr: assert.NoError,
			want:    []user{{ID: 1, Name: "John"}, {ID: 2, Name: "Jane"}},
		},
		{
			name: "given query error, then returns it",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name FROM users WHERE id > ?").
					WithArgs(0).
					WillReturnError(assert.AnError)
			},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newMockConn(t)
			tt.mockFn(mock)

			rows, err := conn.Load(context.Background(),
				dbconn.Raw("SELECT id, name FROM users WHERE id > ?", 0))
			tt.wantErr(t, err)

			var got []user
			if err == nil {
				defer rows.Close()
				for rows.Next() {
					var u user
					require.NoError(t, rows.(*sqlx.Rows).StructScan(&u))
					got = append(got, u)
				}
				require.NoError(t, rows.Err())
			}

			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConn_ExecuteReturningCount(t *testing.T) {
	tests := []struct {
		name    string
		mockFn  func(sqlmock.Sqlmock)
		want    int64
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name: "given update, then returns rows affected",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE users SET active = ? WHERE team = ?").
					WithArgs(false, "ops").
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			want:    3,
			wantErr: assert.NoError,
		},
		{
			name: "given exec error, then returns it",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE users SET active = ? WHERE team = ?").
					WithArgs(false, "ops").
					WillReturnError(assert.AnError)
			},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newMockConn(t)
			tt.mockFn(mock)

			got, err := conn.ExecuteReturningCount(context.Background(),
				dbconn.Raw("UPDATE users SET active = ? WHERE team = ?", false, "ops"))

			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConn_BatchExecute(t *testing.T) {
	conn, mock := newMockConn(t)
	mock.ExpectExec("SET NAMES utf8mb4").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, conn.BatchExecute(context.Background(), "SET NAMES utf8mb4"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_Ping(t *testing.T) {
	conn, _ := newMockConn(t)

	assert.NoError(t, conn.Ping(context.Background()))
}

func TestConn_CloseRollsBackOpenTransaction(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mockDB.Close()

	conn, err := New(context.Background(), mockDB, "sqlmock")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, conn.TransactionManager().Begin(context.Background()))
	require.NoError(t, conn.Close())

	assert.Equal(t, 0, conn.TransactionManager().Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_Establish(t *testing.T) {
	dsn := "sqlmock_" + t.Name()
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mockDB.Close()

	conn, err := Driver{DriverName: "sqlmock"}.Establish(context.Background(), dsn)
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectClose()

	n, err := conn.ExecuteReturningCount(context.Background(), dbconn.Raw("DELETE FROM sessions"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, conn.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_Establish_UnknownDriver(t *testing.T) {
	_, err := Driver{DriverName: "nope"}.Establish(context.Background(), "whatever")

	assert.Error(t, err)
}

func TestTracedSQLConn(t *testing.T) {
	dsn := "sqlmock_" + t.Name()
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer mockDB.Close()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	mock.ExpectQuery(dbconn.MySQL.ProbeQuery).
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()", "VERSION()"}).AddRow("shop", "8.0.36"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock SET qty = qty - ? WHERE sku = ?").
		WithArgs(1, "A-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	drv := dbconn.WrapDriver(Driver{DriverName: "sqlmock"}, dbconn.WithTracerProvider(tp))
	conn, err := drv.Establish(context.Background(), dsn)
	require.NoError(t, err)

	err = conn.Transaction(context.Background(), func(ctx context.Context, tx dbconn.Conn) error {
		_, err := tx.ExecuteReturningCount(ctx, dbconn.Raw("UPDATE stock SET qty = qty - ? WHERE sku = ?", 1, "A-1"))
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "establish", spans[0].Name)
	assert.Equal(t, `UPDATE stock SET qty = qty - ? WHERE sku = ? -- binds: [1,"A-1"]`, spans[1].Name)
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[1].Parent.SpanID())

	var dbName string
	for _, kv := range spans[1].Attributes {
		if kv.Key == dbconn.AttrDBName {
			dbName = kv.Value.AsString()
		}
	}
	assert.Equal(t, "shop", dbName)
}
