package basic

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "pflanzen/data/db"
	"pflanzen/data/db/dialect"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(core.DBConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New(core.DBConfig{Driver: "sqlite"})
	require.Error(t, err)
}

func TestDB_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	require.NoError(t, ExecScript(ctx, database,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)",
		"INSERT INTO t (id, name) VALUES (1, 'a')",
	))

	var name string
	require.NoError(t, database.QueryRow(ctx, "SELECT name FROM t WHERE id = ?", 1).Scan(&name))
	assert.Equal(t, "a", name)

	_, err := database.Exec(ctx, "INSERT INTO t (id, name) VALUES (2, 'a')")
	require.Error(t, err)
	assert.True(t, dialect.FromDatabase(database).IsUniqueViolation(err))
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	require.NoError(t, ExecScript(ctx, database, "CREATE TABLE t (id INTEGER PRIMARY KEY)"))

	require.NoError(t, core.WithTx(ctx, database, func(tx core.ITransaction) error {
		_, err := tx.Exec(ctx, "INSERT INTO t (id) VALUES (?)", 1)
		return err
	}))

	boom := errors.New("boom")
	err := core.WithTx(ctx, database, func(tx core.ITransaction) error {
		if _, err := tx.Exec(ctx, "INSERT INTO t (id) VALUES (?)", 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := database.Query(ctx, "SELECT id FROM t ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{1}, ids)
}

func TestTx_SeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	require.NoError(t, ExecScript(ctx, database, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"))

	tx, err := database.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	assert.Equal(t, dialect.NameSQLite, dialect.FromDatabase(tx).Name())
	_, err = tx.Exec(ctx, "INSERT INTO t (id, name) VALUES (?, ?)", 1, "a")
	require.NoError(t, err)

	var name string
	require.NoError(t, tx.QueryRow(ctx, "SELECT name FROM t WHERE id = ?", 1).Scan(&name))
	assert.Equal(t, "a", name)
	require.NoError(t, tx.Rollback())

	err = database.QueryRow(ctx, "SELECT name FROM t WHERE id = ?", 1).Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
