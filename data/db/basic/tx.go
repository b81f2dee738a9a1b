package basic

import (
	"context"
	"database/sql"

	core "pflanzen/data/db"
	"pflanzen/data/db/dialect"
)

// Tx 包装 *sql.Tx，语句按连接的方言改写占位符
type Tx struct {
	tx      *sql.Tx
	dialect dialect.Dialect
}

var _ core.ITransaction = (*Tx)(nil)

func (t *Tx) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)}
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// GetDialectName 事务内的语句与所属连接同一方言
func (t *Tx) GetDialectName() string { return string(t.dialect.Name()) }
