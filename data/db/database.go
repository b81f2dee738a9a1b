// Package db 是存储层使用的数据库抽象，驱动（modernc sqlite、pgx）在 basic 中注册
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IQuerier 查询与执行，连接与事务共用；占位符统一写 ?，由实现按方言改写
type IQuerier interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IDatabase 数据库连接
type IDatabase interface {
	IQuerier

	Begin(ctx context.Context) (ITransaction, error)
	Close() error
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
type IDialectNameProvider interface {
	// GetDialectName 返回底层数据库方言名称，如 "sqlite"、"pgx"、"postgres"
	GetDialectName() string
}

// ITransaction 事务，不支持嵌套
type ITransaction interface {
	IQuerier

	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver string // sqlite, pgx
	DSN    string // sqlite 为文件路径，pgx 为连接串

	// 连接池配置
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// PingTimeout 打开连接后的可用性检查超时，默认 3s
	PingTimeout time.Duration
}

// WithTx 在事务中执行 fn：fn 返回错误时回滚，否则提交
func WithTx(ctx context.Context, database IDatabase, fn func(tx ITransaction) error) (err error) {
	tx, err := database.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
