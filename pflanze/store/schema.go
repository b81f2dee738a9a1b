package store

import (
	"context"
	"fmt"

	core "pflanzen/data/db"
	"pflanzen/data/db/basic"
	"pflanzen/data/db/dialect"
)

const (
	tablePflanzen = "pflanzen"
	tableFiles    = "pflanze_files"
)

const createPflanzen = `CREATE TABLE IF NOT EXISTS pflanzen (
	id            TEXT PRIMARY KEY,
	version       BIGINT NOT NULL DEFAULT 0,
	name          TEXT NOT NULL UNIQUE,
	artikelnummer TEXT UNIQUE,
	pflanzentyp   TEXT NOT NULL,
	versandart    TEXT NOT NULL,
	lieferbar     BOOLEAN NOT NULL DEFAULT FALSE,
	herkunft      TEXT,
	schlagwoerter TEXT NOT NULL DEFAULT '',
	doc           TEXT NOT NULL,
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL
)`

const createFiles = `CREATE TABLE IF NOT EXISTS pflanze_files (
	file_id      TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         BIGINT NOT NULL,
	data         %s NOT NULL,
	uploaded_at  BIGINT NOT NULL
)`

// CreateSchema 创建表与索引（幂等）
func CreateSchema(ctx context.Context, database core.IDatabase) error {
	d := dialect.FromDatabase(database)
	return basic.ExecScript(ctx, database,
		createPflanzen,
		`CREATE INDEX IF NOT EXISTS idx_pflanzen_schlagwoerter ON pflanzen (schlagwoerter)`,
		fmt.Sprintf(createFiles, d.BlobType()),
		`CREATE INDEX IF NOT EXISTS idx_pflanze_files_filename ON pflanze_files (filename)`,
	)
}

// DropSchema 删除全部表
func DropSchema(ctx context.Context, database core.IDatabase) error {
	return basic.ExecScript(ctx, database,
		`DROP TABLE IF EXISTS pflanze_files`,
		`DROP TABLE IF EXISTS pflanzen`,
	)
}
