package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	core "pflanzen/data/db"
	"pflanzen/data/db/dialect"
	"pflanzen/pflanze"
)

// SQLFiles 存于 pflanze_files 表的文件存储
type SQLFiles struct {
	db      core.IDatabase
	builder goqu.DialectWrapper
}

// NewSQLFiles 创建 SQL 文件存储
func NewSQLFiles(database core.IDatabase) *SQLFiles {
	return &SQLFiles{
		db:      database,
		builder: goqu.Dialect(dialect.FromDatabase(database).Goqu()),
	}
}

var _ pflanze.BlobStore = (*SQLFiles)(nil)

func (s *SQLFiles) Save(ctx context.Context, filename string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read file %s: %w", filename, err)
	}
	query, args, err := s.builder.Insert(tableFiles).Rows(goqu.Record{
		"file_id":      uuid.NewString(),
		"filename":     filename,
		"content_type": contentType,
		"size":         int64(len(b)),
		"data":         b,
		"uploaded_at":  time.Now().UnixMilli(),
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = s.db.Exec(ctx, query, args...)
	return err
}

func (s *SQLFiles) List(ctx context.Context, filename string) ([]pflanze.StoredFile, error) {
	query, args, err := s.builder.From(tableFiles).
		Select("file_id", "filename", "content_type", "size", "uploaded_at").
		Where(goqu.C("filename").Eq(filename)).
		Order(goqu.C("uploaded_at").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pflanze.StoredFile
	for rows.Next() {
		var (
			f          pflanze.StoredFile
			uploadedAt int64
		)
		if err := rows.Scan(&f.ID, &f.Filename, &f.ContentType, &f.Size, &uploadedAt); err != nil {
			return nil, err
		}
		f.UploadedAt = time.UnixMilli(uploadedAt).UTC()
		result = append(result, f)
	}
	return result, rows.Err()
}

// Open 整体读出内容；附件为图片等小文件
func (s *SQLFiles) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	query, args, err := s.builder.From(tableFiles).
		Select("data").
		Where(goqu.C("file_id").Eq(fileID)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build open query: %w", err)
	}
	var data []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&data); err != nil {
		return nil, fmt.Errorf("open file %s: %w", fileID, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SQLFiles) Delete(ctx context.Context, fileIDs ...string) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}
	query, args, err := s.builder.Delete(tableFiles).Where(goqu.C("file_id").In(fileIDs)).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
