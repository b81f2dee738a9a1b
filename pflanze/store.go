package pflanze

import (
	"context"
	stderrors "errors"
	"io"
	"time"
)

// ErrUniqueViolation 存储层唯一键冲突；服务据此重新检查并归类为 NameExists 或 ArtikelnummerExists
var ErrUniqueViolation = stderrors.New("pflanze: unique constraint violated")

// Store 实体持久化契约
//
// 所有单实体操作均为原子操作；唯一键冲突时返回包装了 ErrUniqueViolation 的错误。
type Store interface {
	// FindByID 不存在时返回 (nil, nil)
	FindByID(ctx context.Context, id string) (*Pflanze, error)
	// FindIDByName 按名称等值查找，返回命中实体的ID
	FindIDByName(ctx context.Context, name string) (string, bool, error)
	// FindIDByArtikelnummer 按商品编号等值查找
	FindIDByArtikelnummer(ctx context.Context, artikelnummer string) (string, bool, error)
	// Find 按过滤条件查询，结果按 name 升序
	Find(ctx context.Context, filter Filter) ([]*Pflanze, error)
	// Insert 原子写入新实体（ID、版本与时间戳已由服务设置）
	Insert(ctx context.Context, p *Pflanze) (*Pflanze, error)
	// ReplaceByID 整体替换并将版本 +1，保留 createdAt；
	// ifVersion 非空时仅在存储版本等于该值时替换。无匹配记录时返回 (nil, nil)。
	ReplaceByID(ctx context.Context, p *Pflanze, ifVersion *int64) (*Pflanze, error)
	// DeleteByID 返回删除的记录数
	DeleteByID(ctx context.Context, id string) (int64, error)
}

// StoredFile 存储的文件元数据
type StoredFile struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// BlobStore 以文件名（实体ID）为键的二进制文件存储
type BlobStore interface {
	// Save 保存新文件，不删除同名旧文件
	Save(ctx context.Context, filename string, data io.Reader, contentType string) error
	// List 返回同名的全部文件
	List(ctx context.Context, filename string) ([]StoredFile, error)
	// Open 打开指定文件ID的内容
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
	// Delete 按文件ID删除，返回删除数量
	Delete(ctx context.Context, fileIDs ...string) (int64, error)
}
