package pflanze

import (
	"context"
	"io"

	"pflanzen/errors"
	"pflanzen/logging"
)

// File 下载结果，调用方负责关闭 Content
type File struct {
	Content     io.ReadCloser
	ContentType string
	Size        int64
}

// FileService 实体附件：每个实体最多一个文件，文件名即实体ID
type FileService struct {
	store  Store
	blobs  BlobStore
	logger logging.Logger
}

// NewFileService 创建附件服务
func NewFileService(store Store, blobs BlobStore, logger logging.Logger) *FileService {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &FileService{
		store:  store,
		blobs:  blobs,
		logger: logger.WithFields(logging.String("component", "pflanze.files")),
	}
}

// Save 保存附件并替换旧文件；实体不存在时返回 false
//
// 旧文件在新文件写入成功后才删除，读取失败时原附件保持不变。
func (s *FileService) Save(ctx context.Context, id string, data io.Reader, contentType string) (bool, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "find pflanze by id")
	}
	if p == nil {
		return false, nil
	}

	old, err := s.blobs.List(ctx, id)
	if err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "list files")
	}
	if err := s.blobs.Save(ctx, id, data, contentType); err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "save file")
	}
	ids := make([]string, 0, len(old))
	for _, f := range old {
		ids = append(ids, f.ID)
	}
	deleted, err := s.blobs.Delete(ctx, ids...)
	if err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "delete old files")
	}
	s.logger.Debug(ctx, "Datei gespeichert",
		logging.String("id", id), logging.String("content_type", contentType), logging.Int64("replaced", deleted))
	return true, nil
}

// Find 读取附件；业务失败为 PflanzeNotExists、FileNotFound 或 MultipleFiles
func (s *FileService) Find(ctx context.Context, id string) (*File, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "find pflanze by id")
	}
	if p == nil {
		return nil, &PflanzeNotExists{ID: id}
	}

	files, err := s.blobs.List(ctx, id)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "list files")
	}
	switch len(files) {
	case 0:
		return nil, &FileNotFound{Filename: id}
	case 1:
	default:
		s.logger.Warn(ctx, "mehrere Dateien", logging.String("id", id), logging.Int("count", len(files)))
		return nil, &MultipleFiles{Filename: id}
	}

	content, err := s.blobs.Open(ctx, files[0].ID)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "open file")
	}
	return &File{Content: content, ContentType: files[0].ContentType, Size: files[0].Size}, nil
}
