package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pflanzen/pflanze"
)

type memoryFile struct {
	meta pflanze.StoredFile
	data []byte
}

// MemoryFiles 内存文件存储
type MemoryFiles struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
}

// NewMemoryFiles 创建内存文件存储
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string]*memoryFile)}
}

var _ pflanze.BlobStore = (*MemoryFiles)(nil)

func (m *MemoryFiles) Save(_ context.Context, filename string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read file %s: %w", filename, err)
	}
	f := &memoryFile{
		meta: pflanze.StoredFile{
			ID:          uuid.NewString(),
			Filename:    filename,
			ContentType: contentType,
			Size:        int64(len(b)),
			UploadedAt:  time.Now().UTC(),
		},
		data: b,
	}

	m.mu.Lock()
	m.files[f.meta.ID] = f
	m.mu.Unlock()
	return nil
}

func (m *MemoryFiles) List(_ context.Context, filename string) ([]pflanze.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []pflanze.StoredFile
	for _, f := range m.files {
		if f.meta.Filename == filename {
			result = append(result, f.meta)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.Before(result[j].UploadedAt) })
	return result, nil
}

func (m *MemoryFiles) Open(_ context.Context, fileID string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *MemoryFiles) Delete(_ context.Context, fileIDs ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, id := range fileIDs {
		if _, ok := m.files[id]; ok {
			delete(m.files, id)
			n++
		}
	}
	return n, nil
}
