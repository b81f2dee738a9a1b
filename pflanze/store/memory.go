// Package store 提供 pflanze.Store 与 pflanze.BlobStore 的内存实现和 SQL 实现
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pflanzen/pflanze"
)

// Memory 内存实体存储，维护名称与商品编号两个唯一索引
type Memory struct {
	mu          sync.RWMutex
	byID        map[string]*pflanze.Pflanze
	byName      map[string]string
	byArtikelnr map[string]string
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{
		byID:        make(map[string]*pflanze.Pflanze),
		byName:      make(map[string]string),
		byArtikelnr: make(map[string]string),
	}
}

var _ pflanze.Store = (*Memory)(nil)

func (m *Memory) FindByID(_ context.Context, id string) (*pflanze.Pflanze, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id].Clone(), nil
}

func (m *Memory) FindIDByName(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	return id, ok, nil
}

func (m *Memory) FindIDByArtikelnummer(_ context.Context, artikelnummer string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byArtikelnr[artikelnummer]
	return id, ok, nil
}

func (m *Memory) Find(_ context.Context, filter pflanze.Filter) ([]*pflanze.Pflanze, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keywords := pflanze.KeywordKey(filter.Keywords)
	result := make([]*pflanze.Pflanze, 0, len(m.byID))
	for _, p := range m.byID {
		if matches(p, &filter, keywords) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) Insert(_ context.Context, p *pflanze.Pflanze) (*pflanze.Pflanze, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[p.ID]; ok {
		return nil, fmt.Errorf("id %s: %w", p.ID, pflanze.ErrUniqueViolation)
	}
	if err := m.checkUnique(p, ""); err != nil {
		return nil, err
	}
	m.put(p.Clone())
	return p.Clone(), nil
}

func (m *Memory) ReplaceByID(_ context.Context, p *pflanze.Pflanze, ifVersion *int64) (*pflanze.Pflanze, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[p.ID]
	if !ok || (ifVersion != nil && current.Version != *ifVersion) {
		return nil, nil
	}
	if err := m.checkUnique(p, p.ID); err != nil {
		return nil, err
	}

	next := p.Clone()
	next.Version = current.Version + 1
	next.CreatedAt = current.CreatedAt
	m.remove(current)
	m.put(next)
	return next.Clone(), nil
}

func (m *Memory) DeleteByID(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	m.remove(current)
	return 1, nil
}

// Len 返回实体数量
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Reset 清空全部数据
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.byID)
	clear(m.byName)
	clear(m.byArtikelnr)
}

func (m *Memory) checkUnique(p *pflanze.Pflanze, selfID string) error {
	if id, ok := m.byName[p.Name]; ok && id != selfID {
		return fmt.Errorf("name %q: %w", p.Name, pflanze.ErrUniqueViolation)
	}
	if p.Artikelnummer != nil {
		if id, ok := m.byArtikelnr[*p.Artikelnummer]; ok && id != selfID {
			return fmt.Errorf("artikelnummer %q: %w", *p.Artikelnummer, pflanze.ErrUniqueViolation)
		}
	}
	return nil
}

func (m *Memory) put(p *pflanze.Pflanze) {
	m.byID[p.ID] = p
	m.byName[p.Name] = p.ID
	if p.Artikelnummer != nil {
		m.byArtikelnr[*p.Artikelnummer] = p.ID
	}
}

func (m *Memory) remove(p *pflanze.Pflanze) {
	delete(m.byID, p.ID)
	delete(m.byName, p.Name)
	if p.Artikelnummer != nil {
		delete(m.byArtikelnr, *p.Artikelnummer)
	}
}

func matches(p *pflanze.Pflanze, f *pflanze.Filter, keywords string) bool {
	if !f.MatchesName(p.Name) {
		return false
	}
	if len(f.Keywords) > 0 && pflanze.KeywordKey(p.Schlagwoerter) != keywords {
		return false
	}
	if f.Pflanzentyp != nil && p.Pflanzentyp != *f.Pflanzentyp {
		return false
	}
	if f.Versandart != nil && p.Versandart != *f.Versandart {
		return false
	}
	if f.Lieferbar != nil && p.Lieferbar != *f.Lieferbar {
		return false
	}
	if f.Artikelnummer != nil && (p.Artikelnummer == nil || *p.Artikelnummer != *f.Artikelnummer) {
		return false
	}
	if f.Herkunft != nil && (p.Herkunft == nil || *p.Herkunft != *f.Herkunft) {
		return false
	}
	return true
}
