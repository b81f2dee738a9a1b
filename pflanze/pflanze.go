// Package pflanze 实现 Pflanze 实体、校验规则与带乐观锁的实体服务
package pflanze

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Pflanzentyp 植物类别
type Pflanzentyp string

const (
	Gartenpflanze Pflanzentyp = "GARTENPFLANZE"
	Zimmerpflanze Pflanzentyp = "ZIMMERPFLANZE"
	Nutzpflanze   Pflanzentyp = "NUTZPFLANZE"
)

// Versandart 发货方式
type Versandart string

const (
	Versand        Versandart = "VERSAND"
	Selbstabholung Versandart = "SELBSTABHOLUNG"
	OutOfStock     Versandart = "OUT_OF_STOCK"
)

// MaxWuchshoehe 生长高度上限
const MaxWuchshoehe = 5

// Pflanze 持久化实体
//
// ID 与 Version 由服务维护：创建时分配 ID、版本为 0，每次成功更新版本 +1。
type Pflanze struct {
	ID            string          `json:"id,omitempty"`
	Version       int64           `json:"version"`
	Name          string          `json:"name"`
	Wuchshoehe    *float64        `json:"wuchshoehe,omitempty"`
	Pflanzentyp   Pflanzentyp     `json:"pflanzentyp,omitempty"`
	Versandart    Versandart      `json:"versandart,omitempty"`
	Preis         float64         `json:"preis"`
	Rabatt        *float64        `json:"rabatt,omitempty"`
	Lieferbar     bool            `json:"lieferbar"`
	Artikelnummer *string         `json:"artikelnummer,omitempty"`
	Herkunft      *string         `json:"herkunft,omitempty"`
	Schlagwoerter []string        `json:"schlagwoerter,omitempty"`
	Zulieferer    json.RawMessage `json:"zulieferer,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// GetID 返回实体ID
func (p *Pflanze) GetID() string { return p.ID }

// GetVersion 返回版本号
func (p *Pflanze) GetVersion() int64 { return p.Version }

// Clone 深拷贝，存储层返回的实体与内部状态互不影响
func (p *Pflanze) Clone() *Pflanze {
	if p == nil {
		return nil
	}
	c := *p
	c.Wuchshoehe = cloneFloat(p.Wuchshoehe)
	c.Rabatt = cloneFloat(p.Rabatt)
	c.Artikelnummer = cloneString(p.Artikelnummer)
	c.Herkunft = cloneString(p.Herkunft)
	if p.Schlagwoerter != nil {
		c.Schlagwoerter = append([]string(nil), p.Schlagwoerter...)
	}
	if p.Zulieferer != nil {
		c.Zulieferer = append(json.RawMessage(nil), p.Zulieferer...)
	}
	return &c
}

// KeywordKey 关键词集合的规范形式：去重、排序后以逗号连接，用于与顺序无关的精确匹配
func KeywordKey(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[k] = struct{}{}
	}
	uniq := make([]string, 0, len(set))
	for k := range set {
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Ptr 返回值的指针，便于构造可选字段
func Ptr[T any](v T) *T {
	return &v
}
