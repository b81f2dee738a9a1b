package rest

import (
	"encoding/json"

	"pflanzen/pflanze"
)

// Link HATEOAS 链接
type Link struct {
	Href string `json:"href"`
}

// Links 单个实体返回全部链接，列表元素只带 self
type Links struct {
	Self   Link  `json:"self"`
	List   *Link `json:"list,omitempty"`
	Add    *Link `json:"add,omitempty"`
	Update *Link `json:"update,omitempty"`
	Remove *Link `json:"remove,omitempty"`
}

// PflanzeDTO 对外表示，不含 id、version 与时间戳
type PflanzeDTO struct {
	Name          string              `json:"name"`
	Wuchshoehe    *float64            `json:"wuchshoehe,omitempty"`
	Pflanzentyp   pflanze.Pflanzentyp `json:"pflanzentyp,omitempty"`
	Versandart    pflanze.Versandart  `json:"versandart,omitempty"`
	Preis         float64             `json:"preis"`
	Rabatt        *float64            `json:"rabatt,omitempty"`
	Lieferbar     bool                `json:"lieferbar"`
	Artikelnummer *string             `json:"artikelnummer,omitempty"`
	Herkunft      *string             `json:"herkunft,omitempty"`
	Schlagwoerter []string            `json:"schlagwoerter,omitempty"`
	Zulieferer    json.RawMessage     `json:"zulieferer,omitempty"`
	Links         Links               `json:"_links"`
}

// PflanzeInput 创建与更新的请求体
type PflanzeInput struct {
	Name          string              `json:"name"`
	Wuchshoehe    *float64            `json:"wuchshoehe"`
	Pflanzentyp   pflanze.Pflanzentyp `json:"pflanzentyp"`
	Versandart    pflanze.Versandart  `json:"versandart"`
	Preis         float64             `json:"preis"`
	Rabatt        *float64            `json:"rabatt"`
	Lieferbar     bool                `json:"lieferbar"`
	Artikelnummer *string             `json:"artikelnummer"`
	Herkunft      *string             `json:"herkunft"`
	Schlagwoerter []string            `json:"schlagwoerter"`
	Zulieferer    json.RawMessage     `json:"zulieferer"`
}

// Entity 转为领域实体（新对象）
func (in *PflanzeInput) Entity() *pflanze.Pflanze {
	return (&pflanze.Pflanze{
		Name:          in.Name,
		Wuchshoehe:    in.Wuchshoehe,
		Pflanzentyp:   in.Pflanzentyp,
		Versandart:    in.Versandart,
		Preis:         in.Preis,
		Rabatt:        in.Rabatt,
		Lieferbar:     in.Lieferbar,
		Artikelnummer: in.Artikelnummer,
		Herkunft:      in.Herkunft,
		Schlagwoerter: in.Schlagwoerter,
		Zulieferer:    in.Zulieferer,
	}).Clone()
}

// toDTO 复制公开字段并附加链接，不修改 p
func toDTO(p *pflanze.Pflanze, links Links) *PflanzeDTO {
	c := p.Clone()
	return &PflanzeDTO{
		Name:          c.Name,
		Wuchshoehe:    c.Wuchshoehe,
		Pflanzentyp:   c.Pflanzentyp,
		Versandart:    c.Versandart,
		Preis:         c.Preis,
		Rabatt:        c.Rabatt,
		Lieferbar:     c.Lieferbar,
		Artikelnummer: c.Artikelnummer,
		Herkunft:      c.Herkunft,
		Schlagwoerter: c.Schlagwoerter,
		Zulieferer:    c.Zulieferer,
		Links:         links,
	}
}

func entityLinks(baseURI, id string) Links {
	self := baseURI + "/" + id
	return Links{
		Self:   Link{Href: self},
		List:   &Link{Href: baseURI},
		Add:    &Link{Href: baseURI},
		Update: &Link{Href: self},
		Remove: &Link{Href: self},
	}
}

func listLinks(baseURI, id string) Links {
	return Links{Self: Link{Href: baseURI + "/" + id}}
}
