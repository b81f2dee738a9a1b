// Package html 提供服务端渲染的 Pflanze 页面
package html

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	httpx "pflanzen/http"
	"pflanzen/logging"
	"pflanzen/pflanze"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages 页面处理器集合
type Pages struct {
	service *pflanze.Service
	base    string
	pages   map[string]*template.Template
	logger  logging.Logger
}

type pageData struct {
	Title string
	Base  string

	Pflanzen      []*pflanze.Pflanze
	Pflanzentypen []pflanze.Pflanzentyp
	Versandarten  []pflanze.Versandart
	MaxWuchshoehe int
}

var funcs = template.FuncMap{"join": strings.Join}

// NewPages 解析内嵌模板；base 为挂载前缀，如 /html
func NewPages(service *pflanze.Service, base string) (*Pages, error) {
	p := &Pages{
		service: service,
		base:    strings.TrimSuffix(base, "/"),
		pages:   make(map[string]*template.Template),
		logger:  logging.GetLogger().WithFields(logging.String("component", "pflanze.html")),
	}
	for _, name := range []string{"index", "suche", "neue-pflanze"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		p.pages[name] = t
	}
	return p, nil
}

// Register 注册页面路由
func (p *Pages) Register(group httpx.IRouteGroup) {
	group.GET("/{$}", p.Index)
	group.GET("/suche", p.Suche)
	group.GET("/neue-pflanze", p.NeuePflanze)
}

// Index 首页
func (p *Pages) Index(ctx httpx.IHttpContext) error {
	return p.render(ctx, "index", &pageData{Title: "Beispiel"})
}

// Suche 全部实体的列表
func (p *Pages) Suche(ctx httpx.IHttpContext) error {
	found, err := p.service.Find(ctx.GetContext(), pflanze.Criteria{})
	if err != nil {
		return err
	}
	return p.render(ctx, "suche", &pageData{Title: "Suche", Pflanzen: found})
}

// NeuePflanze 录入表单
func (p *Pages) NeuePflanze(ctx httpx.IHttpContext) error {
	return p.render(ctx, "neue-pflanze", &pageData{
		Title:         "Neue Pflanze",
		Pflanzentypen: []pflanze.Pflanzentyp{pflanze.Gartenpflanze, pflanze.Zimmerpflanze, pflanze.Nutzpflanze},
		Versandarten:  []pflanze.Versandart{pflanze.Versand, pflanze.Selbstabholung, pflanze.OutOfStock},
		MaxWuchshoehe: pflanze.MaxWuchshoehe,
	})
}

func (p *Pages) render(ctx httpx.IHttpContext, name string, data *pageData) error {
	data.Base = p.base
	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error(ctx.GetContext(), "render failed", logging.String("page", name), logging.Error(err))
		return err
	}
	return ctx.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
