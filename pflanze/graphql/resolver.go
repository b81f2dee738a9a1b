package graphql

import (
	"context"
	"fmt"
	"math"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"

	"pflanzen/errors"
	"pflanzen/logging"
	"pflanzen/pflanze"
)

// Resolver 根解析器，对应 Query 与 Mutation
type Resolver struct {
	service *pflanze.Service
	logger  logging.Logger
}

// NewResolver 创建根解析器
func NewResolver(service *pflanze.Service) *Resolver {
	return &Resolver{
		service: service,
		logger:  logging.GetLogger().WithFields(logging.String("component", "pflanze.graphql")),
	}
}

// Pflanzen 按名称子串查询
func (r *Resolver) Pflanzen(ctx context.Context, args struct{ Name *string }) (*[]*PflanzeResolver, error) {
	found, err := r.service.Find(ctx, pflanze.Criteria{Name: args.Name})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	out := make([]*PflanzeResolver, 0, len(found))
	for _, p := range found {
		out = append(out, &PflanzeResolver{p: p})
	}
	return &out, nil
}

// Pflanze 按ID查询，不存在时返回 null
func (r *Resolver) Pflanze(ctx context.Context, args struct{ ID graphql.ID }) (*PflanzeResolver, error) {
	p, err := r.service.FindByID(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	if p == nil {
		return nil, nil
	}
	return &PflanzeResolver{p: p}, nil
}

type createArgs struct {
	Name          string
	Wuchshoehe    *float64
	Pflanzentyp   *string
	Versandart    string
	Preis         *float64
	Rabatt        *float64
	Lieferbar     *bool
	Artikelnummer *string
	Herkunft      *string
	Schlagwoerter *[]*string
}

type updateArgs struct {
	ID            graphql.ID
	Name          string
	Wuchshoehe    *float64
	Pflanzentyp   *string
	Versandart    string
	Preis         *float64
	Rabatt        *float64
	Lieferbar     *bool
	Artikelnummer *string
	Herkunft      *string
	Schlagwoerter *[]*string
	Version       *int32
}

// CreatePflanze 创建
func (r *Resolver) CreatePflanze(ctx context.Context, args createArgs) (*PflanzeResolver, error) {
	saved, err := r.service.Create(ctx, args.entity())
	if err != nil {
		r.logger.Debug(ctx, "createPflanze failed", logging.Error(err))
		return nil, toGraphQLError(err)
	}
	return &PflanzeResolver{p: saved}, nil
}

// UpdatePflanze 更新；未给出 version 时按 0 处理
func (r *Resolver) UpdatePflanze(ctx context.Context, args updateArgs) (*PflanzeResolver, error) {
	version := int32(0)
	if args.Version != nil {
		version = *args.Version
	}
	c := createArgs{
		Name: args.Name, Wuchshoehe: args.Wuchshoehe, Pflanzentyp: args.Pflanzentyp, Versandart: args.Versandart,
		Preis: args.Preis, Rabatt: args.Rabatt, Lieferbar: args.Lieferbar, Artikelnummer: args.Artikelnummer,
		Herkunft: args.Herkunft, Schlagwoerter: args.Schlagwoerter,
	}
	updated, err := r.service.Update(ctx, string(args.ID), c.entity(), strconv.Itoa(int(version)))
	if err != nil {
		r.logger.Debug(ctx, "updatePflanze failed", logging.Error(err))
		return nil, toGraphQLError(err)
	}
	return &PflanzeResolver{p: updated}, nil
}

// DeletePflanze 删除，返回是否存在过
func (r *Resolver) DeletePflanze(ctx context.Context, args struct{ ID graphql.ID }) (*bool, error) {
	deleted, err := r.service.Delete(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &deleted, nil
}

func (a *createArgs) entity() *pflanze.Pflanze {
	p := &pflanze.Pflanze{
		Name:          a.Name,
		Wuchshoehe:    a.Wuchshoehe,
		Versandart:    pflanze.Versandart(a.Versandart),
		Rabatt:        a.Rabatt,
		Artikelnummer: a.Artikelnummer,
		Herkunft:      a.Herkunft,
	}
	if a.Pflanzentyp != nil {
		p.Pflanzentyp = pflanze.Pflanzentyp(*a.Pflanzentyp)
	}
	if a.Preis != nil {
		p.Preis = *a.Preis
	}
	if a.Lieferbar != nil {
		p.Lieferbar = *a.Lieferbar
	}
	if a.Schlagwoerter != nil {
		for _, s := range *a.Schlagwoerter {
			if s != nil {
				p.Schlagwoerter = append(p.Schlagwoerter, *s)
			}
		}
	}
	return p
}

// PflanzeResolver 字段解析
type PflanzeResolver struct {
	p *pflanze.Pflanze
}

func (r *PflanzeResolver) ID() graphql.ID { return graphql.ID(r.p.ID) }

// Version GraphQL 的 Int 为 32 位；超出范围的版本号报错而不截断
func (r *PflanzeResolver) Version() (*int32, error) {
	if r.p.Version < 0 || r.p.Version > math.MaxInt32 {
		return nil, &gqlError{
			msg:        fmt.Sprintf("Die Versionsnummer %d ist als GraphQL Int nicht darstellbar.", r.p.Version),
			extensions: map[string]any{"code": string(errors.ErrCodeInternal)},
		}
	}
	v := int32(r.p.Version)
	return &v, nil
}

func (r *PflanzeResolver) Name() string            { return r.p.Name }
func (r *PflanzeResolver) Wuchshoehe() *float64    { return r.p.Wuchshoehe }
func (r *PflanzeResolver) Versandart() string      { return string(r.p.Versandart) }
func (r *PflanzeResolver) Preis() *float64         { return &r.p.Preis }
func (r *PflanzeResolver) Rabatt() *float64        { return r.p.Rabatt }
func (r *PflanzeResolver) Lieferbar() *bool        { return &r.p.Lieferbar }
func (r *PflanzeResolver) Artikelnummer() *string  { return r.p.Artikelnummer }
func (r *PflanzeResolver) Herkunft() *string       { return r.p.Herkunft }
func (r *PflanzeResolver) Pflanzentyp() *string {
	if r.p.Pflanzentyp == "" {
		return nil
	}
	s := string(r.p.Pflanzentyp)
	return &s
}
func (r *PflanzeResolver) Schlagwoerter() *[]*string {
	out := make([]*string, len(r.p.Schlagwoerter))
	for i := range r.p.Schlagwoerter {
		out[i] = &r.p.Schlagwoerter[i]
	}
	return &out
}

// gqlError 带 extensions.code 的 GraphQL 错误
type gqlError struct {
	msg        string
	extensions map[string]any
}

func (e *gqlError) Error() string                      { return e.msg }
func (e *gqlError) Extensions() map[string]interface{} { return e.extensions }

func toGraphQLError(err error) error {
	code := errors.GetErrorCode(errors.Normalize(err))
	ext := map[string]any{"code": string(code)}
	msg := err.Error()
	switch e := err.(type) {
	case *pflanze.PflanzeInvalid:
		ext["fields"] = map[string]string(e.Msg)
	case pflanze.ServiceError:
	default:
		// 基础设施错误不向客户端暴露细节
		msg = "Interner Fehler"
	}
	return &gqlError{msg: msg, extensions: ext}
}
