package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	jsoniter "github.com/json-iterator/go"

	core "pflanzen/data/db"
	"pflanzen/data/db/dialect"
	"pflanzen/pflanze"
)

var docCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	colID            = "id"
	colVersion       = "version"
	colName          = "name"
	colArtikelnummer = "artikelnummer"
	colPflanzentyp   = "pflanzentyp"
	colVersandart    = "versandart"
	colLieferbar     = "lieferbar"
	colHerkunft      = "herkunft"
	colSchlagwoerter = "schlagwoerter"
	colDoc           = "doc"
	colCreatedAt     = "created_at"
	colUpdatedAt     = "updated_at"
)

var selectColumns = []any{
	colID, colVersion, colName, colArtikelnummer, colPflanzentyp, colVersandart,
	colLieferbar, colHerkunft, colDoc, colCreatedAt, colUpdatedAt,
}

// document 不参与查询的字段，以 JSON 存于 doc 列
type document struct {
	Wuchshoehe    *float64        `json:"wuchshoehe,omitempty"`
	Preis         float64         `json:"preis"`
	Rabatt        *float64        `json:"rabatt,omitempty"`
	Schlagwoerter []string        `json:"schlagwoerter,omitempty"`
	Zulieferer    json.RawMessage `json:"zulieferer,omitempty"`
}

// SQL 基于 data/db 抽象的实体存储，语句由 goqu 按方言生成
type SQL struct {
	db      core.IDatabase
	dialect dialect.Dialect
	builder goqu.DialectWrapper
}

// NewSQL 创建 SQL 存储；表结构由 CreateSchema 负责
func NewSQL(database core.IDatabase) *SQL {
	d := dialect.FromDatabase(database)
	return &SQL{
		db:      database,
		dialect: d,
		builder: goqu.Dialect(d.Goqu()),
	}
}

var _ pflanze.Store = (*SQL)(nil)

func (s *SQL) FindByID(ctx context.Context, id string) (*pflanze.Pflanze, error) {
	return s.findOne(ctx, s.db, id)
}

func (s *SQL) FindIDByName(ctx context.Context, name string) (string, bool, error) {
	return s.findID(ctx, goqu.C(colName).Eq(name))
}

func (s *SQL) FindIDByArtikelnummer(ctx context.Context, artikelnummer string) (string, bool, error) {
	return s.findID(ctx, goqu.C(colArtikelnummer).Eq(artikelnummer))
}

func (s *SQL) Find(ctx context.Context, filter pflanze.Filter) ([]*pflanze.Pflanze, error) {
	query, args, err := s.builder.From(tablePflanzen).
		Select(selectColumns...).
		Where(s.whereFilter(&filter)...).
		Order(goqu.C(colName).Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*pflanze.Pflanze, 0)
	for rows.Next() {
		p, err := scanPflanze(rows)
		if err != nil {
			return nil, err
		}
		// SQLite 的 LOWER/LIKE 只折叠 ASCII，名称子串在此按 Unicode 过滤
		if !s.nameInSQL() && !filter.MatchesName(p.Name) {
			continue
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *SQL) Insert(ctx context.Context, p *pflanze.Pflanze) (*pflanze.Pflanze, error) {
	record, err := toRecord(p)
	if err != nil {
		return nil, err
	}
	record[colID] = p.ID
	record[colVersion] = p.Version
	record[colCreatedAt] = p.CreatedAt.UnixMilli()

	query, args, err := s.builder.Insert(tablePflanzen).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	err = core.WithTx(ctx, s.db, func(tx core.ITransaction) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, s.classify(err)
	}

	saved := p.Clone()
	saved.CreatedAt = time.UnixMilli(p.CreatedAt.UnixMilli()).UTC()
	saved.UpdatedAt = time.UnixMilli(p.UpdatedAt.UnixMilli()).UTC()
	return saved, nil
}

func (s *SQL) ReplaceByID(ctx context.Context, p *pflanze.Pflanze, ifVersion *int64) (*pflanze.Pflanze, error) {
	record, err := toRecord(p)
	if err != nil {
		return nil, err
	}
	record[colVersion] = goqu.L("version + 1")

	where := []exp.Expression{goqu.C(colID).Eq(p.ID)}
	if ifVersion != nil {
		where = append(where, goqu.C(colVersion).Eq(*ifVersion))
	}
	query, args, err := s.builder.Update(tablePflanzen).Set(record).Where(where...).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var updated *pflanze.Pflanze
	err = core.WithTx(ctx, s.db, func(tx core.ITransaction) error {
		res, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		updated, err = s.findOne(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return updated, nil
}

func (s *SQL) DeleteByID(ctx context.Context, id string) (int64, error) {
	query, args, err := s.builder.Delete(tablePflanzen).Where(goqu.C(colID).Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQL) findOne(ctx context.Context, q core.IQuerier, id string) (*pflanze.Pflanze, error) {
	query, args, err := s.builder.From(tablePflanzen).
		Select(selectColumns...).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}
	p, err := scanPflanze(q.QueryRow(ctx, query, args...))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *SQL) findID(ctx context.Context, cond exp.Expression) (string, bool, error) {
	query, args, err := s.builder.From(tablePflanzen).Select(colID).Where(cond).Limit(1).Prepared(true).ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build find query: %w", err)
	}
	var id string
	err = s.db.QueryRow(ctx, query, args...).Scan(&id)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return id, true, nil
}

// classify 将唯一键冲突统一为 pflanze.ErrUniqueViolation
func (s *SQL) classify(err error) error {
	if s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", pflanze.ErrUniqueViolation, err)
	}
	return err
}

// nameInSQL 名称子串能否交给数据库：Postgres 的 ILIKE 按区域设置折叠大小写
func (s *SQL) nameInSQL() bool {
	return s.dialect.Name() == dialect.NamePostgres
}

func (s *SQL) whereFilter(f *pflanze.Filter) []exp.Expression {
	var where []exp.Expression
	if f.NameContains != nil && s.nameInSQL() {
		pattern := "%" + escapeLike(*f.NameContains) + "%"
		where = append(where, goqu.L(`name ILIKE ? ESCAPE '\'`, pattern))
	}
	if len(f.Keywords) > 0 {
		where = append(where, goqu.C(colSchlagwoerter).Eq(pflanze.KeywordKey(f.Keywords)))
	}
	if f.Pflanzentyp != nil {
		where = append(where, goqu.C(colPflanzentyp).Eq(string(*f.Pflanzentyp)))
	}
	if f.Versandart != nil {
		where = append(where, goqu.C(colVersandart).Eq(string(*f.Versandart)))
	}
	if f.Lieferbar != nil {
		where = append(where, goqu.C(colLieferbar).Eq(*f.Lieferbar))
	}
	if f.Artikelnummer != nil {
		where = append(where, goqu.C(colArtikelnummer).Eq(*f.Artikelnummer))
	}
	if f.Herkunft != nil {
		where = append(where, goqu.C(colHerkunft).Eq(*f.Herkunft))
	}
	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// toRecord 可变列；id、version、created_at 由调用方补充
func toRecord(p *pflanze.Pflanze) (goqu.Record, error) {
	doc, err := docCodec.MarshalToString(document{
		Wuchshoehe:    p.Wuchshoehe,
		Preis:         p.Preis,
		Rabatt:        p.Rabatt,
		Schlagwoerter: p.Schlagwoerter,
		Zulieferer:    p.Zulieferer,
	})
	if err != nil {
		return nil, fmt.Errorf("encode doc: %w", err)
	}
	return goqu.Record{
		colName:          p.Name,
		colArtikelnummer: nullable(p.Artikelnummer),
		colPflanzentyp:   string(p.Pflanzentyp),
		colVersandart:    string(p.Versandart),
		colLieferbar:     p.Lieferbar,
		colHerkunft:      nullable(p.Herkunft),
		colSchlagwoerter: pflanze.KeywordKey(p.Schlagwoerter),
		colDoc:           doc,
		colUpdatedAt:     p.UpdatedAt.UnixMilli(),
	}, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPflanze(row scanner) (*pflanze.Pflanze, error) {
	var (
		p                       pflanze.Pflanze
		artikelnummer, herkunft sql.NullString
		pflanzentyp, versandart string
		doc                     string
		createdAt, updatedAt    int64
	)
	err := row.Scan(&p.ID, &p.Version, &p.Name, &artikelnummer, &pflanzentyp, &versandart,
		&p.Lieferbar, &herkunft, &doc, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var d document
	if err := docCodec.UnmarshalFromString(doc, &d); err != nil {
		return nil, fmt.Errorf("decode doc of %s: %w", p.ID, err)
	}
	p.Pflanzentyp = pflanze.Pflanzentyp(pflanzentyp)
	p.Versandart = pflanze.Versandart(versandart)
	if artikelnummer.Valid {
		p.Artikelnummer = &artikelnummer.String
	}
	if herkunft.Valid {
		p.Herkunft = &herkunft.String
	}
	p.Wuchshoehe = d.Wuchshoehe
	p.Preis = d.Preis
	p.Rabatt = d.Rabatt
	p.Schlagwoerter = d.Schlagwoerter
	p.Zulieferer = d.Zulieferer
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
