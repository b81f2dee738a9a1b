package pflanze

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"pflanzen/errors"
)

// maxNameFilterLen 名称子串过滤仅在长度小于该值时生效
const maxNameFilterLen = 10

// 关键词开关对应的关键词
const (
	KeywordImmergruen = "IMMERGRUEN"
	KeywordBluehend   = "BLUEHEND"
	KeywordEssbar     = "ESSBAR"
)

// Criteria 查询条件，所有字段可选
type Criteria struct {
	Name          *string
	Immergruen    bool
	Bluehend      bool
	Essbar        bool
	Pflanzentyp   *Pflanzentyp
	Versandart    *Versandart
	Lieferbar     *bool
	Artikelnummer *string
	Herkunft      *string
}

// Filter 传给存储层的查询过滤
type Filter struct {
	// NameContains 大小写不敏感的字面子串
	NameContains *string
	// Keywords 非空时按集合精确匹配（与顺序无关）
	Keywords      []string
	Pflanzentyp   *Pflanzentyp
	Versandart    *Versandart
	Lieferbar     *bool
	Artikelnummer *string
	Herkunft      *string
}

// MatchesName NameContains 的 Unicode 大小写不敏感匹配；未设置时恒为 true
func (f *Filter) MatchesName(name string) bool {
	if f.NameContains == nil {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(*f.NameContains))
}

// UnknownCriterion 查询参数中出现未知键
type UnknownCriterion struct {
	Key string
}

func (e *UnknownCriterion) Error() string {
	return fmt.Sprintf("Unbekanntes Suchkriterium: %s", e.Key)
}

// InvalidCriterion 查询参数取值非法
type InvalidCriterion struct {
	Key   string
	Value string
}

func (e *InvalidCriterion) Error() string {
	return fmt.Sprintf("Ungueltiger Wert %q fuer Suchkriterium %s", e.Value, e.Key)
}

func (*UnknownCriterion) ErrorCode() errors.ErrorCode { return errors.ErrCodeInvalidInput }
func (*InvalidCriterion) ErrorCode() errors.ErrorCode { return errors.ErrCodeInvalidInput }

// ParseCriteria 从 URL 查询参数解析条件；未知键返回 UnknownCriterion
func ParseCriteria(values url.Values) (Criteria, error) {
	var c Criteria

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := values.Get(key)
		switch key {
		case "name":
			c.Name = Ptr(v)
		case "immergruen":
			c.Immergruen = v == "true"
		case "bluehend":
			c.Bluehend = v == "true"
		case "essbar":
			c.Essbar = v == "true"
		case "pflanzentyp":
			c.Pflanzentyp = Ptr(Pflanzentyp(v))
		case "versandart":
			c.Versandart = Ptr(Versandart(v))
		case "lieferbar":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return Criteria{}, &InvalidCriterion{Key: key, Value: v}
			}
			c.Lieferbar = &b
		case "artikelnummer":
			c.Artikelnummer = Ptr(v)
		case "herkunft":
			c.Herkunft = Ptr(v)
		default:
			return Criteria{}, &UnknownCriterion{Key: key}
		}
	}
	return c, nil
}

// Filter 将条件转换为存储过滤
func (c Criteria) Filter() Filter {
	f := Filter{
		Pflanzentyp:   c.Pflanzentyp,
		Versandart:    c.Versandart,
		Lieferbar:     c.Lieferbar,
		Artikelnummer: c.Artikelnummer,
		Herkunft:      c.Herkunft,
	}
	if c.Name != nil && utf8.RuneCountInString(*c.Name) < maxNameFilterLen {
		f.NameContains = c.Name
	}
	if c.Immergruen {
		f.Keywords = append(f.Keywords, KeywordImmergruen)
	}
	if c.Bluehend {
		f.Keywords = append(f.Keywords, KeywordBluehend)
	}
	if c.Essbar {
		f.Keywords = append(f.Keywords, KeywordEssbar)
	}
	return f
}
