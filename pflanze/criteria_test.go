package pflanze

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{
		"name":        {"al"},
		"immergruen":  {"true"},
		"bluehend":    {"false"},
		"essbar":      {"true"},
		"pflanzentyp": {"GARTENPFLANZE"},
		"lieferbar":   {"true"},
		"herkunft":    {"en-AU"},
	})
	require.NoError(t, err)
	assert.Equal(t, "al", *c.Name)
	assert.True(t, c.Immergruen)
	assert.False(t, c.Bluehend)
	assert.True(t, c.Essbar)
	assert.Equal(t, Gartenpflanze, *c.Pflanzentyp)
	assert.True(t, *c.Lieferbar)
	assert.Equal(t, "en-AU", *c.Herkunft)
	assert.Nil(t, c.Versandart)
	assert.Nil(t, c.Artikelnummer)
}

func TestParseCriteria_Errors(t *testing.T) {
	_, err := ParseCriteria(url.Values{"farbe": {"gruen"}})
	var unknown *UnknownCriterion
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "farbe", unknown.Key)

	_, err = ParseCriteria(url.Values{"lieferbar": {"vielleicht"}})
	var invalid *InvalidCriterion
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "lieferbar", invalid.Key)
}

func TestCriteria_Filter(t *testing.T) {
	f := Criteria{}.Filter()
	assert.Nil(t, f.NameContains)
	assert.Empty(t, f.Keywords)

	f = Criteria{Name: Ptr("Alocasia")}.Filter()
	require.NotNil(t, f.NameContains)
	assert.Equal(t, "Alocasia", *f.NameContains)

	// 10 个字符及以上不做名称过滤
	f = Criteria{Name: Ptr("Alocasia Z")}.Filter()
	assert.Nil(t, f.NameContains)
	f = Criteria{Name: Ptr("Pfefferminz")}.Filter()
	assert.Nil(t, f.NameContains)
	f = Criteria{Name: Ptr("äöüäöüäöü")}.Filter()
	assert.NotNil(t, f.NameContains)

	f = Criteria{Immergruen: true, Essbar: true}.Filter()
	assert.Equal(t, []string{KeywordImmergruen, KeywordEssbar}, f.Keywords)
}

func TestKeywordKey(t *testing.T) {
	assert.Equal(t, "", KeywordKey(nil))
	assert.Equal(t, "BLUEHEND,IMMERGRUEN", KeywordKey([]string{"IMMERGRUEN", "BLUEHEND", "IMMERGRUEN"}))
}
