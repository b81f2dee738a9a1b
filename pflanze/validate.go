package pflanze

import (
	"fmt"
	"regexp"
	"strconv"

	"pflanzen/validation"
)

// 名称必须以字母、数字或 _ 开头
var namePattern = regexp.MustCompile(`^\w`)

// Validate 校验候选实体，返回全部字段错误；合法时返回 nil
func Validate(p *Pflanze) validation.Errors {
	var c validation.Collector

	switch {
	case p.Name == "":
		c.Add("name", "Eine Pflanze muss einen Namen haben.")
	case !namePattern.MatchString(p.Name):
		c.Add("name", "Ein Pflanzenname muss mit einem Buchstaben, einer Ziffer oder _ beginnen.")
	}

	switch {
	case p.Pflanzentyp == "":
		c.Add("pflanzentyp", "Der Typ einer Pflanze muss gesetzt sein")
	case !validation.OneOf(p.Pflanzentyp, Gartenpflanze, Zimmerpflanze, Nutzpflanze):
		c.Add("pflanzentyp", "Der Typ einer Pflanze muss GARTENPFLANZE, ZIMMERPFLANZE oder NUTZPFLANZE sein.")
	}

	if p.Wuchshoehe != nil && !validation.InRange(*p.Wuchshoehe, 0, MaxWuchshoehe) {
		c.Add("wuchshoehe", fmt.Sprintf("%s ist keine gültige Höhe.", strconv.FormatFloat(*p.Wuchshoehe, 'f', -1, 64)))
	}

	switch {
	case p.Versandart == "":
		c.Add("versandart", "Die Versandart einer Pflanze muss gesetzt sein.")
	case !validation.OneOf(p.Versandart, Versand, Selbstabholung, OutOfStock):
		c.Add("versandart", "Die Versandart einer Pflanze muss VERSAND, SELBSTABHOLUNG oder OUT_OF_STOCK sein.")
	}

	if p.Artikelnummer != nil && !validation.IsEAN(*p.Artikelnummer) {
		c.Add("artikelnummer", fmt.Sprintf("'%s' ist keine gültige Artikelnummer.", *p.Artikelnummer))
	}

	if p.Herkunft != nil && !validation.IsLocale(*p.Herkunft) {
		c.Add("herkunft", fmt.Sprintf("'%s' ist keine gültige Herkunft.", *p.Herkunft))
	}

	return c.Errors()
}
