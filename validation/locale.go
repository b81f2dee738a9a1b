package validation

import (
	"strings"

	"golang.org/x/text/language"
)

// IsLocale 校验 BCP-47 语言标签（同时接受下划线分隔，如 en_US）
func IsLocale(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return false
	}
	return tag != language.Und
}
