// Package validation 提供字段级校验工具：按字段收集错误消息，以及常用格式判定（EAN、Locale、UUID）
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"pflanzen/errors"
)

// Errors 字段名 -> 错误消息
type Errors map[string]string

// Error 实现 error 接口，按字段名排序输出
func (e Errors) Error() string {
	keys := e.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

// Fields 返回排序后的字段名
func (e Errors) Fields() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsError 转换为带详情的校验 AppError
func (e Errors) AsError() errors.IError {
	err := errors.NewError(errors.ErrCodeValidation, "数据验证失败")
	for k, v := range e {
		err = err.WithContext(k, v)
	}
	return err
}

// Collector 收集全部校验失败，而非遇到第一个即返回
type Collector struct {
	errs Errors
}

// Add 记录字段错误；同一字段只保留第一条
func (c *Collector) Add(field, msg string) {
	if c.errs == nil {
		c.errs = make(Errors)
	}
	if _, exists := c.errs[field]; exists {
		return
	}
	c.errs[field] = msg
}

// Check ok 为 false 时记录错误
func (c *Collector) Check(ok bool, field, msg string) {
	if !ok {
		c.Add(field, msg)
	}
}

// Errors 没有错误时返回 nil
func (c *Collector) Errors() Errors {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// IsBlank 空串或仅包含空白
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// InRange 闭区间判定
func InRange(v, min, max float64) bool {
	return v >= min && v <= max
}

// OneOf 枚举判定
func OneOf[T comparable](v T, allowed ...T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// IsUUID 判定规范格式的 UUID（8-4-4-4-12）
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
