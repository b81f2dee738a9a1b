package pflanze

import (
	"fmt"

	"pflanzen/errors"
	"pflanzen/validation"
)

// ServiceError 实体服务的业务结果错误（封闭集合）
//
// 基础设施故障不属于该集合，以普通 error（通常为 errors.AppError）返回。
type ServiceError interface {
	error
	ErrorCode() errors.ErrorCode
	serviceError()
}

// PflanzeInvalid 校验失败，Msg 为字段 -> 消息
type PflanzeInvalid struct {
	Msg validation.Errors
}

// NameExists 名称已被其他实体使用
type NameExists struct {
	Name string
	ID   string
}

// ArtikelnummerExists 商品编号已被其他实体使用
type ArtikelnummerExists struct {
	Artikelnummer string
	ID            string
}

// VersionInvalid 版本令牌不是十进制整数
type VersionInvalid struct {
	Version string
}

// VersionOutdated 版本令牌落后于（或在严格模式下不等于）存储版本
type VersionOutdated struct {
	ID      string
	Version int64
}

// PflanzeNotExists 目标实体不存在
type PflanzeNotExists struct {
	ID string
}

// FileNotFound 没有与名称匹配的文件
type FileNotFound struct {
	Filename string
}

// MultipleFiles 同名文件不止一个
type MultipleFiles struct {
	Filename string
}

func (e *PflanzeInvalid) Error() string {
	return "Ungueltige Pflanze: " + e.Msg.Error()
}

func (e *NameExists) Error() string {
	return fmt.Sprintf("Der Name %q existiert bereits bei %s.", e.Name, e.ID)
}

func (e *ArtikelnummerExists) Error() string {
	return fmt.Sprintf("Die Artikelnummer %q existiert bereits bei %s.", e.Artikelnummer, e.ID)
}

func (e *VersionInvalid) Error() string {
	return fmt.Sprintf("Die Versionsnummer %q ist ungueltig.", e.Version)
}

func (e *VersionOutdated) Error() string {
	return fmt.Sprintf("Die Versionsnummer \"%d\" ist nicht aktuell.", e.Version)
}

func (e *PflanzeNotExists) Error() string {
	return fmt.Sprintf("Es gibt keine Pflanze mit der ID %q.", e.ID)
}

func (e *FileNotFound) Error() string {
	return "Es gibt kein File mit Name " + e.Filename
}

func (e *MultipleFiles) Error() string {
	return "Es gibt mehr als ein File mit Name " + e.Filename
}

func (*PflanzeInvalid) ErrorCode() errors.ErrorCode      { return errors.ErrCodeValidation }
func (*NameExists) ErrorCode() errors.ErrorCode          { return errors.ErrCodeDuplicate }
func (*ArtikelnummerExists) ErrorCode() errors.ErrorCode { return errors.ErrCodeDuplicate }
func (*VersionInvalid) ErrorCode() errors.ErrorCode      { return errors.ErrCodePreconditionRequired }
func (*VersionOutdated) ErrorCode() errors.ErrorCode     { return errors.ErrCodeConcurrency }
func (*PflanzeNotExists) ErrorCode() errors.ErrorCode    { return errors.ErrCodeNotFound }
func (*FileNotFound) ErrorCode() errors.ErrorCode        { return errors.ErrCodeNotFound }
func (*MultipleFiles) ErrorCode() errors.ErrorCode       { return errors.ErrCodeInternal }

func (*PflanzeInvalid) serviceError()      {}
func (*NameExists) serviceError()          {}
func (*ArtikelnummerExists) serviceError() {}
func (*VersionInvalid) serviceError()      {}
func (*VersionOutdated) serviceError()     {}
func (*PflanzeNotExists) serviceError()    {}
func (*FileNotFound) serviceError()        {}
func (*MultipleFiles) serviceError()       {}
