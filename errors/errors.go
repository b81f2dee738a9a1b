// Package errors 定义带错误码的应用错误；HTTP 层按错误码选择状态码
package errors

import (
	stdErrors "errors"
	"fmt"
	"maps"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"

	// 请求协商与限流
	ErrCodeTooManyRequests      ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeNotAcceptable        ErrorCode = "NOT_ACCEPTABLE"
	ErrCodeNotImplemented       ErrorCode = "NOT_IMPLEMENTED"
	ErrCodePreconditionFailed   ErrorCode = "PRECONDITION_FAILED"
	ErrCodePreconditionRequired ErrorCode = "PRECONDITION_REQUIRED"
	ErrCodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"

	// 实体服务的业务结果
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicate   ErrorCode = "DUPLICATE_ERROR"
	ErrCodeConcurrency ErrorCode = "CONCURRENCY_ERROR"

	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// ICoder 领域错误只需实现该接口即可参与状态码映射
type ICoder interface {
	error
	ErrorCode() ErrorCode
}

// IError 应用错误
type IError interface {
	error
	Code() ErrorCode
	Message() string
	// Details 字段级详情，写入错误响应的 details
	Details() map[string]any
	// WithContext 返回附加了详情的副本
	WithContext(key string, value any) IError
}

// AppError IError 的实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

func NewError(code ErrorCode, message string) IError {
	return &AppError{code: code, message: message}
}

// WrapError 以 code 包装 err；err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{code: code, message: message, cause: err}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode         { return e.code }
func (e *AppError) Message() string         { return e.message }
func (e *AppError) Details() map[string]any { return e.details }
func (e *AppError) Unwrap() error           { return e.cause }

// Is 错误码相同即视为同一错误
func (e *AppError) Is(target error) bool {
	var other *AppError
	if stdErrors.As(target, &other) {
		return e.code == other.code
	}
	return false
}

func (e *AppError) WithContext(key string, value any) IError {
	details := maps.Clone(e.details)
	if details == nil {
		details = make(map[string]any, 1)
	}
	details[key] = value
	return &AppError{code: e.code, message: e.message, cause: e.cause, details: details}
}

// GetErrorCode 沿包装链读取错误码；无法识别的错误视为内部错误
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	var coder ICoder
	if stdErrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ErrCodeInternal
}
