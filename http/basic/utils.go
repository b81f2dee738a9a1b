package basic

import (
	"fmt"
	"net/http"

	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/logging"
)

type HttpUtils struct{}

// StatusForCode 错误码到 HTTP 状态码的映射
func StatusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeValidation, errors.ErrCodeDuplicate:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeNotAcceptable:
		return http.StatusNotAcceptable
	case errors.ErrCodePreconditionFailed, errors.ErrCodeConcurrency:
		return http.StatusPreconditionFailed
	case errors.ErrCodePreconditionRequired:
		return http.StatusPreconditionRequired
	case errors.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeTimeout:
		return http.StatusRequestTimeout
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse 将错误写为 JSON ErrorPayload；响应已写出时只记录日志
func (u *HttpUtils) WriteErrorResponse(ctx httpx.IHttpContext, err error) error {
	if ctx.WrittenStatus() != 0 {
		logging.GetLogger().Warn(ctx.GetContext(), "error after response written", logging.Error(err))
		return nil
	}

	// 优先规范化错误，确保尽可能使用统一的 ErrorCode 体系
	err = errors.Normalize(err)

	var (
		status    int
		message   string
		errorCode errors.ErrorCode
		details   any
	)
	if appErr, ok := err.(errors.IError); ok {
		errorCode = appErr.Code()
		message = appErr.Message()
		if d := appErr.Details(); len(d) > 0 {
			details = d
		}
	} else {
		errorCode = errors.GetErrorCode(err)
		message = err.Error()
	}
	status = StatusForCode(errorCode)

	if status >= http.StatusInternalServerError {
		logging.GetLogger().Error(ctx.GetContext(), "request failed",
			logging.String("path", ctx.GetPath()), logging.Error(err))
		if _, ok := err.(errors.IError); !ok {
			message = http.StatusText(status)
		}
	}

	if jerr := ctx.JSON(status, httpx.NewErrorResponse(string(errorCode), message, details)); jerr != nil {
		_ = ctx.String(http.StatusInternalServerError, fmt.Sprintf("%s: %s", errorCode, message))
	}
	return nil
}
