package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
)

// Normalize 将基础设施层的错误规范化为 AppError。
//
// 注意：
//   - 已经是 IError 的错误原样返回；
//   - 实现 ICoder 的领域错误原样返回，由调用方按类型映射；
//   - 未识别的错误保持原样。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}
	var coder ICoder
	if stdErrors.As(err, &coder) {
		return err
	}

	switch {
	case stdErrors.Is(err, sql.ErrNoRows):
		return WrapError(err, ErrCodeNotFound, "记录未找到")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrCodeTimeout, "操作超时")
	case stdErrors.Is(err, context.Canceled):
		return WrapError(err, ErrCodeTimeout, "操作已取消")
	case stdErrors.Is(err, sql.ErrConnDone), stdErrors.Is(err, sql.ErrTxDone):
		return WrapError(err, ErrCodeDatabase, "数据库连接不可用")
	}

	return err
}
