package errors

import (
	"context"

	"pflanzen/logging"
)

// WrapDatabaseError 归一存储层错误：可识别的（未找到、超时）保留对应错误码，
// 其余记一条警告并包装为 DATABASE_ERROR
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	if normalized, ok := Normalize(err).(IError); ok && normalized.Code() != ErrCodeDatabase {
		return normalized
	}
	logging.GetLogger().Warn(ctx, "database operation failed",
		logging.String("operation", operation), logging.Error(err))
	return WrapError(err, ErrCodeDatabase, "Datenbankfehler bei "+operation)
}
