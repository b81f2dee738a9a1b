package auth

import "pflanzen/errors"

// AuthorizationInvalid 用户名或密码错误
type AuthorizationInvalid struct {
	Username string
}

func (e *AuthorizationInvalid) Error() string {
	return "Ungueltige Anmeldedaten fuer " + e.Username
}

func (*AuthorizationInvalid) ErrorCode() errors.ErrorCode { return errors.ErrCodeUnauthorized }

// TokenInvalid 令牌缺失、过期或签名无效
type TokenInvalid struct {
	Reason string
}

func (e *TokenInvalid) Error() string {
	return "Ungueltiger Token: " + e.Reason
}

func (*TokenInvalid) ErrorCode() errors.ErrorCode { return errors.ErrCodeUnauthorized }
