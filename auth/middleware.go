package auth

import (
	"net/http"
	"slices"
	"strings"

	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/http/basic"
	"pflanzen/logging"
)

// Authenticate 要求有效的 Bearer 令牌，并将用户写入请求上下文
func Authenticate(tokens *TokenService) httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		raw, ok := bearerToken(ctx.GetHeader("Authorization"))
		if !ok {
			return unauthorized(ctx, "Bearer-Token fehlt")
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			logging.GetLogger().Debug(ctx.GetContext(), "token rejected", logging.Error(err))
			return unauthorized(ctx, "Ungueltiger Token")
		}
		ctx.SetContext(basic.WithUser(ctx.GetContext(), claims.Subject, claims.Username, claims.Roles))
		return next()
	}
}

// RequireRoles 要求已认证用户至少具有其中一个角色，否则 403
func RequireRoles(roles ...string) httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		userRoles := ctx.GetContext().GetRoles()
		for _, r := range roles {
			if slices.Contains(userRoles, r) {
				return next()
			}
		}
		logging.GetLogger().Debug(ctx.GetContext(), "forbidden",
			logging.String("user", ctx.GetContext().GetUsername()), logging.Any("required", roles))
		return errors.NewError(errors.ErrCodeForbidden, "Fehlende Berechtigung")
	}
}

// Guard 认证并校验角色
func Guard(tokens *TokenService, roles ...string) []httpx.Middleware {
	return []httpx.Middleware{Authenticate(tokens), RequireRoles(roles...)}
}

func unauthorized(ctx httpx.IHttpContext, msg string) error {
	ctx.SetHeader("WWW-Authenticate", "Bearer")
	return errors.NewError(errors.ErrCodeUnauthorized, msg)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// LoginHandler POST /api/login：表单字段 username、password
func LoginHandler(users *UserService, tokens *TokenService) httpx.HttpHandler {
	return func(ctx httpx.IHttpContext) error {
		form, err := ctx.BindForm()
		if err != nil {
			return err
		}
		u, err := users.Authenticate(ctx.GetContext(), form.Get("username"), form.Get("password"))
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			return ctx.NoContent(http.StatusUnauthorized)
		}
		token, err := tokens.Issue(u)
		if err != nil {
			return err
		}
		logging.GetLogger().Info(ctx.GetContext(), "login", logging.String("username", u.Username))
		return ctx.JSON(http.StatusOK, token)
	}
}
