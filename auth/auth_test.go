package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httpx "pflanzen/http"
	"pflanzen/http/basic"
)

func newUsers(t *testing.T) *UserService {
	t.Helper()
	users, err := NewUserService(DefaultUsers(), NewRoleService(), bcrypt.MinCost)
	require.NoError(t, err)
	return users
}

func newTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{Secret: "test-secret", ExpiresIn: time.Hour})
	require.NoError(t, err)
	return tokens
}

func TestRoleService_Normalize(t *testing.T) {
	roles := NewRoleService()
	assert.Equal(t, []string{RoleAdmin, RoleKunde}, roles.Normalize([]string{"ADMIN", "gast", "Kunde"}))
	assert.Empty(t, roles.Normalize(nil))
}

func TestUserService(t *testing.T) {
	users := newUsers(t)

	u := users.FindByUsername("admin")
	require.NotNil(t, u)
	assert.Equal(t, u, users.FindByID(u.ID))
	assert.Equal(t, u, users.FindByEmail("admin@acme.com"))
	assert.NotEqual(t, "p", string(u.PasswordHash))

	_, err := users.Authenticate(t.Context(), "admin", "p")
	require.NoError(t, err)

	_, err = users.Authenticate(t.Context(), "admin", "falsch")
	var invalid *AuthorizationInvalid
	assert.ErrorAs(t, err, &invalid)

	_, err = users.Authenticate(t.Context(), "niemand", "p")
	assert.ErrorAs(t, err, &invalid)
}

func TestTokenService(t *testing.T) {
	users := newUsers(t)
	tokens := newTokens(t)

	token, err := tokens.Issue(users.FindByUsername("mitarbeiter"))
	require.NoError(t, err)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := tokens.Verify(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "mitarbeiter", claims.Username)
	assert.Equal(t, []string{RoleMitarbeiter, RoleKunde}, claims.Roles)

	other, err := NewTokenService(TokenConfig{Secret: "other"})
	require.NoError(t, err)
	_, err = other.Verify(token.Token)
	var invalid *TokenInvalid
	assert.ErrorAs(t, err, &invalid)

	// 过期
	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Verify(token.Token)
	assert.ErrorAs(t, err, &invalid)

	_, err = NewTokenService(TokenConfig{})
	assert.Error(t, err)
}

func newGuardedServer(tokens *TokenService, roles ...string) http.Handler {
	srv := basic.NewHTTPServer(nil)
	srv.DELETE("/x", func(ctx httpx.IHttpContext) error {
		return ctx.String(http.StatusOK, ctx.GetContext().GetUsername())
	}, Guard(tokens, roles...)...)
	return srv.Handler()
}

func TestGuard(t *testing.T) {
	users := newUsers(t)
	tokens := newTokens(t)
	h := newGuardedServer(tokens, RoleAdmin)

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/x", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	assert.Equal(t, http.StatusUnauthorized, do("Bearer kaputt").Code)

	kunde, err := tokens.Issue(users.FindByUsername("kunde"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+kunde.Token).Code)

	admin, err := tokens.Issue(users.FindByUsername("admin"))
	require.NoError(t, err)
	rec = do("Bearer " + admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestLoginHandler(t *testing.T) {
	srv := basic.NewHTTPServer(nil)
	srv.POST("/api/login", LoginHandler(newUsers(t), newTokens(t)))
	h := srv.Handler()

	login := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := login("admin", "p")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"`)
	assert.Contains(t, rec.Body.String(), `"expiresIn":3600`)
	assert.Contains(t, rec.Body.String(), `"roles":["admin","mitarbeiter","kunde"]`)

	assert.Equal(t, http.StatusUnauthorized, login("admin", "x").Code)
}
