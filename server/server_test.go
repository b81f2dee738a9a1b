package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pflanzen/config"
	"pflanzen/logging"
)

const alocasia = `{"name":"Alocasia","pflanzentyp":"GARTENPFLANZE","versandart":"VERSAND","preis":11.1}`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Messaging.Kind = "sync"
	cfg.RateLimit.Requests = 0
	return cfg
}

func startServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	opts.Logger = logging.NewNoopLogger()
	s := New(opts)
	ctx := context.Background()
	require.NoError(t, s.LoadConfig())
	require.NoError(t, s.SetupDependencies(ctx))
	require.NoError(t, s.StartBackgroundTasks(ctx))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"p"}}
	rec := do(s, http.MethodPost, "/api/login", form.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		Token     string   `json:"token"`
		ExpiresIn int64    `json:"expiresIn"`
		Roles     []string `json:"roles"`
	}
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, int64(3600), token.ExpiresIn)
	return "Bearer " + token.Token
}

func TestServer_CreateFindUpdate(t *testing.T) {
	s := startServer(t, Options{})
	bearer := login(t, s, "admin")

	rec := do(s, http.MethodPost, "/api/pflanzen", alocasia, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": bearer,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	m := regexp.MustCompile(`/api/pflanzen/([0-9a-f-]{36})$`).FindStringSubmatch(location)
	require.NotNil(t, m, location)
	id := m[1]

	rec = do(s, http.MethodGet, "/api/pflanzen/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"0"`, rec.Header().Get("ETag"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(s, http.MethodPut, "/api/pflanzen/"+id,
		`{"name":"Alocasia","pflanzentyp":"GARTENPFLANZE","versandart":"VERSAND","preis":12.5}`,
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": bearer,
			"If-Match":      `"0"`,
		})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))

	rec = do(s, http.MethodGet, "/api/pflanzen/"+id, "", map[string]string{"If-None-Match": `"1"`})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(s, http.MethodDelete, "/api/pflanzen/"+id, "", map[string]string{"Authorization": login(t, s, "mitarbeiter")})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Login_BadCredentials(t *testing.T) {
	s := startServer(t, Options{})
	form := url.Values{"username": {"admin"}, "password": {"falsch"}}
	rec := do(s, http.MethodPost, "/api/login", form.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestServer_PopulateMemory(t *testing.T) {
	s := startServer(t, Options{Populate: true})

	rec := do(s, http.MethodGet, "/api/pflanzen", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alocasia")
	assert.Contains(t, rec.Body.String(), "Monstera")

	rec = do(s, http.MethodGet, "/api/pflanzen/"+SampleAlocasiaID+"/file", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec = do(s, http.MethodGet, "/html/suche", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Monstera")

	rec = do(s, http.MethodPost, "/graphql",
		`{"query":"{ pflanze(id: \"`+SampleMonsteraID+`\") { name versandart } }"}`,
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"pflanze":{"name":"Monstera","versandart":"SELBSTABHOLUNG"}}}`, rec.Body.String())
}

func TestServer_PopulateSQL(t *testing.T) {
	cfg := testConfig()
	cfg.Store = config.StoreConfig{
		Kind:         "sql",
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "pflanzen.db"),
		MaxOpenConns: 1,
	}

	p := New(Options{Config: cfg, Logger: logging.NewNoopLogger()})
	require.NoError(t, p.Populate(context.Background()))

	s := startServer(t, Options{Config: cfg})
	rec := do(s, http.MethodGet, "/api/pflanzen/"+SampleMonsteraID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Fensterblatt")
}

func TestServer_NotificationMail(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	cfg := testConfig()
	cfg.Mail.Enabled = true
	s := startServer(t, Options{Config: cfg, SendMail: func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, string(msg))
		return nil
	}})

	rec := do(s, http.MethodPost, "/api/pflanzen", alocasia, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": login(t, s, "mitarbeiter"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, sent[0], "<strong>Alocasia</strong>")
}

func TestServer_OpsRoutes(t *testing.T) {
	s := startServer(t, Options{})

	rec := do(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"pflanzen"}`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/pflanzentypen", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pflanzen_http_requests_total{method="GET",route="GET /health",status="200"} 1`)

	assert.True(t, s.Container().IsRegistered("routes.rest"))
}

func TestServer_LoadConfigRejectsInvalid(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Kind = "mongo"
	err := New(Options{Config: cfg, Logger: logging.NewNoopLogger()}).LoadConfig()
	assert.Error(t, err)
}

func TestEngine_RunsServer(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.ShutdownTimeout = time.Second
	s := New(Options{Config: cfg, Logger: logging.NewNoopLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	engine := NewEngine(s, WithAfterStart(func(context.Context) error {
		time.AfterFunc(50*time.Millisecond, cancel)
		return nil
	}))
	require.NoError(t, engine.Start(ctx))
	assert.Equal(t, StateStopped, engine.State())
}
