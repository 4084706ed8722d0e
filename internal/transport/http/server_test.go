package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsvc "books-api/internal/app"
	"books-api/internal/config"
	"books-api/internal/pkg/jwtutil"
	"books-api/internal/pkg/pagination"
	"books-api/internal/pkg/password"
	"books-api/internal/ratelimit"
	"books-api/internal/repository"
)

type testServer struct {
	engine *gin.Engine
	now    time.Time
}

type serverOptions struct {
	limiter        ratelimit.Limiter
	streamInterval time.Duration
	streamTimeout  time.Duration
	trustedProxies []string
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.streamInterval == 0 {
		opts.streamInterval = 10 * time.Millisecond
		opts.streamTimeout = 30 * time.Millisecond
	}

	ts := &testServer{now: time.Now()}
	log, _ := logtest.NewNullLogger()
	tokens := jwtutil.NewManager("test-secret", 30*time.Minute, jwtutil.WithClock(func() time.Time { return ts.now }))

	cfg := &config.Config{App: config.AppConfig{
		Name:           "books-api",
		Env:            "test",
		APIPrefix:      "/api/v1",
		CORSOrigins:    []string{"http://localhost:3000"},
		TrustedProxies: opts.trustedProxies,
	}}
	ts.engine = NewEngine(cfg, log, Dependencies{
		Auth: appsvc.NewAuthService(repository.NewMemoryUserRepository(), password.NewHasher(4), tokens, log),
		Books: appsvc.NewBookService(repository.NewMemoryBookRepository(), nil, nil,
			pagination.Bounds{DefaultSize: 10, MaxSize: 100}, log),
		Stream:      appsvc.NewStreamService(opts.streamInterval, opts.streamTimeout),
		AuthLimiter: opts.limiter,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, username, pass string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {pass}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{"username": username, "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func (ts *testServer) createBook(t *testing.T, token, title string) uint {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/", token, map[string]any{
		"title":          title,
		"author":         "Frank Herbert",
		"published_date": "1965-08-01",
		"summary":        "Spice.",
		"genre":          "Science Fiction",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	return book.ID
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Detail
}

type validationBody struct {
	Detail []struct {
		Loc  []string `json:"loc"`
		Msg  string   `json:"msg"`
		Type string   `json:"type"`
	} `json:"detail"`
	Message string `json:"message"`
}

func validation(t *testing.T, rec *httptest.ResponseRecorder) validationBody {
	t.Helper()
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var body validationBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation error", body.Message)
	require.NotEmpty(t, body.Detail)
	return body
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.register(t, "alice")

	rec := ts.login(t, "alice", "correct-horse")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token_type":"bearer"`)

	dup := ts.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{"username": "alice", "password": "another-pass"})
	assert.Equal(t, http.StatusBadRequest, dup.Code)
	assert.Equal(t, "Username already registered", detail(t, dup))
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	rec := ts.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{"username": "al", "password": "short"})
	body := validation(t, rec)
	locs := make([]string, 0, len(body.Detail))
	for _, d := range body.Detail {
		locs = append(locs, strings.Join(d.Loc, "."))
	}
	assert.ElementsMatch(t, []string{"body.username", "body.password"}, locs)

	rec = ts.do(t, http.MethodPost, "/api/v1/register", "", "{not json")
	validation(t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{"username": "alice", "password": strings.Repeat("密", 30)})
	body = validation(t, rec)
	assert.Equal(t, []string{"body", "password"}, body.Detail[0].Loc)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.register(t, "alice")

	for _, tc := range []struct{ user, pass string }{{"alice", "wrong-password"}, {"nobody", "correct-horse"}} {
		rec := ts.login(t, tc.user, tc.pass)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", detail(t, rec))
	}

	rec := ts.login(t, "", "")
	body := validation(t, rec)
	assert.Equal(t, []string{"body", "username"}, body.Detail[0].Loc)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")

	rec := ts.do(t, http.MethodGet, "/api/v1/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Not authenticated", detail(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/", nil)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, "Not authenticated", detail(t, rec))

	tampered := token[:len(token)-4] + "AAAA"
	if tampered == token {
		tampered = token[:len(token)-4] + "BBBB"
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/", tampered, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	tamperedBody := rec.Body.String()

	ts.now = ts.now.Add(31 * time.Minute)
	rec = ts.do(t, http.MethodGet, "/api/v1/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, tamperedBody, rec.Body.String())
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
}

func TestBearerSchemeIsCaseInsensitive(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")
	id := ts.createBook(t, token, "Dune")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/%d", id), nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPagination(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")
	for i := 1; i <= 25; i++ {
		ts.createBook(t, token, fmt.Sprintf("Book %02d", i))
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/?page=3&size=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int `json:"total"`
		Items []struct {
			ID    uint   `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
		Page  int `json:"page"`
		Size  int `json:"size"`
		Pages int `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.Size)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "Book 21", page.Items[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/v1/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 10)

	rec = ts.do(t, http.MethodGet, "/api/v1/?page=4&size=10", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No books found for page 4 with size 10.", detail(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/?page=9223372036854775807&size=10", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No books found for page 9223372036854775807 with size 10.", detail(t, rec))

	body := validation(t, ts.do(t, http.MethodGet, "/api/v1/?size=0", token, nil))
	assert.Equal(t, []string{"query", "size"}, body.Detail[0].Loc)
	body = validation(t, ts.do(t, http.MethodGet, "/api/v1/?size=101", token, nil))
	assert.Equal(t, []string{"query", "size"}, body.Detail[0].Loc)
	body = validation(t, ts.do(t, http.MethodGet, "/api/v1/?page=abc", token, nil))
	assert.Equal(t, []string{"query", "page"}, body.Detail[0].Loc)
}

func TestBookCreateValidation(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")

	body := validation(t, ts.do(t, http.MethodPost, "/api/v1/", token, map[string]any{
		"title":  "Dune",
		"author": "Frank Herbert",
		"genre":  "Science Fiction",
	}))
	assert.Equal(t, []string{"body", "published_date"}, body.Detail[0].Loc)

	validation(t, ts.do(t, http.MethodPost, "/api/v1/", token, map[string]any{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"published_date": "08/01/1965",
		"genre":          "Science Fiction",
	}))

	rec := ts.do(t, http.MethodPost, "/api/v1/", token, map[string]any{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"published_date": "0001-01-01",
		"genre":          "Science Fiction",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"published_date":"0001-01-01"`)
}

func TestBookPartialUpdate(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")
	id := ts.createBook(t, token, "Dune")
	path := fmt.Sprintf("/api/v1/%d", id)

	rec := ts.do(t, http.MethodPut, path, token, map[string]any{"genre": "Classic"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var book map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, "Classic", book["genre"])
	assert.Equal(t, "Dune", book["title"])
	assert.Equal(t, "Frank Herbert", book["author"])
	assert.Equal(t, "1965-08-01", book["published_date"])
	assert.Equal(t, "Spice.", book["summary"])

	rec = ts.do(t, http.MethodPut, path, token, `{"summary": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Nil(t, book["summary"])
	assert.Equal(t, "Classic", book["genre"])

	body := validation(t, ts.do(t, http.MethodPut, path, token, `{"title": null}`))
	assert.Equal(t, []string{"body", "title"}, body.Detail[0].Loc)

	rec = ts.do(t, http.MethodPut, "/api/v1/999", token, map[string]any{"genre": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Book not found", detail(t, rec))
}

func TestBookDelete(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")

	rec := ts.do(t, http.MethodDelete, "/api/v1/42", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := ts.createBook(t, token, "Dune")
	path := fmt.Sprintf("/api/v1/%d", id)
	rec = ts.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Book not found", detail(t, rec))
}

func TestNonNumericBookID(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "alice")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body := validation(t, ts.do(t, method, "/api/v1/abc", token, map[string]any{}))
		assert.Equal(t, []string{"path", "id"}, body.Detail[0].Loc)
	}
}

func TestStreamEmitsAllEventsThenCloses(t *testing.T) {
	ts := newTestServer(t, serverOptions{streamInterval: 10 * time.Millisecond, streamTimeout: 30 * time.Millisecond})
	token := ts.register(t, "alice")

	rec := ts.do(t, http.MethodGet, "/api/v1/stream/updates", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Equal(t, 3, strings.Count(out, "event: update\n"))
	assert.Contains(t, out, `data: {"timestamp":"`)
}

func TestStreamStopsWhenClientLeaves(t *testing.T) {
	ts := newTestServer(t, serverOptions{streamInterval: 10 * time.Millisecond, streamTimeout: time.Hour})
	token := ts.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/updates", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ts.engine.ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after client disconnect")
	}
	n := strings.Count(rec.Body.String(), "event: update\n")
	assert.GreaterOrEqual(t, n, 1)
	assert.Less(t, n, 10)
}

func TestStreamRequiresToken(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	rec := ts.do(t, http.MethodGet, "/api/v1/stream/updates", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewMemoryLimiter(2, time.Minute)
	require.NoError(t, err)
	ts := newTestServer(t, serverOptions{limiter: limiter})

	for i := 0; i < 2; i++ {
		rec := ts.login(t, "nobody", "whatever-pass")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := ts.login(t, "nobody", "whatever-pass")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", detail(t, rec))

	ts.register(t, "alice")
}

func (ts *testServer) loginFrom(t *testing.T, remoteAddr, forwardedFor string) int {
	t.Helper()
	form := url.Values{"username": {"nobody"}, "password": {"whatever-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	limiter, err := ratelimit.NewMemoryLimiter(1, time.Minute)
	require.NoError(t, err)
	ts := newTestServer(t, serverOptions{limiter: limiter})

	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom(t, "198.51.100.7:4000", "203.0.113.1"))
	for i := 2; i <= 5; i++ {
		code := ts.loginFrom(t, "198.51.100.7:4000", fmt.Sprintf("203.0.113.%d", i))
		assert.Equal(t, http.StatusTooManyRequests, code, "forwarded for 203.0.113.%d", i)
	}
}

func TestRateLimitHonoursForwardedForFromTrustedProxy(t *testing.T) {
	limiter, err := ratelimit.NewMemoryLimiter(1, time.Minute)
	require.NoError(t, err)
	ts := newTestServer(t, serverOptions{limiter: limiter, trustedProxies: []string{"10.0.0.0/8"}})

	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom(t, "10.1.2.3:4000", "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom(t, "10.1.2.3:4000", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, ts.loginFrom(t, "10.1.2.3:4000", "203.0.113.2"))
}

func TestUnversionedRoutes(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	rec := ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Books API"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"app":"books-api"`)

	rec = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "books_http_requests_total")

	rec = ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))

	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
