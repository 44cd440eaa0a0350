package rpchttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/httpx"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/identity"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
)

const testOrigin = "https://app.example.com"

type noteInput struct {
	Title string `json:"title" validate:"required"`
}

type note struct {
	Title string `json:"title"`
	Owner string `json:"owner,omitempty"`
}

func testRouter(t *testing.T) *rpc.Router {
	t.Helper()
	router, err := rpc.NewRouter(map[string]rpc.Procedure{
		"notes.create": rpc.Public(func(ctx context.Context, pc rpc.Context, in noteInput) (note, error) {
			if in.Title == "taken" {
				return note{}, apperrors.AlreadyExists("x exists")
			}
			return note{Title: in.Title}, nil
		}),
		"notes.mine": rpc.Authed(func(ctx context.Context, pc rpc.Context, in struct{}) (note, error) {
			return note{Title: "mine", Owner: pc.User().ID}, nil
		}),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router
}

func testEngine(t *testing.T, provider identity.Provider, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(httpx.Language(), identity.Middleware(provider, zerolog.Nop()))
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = testOrigin
	}
	Register(engine, testRouter(t), opts)
	return engine
}

func serve(engine http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestProcedureNamePath(t *testing.T) {
	t.Parallel()

	if got := ProcedureName("/accounts/create/"); got != "accounts.create" {
		t.Fatalf("ProcedureName = %q", got)
	}
	if got := ProcedurePath("accounts.create"); got != "/accounts/create" {
		t.Fatalf("ProcedurePath = %q", got)
	}
}

func TestServePostSuccess(t *testing.T) {
	t.Parallel()

	engine := testEngine(t, nil, Options{})
	req := httptest.NewRequest(http.MethodPost, "/rpc/notes/create", strings.NewReader(`{"title":"hello"}`))
	rec, body := serve(engine, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := body["data"].(map[string]any)
	if body["success"] != true || data["title"] != "hello" {
		t.Fatalf("body = %v", body)
	}
}

func TestServeGetReadsQueryInput(t *testing.T) {
	t.Parallel()

	engine := testEngine(t, nil, Options{})
	target := "/rpc/notes/create?" + url.Values{QueryParam: {`{"title":"from-get"}`}}.Encode()
	rec, body := serve(engine, httptest.NewRequest(http.MethodGet, target, nil))

	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["title"] != "from-get" {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
}

func TestServeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		body    string
		lang    string
		status  int
		code    string
		message string
	}{
		{name: "conflict", path: "/rpc/notes/create", body: `{"title":"taken"}`, status: http.StatusConflict, code: "CONFLICT", message: "x exists"},
		{name: "validation", path: "/rpc/notes/create", body: `{}`, status: http.StatusUnprocessableEntity, code: "INPUT_VALIDATION_ERROR", message: "Content does not match the expected schema"},
		{name: "unauthorized", path: "/rpc/notes/mine", body: `{}`, status: http.StatusUnauthorized, code: "UNAUTHORIZED", message: "You must be authenticated to perform this action."},
		{name: "unknown procedure", path: "/rpc/notes/nope", body: `{}`, lang: "es", status: http.StatusInternalServerError, message: "Error interno del servidor."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := testEngine(t, nil, Options{})
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			if tt.lang != "" {
				req.Header.Set(httpconst.HeaderAcceptLanguage, tt.lang)
			}
			rec, body := serve(engine, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if body["success"] != false || body["message"] != tt.message {
				t.Fatalf("body = %v", body)
			}
			if tt.code != "" && body["code"] != tt.code {
				t.Fatalf("code = %v, want %s", body["code"], tt.code)
			}
		})
	}
}

func TestServeValidationIssues(t *testing.T) {
	t.Parallel()

	engine := testEngine(t, nil, Options{})
	rec, _ := serve(engine, httptest.NewRequest(http.MethodPost, "/rpc/notes/create", strings.NewReader(`{}`)))

	var failure Failure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode failure: %v", err)
	}
	if got := failure.Issues.Field("title"); len(got) != 1 || got[0] != "Expected a value." {
		t.Fatalf("title issues = %v", got)
	}
}

func TestServeAuthenticated(t *testing.T) {
	t.Parallel()

	provider := identity.Static{
		Session: &identity.Session{ID: "s-1", UserID: "u-1"},
		User:    &identity.User{ID: "u-1"},
	}
	engine := testEngine(t, provider, Options{})
	rec, body := serve(engine, httptest.NewRequest(http.MethodPost, "/rpc/notes/mine", nil))

	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["owner"] != "u-1" {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
}

func TestCORSRestrictedToOrigin(t *testing.T) {
	t.Parallel()

	engine := testEngine(t, nil, Options{})

	preflight := httptest.NewRequest(http.MethodOptions, "/rpc/notes/create", nil)
	preflight.Header.Set("Origin", testOrigin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec, _ := serve(engine, preflight)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Fatalf("allow origin = %q, want %q", got, testOrigin)
	}

	foreign := httptest.NewRequest(http.MethodPost, "/rpc/notes/create", strings.NewReader(`{"title":"x"}`))
	foreign.Header.Set("Origin", "https://evil.example.com")
	rec, _ = serve(engine, foreign)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign origin status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	engine := testEngine(t, nil, Options{RateLimit: 0.001, RateBurst: 1})
	first, _ := serve(engine, httptest.NewRequest(http.MethodPost, "/rpc/notes/create", strings.NewReader(`{"title":"a"}`)))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second, body := serve(engine, httptest.NewRequest(http.MethodPost, "/rpc/notes/create", strings.NewReader(`{"title":"b"}`)))
	if second.Code != http.StatusTooManyRequests || body["message"] != "Too many requests, try again later." {
		t.Fatalf("second status = %d, body = %v", second.Code, body)
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(rate.Limit(1), 2, func() time.Time { return now })
	if limiters.idle != minLimiterIdle {
		t.Fatalf("idle = %v, want %v", limiters.idle, minLimiterIdle)
	}

	for i := 0; i < 100; i++ {
		limiters.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	if got := len(limiters.clients); got != 100 {
		t.Fatalf("clients = %d, want 100", got)
	}

	now = now.Add(30 * time.Second)
	limiters.allow("10.0.1.1")
	if got := len(limiters.clients); got != 101 {
		t.Fatalf("clients before idle = %d, want 101", got)
	}

	now = now.Add(minLimiterIdle)
	if !limiters.allow("10.0.1.2") {
		t.Fatal("new client should be allowed")
	}
	if got := len(limiters.clients); got != 1 {
		t.Fatalf("clients after sweep = %d, want 1", got)
	}
}

func TestRateLimitKeepsThrottledClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(rate.Limit(0.001), 1, func() time.Time { return now })
	if limiters.idle < 999*time.Second {
		t.Fatalf("idle = %v, want the bucket refill time", limiters.idle)
	}
	if !limiters.allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}

	now = now.Add(2 * minLimiterIdle)
	limiters.allow("10.0.0.2")
	if limiters.allow("10.0.0.1") {
		t.Fatal("client evicted before its bucket refilled")
	}
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(testEngine(t, nil, Options{}))
	defer server.Close()

	client := NewClient(server.URL+DefaultPrefix, WithHTTPClient(&http.Client{Timeout: 5 * time.Second}), WithLanguage(i18n.ES))

	got, err := rpc.Call[note](context.Background(), client, "notes.create", noteInput{Title: "hi"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.Title != "hi" {
		t.Fatalf("title = %q", got.Title)
	}

	err = client.Call(context.Background(), "notes.create", noteInput{Title: "taken"}, nil)
	var transport *apperrors.Error
	if !errors.As(err, &transport) || transport.Code != apperrors.CodeConflict || transport.Message != "x exists" {
		t.Fatalf("error = %v", err)
	}

	err = client.Call(context.Background(), "notes.create", noteInput{}, nil)
	if !errors.As(err, &transport) || transport.Code != apperrors.CodeInputValidationError {
		t.Fatalf("error = %v", err)
	}
	if transport.Message != "El contenido no coincide con el esquema esperado" {
		t.Fatalf("message = %q", transport.Message)
	}
	if got := transport.Issues.Field("title"); len(got) != 1 || got[0] != "Se esperaba un valor." {
		t.Fatalf("title issues = %v", got)
	}
}

func TestClientSendsToken(t *testing.T) {
	t.Parallel()

	provider, err := identity.NewJWTProvider([]byte("secret"), "")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	token, _, err := provider.Issue(identity.User{ID: "u-9"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	server := httptest.NewServer(testEngine(t, provider, Options{}))
	defer server.Close()

	got, err := rpc.Call[note](context.Background(), NewClient(server.URL+DefaultPrefix, WithToken(token)), "notes.mine", struct{}{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.Owner != "u-9" {
		t.Fatalf("owner = %q, want u-9", got.Owner)
	}
}
