package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/logging"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
	"github.com/louisbranch/formrpc/internal/platform/rpc/rpcgrpc"
	"github.com/louisbranch/formrpc/internal/platform/rpc/rpchttp"
	"github.com/louisbranch/formrpc/internal/services/accounts"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		PublicDomain:  "http://localhost:8080",
		HTTPAddr:      "127.0.0.1:0",
		GRPCAddr:      "127.0.0.1:0",
		DBPath:        filepath.Join(t.TempDir(), "nested", "accounts.db"),
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		RPCPrefix:     "/rpc",
		RateLimit:     100,
		RateBurst:     100,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server, err := New(context.Background(), testConfig(t), logging.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(server.Close)
	return server
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.SessionSecret = ""
	if _, err := New(context.Background(), cfg, logging.Nop()); err == nil {
		t.Fatal("expected config error")
	}
}

func TestServerHealthAndProcedureListing(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/procedures", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("procedures status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listing procedureListing
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode procedures: %v", err)
	}
	if listing.BaseURL != "http://localhost:8080/rpc" {
		t.Fatalf("base url = %q, want %q", listing.BaseURL, "http://localhost:8080/rpc")
	}
	if len(listing.Procedures) != 5 {
		t.Fatalf("procedures = %d, want 5", len(listing.Procedures))
	}
	byName := map[string]procedureInfo{}
	for _, info := range listing.Procedures {
		byName[info.Name] = info
	}
	if !byName[accounts.ProcedureMe].Authenticated {
		t.Fatalf("%s should require a session", accounts.ProcedureMe)
	}
	if byName[accounts.ProcedureCreate].Authenticated {
		t.Fatalf("%s should be public", accounts.ProcedureCreate)
	}
	if !byName[accounts.ProcedureList].OutputSchema {
		t.Fatalf("%s should validate its output", accounts.ProcedureList)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "formrpc_http_requests_total") {
		t.Fatalf("metrics body missing request counter")
	}
}

func TestServerProcedureOverHTTP(t *testing.T) {
	server := newTestServer(t)

	body := `{"email":"ada@example.com","password":"Sup3r$ecret"}`
	req := httptest.NewRequest(http.MethodPost, "/rpc/accounts/create", strings.NewReader(body))
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeJSON)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var created response.Response[accounts.Account]
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Success || created.Data == nil || created.Data.Email != "ada@example.com" {
		t.Fatalf("create response = %+v", created)
	}

	req = httptest.NewRequest(http.MethodPost, "/rpc/accounts/create", strings.NewReader(body))
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeJSON)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestServerSignupAction(t *testing.T) {
	server := newTestServer(t)

	values := url.Values{"email": {"grace@example.com"}, "password": {"Sup3r$ecret"}, "redirect": {"/welcome"}}
	req := httptest.NewRequest(http.MethodPost, accounts.ActionSignupPath, strings.NewReader(values.Encode()))
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeForm)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup status = %d, want %d (%s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/welcome" {
		t.Fatalf("location = %q, want %q", got, "/welcome")
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Fatalf("cache-control = %q, want no-store", got)
	}

	values = url.Values{"email": {"grace@example.com"}}
	req = httptest.NewRequest(http.MethodPost, accounts.ActionLookupPath, strings.NewReader(values.Encode()))
	req.Header.Set(httpconst.HeaderContentType, httpconst.ContentTypeForm)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestServeAnswersGRPCAndStops(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	conn, err := rpcgrpc.Dial(context.Background(), server.GRPCAddr(), 5*time.Second)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got, err := rpc.Call[accounts.Account](context.Background(), rpcgrpc.NewClient(conn), accounts.ProcedureCreate,
		accounts.CreateInput{Email: "linus@example.com", Password: "Sup3r$ecret"})
	if err != nil {
		cancel()
		t.Fatalf("call: %v", err)
	}
	if got.Email != "linus@example.com" {
		t.Fatalf("email = %q, want %q", got.Email, "linus@example.com")
	}

	resp, err := http.Get("http://" + server.HTTPAddr() + "/procedures")
	if err != nil {
		cancel()
		t.Fatalf("http get: %v", err)
	}
	var listing procedureListing
	err = json.NewDecoder(resp.Body).Decode(&listing)
	_ = resp.Body.Close()
	if err != nil {
		cancel()
		t.Fatalf("decode procedures: %v", err)
	}

	// The advertised base URL names the public domain; dial the bound
	// listener with the same path.
	baseURL, err := url.Parse(listing.BaseURL)
	if err != nil {
		cancel()
		t.Fatalf("parse base url: %v", err)
	}
	baseURL.Host = server.HTTPAddr()
	client := rpchttp.NewClient(baseURL.String(), rpchttp.WithLanguage(i18n.ES))
	err = client.Call(context.Background(), accounts.ProcedureCreate,
		accounts.CreateInput{Email: "linus@example.com", Password: "Sup3r$ecret"}, nil)
	transport, ok := apperrors.AsTransport(err)
	if !ok || transport.Code != apperrors.CodeConflict {
		cancel()
		t.Fatalf("duplicate over http = %v, want CONFLICT", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
