package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hl7-monitor-backend/internal/config"
	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/http/middleware"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if _, err := repo.SeedFixtures(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:     "/api/v1",
		QueryTimeout:    5 * time.Second,
		CollationLocale: "en",
		RateRPS:         100,
		RateBurst:       50,
		IdempotencyTTL:  time.Hour,
		KPI: config.KPIConfig{
			CriticalMinCount:      3,
			CriticalErrorPatterns: []string{"timeout", "database"},
			TrendSamples:          7,
		},
		OTEL: config.OTELConfig{ServiceName: "test-svc"},
	}
}

func serve(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig())

	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w := serve(r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/health", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), cfg)

	w := serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	if w := serve(r, http.MethodGet, "/api/v2/kpis", "", nil); w.Code != http.StatusOK {
		t.Fatalf("custom base path: %d", w.Code)
	}
}

func TestRegisterRoutes_MessageAndPatientEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig())

	w := serve(r, http.MethodGet, "/api/v1/messages?status=error", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("messages: %d %s", w.Code, w.Body.String())
	}
	var list struct {
		Messages []domain.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if list.Count != 7 || len(list.Messages) != 7 {
		t.Fatalf("error messages = %d", list.Count)
	}
	for _, m := range list.Messages {
		if m.Status != domain.StatusError {
			t.Fatalf("non-error row %s", m.ID)
		}
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("missing ETag")
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Fatalf("Cache-Control = %q", cc)
	}

	w = serve(r, http.MethodGet, "/api/v1/messages/msg-001", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("message detail: %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/v1/messages/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing message: %d", w.Code)
	}

	if w := serve(r, http.MethodGet, "/api/v1/patients", "", nil); w.Code != http.StatusOK {
		t.Fatalf("patients: %d", w.Code)
	}
	w = serve(r, http.MethodPut, "/api/v1/patients/John%20Doe/visit-status", `{"status":"Admitted"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("visit: %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/api/v1/kpis", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("kpis: %d", w.Code)
	}
	var k domain.KpiData
	_ = json.Unmarshal(w.Body.Bytes(), &k)
	if k.TotalMessages != 20 || k.ErrorMessages != 7 {
		t.Fatalf("kpis body: %+v", k)
	}
}

func TestRegisterRoutes_SwaggerOnlyWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	off := gin.New()
	RegisterRoutes(off, newTestDB(t), testConfig())
	if w := serve(off, http.MethodGet, "/swagger/doc.json", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: %d", w.Code)
	}

	on := gin.New()
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	RegisterRoutes(on, newTestDB(t), cfg)
	w := serve(on, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/catalog/errors") {
		t.Fatalf("swagger enabled: %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotentCreateReplays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, testConfig())

	hdr := map[string]string{middleware.HeaderIdempotencyKey: "create-rr-1"}
	body := `{"name":"Radiology Result","code":"RR","description":"Imaging report"}`

	first := serve(r, http.MethodPost, "/api/v1/catalog/events", body, hdr)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: %d %s", first.Code, first.Body.String())
	}
	second := serve(r, http.MethodPost, "/api/v1/catalog/events", body, hdr)
	if second.Code != http.StatusCreated || second.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d replayed=%q", second.Code, second.Header().Get(middleware.HeaderIdempotencyReplayed))
	}

	var a, b domain.EventDefinition
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("replay returned a different resource: %q vs %q", a.ID, b.ID)
	}

	var n int64
	db.Model(&domain.EventDefinition{}).Where("code = ?", "RR").Count(&n)
	if n != 1 {
		t.Fatalf("expected one RR definition, got %d", n)
	}
}

func TestRegisterRoutes_IdempotencyLookupErrorIsNotReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, testConfig())

	// Drop the table so the lookup fails.
	if err := db.Migrator().DropTable(&domain.Idempotency{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	w := serve(r, http.MethodPost, "/health", "{}", map[string]string{middleware.HeaderIdempotencyKey: "force-error"})
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("lookup error must not mark a replay")
	}
}

func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	RegisterRoutes(r, newTestDB(t), cfg)

	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestNewServices_AppliesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.QueryTimeout = 2 * time.Second
	cfg.CollationLocale = "sv"
	cfg.KPI.TrendSamples = 3
	cfg.KPI.CriticalEvents = []string{"Lab Result"}

	s := NewServices(newTestDB(t), cfg)
	if s.Query.Timeout != 2*time.Second || s.Query.Locale != language.Swedish {
		t.Fatalf("query service: timeout=%v locale=%v", s.Query.Timeout, s.Query.Locale)
	}
	if s.Kpis.TrendSamples != 3 || len(s.Kpis.Policy.Events) != 1 || s.Kpis.Policy.MinCount != 3 {
		t.Fatalf("kpi service: %+v", s.Kpis.Policy)
	}
	if s.Events.Timeout != 2*time.Second || s.Errors.Timeout != 2*time.Second {
		t.Fatalf("catalog timeouts not applied")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", "0123456789AB", nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
