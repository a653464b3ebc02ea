package httpapi

import (
	"bytes"
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
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-book-records/internal/clock"
	"github.com/tbourn/go-book-records/internal/config"
	"github.com/tbourn/go-book-records/internal/domain"
	"github.com/tbourn/go-book-records/internal/memstore"
	"github.com/tbourn/go-book-records/internal/repo"
)

var policyClock = clock.Fixed(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newMemStore(t *testing.T) Store {
	t.Helper()
	s, err := memstore.New(nil)
	if err != nil {
		t.Fatalf("memstore: %v", err)
	}
	return s
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      50,
		IdempotencyTTL: time.Hour,
		App:            config.AppConfig{Name: "book-records", Version: "1.0.0"},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func serve(r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
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
	RegisterRoutes(r, newMemStore(t), policyClock, baseConfig())

	// /health reports identity
	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	var health map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("health json: %v", err)
	}
	if health["status"] != "ok" || health["name"] != "book-records" || health["version"] != "1.0.0" {
		t.Fatalf("unexpected health body: %v", health)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w = serve(r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405
	if w = serve(r, http.MethodDelete, "/api/v1/books", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /books expected 405, got %d", w.Code)
	}

	// Swagger disabled by default
	if w = serve(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newMemStore(t), policyClock, cfg)

	w := serve(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	if w = serve(r, http.MethodGet, "/api/v2/books?author=x", "", nil); w.Code != http.StatusOK {
		t.Fatalf("books under custom base path = %d", w.Code)
	}
}

// bookFlow drives the public API end to end against store.
func bookFlow(t *testing.T, store Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, store, policyClock, baseConfig())

	w := serve(r, http.MethodPost, "/api/v1/books",
		`{"title":"Ramakien","author":"King Rama I","published_date":"2568-01-01"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created domain.Book
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("create json: %v", err)
	}
	if created.PublishedDate.String() != "2025-01-01" || created.Status != domain.StatusAvailable {
		t.Fatalf("unexpected created book %+v", created)
	}

	w = serve(r, http.MethodPost, "/api/v1/books",
		`{"title":"Future","author":"King Rama I","published_date":"2569-01-01"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("future year = %d", w.Code)
	}

	w = serve(r, http.MethodGet, "/api/v1/books?author=King%20Rama%20I", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"title":"Ramakien"`) {
		t.Fatalf("list by author = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/api/v1/books/search?q=rama", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":`+fmt.Sprint(created.ID)) {
		t.Fatalf("search = %d %s", w.Code, w.Body.String())
	}

	id := fmt.Sprint(created.ID)
	w = serve(r, http.MethodPut, "/api/v1/books/"+id+"/status?status=BORROWED", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"BORROWED"`) {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/api/v1/books/status/BORROWED", "", nil)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == "" {
		t.Fatalf("list by status = %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
	etag := w.Header().Get("ETag")
	if w = serve(r, http.MethodGet, "/api/v1/books/status/BORROWED", "", map[string]string{"If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Fatalf("conditional list = %d", w.Code)
	}

	if w = serve(r, http.MethodGet, "/api/v1/books/"+id, "", nil); w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if w = serve(r, http.MethodGet, "/api/v1/books/9999", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing = %d", w.Code)
	}
}

func TestBookFlow_GormStore(t *testing.T) {
	bookFlow(t, GormStore(newTestDB(t)))
}

func TestBookFlow_MemStore(t *testing.T) {
	bookFlow(t, newMemStore(t))
}

func TestIdempotentCreate_ThroughMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, GormStore(newTestDB(t)), policyClock, baseConfig())

	body := `{"title":"T","author":"Idem","published_date":"2560-01-01"}`
	hdr := map[string]string{"Idempotency-Key": "key-123"}

	w1 := serve(r, http.MethodPost, "/api/v1/books", body, hdr)
	w2 := serve(r, http.MethodPost, "/api/v1/books", body, hdr)
	if w1.Code != http.StatusCreated || w2.Code != http.StatusCreated {
		t.Fatalf("codes = %d, %d", w1.Code, w2.Code)
	}
	if w2.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second call should replay")
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}

	// Malformed keys are rejected before the handler runs.
	w := serve(r, http.MethodPost, "/api/v1/books", body, map[string]string{"Idempotency-Key": "has spaces"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_idempotency_key") {
		t.Fatalf("bad key = %d %s", w.Code, w.Body.String())
	}
}

func TestIdempotencyKey_BypassesRateLimitOnlyForCreateReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig()
	cfg.RateRPS, cfg.RateBurst = 0.001, 1
	RegisterRoutes(r, newMemStore(t), policyClock, cfg)

	body := `{"title":"T","author":"Limited","published_date":"2560-01-01"}`
	hdr := map[string]string{"Idempotency-Key": "k1"}

	if w := serve(r, http.MethodPost, "/api/v1/books", body, hdr); w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}

	// The bucket is empty; a live key must not exempt other routes.
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/v1/books/search?q=lim"},
		{http.MethodGet, "/api/v1/books?author=Limited"},
		{http.MethodPut, "/api/v1/books/1/status?status=BORROWED"},
	} {
		if w := serve(r, tc.method, tc.target, "", hdr); w.Code != http.StatusTooManyRequests {
			t.Fatalf("%s %s with live key = %d, want 429", tc.method, tc.target, w.Code)
		}
	}

	w := serve(r, http.MethodPost, "/api/v1/books", body, hdr)
	if w.Code != http.StatusCreated || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
}

func TestRegisterRoutes_SwaggerAndGzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	cfg.GzipEnabled = true
	RegisterRoutes(r, newMemStore(t), policyClock, cfg)

	w := serve(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("swagger doc = %d", w.Code)
	}

	w = serve(r, http.MethodGet, "/api/v1/books?author=x", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK {
		t.Fatalf("books = %d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", "0123456789AB", nil) // 12 bytes
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

// Smoke test that a request traverses idempotency + ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := baseConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // only set on https
	RegisterRoutes(r, newMemStore(t), policyClock, cfg)

	w := serve(r, http.MethodGet, "/api/v1/books/status/AVAILABLE", "", map[string]string{"Idempotency-Key": "abc-123"})
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline request = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID")
	}
	if w.Header().Get("X-Content-Type-Options") == "" {
		t.Fatalf("expected security headers")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be set over plain http")
	}
}

var (
	_ Store = gormStore{}
	_ Store = (*memstore.Store)(nil)
)
