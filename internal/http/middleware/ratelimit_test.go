package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedEngine(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/books", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:1234"
	if got := KeyByClientIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("key = %q", got)
	}
}

func TestRateLimiter_DeniesOverBurstPerKey(t *testing.T) {
	r := limitedEngine(NewRateLimiter(0.5, 2, KeyByClientIP()))

	for i := 0; i < 2; i++ {
		if w := hit(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst = %d", i, w.Code)
		}
	}
	w := hit(r, "10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over burst = %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] == "" {
		t.Fatalf("unexpected envelope %v", body)
	}

	// Separate client has its own bucket.
	if w := hit(r, "10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("other client = %d", w.Code)
	}
}

func TestRateLimiter_ZeroRateDisables(t *testing.T) {
	rl := NewRateLimiter(0, 0, KeyByClientIP())
	if rl.burst != 1 {
		t.Fatalf("burst coerced to %d, want 1", rl.burst)
	}
	r := limitedEngine(rl)
	for i := 0; i < 20; i++ {
		if w := hit(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d, limiting should be off", i, w.Code)
		}
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	markReplay := func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
	r := limitedEngine(NewRateLimiter(0.001, 1, KeyByClientIP()), markReplay)

	if w := hit(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	if w := hit(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Replay", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay should bypass the limiter, got %d", w.Code)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByClientIP())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	a := rl.limiterFor("a")
	if rl.limiterFor("a") != a {
		t.Fatal("bucket should be reused while active")
	}
	rl.limiterFor("b")

	now = now.Add(rl.idleTTL / 2)
	rl.limiterFor("b")

	now = now.Add(rl.idleTTL/2 + time.Second)
	rl.limiterFor("c")

	if _, ok := rl.buckets["a"]; ok {
		t.Fatal("idle bucket a should be swept")
	}
	if _, ok := rl.buckets["b"]; !ok {
		t.Fatal("recently used bucket b should survive")
	}
	if len(rl.buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(rl.buckets))
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsRateBypass(c) {
		t.Fatal("unset flag reported as bypass")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatal("non-bool flag reported as bypass")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatal("bypass flag ignored")
	}
}
