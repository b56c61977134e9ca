package httpmiddleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

func TestTokenBucketPerKey(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := NewTokenBucket(2, 2, func(c *gin.Context) string { return c.GetHeader("X-User") })
	l.now = func() time.Time { return now }

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if hit("a") != 200 || hit("a") != 200 {
		t.Fatalf("expected first two requests allowed")
	}
	if code := hit("a"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := hit("b"); code != 200 {
		t.Fatalf("expected separate bucket for b, got %d", code)
	}
	now = now.Add(time.Minute)
	if code := hit("a"); code != 200 {
		t.Fatalf("expected refill after a minute, got %d", code)
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	reached := false
	r := gin.New()
	r.POST("/", BodyLimit(50<<20), func(c *gin.Context) { reached = true })

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil))
	req.ContentLength = 60 << 20
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge || reached {
		t.Fatalf("expected 413 before handler, got %d reached=%v", w.Code, reached)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("file_too_large")) {
		t.Fatalf("expected file_too_large code, got %s", w.Body.String())
	}
}

func TestAccessLogSkipsHealth(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(AccessLog(zap.New(core), "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/x", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, p := range []string{"/healthz", "/v1/x"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected a single warn entry, got %v", entries)
	}
}
