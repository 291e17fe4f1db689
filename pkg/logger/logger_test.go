package logger

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewLevelByEnv(t *testing.T) {
	if New("production").Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("production logger must not emit debug")
	}
	for _, env := range []string{"local", "dev", "staging"} {
		if !New(env).Enabled(context.Background(), slog.LevelDebug) {
			t.Fatalf("%s logger must emit debug", env)
		}
	}
}

func TestMiddlewareScopesLoggerAndEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(slog.Default()))

	var got *slog.Logger
	r.GET("/ping", func(c *gin.Context) {
		got = FromGin(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "rid-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(headerRequestID) != "rid-123" {
		t.Fatalf("request id not echoed, got %q", w.Header().Get(headerRequestID))
	}
	if got == slog.Default() {
		t.Fatalf("handler should see the request-scoped logger, not the default")
	}

	// No inbound id: one must be generated.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}
}
