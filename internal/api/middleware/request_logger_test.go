package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Wikid82/ipguard/internal/cerberus"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/gin-gonic/gin"
)

func TestRequestLoggerIncludesRequestIDAndClient(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)

	router := gin.New()
	router.Use(RequestID())
	router.Use(func(c *gin.Context) {
		c.Set(cerberus.ClientIPKey, "203.0.113.9")
		c.Next()
	})
	router.Use(RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.String(200, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", w.Code)
	}
	out := buf.String()
	for _, want := range []string{"request_id", "handled request", "203.0.113.9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to include %q: %s", want, out)
		}
	}
}
