package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lotshoppr_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type testJWTConfig struct{ secret string }

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

func newAdminEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminRequired(testJWTConfig{secret: secret}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextAdminSubjectKey))
	})
	return r
}

func TestAdminRequired(t *testing.T) {
	const secret = "test-secret"
	token, err := IssueAdminToken(secret, "ops", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"valid", secret, "Bearer " + token, http.StatusOK},
		{"missing", secret, "", http.StatusUnauthorized},
		{"wrong secret", "other", "Bearer " + token, http.StatusUnauthorized},
		{"disabled", "", "Bearer " + token, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			newAdminEngine(tc.secret).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, w.Code, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != "ops" {
				t.Fatalf("expected subject ops, got %q", w.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewIPRateLimiter(rate.Limit(0.001), 1, nil).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	if first.Code != http.StatusNoContent || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 204 then 429, got %d then %d", first.Code, second.Code)
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	if !HandleError(c, apperr.NotFound("lead not found")) {
		t.Fatalf("expected error to be handled")
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
