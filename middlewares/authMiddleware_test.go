package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/gin-gonic/gin"
)

func TestRequireAdminJwtGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	ops := r.Group("/internal/ops", RequireAdminJwt())
	ops.POST("/rescore", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	adminToken, err := utils.JwtGenerate(1, "A")
	if err != nil {
		t.Fatalf("JwtGenerate admin: %v", err)
	}
	consumerToken, err := utils.JwtGenerate(2, "C")
	if err != nil {
		t.Fatalf("JwtGenerate consumer: %v", err)
	}

	cases := []struct {
		name     string
		header   string
		expected int
	}{
		{"no token", "", http.StatusForbidden},
		{"admin token", "Bearer " + adminToken, http.StatusAccepted},
		{"non-admin token", "Bearer " + consumerToken, http.StatusForbidden},
		{"malformed token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/ops/rescore", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		r.ServeHTTP(w, req)
		if w.Code != tc.expected {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.expected, w.Code)
		}
	}
}

func TestAuthMiddlewarePutsClaimInContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/claim", func(c *gin.Context) {
		claim := CtxValue(c.Request.Context())
		if claim == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": claim.ID, "role": claim.Role})
	})

	token, err := utils.JwtGenerate(42, "A")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/claim", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with claim, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/claim", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected no claim without a token, got %d", w.Code)
	}
}
