package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func originRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OriginFilter([]string{"http://localhost:3000"}))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestOriginFilter(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		method     string
		wantStatus int
	}{
		{"allowed origin", "http://localhost:3000", http.MethodGet, http.StatusOK},
		{"blocked origin", "http://evil.example", http.MethodGet, http.StatusForbidden},
		{"no origin header", "", http.MethodGet, http.StatusOK},
		{"preflight", "http://localhost:3000", http.MethodOptions, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := originRouter()
			req := httptest.NewRequest(tt.method, "/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK && tt.origin != "" {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := generateRoomCode()
		assert.Len(t, code, roomCodeLength)
		for _, ch := range code {
			assert.Contains(t, codeChars, string(ch))
		}
		seen[code] = true
	}
	// 32^6 codes; a hundred draws colliding would mean a broken generator.
	assert.Greater(t, len(seen), 90)
}
