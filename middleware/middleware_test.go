package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method, route, status string
}

type recordingGateway struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (g *recordingGateway) ObserveRequest(method, route, status string, _ float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, recordedRequest{method, route, status})
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/api/wallpapers/:name", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("name"))
	})
	return r
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gateway := &recordingGateway{}
	r := newTestRouter(Metrics(gateway))

	for _, path := range []string{"/api/wallpapers/Aurora", "/nowhere"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []recordedRequest{
		{"GET", "/api/wallpapers/:name", "200"},
		{"GET", "unmatched", "404"},
	}, gateway.requests)
}

func TestSecurityHeaders(t *testing.T) {
	r := newTestRouter(Security())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/wallpapers/Aurora", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

func TestCORSFallsBackToDefaultOrigins(t *testing.T) {
	r := newTestRouter(CORS([]string{" ", ""}))

	req := httptest.NewRequest(http.MethodGet, "/api/wallpapers/Aurora", nil)
	req.Header.Set("Origin", DefaultOrigins[0])
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, DefaultOrigins[0], w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/wallpapers/Aurora", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSExposesRangeHeaders(t *testing.T) {
	r := newTestRouter(CORS([]string{"http://app.local"}))

	req := httptest.NewRequest(http.MethodGet, "/api/wallpapers/Aurora", nil)
	req.Header.Set("Origin", "http://app.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}
