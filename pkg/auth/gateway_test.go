package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSecConfig() SecConfig {
	return SecConfig{
		RPS:          1000,
		Burst:        1000,
		BackendKeys:  map[string]struct{}{"bk": {}},
		FrontendKeys: map[string]struct{}{"fk": {}},
		AdminKeys:    map[string]struct{}{"ak": {}},
	}
}

func gatewayFor(cfg SecConfig) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Role-Name")))
	})
	return AuthenticateRequestMiddleware(cfg)(ok)
}

func TestGatewayResolvesRoles(t *testing.T) {
	h := gatewayFor(testSecConfig())
	cases := []struct {
		key, want string
	}{
		{"ak", "admin"},
		{"bk", "backend"},
		{"fk", "frontend"},
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", "/v1/channels", nil)
		req.Header.Set("X-API-Key", c.key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, c.key)
		require.Equal(t, c.want, rr.Body.String())
	}
}

func TestGatewayBearerToken(t *testing.T) {
	h := gatewayFor(testSecConfig())
	req := httptest.NewRequest("GET", "/v1/channels", nil)
	req.Header.Set("Authorization", "Bearer bk")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "backend", rr.Body.String())
}

func TestGatewayRejectsMissingAndUnknownKeys(t *testing.T) {
	h := gatewayFor(testSecConfig())

	req := httptest.NewRequest("GET", "/v1/channels", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/v1/channels", nil)
	req.Header.Set("X-API-Key", "nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGatewayFrontendScope(t *testing.T) {
	h := gatewayFor(testSecConfig())

	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	req.Header.Set("X-API-Key", "fk")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest("GET", "/v1/sos/mine", nil)
	req.Header.Set("X-API-Key", "fk")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGatewayHealthBypass(t *testing.T) {
	h := gatewayFor(testSecConfig())
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGatewayIPWhitelist(t *testing.T) {
	cfg := testSecConfig()
	cfg.IPWhitelist = []string{"10.0.0.1"}
	h := gatewayFor(cfg)

	req := httptest.NewRequest("GET", "/v1/channels", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	req.Header.Set("X-API-Key", "bk")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest("GET", "/v1/channels", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-API-Key", "bk")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGatewayRateLimit(t *testing.T) {
	cfg := testSecConfig()
	cfg.RPS = 1
	cfg.Burst = 2
	h := gatewayFor(cfg)

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/v1/channels", nil)
		req.Header.Set("X-API-Key", "bk")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[rr.Code]++
	}
	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])
}

func TestGatewayCORSPreflight(t *testing.T) {
	cfg := testSecConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	h := gatewayFor(cfg)

	req := httptest.NewRequest("OPTIONS", "/v1/channels", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
