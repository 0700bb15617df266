package httpkit

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
)

const testSecret = "gateway-secret"

type jwtConfig struct{}

func (jwtConfig) GetGatewayJWTSecret() string { return testSecret }

type httpConfig struct{ perMinute float64 }

func (httpConfig) GetHTTPAddr() string                { return ":0" }
func (c httpConfig) GetWebhookRatePerMinute() float64 { return c.perMinute }

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func newAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", GatewayAuthRequired(jwtConfig{}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.String(http.StatusOK, id.Gateway())
	})
	return r
}

func TestGatewayAuthRequired(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid gateway token", "Bearer " + signToken(t, jwt.MapClaims{"type": "gateway", "sub": "wa-gateway", "exp": exp}, testSecret), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token type", "Bearer " + signToken(t, jwt.MapClaims{"type": "access", "sub": "u1", "exp": exp}, testSecret), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.MapClaims{"type": "gateway", "sub": "wa-gateway", "exp": exp}, "other"), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.MapClaims{"type": "gateway", "sub": "wa-gateway", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret), http.StatusUnauthorized},
		{"missing subject", "Bearer " + signToken(t, jwt.MapClaims{"type": "gateway", "exp": exp}, testSecret), http.StatusUnauthorized},
	}

	r := newAuthEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK && rec.Body.String() != "wa-gateway" {
				t.Fatalf("expected gateway identity, got %q", rec.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIDKey).(string)
		c.String(http.StatusOK, id)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(HeaderRequestID) == "" || rec.Body.String() != rec.Header().Get(HeaderRequestID) {
		t.Fatalf("expected generated id in header and context, got %q / %q", rec.Header().Get(HeaderRequestID), rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "gw-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "gw-123" {
		t.Fatalf("expected inbound id to be kept, got %q", rec.Body.String())
	}
}

func TestWebhookRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewWebhookRateLimiter(httpConfig{perMinute: 1}, logger.Nop()).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	var limited bool
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected the limiter to reject a burst above the configured rate")
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.Validation("invalid phone"), http.StatusBadRequest, "invalid phone"},
		{fmt.Errorf("enqueue: %w", apperr.ExternalService("queue unavailable", errors.New("dial tcp"))), http.StatusBadGateway, "queue unavailable"},
		{errors.New("dial tcp 10.0.0.1:6379"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		gin.SetMode(gin.TestMode)
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		if !HandleError(c, tt.err) {
			t.Fatalf("expected %v to be handled", tt.err)
		}
		if rec.Code != tt.status {
			t.Fatalf("expected %d for %v, got %d", tt.status, tt.err, rec.Code)
		}
		if want := fmt.Sprintf(`{"error":%q}`, tt.body); rec.Body.String() != want {
			t.Fatalf("expected body %s, got %s", want, rec.Body.String())
		}
	}
}
