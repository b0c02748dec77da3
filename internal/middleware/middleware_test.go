package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/shared/config"

	"github.com/google/uuid"
)

func TestRateLimiterBlocksBurst(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 2})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/movement/moves", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := getClientIP(req, false); got != "192.168.1.1" {
		t.Errorf("untrusted proxy ip = %q", got)
	}
	if got := getClientIP(req, true); got != "203.0.113.7" {
		t.Errorf("trusted proxy ip = %q", got)
	}
}

func TestJWTRequire(t *testing.T) {
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	playerID := uuid.New()
	token, _ := tokens.Generate(playerID, "orion", time.Now())

	var seen uuid.UUID
	h := NewJWT(tokens).Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PlayerID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/drones", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != playerID {
		t.Fatalf("bearer auth: code %d, player %s", rec.Code, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/drones", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie auth: code %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drones", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: code %d, want 401", rec.Code)
	}
}
