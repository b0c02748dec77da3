package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/combat"
	"sectorwars-server/internal/drone"
	"sectorwars-server/internal/events"
	"sectorwars-server/internal/movement"
	"sectorwars-server/internal/player"
	"sectorwars-server/internal/random"
	serverHandlers "sectorwars-server/internal/server/handlers"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage/storagetest"
	"sectorwars-server/internal/universe"
)

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	w := storagetest.NewWorld(t)
	w.Sectors(1, 2)
	w.Warp(1, 2, 1)

	log := logger.Discard()
	pub := events.NewLogPublisher(log)
	rng := random.SeededFactory(1)
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	services := Services{
		Player:   player.NewService(w.Store, config.PlayerConfig{StartSectorID: 1, StartTurns: 10}, log),
		Movement: movement.NewService(w.Store, pub, rng, log),
		Combat:   combat.NewService(w.Store, pub, rng, log),
		Drone:    drone.NewService(w.Store, pub, rng, log),
		Universe: universe.NewService(w.Store, rng, log),
	}
	jar := cookies.New(config.AuthConfig{TokenExpiration: time.Hour}, "http://localhost:3000")
	return NewRoutes(services, tokens, jar, serverHandlers.NewHealthHandler(nil, nil)).Setup()
}

func TestRoutes(t *testing.T) {
	mux := newMux(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/server/health", "", http.StatusOK},
		{http.MethodGet, "/api/universe", "", http.StatusOK},
		{http.MethodGet, "/api/drones/types", "", http.StatusOK},
		{http.MethodGet, "/api/movement/path?from=1&to=2", "", http.StatusOK},
		{http.MethodPost, "/api/movement/move", `{"destinationSectorId":2}`, http.StatusUnauthorized},
		{http.MethodGet, "/api/combat/history", "", http.StatusUnauthorized},
		{http.MethodDelete, "/api/drones", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestRegisterThenMoveWithCookie(t *testing.T) {
	mux := newMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/players", strings.NewReader(`{"username":"vega"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d; body %s", rec.Code, rec.Body)
	}
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/api/movement/move", strings.NewReader(`{"destinationSectorId":2}`))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"turnsRemaining":9`) {
		t.Fatalf("move status = %d; body %s", rec.Code, rec.Body)
	}
}
