package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/player"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage/storagetest"
)

func newHandler(t *testing.T) (*PlayersHandler, *auth.TokenManager) {
	t.Helper()
	w := storagetest.NewWorld(t)
	w.Sectors(1)

	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	svc := player.NewService(w.Store, config.PlayerConfig{StartSectorID: 1, StartTurns: 100}, logger.Discard())
	jar := cookies.New(config.AuthConfig{TokenExpiration: time.Hour}, "http://localhost:3000")
	return NewPlayersHandler(svc, tokens, jar), tokens
}

func TestRegisterThenMe(t *testing.T) {
	h, tokens := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/players", strings.NewReader(`{"username":"orion"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Player struct {
			ID    string `json:"id"`
			Turns int    `json:"turns"`
		} `json:"player"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Player.Turns != 100 {
		t.Errorf("turns = %d, want 100", resp.Player.Turns)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].Value != resp.Token {
		t.Fatalf("auth cookie = %v", c)
	}

	claims, err := tokens.Validate(resp.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.PlayerID.String() != resp.Player.ID {
		t.Fatalf("token player = %s, want %s", claims.PlayerID, resp.Player.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/players/me", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"orion"`) {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	h, _ := newHandler(t)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/players", strings.NewReader(`{"username":"orion"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestMeWithoutClaims(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/players/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
