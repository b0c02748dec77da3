package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/player"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/response"

	"github.com/google/uuid"
)

type PlayersHandler struct {
	service *player.Service
	tokens  *auth.TokenManager
	jar     *cookies.Jar
}

func NewPlayersHandler(service *player.Service, tokens *auth.TokenManager, jar *cookies.Jar) *PlayersHandler {
	return &PlayersHandler{service: service, tokens: tokens, jar: jar}
}

type registerRequest struct {
	Username string     `json:"username"`
	TeamID   *uuid.UUID `json:"teamId,omitempty"`
}

type RegisterResponse struct {
	*player.Profile
	Token string `json:"token"`
}

// Register creates a player and signs them in with a session cookie.
func (h *PlayersHandler) Register(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "register_player")

	var req registerRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	profile, err := h.service.CreatePlayer(r.Context(), req.Username, req.TeamID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	token, err := h.tokens.Generate(profile.Player.ID, profile.Player.Username, time.Now())
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to issue token", err))
		return
	}
	h.jar.SetAuthCookie(w, token)

	response.Success(w, http.StatusCreated, RegisterResponse{Profile: profile, Token: token})
}

func (h *PlayersHandler) Me(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), playerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, profile)
}

func (h *PlayersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.jar.ClearAuthCookie(w)
	response.Success(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
