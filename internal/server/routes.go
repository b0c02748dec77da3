package server

import (
	"log/slog"
	"net/http"

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/combat"
	combatHandlers "sectorwars-server/internal/combat/handlers"
	"sectorwars-server/internal/drone"
	droneHandlers "sectorwars-server/internal/drone/handlers"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/movement"
	movementHandlers "sectorwars-server/internal/movement/handlers"
	"sectorwars-server/internal/player"
	playerHandlers "sectorwars-server/internal/player/handlers"
	serverHandlers "sectorwars-server/internal/server/handlers"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/universe"
	universeHandlers "sectorwars-server/internal/universe/handlers"
)

type Services struct {
	Player   *player.Service
	Movement *movement.Service
	Combat   *combat.Service
	Drone    *drone.Service
	Universe *universe.Service
}

type Routes struct {
	services Services
	tokens   *auth.TokenManager
	jar      *cookies.Jar
	health   *serverHandlers.HealthHandler
}

func NewRoutes(services Services, tokens *auth.TokenManager, jar *cookies.Jar, health *serverHandlers.HealthHandler) *Routes {
	return &Routes{
		services: services,
		tokens:   tokens,
		jar:      jar,
		health:   health,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	protect := middleware.NewJWT(r.tokens).Require

	playersHandler := playerHandlers.NewPlayersHandler(r.services.Player, r.tokens, r.jar)
	movementHandler := movementHandlers.NewMovementHandler(r.services.Movement)
	combatHandler := combatHandlers.NewCombatHandler(r.services.Combat)
	droneHandler := droneHandlers.NewDroneHandler(r.services.Drone)
	universeHandler := universeHandlers.NewUniverseHandler(r.services.Universe)

	// Public endpoints
	mux.Handle("GET /api/server/health", r.health)
	mux.HandleFunc("GET /api/universe", universeHandler.Stats)
	mux.HandleFunc("GET /api/movement/path", movementHandler.Path)
	mux.HandleFunc("GET /api/drones/types", droneHandler.Types)
	mux.HandleFunc("POST /api/players", playersHandler.Register)
	mux.HandleFunc("POST /auth/logout", playersHandler.Logout)

	// Protected endpoints (authenticated players)
	protected := map[string]http.HandlerFunc{
		"GET /api/players/me": playersHandler.Me,

		"POST /api/movement/move": movementHandler.Move,
		"GET /api/movement/moves": movementHandler.AvailableMoves,

		"POST /api/combat":        combatHandler.Initiate,
		"GET /api/combat/history": combatHandler.History,
		"GET /api/combat/{id}":    combatHandler.Status,

		"POST /api/drones":              droneHandler.Create,
		"GET /api/drones":               droneHandler.List,
		"GET /api/drones/{id}":          droneHandler.Get,
		"POST /api/drones/{id}/deploy":  droneHandler.Deploy,
		"POST /api/drones/{id}/recall":  droneHandler.Recall,
		"POST /api/drones/{id}/combat":  droneHandler.Combat,
		"POST /api/drones/{id}/repair":  droneHandler.Repair,
		"POST /api/drones/{id}/upgrade": droneHandler.Upgrade,
		"GET /api/drones/{id}/combats":  droneHandler.History,
		"GET /api/sectors/{id}/drones":  droneHandler.Sector,
	}
	for pattern, h := range protected {
		mux.Handle(pattern, protect(h))
	}

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/universe", "/api/movement/path", "/api/drones/types", "/api/players", "/auth/logout"},
		"protected_endpoints", len(protected),
	)

	return mux
}
