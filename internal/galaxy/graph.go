// Package galaxy answers which sectors are connected, by what, and at what
// cost for a given ship. The graph is keyed by sector id; edges live in
// maps keyed by (from, to) so tunnels can appear and collapse without
// touching other entries.
package galaxy

import (
	"context"
	"math"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"
)

type edgeKey struct {
	from, to int
}

type Graph struct {
	sectors map[int]models.Sector
	warps   map[edgeKey]models.Warp
	// warpOut keeps destinations in insertion order for FIFO discovery.
	warpOut map[int][]int
	// tunnelOut holds tunnels enterable from a sector, including reversed
	// bidirectional ones. Outgoing tunnels precede reversed ones.
	tunnelOut map[int][]tunnelEdge
}

type tunnelEdge struct {
	to       int
	tunnel   models.Tunnel
	reversed bool
}

// New builds a graph. Tunnels that are not usable are skipped.
func New(sectors []models.Sector, warps []models.Warp, tunnels []models.Tunnel) *Graph {
	g := &Graph{
		sectors:   make(map[int]models.Sector, len(sectors)),
		warps:     make(map[edgeKey]models.Warp, len(warps)),
		warpOut:   make(map[int][]int),
		tunnelOut: make(map[int][]tunnelEdge),
	}
	for _, s := range sectors {
		s.PlayersPresent = nil
		g.sectors[s.ID] = s
	}
	for _, w := range warps {
		key := edgeKey{w.SourceSectorID, w.DestinationSectorID}
		if _, dup := g.warps[key]; dup {
			continue
		}
		g.warps[key] = w
		g.warpOut[w.SourceSectorID] = append(g.warpOut[w.SourceSectorID], w.DestinationSectorID)
	}

	var reversed []tunnelEdge
	for _, t := range tunnels {
		if !t.Usable() {
			continue
		}
		g.tunnelOut[t.OriginSectorID] = append(g.tunnelOut[t.OriginSectorID],
			tunnelEdge{to: t.DestinationSectorID, tunnel: t})
		if t.Reversible() {
			reversed = append(reversed, tunnelEdge{to: t.OriginSectorID, tunnel: t, reversed: true})
		}
	}
	for _, e := range reversed {
		from := e.tunnel.DestinationSectorID
		g.tunnelOut[from] = append(g.tunnelOut[from], e)
	}
	return g
}

// Load reads the current graph inside a unit of work.
func Load(ctx context.Context, tx storage.GalaxyStore) (*Graph, error) {
	sectors, err := tx.ListSectors(ctx)
	if err != nil {
		return nil, err
	}
	warps, err := tx.ListWarps(ctx)
	if err != nil {
		return nil, err
	}
	tunnels, err := tx.ListTunnels(ctx)
	if err != nil {
		return nil, err
	}
	return New(sectors, warps, tunnels), nil
}

func (g *Graph) Sector(id int) (models.Sector, bool) {
	s, ok := g.sectors[id]
	return s, ok
}

// DirectWarpCost returns the ship-adjusted cost of the static warp from -> to.
func (g *Graph) DirectWarpCost(from, to int, ship *models.Ship) (int, bool) {
	w, ok := g.warps[edgeKey{from, to}]
	if !ok {
		return 0, false
	}
	return WarpCost(w.TurnCost, ship), true
}

// TunnelFor returns the tunnel connecting from -> to, preferring one whose
// origin is from over a reversed bidirectional one.
func (g *Graph) TunnelFor(from, to int) (models.Tunnel, bool) {
	var fallback *models.Tunnel
	for _, e := range g.tunnelOut[from] {
		if e.to != to {
			continue
		}
		if !e.reversed {
			return e.tunnel, true
		}
		if fallback == nil {
			t := e.tunnel
			fallback = &t
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.Tunnel{}, false
}

// Route is a resolved single hop.
type Route struct {
	From, To int
	Cost     int
	Tunnel   *models.Tunnel
}

// Resolve picks the edge a ship would take from -> to: the direct warp when
// one exists, otherwise a tunnel. It reports Unreachable when neither exists
// and Forbidden when the only edge needs warp capability the ship lacks.
func (g *Graph) Resolve(from, to int, ship *models.Ship) (Route, error) {
	if cost, ok := g.DirectWarpCost(from, to, ship); ok {
		return Route{From: from, To: to, Cost: cost}, nil
	}
	t, ok := g.TunnelFor(from, to)
	if !ok {
		return Route{}, errors.Unreachablef("no valid path from sector %d to sector %d", from, to)
	}
	cost, err := TunnelCost(t, ship)
	if err != nil {
		return Route{}, err
	}
	return Route{From: from, To: to, Cost: cost, Tunnel: &t}, nil
}

// WarpCost applies ship-type multipliers and the damaged-engine penalty to a
// base warp cost. The result is never below 1.
func WarpCost(base int, ship *models.Ship) int {
	cost := float64(base)
	if ship != nil {
		switch ship.Type {
		case models.ShipFastCourier:
			cost = math.Max(1, math.Floor(cost*0.7))
		case models.ShipScout:
			cost = math.Max(1, math.Floor(cost*0.8))
		case models.ShipCargoHauler:
			cost = math.Floor(cost * 1.2)
		case models.ShipColony:
			cost = math.Floor(cost * 1.3)
		}
		if ship.BaseSpeed > 0 && ship.CurrentSpeed < ship.BaseSpeed {
			ratio := math.Max(0, ship.CurrentSpeed/ship.BaseSpeed)
			cost = math.Floor(cost * (2 - ratio))
		}
	}
	return max(1, int(cost))
}

// TunnelCost is the tunnel's cost for a ship. Warp-capable ships get a 20%
// discount; quantum and unstable tunnels reject everyone else.
func TunnelCost(t models.Tunnel, ship *models.Ship) (int, error) {
	warpCapable := ship != nil && ship.WarpCapable
	if t.RequiresWarpCapability() && !warpCapable {
		return 0, errors.Forbiddenf("%s tunnel requires a warp-capable ship", t.Type)
	}
	cost := max(1, t.TurnCost)
	if warpCapable {
		cost = max(1, int(float64(cost)*0.8))
	}
	return cost, nil
}
