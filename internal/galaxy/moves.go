package galaxy

import "sectorwars-server/internal/models"

type WarpMove struct {
	SectorID  int               `json:"sectorId"`
	Name      string            `json:"name"`
	Type      models.SectorType `json:"type"`
	TurnCost  int               `json:"turnCost"`
	CanAfford bool              `json:"canAfford"`
}

type TunnelMove struct {
	WarpMove
	TunnelID   string            `json:"tunnelId"`
	TunnelType models.TunnelType `json:"tunnelType"`
	Stability  float64           `json:"stability"`
}

type Neighbors struct {
	Warps   []WarpMove   `json:"warps"`
	Tunnels []TunnelMove `json:"tunnels"`
}

// Neighbors lists every one-hop move from a sector. Tunnels the ship may not
// enter are left out, as are tunnels leading to a sector already reachable
// by direct warp.
func (g *Graph) Neighbors(sectorID int, ship *models.Ship, turns int) Neighbors {
	n := Neighbors{Warps: []WarpMove{}, Tunnels: []TunnelMove{}}

	for _, to := range g.warpOut[sectorID] {
		cost, _ := g.DirectWarpCost(sectorID, to, ship)
		n.Warps = append(n.Warps, g.move(to, cost, turns))
	}

	seen := make(map[int]bool)
	for _, e := range g.tunnelOut[sectorID] {
		if seen[e.to] {
			continue
		}
		if _, direct := g.warps[edgeKey{sectorID, e.to}]; direct {
			continue
		}
		cost, err := TunnelCost(e.tunnel, ship)
		if err != nil {
			continue
		}
		seen[e.to] = true
		n.Tunnels = append(n.Tunnels, TunnelMove{
			WarpMove:   g.move(e.to, cost, turns),
			TunnelID:   e.tunnel.ID.String(),
			TunnelType: e.tunnel.Type,
			Stability:  e.tunnel.Stability,
		})
	}
	return n
}

func (g *Graph) move(to, cost, turns int) WarpMove {
	s := g.sectors[to]
	return WarpMove{
		SectorID:  to,
		Name:      s.Name,
		Type:      s.Type,
		TurnCost:  cost,
		CanAfford: turns >= cost,
	}
}
