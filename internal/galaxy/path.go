package galaxy

type ConnectionType string

const (
	ConnectionStart  ConnectionType = "start"
	ConnectionWarp   ConnectionType = "warp"
	ConnectionTunnel ConnectionType = "tunnel"
)

type PathHop struct {
	SectorID       int            `json:"sectorId"`
	Name           string         `json:"name"`
	TurnCost       int            `json:"turnCost"`
	ConnectionType ConnectionType `json:"connectionType"`
}

type visit struct {
	prev int
	cost int
	conn ConnectionType
}

// ShortestPath finds the path with the fewest hops, breadth first over warps
// then tunnels, ties going to the first edge discovered. Hop costs are the
// ship-independent base costs. The result is empty when end is unreachable.
func (g *Graph) ShortestPath(start, end int) []PathHop {
	if _, ok := g.sectors[start]; !ok {
		return []PathHop{}
	}
	if start == end {
		return []PathHop{g.hop(start, 0, ConnectionStart)}
	}

	seen := map[int]*visit{start: {prev: start, conn: ConnectionStart}}
	queue := []int{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, to := range g.warpOut[cur] {
			if _, ok := seen[to]; ok {
				continue
			}
			seen[to] = &visit{prev: cur, cost: g.warps[edgeKey{cur, to}].TurnCost, conn: ConnectionWarp}
			if to == end {
				return g.unwind(seen, end)
			}
			queue = append(queue, to)
		}

		for _, e := range g.tunnelOut[cur] {
			if _, ok := seen[e.to]; ok {
				continue
			}
			seen[e.to] = &visit{prev: cur, cost: e.tunnel.TurnCost, conn: ConnectionTunnel}
			if e.to == end {
				return g.unwind(seen, end)
			}
			queue = append(queue, e.to)
		}
	}
	return []PathHop{}
}

func (g *Graph) unwind(seen map[int]*visit, end int) []PathHop {
	var rev []PathHop
	for id := end; ; {
		v := seen[id]
		rev = append(rev, g.hop(id, v.cost, v.conn))
		if v.conn == ConnectionStart {
			break
		}
		id = v.prev
	}
	path := make([]PathHop, len(rev))
	for i, h := range rev {
		path[len(rev)-1-i] = h
	}
	return path
}

func (g *Graph) hop(id, cost int, conn ConnectionType) PathHop {
	return PathHop{SectorID: id, Name: g.sectors[id].Name, TurnCost: cost, ConnectionType: conn}
}
