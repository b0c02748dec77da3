package universe

import (
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
)

const specialPortChance = 0.05

type weighted[T any] struct {
	value  T
	weight int
}

var sectorWeights = []weighted[models.SectorType]{
	{models.SectorStandard, 40},
	{models.SectorNebula, 8},
	{models.SectorAsteroidField, 8},
	{models.SectorBlackHole, 2},
	{models.SectorStarCluster, 8},
	{models.SectorVoid, 6},
	{models.SectorIndustrial, 10},
	{models.SectorAgricultural, 10},
	{models.SectorForbidden, 3},
	{models.SectorWormhole, 5},
}

var tunnelWeights = []weighted[models.TunnelType]{
	{models.TunnelNatural, 25},
	{models.TunnelStandard, 25},
	{models.TunnelArtificial, 15},
	{models.TunnelAncient, 10},
	{models.TunnelQuantum, 10},
	{models.TunnelUnstable, 10},
	{models.TunnelOneWay, 5},
}

// pick rolls one value, each weighted by its share of the table total.
func pick[T any](rng random.Source, table []weighted[T]) T {
	total := 0
	for _, w := range table {
		total += w.weight
	}

	roll := rng.IntN(total)
	for _, w := range table {
		if roll < w.weight {
			return w.value
		}
		roll -= w.weight
	}
	return table[0].value
}

var sectorNames = []string{
	"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta",
	"Iota", "Kappa", "Lambda", "Mu", "Nu", "Xi", "Omicron", "Pi",
	"Rho", "Sigma", "Tau", "Upsilon", "Phi", "Chi", "Psi", "Omega",
	"Prime", "Core", "Frontier", "Outer", "Inner", "Central", "Remote",
	"Azure", "Crimson", "Golden", "Silver", "Emerald", "Violet", "Amber",
}

var planetSuffixes = []string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X",
	"Prime", "Major", "Minor",
}
