package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
)

// buildHolderDistribution ranks the supplied balances and computes top-N
// concentration percentages against total supply. The input slice is not
// mutated; concentration is informational only.
func buildHolderDistribution(holders []domain.HolderBalance, totalSupply string) domain.HolderDistribution {
	dist := domain.HolderDistribution{HolderCnt: len(holders)}
	if len(holders) == 0 {
		return dist
	}

	ranked := make([]domain.HolderBalance, len(holders))
	copy(ranked, holders)
	sort.SliceStable(ranked, func(i, j int) bool {
		return parseBalance(ranked[i].Balance).GreaterThan(parseBalance(ranked[j].Balance))
	})
	dist.Holders = ranked

	supply, err := decimal.NewFromString(totalSupply)
	if err != nil || supply.LessThanOrEqual(decimal.Zero) {
		// Without a usable supply figure the percentages are undefined;
		// fall back to the sum of known balances as the denominator.
		supply = decimal.Zero
		for _, h := range ranked {
			supply = supply.Add(parseBalance(h.Balance))
		}
		if supply.LessThanOrEqual(decimal.Zero) {
			return dist
		}
	}

	dist.Top10Pct = concentration(ranked, 0, 10, supply)
	dist.Top50Pct = concentration(ranked, 10, 50, supply)

	return dist
}

// concentration sums balances for ranks (from, to] and returns their share
// of supply as a percentage clamped to [0, 100].
func concentration(ranked []domain.HolderBalance, from, to int, supply decimal.Decimal) float64 {
	if from >= len(ranked) {
		return 0
	}
	if to > len(ranked) {
		to = len(ranked)
	}

	sum := decimal.Zero
	for _, h := range ranked[from:to] {
		sum = sum.Add(parseBalance(h.Balance))
	}

	pct, _ := sum.Div(supply).Mul(decimal.NewFromInt(100)).Float64()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func parseBalance(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
