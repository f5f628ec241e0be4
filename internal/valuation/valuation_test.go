package valuation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// hubGraph: agents 0 and 1 sell to hub 2 (trades 0, 1); hub 2 sells to
// agents 3 and 4 (trades 2, 3).
func hubGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph(5, []domain.Trade{
		{Seller: 0, Buyer: 2},
		{Seller: 1, Buyer: 2},
		{Seller: 2, Buyer: 3},
		{Seller: 2, Buyer: 4},
	})
	require.NoError(t, err)
	return g
}

// pathGraph: 0 -> 1 -> 2.
func pathGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph(3, []domain.Trade{{Seller: 0, Buyer: 1}, {Seller: 1, Buyer: 2}})
	require.NoError(t, err)
	return g
}

func build(t *testing.T, spec Spec, inc domain.Incidence) Valuation {
	t.Helper()
	v, err := spec.Build(inc)
	require.NoError(t, err)
	return v
}

// forEachPrices calls fn with every assignment of grid values to the trades.
func forEachPrices(trades domain.Bundle, grid []int64, fn func(domain.Prices)) {
	ids := trades.Trades()
	idx := make([]int, len(ids))
	for {
		p := make(domain.Prices, len(ids))
		for i, t := range ids {
			p[t] = grid[idx[i]]
		}
		fn(p)

		i := 0
		for ; i < len(ids); i++ {
			idx[i]++
			if idx[i] < len(grid) {
				break
			}
			idx[i] = 0
		}
		if i == len(ids) {
			return
		}
	}
}

// assertDemandMaximises checks the demanded bundle's utility against every
// bundle of the agent's domain.
func assertDemandMaximises(t *testing.T, v Valuation, grid []int64) {
	t.Helper()
	inc := v.Incidence()
	forEachPrices(inc.Trades, grid, func(p domain.Prices) {
		got, err := v.Demand(p)
		require.NoError(t, err)
		require.True(t, got.SubsetOf(inc.Trades))

		gotU, err := Utility(v, p, got)
		require.NoError(t, err)
		require.False(t, gotU.IsInfeasible(), "%s demand %s infeasible at %v", v.Kind(), got, p)

		inc.Trades.ForEachSubset(func(other domain.Bundle) {
			u, err := Utility(v, p, other)
			require.NoError(t, err)
			assert.False(t, gotU.Less(u), "%s at %v: demand %s (%s) beaten by %s (%s)",
				v.Kind(), p, got, gotU, other, u)
		})
	})
}

func TestEmptyBundleIsWorthZero(t *testing.T) {
	g := hubGraph(t)
	pg := pathGraph(t)

	specs := []struct {
		spec Spec
		inc  domain.Incidence
	}{
		{Unit(map[int]int64{0: 7, 1: 3, 2: -4, 3: -1}), g.Incidence(2)},
		{Intermediary(), g.Incidence(2)},
		{TwoTrade(Corner{X: 6, Y: -2}, Corner{X: 5, Y: -3}), pg.Incidence(1)},
		{Table(TableEntry{Trades: []int{0}, Value: 4}), pg.Incidence(1)},
	}
	for _, s := range specs {
		v := build(t, s.spec, s.inc)
		val, err := v.Value(0)
		require.NoError(t, err)
		assert.Equal(t, domain.Finite(0), val, s.spec.Kind.String())
	}
}

func TestUnitValuation(t *testing.T) {
	g := hubGraph(t)
	v := build(t, Unit(map[int]int64{0: 7, 1: 3, 2: -4, 3: -1}), g.Incidence(2))

	val, err := v.Value(domain.BundleOf(0))
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(7), val)

	val, err = v.Value(domain.BundleOf(2))
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(-4), val)

	domain.BundleOf(0, 1, 2, 3).ForEachSubset(func(b domain.Bundle) {
		if b.Len() < 2 {
			return
		}
		val, err := v.Value(b)
		require.NoError(t, err)
		assert.True(t, val.IsInfeasible(), "bundle %s", b)
	})

	assertDemandMaximises(t, v, []int64{-5, 0, 3, 7, 12})
}

func TestUnitDemandRequiresStrictlyPositiveUtility(t *testing.T) {
	g := pathGraph(t)
	seller := build(t, Unit(map[int]int64{0: -5}), g.Incidence(0))

	// Selling at 5 with cost 5 ties with holding nothing.
	got, err := seller.Demand(domain.Prices{0: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.Bundle(0), got)

	got, err = seller.Demand(domain.Prices{0: 6})
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0), got)
}

func TestIntermediaryValuation(t *testing.T) {
	g := hubGraph(t)
	inc := g.Incidence(2)
	v := build(t, Intermediary(), inc)

	inc.Trades.ForEachSubset(func(b domain.Bundle) {
		val, err := v.Value(b)
		require.NoError(t, err)
		var balance int64
		for _, tr := range b.Trades() {
			balance += inc.Role(tr).Chi()
		}
		if balance == 0 {
			assert.Equal(t, domain.Finite(0), val, "bundle %s", b)
		} else {
			assert.True(t, val.IsInfeasible(), "bundle %s", b)
		}
	})

	assertDemandMaximises(t, v, []int64{0, 2, 5, 9})
}

func TestIntermediaryGreedyPairing(t *testing.T) {
	g := hubGraph(t)
	v := build(t, Intermediary(), g.Incidence(2))

	// Cheapest incoming (trade 1 at 2) pairs with dearest outgoing (trade 3
	// at 10); the next pair (trade 0 at 6, trade 2 at 6) has zero margin.
	got, err := v.Demand(domain.Prices{0: 6, 1: 2, 2: 6, 3: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(1, 3), got)

	got, err = v.Demand(domain.Prices{0: 1, 1: 2, 2: 6, 3: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0, 1, 2, 3), got)

	got, err = v.Demand(domain.Prices{0: 9, 1: 9, 2: 9, 3: 9})
	require.NoError(t, err)
	assert.Equal(t, domain.Bundle(0), got)
}

func TestTwoTradeValuation(t *testing.T) {
	g := pathGraph(t)
	inc := g.Incidence(1)

	_, err := TwoTrade(Corner{X: 6, Y: -2}, Corner{X: 5, Y: -1}).Build(inc)
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))

	_, err = TwoTrade(Corner{X: 6, Y: -2}, Corner{X: 5, Y: -3}).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrDomainMismatch))

	v := build(t, TwoTrade(Corner{X: 6, Y: -2}, Corner{X: 5, Y: -3}), inc)
	for b, want := range map[domain.Bundle]int64{
		domain.BundleOf(0):    6,
		domain.BundleOf(1):    -2,
		domain.BundleOf(0, 1): 3,
	} {
		val, err := v.Value(b)
		require.NoError(t, err)
		assert.Equal(t, domain.Finite(want), val, "bundle %s", b)
	}

	assertDemandMaximises(t, v, []int64{-6, -2, 0, 1, 3, 5, 6, 8, 12})

	// Complements: v{ab} exceeds v{a}+v{b}.
	comp := build(t, TwoTrade(Corner{X: -1, Y: -3}, Corner{X: 7, Y: 5}), inc)
	assertDemandMaximises(t, comp, []int64{-6, -2, 0, 1, 3, 5, 6, 8, 12})
}

func TestTableDemandTieBreak(t *testing.T) {
	g := pathGraph(t)
	inc := g.Incidence(1)
	zero := domain.Prices{0: 0, 1: 0}

	v := build(t, Table(
		TableEntry{Trades: []int{0}, Value: 5},
		TableEntry{Trades: []int{1}, Value: 5},
		TableEntry{Trades: []int{0, 1}, Value: 5},
	), inc)
	got, err := v.Demand(zero)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0), got, "fewest trades, then lowest id")

	v = build(t, Table(
		TableEntry{Trades: []int{0}, Value: 0},
		TableEntry{Trades: []int{0, 1}, Value: 0},
	), inc)
	got, err = v.Demand(zero)
	require.NoError(t, err)
	assert.Equal(t, domain.Bundle(0), got, "empty bundle wins ties at zero")

	v = build(t, Table(
		TableEntry{Trades: []int{0}, Value: 2},
		TableEntry{Trades: []int{0, 1}, Value: 9},
	), inc)
	got, err = v.Demand(zero)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0, 1), got)

	val, err := v.Value(domain.BundleOf(1))
	require.NoError(t, err)
	assert.True(t, val.IsInfeasible())

	assertDemandMaximises(t, v, []int64{-4, 0, 3, 8})
}

func TestTableRejectsBadEntries(t *testing.T) {
	g := pathGraph(t)

	_, err := Table(TableEntry{Trades: []int{1}, Value: 1}).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))

	_, err = Table(TableEntry{Trades: nil, Value: 3}).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))

	_, err = Table(
		TableEntry{Trades: []int{0}, Value: 1},
		TableEntry{Trades: []int{0}, Value: 2},
	).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))
}

func TestForeignBundlesAreContractViolations(t *testing.T) {
	g := pathGraph(t)
	specs := []Spec{
		Unit(map[int]int64{0: -5}),
		Intermediary(),
		Table(TableEntry{Trades: []int{0}, Value: 1}),
	}
	for _, s := range specs {
		v := build(t, s, g.Incidence(0))
		_, err := v.Value(domain.BundleOf(1))
		assert.True(t, errors.Is(err, domain.ErrForeignTrade), s.Kind.String())

		_, err = v.Demand(domain.Prices{})
		assert.True(t, errors.Is(err, domain.ErrMissingOffer), s.Kind.String())
	}

	_, err := Unit(map[int]int64{1: 3}).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))
	_, err = Unit(map[int]int64{}).Build(g.Incidence(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))
}

func TestBestBundleCapacity(t *testing.T) {
	n := domain.MaxEnumerationDegree + 2
	trades := make([]domain.Trade, n-1)
	for i := range trades {
		trades[i] = domain.Trade{Seller: i + 1, Buyer: 0}
	}
	g, err := domain.NewGraph(n, trades)
	require.NoError(t, err)

	v := build(t, Table(), g.Incidence(0))
	prices := domain.Prices{}
	for i := range trades {
		prices[i] = 1
	}
	_, err = v.Demand(prices)
	assert.True(t, errors.Is(err, domain.ErrCapacity))
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindUnit, KindIntermediary, KindTwoTrade, KindTable} {
		data, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(data))
		assert.Equal(t, k, back)
	}
	var k Kind
	assert.True(t, errors.Is(k.UnmarshalText([]byte("gross")), domain.ErrUnknownKind))

	_, err := Spec{Kind: Kind(42)}.Build(domain.Incidence{})
	assert.True(t, errors.Is(err, domain.ErrUnknownKind))
}
