package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/valuation"
)

func pathMarket(t *testing.T) *Market {
	t.Helper()
	m, err := New(
		[]domain.Trade{{Seller: 0, Buyer: 1}, {Seller: 1, Buyer: 2}},
		[]valuation.Spec{
			valuation.Unit(map[int]int64{0: -10}),
			valuation.Intermediary(),
			valuation.Unit(map[int]int64{1: 20}),
		},
	)
	require.NoError(t, err)
	return m
}

func TestNewValidatesConstruction(t *testing.T) {
	specs := []valuation.Spec{valuation.Unit(map[int]int64{0: -5}), valuation.Unit(map[int]int64{0: 10})}

	_, err := New([]domain.Trade{{Seller: 0, Buyer: 2}}, specs)
	assert.True(t, errors.Is(err, domain.ErrInvalidAgent))

	_, err = New([]domain.Trade{{Seller: 1, Buyer: 1}}, specs)
	assert.True(t, errors.Is(err, domain.ErrSelfLoop))

	one := func(domain.Prices) (domain.Bundle, error) { return 0, nil }
	_, err = New([]domain.Trade{{Seller: 0, Buyer: 1}}, specs, WithDemands(one))
	assert.True(t, errors.Is(err, domain.ErrDemandCount))

	_, err = New([]domain.Trade{{Seller: 0, Buyer: 1}}, specs, WithDemands(one, nil))
	assert.True(t, errors.Is(err, domain.ErrDemandCount))

	_, err = New([]domain.Trade{{Seller: 0, Buyer: 1}}, []valuation.Spec{
		valuation.Unit(map[int]int64{0: -5}),
		valuation.TwoTrade(valuation.Corner{}, valuation.Corner{}),
	})
	assert.True(t, errors.Is(err, domain.ErrDomainMismatch))

	m, err := New([]domain.Trade{{Seller: 0, Buyer: 1}}, specs, WithDemands(one, one))
	require.NoError(t, err)
	got, err := m.Demand(1, domain.Prices{0: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.Bundle(0), got, "explicit demand overrides the unit oracle")
}

func TestFromValuationsChecksDomains(t *testing.T) {
	g, err := domain.NewGraph(2, []domain.Trade{{Seller: 0, Buyer: 1}})
	require.NoError(t, err)
	seller, err := valuation.Unit(map[int]int64{0: -5}).Build(g.Incidence(0))
	require.NoError(t, err)
	buyer, err := valuation.Unit(map[int]int64{0: 10}).Build(g.Incidence(1))
	require.NoError(t, err)

	_, err = FromValuations(g.Trades(), []valuation.Valuation{buyer, seller})
	assert.True(t, errors.Is(err, domain.ErrDomainMismatch))

	m, err := FromValuations(g.Trades(), []valuation.Valuation{seller, buyer})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Agents())
	assert.Same(t, seller, m.Valuation(0))
}

func TestUtilityIsQuasilinear(t *testing.T) {
	m := pathMarket(t)
	prices := domain.Prices{0: 12, 1: 17}

	u, err := m.Utility(0, prices, domain.BundleOf(0))
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(2), u, "seller receives 12 for a cost of 10")

	u, err = m.Utility(1, prices, domain.BundleOf(0, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(5), u, "intermediary margin")

	u, err = m.Utility(1, prices, domain.BundleOf(0))
	require.NoError(t, err)
	assert.True(t, u.IsInfeasible())

	u, err = m.Utility(2, prices, domain.BundleOf(1))
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(3), u)

	_, err = m.Utility(0, prices, domain.BundleOf(1))
	assert.True(t, errors.Is(err, domain.ErrForeignTrade))

	assert.Equal(t, []int64{-1, 0}, m.RoleVector(0))
	assert.Equal(t, []int64{1, -1}, m.RoleVector(1))
	assert.Equal(t, 2, m.Counterpart(1, 1))
}

func TestNeighbourPricesAndBestResponse(t *testing.T) {
	m := pathMarket(t)
	offers := domain.Offers{
		{0: 12},
		{0: 11, 1: 15},
		{1: 18},
	}

	np, err := m.NeighbourPrices(1, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.Prices{0: 12, 1: 18}, np)

	// Margin 18-12 > 0: the intermediary accepts both observed prices.
	br, demanded, err := m.BestResponse(1, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0, 1), demanded)
	assert.Equal(t, domain.Prices{0: 12, 1: 18}, br)

	// Seller sees a bid of 11 against a cost of 10 and accepts.
	br, demanded, err = m.BestResponse(0, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleOf(0), demanded)
	assert.Equal(t, domain.Prices{0: 11}, br)

	// Buyer sees an ask of 15 against a value of 20 and accepts.
	br, _, err = m.BestResponse(2, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.Prices{1: 15}, br)

	// Rejections move one unit away from the counterpart.
	offers[1] = domain.Prices{0: 9, 1: 25}
	br, demanded, err = m.BestResponse(0, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.Bundle(0), demanded)
	assert.Equal(t, domain.Prices{0: 10}, br, "seller asks one above the bid")

	br, _, err = m.BestResponse(2, offers)
	require.NoError(t, err)
	assert.Equal(t, domain.Prices{1: 24}, br, "buyer bids one below the ask")

	_, err = m.NeighbourPrices(0, domain.Offers{{0: 1}, {}, {}})
	assert.True(t, errors.Is(err, domain.ErrMissingOffer))
}

func TestIndirectUtility(t *testing.T) {
	m := pathMarket(t)
	u, err := m.IndirectUtility(1, domain.Prices{0: 12, 1: 18})
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(6), u)

	u, err = m.IndirectUtility(1, domain.Prices{0: 18, 1: 12})
	require.NoError(t, err)
	assert.Equal(t, domain.Finite(0), u)
}
