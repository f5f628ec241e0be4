package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRolesAndCounterparts(t *testing.T) {
	trades := []Trade{{Seller: 0, Buyer: 1}, {Seller: 1, Buyer: 2}, {Seller: 2, Buyer: 0}}
	g, err := NewGraph(3, trades)
	require.NoError(t, err)

	for id, tr := range trades {
		assert.Equal(t, Seller, g.Role(tr.Seller, id))
		assert.Equal(t, Buyer, g.Role(tr.Buyer, id))
		assert.Equal(t, int64(-1), g.Role(tr.Seller, id).Chi())
		assert.Equal(t, int64(1), g.Role(tr.Buyer, id).Chi())

		for k := 0; k < 3; k++ {
			if k != tr.Seller && k != tr.Buyer {
				assert.Equal(t, None, g.Role(k, id))
				_, ok := g.Counterpart(k, id)
				assert.False(t, ok)
			}
		}

		cp, ok := g.Counterpart(tr.Seller, id)
		require.True(t, ok)
		assert.Equal(t, tr.Buyer, cp)
		cp, ok = g.Counterpart(tr.Buyer, id)
		require.True(t, ok)
		assert.Equal(t, tr.Seller, cp)
	}

	inc := g.Incidence(1)
	assert.Equal(t, BundleOf(0, 1), inc.Trades)
	assert.Equal(t, BundleOf(0), inc.Buying)
	assert.Equal(t, BundleOf(1), inc.Selling())
	assert.Equal(t, Buyer, inc.Role(0))
	assert.Equal(t, Seller, inc.Role(1))
	assert.Equal(t, None, inc.Role(2))
	assert.Equal(t, BundleOf(0, 1, 2), g.All())
}

func TestNewGraphRejectsInvalidTrades(t *testing.T) {
	_, err := NewGraph(2, []Trade{{Seller: 0, Buyer: 2}})
	assert.True(t, errors.Is(err, ErrInvalidAgent))

	_, err = NewGraph(2, []Trade{{Seller: -1, Buyer: 1}})
	assert.True(t, errors.Is(err, ErrInvalidAgent))

	_, err = NewGraph(2, []Trade{{Seller: 1, Buyer: 1}})
	assert.True(t, errors.Is(err, ErrSelfLoop))

	many := make([]Trade, MaxTrades+1)
	for i := range many {
		many[i] = Trade{Seller: 0, Buyer: 1}
	}
	_, err = NewGraph(2, many)
	assert.True(t, errors.Is(err, ErrTooManyTrades))
}

func TestBundleOperations(t *testing.T) {
	b := BundleOf(0, 3, 5)
	assert.Equal(t, 3, b.Len())
	assert.True(t, b.Has(3))
	assert.False(t, b.Has(4))
	assert.Equal(t, []int{0, 3, 5}, b.Trades())
	assert.Equal(t, "{0,3,5}", b.String())
	assert.Equal(t, BundleOf(0, 5), b.Without(3))
	assert.True(t, BundleOf(3).SubsetOf(b))
	assert.False(t, BundleOf(4).SubsetOf(b))

	seen := map[Bundle]bool{}
	b.ForEachSubset(func(s Bundle) {
		assert.True(t, s.SubsetOf(b))
		seen[s] = true
	})
	assert.Len(t, seen, 8)
	assert.True(t, seen[0])

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,3,5]`, string(data))
	var back Bundle
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)
}

func TestValueOrdering(t *testing.T) {
	assert.True(t, Infeasible.Less(Finite(-1_000_000)))
	assert.False(t, Finite(-1_000_000).Less(Infeasible))
	assert.False(t, Infeasible.Less(Infeasible))
	assert.True(t, Finite(1).Less(Finite(2)))

	assert.True(t, Infeasible.Add(100).IsInfeasible())
	assert.True(t, Finite(3).Plus(Infeasible).IsInfeasible())
	assert.Equal(t, int64(7), Finite(3).Plus(Finite(4)).Amount())
	assert.Equal(t, Finite(0), Value{})

	data, err := json.Marshal([]Value{Finite(-4), Infeasible})
	require.NoError(t, err)
	assert.JSONEq(t, `[-4,"infeasible"]`, string(data))

	var back []Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Value{Finite(-4), Infeasible}, back)
}

func TestIncidencePaymentAndCheck(t *testing.T) {
	g, err := NewGraph(3, []Trade{{Seller: 0, Buyer: 1}, {Seller: 1, Buyer: 2}})
	require.NoError(t, err)
	inc := g.Incidence(1)
	prices := Prices{0: 4, 1: 9}

	// Buys trade 0 at 4, sells trade 1 at 9.
	assert.Equal(t, int64(-5), inc.Payment(prices, BundleOf(0, 1)))
	assert.Equal(t, Finite(5), inc.Utility(Finite(0), prices, BundleOf(0, 1)))

	assert.NoError(t, inc.Check(BundleOf(1)))
	err = g.Incidence(0).Check(BundleOf(0, 1))
	assert.True(t, errors.Is(err, ErrForeignTrade))
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(Seller)
	require.NoError(t, err)
	assert.Equal(t, `"SELLER"`, string(data))

	var r Role
	require.NoError(t, json.Unmarshal([]byte(`1`), &r))
	assert.Equal(t, Buyer, r)
	assert.Error(t, json.Unmarshal([]byte(`"BROKER"`), &r))
}
