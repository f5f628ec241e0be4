package valuation

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/utils"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// intermediary values any flow-balanced bundle (as many bought as sold
// trades) at zero and every other bundle as infeasible.
type intermediary struct {
	inc domain.Incidence
}

type pricedTrade struct {
	trade int
	price int64
}

func (m *intermediary) Kind() Kind { return KindIntermediary }

func (m *intermediary) Incidence() domain.Incidence { return m.inc }

func (m *intermediary) Value(b domain.Bundle) (domain.Value, error) {
	if err := m.inc.Check(b); err != nil {
		return domain.Infeasible, err
	}
	if (b & m.inc.Buying).Len() != (b & m.inc.Selling()).Len() {
		return domain.Infeasible, nil
	}
	return domain.Finite(0), nil
}

// Demand pairs the cheapest unmatched incoming trade with the most
// expensive unmatched outgoing trade while the margin is strictly positive.
// Equal prices are ordered by trade id.
func (m *intermediary) Demand(prices domain.Prices) (domain.Bundle, error) {
	if err := checkPrices(m.inc, prices); err != nil {
		return 0, err
	}

	incoming := priorityqueue.NewWith(func(a, b interface{}) int {
		x, y := a.(pricedTrade), b.(pricedTrade)
		if c := utils.Int64Comparator(x.price, y.price); c != 0 {
			return c
		}
		return utils.IntComparator(x.trade, y.trade)
	})
	outgoing := priorityqueue.NewWith(func(a, b interface{}) int {
		x, y := a.(pricedTrade), b.(pricedTrade)
		if c := utils.Int64Comparator(y.price, x.price); c != 0 {
			return c
		}
		return utils.IntComparator(x.trade, y.trade)
	})
	for _, t := range m.inc.Buying.Trades() {
		incoming.Enqueue(pricedTrade{trade: t, price: prices[t]})
	}
	for _, t := range m.inc.Selling().Trades() {
		outgoing.Enqueue(pricedTrade{trade: t, price: prices[t]})
	}

	var demanded domain.Bundle
	for !incoming.Empty() && !outgoing.Empty() {
		in, _ := incoming.Peek()
		out, _ := outgoing.Peek()
		buy, sell := in.(pricedTrade), out.(pricedTrade)
		if sell.price-buy.price <= 0 {
			break
		}
		incoming.Dequeue()
		outgoing.Dequeue()
		demanded = demanded.With(buy.trade).With(sell.trade)
	}
	return demanded, nil
}
