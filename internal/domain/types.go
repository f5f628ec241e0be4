// Package domain defines the core types shared across the trading network:
// trades, roles, bundles, values, offers and trace records
package domain

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// --- Capacity ---
// Bundles are bitmasks over trade ids, so a network carries at most
// MaxTrades trades. Exhaustive maximisation over an agent's bundle
// domain is refused above MaxEnumerationDegree incident trades.

const (
	MaxTrades            = 64
	MaxEnumerationDegree = 20
)

// --- Enums ---

// Role is the χ indicator of an agent on a trade: +1 buyer, -1 seller, 0 uninvolved.
type Role int8

const (
	None   Role = 0
	Buyer  Role = 1
	Seller Role = -1
)

func (r Role) String() string {
	switch r {
	case Buyer:
		return "BUYER"
	case Seller:
		return "SELLER"
	default:
		return "NONE"
	}
}

// Chi returns the role as a signed price multiplier.
func (r Role) Chi() int64 {
	return int64(r)
}

// MarshalJSON serializes Role as a human-readable string
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON deserializes Role from a string or integer
func (r *Role) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	switch str {
	case "BUYER", "1":
		*r = Buyer
	case "SELLER", "-1":
		*r = Seller
	case "NONE", "0":
		*r = None
	default:
		return fmt.Errorf("unknown Role: %s", str)
	}
	return nil
}

// --- Core structures ---

// Trade is a directed seller -> buyer pair, identified by its index in the
// network's trade sequence.
type Trade struct {
	Seller int `json:"seller" yaml:"seller"`
	Buyer  int `json:"buyer" yaml:"buyer"`
}

func (t Trade) String() string {
	return fmt.Sprintf("%d->%d", t.Seller, t.Buyer)
}

// Bundle is a set of trade ids held as a bitmask. Bit ω is trade ω.
type Bundle uint64

// BundleOf builds a bundle from trade ids.
func BundleOf(trades ...int) Bundle {
	var b Bundle
	for _, t := range trades {
		b = b.With(t)
	}
	return b
}

func (b Bundle) Has(trade int) bool {
	return trade >= 0 && trade < MaxTrades && b&(1<<uint(trade)) != 0
}

func (b Bundle) With(trade int) Bundle {
	return b | 1<<uint(trade)
}

func (b Bundle) Without(trade int) Bundle {
	return b &^ (1 << uint(trade))
}

// Len returns the number of trades in the bundle.
func (b Bundle) Len() int {
	return bits.OnesCount64(uint64(b))
}

func (b Bundle) IsEmpty() bool {
	return b == 0
}

// SubsetOf reports whether every trade of b is in other.
func (b Bundle) SubsetOf(other Bundle) bool {
	return b&^other == 0
}

// Trades returns the trade ids in ascending order.
func (b Bundle) Trades() []int {
	out := make([]int, 0, b.Len())
	for rest := uint64(b); rest != 0; rest &= rest - 1 {
		out = append(out, bits.TrailingZeros64(rest))
	}
	return out
}

// ForEachSubset calls fn for every subset of b, the empty bundle included.
func (b Bundle) ForEachSubset(fn func(Bundle)) {
	sub := b
	for {
		fn(sub)
		if sub == 0 {
			return
		}
		sub = (sub - 1) & b
	}
}

func (b Bundle) String() string {
	ids := b.Trades()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// MarshalJSON serializes a bundle as its list of trade ids
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Trades())
}

// UnmarshalJSON deserializes a bundle from a list of trade ids
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("unmarshal bundle: %w", err)
	}
	for _, id := range ids {
		if id < 0 || id >= MaxTrades {
			return fmt.Errorf("bundle trade %d: %w", id, ErrTooManyTrades)
		}
	}
	*b = BundleOf(ids...)
	return nil
}

// Prices maps trade ids to integer prices.
type Prices map[int]int64

// Clone returns an independent copy.
func (p Prices) Clone() Prices {
	out := make(Prices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same trades at the same prices.
func (p Prices) Equal(other Prices) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Sum returns the total of the prices of the trades in b.
func (p Prices) Sum(b Bundle) int64 {
	var total int64
	for _, t := range b.Trades() {
		total += p[t]
	}
	return total
}

// Offers holds one offer map per agent, indexed by agent id.
type Offers []Prices

// Clone returns a deep copy.
func (o Offers) Clone() Offers {
	out := make(Offers, len(o))
	for i, p := range o {
		out[i] = p.Clone()
	}
	return out
}

// StepRecord is one entry of a run's trajectory.
type StepRecord struct {
	Step        uint64 `json:"step"`
	Agent       int    `json:"agent"`
	Demanded    Bundle `json:"demanded"`
	Changed     Bundle `json:"changed"`
	Offers      Offers `json:"offers"`
	Unsatisfied []int  `json:"unsatisfied"`
}

// SortedAgents returns a sorted copy of ids.
func SortedAgents(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
