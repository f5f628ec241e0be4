// Package valuation implements the per-agent combinatorial valuations and
// their demand oracles. A Spec is a tagged description of one valuation
// kind; binding it to an agent's incident trades yields a Valuation.
package valuation

import (
	"fmt"
	"strings"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// Kind tags the known valuation families.
type Kind int8

const (
	KindUnit Kind = iota
	KindIntermediary
	KindTwoTrade
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindIntermediary:
		return "intermediary"
	case KindTwoTrade:
		return "two_trade"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// MarshalText serializes Kind as its name for JSON and YAML
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText deserializes Kind from its name
func (k *Kind) UnmarshalText(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "unit":
		*k = KindUnit
	case "intermediary":
		*k = KindIntermediary
	case "two_trade", "twotrade":
		*k = KindTwoTrade
	case "table":
		*k = KindTable
	default:
		return fmt.Errorf("%q: %w", string(data), domain.ErrUnknownKind)
	}
	return nil
}

// Valuation is the capability every bound valuation provides.
type Valuation interface {
	Kind() Kind
	Incidence() domain.Incidence

	// Value returns the valuation of a bundle of the agent's own trades.
	// Bundles with foreign trades return domain.ErrForeignTrade.
	Value(b domain.Bundle) (domain.Value, error)

	// Demand returns a utility-maximising bundle at the given prices for
	// the agent's incident trades.
	Demand(prices domain.Prices) (domain.Bundle, error)
}

// Corner is a point of the two-trade indifference staircase, in signed
// payment coordinates (χ·price) of the lower and higher trade id.
type Corner struct {
	X int64 `json:"x" yaml:"x"`
	Y int64 `json:"y" yaml:"y"`
}

// TableEntry assigns a value to one explicit bundle.
type TableEntry struct {
	Trades []int `json:"trades" yaml:"trades"`
	Value  int64 `json:"value" yaml:"value"`
}

// Spec describes one agent's valuation. Only the fields of its Kind are read.
type Spec struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Unit: value of holding each single trade.
	Values map[int]int64 `json:"values,omitempty" yaml:"values,omitempty"`

	// TwoTrade: upper corner (v{a}, v{b}) and lower corner
	// (v{ab}-v{b}, v{ab}-v{a}).
	Upper Corner `json:"upper,omitempty" yaml:"upper,omitempty"`
	Lower Corner `json:"lower,omitempty" yaml:"lower,omitempty"`

	// Table: explicit bundle values; unlisted bundles are infeasible.
	Table []TableEntry `json:"table,omitempty" yaml:"table,omitempty"`
}

// Unit describes a unit-demand valuation with a value per trade.
func Unit(values map[int]int64) Spec {
	return Spec{Kind: KindUnit, Values: values}
}

// Intermediary describes a flow-balance valuation.
func Intermediary() Spec {
	return Spec{Kind: KindIntermediary}
}

// TwoTrade describes a piecewise-linear valuation over exactly two trades.
func TwoTrade(upper, lower Corner) Spec {
	return Spec{Kind: KindTwoTrade, Upper: upper, Lower: lower}
}

// Table describes an explicit valuation table.
func Table(entries ...TableEntry) Spec {
	return Spec{Kind: KindTable, Table: entries}
}

// Build binds the parameters to an agent's incident trades.
func (s Spec) Build(inc domain.Incidence) (Valuation, error) {
	switch s.Kind {
	case KindUnit:
		return newUnit(inc, s.Values)
	case KindIntermediary:
		return &intermediary{inc: inc}, nil
	case KindTwoTrade:
		return newTwoTrade(inc, s.Upper, s.Lower)
	case KindTable:
		return newTable(inc, s.Table)
	default:
		return nil, fmt.Errorf("agent %d kind %d: %w", inc.Agent, s.Kind, domain.ErrUnknownKind)
	}
}
