package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is a valuation or utility outcome: either a finite integer amount
// or Infeasible. Infeasible compares below every finite value and absorbs
// arithmetic, so it can never be mistaken for a real low utility.
// The zero Value is Finite(0).
type Value struct {
	amount     int64
	infeasible bool
}

// Infeasible marks a bundle the agent cannot hold.
var Infeasible = Value{infeasible: true}

// Finite wraps an integer amount.
func Finite(amount int64) Value {
	return Value{amount: amount}
}

func (v Value) IsInfeasible() bool {
	return v.infeasible
}

// Amount returns the finite amount. It is 0 for Infeasible.
func (v Value) Amount() int64 {
	if v.infeasible {
		return 0
	}
	return v.amount
}

// Add shifts a finite value by delta.
func (v Value) Add(delta int64) Value {
	if v.infeasible {
		return v
	}
	return Value{amount: v.amount + delta}
}

// Plus sums two values.
func (v Value) Plus(other Value) Value {
	if v.infeasible || other.infeasible {
		return Infeasible
	}
	return Value{amount: v.amount + other.amount}
}

// Less orders values with Infeasible below everything.
func (v Value) Less(other Value) bool {
	switch {
	case v.infeasible:
		return !other.infeasible
	case other.infeasible:
		return false
	default:
		return v.amount < other.amount
	}
}

func (v Value) String() string {
	if v.infeasible {
		return "infeasible"
	}
	return strconv.FormatInt(v.amount, 10)
}

// MarshalJSON writes finite values as numbers and Infeasible as a string
func (v Value) MarshalJSON() ([]byte, error) {
	if v.infeasible {
		return []byte(`"infeasible"`), nil
	}
	return []byte(strconv.FormatInt(v.amount, 10)), nil
}

// UnmarshalJSON accepts a number or the string "infeasible"
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte(`"infeasible"`)) {
		*v = Infeasible
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Finite(n)
	return nil
}
