package types

import (
	"math/big"
	"strings"
)

// Scale bridges the optimizer's float domain and big integer token amounts.
// Split fractions are stored as big integers scaled by this factor.
const Scale = 1000000

// Infinite is the sentinel for "input required is unbounded / path infeasible"
// in the inverse (buy-side) direction.
func Infinite() *big.Int {
	infinite, _ := new(big.Int).SetString("1000000000000000000000000000", 10)
	return infinite
}

// FromFloat64 converts a float to its scaled big integer representation.
// Non-positive values map to zero.
func FromFloat64(value float64) *big.Int {
	if value <= 0.0 {
		return big.NewInt(0)
	}
	return new(big.Int).SetUint64(uint64(value * Scale))
}

// ToFloat64 converts a scaled big integer back to the float domain.
func ToFloat64(value *big.Int) float64 {
	f, _ := new(big.Float).SetInt(value).Float64()
	return f / Scale
}

// tokenValue parses the hex suffix of a 0x-prefixed token address as a big
// integer. Tokens are always compared numerically, never as strings.
func tokenValue(token string) *big.Int {
	hex := strings.TrimPrefix(strings.ToLower(token), "0x")
	value, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return big.NewInt(0)
	}
	return value
}

// TokenLess reports whether token a orders before token b under the canonical
// hex-as-bigint ordering.
func TokenLess(a, b string) bool {
	return tokenValue(a).Cmp(tokenValue(b)) < 0
}

// NewPairKey returns the canonical pool key for two tokens: the numerically
// smaller address always comes first, so NewPairKey(a, b) == NewPairKey(b, a).
func NewPairKey(a, b string) PairKey {
	if TokenLess(a, b) {
		return PairKey{Token0: a, Token1: b}
	}
	return PairKey{Token0: b, Token1: a}
}
