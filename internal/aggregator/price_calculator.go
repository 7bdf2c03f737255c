package aggregator

import (
	"math/big"
)

// Uniform constant-product fee: 3/1000 (0.3%). The fee could be read from the
// pool record but the DEX charges a single protocol-wide fee, so constants
// keep the math easy to audit.
const (
	feeNumerator   = 3
	feeDenominator = 1000
)

// PriceCalculator implements the fee-aware constant-product swap math over
// arbitrary-precision reserves.
type PriceCalculator struct {
	feeNumerator   *big.Int
	feeDenominator *big.Int
}

func NewPriceCalculator() *PriceCalculator {
	return &PriceCalculator{
		feeNumerator:   big.NewInt(feeNumerator),
		feeDenominator: big.NewInt(feeDenominator),
	}
}

// GetAmountOut returns the output amount for amountIn against the ordered
// reserves (reserveIn, reserveOut), rounding down.
func (pc *PriceCalculator) GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	amountInWithFee := new(big.Int).Mul(amountIn, new(big.Int).Sub(pc.feeDenominator, pc.feeNumerator))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, pc.feeDenominator)
	denominator.Add(denominator, amountInWithFee)

	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}

	return numerator.Div(numerator, denominator)
}

// GetAmountIn returns the input amount required to receive amountOut from the
// ordered reserves (reserveIn, reserveOut), rounding up. It returns nil when
// amountOut meets or exceeds the output-side reserve, i.e. the trade is
// infeasible at any input size.
func (pc *PriceCalculator) GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil
	}

	numerator := new(big.Int).Mul(amountOut, reserveIn)
	numerator.Mul(numerator, pc.feeDenominator)

	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, new(big.Int).Sub(pc.feeDenominator, pc.feeNumerator))

	// (numerator + denominator - 1) / denominator rounds up
	amountIn := new(big.Int).Add(numerator, denominator)
	amountIn.Sub(amountIn, big.NewInt(1))
	return amountIn.Div(amountIn, denominator)
}
