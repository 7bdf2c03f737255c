package aggregator

import (
	"math"
	"math/big"
	"sort"

	"github.com/udayj/dex-aggregator/internal/types"
)

// OptimizerParams collects the tuning knobs of the projected-gradient search.
// The hop penalty coefficients and the buy-side application direction are
// deliberately parameters rather than constants; see DESIGN.md for the
// buy-side penalty discussion.
type OptimizerParams struct {
	SellIterations int
	BuyIterations  int

	SellInitialStep float64
	BuyInitialStep  float64

	SellStepGrowth float64
	BuyStepGrowth  float64
	StepDecay      float64

	SellConvergence float64
	BuyConvergence  float64
	MinStep         float64

	GradientH float64

	// Per-hop penalty applied to each path's contribution beyond its first
	// hop, simulating the extra gas a longer route burns.
	SellHopPenaltyCoeff float64
	BuyHopPenaltyCoeff  float64
	// When true the buy-side penalty multiplicatively reduces a path's input
	// contribution, as the sell side does for output.
	BuyHopPenaltyReducesInput bool

	// Penalty proportional to the number of active routes in a split.
	GasPenaltyCoeff float64
	// Threshold below which a split component counts as inactive.
	ActiveSplitThreshold float64
}

// DefaultOptimizerParams returns the production parameter set.
func DefaultOptimizerParams() OptimizerParams {
	return OptimizerParams{
		SellIterations:            250,
		BuyIterations:             350,
		SellInitialStep:           0.1,
		BuyInitialStep:            0.5,
		SellStepGrowth:            1.2,
		BuyStepGrowth:             1.5,
		StepDecay:                 0.7,
		SellConvergence:           1e-10,
		BuyConvergence:            1e-16,
		MinStep:                   1e-10,
		GradientH:                 0.001,
		SellHopPenaltyCoeff:       0.002,
		BuyHopPenaltyCoeff:        0.002,
		BuyHopPenaltyReducesInput: true,
		GasPenaltyCoeff:           0.0001,
		ActiveSplitThreshold:      1e-10,
	}
}

// Optimizer distributes a total amount across candidate paths and converges
// on the split that maximizes output (sell side) or minimizes input (buy
// side). It owns a pool snapshot; every objective evaluation works on a fresh
// clone so that paths within one evaluation compete for liquidity while
// evaluations stay independent.
type Optimizer struct {
	paths       []TradePath
	pools       types.PoolMap
	totalAmount *big.Int
	params      OptimizerParams
}

// OptimizeAmountOut computes the best split of amountIn across the candidate
// paths and the total output it produces. With no candidate paths the result
// is (nil, 0).
func OptimizeAmountOut(paths []TradePath, pools types.PoolMap, amountIn *big.Int) ([]*big.Int, *big.Int) {
	return NewOptimizer(paths, pools, amountIn, DefaultOptimizerParams()).Optimize()
}

// OptimizeAmountIn computes the best split of amountOut across the candidate
// paths and the total input required. With no candidate paths or no feasible
// split the result is (nil, Infinite).
func OptimizeAmountIn(paths []TradePath, pools types.PoolMap, amountOut *big.Int) ([]*big.Int, *big.Int) {
	return NewOptimizer(paths, pools, amountOut, DefaultOptimizerParams()).OptimizeInput()
}

// NewOptimizer sorts the candidate paths by hop count ascending (so a direct
// route, when present, leads and receives the warm-start mass) and captures
// the pool snapshot.
func NewOptimizer(paths []TradePath, pools types.PoolMap, totalAmount *big.Int, params OptimizerParams) *Optimizer {
	sorted := make([]TradePath, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Tokens) < len(sorted[j].Tokens)
	})

	return &Optimizer{
		paths:       sorted,
		pools:       pools,
		totalAmount: new(big.Int).Set(totalAmount),
		params:      params,
	}
}

// Paths returns the candidate paths in optimizer order; returned splits are
// aligned with this ordering.
func (o *Optimizer) Paths() []TradePath {
	return o.paths
}

// calculateOutput evaluates the sell-side objective for a split vector: the
// penalized total output, in the float domain.
func (o *Optimizer) calculateOutput(splits []float64) float64 {
	totalOutput := big.NewInt(0)

	activeSplits := 0
	for _, split := range splits {
		if split > o.params.ActiveSplitThreshold {
			activeSplits++
		}
	}

	tempPools := o.pools.Clone()
	for i, split := range splits {
		if split <= 0.0 {
			continue
		}

		amountIn := new(big.Int).Mul(o.totalAmount, types.FromFloat64(split))
		amountIn.Div(amountIn, types.FromFloat64(1.0))

		if amountIn.Sign() > 0 {
			amountOut := o.paths[i].GetAmountOut(amountIn, tempPools)
			hopPenalty := 1.0 - o.params.SellHopPenaltyCoeff*(float64(o.paths[i].Hops())-1.0)

			amountOut.Mul(amountOut, types.FromFloat64(hopPenalty))
			amountOut.Div(amountOut, types.FromFloat64(1.0))
			totalOutput.Add(totalOutput, amountOut)
		}
	}

	gasPenalty := 1.0 - o.params.GasPenaltyCoeff*(float64(activeSplits)-1.0)
	totalOutput.Mul(totalOutput, types.FromFloat64(gasPenalty))
	totalOutput.Div(totalOutput, types.FromFloat64(1.0))

	return types.ToFloat64(totalOutput.Mul(totalOutput, big.NewInt(types.Scale)))
}

// calculateInput evaluates the buy-side objective for a split vector. The
// returned scalar is the reciprocal of the penalized total input, so that
// ascent on it minimizes the input; an infeasible split scores 0.
func (o *Optimizer) calculateInput(splits []float64) float64 {
	totalInput := big.NewInt(0)

	activeSplits := 0
	for _, split := range splits {
		if split > o.params.ActiveSplitThreshold {
			activeSplits++
		}
	}

	tempPools := o.pools.Clone()
	for i, split := range splits {
		if split <= 0.0 {
			continue
		}

		amountOut := new(big.Int).Mul(o.totalAmount, types.FromFloat64(split))
		amountOut.Div(amountOut, types.FromFloat64(1.0))

		if amountOut.Sign() > 0 {
			amountIn := o.paths[i].GetAmountIn(amountOut, tempPools)
			if amountIn == nil {
				return 0.0
			}
			hopPenalty := o.params.BuyHopPenaltyCoeff * (float64(o.paths[i].Hops()) - 1.0)
			factor := 1.0 - hopPenalty
			if !o.params.BuyHopPenaltyReducesInput {
				factor = 1.0 + hopPenalty
			}

			amountIn.Mul(amountIn, types.FromFloat64(factor))
			amountIn.Div(amountIn, types.FromFloat64(1.0))
			totalInput.Add(totalInput, amountIn)
		}
	}

	gasPenalty := 1.0 - o.params.GasPenaltyCoeff*(float64(activeSplits)-1.0)
	totalInput.Mul(totalInput, types.FromFloat64(gasPenalty))
	totalInput.Div(totalInput, types.FromFloat64(1.0))

	return 1.0 / types.ToFloat64(totalInput.Mul(totalInput, big.NewInt(types.Scale)))
}

// calculateMaxOutputs probes each path's liquidity for the buy-side warm
// start.
func (o *Optimizer) calculateMaxOutputs() []float64 {
	outputs := make([]float64, len(o.paths))
	for i := range o.paths {
		maxOut := o.paths[i].GetMaxAmountOut(o.pools)
		outputs[i] = types.ToFloat64(maxOut.Mul(maxOut, big.NewInt(types.Scale)))
	}
	return outputs
}

// projectOntoSimplex clamps negative components to zero and renormalizes the
// vector to sum to one. A zero vector resets to the uniform split. This is an
// l1 projection along the positive ray, not a Euclidean projection; the
// search is already bounded so the cheap variant suffices.
func (o *Optimizer) projectOntoSimplex(splits []float64) []float64 {
	sum := 0.0
	for i, split := range splits {
		if split < 0.0 {
			splits[i] = 0.0
		}
		sum += splits[i]
	}

	if sum > 0.0 {
		for i := range splits {
			splits[i] /= sum
		}
	} else {
		n := float64(len(splits))
		for i := range splits {
			splits[i] = 1.0 / n
		}
	}

	return splits
}

// calculateGradient computes the forward-difference gradient of the objective
// on the simplex, then L2-normalizes it to keep step sizes tame.
func (o *Optimizer) calculateGradient(splits []float64, objective func([]float64) float64) []float64 {
	n := len(splits)
	grad := make([]float64, n)
	h := o.params.GradientH

	baseValue := objective(splits)

	for i := 0; i < n; i++ {
		splitsPlusH := make([]float64, n)
		copy(splitsPlusH, splits)
		// Perturb one component and rebalance the rest to stay near the
		// simplex before projecting
		splitsPlusH[i] += h
		for j := 0; j < n; j++ {
			if j != i {
				splitsPlusH[j] -= h / float64(n-1)
			}
		}
		splitsPlusH = o.projectOntoSimplex(splitsPlusH)
		grad[i] = (objective(splitsPlusH) - baseValue) / h
	}

	gradNorm := l2Norm(grad)
	if gradNorm > 1e-10 {
		for i := range grad {
			grad[i] /= gradNorm
		}
	}

	return grad
}

// Optimize runs the sell-side projected gradient ascent and returns the split
// fractions (scaled by types.Scale) and the total output of the final
// reconstruction.
func (o *Optimizer) Optimize() ([]*big.Int, *big.Int) {
	nPaths := len(o.paths)
	if nPaths == 0 {
		return nil, big.NewInt(0)
	}

	// Warm start: all mass on the shortest direct route when one exists,
	// uniform otherwise
	splits := make([]float64, nPaths)
	foundDirectPath := false
	for i, path := range o.paths {
		if len(path.Tokens) == 2 {
			splits[i] = 1.0
			foundDirectPath = true
			break
		}
	}
	if !foundDirectPath {
		for i := range splits {
			splits[i] = 1.0 / float64(nPaths)
		}
	}

	stepSize := o.params.SellInitialStep
	bestSplits := make([]float64, nPaths)
	copy(bestSplits, splits)
	bestOutput := o.calculateOutput(splits)

	for iter := 0; iter < o.params.SellIterations; iter++ {
		gradient := o.calculateGradient(splits, o.calculateOutput)

		if l2Norm(gradient) < o.params.SellConvergence {
			break
		}

		newSplits := make([]float64, nPaths)
		for i := range splits {
			newSplits[i] = splits[i] + stepSize*gradient[i]
		}
		newSplits = o.projectOntoSimplex(newSplits)

		newOutput := o.calculateOutput(newSplits)
		if newOutput > bestOutput {
			bestOutput = newOutput
			copy(bestSplits, newSplits)
			splits = newSplits
			stepSize *= o.params.SellStepGrowth
		} else {
			stepSize *= o.params.StepDecay
			if stepSize < o.params.MinStep {
				break
			}
		}
	}

	// Final reconstruction against a single shared clone so parallel routes
	// compete for liquidity exactly as they would on chain
	bigSplits := make([]*big.Int, nPaths)
	for i, split := range bestSplits {
		bigSplits[i] = types.FromFloat64(split)
	}

	tempPools := o.pools.Clone()
	finalOutput := big.NewInt(0)
	for i, split := range bigSplits {
		amountIn := new(big.Int).Mul(o.totalAmount, split)
		amountIn.Div(amountIn, types.FromFloat64(1.0))
		finalOutput.Add(finalOutput, o.paths[i].GetAmountOut(amountIn, tempPools))
	}

	return bigSplits, finalOutput
}

// OptimizeInput runs the buy-side search: gradient ascent on the reciprocal
// of total input. Returns the split fractions (scaled by types.Scale) and the
// total input of the final reconstruction; (nil, Infinite) when no feasible
// split exists.
func (o *Optimizer) OptimizeInput() ([]*big.Int, *big.Int) {
	nPaths := len(o.paths)
	if nPaths == 0 {
		return nil, types.Infinite()
	}

	// Warm start in proportion to the liquidity along each path
	maxOutputs := o.calculateMaxOutputs()
	normalizer := 0.0
	for _, output := range maxOutputs {
		normalizer += output
	}
	splits := make([]float64, nPaths)
	if normalizer > 0.0 {
		for i, output := range maxOutputs {
			splits[i] = output / normalizer
		}
	} else {
		for i := range splits {
			splits[i] = 1.0 / float64(nPaths)
		}
	}

	stepSize := o.params.BuyInitialStep
	bestSplits := make([]float64, nPaths)
	copy(bestSplits, splits)
	bestInput := o.calculateInput(splits)

	for iter := 0; iter < o.params.BuyIterations; iter++ {
		gradient := o.calculateGradient(splits, o.calculateInput)

		if l2Norm(gradient) < o.params.BuyConvergence {
			break
		}

		newSplits := make([]float64, nPaths)
		for i := range splits {
			newSplits[i] = splits[i] + stepSize*gradient[i]
		}
		newSplits = o.projectOntoSimplex(newSplits)

		newInput := o.calculateInput(newSplits)
		if newInput > bestInput {
			bestInput = newInput
			copy(bestSplits, newSplits)
			splits = newSplits
			stepSize *= o.params.BuyStepGrowth
		} else {
			stepSize *= o.params.StepDecay
			if stepSize < o.params.MinStep {
				break
			}
		}
	}

	if bestInput == 0.0 {
		return nil, types.Infinite()
	}

	bigSplits := make([]*big.Int, nPaths)
	for i, split := range bestSplits {
		bigSplits[i] = types.FromFloat64(split)
	}

	tempPools := o.pools.Clone()
	finalInput := big.NewInt(0)
	for i, split := range bigSplits {
		amountOut := new(big.Int).Mul(o.totalAmount, split)
		amountOut.Div(amountOut, types.FromFloat64(1.0))
		amountIn := o.paths[i].GetAmountIn(amountOut, tempPools)
		if amountIn == nil {
			amountIn = types.Infinite()
		}
		finalInput.Add(finalInput, amountIn)
	}

	return bigSplits, finalInput
}

func l2Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
