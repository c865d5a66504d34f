package utils

import "fmt"

// Constant product AMM math (x * y = k) for quoting Raydium style pools.

// AmountOut returns how much of the output reserve a swap of amountIn
// yields after the pool fee. feeRate is a fraction, e.g. 0.0025.
func AmountOut(amountIn, reserveIn, reserveOut, feeRate float64) (float64, error) {
	if amountIn <= 0 {
		return 0, fmt.Errorf("amount in must be positive")
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return 0, fmt.Errorf("pool reserves must be positive")
	}
	if feeRate < 0 || feeRate >= 1 {
		return 0, fmt.Errorf("fee rate out of range: %f", feeRate)
	}

	effectiveIn := amountIn * (1 - feeRate)
	return reserveOut * effectiveIn / (reserveIn + effectiveIn), nil
}

// AmountIn returns how much input is needed to receive amountOut.
func AmountIn(amountOut, reserveIn, reserveOut, feeRate float64) (float64, error) {
	if amountOut <= 0 {
		return 0, fmt.Errorf("amount out must be positive")
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return 0, fmt.Errorf("pool reserves must be positive")
	}
	if amountOut >= reserveOut {
		return 0, fmt.Errorf("amount out %f exceeds pool reserve %f", amountOut, reserveOut)
	}
	if feeRate < 0 || feeRate >= 1 {
		return 0, fmt.Errorf("fee rate out of range: %f", feeRate)
	}

	return reserveIn * amountOut / ((reserveOut - amountOut) * (1 - feeRate)), nil
}

// PriceImpactPct returns the relative price degradation of a swap versus
// the pool's spot price, as a fraction (0.1 = 10%).
func PriceImpactPct(amountIn, reserveIn, reserveOut, feeRate float64) (float64, error) {
	out, err := AmountOut(amountIn, reserveIn, reserveOut, feeRate)
	if err != nil {
		return 0, err
	}

	spotPrice := reserveOut / reserveIn
	executionPrice := out / amountIn
	return 1 - executionPrice/spotPrice, nil
}
