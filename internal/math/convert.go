package math

import (
	"errors"
	"math/big"
)

// ErrArithmeticOverflow is returned when a conversion result does not fit
// the settlement range (result <= 0 or > MaxInt64).
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// Price is a fixed-point scalar: Mantissa × 10^Exponent.
// Oracle quotes and the configured sale price share this shape.
type Price struct {
	Mantissa int64
	Exponent int32
}

// ConvertPayment computes how many sale-token base units a payment buys.
//
//	out = ⌊ amountIn · Qm · 10^Qe · 10^dOut / (10^dIn · Pm · 10^Pe) ⌋
//
// where (Qm, Qe) is the payment asset's USD quote, (Pm, Pe) the sale price
// in USD per whole sale token, and dIn/dOut the base-unit decimal scales.
// Truncates toward zero. Intermediates are exact (big.Int); only the final
// quotient is range-checked.
func ConvertPayment(amountIn int64, quote Price, salePrice Price, decimalsIn, decimalsOut int32) (int64, error) {
	if amountIn <= 0 || quote.Mantissa <= 0 || salePrice.Mantissa <= 0 {
		return 0, ErrArithmeticOverflow
	}

	// Fold the exponents to one side so both scale factors are non-negative:
	// numerator gains 10^(Qe - Pe + dOut - dIn) when positive, the
	// denominator gains the magnitude when negative.
	shift := quote.Exponent - salePrice.Exponent + decimalsOut - decimalsIn

	numerator := MulWide(amountIn, quote.Mantissa)
	denominator := getInt()
	denominator.SetInt64(salePrice.Mantissa)

	scale := getInt()
	if shift >= 0 {
		numerator.Mul(numerator, pow10(scale, shift))
	} else {
		denominator.Mul(denominator, pow10(scale, -shift))
	}

	quotient := DivTrunc(numerator, denominator)

	var err error
	var out int64
	if !quotient.IsInt64() {
		err = ErrArithmeticOverflow
	} else {
		out = quotient.Int64()
		if out <= 0 {
			err = ErrArithmeticOverflow
		}
	}

	putInt(numerator)
	putInt(denominator)
	putInt(scale)
	putInt(quotient)

	if err != nil {
		return 0, err
	}
	return out, nil
}

// WithinConfidence reports conf/|price| against a ratio bound expressed in
// basis points, as the exact comparison conf · 10_000 ≤ bound · |price|.
func WithinConfidence(priceMantissa int64, conf uint64, maxRatioBps int64) bool {
	if priceMantissa == 0 {
		return false
	}
	absPrice := priceMantissa
	if absPrice < 0 {
		absPrice = -absPrice
	}

	lhs := getInt()
	lhs.SetUint64(conf)
	lhs.Mul(lhs, big.NewInt(10_000))

	rhs := MulWide(maxRatioBps, absPrice)

	ok := lhs.Cmp(rhs) <= 0

	putInt(lhs)
	putInt(rhs)

	return ok
}
