package math

import (
	"math/big"
	"sync"
)

// Pooled big.Int for wide intermediate calculations. Conversion math
// multiplies three int64-scale terms before dividing, which can exceed
// 64 bits; all intermediates live in big.Int and only the final quotient
// is narrowed back.
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	intPool.Put(v)
}

var bigTen = big.NewInt(10)

// pow10 sets dst to 10^exp (exp >= 0) and returns it
func pow10(dst *big.Int, exp int32) *big.Int {
	return dst.Exp(bigTen, big.NewInt(int64(exp)), nil)
}

// MulWide performs a * b without overflow
func MulWide(a, b int64) *big.Int {
	result := getInt()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivTrunc performs numerator / denominator truncating toward zero.
// Both operands are returned to the pool by the caller.
func DivTrunc(numerator, denominator *big.Int) *big.Int {
	quotient := getInt()
	quotient.Quo(numerator, denominator)
	return quotient
}
