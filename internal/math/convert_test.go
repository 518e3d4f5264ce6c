package math_test

import (
	"errors"
	"testing"

	fpmath "ScySettle/internal/math"
)

// ============================================================================
// Test: ConvertPayment
// ============================================================================

func TestConvertPayment_ReferenceExample(t *testing.T) {
	// 0.01 units of an 8-decimal payment asset quoted at $50,000, sale
	// price $0.01, zero-decimal sale token: exactly 50,000 units out.
	out, err := fpmath.ConvertPayment(
		1_000_000,
		fpmath.Price{Mantissa: 5_000_000, Exponent: -2},
		fpmath.Price{Mantissa: 1, Exponent: -2},
		8, 0)
	if err != nil {
		t.Fatalf("ConvertPayment: %v", err)
	}
	if out != 50_000 {
		t.Errorf("out = %d, want 50000", out)
	}
}

func TestConvertPayment_NativePurchase(t *testing.T) {
	// 1 SOL (1e9 lamports, 9 decimals) at $200, sale price $0.02, 6-decimal
	// sale token: $200 / $0.02 = 10,000 whole tokens = 1e10 base units.
	out, err := fpmath.ConvertPayment(
		1_000_000_000,
		fpmath.Price{Mantissa: 20_000_000_000, Exponent: -8},
		fpmath.Price{Mantissa: 2, Exponent: -2},
		9, 6)
	if err != nil {
		t.Fatalf("ConvertPayment: %v", err)
	}
	if out != 10_000_000_000 {
		t.Errorf("out = %d, want 10000000000", out)
	}
}

func TestConvertPayment_StablecoinPurchase(t *testing.T) {
	// 100 USDC (6 decimals) at $0.9999, sale price $0.02:
	// 99.99 / 0.02 = 4999.5 whole tokens = 4_999_500_000 base units.
	out, err := fpmath.ConvertPayment(
		100_000_000,
		fpmath.Price{Mantissa: 99_990_000, Exponent: -8},
		fpmath.Price{Mantissa: 2, Exponent: -2},
		6, 6)
	if err != nil {
		t.Fatalf("ConvertPayment: %v", err)
	}
	if out != 4_999_500_000 {
		t.Errorf("out = %d, want 4999500000", out)
	}
}

func TestConvertPayment_TruncatesTowardZero(t *testing.T) {
	// 3 lamports at $1, sale price $0.07, equal decimals:
	// 3 / 0.07 = 42.857… truncates to 42.
	out, err := fpmath.ConvertPayment(
		3,
		fpmath.Price{Mantissa: 1, Exponent: 0},
		fpmath.Price{Mantissa: 7, Exponent: -2},
		0, 0)
	if err != nil {
		t.Fatalf("ConvertPayment: %v", err)
	}
	if out != 42 {
		t.Errorf("out = %d, want 42 (truncated)", out)
	}
}

func TestConvertPayment_DustRoundsToZero(t *testing.T) {
	// A payment too small to buy a single base unit fails overflow: a buy
	// must never deliver zero tokens against a non-zero payment.
	_, err := fpmath.ConvertPayment(
		1,
		fpmath.Price{Mantissa: 1, Exponent: -8},
		fpmath.Price{Mantissa: 2, Exponent: -2},
		9, 0)
	if !errors.Is(err, fpmath.ErrArithmeticOverflow) {
		t.Errorf("err = %v, want ErrArithmeticOverflow", err)
	}
}

func TestConvertPayment_ResultOverflowsInt64(t *testing.T) {
	_, err := fpmath.ConvertPayment(
		1<<62,
		fpmath.Price{Mantissa: 1 << 40, Exponent: 0},
		fpmath.Price{Mantissa: 1, Exponent: 0},
		0, 0)
	if !errors.Is(err, fpmath.ErrArithmeticOverflow) {
		t.Errorf("err = %v, want ErrArithmeticOverflow", err)
	}
}

func TestConvertPayment_RejectsNonPositiveInputs(t *testing.T) {
	cases := []struct {
		name      string
		amountIn  int64
		quoteM    int64
		salePrice int64
	}{
		{"zero amount", 0, 100, 1},
		{"negative amount", -5, 100, 1},
		{"zero quote", 100, 0, 1},
		{"negative quote", 100, -100, 1},
		{"zero sale price", 100, 100, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fpmath.ConvertPayment(
				tc.amountIn,
				fpmath.Price{Mantissa: tc.quoteM, Exponent: 0},
				fpmath.Price{Mantissa: tc.salePrice, Exponent: 0},
				0, 0)
			if !errors.Is(err, fpmath.ErrArithmeticOverflow) {
				t.Errorf("err = %v, want ErrArithmeticOverflow", err)
			}
		})
	}
}

func TestConvertPayment_LargeIntermediatesAreExact(t *testing.T) {
	// Intermediates exceed 64 bits but the final quotient fits.
	out, err := fpmath.ConvertPayment(
		1_000_000_000_000_000,
		fpmath.Price{Mantissa: 9_999_999_999, Exponent: -9},
		fpmath.Price{Mantissa: 1, Exponent: 0},
		0, 0)
	if err != nil {
		t.Fatalf("ConvertPayment: %v", err)
	}
	// 1e15 * 9999999999 / 1e9 = 9_999_999_999_000_000
	if out != 9_999_999_999_000_000 {
		t.Errorf("out = %d, want 9999999999000000", out)
	}
}

// ============================================================================
// Test: WithinConfidence
// ============================================================================

func TestWithinConfidence(t *testing.T) {
	cases := []struct {
		name   string
		price  int64
		conf   uint64
		bps    int64
		within bool
	}{
		{"well within", 1_000_000, 100, 200, true},
		{"exactly at bound", 1_000_000, 20_000, 200, true},
		{"just over bound", 1_000_000, 20_001, 200, false},
		{"zero conf", 1_000_000, 0, 200, true},
		{"zero price", 0, 1, 200, false},
		{"negative price uses magnitude", -1_000_000, 100, 200, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fpmath.WithinConfidence(tc.price, tc.conf, tc.bps)
			if got != tc.within {
				t.Errorf("WithinConfidence(%d, %d, %d) = %v, want %v",
					tc.price, tc.conf, tc.bps, got, tc.within)
			}
		})
	}
}
