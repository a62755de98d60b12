// Package amount converts user-entered native amounts into the integer units
// submitted on-chain.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the scale of ETH (wei).
	NativeDecimals int32 = 18

	// DefaultConversionRate mirrors the bridge contract's ETH -> IBT rate.
	DefaultConversionRate int64 = 1000

	maxUint256Bits = 256

	// maxUint256Digits is the decimal length of the largest uint256.
	maxUint256Digits = 78

	// maxAmountLen covers a full uint256 with 18 fractional digits,
	// sign, point and exponent.
	maxAmountLen = 128
)

var (
	ErrEmpty       = errors.New("amount is empty")
	ErrNotPositive = errors.New("amount must be positive")
	ErrTooPrecise  = errors.New("amount has more fractional digits than the native unit")
	ErrOutOfRange  = errors.New("amount exceeds uint256")
	ErrTooLong     = errors.New("amount string is too long")
)

// ParseNative parses a decimal string into the smallest native unit.
func ParseNative(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}
	if len(s) > maxAmountLen {
		return nil, ErrTooLong
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return nil, ErrNotPositive
	}
	// Bound the exponent both ways before shifting: "1e999999999" and
	// "1e-999999999" would otherwise build huge powers of ten.
	if d.Exponent() > maxUint256Bits {
		return nil, ErrOutOfRange
	}
	if int64(d.Exponent()) < -int64(decimals)-maxUint256Digits {
		return nil, ErrTooPrecise
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooPrecise
	}

	n := scaled.BigInt()
	if n.BitLen() > maxUint256Bits {
		return nil, ErrOutOfRange
	}
	return n, nil
}

// ToBridgeToken applies the fixed conversion rate with integer arithmetic.
func ToBridgeToken(native *big.Int, rate int64) (*big.Int, error) {
	if native == nil || native.Sign() <= 0 {
		return nil, ErrNotPositive
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid conversion rate %d", rate)
	}

	out := new(big.Int).Mul(native, big.NewInt(rate))
	if out.BitLen() > maxUint256Bits {
		return nil, ErrOutOfRange
	}
	return out, nil
}

// FormatNative renders a smallest-unit amount back into a decimal string.
func FormatNative(n *big.Int, decimals int32) string {
	if n == nil {
		return "0"
	}
	return decimal.NewFromBigInt(n, -decimals).String()
}
