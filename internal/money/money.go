package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// Scale is the number of minor-unit digits. Wallet balances, deposits and
// fees are all int64 minor units.
const Scale = 2

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// ParseMinor accepts plain decimal notation ("10000", "-25.5", ".75").
// Exponents, thousands separators and more than two fractional digits are
// rejected.
func ParseMinor(input string) (int64, error) {
	body := strings.TrimSpace(input)
	sign := ""
	if body != "" && (body[0] == '-' || body[0] == '+') {
		if body[0] == '-' {
			sign = "-"
		}
		body = body[1:]
	}
	whole, frac, hasDot := strings.Cut(body, ".")
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if !isDigits(whole) || (hasDot && (frac == "" || !isDigits(frac))) {
		return 0, ErrInvalidAmount
	}
	if len(frac) > Scale {
		return 0, ErrTooManyDecimals
	}
	if whole == "" {
		whole = "0"
	}
	amount, err := decimal.NewFromString(sign + whole + "." + frac + "0")
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(amount)
}

// FormatMinor renders minor units with exactly two decimals, e.g. 1000050 -> "10000.50".
func FormatMinor(value int64) string {
	return ToDecimal(value).StringFixed(Scale)
}

// FromDecimal converts a decimal amount in currency units to minor units.
// More than two fractional digits is rejected rather than rounded.
func FromDecimal(amount decimal.Decimal) (int64, error) {
	if !amount.Equal(amount.Round(Scale)) {
		return 0, ErrTooManyDecimals
	}
	minor := amount.Shift(Scale)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
