package handlers

import (
	"errors"
	"strings"

	"realestate/internal/money"

	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("invalid amount")

// parseAmountMinor accepts a JSON number or string in currency units.
func parseAmountMinor(raw decimal.Decimal) (int64, error) {
	amount, err := money.FromDecimal(raw)
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

// parseSignedAmountMinor is used for admin adjustments, which may debit.
func parseSignedAmountMinor(raw decimal.Decimal) (int64, error) {
	amount, err := money.FromDecimal(raw)
	if err != nil || amount == 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseOptionalAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	amount, err := money.ParseMinor(raw)
	if err != nil || amount < 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseBool(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1":
		value := true
		return &value, nil
	case "false", "0":
		value := false
		return &value, nil
	}
	return nil, errors.New("invalid boolean")
}
