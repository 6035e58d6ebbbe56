package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmountTolerance is the rounding tolerance for comparing money values.
// Amounts are stored as decimal(10,2), so anything under half a cent is
// treated as equal.
const AmountTolerance = 0.005

// ParseAmount parses a decimal money string as sent by the checkout UI.
func ParseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// Round2 rounds a money value to two decimal places using standard rounding.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// AmountsEqual reports whether two money values match within tolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) < AmountTolerance
}

// FormatAmount formats a money value with a thousands separator for
// human-facing log lines and notifications. Example: 15000.5 -> "15.000,50".
func FormatAmount(amount float64) string {
	formatted := fmt.Sprintf("%.2f", amount)

	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	var result []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{integerPart[start:i]}, result...)
	}

	return strings.Join(result, ".") + "," + decimalPart
}
