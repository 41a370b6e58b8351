package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Amount represents a monetary amount in minor units (cents).
// All arithmetic is performed on int64 to avoid floating-point precision
// issues; prices and totals round to 2 decimal places.
//
// Examples:
//   - $10.50 = Amount(1050)
//   - $0.99  = Amount(99)
type Amount int64

// decimals is the minor-unit precision for all amounts.
const decimals = 2

var (
	// ErrOverflow occurs when an operation would exceed int64 capacity.
	ErrOverflow = errors.New("money: arithmetic overflow")

	// ErrInvalidFormat occurs when parsing fails.
	ErrInvalidFormat = errors.New("money: invalid format")

	// ErrDivisionByZero occurs when dividing by zero.
	ErrDivisionByZero = errors.New("money: division by zero")
)

// Zero is the zero amount.
const Zero Amount = 0

// FromMinor creates an Amount from minor units (cents).
func FromMinor(minor int64) Amount {
	return Amount(minor)
}

// FromMajorString parses a major-unit decimal string (e.g. "10.50").
// Fractional digits beyond 2 places round half-up.
//
// Examples:
//   - FromMajorString("10.50")  → 1050
//   - FromMajorString("1.005")  → 101
func FromMajorString(major string) (Amount, error) {
	s := strings.TrimSpace(major)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidFormat)
	}

	negative := false
	if s[0] == '+' || s[0] == '-' {
		negative = s[0] == '-'
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: too many decimal points", ErrInvalidFormat)
	}

	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}
	if integerPart == "" && fractionalPart == "" {
		return 0, fmt.Errorf("%w: no digits", ErrInvalidFormat)
	}
	if integerPart == "" {
		integerPart = "0"
	}

	integerVal, err := strconv.ParseInt(integerPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	// Fractional digits with half-up rounding past the minor precision.
	var minorFromFraction int64
	if fractionalPart != "" {
		if len(fractionalPart) > decimals {
			roundDigit := fractionalPart[decimals]
			if roundDigit < '0' || roundDigit > '9' {
				return 0, fmt.Errorf("%w: non-digit in fraction", ErrInvalidFormat)
			}
			head := fractionalPart[:decimals]
			parsed, perr := strconv.ParseInt(head, 10, 64)
			if perr != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, perr)
			}
			minorFromFraction = parsed
			if roundDigit >= '5' {
				minorFromFraction++
			}
		} else {
			padded := fractionalPart + strings.Repeat("0", decimals-len(fractionalPart))
			parsed, perr := strconv.ParseInt(padded, 10, 64)
			if perr != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, perr)
			}
			minorFromFraction = parsed
		}
	}

	multiplier := int64(math.Pow10(decimals))
	if integerVal > math.MaxInt64/multiplier {
		return 0, ErrOverflow
	}

	total := integerVal*multiplier + minorFromFraction
	if negative {
		total = -total
	}
	return Amount(total), nil
}

// Minor returns the amount in minor units.
func (a Amount) Minor() int64 {
	return int64(a)
}

// Major renders the amount as a decimal string with 2 fractional digits.
//
// Examples:
//   - Amount(1050).Major() → "10.50"
//   - Amount(-99).Major()  → "-0.99"
func (a Amount) Major() string {
	minor := int64(a)
	negative := minor < 0
	if negative {
		minor = -minor
	}

	divisor := int64(math.Pow10(decimals))
	integerPart := minor / divisor
	fractionalPart := minor % divisor

	var buf strings.Builder
	if negative {
		buf.WriteByte('-')
	}
	buf.WriteString(strconv.FormatInt(integerPart, 10))
	buf.WriteByte('.')
	if fractionalPart < 10 {
		buf.WriteByte('0')
	}
	buf.WriteString(strconv.FormatInt(fractionalPart, 10))
	return buf.String()
}

// Add returns the sum of two amounts.
// Returns an error if the result would overflow.
func (a Amount) Add(other Amount) (Amount, error) {
	result := int64(a) + int64(other)
	if (result > int64(a)) != (other > 0) {
		return 0, ErrOverflow
	}
	return Amount(result), nil
}

// Sub returns the difference of two amounts.
func (a Amount) Sub(other Amount) (Amount, error) {
	result := int64(a) - int64(other)
	if (result < int64(a)) != (other > 0) {
		return 0, ErrOverflow
	}
	return Amount(result), nil
}

// MulQty multiplies a unit price by a quantity.
func (a Amount) MulQty(qty int64) (Amount, error) {
	if qty == 0 || a == 0 {
		return 0, nil
	}

	// Check for overflow using big.Int
	bigResult := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(qty))
	if !bigResult.IsInt64() {
		return 0, ErrOverflow
	}
	return Amount(bigResult.Int64()), nil
}

// Div divides the amount by an integer divisor.
// Uses half-up rounding for remainders.
func (a Amount) Div(divisor int64) (Amount, error) {
	if divisor == 0 {
		return 0, ErrDivisionByZero
	}

	quotient := int64(a) / divisor
	remainder := int64(a) % divisor

	// Half-up rounding
	if remainder*2 >= divisor {
		quotient++
	} else if remainder*2 <= -divisor {
		quotient--
	}
	return Amount(quotient), nil
}

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

// IsZero returns true if the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// String returns a human-readable representation.
// Example: Amount(1050) → "10.50"
func (a Amount) String() string {
	return a.Major()
}
