package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON renders the amount as a bare decimal number:
//
//	{"price": 10.50}
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Major()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string:
//   - 10.5       → 1050
//   - "10.50"    → 1050
//
// Float forms round half-up past 2 decimal places.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("money: invalid JSON: %w", err)
	}

	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return fmt.Errorf("money: invalid JSON string: %w", err)
		}
		s = unquoted
	}

	parsed, err := FromMajorString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner. NUMERIC columns arrive from lib/pq as their
// decimal text representation.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case []byte:
		parsed, err := FromMajorString(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		parsed, err := FromMajorString(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		*a = Amount(v * 100)
		return nil
	case float64:
		parsed, err := FromMajorString(strconv.FormatFloat(v, 'f', -1, 64))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into Amount", ErrInvalidFormat, src)
	}
}

// Value implements driver.Valuer, rendering the decimal text that NUMERIC
// columns expect.
func (a Amount) Value() (driver.Value, error) {
	return a.Major(), nil
}
