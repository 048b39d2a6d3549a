package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexInt is an integer that decodes from either a JSON number or a
// string-encoded number. The ladder and profile endpoints are not consistent
// about which one they send, and some fields arrive as "1234" or "12.0".
type FlexInt int64

// UnmarshalJSON implements flexible number decoding. null and "" decode to 0.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	// Fast path: native number
	if data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("flex int: %w", err)
		}
		return f.parse(string(n))
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flex int: %w", err)
	}
	if s == "" {
		*f = 0
		return nil
	}
	return f.parse(s)
}

func (f *FlexInt) parse(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}
	// ParseFloat handles "28.5" → truncate to int
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flex int: cannot coerce %q", s)
	}
	*f = FlexInt(int64(n))
	return nil
}

// Int returns the value as an int.
func (f FlexInt) Int() int { return int(f) }

// IntPtr returns nil for a nil FlexInt pointer, otherwise the int value.
func IntPtr(f *FlexInt) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
