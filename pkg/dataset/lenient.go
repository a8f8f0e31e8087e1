package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that decodes from anything. JSON numbers and numeric
// strings are parsed; null, booleans, objects, arrays, unparsable strings
// and non-finite values all decode to 0. It never returns a decode error.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var raw string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		raw = string(data)
	default:
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Flag is a bool that decodes from anything using truthiness: true, non-zero
// numbers and non-empty strings other than "false" and "0" are true.
// Plain truthiness would read the strings "false" and "0" as true; they are
// treated as false so stringly-typed exports keep their meaning.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = false
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case float64:
		*f = Flag(t != 0 && !math.IsNaN(t))
	case string:
		*f = t != "" && t != "false" && t != "0"
	case map[string]any, []any:
		*f = true
	}
	return nil
}

// Text is a string that decodes from strings and numbers. Anything else
// decodes to "".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch s := v.(type) {
	case string:
		*t = Text(s)
	case float64:
		*t = Text(strconv.FormatFloat(s, 'f', -1, 64))
	}
	return nil
}

func (t Text) String() string { return string(t) }
