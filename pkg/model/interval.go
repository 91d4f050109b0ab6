package model

import (
	"fmt"
	"strconv"
)

// AttributeID identifies a node in the interval store's attribute tree.
type AttributeID int

// RootAttribute is the implicit parent of top-level attributes.
const RootAttribute AttributeID = -1

// Interval is one [Start, End] state of an attribute. A nil Value means no
// state was active during the range.
type Interval struct {
	Attribute AttributeID `json:"attribute"`
	Start     int64       `json:"start"`
	End       int64       `json:"end"`
	Value     any         `json:"value"`
}

// IsNull reports whether the interval carries no value.
func (iv Interval) IsNull() bool {
	return iv.Value == nil
}

// Range returns the interval's time range.
func (iv Interval) Range() TimeRange {
	return TimeRange{Start: iv.Start, End: iv.End}
}

// IntegerValue returns the value as an int64 when it holds any integer kind,
// or an integral float coming from a JSON document.
func IntegerValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// FormatValue renders a state value for storage and display.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(n)
	}
}
