package codec

import (
	"strconv"
	"strings"
)

// Text normalizes an optional text value at the storage boundary.
// Absent and empty are the same marshaled state: both become nil.
func Text(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	copied := *value
	return &copied
}

// TextFromString lifts a plain string into an optional, treating "" as absent.
func TextFromString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// StringOrEmpty flattens an optional string for tabular output.
func StringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// IntOrEmpty flattens an optional integer for tabular output.
func IntOrEmpty(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

// FloatOrEmpty flattens an optional real for tabular output.
func FloatOrEmpty(value *float64) string {
	if value == nil {
		return ""
	}
	return FormatFloat(*value)
}

// FormatFloat renders a real with the shortest exact representation and keeps
// a trailing ".0" on whole numbers so the column reads as a real.
func FormatFloat(value float64) string {
	formatted := strconv.FormatFloat(value, 'f', -1, 64)
	if strings.ContainsAny(formatted, ".eEnN") {
		return formatted
	}
	return formatted + ".0"
}
