package numerator

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPadWidth is the minimum width of the numeric part.
const DefaultPadWidth = 5

// Config holds invoice number formatting.
type Config struct {
	// Prefix added to all numbers (e.g., "INV")
	Prefix string

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:   prefix,
		PadWidth: DefaultPadWidth,
	}
}

// Format renders seq as PREFIX-00042.
func (c Config) Format(seq int64) string {
	padWidth := c.PadWidth
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}
	if c.Prefix == "" {
		return fmt.Sprintf("%0*d", padWidth, seq)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, padWidth, seq)
}

// ParseNumber extracts the numeric part of a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	digits := formatted
	if i := strings.LastIndex(formatted, "-"); i >= 0 {
		digits = formatted[i+1:]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
