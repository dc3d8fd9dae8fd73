package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidByteSize is returned when a human-readable size cannot be parsed.
var ErrInvalidByteSize = errors.New("invalid size")

const errorInvalidByteSizeFormat = "%w '%s': use a format like 500kb, 2mb, or 2.5mb"

var byteSizeMultipliers = []struct {
	suffix     string
	multiplier float64
}{
	{suffix: "gb", multiplier: 1024 * 1024 * 1024},
	{suffix: "mb", multiplier: 1024 * 1024},
	{suffix: "kb", multiplier: 1024},
	{suffix: "b", multiplier: 1},
}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0b"
	}
	units := []string{"b", "kb", "mb", "gb", "tb", "pb"}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(units)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%db", bytes)
	}
	if value < 10 {
		formatted := strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
		return formatted + units[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}

// ParseByteSize converts strings such as "500kb", "2mb", "2.5MB" or "4096" into
// a byte count. Units are binary multiples. The result must be positive.
func ParseByteSize(value string) (int, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return 0, fmt.Errorf(errorInvalidByteSizeFormat, ErrInvalidByteSize, value)
	}
	multiplier := 1.0
	numericPart := normalized
	for _, candidate := range byteSizeMultipliers {
		if strings.HasSuffix(normalized, candidate.suffix) {
			multiplier = candidate.multiplier
			numericPart = strings.TrimSpace(strings.TrimSuffix(normalized, candidate.suffix))
			break
		}
	}
	parsed, parseError := strconv.ParseFloat(numericPart, 64)
	if parseError != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0, fmt.Errorf(errorInvalidByteSizeFormat, ErrInvalidByteSize, value)
	}
	byteCount := math.Floor(parsed * multiplier)
	if byteCount < 1 || byteCount > math.MaxInt32*float64(1024) {
		return 0, fmt.Errorf(errorInvalidByteSizeFormat, ErrInvalidByteSize, value)
	}
	return int(byteCount), nil
}
