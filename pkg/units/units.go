// Package units provides the binary byte-rate units used throughout valve:
// exact powers of 1024, cycling between them, and parsing/formatting of
// human-entered rates like "1.5MiB" or "512K".
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is a byte-rate multiplier. All multipliers are binary (powers of 1024).
type Unit int

const (
	Byte Unit = iota
	Kibibyte
	Mebibyte
	Gibibyte
)

// Multiplier returns the exact number of bytes per unit.
func (u Unit) Multiplier() int64 {
	switch u {
	case Kibibyte:
		return 1 << 10
	case Mebibyte:
		return 1 << 20
	case Gibibyte:
		return 1 << 30
	default:
		return 1
	}
}

func (u Unit) String() string {
	switch u {
	case Kibibyte:
		return "KiB"
	case Mebibyte:
		return "MiB"
	case Gibibyte:
		return "GiB"
	default:
		return "B"
	}
}

// Next returns the next unit in the fixed cycle B -> KiB -> MiB -> GiB -> B.
func (u Unit) Next() Unit {
	switch u {
	case Byte:
		return Kibibyte
	case Kibibyte:
		return Mebibyte
	case Mebibyte:
		return Gibibyte
	default:
		return Byte
	}
}

// suffixes maps accepted rate suffixes to units. Matching is case-insensitive
// and a trailing "/s" is stripped before lookup.
var suffixes = map[string]Unit{
	"":    Byte,
	"b":   Byte,
	"k":   Kibibyte,
	"kb":  Kibibyte,
	"kib": Kibibyte,
	"m":   Mebibyte,
	"mb":  Mebibyte,
	"mib": Mebibyte,
	"g":   Gibibyte,
	"gb":  Gibibyte,
	"gib": Gibibyte,
}

// ParseRate parses a human-entered rate like "1024", "1.5MiB", "512K" or
// "2 MiB/s" into a magnitude and unit. The token "unlimited" lifts the
// ceiling instead and is reported through the unlimited return. The
// magnitude must be non-negative.
func ParseRate(s string) (magnitude float64, unit Unit, unlimited bool, err error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, Byte, false, fmt.Errorf("empty rate")
	}
	if strings.EqualFold(trimmed, "unlimited") {
		return 0, Byte, true, nil
	}

	// Split the numeric prefix from the unit suffix.
	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			split = i
			break
		}
	}

	number := trimmed[:split]
	suffix := strings.ToLower(strings.TrimSpace(trimmed[split:]))
	suffix = strings.TrimSuffix(suffix, "/s")
	suffix = strings.TrimSpace(suffix)

	magnitude, err = strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, Byte, false, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if magnitude < 0 {
		return 0, Byte, false, fmt.Errorf("invalid rate %q: magnitude must not be negative", s)
	}

	unit, ok := suffixes[suffix]
	if !ok {
		return 0, Byte, false, fmt.Errorf("invalid rate %q: unknown unit %q", s, suffix)
	}
	return magnitude, unit, false, nil
}

// FormatBytes formats a byte count in human readable binary units.
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatRate formats a bytes-per-second rate in human readable binary units.
func FormatRate(bytesPerSec float64) string {
	const unit = 1024
	if bytesPerSec < unit {
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
	div, exp := float64(unit), 0
	for n := bytesPerSec / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB/s", bytesPerSec/div, "KMGTPE"[exp])
}
