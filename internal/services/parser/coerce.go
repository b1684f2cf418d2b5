package parser

import (
	"strconv"
	"strings"
)

// CoerceBool is true for {"true","yes","1"} case-insensitively
func CoerceBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// DifficultyBucket maps a numeric complexity weight (1.0-5.0) onto one of
// five fixed tiers.
func DifficultyBucket(weight float64) string {
	switch {
	case weight <= 0:
		return ""
	case weight < 1.5:
		return "1 - Light"
	case weight < 2.5:
		return "2 - Medium Light"
	case weight < 3.2:
		return "3 - Medium"
	case weight < 4.1:
		return "4 - Medium Heavy"
	default:
		return "5 - Heavy"
	}
}

// PlaytimeBucket maps playtime minutes onto one of seven fixed ranges.
func PlaytimeBucket(minutes int) string {
	switch {
	case minutes <= 0:
		return ""
	case minutes < 15:
		return "Under 15 Minutes"
	case minutes <= 30:
		return "15-30 Minutes"
	case minutes <= 45:
		return "30-45 Minutes"
	case minutes <= 60:
		return "45-60 Minutes"
	case minutes <= 90:
		return "60-90 Minutes"
	case minutes <= 120:
		return "90-120 Minutes"
	default:
		return "Over 2 Hours"
	}
}

// parseIntField parses a positive integer, tolerating surrounding text like
// "60 min". Returns 0 when nothing numeric is present.
func parseIntField(value string) int {
	digits := strings.Builder{}
	for _, ch := range value {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

// parseFloatField parses a decimal weight value, returning 0 on failure
func parseFloatField(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// parsePlayerRange splits a combined players column like "2-4" or "2+" into
// min and max bounds.
func parsePlayerRange(value string) (int, int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0
	}
	if strings.Contains(value, "-") {
		parts := strings.SplitN(value, "-", 2)
		return parseIntField(parts[0]), parseIntField(parts[1])
	}
	n := parseIntField(value)
	if strings.HasSuffix(value, "+") {
		return n, 0
	}
	return n, n
}

// splitList splits a delimited list cell (mechanics, players) on commas or
// semicolons, trimming blanks.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
