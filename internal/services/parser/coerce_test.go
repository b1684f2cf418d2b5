package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceBool(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "yes", "Yes", "1", " 1 "} {
		assert.True(t, CoerceBool(v), "expected %q to be true", v)
	}
	for _, v := range []string{"false", "no", "0", "", "owned", "2"} {
		assert.False(t, CoerceBool(v), "expected %q to be false", v)
	}
}

func TestDifficultyBucket(t *testing.T) {
	tests := []struct {
		weight   float64
		expected string
	}{
		{0, ""},
		{1.0, "1 - Light"},
		{1.49, "1 - Light"},
		{1.5, "2 - Medium Light"},
		{2.44, "2 - Medium Light"},
		{2.5, "3 - Medium"},
		{3.19, "3 - Medium"},
		{3.2, "4 - Medium Heavy"},
		{4.0, "4 - Medium Heavy"},
		{4.1, "5 - Heavy"},
		{5.0, "5 - Heavy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DifficultyBucket(tt.weight), "weight %v", tt.weight)
	}
}

func TestPlaytimeBucket(t *testing.T) {
	tests := []struct {
		minutes  int
		expected string
	}{
		{0, ""},
		{10, "Under 15 Minutes"},
		{15, "15-30 Minutes"},
		{30, "15-30 Minutes"},
		{45, "30-45 Minutes"},
		{50, "45-60 Minutes"},
		{60, "45-60 Minutes"},
		{90, "60-90 Minutes"},
		{120, "90-120 Minutes"},
		{121, "Over 2 Hours"},
		{240, "Over 2 Hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, PlaytimeBucket(tt.minutes), "minutes %d", tt.minutes)
	}
}

func TestParsePlayerRange(t *testing.T) {
	tests := []struct {
		value    string
		min, max int
	}{
		{"2-4", 2, 4},
		{"1-5", 1, 5},
		{"2+", 2, 0},
		{"4", 4, 4},
		{"", 0, 0},
	}
	for _, tt := range tests {
		min, max := parsePlayerRange(tt.value)
		assert.Equal(t, tt.min, min, "min for %q", tt.value)
		assert.Equal(t, tt.max, max, "max for %q", tt.value)
	}
}

func TestParseIntField(t *testing.T) {
	assert.Equal(t, 60, parseIntField("60 min"))
	assert.Equal(t, 90, parseIntField("90"))
	assert.Equal(t, 0, parseIntField("n/a"))
	assert.Equal(t, 45, parseIntField("about 45 minutes"))
}
