package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIntDefault(t *testing.T) {
	require.Equal(t, 10, ParseIntDefault("", 10))
	require.Equal(t, 3, ParseIntDefault("3", 10))
	require.Equal(t, 10, ParseIntDefault("abc", 10))
}

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(1, 10)
	require.Equal(t, 0, offset)
	require.Equal(t, 10, limit)

	offset, limit = Calculate(3, 20)
	require.Equal(t, 40, offset)
	require.Equal(t, 20, limit)

	// out-of-range input falls back to defaults
	offset, limit = Calculate(0, 500)
	require.Equal(t, 0, offset)
	require.Equal(t, DefaultPageSize, limit)
}
