package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReentrancyModeStringer(t *testing.T) {
	require.Equal(t, "Forbidden", Forbidden.String())
	require.Equal(t, "Exclusive", Exclusive.String())
	require.Equal(t, "Prioritized", Prioritized.String())
	require.Equal(t, "Open", Open.String())
	require.Equal(t, "Unknown", ReentrancyMode(99).String())
}
