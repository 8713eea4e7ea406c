package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixturesDecode(t *testing.T) {
	growth := Growth(t)
	assert.Equal(t, "Growth", growth.Meta.Title)
	require.Len(t, growth.Rules, 2)

	missing := MissingGrid(t)
	require.Len(t, missing.Rules, 1)
	assert.Equal(t, "growNoise", missing.Rules[0].Name)
	assert.Equal(t, "main", missing.Rules[0].Grid)

	showcase := Showcase(t)
	assert.Len(t, showcase.Body, 6)
	require.NotNil(t, showcase.Runtime.DocstepAdvance)
}
