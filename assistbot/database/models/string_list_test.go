package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_RoundTrip(t *testing.T) {
	list := StringList{"general", "support"}

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["general","support"]`, value)

	var scanned StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)
}

func TestStringList_ScanNil(t *testing.T) {
	var list StringList
	require.NoError(t, list.Scan(nil))
	assert.Empty(t, list)
}

func TestStringList_Contains(t *testing.T) {
	list := StringList{"a", "b"}
	assert.True(t, list.Contains("a"))
	assert.False(t, list.Contains("c"))
	assert.False(t, StringList(nil).Contains("a"))
}
