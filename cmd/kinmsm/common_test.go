package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInts(t *testing.T) {
	got, err := parseInts("0, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, got)

	got, err = parseInts("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseInts("0,x")
	assert.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	got, err := parseRegion("0=1.5, 2=-0.3")
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 1.5, 2: -0.3}, got)

	for _, bad := range []string{"0", "a=1", "0=b"} {
		_, err := parseRegion(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"abl", "src"}, splitList(" abl,,src "))
	assert.Nil(t, splitList(""))
}

func TestWrap(t *testing.T) {
	text := wrap(strings.Repeat("kinase ", 40))
	for _, line := range strings.Split(text, "\n") {
		assert.LessOrEqual(t, len(line), helpWidth)
	}
	assert.True(t, strings.HasPrefix(text, "\n"))
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "frames=10 scheme=edge tic=2", formatParams(map[string]string{"tic": "2", "scheme": "edge", "frames": "10"}))
}
