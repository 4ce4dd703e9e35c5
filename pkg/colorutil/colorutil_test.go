package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetColor_NegativeNetIsBlack(t *testing.T) {
	assert.Equal(t, Black, NetColor(-1))
}

func TestNetColor_CyclesThroughPalette(t *testing.T) {
	assert.Equal(t, Palette[0], NetColor(0))
	assert.Equal(t, Palette[0], NetColor(len(Palette)))
	assert.Equal(t, Palette[1], NetColor(len(Palette)+1))
}

func TestNetColor_DistinctNetsGetDistinctColorsWithinOnePaletteCycle(t *testing.T) {
	assert.NotEqual(t, NetColor(0), NetColor(1))
}
