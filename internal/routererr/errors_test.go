package routererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrIOError_WrapsErrIO(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrIOError(cause)
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "disk full")
}

func TestErrParseError_WrapsErrParse(t *testing.T) {
	cause := errors.New("bad yaml")
	err := ErrParseError(cause)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "bad yaml")
}

func TestObstruction_UnwrapsToErrObstructed(t *testing.T) {
	err := NewObstruction("seg-7")
	assert.ErrorIs(t, err, ErrObstructed)

	var obs *Obstruction
	require := assert.New(t)
	require.True(errors.As(err, &obs))
	require.Equal("seg-7", obs.By)
}

func TestRouteFailure_UnwrapsToBothErrRouteFailedAndCause(t *testing.T) {
	cause := ErrNoPath
	err := NewRouteFailure("ratline-1", cause)
	assert.ErrorIs(t, err, ErrRouteFailed)
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Contains(t, err.Error(), ErrNoPath.Error())
}

func TestRouteFailure_NilCauseStillReportsRouteFailed(t *testing.T) {
	err := NewRouteFailure("ratline-2", nil)
	assert.ErrorIs(t, err, ErrRouteFailed)
	assert.Equal(t, ErrRouteFailed.Error(), err.Error())
}
