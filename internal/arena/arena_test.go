package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/arena"
)

func TestAllocAccumulatesUsage(t *testing.T) {
	a := arena.New("m")
	n1, err := a.Alloc(16, 8)
	require.NoError(t, err)
	assert.Greater(t, n1, int64(0))

	n2, err := a.Alloc(32, 8)
	require.NoError(t, err)
	assert.Greater(t, n2, n1)
}

func TestCallocOverflowDetected(t *testing.T) {
	a := arena.New("m")
	_, err := a.Calloc(1<<40, 1<<40, 8)
	assert.Error(t, err)
}

func TestDestroyRejectsFurtherAlloc(t *testing.T) {
	a := arena.New("m")
	a.Destroy()
	assert.True(t, a.Destroyed())
	_, err := a.Alloc(8, 8)
	assert.Error(t, err)
}

func TestNonPowerOfTwoAlignClamped(t *testing.T) {
	a := arena.New("m")
	_, err := a.Alloc(8, 3)
	require.NoError(t, err) // clamped to pointer alignment, not rejected
}
