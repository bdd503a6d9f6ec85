package stats

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMin(t *testing.T) {
	t.Parallel()

	t.Run("nil values is an error", func(t *testing.T) {
		t.Parallel()
		_, _, err := FindMin(nil, nil, 3, false)
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("selects the k smallest as a multiset", func(t *testing.T) {
		t.Parallel()
		values := []float32{5, 1, 4, 1, 3, 9, 2, 6}

		minValues, minIDs, err := FindMin(values, nil, 4, false)
		require.NoError(t, err)
		require.Len(t, minValues, 4)
		require.Len(t, minIDs, 4)

		sorted := append([]float32(nil), minValues...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		assert.Equal(t, []float32{1, 1, 2, 3}, sorted)
	})

	t.Run("ordered output is non-decreasing", func(t *testing.T) {
		t.Parallel()
		values := []float32{7, 3, 8, 1, 9, 2, 5}

		minValues, _, err := FindMin(values, nil, 5, true)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3, 5, 7}, minValues)
	})

	t.Run("nil ids yield indices", func(t *testing.T) {
		t.Parallel()
		values := []float32{4, 2, 6, 1}

		_, minIDs, err := FindMin(values, nil, 2, true)
		require.NoError(t, err)
		assert.Equal(t, []int32{3, 1}, minIDs)
	})

	t.Run("given ids are carried along", func(t *testing.T) {
		t.Parallel()
		values := []float32{4, 2, 6, 1}
		ids := []int32{40, 20, 60, 10}

		_, minIDs, err := FindMin(values, ids, 2, true)
		require.NoError(t, err)
		assert.Equal(t, []int32{10, 20}, minIDs)
	})

	t.Run("k larger than input is clamped", func(t *testing.T) {
		t.Parallel()
		values := []float32{2, 1}

		minValues, _, err := FindMin(values, nil, 10, true)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, minValues)
	})

	t.Run("k of zero yields an empty result", func(t *testing.T) {
		t.Parallel()
		minValues, minIDs, err := FindMin([]float32{1, 2}, nil, 0, false)
		require.NoError(t, err)
		assert.Empty(t, minValues)
		assert.Empty(t, minIDs)
	})
}
