package stats

import (
	"container/heap"
	"errors"
	"sort"
)

// ErrNoInput is returned by FindMin when no values are given
var ErrNoInput = errors.New("no input values")

type minCandidate struct {
	value float32
	id    int32
	pos   int
}

// candidateHeap is a bounded max-heap over (value, id) pairs; the largest
// value sits at the root so it can be evicted cheaply.
type candidateHeap []minCandidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].value > h[j].value }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(minCandidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FindMin selects the k smallest values with a bounded max-heap. If ids is
// nil the returned ids are the indices of the selected values. k larger
// than len(values) is clamped. With ordered set, the result is sorted
// ascending by value, ties keeping their insertion order.
func FindMin(values []float32, ids []int32, k int, ordered bool) ([]float32, []int32, error) {
	if values == nil {
		return nil, nil, ErrNoInput
	}
	if k > len(values) {
		k = len(values)
	}
	if k <= 0 {
		return []float32{}, []int32{}, nil
	}

	h := make(candidateHeap, 0, k)
	idOf := func(i int) int32 {
		if ids != nil {
			return ids[i]
		}
		return int32(i)
	}

	for i := 0; i < k; i++ {
		h = append(h, minCandidate{value: values[i], id: idOf(i), pos: i})
	}
	heap.Init(&h)
	for i := k; i < len(values); i++ {
		if values[i] < h[0].value {
			h[0] = minCandidate{value: values[i], id: idOf(i), pos: i}
			heap.Fix(&h, 0)
		}
	}

	if ordered {
		sort.SliceStable(h, func(i, j int) bool {
			if h[i].value != h[j].value {
				return h[i].value < h[j].value
			}
			return h[i].pos < h[j].pos
		})
	}

	minValues := make([]float32, k)
	minIDs := make([]int32, k)
	for i, c := range h {
		minValues[i] = c.value
		minIDs[i] = c.id
	}
	return minValues, minIDs, nil
}
