package jukebox

import "github.com/dominikschnitzer/musly/algorithms/stats"

// FindMin selects the k smallest entries of values. If ids is nil the
// returned ids are the indices of the selected values; otherwise they are
// taken from ids. With ordered set the result is sorted ascending by
// value. k larger than len(values) is clamped.
func FindMin(values []float32, ids []TrackID, k int, ordered bool) ([]float32, []TrackID, error) {
	var rawIDs []int32
	if ids != nil {
		rawIDs = make([]int32, len(ids))
		for i, id := range ids {
			rawIDs[i] = int32(id)
		}
	}

	minValues, minRaw, err := stats.FindMin(values, rawIDs, k, ordered)
	if err != nil {
		return nil, nil, ErrInvalidArgument
	}

	minIDs := make([]TrackID, len(minRaw))
	for i, id := range minRaw {
		minIDs[i] = TrackID(id)
	}
	return minValues, minIDs, nil
}
