package jukebox

// centeredExcerpt selects the central maxLength samples of the signal (all
// of it when shorter) and widens to float64 for the analysis pipeline.
func centeredExcerpt(pcm []float32, maxLength int) []float64 {
	start := 0
	length := len(pcm)
	if length > maxLength {
		start = (length - maxLength) / 2
		length = maxLength
	}

	excerpt := make([]float64, length)
	for i := 0; i < length; i++ {
		excerpt[i] = float64(pcm[start+i])
	}
	return excerpt
}
