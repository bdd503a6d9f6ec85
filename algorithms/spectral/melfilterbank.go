package spectral

import (
	"math"

	"github.com/dominikschnitzer/musly/logging"
)

// melBreak converts a frequency in Hz to the Mel scale
func melBreak(hz float64) float64 {
	return 1127.01048 * math.Log(1.0+hz/700.0)
}

// melFilter is one triangular filter, non-zero only on the power spectrum
// bins [start, start+len(weights))
type melFilter struct {
	start   int
	weights []float64
}

// MelFilterbank maps power spectrum bins onto Mel bands with area-normalized
// triangular filters. Filters start at a minimum frequency of 20 Hz. Bands
// whose triangle covers no power spectrum bin stay empty and produce zeros;
// the log(1 + x) compression downstream keeps those harmless.
type MelFilterbank struct {
	melBins int
	psBins  int
	filters []melFilter
	logger  logging.Logger
}

// NewMelFilterbank precomputes the triangular filters for the given power
// spectrum resolution and sample rate.
func NewMelFilterbank(psBins, melBins, sampleRate int) *MelFilterbank {
	const minFreq = 20.0

	fb := &MelFilterbank{
		melBins: melBins,
		psBins:  psBins,
		filters: make([]melFilter, melBins),
		logger: logging.WithFields(logging.Fields{
			"component": "melfilterbank",
		}),
	}

	// frequency of each powerspectrum bin
	psFreq := linSpaced(psBins, 0.0, float64(sampleRate)/2.0)

	// per-Hz frequency grid and its Mel projection
	freq := linSpaced(sampleRate/2-int(minFreq), minFreq, float64(sampleRate)/2.0)
	mel := make([]float64, len(freq))
	maxMel := math.Inf(-1)
	for i, f := range freq {
		mel[i] = melBreak(f)
		maxMel = math.Max(maxMel, mel[i])
	}
	melIdx := linSpaced(melBins+2, 1.0, maxMel)

	// project the equispaced Mel points back to the Hz grid by nearest Mel
	nearestFreq := func(target float64) float64 {
		best := 0
		bestDist := math.Abs(mel[0] - target)
		for i := 1; i < len(mel); i++ {
			if d := math.Abs(mel[i] - target); d < bestDist {
				bestDist = d
				best = i
			}
		}
		return freq[best]
	}

	for i := 0; i < melBins; i++ {
		left := nearestFreq(melIdx[i])
		center := nearestFreq(melIdx[i+1])
		right := nearestFreq(melIdx[i+2])
		height := 2.0 / (right - left)

		// collect the triangle weights over the covered ps bins
		start := -1
		var weights []float64
		for j := 0; j < psBins; j++ {
			var w float64
			switch {
			case psFreq[j] > left && psFreq[j] <= center:
				w = height * ((psFreq[j] - left) / (center - left))
			case psFreq[j] > center && psFreq[j] < right:
				w = height * ((right - psFreq[j]) / (right - center))
			default:
				continue
			}
			if start < 0 {
				start = j
			}
			for len(weights) < j-start {
				weights = append(weights, 0)
			}
			weights = append(weights, w)
		}
		if start < 0 {
			start = 0
		}
		fb.filters[i] = melFilter{start: start, weights: weights}
	}

	return fb
}

// Bins returns the number of Mel bands
func (fb *MelFilterbank) Bins() int {
	return fb.melBins
}

// FromPowerSpectrum applies the filterbank to each power spectrum frame,
// shaped frames x psBins, and returns frames x melBins. Every output entry
// is non-negative.
func (fb *MelFilterbank) FromPowerSpectrum(power [][]float64) [][]float64 {
	fb.logger.Trace("mel filtering spectrum", logging.Fields{
		"frames": len(power),
	})

	mels := make([][]float64, len(power))
	for t, frame := range power {
		out := make([]float64, fb.melBins)
		for i, filt := range fb.filters {
			sum := 0.0
			for k, w := range filt.weights {
				sum += w * frame[filt.start+k]
			}
			out[i] = sum
		}
		mels[t] = out
	}

	return mels
}

// linSpaced returns n points evenly spaced over [low, high], both inclusive
func linSpaced(n int, low, high float64) []float64 {
	points := make([]float64, n)
	if n == 1 {
		points[0] = low
		return points
	}
	step := (high - low) / float64(n-1)
	for i := range points {
		points[i] = low + float64(i)*step
	}
	return points
}
