package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominikschnitzer/musly/algorithms/windowing"
)

func sine(freq float64, sampleRate, length int) []float64 {
	pcm := make([]float64, length)
	for i := range pcm {
		pcm[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return pcm
}

func TestPowerSpectrum(t *testing.T) {
	t.Parallel()

	newPS := func() *PowerSpectrum {
		return NewPowerSpectrum(windowing.NewHann(1024), 0.5)
	}

	t.Run("short input yields empty result", func(t *testing.T) {
		t.Parallel()
		ps := newPS()

		assert.Empty(t, ps.FromPCM(make([]float64, 1023)))
	})

	t.Run("frame count and bin count", func(t *testing.T) {
		t.Parallel()
		ps := newPS()

		power := ps.FromPCM(sine(440, 22050, 2048))
		// (2048 - 512) / 512 frames of 1024/2+1 bins
		require.Len(t, power, 3)
		assert.Len(t, power[0], 513)
		assert.Equal(t, 513, ps.Bins())
	})

	t.Run("output is non-negative", func(t *testing.T) {
		t.Parallel()
		ps := newPS()

		power := ps.FromPCM(sine(1000, 22050, 8192))
		for _, frame := range power {
			for _, v := range frame {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		}
	})

	t.Run("sine peaks at the matching bin", func(t *testing.T) {
		t.Parallel()
		ps := newPS()

		// bin 16 of a 1024-point FFT at 22050 Hz
		freq := 16.0 * 22050.0 / 1024.0
		power := ps.FromPCM(sine(freq, 22050, 8192))
		require.NotEmpty(t, power)

		peak := 0
		for k, v := range power[0] {
			if v > power[0][peak] {
				peak = k
			}
		}
		assert.Equal(t, 16, peak)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		t.Parallel()
		ps := newPS()
		pcm := sine(3000, 22050, 4096)

		assert.Equal(t, ps.FromPCM(pcm), ps.FromPCM(pcm))
	})
}
