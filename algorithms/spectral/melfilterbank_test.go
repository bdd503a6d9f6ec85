package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMelFilterbank(t *testing.T) {
	t.Parallel()

	t.Run("output shape and non-negativity", func(t *testing.T) {
		t.Parallel()
		fb := NewMelFilterbank(513, 36, 22050)

		frame := make([]float64, 513)
		for i := range frame {
			frame[i] = float64(i%7) + 0.5
		}
		mels := fb.FromPowerSpectrum([][]float64{frame, frame})

		require.Len(t, mels, 2)
		require.Len(t, mels[0], 36)
		assert.Equal(t, 36, fb.Bins())
		for _, v := range mels[0] {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})

	t.Run("silence maps to silence", func(t *testing.T) {
		t.Parallel()
		fb := NewMelFilterbank(513, 36, 22050)

		mels := fb.FromPowerSpectrum([][]float64{make([]float64, 513)})
		for _, v := range mels[0] {
			assert.Zero(t, v)
		}
	})

	t.Run("a narrowband signal excites few bands", func(t *testing.T) {
		t.Parallel()
		fb := NewMelFilterbank(513, 36, 22050)

		// single hot power spectrum bin around 2 kHz
		frame := make([]float64, 513)
		frame[93] = 1000.0
		mels := fb.FromPowerSpectrum([][]float64{frame})

		active := 0
		for _, v := range mels[0] {
			if v > 0 {
				active++
			}
		}
		assert.Greater(t, active, 0)
		assert.LessOrEqual(t, active, 2)
	})

	t.Run("deterministic construction", func(t *testing.T) {
		t.Parallel()
		a := NewMelFilterbank(513, 36, 22050)
		b := NewMelFilterbank(513, 36, 22050)

		frame := make([]float64, 513)
		for i := range frame {
			frame[i] = float64(i)
		}
		assert.Equal(t,
			a.FromPowerSpectrum([][]float64{frame}),
			b.FromPowerSpectrum([][]float64{frame}))
	})
}
