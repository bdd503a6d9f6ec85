package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/dominikschnitzer/musly/algorithms/windowing"
	"github.com/dominikschnitzer/musly/logging"
)

// PowerSpectrum computes the squared-magnitude short-time Fourier transform
// of a PCM signal. The window function and hop size are fixed at
// construction; the same FFT configuration is reused for every frame.
type PowerSpectrum struct {
	window  *windowing.Hann
	winSize int
	hopSize int
	logger  logging.Logger
}

// NewPowerSpectrum creates a power spectrum analyzer with the given window
// and hop fraction (hop size = hop * window size).
func NewPowerSpectrum(window *windowing.Hann, hop float64) *PowerSpectrum {
	return &PowerSpectrum{
		window:  window,
		winSize: window.Size(),
		hopSize: int(hop * float64(window.Size())),
		logger: logging.WithFields(logging.Fields{
			"component": "powerspectrum",
		}),
	}
}

// Bins returns the number of frequency bins per frame (winSize/2 + 1)
func (ps *PowerSpectrum) Bins() int {
	return ps.winSize/2 + 1
}

// FromPCM slices the signal into windowed frames hopSize samples apart and
// returns one power spectrum per frame, shaped frames x bins. The signal is
// peak-normalized to 96 dB once over the whole input, not per frame. An
// input shorter than one window yields an empty result.
func (ps *PowerSpectrum) FromPCM(pcm []float64) [][]float64 {
	ps.logger.Trace("powerspectrum computation", logging.Fields{
		"input_samples": len(pcm),
	})

	if len(pcm) < ps.winSize || ps.hopSize > ps.winSize {
		return [][]float64{}
	}
	frames := (len(pcm) - (ps.winSize - ps.hopSize)) / ps.hopSize
	freqBins := ps.Bins()

	// peak normalization value, scale signal to 96db (16bit)
	pcmScale := 0.0
	for _, v := range pcm {
		pcmScale = math.Max(pcmScale, math.Abs(v))
	}
	pcmScale = math.Pow(10.0, 96.0/20.0) / pcmScale

	coeffs := ps.window.Coefficients()
	windowed := make([]float64, ps.winSize)
	power := make([][]float64, frames)
	for i := 0; i < frames; i++ {
		for j := 0; j < ps.winSize; j++ {
			windowed[j] = pcm[i*ps.hopSize+j] * pcmScale * coeffs[j]
		}

		spectrum := fft.FFTReal(windowed)

		frame := make([]float64, freqBins)
		for j := 0; j < freqBins; j++ {
			re := real(spectrum[j])
			im := imag(spectrum[j])
			frame[j] = re*re + im*im
		}
		power[i] = frame
	}

	ps.logger.Trace("powerspectrum finished", logging.Fields{
		"frames": frames,
		"bins":   freqBins,
	})
	return power
}
