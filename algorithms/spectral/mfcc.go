package spectral

import (
	"math"

	"github.com/dominikschnitzer/musly/logging"
)

// MFCC computes Mel-frequency cepstral coefficients from a Mel spectrum by
// log-compressing each band and decorrelating with a DCT-II.
type MFCC struct {
	dct    *DCT
	logger logging.Logger
}

// NewMFCC creates an MFCC compressor from melBins bands down to mfccBins
// coefficients
func NewMFCC(melBins, mfccBins int) *MFCC {
	return &MFCC{
		dct: NewDCT(melBins, mfccBins),
		logger: logging.WithFields(logging.Fields{
			"component": "mfcc",
		}),
	}
}

// Bins returns the number of cepstral coefficients per frame
func (m *MFCC) Bins() int {
	return m.dct.Bins()
}

// FromMelSpectrum maps frames x melBins onto frames x mfccBins. The
// log(1 + x) compression keeps empty Mel bands at zero instead of feeding
// -Inf into the transform.
func (m *MFCC) FromMelSpectrum(mel [][]float64) [][]float64 {
	m.logger.Trace("computing MFCCs")

	compressed := make([][]float64, len(mel))
	for t, frame := range mel {
		logFrame := make([]float64, len(frame))
		for i, v := range frame {
			logFrame[i] = math.Log(1.0 + v)
		}
		compressed[t] = logFrame
	}

	return m.dct.Compress(compressed)
}
