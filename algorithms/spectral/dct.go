package spectral

import (
	"math"

	"github.com/dominikschnitzer/musly/logging"
)

// DCT is an orthonormal DCT-II compressor. The transform matrix is
// precomputed for a fixed input and output size.
type DCT struct {
	inBins  int
	outBins int
	m       [][]float64
	logger  logging.Logger
}

// NewDCT precomputes the DCT-II matrix of shape outBins x inBins
func NewDCT(inBins, outBins int) *DCT {
	d := &DCT{
		inBins:  inBins,
		outBins: outBins,
		m:       make([][]float64, outBins),
		logger: logging.WithFields(logging.Fields{
			"component": "dct",
		}),
	}

	scale := 1.0 / math.Sqrt(float64(inBins)/2.0)
	for i := 0; i < outBins; i++ {
		row := make([]float64, inBins)
		for j := 0; j < inBins; j++ {
			row[j] = scale * math.Cos(float64(i)*(2.0*float64(j)+1.0)*
				(math.Pi/2.0)/float64(inBins))
		}
		d.m[i] = row
	}

	// special scaling for first row
	for j := 0; j < inBins; j++ {
		d.m[0][j] *= math.Sqrt(2.0) / 2.0
	}

	return d
}

// Bins returns the number of output coefficients
func (d *DCT) Bins() int {
	return d.outBins
}

// Compress applies the transform to each input frame, shaped frames x
// inBins, and returns frames x outBins.
func (d *DCT) Compress(in [][]float64) [][]float64 {
	d.logger.Trace("computing DCT", logging.Fields{
		"frames": len(in),
	})

	out := make([][]float64, len(in))
	for t, frame := range in {
		coeffs := make([]float64, d.outBins)
		for i := 0; i < d.outBins; i++ {
			sum := 0.0
			for j := 0; j < d.inBins; j++ {
				sum += d.m[i][j] * frame[j]
			}
			coeffs[i] = sum
		}
		out[t] = coeffs
	}

	return out
}
