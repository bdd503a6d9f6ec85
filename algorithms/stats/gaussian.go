package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dominikschnitzer/musly/logging"
)

// ErrEstimationFailed is returned when a Gaussian cannot be estimated from
// the given sample matrix (too few frames or wrong dimensionality).
var ErrEstimationFailed = errors.New("gaussian estimation failed")

// Gaussian is a view into a track feature block. The fields alias caller
// memory; only the fields a method declared are non-nil. Covar and
// CovarInverse hold the upper triangle in row-major packed order:
// (0,0),(0,1),...,(0,D-1),(1,1),...
type Gaussian struct {
	Mu           []float32
	Covar        []float32
	CovarInverse []float32
	CovarLogdet  []float32
}

// GaussianStats estimates Gaussians of a fixed dimension and computes
// closed-form divergences between them.
type GaussianStats struct {
	d          int
	covarElems int
	logger     logging.Logger
}

// NewGaussianStats creates a helper for D-dimensional Gaussians
func NewGaussianStats(dim int) *GaussianStats {
	return &GaussianStats{
		d:          dim,
		covarElems: dim * (dim + 1) / 2,
		logger: logging.WithFields(logging.Fields{
			"component": "gaussianstatistics",
		}),
	}
}

// Dim returns the Gaussian dimensionality
func (gs *GaussianStats) Dim() int {
	return gs.d
}

// CovarElems returns the number of elements in a packed covariance triangle
func (gs *GaussianStats) CovarElems() int {
	return gs.covarElems
}

// EstimateGaussian fits a single Gaussian to the sample matrix, shaped
// frames x dim, and fills whichever fields of g are non-nil. The sample
// covariance uses the T-1 denominator and gets 1e-4 added to its diagonal
// so that silent input does not produce a singular matrix.
func (gs *GaussianStats) EstimateGaussian(frames [][]float64, g *Gaussian) error {
	gs.logger.Trace("estimating gaussian", logging.Fields{
		"frames": len(frames),
	})

	t := len(frames)
	if t <= gs.d {
		gs.logger.Trace("could not estimate gaussian: too few input samples")
		return ErrEstimationFailed
	}
	for _, frame := range frames {
		if len(frame) != gs.d {
			gs.logger.Trace("could not estimate gaussian: wrong dimension")
			return ErrEstimationFailed
		}
	}

	// sample mean
	mu := make([]float64, gs.d)
	for _, frame := range frames {
		for i, v := range frame {
			mu[i] += v
		}
	}
	for i := range mu {
		mu[i] /= float64(t)
	}
	if g.Mu != nil {
		for i, v := range mu {
			g.Mu[i] = float32(v)
		}
	}

	// sample covariance with the diagonal load
	covar := mat.NewDense(gs.d, gs.d, nil)
	for _, frame := range frames {
		for i := 0; i < gs.d; i++ {
			ci := frame[i] - mu[i]
			for j := i; j < gs.d; j++ {
				covar.Set(i, j, covar.At(i, j)+ci*(frame[j]-mu[j]))
			}
		}
	}
	denom := float64(t) - 1.0
	for i := 0; i < gs.d; i++ {
		for j := i; j < gs.d; j++ {
			v := covar.At(i, j) / denom
			if i == j {
				v += 1e-4
			}
			covar.Set(i, j, v)
			covar.Set(j, i, v)
		}
	}

	if g.Covar != nil {
		idx := 0
		for i := 0; i < gs.d; i++ {
			for j := i; j < gs.d; j++ {
				g.Covar[idx] = float32(covar.At(i, j))
				idx++
			}
		}
	}

	if g.CovarInverse != nil {
		var inverse mat.Dense
		if err := inverse.Inverse(covar); err != nil {
			// a badly conditioned inverse is still usable; the diagonal
			// load above keeps the matrix away from exact singularity
			var cond mat.Condition
			if !errors.As(err, &cond) {
				gs.logger.Debug("could not invert covariance matrix")
				return ErrEstimationFailed
			}
		}
		idx := 0
		for i := 0; i < gs.d; i++ {
			for j := i; j < gs.d; j++ {
				g.CovarInverse[idx] = float32(inverse.At(i, j))
				idx++
			}
		}
	}

	if g.CovarLogdet != nil {
		logdet, _ := mat.LogDet(covar)
		g.CovarLogdet[0] = float32(logdet)
	}

	return nil
}

// sameBuffer reports whether two slices alias the same backing array
func sameBuffer(a, b []float32) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// JensenShannon computes a Jensen-Shannon-like divergence between two
// Gaussians with precomputed log-determinants. The merged covariance is
// factorized with an in-place Cholesky over tmp's packed triangle; a
// non-positive pivot yields the sentinel -1, which callers must tolerate.
// Non-finite results clamp to MaxFloat32.
func (gs *GaussianStats) JensenShannon(g0, g1, tmp *Gaussian) float32 {
	// the two views describe the same model
	if sameBuffer(g0.Covar, g1.Covar) && sameBuffer(g0.Mu, g1.Mu) {
		return 0
	}
	jsd := -0.25 * (g0.CovarLogdet[0] + g1.CovarLogdet[0])

	// merge the mean and covariance matrices to get the merged Gaussian
	d := gs.d
	for i := 0; i < d; i++ {
		tmp.Mu[i] = 0.5 * (g0.Mu[i] - g1.Mu[i])
	}
	idxCovar := 0
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			tmp.Covar[idxCovar] = 0.5*(g0.Covar[idxCovar]+g1.Covar[idxCovar]) +
				tmp.Mu[i]*tmp.Mu[j]
			idxCovar++
		}
	}

	// in-place Cholesky of the merged matrix, accumulating the log
	// determinant from the pivots
	idxII := 0
	for i := 0; i < d; i++ {
		idxK := i
		for k := 0; k < i; k++ {
			tmp.Covar[idxII] -= tmp.Covar[idxK] * tmp.Covar[idxK]
			idxK += d - k - 1
		}

		if tmp.Covar[idxII] <= 0 {
			return -1
		}
		tmp.Covar[idxII] = float32(math.Sqrt(float64(tmp.Covar[idxII])))
		jsd += float32(math.Log(float64(tmp.Covar[idxII])))

		idxIJ := idxII
		for j := i + 1; j < d; j++ {
			idxIJ++

			idxK = 0
			for k := 0; k < i; k++ {
				tmp.Covar[idxIJ] -= tmp.Covar[idxK+i] * tmp.Covar[idxK+j]
				idxK += d - k - 1
			}
			tmp.Covar[idxIJ] /= tmp.Covar[idxII]
		}

		idxII += d - i
	}

	if math.IsNaN(float64(jsd)) || math.IsInf(float64(jsd), 0) {
		return math.MaxFloat32
	}

	return float32(math.Sqrt(math.Max(0.0, float64(jsd))))
}

// SymmetricKullbackLeibler computes the symmetrized Kullback-Leibler
// divergence between two Gaussians with precomputed covariance inverses.
// Non-finite results clamp to MaxFloat32; the result is never negative.
func (gs *GaussianStats) SymmetricKullbackLeibler(g0, g1, tmp *Gaussian) float32 {
	var skld float32

	// the two views describe the same model
	if sameBuffer(g0.Covar, g1.Covar) && sameBuffer(g0.Mu, g1.Mu) {
		return skld
	}

	// add the two inverted covariances
	for i := 0; i < gs.covarElems; i++ {
		tmp.CovarInverse[i] = g0.CovarInverse[i] + g1.CovarInverse[i]
	}

	d := gs.d
	for i := 0; i < d; i++ {
		idx := i*d - (i*i+i)/2

		skld += g0.Covar[idx+i]*g1.CovarInverse[idx+i] +
			g1.Covar[idx+i]*g0.CovarInverse[idx+i]

		for k := i + 1; k < d; k++ {
			skld += 2*g0.Covar[idx+k]*g1.CovarInverse[idx+k] +
				2*g1.Covar[idx+k]*g0.CovarInverse[idx+k]
		}
	}

	// the difference of the two means
	for i := 0; i < d; i++ {
		tmp.Mu[i] = g0.Mu[i] - g1.Mu[i]
	}

	for i := 0; i < d; i++ {
		idx := i - d
		var tmp1 float32

		for k := 0; k <= i; k++ {
			idx += d - k
			tmp1 += tmp.CovarInverse[idx] * tmp.Mu[k]
		}

		for k := i + 1; k < d; k++ {
			idx++
			tmp1 += tmp.CovarInverse[idx] * tmp.Mu[k]
		}
		skld += tmp1 * tmp.Mu[i]
	}

	if math.IsNaN(float64(skld)) || math.IsInf(float64(skld), 0) {
		return math.MaxFloat32
	}

	skld = skld/4 - float32(d)/2
	if skld < 0 {
		skld = 0
	}
	return skld
}
