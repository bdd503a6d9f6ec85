package jukebox

import (
	"math"

	"github.com/dominikschnitzer/musly/algorithms/stats"
)

// mutualProximity rescales raw method distances into mutual-proximity
// similarities in [0, 1). It keeps a copy of the music-style reference
// tracks and, for each registered track, the mean and standard deviation of
// its raw distances to those references. The (mu, std) array is indexed by
// position in the ordered id pool and is kept aligned with it through the
// observer protocol.
type mutualProximity struct {
	trackSize  int
	normTracks []Track
	normFacts  []normFact
}

type normFact struct {
	mu  float32
	std float32
}

func newMutualProximity(trackSize int) *mutualProximity {
	return &mutualProximity{trackSize: trackSize}
}

// setNormTracks replaces the reference tracks with copies of the given ones
func (mp *mutualProximity) setNormTracks(tracks []Track) {
	mp.normTracks = make([]Track, len(tracks))
	for i, t := range tracks {
		ref := make(Track, mp.trackSize)
		copy(ref, t)
		mp.normTracks[i] = ref
	}
}

func (mp *mutualProximity) getNormTracks() []Track {
	return mp.normTracks
}

// appendNormFacts grows the stats array by count zeroed entries
func (mp *mutualProximity) appendNormFacts(count int) {
	mp.normFacts = append(mp.normFacts, make([]normFact, count)...)
}

// setNormFactsFromSims derives (mu, std) from the raw distances of one
// track to all references, with the sample (M-1) denominator.
func (mp *mutualProximity) setNormFactsFromSims(position int, sims []float32) {
	d := make([]float64, len(sims))
	for i, s := range sims {
		d[i] = float64(s)
	}
	mp.setNormFacts(position, float32(stats.Mean(d)), float32(stats.StdDev(d)))
}

func (mp *mutualProximity) setNormFacts(position int, mu, std float32) {
	// allocate space if needed; ideally appendNormFacts took care of this
	if position >= len(mp.normFacts) {
		mp.normFacts = append(mp.normFacts,
			make([]normFact, position+1-len(mp.normFacts))...)
	}
	mp.normFacts[position] = normFact{mu: mu, std: std}
}

func (mp *mutualProximity) getNormFacts(position int) (mu, std float32) {
	return mp.normFacts[position].mu, mp.normFacts[position].std
}

// swapNormFacts mirrors a position swap in the ordered id pool
func (mp *mutualProximity) swapNormFacts(posA, posB int) {
	mp.normFacts[posA], mp.normFacts[posB] = mp.normFacts[posB], mp.normFacts[posA]
}

// trimNormFacts drops the last count entries
func (mp *mutualProximity) trimNormFacts(count int) {
	mp.normFacts = mp.normFacts[:len(mp.normFacts)-count]
}

// normCDF is the standard normal CDF via the Abramowitz & Stegun 7.1.26
// approximation of the error function.
func normCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// normalize rewrites the raw distances in sims into mutual-proximity
// values. The distance of a track to itself becomes 0 and NaN distances
// stay untouched. Positions outside the stats array are an error.
func (mp *mutualProximity) normalize(seedPosition int, otherPositions []int, sims []float32) error {
	if seedPosition < 0 || seedPosition >= len(mp.normFacts) {
		return ErrInvalidArgument
	}
	seedMu := float64(mp.normFacts[seedPosition].mu)
	seedStd := float64(mp.normFacts[seedPosition].std)
	for i, pos := range otherPositions {
		if pos < 0 || pos >= len(mp.normFacts) {
			return ErrInvalidArgument
		}
		if pos == seedPosition {
			sims[i] = 0
			continue
		}

		d := float64(sims[i])
		if math.IsNaN(d) {
			continue
		}

		p1 := 1 - normCDF((d-seedMu)/seedStd)
		p2 := 1 - normCDF((d-float64(mp.normFacts[pos].mu))/float64(mp.normFacts[pos].std))
		sims[i] = float32(1 - p1*p2)
	}
	return nil
}
