package jukebox

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/dominikschnitzer/musly/algorithms/spectral"
	"github.com/dominikschnitzer/musly/algorithms/stats"
	"github.com/dominikschnitzer/musly/algorithms/windowing"
	"github.com/dominikschnitzer/musly/logging"
)

func init() {
	registerMethod("timbre", 1, func() Method { return newTimbre() })
}

// maxStyleSampleTracks bounds the number of reference tracks kept by the
// mutual proximity layer; larger style samples are subsampled uniformly.
const maxStyleSampleTracks = 1000

// styleSampleSeed makes the subsample reproducible across runs
const styleSampleSeed = 1

// timbre is a timbre-only music similarity measure based on mandelellis,
// improved in multiple ways: a single Gaussian over 25 MFCCs per track,
// compared with the Jensen-Shannon divergence and normalized with Mutual
// Proximity. Track ids live in an ordered pool whose position swaps drive
// the MP stats array.
type timbre struct {
	methodBase

	sampleRate   int
	windowSize   int
	hop          float64
	maxPCMLength int
	psBins       int
	melBins      int
	mfccBins     int

	trackMu     int
	trackCovar  int
	trackLogdet int

	ps     *spectral.PowerSpectrum
	mel    *spectral.MelFilterbank
	mfccs  *spectral.MFCC
	gs     *stats.GaussianStats
	mp     *mutualProximity
	idpool *orderedIDPool
	logger logging.Logger
}

func newTimbre() *timbre {
	t := &timbre{
		sampleRate: 22050,
		windowSize: 1024,
		hop:        0.5,
		melBins:    36,
		mfccBins:   25,
		idpool:     newOrderedIDPool(),
		logger: logging.WithFields(logging.Fields{
			"method": "timbre",
		}),
	}
	t.maxPCMLength = 60 * t.sampleRate
	t.psBins = t.windowSize/2 + 1

	t.ps = spectral.NewPowerSpectrum(windowing.NewHann(t.windowSize), t.hop)
	t.mel = spectral.NewMelFilterbank(t.psBins, t.melBins, t.sampleRate)
	t.mfccs = spectral.NewMFCC(t.melBins, t.mfccBins)
	t.gs = stats.NewGaussianStats(t.mfccBins)

	t.trackMu = t.addTrackField("gaussian.mu", t.gs.Dim())
	t.trackCovar = t.addTrackField("gaussian.covar", t.gs.CovarElems())
	t.trackLogdet = t.addTrackField("gaussian.covar_logdet", 1)

	t.mp = newMutualProximity(t.trackSize)

	// react on changes to the trackid mapping in the ordered pool
	t.idpool.setObserver(t)

	return t
}

func (t *timbre) About() string {
	return "A timbre only music similarity measure based on 'mandelellis'. It " +
		"improves the basic measure in multiple ways to achieve superior " +
		"results: we compute a single Gaussian representation from the songs " +
		"using 25 MFCCs. The similarity between two tracks is computed " +
		"with the Jensen-Shannon divergence. The similarities are " +
		"normalized with Mutual Proximity: " +
		"D. Schnitzer et al.: Using mutual proximity to improve " +
		"content-based audio similarity. In the proceedings of the 12th " +
		"International Society for Music Information Retrieval " +
		"Conference, ISMIR, 2011."
}

// gaussian builds the field views of a track block
func (t *timbre) gaussian(track Track) stats.Gaussian {
	return stats.Gaussian{
		Mu:          track[t.trackMu : t.trackMu+t.gs.Dim()],
		Covar:       track[t.trackCovar : t.trackCovar+t.gs.CovarElems()],
		CovarLogdet: track[t.trackLogdet : t.trackLogdet+1],
	}
}

func (t *timbre) AnalyzeTrack(pcm []float32, track Track) error {
	t.logger.Trace("analysis started", logging.Fields{"samples": len(pcm)})

	excerpt := centeredExcerpt(pcm, t.maxPCMLength)

	powerSpectrum := t.ps.FromPCM(excerpt)
	melSpectrum := t.mel.FromPowerSpectrum(powerSpectrum)
	mfccRepresentation := t.mfccs.FromMelSpectrum(melSpectrum)

	g := t.gaussian(track)
	if err := t.gs.EstimateGaussian(mfccRepresentation, &g); err != nil {
		t.logger.Trace("gaussian model estimation failed")
		return fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}

	t.logger.Trace("analysis finished")
	return nil
}

// similarityRaw computes the unnormalized Jensen-Shannon divergences of the
// seed against all given tracks.
func (t *timbre) similarityRaw(seed Track, tracks []Track, sims []float32) {
	g0 := t.gaussian(seed)

	scratch := t.TrackAlloc()
	tmp := t.gaussian(scratch)

	for i, track := range tracks {
		gi := t.gaussian(track)
		sims[i] = t.gs.JensenShannon(&g0, &gi, &tmp)
	}
}

func (t *timbre) Similarity(seed Track, seedID TrackID, tracks []Track, ids []TrackID, sims []float32) error {
	if len(tracks) == 0 || seed == nil || sims == nil ||
		len(sims) < len(tracks) || len(ids) < len(tracks) {
		return ErrInvalidArgument
	}

	t.similarityRaw(seed, tracks, sims)

	seedPosition := t.idpool.PositionOf(seedID)
	otherPositions := make([]int, len(tracks))
	for i, id := range ids[:len(tracks)] {
		otherPositions[i] = t.idpool.PositionOf(id)
	}
	return t.mp.normalize(seedPosition, otherPositions, sims)
}

func (t *timbre) GuessNeighbors(seed TrackID, neighbors []TrackID, limitTo []TrackID) int {
	// no index; consider all tracks
	return -1
}

// SetMusicStyle memoizes the mutual proximity reference tracks. Oversized
// samples are reduced to a uniform random subsample drawn from a fixed
// source, so repeated runs see the same references. Tracks registered
// before this call keep stale normalization stats and must be re-added.
func (t *timbre) SetMusicStyle(tracks []Track) error {
	t.logger.Trace("initializing mutual proximity", logging.Fields{
		"sample_tracks": len(tracks),
	})

	if len(tracks) > maxStyleSampleTracks {
		rng := rand.New(rand.NewSource(styleSampleSeed))
		picked := rng.Perm(len(tracks))[:maxStyleSampleTracks]
		sort.Ints(picked)
		sample := make([]Track, len(picked))
		for i, idx := range picked {
			sample[i] = tracks[idx]
		}
		tracks = sample
	}

	t.mp.setNormTracks(tracks)
	return nil
}

func (t *timbre) AddTracks(tracks []Track, ids []TrackID, generateIDs bool) error {
	if len(tracks) != len(ids) {
		return ErrInvalidArgument
	}
	refs := t.mp.getNormTracks()
	if len(refs) == 0 {
		// not initialized, cannot add tracks
		return ErrNotInitialized
	}

	var numNew int
	if generateIDs {
		t.idpool.Generate(ids)
		numNew = len(ids)
	} else {
		numNew = t.idpool.Add(ids)
	}

	t.mp.appendNormFacts(numNew)
	pos := t.idpool.Size() - len(ids)
	sims := make([]float32, len(refs))
	for i, track := range tracks {
		t.similarityRaw(track, refs, sims)
		t.mp.setNormFactsFromSims(pos+i, sims)
	}
	return nil
}

func (t *timbre) RemoveTracks(ids []TrackID) {
	known := t.idpool.MoveToEnd(ids)
	t.mp.trimNormFacts(known)
	t.idpool.RemoveLast(known)
}

func (t *timbre) TrackCount() int {
	return t.idpool.Size()
}

func (t *timbre) MaxTrackID() TrackID {
	return t.idpool.MaxSeen()
}

func (t *timbre) TrackIDs() []TrackID {
	return t.idpool.IDs()
}

// swappedPositions keeps the MP stats array aligned with the ordered pool
func (t *timbre) swappedPositions(posA, posB int) {
	t.mp.swapNormFacts(posA, posB)
}

func (t *timbre) MetadataSize() int {
	return 3*4 + len(t.mp.getNormTracks())*t.trackSize*4
}

func (t *timbre) SerializeMetadata(buf []byte) int {
	binary.NativeEndian.PutUint32(buf[0:], uint32(t.idpool.Size()))
	binary.NativeEndian.PutUint32(buf[4:], uint32(t.idpool.MaxSeen()))

	refs := t.mp.getNormTracks()
	binary.NativeEndian.PutUint32(buf[8:], uint32(len(refs)))
	offset := 12
	for _, ref := range refs {
		for _, v := range ref {
			binary.NativeEndian.PutUint32(buf[offset:], math.Float32bits(v))
			offset += 4
		}
	}
	return offset
}

func (t *timbre) DeserializeMetadata(buf []byte) (int, error) {
	if len(buf) < 12 {
		return 0, fmt.Errorf("%w: metadata too short", ErrFormatMismatch)
	}
	expectedTracks := int(int32(binary.NativeEndian.Uint32(buf[0:])))
	maxSeen := TrackID(int32(binary.NativeEndian.Uint32(buf[4:])))
	numRefs := int(int32(binary.NativeEndian.Uint32(buf[8:])))

	if len(buf) < 12+numRefs*t.trackSize*4 {
		return 0, fmt.Errorf("%w: metadata too short", ErrFormatMismatch)
	}

	// register max_seen with an add/remove cycle that only bumps the
	// high-water mark
	t.idpool.Add([]TrackID{maxSeen})
	t.idpool.Remove([]TrackID{maxSeen})

	refs := make([]Track, numRefs)
	offset := 12
	for i := range refs {
		ref := make(Track, t.trackSize)
		for j := range ref {
			ref[j] = math.Float32frombits(binary.NativeEndian.Uint32(buf[offset:]))
			offset += 4
		}
		refs[i] = ref
	}
	t.mp.setNormTracks(refs)
	t.mp.appendNormFacts(expectedTracks)

	return expectedTracks, nil
}

func (t *timbre) TrackdataSize() int {
	return 4 + 2*4
}

func (t *timbre) SerializeTrackdata(buf []byte, numTracks, skipTracks int) (int, error) {
	if numTracks < 0 || skipTracks < 0 {
		return 0, ErrInvalidArgument
	}
	if numTracks+skipTracks > t.idpool.Size() {
		return 0, ErrInvalidArgument
	}
	written := 0
	for i := skipTracks; i < skipTracks+numTracks; i++ {
		binary.NativeEndian.PutUint32(buf[written:], uint32(t.idpool.IDAt(i)))
		mu, std := t.mp.getNormFacts(i)
		binary.NativeEndian.PutUint32(buf[written+4:], math.Float32bits(mu))
		binary.NativeEndian.PutUint32(buf[written+8:], math.Float32bits(std))
		written += t.TrackdataSize()
	}
	return written, nil
}

func (t *timbre) DeserializeTrackdata(buf []byte, numTracks int) error {
	if numTracks < 0 || len(buf) < numTracks*t.TrackdataSize() {
		return ErrInvalidArgument
	}
	hadTracks := t.idpool.Size()
	offset := 0
	for i := 0; i < numTracks; i++ {
		id := TrackID(int32(binary.NativeEndian.Uint32(buf[offset:])))
		t.idpool.Add([]TrackID{id})
		mu := math.Float32frombits(binary.NativeEndian.Uint32(buf[offset+4:]))
		std := math.Float32frombits(binary.NativeEndian.Uint32(buf[offset+8:]))
		t.mp.setNormFacts(hadTracks+i, mu, std)
		offset += t.TrackdataSize()
	}
	return nil
}
