package jukebox

import (
	"encoding/binary"
	"fmt"

	"github.com/dominikschnitzer/musly/algorithms/spectral"
	"github.com/dominikschnitzer/musly/algorithms/stats"
	"github.com/dominikschnitzer/musly/algorithms/windowing"
	"github.com/dominikschnitzer/musly/logging"
)

func init() {
	registerMethod("mandelellis", 0, func() Method { return newMandelEllis() })
}

// mandelEllis is the basic timbre similarity measure: a single Gaussian
// over 20 MFCCs per track, compared with the symmetrized Kullback-Leibler
// divergence. Track ids live in an unordered pool; there is no distance
// normalization layer.
type mandelEllis struct {
	methodBase

	sampleRate   int
	windowSize   int
	hop          float64
	maxPCMLength int
	psBins       int
	melBins      int
	mfccBins     int

	trackMu           int
	trackCovar        int
	trackCovarInverse int

	ps     *spectral.PowerSpectrum
	mel    *spectral.MelFilterbank
	mfccs  *spectral.MFCC
	gs     *stats.GaussianStats
	idpool *unorderedIDPool
	logger logging.Logger
}

func newMandelEllis() *mandelEllis {
	m := &mandelEllis{
		sampleRate: 22050,
		windowSize: 1024,
		hop:        0.5,
		melBins:    36,
		mfccBins:   20,
		idpool:     newUnorderedIDPool(),
		logger: logging.WithFields(logging.Fields{
			"method": "mandelellis",
		}),
	}
	m.maxPCMLength = 60 * m.sampleRate
	m.psBins = m.windowSize/2 + 1

	m.ps = spectral.NewPowerSpectrum(windowing.NewHann(m.windowSize), m.hop)
	m.mel = spectral.NewMelFilterbank(m.psBins, m.melBins, m.sampleRate)
	m.mfccs = spectral.NewMFCC(m.melBins, m.mfccBins)
	m.gs = stats.NewGaussianStats(m.mfccBins)

	m.trackMu = m.addTrackField("gaussian.mu", m.gs.Dim())
	m.trackCovar = m.addTrackField("gaussian.covar", m.gs.CovarElems())
	m.trackCovarInverse = m.addTrackField("gaussian.covar_inverse", m.gs.CovarElems())

	return m
}

func (m *mandelEllis) About() string {
	return "The most basic timbre music similarity measure published by: " +
		"M. Mandel and D. Ellis in: Song-level features and support vector " +
		"machines for music classification. In the proceedings of the 6th " +
		"International Conference on Music Information Retrieval, " +
		"ISMIR, 2005. " +
		"Musly computes a single Gaussian representation from the songs. " +
		"The similarity between two tracks represented as Gaussians " +
		"is computed with the symmetrized Kullback-Leibler divergence."
}

// gaussian builds the field views of a track block
func (m *mandelEllis) gaussian(track Track) stats.Gaussian {
	return stats.Gaussian{
		Mu:           track[m.trackMu : m.trackMu+m.gs.Dim()],
		Covar:        track[m.trackCovar : m.trackCovar+m.gs.CovarElems()],
		CovarInverse: track[m.trackCovarInverse : m.trackCovarInverse+m.gs.CovarElems()],
	}
}

func (m *mandelEllis) AnalyzeTrack(pcm []float32, track Track) error {
	m.logger.Trace("analysis started", logging.Fields{"samples": len(pcm)})

	excerpt := centeredExcerpt(pcm, m.maxPCMLength)

	powerSpectrum := m.ps.FromPCM(excerpt)
	melSpectrum := m.mel.FromPowerSpectrum(powerSpectrum)
	mfccRepresentation := m.mfccs.FromMelSpectrum(melSpectrum)

	g := m.gaussian(track)
	if err := m.gs.EstimateGaussian(mfccRepresentation, &g); err != nil {
		m.logger.Trace("gaussian model estimation failed")
		return fmt.Errorf("%w: %v", ErrEstimationFailed, err)
	}

	m.logger.Trace("analysis finished")
	return nil
}

func (m *mandelEllis) Similarity(seed Track, seedID TrackID, tracks []Track, ids []TrackID, sims []float32) error {
	if len(tracks) == 0 || seed == nil || sims == nil ||
		len(sims) < len(tracks) || len(ids) < len(tracks) {
		return ErrInvalidArgument
	}

	g0 := m.gaussian(seed)

	scratch := m.TrackAlloc()
	tmp := m.gaussian(scratch)

	for i, track := range tracks {
		gi := m.gaussian(track)
		sims[i] = m.gs.SymmetricKullbackLeibler(&g0, &gi, &tmp)
	}

	return nil
}

func (m *mandelEllis) GuessNeighbors(seed TrackID, neighbors []TrackID, limitTo []TrackID) int {
	// no index; consider all tracks
	return -1
}

func (m *mandelEllis) SetMusicStyle(tracks []Track) error {
	return nil
}

func (m *mandelEllis) AddTracks(tracks []Track, ids []TrackID, generateIDs bool) error {
	if len(tracks) != len(ids) {
		return ErrInvalidArgument
	}
	if generateIDs {
		m.idpool.Generate(ids)
	} else {
		m.idpool.Add(ids)
	}
	return nil
}

func (m *mandelEllis) RemoveTracks(ids []TrackID) {
	m.idpool.Remove(ids)
}

func (m *mandelEllis) TrackCount() int {
	return m.idpool.Size()
}

func (m *mandelEllis) MaxTrackID() TrackID {
	return m.idpool.MaxSeen()
}

func (m *mandelEllis) TrackIDs() []TrackID {
	return m.idpool.IDs()
}

func (m *mandelEllis) MetadataSize() int {
	return 2 * 4
}

func (m *mandelEllis) SerializeMetadata(buf []byte) int {
	binary.NativeEndian.PutUint32(buf[0:], uint32(m.idpool.Size()))
	binary.NativeEndian.PutUint32(buf[4:], uint32(m.idpool.MaxSeen()))
	return m.MetadataSize()
}

func (m *mandelEllis) DeserializeMetadata(buf []byte) (int, error) {
	if len(buf) < m.MetadataSize() {
		return 0, fmt.Errorf("%w: metadata too short", ErrFormatMismatch)
	}
	expectedTracks := int(int32(binary.NativeEndian.Uint32(buf[0:])))
	maxSeen := TrackID(int32(binary.NativeEndian.Uint32(buf[4:])))

	// register max_seen with an add/remove cycle that only bumps the
	// high-water mark
	m.idpool.Add([]TrackID{maxSeen})
	m.idpool.Remove([]TrackID{maxSeen})

	return expectedTracks, nil
}

func (m *mandelEllis) TrackdataSize() int {
	return 4
}

func (m *mandelEllis) SerializeTrackdata(buf []byte, numTracks, skipTracks int) (int, error) {
	if numTracks < 0 || skipTracks < 0 {
		return 0, ErrInvalidArgument
	}
	if numTracks+skipTracks > m.idpool.Size() {
		return 0, ErrInvalidArgument
	}
	ids := m.idpool.IDs()
	written := 0
	for _, id := range ids[skipTracks : skipTracks+numTracks] {
		binary.NativeEndian.PutUint32(buf[written:], uint32(id))
		written += 4
	}
	return written, nil
}

func (m *mandelEllis) DeserializeTrackdata(buf []byte, numTracks int) error {
	if numTracks < 0 || len(buf) < numTracks*m.TrackdataSize() {
		return ErrInvalidArgument
	}
	for i := 0; i < numTracks; i++ {
		id := TrackID(int32(binary.NativeEndian.Uint32(buf[i*4:])))
		m.idpool.Add([]TrackID{id})
	}
	return nil
}
