package jukebox

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthesizePCM builds a deterministic sum-of-sines test signal
func synthesizePCM(seed int64, samples int) []float32 {
	rng := rand.New(rand.NewSource(seed))
	const sines = 3
	freqs := make([]float64, sines)
	amps := make([]float64, sines)
	phases := make([]float64, sines)
	for i := 0; i < sines; i++ {
		freqs[i] = 100.0 + rng.Float64()*5000.0
		amps[i] = 0.2 + rng.Float64()*0.6
		phases[i] = rng.Float64() * 2 * math.Pi
	}

	pcm := make([]float32, samples)
	for i := range pcm {
		v := 0.0
		for j := 0; j < sines; j++ {
			v += amps[j] * math.Sin(2*math.Pi*freqs[j]*float64(i)/22050.0+phases[j])
		}
		pcm[i] = float32(v / sines)
	}
	return pcm
}

// analyzeTestTracks analyzes n synthetic tracks seeded by 42*i+1
func analyzeTestTracks(t *testing.T, jb *Jukebox, n int) []Track {
	t.Helper()
	const samples = 33075 // 1.5 seconds
	tracks := make([]Track, n)
	for i := range tracks {
		tracks[i] = jb.TrackAlloc()
		pcm := synthesizePCM(int64(42*i+1), samples)
		require.NoError(t, jb.AnalyzePCM(pcm, tracks[i]))
	}
	return tracks
}

func TestPowerOn(t *testing.T) {
	t.Parallel()

	t.Run("default method is timbre", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		assert.Equal(t, "timbre", jb.MethodName())
		assert.NotEmpty(t, jb.AboutMethod())
	})

	t.Run("unknown method is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := PowerOn("nonexistent", "")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("methods are listed", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "mandelellis,timbre", ListMethods())
	})
}

func TestTrackLayout(t *testing.T) {
	t.Parallel()

	t.Run("timbre track block", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("timbre", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		// mu (25) + upper-triangle covariance (325) + logdet (1)
		assert.Equal(t, 351, jb.TrackSize())
		fields := jb.TrackFields()
		require.Len(t, fields, 3)
		assert.Equal(t, "gaussian.mu", fields[0].Name)
		assert.Equal(t, 25, fields[0].Size)
		assert.Equal(t, "gaussian.covar", fields[1].Name)
		assert.Equal(t, 325, fields[1].Size)
		assert.Equal(t, "gaussian.covar_logdet", fields[2].Name)
		assert.Equal(t, 1, fields[2].Size)
	})

	t.Run("mandelellis track block", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("mandelellis", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		// mu (20) + covariance (210) + inverse covariance (210)
		assert.Equal(t, 440, jb.TrackSize())
	})

	t.Run("track to string names every field", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("timbre", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		s := jb.TrackToString(jb.TrackAlloc())
		assert.Contains(t, s, "gaussian.mu:")
		assert.Contains(t, s, "gaussian.covar:")
		assert.Contains(t, s, "gaussian.covar_logdet:")
	})
}

func TestAnalyzePCM(t *testing.T) {
	t.Parallel()

	t.Run("too short input fails estimation", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("timbre", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		// a single window yields one frame, far below the 25 dimensions
		err = jb.AnalyzePCM(make([]float32, 1024), jb.TrackAlloc())
		assert.ErrorIs(t, err, ErrEstimationFailed)
	})

	t.Run("add before set music style is rejected", func(t *testing.T) {
		t.Parallel()
		jb, err := PowerOn("timbre", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		tracks := analyzeTestTracks(t, jb, 1)
		ids := make([]TrackID, 1)
		assert.ErrorIs(t, jb.AddTracks(tracks, ids, true), ErrNotInitialized)
	})
}

// TestJukeboxLifecycle walks a jukebox through registration, querying,
// reshuffling and serialization, mirroring real collection management.
func TestJukeboxLifecycle(t *testing.T) {
	jb, err := PowerOn("timbre", "")
	require.NoError(t, err)
	defer jb.PowerOff()

	tracks := analyzeTestTracks(t, jb, 90)
	ids := make([]TrackID, 90)

	// register the first 50 with generated ids
	require.NoError(t, jb.SetMusicStyle(tracks))
	require.NoError(t, jb.AddTracks(tracks[:50], ids[:50], true))
	for i := 0; i < 50; i++ {
		assert.Equal(t, TrackID(i), ids[i])
	}
	assert.Equal(t, 50, jb.TrackCount())
	assert.Equal(t, TrackID(49), jb.MaxTrackID())

	// register 40 more with caller-chosen ids, one of them 1000
	for i := 50; i < 90; i++ {
		ids[i] = TrackID(50 + (i*27)%367)
	}
	ids[60] = 1000
	require.NoError(t, jb.AddTracks(tracks[50:], ids[50:], false))
	assert.Equal(t, 90, jb.TrackCount())
	assert.Equal(t, TrackID(1000), jb.MaxTrackID())

	// deterministic similarity
	sims1 := make([]float32, 90)
	sims2 := make([]float32, 90)
	require.NoError(t, jb.Similarity(tracks[42], ids[42], tracks, ids, sims1))
	require.NoError(t, jb.Similarity(tracks[42], ids[42], tracks, ids, sims2))
	assert.Equal(t, sims1, sims2)

	// self similarity is zero, everything else lands in [0, 1)
	assert.Zero(t, sims1[42])
	for i, s := range sims1 {
		if i == 42 {
			continue
		}
		assert.GreaterOrEqual(t, s, float32(0))
		assert.LessOrEqual(t, s, float32(1))
	}

	// timbre has no neighbor index
	neighbors := make([]TrackID, 20)
	assert.Equal(t, -1, jb.GuessNeighbors(ids[30], neighbors))

	// remove the first 30, add 10 fresh, drop them again, re-add the 30
	require.NoError(t, jb.RemoveTracks(ids[:30]))
	assert.Equal(t, 60, jb.TrackCount())

	extra := analyzeTestTracks(t, jb, 10)
	extraIDs := make([]TrackID, 10)
	require.NoError(t, jb.AddTracks(extra, extraIDs, true))
	assert.Equal(t, TrackID(1001), extraIDs[0])
	assert.Equal(t, TrackID(1010), extraIDs[9])

	require.NoError(t, jb.RemoveTracks(extraIDs))
	require.NoError(t, jb.AddTracks(tracks[:30], ids[:30], true))
	assert.Equal(t, TrackID(1011), ids[0])
	assert.Equal(t, TrackID(1040), ids[29])
	assert.Equal(t, 90, jb.TrackCount())

	// the reshuffled registry produces the same similarities
	sims3 := make([]float32, 90)
	require.NoError(t, jb.Similarity(tracks[42], ids[42], tracks, ids, sims3))
	assert.Equal(t, sims1, sims3)
}

func TestJukeboxStreamRoundTrip(t *testing.T) {
	jb, err := PowerOn("timbre", "")
	require.NoError(t, err)
	defer jb.PowerOff()

	tracks := analyzeTestTracks(t, jb, 30)
	ids := make([]TrackID, 30)
	require.NoError(t, jb.SetMusicStyle(tracks[:20]))
	require.NoError(t, jb.AddTracks(tracks[:20], ids[:20], true))

	var buf bytes.Buffer
	_, err = jb.ToStream(&buf)
	require.NoError(t, err)

	restored, err := FromStream(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer restored.PowerOff()

	assert.Equal(t, jb.MethodName(), restored.MethodName())
	assert.Equal(t, jb.TrackCount(), restored.TrackCount())
	assert.Equal(t, jb.MaxTrackID(), restored.MaxTrackID())
	assert.Equal(t, jb.TrackIDs(), restored.TrackIDs())

	// similarity results survive the round trip bit for bit
	sims := make([]float32, 20)
	restoredSims := make([]float32, 20)
	require.NoError(t, jb.Similarity(tracks[3], ids[3], tracks[:20], ids[:20], sims))
	require.NoError(t, restored.Similarity(tracks[3], ids[3], tracks[:20], ids[:20], restoredSims))
	assert.Equal(t, sims, restoredSims)

	// both jukeboxes keep agreeing after registering the same new tracks
	moreIDs := make([]TrackID, 10)
	moreIDs2 := make([]TrackID, 10)
	require.NoError(t, jb.AddTracks(tracks[20:], moreIDs, true))
	require.NoError(t, restored.AddTracks(tracks[20:], moreIDs2, true))
	assert.Equal(t, moreIDs, moreIDs2)

	all := make([]float32, 30)
	allRestored := make([]float32, 30)
	allIDs := append(append([]TrackID{}, ids[:20]...), moreIDs...)
	require.NoError(t, jb.Similarity(tracks[25], moreIDs[5], tracks, allIDs, all))
	require.NoError(t, restored.Similarity(tracks[25], moreIDs[5], tracks, allIDs, allRestored))
	assert.Equal(t, all, allRestored)
}

// TestMusicStyleChange pins the contract that changing the music style on
// a non-empty jukebox leaves already-registered tracks with stale
// normalization state: the caller must re-register them.
func TestMusicStyleChange(t *testing.T) {
	jb, err := PowerOn("timbre", "")
	require.NoError(t, err)
	defer jb.PowerOff()

	tracks := analyzeTestTracks(t, jb, 12)
	ids := make([]TrackID, 12)
	require.NoError(t, jb.SetMusicStyle(tracks[:6]))
	require.NoError(t, jb.AddTracks(tracks, ids, true))

	sims := make([]float32, 12)
	require.NoError(t, jb.Similarity(tracks[0], ids[0], tracks, ids, sims))

	// switching to a different reference sample keeps the registrations
	// but their stats no longer describe the new references
	require.NoError(t, jb.SetMusicStyle(tracks[6:]))
	assert.Equal(t, 12, jb.TrackCount())

	// re-registering the same ids restores a consistent population
	require.NoError(t, jb.AddTracks(tracks, ids, false))
	assert.Equal(t, 12, jb.TrackCount())

	rebuilt := make([]float32, 12)
	require.NoError(t, jb.Similarity(tracks[0], ids[0], tracks, ids, rebuilt))
	require.NoError(t, jb.Similarity(tracks[0], ids[0], tracks, ids, sims))
	assert.Equal(t, rebuilt, sims)
}

func TestMandelEllisLifecycle(t *testing.T) {
	jb, err := PowerOn("mandelellis", "")
	require.NoError(t, err)
	defer jb.PowerOff()

	tracks := analyzeTestTracks(t, jb, 10)
	ids := make([]TrackID, 10)
	require.NoError(t, jb.SetMusicStyle(tracks))
	require.NoError(t, jb.AddTracks(tracks, ids, true))
	assert.Equal(t, 10, jb.TrackCount())
	assert.Equal(t, TrackID(9), jb.MaxTrackID())

	sims := make([]float32, 10)
	require.NoError(t, jb.Similarity(tracks[0], ids[0], tracks, ids, sims))

	// identical buffers compare as identical models
	assert.Zero(t, sims[0])
	for _, s := range sims[1:] {
		assert.GreaterOrEqual(t, s, float32(0))
	}

	// symmetric in both directions
	back := make([]float32, 1)
	require.NoError(t, jb.Similarity(tracks[3], ids[3], []Track{tracks[7]}, []TrackID{ids[7]}, back))
	forth := make([]float32, 1)
	require.NoError(t, jb.Similarity(tracks[7], ids[7], []Track{tracks[3]}, []TrackID{ids[3]}, forth))
	assert.InDelta(t, float64(back[0]), float64(forth[0]), 1e-5)
}
