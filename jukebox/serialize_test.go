package jukebox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	jb, err := PowerOn("timbre", "")
	require.NoError(t, err)
	t.Cleanup(jb.PowerOff)

	t.Run("round trip is bit exact", func(t *testing.T) {
		t.Parallel()
		track := jb.TrackAlloc()
		for i := range track {
			track[i] = float32(i)*0.125 - 20.0
		}

		buf := make([]byte, jb.TrackBinSize())
		written, err := jb.TrackToBin(track, buf)
		require.NoError(t, err)
		assert.Equal(t, jb.TrackBinSize(), written)

		restored := jb.TrackAlloc()
		read, err := jb.TrackFromBin(buf, restored)
		require.NoError(t, err)
		assert.Equal(t, jb.TrackBinSize(), read)
		assert.Equal(t, track, restored)
	})

	t.Run("binsize matches the float count", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, jb.TrackSize()*4, jb.TrackBinSize())
	})

	t.Run("encoding is big endian", func(t *testing.T) {
		t.Parallel()
		track := jb.TrackAlloc()
		track[0] = 1.0 // 0x3f800000

		buf := make([]byte, jb.TrackBinSize())
		_, err := jb.TrackToBin(track, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x3f, 0x80, 0x00, 0x00}, buf[:4])
	})

	t.Run("short buffers are rejected", func(t *testing.T) {
		t.Parallel()
		track := jb.TrackAlloc()
		_, err := jb.TrackToBin(track, make([]byte, 8))
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = jb.TrackFromBin(make([]byte, 8), track)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestJukeboxStreamRefusal(t *testing.T) {
	t.Parallel()

	serialized := func(t *testing.T) []byte {
		jb, err := PowerOn("timbre", "")
		require.NoError(t, err)
		defer jb.PowerOff()

		tracks := analyzeTestTracks(t, jb, 2)
		ids := make([]TrackID, 2)
		require.NoError(t, jb.SetMusicStyle(tracks))
		require.NoError(t, jb.AddTracks(tracks, ids, true))

		var buf bytes.Buffer
		_, err = jb.ToStream(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}

	t.Run("refuses a wrong version", func(t *testing.T) {
		t.Parallel()
		data := serialized(t)
		data[0] = 'X'

		_, err := FromStream(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrFormatMismatch)
	})

	t.Run("refuses a wrong integer size", func(t *testing.T) {
		t.Parallel()
		data := serialized(t)
		data[len(version)+1] = 8

		_, err := FromStream(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrFormatMismatch)
	})

	t.Run("refuses a wrong byte order", func(t *testing.T) {
		t.Parallel()
		data := serialized(t)
		probeOffset := len(version) + 1 + 1
		data[probeOffset], data[probeOffset+3] = data[probeOffset+3], data[probeOffset]

		_, err := FromStream(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrFormatMismatch)
	})

	t.Run("refuses a truncated stream", func(t *testing.T) {
		t.Parallel()
		data := serialized(t)

		_, err := FromStream(bytes.NewReader(data[:len(data)-3]))
		assert.ErrorIs(t, err, ErrIOFailed)
	})

	t.Run("ignores trailing bytes", func(t *testing.T) {
		t.Parallel()
		data := append(serialized(t), []byte("caller payload")...)

		jb, err := FromStream(bytes.NewReader(data))
		require.NoError(t, err)
		defer jb.PowerOff()
		assert.Equal(t, 2, jb.TrackCount())
	})
}
