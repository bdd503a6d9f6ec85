package collection

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionFile(t *testing.T) {
	t.Parallel()

	t.Run("header round trip", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.musly")

		w := New(path)
		require.NoError(t, w.OpenWrite())
		require.NoError(t, w.WriteHeader("timbre"))
		require.NoError(t, w.Close())

		r := New(path)
		require.True(t, r.Exists())
		require.NoError(t, r.OpenRead())
		require.NoError(t, r.ReadHeader())
		assert.Equal(t, "timbre", r.Method())
		require.NoError(t, r.Close())
	})

	t.Run("rejects a foreign header", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.musly")

		w := New(path)
		require.NoError(t, w.OpenWrite())
		_, err := w.w.WriteString("GARBAGE\x00")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r := New(path)
		require.NoError(t, r.OpenRead())
		assert.Error(t, r.ReadHeader())
		r.Close()
	})

	t.Run("records round trip in order", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.musly")

		w := New(path)
		require.NoError(t, w.OpenWrite())
		require.NoError(t, w.WriteHeader("timbre"))
		require.NoError(t, w.AppendTrack("/music/a.mp3", []byte{1, 2, 3, 4}))
		require.NoError(t, w.AppendTrack("/music/b.mp3", nil)) // failed analysis
		require.NoError(t, w.AppendTrack("/music/c.mp3", []byte{9}))
		require.NoError(t, w.Close())

		r := New(path)
		require.NoError(t, r.OpenRead())
		require.NoError(t, r.ReadHeader())

		file, data, err := r.ReadTrack()
		require.NoError(t, err)
		assert.Equal(t, "/music/a.mp3", file)
		assert.Equal(t, []byte{1, 2, 3, 4}, data)

		file, data, err = r.ReadTrack()
		require.NoError(t, err)
		assert.Equal(t, "/music/b.mp3", file)
		assert.Empty(t, data)

		file, _, err = r.ReadTrack()
		require.NoError(t, err)
		assert.Equal(t, "/music/c.mp3", file)
		assert.True(t, r.ContainsTrack("/music/c.mp3"))

		_, _, err = r.ReadTrack()
		assert.Equal(t, io.EOF, err)
		require.NoError(t, r.Close())
	})

	t.Run("duplicate paths stop the read", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.musly")

		w := New(path)
		require.NoError(t, w.OpenWrite())
		require.NoError(t, w.WriteHeader("timbre"))
		require.NoError(t, w.AppendTrack("/music/a.mp3", []byte{1}))
		require.NoError(t, w.AppendTrack("/music/a.mp3", []byte{2}))
		require.NoError(t, w.Close())

		r := New(path)
		require.NoError(t, r.OpenRead())
		require.NoError(t, r.ReadHeader())

		_, _, err := r.ReadTrack()
		require.NoError(t, err)
		_, _, err = r.ReadTrack()
		assert.ErrorIs(t, err, ErrDuplicateTrack)
		r.Close()
	})

	t.Run("append extends an existing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.musly")

		w := New(path)
		require.NoError(t, w.OpenWrite())
		require.NoError(t, w.WriteHeader("mandelellis"))
		require.NoError(t, w.AppendTrack("/music/a.mp3", []byte{1}))
		require.NoError(t, w.Close())

		aw := New(path)
		require.NoError(t, aw.OpenAppend())
		require.NoError(t, aw.AppendTrack("/music/b.mp3", []byte{2}))
		require.NoError(t, aw.Close())

		r := New(path)
		require.NoError(t, r.OpenRead())
		require.NoError(t, r.ReadHeader())
		count := 0
		for {
			_, _, err := r.ReadTrack()
			if err != nil {
				break
			}
			count++
		}
		assert.Equal(t, 2, count)
		r.Close()
	})
}
