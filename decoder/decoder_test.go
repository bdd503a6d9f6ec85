package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("ffmpeg is registered and default", func(t *testing.T) {
		d, name, err := New("")
		require.NoError(t, err)
		assert.Equal(t, "ffmpeg", name)
		assert.NotNil(t, d)
	})

	t.Run("lookup by name", func(t *testing.T) {
		_, name, err := New("ffmpeg")
		require.NoError(t, err)
		assert.Equal(t, "ffmpeg", name)
	})

	t.Run("unknown decoder is rejected", func(t *testing.T) {
		_, _, err := New("vinyl")
		assert.Error(t, err)
	})

	t.Run("list contains ffmpeg", func(t *testing.T) {
		assert.Contains(t, List(), "ffmpeg")
	})
}

func TestFFmpegConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultFFmpegConfig()
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Positive(t, cfg.Timeout)
}
