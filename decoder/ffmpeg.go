package decoder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/dominikschnitzer/musly/logging"
)

func init() {
	Register("ffmpeg", 0, func() Decoder { return NewFFmpegDecoder(defaultFFmpegConfig) })
}

var defaultFFmpegConfig = DefaultFFmpegConfig()

// SetDefaultFFmpegConfig overrides the configuration used by FFmpeg
// decoders created through the registry.
func SetDefaultFFmpegConfig(config *FFmpegConfig) {
	if config != nil {
		defaultFFmpegConfig = config
	}
}

// maxConsecutiveReadErrors bounds how many consecutive failed reads from the
// decode pipe are tolerated before the file is abandoned.
const maxConsecutiveReadErrors = 20

// FFmpegConfig holds the external binary paths and limits of the FFmpeg
// decoder.
type FFmpegConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultFFmpegConfig returns the default FFmpeg decoder configuration
func DefaultFFmpegConfig() *FFmpegConfig {
	return &FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     120 * time.Second,
	}
}

// FFmpegDecoder decodes audio files through an FFmpeg subprocess,
// resampling to 22050 Hz mono float on the way out.
type FFmpegDecoder struct {
	config *FFmpegConfig
	logger logging.Logger
}

// NewFFmpegDecoder creates an FFmpeg-backed decoder
func NewFFmpegDecoder(config *FFmpegConfig) *FFmpegDecoder {
	if config == nil {
		config = DefaultFFmpegConfig()
	}
	return &FFmpegDecoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "ffmpeg_decoder",
		}),
	}
}

// DecodeTo22050HzMonoFloat implements the Decoder contract
func (d *FFmpegDecoder) DecodeTo22050HzMonoFloat(file string, excerptLength, excerptStart float64) ([]float32, error) {
	logger := d.logger.WithFields(logging.Fields{
		"file": file,
	})
	logger.Trace("decoding started")

	fileLength, err := d.probeDuration(file)
	if err != nil {
		logger.Error(err, "could not probe audio file")
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	// adjust excerpt boundaries
	if excerptLength <= 0 || excerptLength > fileLength {
		// use full file
		excerptLength = 0
		excerptStart = 0
	} else if excerptStart < 0 {
		// center in file, but start at -excerptStart the latest
		excerptStart = math.Min(-excerptStart, (fileLength-excerptLength)/2)
	} else if excerptStart+excerptLength > fileLength {
		// right-align excerpt
		excerptStart = fileLength - excerptLength
	}
	logger.Trace("decode window", logging.Fields{
		"start":  excerptStart,
		"length": excerptLength,
	})

	pcm, err := d.decodeWindow(file, excerptStart, excerptLength)
	if err != nil {
		logger.Error(err, "decoding failed")
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: decoder produced no samples", ErrDecodeFailed)
	}

	logger.Trace("decoding finished", logging.Fields{
		"samples": len(pcm),
	})
	return pcm, nil
}

// probeDuration runs ffprobe on the file and returns its duration in
// seconds. Probing is one of the two globally serialized stages.
func (d *FFmpegDecoder) probeDuration(file string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		file,
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	openMu.Lock()
	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	openMu.Unlock()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return 0, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			Duration string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return 0, fmt.Errorf("no audio stream found")
	}

	duration, err := strconv.ParseFloat(probe.Streams[0].Duration, 64)
	if err != nil {
		// unknown stream length: decode everything and let the caller trim
		return math.Inf(1), nil
	}
	return duration, nil
}

// decodeWindow spawns ffmpeg and reads raw f32le samples from its stdout
func (d *FFmpegDecoder) decodeWindow(file string, start, length float64) ([]float32, error) {
	args := []string{"-v", "quiet"}
	if start > 0 {
		args = append(args, "-ss", strconv.FormatFloat(start, 'f', 3, 64))
	}
	args = append(args, "-i", file)
	if length > 0 {
		args = append(args, "-t", strconv.FormatFloat(length, 'f', 3, 64))
	}
	args = append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(TargetSampleRate),
		"-f", "f32le",
		"pipe:1",
	)

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	// starting the subprocess opens the codec; serialize it
	openMu.Lock()
	err = cmd.Start()
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	var pcm []float32
	buf := make([]byte, 4096*4)
	carry := 0
	readErrors := 0
	for {
		n, err := stdout.Read(buf[carry:])
		n += carry
		carry = 0

		whole := n / 4 * 4
		for i := 0; i < whole; i += 4 {
			bits := binary.LittleEndian.Uint32(buf[i:])
			pcm = append(pcm, math.Float32frombits(bits))
		}
		if whole < n {
			copy(buf, buf[whole:n])
			carry = n - whole
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			readErrors++
			if readErrors > maxConsecutiveReadErrors {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
				return nil, fmt.Errorf("%w: too many consecutive read errors", ErrDecodeFailed)
			}
			continue
		}
		readErrors = 0
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrDecodeFailed, err)
	}
	return pcm, nil
}
