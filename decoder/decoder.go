// Package decoder turns audio files into the mono 22050 Hz float PCM the
// analysis pipeline consumes. Decoders register themselves by name; the
// jukebox resolves them the same way it resolves similarity methods.
package decoder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDecodeFailed is returned when a decoder produced no usable output
var ErrDecodeFailed = errors.New("audio decoding failed")

// TargetSampleRate is the fixed output rate of every decoder
const TargetSampleRate = 22050

// Decoder decodes an audio file into mono float PCM at 22050 Hz with
// amplitudes in [-1, +1]. Stereo sources are downmixed by averaging.
//
// excerptLength selects the length of the decoded excerpt in seconds
// (0 decodes the full file). A non-negative excerptStart is the offset in
// seconds; a negative value centers the excerpt in the file but starts no
// later than -excerptStart seconds.
type Decoder interface {
	DecodeTo22050HzMonoFloat(file string, excerptLength, excerptStart float64) ([]float32, error)
}

// openMu serializes the stream-probe and codec-open stages across all
// concurrent decodes; the underlying libraries are not safe to open from
// multiple goroutines at once.
var openMu sync.Mutex

type decoderEntry struct {
	name     string
	priority int
	create   func() Decoder
}

var registry = map[string]decoderEntry{}

// Register adds a decoder factory under the given name. The decoder with
// the highest priority is used when no name is requested.
func Register(name string, priority int, create func() Decoder) {
	registry[name] = decoderEntry{name: name, priority: priority, create: create}
}

// New instantiates the named decoder, or the default (highest priority)
// decoder when name is empty. It returns the decoder and its resolved name.
func New(name string) (Decoder, string, error) {
	if name != "" {
		entry, ok := registry[name]
		if !ok {
			return nil, "", fmt.Errorf("unknown decoder %q", name)
		}
		return entry.create(), entry.name, nil
	}

	best := decoderEntry{priority: -1}
	for _, entry := range registry {
		if entry.priority > best.priority {
			best = entry
		}
	}
	if best.create == nil {
		return nil, "", errors.New("no decoders registered")
	}
	return best.create(), best.name, nil
}

// List returns the names of all registered decoders, comma-separated
func List() string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ","
		}
		out += name
	}
	return out
}
