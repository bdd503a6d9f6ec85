// Package jukebox implements a content-based music similarity engine. A
// Jukebox couples a similarity method (its global normalization state and
// per-track auxiliary index) with an audio decoder; track feature blocks
// themselves stay with the caller.
//
// Mutating operations (SetMusicStyle, AddTracks, RemoveTracks and all
// deserialization) require exclusive access; similarity queries and
// neighbor guesses are read-only and may run concurrently with each other.
// The contract is one writer xor many readers, enforced by the caller.
package jukebox

import (
	"fmt"

	"github.com/dominikschnitzer/musly/decoder"
	"github.com/dominikschnitzer/musly/logging"
)

// version tags serialized jukebox state; deserialization refuses other
// versions.
const version = "0.2"

// Version returns the library version
func Version() string {
	return version
}

// SetDebugLevel adjusts the global log verbosity, 0 (quiet) to 5 (trace)
func SetDebugLevel(level int) {
	logging.SetLevel(logging.FromVerbosity(level))
}

// ListDecoders returns the names of all registered decoders,
// comma-separated.
func ListDecoders() string {
	return decoder.List()
}

// Jukebox owns a similarity method and an audio decoder. Created by
// PowerOn, released by PowerOff.
type Jukebox struct {
	method      Method
	methodName  string
	dec         decoder.Decoder
	decoderName string
}

// PowerOn creates a jukebox with the named method and decoder. Empty names
// select the defaults.
func PowerOn(methodName, decoderName string) (*Jukebox, error) {
	m, resolvedMethod, err := newMethod(methodName)
	if err != nil {
		return nil, err
	}
	d, resolvedDecoder, err := decoder.New(decoderName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return &Jukebox{
		method:      m,
		methodName:  resolvedMethod,
		dec:         d,
		decoderName: resolvedDecoder,
	}, nil
}

// PowerOff releases the jukebox. Any further use is invalid.
func (j *Jukebox) PowerOff() {
	j.method = nil
	j.dec = nil
}

// MethodName returns the resolved name of the similarity method
func (j *Jukebox) MethodName() string {
	return j.methodName
}

// DecoderName returns the resolved name of the audio decoder
func (j *Jukebox) DecoderName() string {
	return j.decoderName
}

// AboutMethod describes the similarity method
func (j *Jukebox) AboutMethod() string {
	if j.method == nil {
		return ""
	}
	return j.method.About()
}

// SetMusicStyle captures a representative sample of the collection the
// jukebox will hold. Must be called before AddTracks; calling it again
// invalidates the auxiliary state of all registered tracks, which must be
// re-added.
func (j *Jukebox) SetMusicStyle(tracks []Track) error {
	if j.method == nil {
		return ErrInvalidArgument
	}
	return j.method.SetMusicStyle(tracks)
}

// AddTracks registers the given tracks. With generateIDs set, fresh
// contiguous ascending ids are written into ids. A failed add leaves no
// partial registration behind.
func (j *Jukebox) AddTracks(tracks []Track, ids []TrackID, generateIDs bool) error {
	if j.method == nil {
		return ErrInvalidArgument
	}
	return j.method.AddTracks(tracks, ids, generateIDs)
}

// RemoveTracks deregisters the given ids; unknown ids are skipped
func (j *Jukebox) RemoveTracks(ids []TrackID) error {
	if j.method == nil {
		return ErrInvalidArgument
	}
	j.method.RemoveTracks(ids)
	return nil
}

// TrackCount returns the number of registered tracks
func (j *Jukebox) TrackCount() int {
	if j.method == nil {
		return -1
	}
	return j.method.TrackCount()
}

// MaxTrackID returns the largest id ever registered, or -1
func (j *Jukebox) MaxTrackID() TrackID {
	if j.method == nil {
		return -1
	}
	return j.method.MaxTrackID()
}

// TrackIDs returns the registered track ids
func (j *Jukebox) TrackIDs() []TrackID {
	if j.method == nil {
		return nil
	}
	return j.method.TrackIDs()
}

// Similarity fills sims[i] with the dissimilarity between the seed track
// and tracks[i], in input order.
func (j *Jukebox) Similarity(seed Track, seedID TrackID, tracks []Track, ids []TrackID, sims []float32) error {
	if j.method == nil {
		return ErrInvalidArgument
	}
	return j.method.Similarity(seed, seedID, tracks, ids, sims)
}

// GuessNeighbors proposes up to len(neighbors) likely neighbors of the
// seed. Returns -1 if the method has no index and all tracks should be
// considered.
func (j *Jukebox) GuessNeighbors(seed TrackID, neighbors []TrackID) int {
	return j.GuessNeighborsFiltered(seed, neighbors, nil)
}

// GuessNeighborsFiltered is GuessNeighbors limited to the given candidates
func (j *Jukebox) GuessNeighborsFiltered(seed TrackID, neighbors []TrackID, limitTo []TrackID) int {
	if j.method == nil {
		return -1
	}
	return j.method.GuessNeighbors(seed, neighbors, limitTo)
}

// TrackSize returns the number of floats in a track feature block
func (j *Jukebox) TrackSize() int {
	if j.method == nil {
		return -1
	}
	return j.method.TrackSize()
}

// TrackAlloc allocates a zeroed track feature block for this jukebox
func (j *Jukebox) TrackAlloc() Track {
	if j.method == nil {
		return nil
	}
	return j.method.TrackAlloc()
}

// TrackFields returns the labeled layout of a track feature block
func (j *Jukebox) TrackFields() []TrackField {
	if j.method == nil {
		return nil
	}
	return j.method.TrackFields()
}

// TrackToString renders a track block for debugging; not safe for
// concurrent use.
func (j *Jukebox) TrackToString(track Track) string {
	if j.method == nil {
		return ""
	}
	return j.method.TrackToString(track)
}

// AnalyzePCM computes the feature block of a mono 22050 Hz float PCM
// signal with amplitudes in [-1, +1]. At most the central 60 seconds are
// analyzed.
func (j *Jukebox) AnalyzePCM(pcm []float32, track Track) error {
	if j.method == nil || len(pcm) == 0 || track == nil {
		return ErrInvalidArgument
	}
	return j.method.AnalyzeTrack(pcm, track)
}

// AnalyzeAudioFile decodes the given excerpt of an audio file and computes
// its feature block. excerptLength of 0 decodes the whole file; a negative
// excerptStart centers the excerpt, starting no later than -excerptStart
// seconds.
func (j *Jukebox) AnalyzeAudioFile(file string, excerptLength, excerptStart float64, track Track) error {
	if j.method == nil || j.dec == nil || track == nil {
		return ErrInvalidArgument
	}

	pcm, err := j.dec.DecodeTo22050HzMonoFloat(file, excerptLength, excerptStart)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if len(pcm) == 0 {
		return ErrDecodeFailed
	}

	return j.method.AnalyzeTrack(pcm, track)
}
