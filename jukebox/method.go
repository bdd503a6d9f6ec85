package jukebox

import (
	"fmt"
	"strings"
)

// Method is the capability interface every music similarity method
// implements. The set of methods is closed at build time; each method is a
// self-registering variant (see registry.go).
type Method interface {
	// About returns a short description of the similarity method
	About() string

	// TrackSize returns the number of floats in a track feature block
	TrackSize() int

	// TrackAlloc allocates a zeroed track feature block
	TrackAlloc() Track

	// TrackFields returns the labeled layout of a track feature block
	TrackFields() []TrackField

	// TrackToString renders a track block for debugging. It reuses a
	// single internal buffer and is not safe for concurrent use.
	TrackToString(track Track) string

	// AnalyzeTrack computes the feature block of a PCM signal
	AnalyzeTrack(pcm []float32, track Track) error

	// Similarity fills sims[i] with the dissimilarity between the seed
	// track and tracks[i]. Outputs preserve the order of the input list.
	Similarity(seed Track, seedID TrackID, tracks []Track, ids []TrackID, sims []float32) error

	// GuessNeighbors proposes up to len(neighbors) likely neighbors of the
	// seed without touching per-track feature data, optionally limited to
	// the given candidate filter. Returns -1 if the method has no index
	// and all tracks should be considered.
	GuessNeighbors(seed TrackID, neighbors []TrackID, limitTo []TrackID) int

	// SetMusicStyle captures a representative sample of the collection.
	// Must be called before AddTracks on methods that require it; calling
	// it again invalidates the auxiliary state of all registered tracks.
	SetMusicStyle(tracks []Track) error

	// AddTracks registers the given tracks. With generateIDs set, fresh
	// contiguous ascending ids are written into ids; otherwise ids supplies
	// caller-chosen ids and duplicates replace the existing registration.
	AddTracks(tracks []Track, ids []TrackID, generateIDs bool) error

	// RemoveTracks deregisters the given ids; unknown ids are skipped
	RemoveTracks(ids []TrackID)

	// TrackCount returns the number of registered tracks
	TrackCount() int

	// MaxTrackID returns the largest id ever registered, or -1
	MaxTrackID() TrackID

	// TrackIDs returns the registered ids
	TrackIDs() []TrackID

	// MetadataSize returns the byte length of the serialized method state
	MetadataSize() int

	// SerializeMetadata writes the method state into buf and returns the
	// number of bytes written.
	SerializeMetadata(buf []byte) int

	// DeserializeMetadata restores method state from buf and returns the
	// number of per-track entries that follow in the stream.
	DeserializeMetadata(buf []byte) (int, error)

	// TrackdataSize returns the byte length of one per-track entry
	TrackdataSize() int

	// SerializeTrackdata writes numTracks per-track entries, skipping the
	// first skipTracks, and returns the number of bytes written.
	SerializeTrackdata(buf []byte, numTracks, skipTracks int) (int, error)

	// DeserializeTrackdata restores numTracks per-track entries
	DeserializeTrackdata(buf []byte, numTracks int) error
}

// methodBase carries the track field layout shared by all methods and the
// debug string formatter.
type methodBase struct {
	fields    []TrackField
	trackSize int
	strBuf    strings.Builder
}

// addTrackField appends a named float segment to the track layout and
// returns its starting offset.
func (b *methodBase) addTrackField(name string, numFloats int) int {
	b.fields = append(b.fields, TrackField{Name: name, Size: numFloats})
	offset := b.trackSize
	b.trackSize += numFloats
	return offset
}

func (b *methodBase) TrackSize() int {
	return b.trackSize
}

func (b *methodBase) TrackAlloc() Track {
	return make(Track, b.trackSize)
}

func (b *methodBase) TrackFields() []TrackField {
	fields := make([]TrackField, len(b.fields))
	copy(fields, b.fields)
	return fields
}

// TrackToString renders "field: v v .." lines into the shared buffer; it is
// not safe for concurrent use.
func (b *methodBase) TrackToString(track Track) string {
	b.strBuf.Reset()
	offset := 0
	for _, f := range b.fields {
		b.strBuf.WriteString(f.Name)
		b.strBuf.WriteString(":")
		for j := 0; j < f.Size; j++ {
			fmt.Fprintf(&b.strBuf, " %f", track[offset])
			offset++
		}
		b.strBuf.WriteString("\n")
	}
	return b.strBuf.String()
}
