package jukebox

// TrackID identifies a registered track. IDs may be caller-supplied or
// generated; they are signed so that -1 can act as a "not registered"
// placeholder.
type TrackID int32

// Track is a per-track feature block: a flat vector of 32-bit floats whose
// layout is decided by the method that produced it. It is a pure value
// owned by the caller and is never stored inside a jukebox.
type Track []float32

// TrackField describes one named segment of a track feature block
type TrackField struct {
	Name string
	Size int
}

// Clone returns an independent copy of the track
func (t Track) Clone() Track {
	c := make(Track, len(t))
	copy(c, t)
	return c
}
