package jukebox

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dominikschnitzer/musly/logging"
)

// Binary serialization of tracks and whole jukebox state.
//
// Individual track blocks serialize each float as its IEEE-754 bit pattern
// in network byte order, for portable transport. Whole-jukebox state is a
// sequential stream in the writer's native byte order; its header records
// the library version, the writer's integer width and a byte-order probe,
// and readers refuse any mismatch.

// byteOrderProbe detects byte-order mismatches in serialized jukebox state
const byteOrderProbe uint32 = 0x01020304

// intSize is the wire width of every integer in the stream format
const intSize = 4

// TrackBinSize returns the number of bytes of a serialized track block
func (j *Jukebox) TrackBinSize() int {
	if j.method == nil {
		return -1
	}
	return j.method.TrackSize() * 4
}

// TrackToBin serializes a track block into buf in network byte order and
// returns the number of bytes written.
func (j *Jukebox) TrackToBin(track Track, buf []byte) (int, error) {
	if j.method == nil || track == nil || buf == nil {
		return 0, ErrInvalidArgument
	}
	size := j.TrackBinSize()
	if len(track) != j.method.TrackSize() || len(buf) < size {
		return 0, ErrInvalidArgument
	}
	for i, v := range track {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return size, nil
}

// TrackFromBin deserializes a track block from buf and returns the number
// of bytes consumed.
func (j *Jukebox) TrackFromBin(buf []byte, track Track) (int, error) {
	if j.method == nil || track == nil || buf == nil {
		return 0, ErrInvalidArgument
	}
	size := j.TrackBinSize()
	if len(track) != j.method.TrackSize() || len(buf) < size {
		return 0, ErrInvalidArgument
	}
	for i := range track {
		track[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return size, nil
}

// BinSize returns the byte length of the serialized jukebox state: the
// method metadata if header is set, plus numTracks per-track entries
// (numTracks < 0 means all registered tracks).
func (j *Jukebox) BinSize(header bool, numTracks int) int {
	if j.method == nil {
		return -1
	}
	size := 0
	if header {
		size = j.method.MetadataSize()
	}
	if numTracks < 0 {
		numTracks = j.method.TrackCount()
	}
	return size + numTracks*j.method.TrackdataSize()
}

// ToBin serializes method metadata (if header is set) and numTracks
// per-track entries starting at skipTracks into buf. numTracks < 0 means
// all remaining tracks. Returns the number of bytes written.
func (j *Jukebox) ToBin(buf []byte, header bool, numTracks, skipTracks int) (int, error) {
	if j.method == nil || skipTracks < 0 {
		return 0, ErrInvalidArgument
	}
	written := 0
	if header {
		written += j.method.SerializeMetadata(buf)
	}
	trackCount := j.method.TrackCount()
	if numTracks < 0 || numTracks+skipTracks > trackCount {
		numTracks = trackCount - skipTracks
		if numTracks < 0 {
			return 0, ErrInvalidArgument
		}
	}
	if numTracks > 0 {
		n, err := j.method.SerializeTrackdata(buf[written:], numTracks, skipTracks)
		if err != nil {
			return 0, err
		}
		written += n
	}
	return written, nil
}

// FromBin restores method metadata (if header is set) and numTracks
// per-track entries from buf. With header set and numTracks == 0 it only
// restores the metadata; numTracks < 0 restores as many entries as the
// metadata declared. Returns the number of per-track entries restored, or
// declared when only the metadata was read.
func (j *Jukebox) FromBin(buf []byte, header bool, numTracks int) (int, error) {
	if j.method == nil || (numTracks < 0 && !header) {
		return 0, ErrInvalidArgument
	}
	offset := 0
	if header {
		expectedTracks, err := j.method.DeserializeMetadata(buf)
		if err != nil {
			return 0, err
		}
		if numTracks == 0 {
			return expectedTracks, nil
		}
		if numTracks < 0 {
			numTracks = expectedTracks
		}
		offset = j.method.MetadataSize()
	}
	if numTracks > 0 {
		if err := j.method.DeserializeTrackdata(buf[offset:], numTracks); err != nil {
			return 0, err
		}
	}
	return numTracks, nil
}

// ToStream writes the full jukebox state to w sequentially, without seeks.
// Per-track entries go out in chunks of about 64 KiB; one chunk is the
// atomic unit of progress. Returns the number of bytes written.
func (j *Jukebox) ToStream(w io.Writer) (int, error) {
	if j.method == nil {
		return 0, ErrInvalidArgument
	}

	sizeHead := j.BinSize(true, 0)
	sizeTrack := j.method.TrackdataSize()

	written := 0
	writeAll := func(p []byte) error {
		n, err := w.Write(p)
		written += n
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIOFailed, err)
		}
		return nil
	}
	writeString := func(s string) error {
		return writeAll(append([]byte(s), 0))
	}

	// version and platform information
	if err := writeString(version); err != nil {
		return written, err
	}
	platform := make([]byte, 1+4)
	platform[0] = intSize
	binary.NativeEndian.PutUint32(platform[1:], byteOrderProbe)
	if err := writeAll(platform); err != nil {
		return written, err
	}

	// general jukebox information
	if err := writeString(j.methodName); err != nil {
		return written, err
	}
	if err := writeString(j.decoderName); err != nil {
		return written, err
	}

	// method-specific header
	head := make([]byte, 4+sizeHead)
	binary.NativeEndian.PutUint32(head[0:], uint32(sizeHead))
	if _, err := j.ToBin(head[4:], true, 0, 0); err != nil {
		return written, err
	}
	if err := writeAll(head); err != nil {
		return written, err
	}

	// per-track entries in chunks of about 64 KiB
	numTracks := j.method.TrackCount()
	batchSize := max(65536/sizeTrack, 1)
	batchSize = min(batchSize, max(numTracks, 1))
	buf := make([]byte, sizeTrack*batchSize)
	for i := 0; i < numTracks; i += batchSize {
		count := min(batchSize, numTracks-i)
		n, err := j.ToBin(buf, false, count, i)
		if err != nil {
			return written, err
		}
		if err := writeAll(buf[:n]); err != nil {
			return written, err
		}
	}

	return written, nil
}

// FromStream reads jukebox state written by ToStream and returns a freshly
// powered-on jukebox holding it. Streams written with a different library
// version, integer width or byte order are refused. Bytes after the
// jukebox state are left unread.
func FromStream(r io.Reader) (*Jukebox, error) {
	br := bufio.NewReader(r)
	logger := logging.WithFields(logging.Fields{
		"component": "jukebox",
	})

	readString := func() (string, error) {
		s, err := br.ReadString(0)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIOFailed, err)
		}
		return s[:len(s)-1], nil
	}

	// version and platform information
	fileVersion, err := readString()
	if err != nil {
		return nil, err
	}
	if fileVersion != version {
		logger.Error(nil, "file was written with a different library version", logging.Fields{
			"file_version": fileVersion,
			"expected":     version,
		})
		return nil, fmt.Errorf("%w: version %q", ErrFormatMismatch, fileVersion)
	}
	platform := make([]byte, 1+4)
	if _, err := io.ReadFull(br, platform); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	if platform[0] != intSize {
		logger.Error(nil, "file was written with a different integer size", logging.Fields{
			"file_int_size": platform[0],
		})
		return nil, fmt.Errorf("%w: integer size %d", ErrFormatMismatch, platform[0])
	}
	if binary.NativeEndian.Uint32(platform[1:]) != byteOrderProbe {
		logger.Error(nil, "file was written with a different byte order")
		return nil, fmt.Errorf("%w: byte order", ErrFormatMismatch)
	}

	// general jukebox information
	methodName, err := readString()
	if err != nil {
		return nil, err
	}
	decoderName, err := readString()
	if err != nil {
		return nil, err
	}

	j, err := PowerOn(methodName, decoderName)
	if err != nil {
		return nil, err
	}

	// method-specific header
	sizeBuf := make([]byte, 4)
	if _, err := io.ReadFull(br, sizeBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	sizeHead := int(int32(binary.NativeEndian.Uint32(sizeBuf)))
	if sizeHead < 0 {
		return nil, fmt.Errorf("%w: negative header size", ErrFormatMismatch)
	}
	head := make([]byte, sizeHead)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	expectedTracks, err := j.FromBin(head, true, 0)
	if err != nil {
		return nil, err
	}

	// per-track entries in chunks of about 64 KiB
	sizeTrack := j.method.TrackdataSize()
	batchSize := max(65536/sizeTrack, 1)
	batchSize = min(batchSize, max(expectedTracks, 1))
	buf := make([]byte, sizeTrack*batchSize)
	for expectedTracks > 0 {
		count := min(expectedTracks, batchSize)
		if _, err := io.ReadFull(br, buf[:count*sizeTrack]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
		}
		if _, err := j.FromBin(buf[:count*sizeTrack], false, count); err != nil {
			return nil, err
		}
		expectedTracks -= count
	}

	return j, nil
}

// ToFile writes the jukebox state to the named file
func (j *Jukebox) ToFile(filename string) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}

	written, err := j.ToStream(f)
	if err != nil {
		f.Close()
		return written, err
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return written, nil
}

// FromFile reads jukebox state from the named file
func FromFile(filename string) (*Jukebox, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	defer f.Close()

	return FromStream(f)
}
