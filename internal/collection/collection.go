// Package collection reads and writes the on-disk collection file: a log
// of (audio file path, serialized track block) records behind a header
// naming the similarity method that produced them.
package collection

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	headerMagic   = "MUSLY"
	headerVersion = "0"
)

// ErrDuplicateTrack is returned when a record's path was already read from
// this collection file.
var ErrDuplicateTrack = errors.New("duplicate track in collection file")

// File is a collection file on disk. Records are appended sequentially; a
// record with an empty payload marks a failed analysis.
type File struct {
	path   string
	method string

	f    *os.File
	r    *bufio.Reader
	w    *bufio.Writer
	seen map[string]bool
}

// New creates a handle for the collection file at path without opening it
func New(path string) *File {
	return &File{
		path: path,
		seen: make(map[string]bool),
	}
}

// Path returns the location of the collection file
func (c *File) Path() string {
	return c.path
}

// Method returns the similarity method recorded in the header
func (c *File) Method() string {
	return c.method
}

// Exists reports whether the collection file is present on disk
func (c *File) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// OpenRead opens the collection file for reading
func (c *File) OpenRead() error {
	return c.open(os.O_RDONLY)
}

// OpenWrite opens the collection file for writing, truncating it
func (c *File) OpenWrite() error {
	return c.open(os.O_WRONLY | os.O_CREATE | os.O_TRUNC)
}

// OpenAppend opens the collection file for appending records
func (c *File) OpenAppend() error {
	return c.open(os.O_WRONLY | os.O_CREATE | os.O_APPEND)
}

func (c *File) open(flag int) error {
	if c.f != nil {
		c.f.Close()
	}
	f, err := os.OpenFile(c.path, flag, 0o644)
	if err != nil {
		return err
	}
	c.f = f
	c.r = bufio.NewReader(f)
	c.w = bufio.NewWriter(f)
	return nil
}

// Close flushes pending writes and closes the file
func (c *File) Close() error {
	if c.f == nil {
		return nil
	}
	if err := c.w.Flush(); err != nil {
		c.f.Close()
		c.f = nil
		return err
	}
	err := c.f.Close()
	c.f = nil
	return err
}

// WriteHeader writes the "MUSLY-0-<method>" header
func (c *File) WriteHeader(method string) error {
	header := headerMagic + "-" + headerVersion + "-" + method
	if _, err := c.w.WriteString(header); err != nil {
		return err
	}
	return c.w.WriteByte(0)
}

// ReadHeader reads and validates the header and records the method name
func (c *File) ReadHeader() error {
	header, err := c.readString()
	if err != nil {
		return err
	}
	parts := strings.SplitN(header, "-", 3)
	if len(parts) != 3 || parts[0] != headerMagic || parts[1] != headerVersion {
		return fmt.Errorf("invalid collection file header %q", header)
	}
	c.method = parts[2]
	return nil
}

// ContainsTrack reports whether the path was seen while reading
func (c *File) ContainsTrack(file string) bool {
	return c.seen[file]
}

// AppendTrack writes one record. Empty data records an analysis failure.
func (c *File) AppendTrack(file string, data []byte) error {
	if _, err := c.w.WriteString(file); err != nil {
		return err
	}
	if err := c.w.WriteByte(0); err != nil {
		return err
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))
	if _, err := c.w.Write(size[:]); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := c.w.Write(data); err != nil {
			return err
		}
	}
	c.seen[file] = true
	return nil
}

// ReadTrack reads the next record and returns its path and payload.
// io.EOF signals a cleanly finished file; a repeated path returns
// ErrDuplicateTrack.
func (c *File) ReadTrack() (string, []byte, error) {
	file, err := c.readString()
	if err != nil {
		return "", nil, err
	}
	if file == "" {
		return "", nil, io.EOF
	}
	if c.seen[file] {
		return file, nil, ErrDuplicateTrack
	}

	var size [4]byte
	if _, err := io.ReadFull(c.r, size[:]); err != nil {
		return file, nil, err
	}
	sz := binary.BigEndian.Uint32(size[:])

	data := make([]byte, sz)
	if sz > 0 {
		if _, err := io.ReadFull(c.r, data); err != nil {
			return file, nil, err
		}
	}

	c.seen[file] = true
	return file, data, nil
}

func (c *File) readString() (string, error) {
	s, err := c.r.ReadString(0)
	if err != nil {
		if err == io.EOF && s == "" {
			return "", io.EOF
		}
		return "", err
	}
	return s[:len(s)-1], nil
}
