package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dominikschnitzer/musly/internal/collection"
)

// listCollection lists all records in the collection file
func (a *app) listCollection() error {
	cf, err := a.openCollection()
	if err != nil {
		return err
	}
	defer cf.Close()

	count := 0
	for {
		file, data, err := cf.ReadTrack()
		if err == io.EOF || errors.Is(err, collection.ErrDuplicateTrack) {
			break
		}
		if err != nil {
			return err
		}
		fmt.Printf("track-id: %d, track-size: %d bytes, track-origin: %s\n",
			count, len(data), file)
		count++
	}
	fmt.Printf("Tracks in collection: %d\n", count)
	return nil
}

// dumpCollection prints the deserialized features of every record
func (a *app) dumpCollection() error {
	cf, err := a.openCollection()
	if err != nil {
		return err
	}
	defer cf.Close()

	track := a.jb.TrackAlloc()
	for {
		file, data, err := cf.ReadTrack()
		if err == io.EOF || errors.Is(err, collection.ErrDuplicateTrack) {
			break
		}
		if err != nil {
			return err
		}
		fmt.Println(file)
		if len(data) == 0 {
			continue
		}
		if _, err := a.jb.TrackFromBin(data, track); err == nil {
			fmt.Println(a.jb.TrackToString(track))
		}
	}
	return nil
}
