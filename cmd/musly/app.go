package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dominikschnitzer/musly/internal/collection"
	"github.com/dominikschnitzer/musly/internal/config"
	"github.com/dominikschnitzer/musly/jukebox"
)

// app carries the state shared by all command actions
type app struct {
	cfg  *config.Config
	opts *options
	jb   *jukebox.Jukebox
}

// loadedCollection is the in-memory form of a collection file
type loadedCollection struct {
	files  []string
	tracks []jukebox.Track
	ids    []jukebox.TrackID
}

// newCollection initializes the collection file with the given method
func (a *app) newCollection(method string) error {
	jb, err := jukebox.PowerOn(method, "")
	if err != nil {
		return fmt.Errorf("unknown musly method: %s", method)
	}
	a.jb = jb

	cf := collection.New(a.opts.collectionPath)
	if err := cf.OpenWrite(); err != nil {
		return err
	}
	if err := cf.WriteHeader(jb.MethodName()); err != nil {
		cf.Close()
		return err
	}
	if err := cf.Close(); err != nil {
		return err
	}

	fmt.Printf("Initialized music similarity method: %s\n", jb.MethodName())
	fmt.Printf("~~~\n%s\n~~~\n", jb.AboutMethod())
	fmt.Printf("Initialized collection file: %s\n", a.opts.collectionPath)

	// a stale jukebox state would not match the new collection
	if a.opts.jukeboxPath != "" {
		os.Remove(a.opts.jukeboxPath)
	}
	return nil
}

// openCollection reads the collection header and powers on a matching
// jukebox.
func (a *app) openCollection() (*collection.File, error) {
	cf := collection.New(a.opts.collectionPath)
	if !cf.Exists() {
		return nil, fmt.Errorf("collection file not found: %s (reinitialize with '-n')",
			a.opts.collectionPath)
	}
	if err := cf.OpenRead(); err != nil {
		return nil, err
	}
	if err := cf.ReadHeader(); err != nil {
		cf.Close()
		return nil, err
	}

	jb, err := jukebox.PowerOn(cf.Method(), "")
	if err != nil {
		cf.Close()
		return nil, fmt.Errorf("cannot initialize method %q from collection file", cf.Method())
	}
	a.jb = jb
	return cf, nil
}

// readTracks loads all successfully analyzed records of the collection
// file into memory.
func (a *app) readTracks(cf *collection.File) (*loadedCollection, error) {
	lc := &loadedCollection{}
	for {
		file, data, err := cf.ReadTrack()
		if err == io.EOF {
			break
		}
		if errors.Is(err, collection.ErrDuplicateTrack) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			// analysis failure record
			continue
		}

		track := a.jb.TrackAlloc()
		if _, err := a.jb.TrackFromBin(data, track); err != nil {
			continue
		}
		lc.files = append(lc.files, file)
		lc.tracks = append(lc.tracks, track)
	}
	return lc, nil
}

// initializeCollection registers all loaded tracks with the jukebox,
// setting the music style from the full track sample. When a jukebox state
// file is configured, a matching cached state short-circuits the
// initialization.
func (a *app) initializeCollection(lc *loadedCollection) error {
	if a.opts.jukeboxPath != "" {
		if cached, err := jukebox.FromFile(a.opts.jukeboxPath); err == nil {
			if cached.MethodName() == a.jb.MethodName() &&
				cached.TrackCount() == len(lc.tracks) {
				a.jb.PowerOff()
				a.jb = cached
				lc.ids = cached.TrackIDs()
				return nil
			}
			cached.PowerOff()
		}
	}

	if err := a.jb.SetMusicStyle(lc.tracks); err != nil {
		return err
	}
	lc.ids = make([]jukebox.TrackID, len(lc.tracks))
	if err := a.jb.AddTracks(lc.tracks, lc.ids, true); err != nil {
		return err
	}

	if a.opts.jukeboxPath != "" {
		if _, err := a.jb.ToFile(a.opts.jukeboxPath); err != nil {
			fmt.Fprintf(os.Stderr, "could not write jukebox state: %v\n", err)
		}
	}
	return nil
}

// loadCollection is the common "read everything and register it" path
func (a *app) loadCollection() (*loadedCollection, error) {
	cf, err := a.openCollection()
	if err != nil {
		return nil, err
	}
	defer cf.Close()

	lc, err := a.readTracks(cf)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Read %d musly tracks.\n", len(lc.tracks))
	if len(lc.tracks) == 0 {
		return nil, errors.New("collection file contains no analyzed tracks")
	}

	if err := a.initializeCollection(lc); err != nil {
		return nil, err
	}
	return lc, nil
}
