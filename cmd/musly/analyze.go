package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/dominikschnitzer/musly/internal/collection"
)

// analysisExcerptLength is the length in seconds of the excerpt decoded
// per file; the method layer further center-crops to its own maximum.
const analysisExcerptLength = 120

// findAudioFiles returns the given file, or all files under the given
// directory (recursively), filtered by extension when one is set.
func findAudioFiles(root, extension string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if extension != "" &&
			!strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), extension) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// analyzeFiles analyzes new audio files and appends their feature blocks
// to the collection file.
func (a *app) analyzeFiles(root, extension string) error {
	cf, err := a.openCollection()
	if err != nil {
		return err
	}

	// register all already-analyzed paths
	lc, err := a.readTracks(cf)
	if err != nil {
		cf.Close()
		return err
	}
	if err := cf.Close(); err != nil {
		return err
	}
	fmt.Printf("Read %d musly tracks.\n", len(lc.tracks))

	files, err := findAudioFiles(root, extension)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No files found while scanning: %s\n", root)
		return nil
	}

	appendCF := collection.New(a.opts.collectionPath)
	if err := appendCF.OpenAppend(); err != nil {
		return err
	}
	defer appendCF.Close()

	bar := progressbar.Default(int64(len(files)), "analyzing")
	track := a.jb.TrackAlloc()
	buf := make([]byte, a.jb.TrackBinSize())
	analyzed := 0
	failed := 0
	for _, file := range files {
		bar.Add(1)
		if cf.ContainsTrack(file) {
			continue
		}

		if err := a.jb.AnalyzeAudioFile(file, analysisExcerptLength, 0, track); err != nil {
			fmt.Fprintf(os.Stderr, "analysis failed: %s: %v\n", file, err)
			failed++
			continue
		}
		if _, err := a.jb.TrackToBin(track, buf); err != nil {
			fmt.Fprintf(os.Stderr, "serialization failed: %s: %v\n", file, err)
			failed++
			continue
		}
		if err := appendCF.AppendTrack(file, buf); err != nil {
			return err
		}
		analyzed++
	}

	fmt.Printf("Analyzed %d new tracks, %d failures.\n", analyzed, failed)

	// the cached jukebox state is stale now
	if a.opts.jukeboxPath != "" && analyzed > 0 {
		os.Remove(a.opts.jukeboxPath)
	}
	return nil
}
