package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dominikschnitzer/musly/jukebox"
)

// knn holds the k nearest neighbors of one seed as indices into the
// loaded collection.
type knn struct {
	indices []int
	sims    []float32
}

// computeKNN returns the k nearest neighbors of the seed track. The seed
// itself is always excluded; with an artist filter, tracks sharing the
// seed's artist are excluded too.
func (a *app) computeKNN(lc *loadedCollection, seed jukebox.Track, seedID jukebox.TrackID,
	seedArtist string, artists []string, k int) (*knn, error) {

	n := len(lc.tracks)
	sims := make([]float32, n)

	// neighbor index shortcut, when the method has one
	guessIDs := make([]jukebox.TrackID, n/10)
	if guessed := a.jb.GuessNeighbors(seedID, guessIDs); guessed > 0 {
		idToIdx := make(map[jukebox.TrackID]int, n)
		for i, id := range lc.ids {
			idToIdx[id] = i
		}
		guessTracks := make([]jukebox.Track, 0, guessed)
		guessTrackIDs := make([]jukebox.TrackID, 0, guessed)
		guessIdx := make([]int, 0, guessed)
		for _, id := range guessIDs[:guessed] {
			if idx, ok := idToIdx[id]; ok {
				guessTracks = append(guessTracks, lc.tracks[idx])
				guessTrackIDs = append(guessTrackIDs, id)
				guessIdx = append(guessIdx, idx)
			}
		}
		guessSims := make([]float32, len(guessTracks))
		err := a.jb.Similarity(seed, seedID, guessTracks, guessTrackIDs, guessSims)
		if err != nil {
			return nil, err
		}
		for i, idx := range guessIdx {
			if lc.ids[idx] == seedID ||
				(artists != nil && artists[idx] == seedArtist) {
				guessSims[i] = float32(math.Inf(1))
			}
		}
		minSims, minIdx, err := jukebox.FindMin(guessSims, nil, min(k, len(guessSims)), true)
		if err != nil {
			return nil, err
		}
		result := &knn{sims: minSims}
		for _, gi := range minIdx {
			result.indices = append(result.indices, guessIdx[int(gi)])
		}
		return result, nil
	}

	if err := a.jb.Similarity(seed, seedID, lc.tracks, lc.ids, sims); err != nil {
		return nil, err
	}
	for i := range sims {
		if lc.ids[i] == seedID ||
			(artists != nil && artists[i] == seedArtist) {
			sims[i] = float32(math.Inf(1))
		}
	}

	minSims, minIdx, err := jukebox.FindMin(sims, nil, min(k, n), true)
	if err != nil {
		return nil, err
	}
	result := &knn{sims: minSims}
	for _, idx := range minIdx {
		result.indices = append(result.indices, int(idx))
	}
	return result, nil
}

// printPlaylist prints the k most similar collection tracks for the given
// file. A file not present in the collection is analyzed on the fly and
// registered temporarily.
func (a *app) printPlaylist(file string, k int) error {
	lc, err := a.loadCollection()
	if err != nil {
		return err
	}

	seedIdx := -1
	for i, f := range lc.files {
		if f == file {
			seedIdx = i
			break
		}
	}

	var seed jukebox.Track
	var seedID jukebox.TrackID
	if seedIdx >= 0 {
		seed = lc.tracks[seedIdx]
		seedID = lc.ids[seedIdx]
	} else {
		// analyze and register the seed temporarily
		seed = a.jb.TrackAlloc()
		if err := a.jb.AnalyzeAudioFile(file, analysisExcerptLength, 0, seed); err != nil {
			return fmt.Errorf("could not analyze seed file %s: %w", file, err)
		}
		tmpIDs := make([]jukebox.TrackID, 1)
		if err := a.jb.AddTracks([]jukebox.Track{seed}, tmpIDs, true); err != nil {
			return err
		}
		seedID = tmpIDs[0]
		defer a.jb.RemoveTracks(tmpIDs)
	}

	result, err := a.computeKNN(lc, seed, seedID, "", nil, k)
	if err != nil {
		return err
	}
	for _, idx := range result.indices {
		fmt.Println(lc.files[idx])
	}
	return nil
}

// pathElement returns the idx'th element of the path, or "" when the path
// is too short.
func pathElement(path string, idx int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

// evaluate runs a k-NN genre classification experiment over the
// collection. The genre of a track is the path element at genreIndex; a
// negative genreIndex infers the parent directory. With artistIndex >= 0,
// neighbors by the same artist are excluded.
func (a *app) evaluate(genreIndex, artistIndex, k int) error {
	lc, err := a.loadCollection()
	if err != nil {
		return err
	}
	if k >= len(lc.tracks) {
		return fmt.Errorf("evaluation failed: too few tracks")
	}

	genres := make([]string, len(lc.files))
	genreNames := []string{}
	genreIdx := map[string]int{}
	for i, f := range lc.files {
		gi := genreIndex
		if gi < 0 {
			// guess: the parent directory names the genre
			gi = len(strings.Split(filepath.ToSlash(f), "/")) - 2
		}
		g := pathElement(f, gi)
		genres[i] = g
		if _, ok := genreIdx[g]; !ok {
			genreIdx[g] = len(genreNames)
			genreNames = append(genreNames, g)
		}
	}

	var artists []string
	if artistIndex >= 0 {
		artists = make([]string, len(lc.files))
		for i, f := range lc.files {
			artists[i] = pathElement(f, artistIndex)
		}
	}

	// confusion[actual][predicted], predicted by majority vote of the k
	// nearest neighbors
	confusion := make([][]int, len(genreNames))
	for i := range confusion {
		confusion[i] = make([]int, len(genreNames))
	}
	correct := 0
	for i := range lc.tracks {
		seedArtist := ""
		if artists != nil {
			seedArtist = artists[i]
		}
		result, err := a.computeKNN(lc, lc.tracks[i], lc.ids[i], seedArtist, artists, k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to compute similar tracks, skipping: %v\n", err)
			continue
		}

		votes := make(map[string]int)
		for _, idx := range result.indices {
			votes[genres[idx]]++
		}
		predicted := genres[i]
		best := -1
		for _, g := range genreNames {
			if votes[g] > best {
				best = votes[g]
				predicted = g
			}
		}

		confusion[genreIdx[genres[i]]][genreIdx[predicted]]++
		if predicted == genres[i] {
			correct++
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	header := table.Row{"actual \\ predicted"}
	for _, g := range genreNames {
		header = append(header, g)
	}
	t.AppendHeader(header)
	for i, g := range genreNames {
		row := table.Row{g}
		for j := range genreNames {
			row = append(row, confusion[i][j])
		}
		t.AppendRow(row)
	}
	t.Render()

	fmt.Printf("Genres: %d, k: %d\n", len(genreNames), k)
	fmt.Printf("Accuracy: %.2f%%\n", 100.0*float64(correct)/float64(len(lc.tracks)))
	return nil
}

// writeMirexFull writes the full similarity matrix in MIREX text format
func (a *app) writeMirexFull(out string) error {
	lc, err := a.loadCollection()
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "Musly MIREX similarity matrix (Version: %s), Method: %s\n",
		jukebox.Version(), a.jb.MethodName())
	for i, file := range lc.files {
		fmt.Fprintf(w, "%d\t%s\n", i+1, file)
	}
	w.WriteString("Q/R")
	for i := range lc.files {
		fmt.Fprintf(w, "\t%d", i+1)
	}
	w.WriteString("\n")

	sims := make([]float32, len(lc.tracks))
	for i := range lc.tracks {
		err := a.jb.Similarity(lc.tracks[i], lc.ids[i], lc.tracks, lc.ids, sims)
		if err != nil {
			for j := range sims {
				sims[j] = math.MaxFloat32
			}
		}
		fmt.Fprintf(w, "%d", i+1)
		for _, s := range sims {
			fmt.Fprintf(w, "\t%g", s)
		}
		w.WriteString("\n")
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// writeMirexSparse writes the k nearest neighbors of every track in the
// sparse MIREX text format (query, neighbor, distance per line).
func (a *app) writeMirexSparse(out string, k int) error {
	lc, err := a.loadCollection()
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "Musly MIREX sparse similarity matrix (Version: %s), Method: %s\n",
		jukebox.Version(), a.jb.MethodName())

	for i := range lc.tracks {
		result, err := a.computeKNN(lc, lc.tracks[i], lc.ids[i], "", nil, k)
		if err != nil {
			continue
		}
		for j, idx := range result.indices {
			fmt.Fprintf(w, "%s\t%s\t%g\n", lc.files[i], lc.files[idx], result.sims[j])
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
