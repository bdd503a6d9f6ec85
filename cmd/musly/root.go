package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dominikschnitzer/musly/decoder"
	"github.com/dominikschnitzer/musly/internal/config"
	"github.com/dominikschnitzer/musly/jukebox"
)

// options is the parsed flag surface of the command
type options struct {
	configPath     string
	collectionPath string
	jukeboxPath    string
	useJukeboxFile bool

	verbosity int
	k         int
	extension string

	info bool

	newMethod      string
	newAuto        bool
	analyzePath    string
	playlistFile   string
	genreIndex     int
	guessGenre     bool
	artistIndex    int
	mirexFullOut   string
	mirexSparseOut string
	listTracks     bool
	dumpTracks     bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "musly",
		Short: "Compute music similarity playlists from audio collections",
		Long: "musly analyzes audio files into compact timbre models, keeps them in\n" +
			"a collection file and answers similarity queries over it.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "configuration file (default: per-user musly.toml)")
	flags.StringVarP(&opts.collectionPath, "collection", "c", "collection.musly", "collection file to work on")
	flags.StringVarP(&opts.jukeboxPath, "jukebox", "j", "", "file to cache the jukebox state in")
	flags.BoolVarP(&opts.useJukeboxFile, "jukebox-auto", "J", false, "cache the jukebox state in COLLECTION.jbox")
	flags.IntVarP(&opts.verbosity, "verbose", "v", 0, "debug level (0: none .. 5: trace)")
	flags.IntVarP(&opts.k, "neighbors", "k", 5, "number of similar songs per item for -p, -s and -e")
	flags.StringVarP(&opts.extension, "extension", "x", "", "only analyze files with this extension when adding")
	flags.BoolVarP(&opts.info, "info", "i", false, "information about the music similarity library")
	flags.StringVarP(&opts.newMethod, "new", "n", "", "initialize the collection with the given similarity method")
	flags.BoolVarP(&opts.newAuto, "new-auto", "N", false, "initialize the collection with the default method")
	flags.StringVarP(&opts.analyzePath, "add", "a", "", "analyze and add the given audio file or directory")
	flags.StringVarP(&opts.playlistFile, "playlist", "p", "", "print the k most similar tracks for the given file")
	flags.IntVarP(&opts.genreIndex, "evaluate", "e", -1, "k-NN genre evaluation; genre is the path element at this position")
	flags.BoolVarP(&opts.guessGenre, "evaluate-auto", "E", false, "k-NN genre evaluation, guessing the genre path position")
	flags.IntVarP(&opts.artistIndex, "artist-filter", "f", -1, "artist filter for -e; artist is the path element at this position")
	flags.StringVarP(&opts.mirexFullOut, "mirex-full", "m", "", "write the full MIREX similarity matrix to the given file")
	flags.StringVarP(&opts.mirexSparseOut, "mirex-sparse", "s", "", "write the k-sparse MIREX similarity matrix to the given file")
	flags.BoolVarP(&opts.listTracks, "list", "l", false, "list all files in the collection file")
	flags.BoolVarP(&opts.dumpTracks, "dump", "d", false, "dump the features in the collection file to the console")

	return cmd
}

func run(opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbosity == 0 && cfg.Verbosity > 0 {
		opts.verbosity = cfg.Verbosity
	}
	jukebox.SetDebugLevel(opts.verbosity)
	if opts.k == 5 && cfg.Neighbors > 0 {
		opts.k = cfg.Neighbors
	}
	if opts.newAuto && opts.newMethod == "" {
		opts.newMethod = cfg.Method
	}

	ffmpegConfig := decoder.DefaultFFmpegConfig()
	ffmpegConfig.FFmpegPath = cfg.FFmpegPath
	ffmpegConfig.FFprobePath = cfg.FFprobePath
	decoder.SetDefaultFFmpegConfig(ffmpegConfig)

	if opts.useJukeboxFile && opts.jukeboxPath == "" {
		opts.jukeboxPath = opts.collectionPath + ".jbox"
	}

	a := &app{cfg: cfg, opts: opts}

	switch {
	case opts.info:
		fmt.Printf("Version: %s\n", jukebox.Version())
		fmt.Printf("Available similarity methods: %s\n", jukebox.ListMethods())
		fmt.Printf("Available audio file decoders: %s\n", jukebox.ListDecoders())
		return nil
	case opts.newMethod != "" || opts.newAuto:
		return a.newCollection(opts.newMethod)
	case opts.analyzePath != "":
		return a.analyzeFiles(opts.analyzePath, opts.extension)
	case opts.playlistFile != "":
		return a.printPlaylist(opts.playlistFile, opts.k)
	case opts.genreIndex >= 0 || opts.guessGenre:
		return a.evaluate(opts.genreIndex, opts.artistIndex, opts.k)
	case opts.mirexFullOut != "":
		return a.writeMirexFull(opts.mirexFullOut)
	case opts.mirexSparseOut != "":
		return a.writeMirexSparse(opts.mirexSparseOut, opts.k)
	case opts.listTracks:
		return a.listCollection()
	case opts.dumpTracks:
		return a.dumpCollection()
	default:
		return errors.New("invalid parameter combination, use --help for more information")
	}
}
