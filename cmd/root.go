// file: cmd/root.go
// version: 2.1.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tunevault/tunevault/internal/acoustid"
	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/analysis"
	"github.com/tunevault/tunevault/internal/config"
	"github.com/tunevault/tunevault/internal/database"
	"github.com/tunevault/tunevault/internal/fingerprint"
	"github.com/tunevault/tunevault/internal/library"
	"github.com/tunevault/tunevault/internal/metrics"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
	"github.com/tunevault/tunevault/internal/search"
	"github.com/tunevault/tunevault/internal/server"
	"github.com/tunevault/tunevault/internal/similar"
	"github.com/tunevault/tunevault/internal/watcher"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tunevault",
	Short: "Resolve, deduplicate, and enrich a personal music collection",
	Long: `Tunevault fingerprints your audio files, deduplicates them across
renames and re-downloads, and merges metadata from filenames, embedded
tags, and AcoustID into one canonical record per recording.

Ambiguity is never resolved silently: when sources disagree or remote
candidates tie, you decide, and your choice can be remembered per album.`,
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan a music directory",
	Long:  `Walk a directory tree, resolving every audio file into the library.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := config.AppConfig.MusicDir
		if len(args) > 0 {
			root = args[0]
		}
		if root == "" {
			return fmt.Errorf("music directory not specified")
		}

		session := newSession()
		loadSnapshot(session)

		total := countAudioFiles(root)
		fmt.Printf("Scanning %s (%d audio files)\n", root, total)
		bar := progressbar.Default(int64(total))

		report, err := session.ProcessDirectory(cmd.Context(), root, func(string, library.Resolution, error) {
			bar.Add(1)
		})
		if err != nil {
			return fmt.Errorf("scan error: %w", err)
		}

		fmt.Printf("\nProcessed %d files: %d resolved, %d duplicates, %d known, %d invalid, %d failed, %d skipped\n",
			report.Processed, report.Resolved, report.Duplicates, report.Known,
			report.Invalid, report.Failed, report.SkippedBad)
		for _, path := range report.FailedPaths {
			fmt.Printf("  failed: %s\n", path)
		}

		saveSnapshot(session)
		return syncCatalog(cmd.Context(), session)
	},
}

// fileCmd represents the file command
var fileCmd = &cobra.Command{
	Use:   "file <path>...",
	Short: "Resolve individual audio files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := newSession()
		loadSnapshot(session)

		for _, path := range args {
			res, err := session.ProcessFile(cmd.Context(), path)
			if err != nil {
				var fatal *library.UnexpectedExtractionError
				if errors.As(err, &fatal) {
					return err
				}
				var corrupt *albumctx.CorruptContextError
				if errors.As(err, &corrupt) {
					return err
				}
				fmt.Printf("%s: error: %v\n", path, err)
				continue
			}
			if res.Song != nil {
				fmt.Printf("%s: %s (%s %q)\n", path, res.Status, res.Song.ID, res.Song.Metadata.Title)
			} else {
				fmt.Printf("%s: %s\n", path, res.Status)
			}
		}

		saveSnapshot(session)
		return nil
	},
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the resolved catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		songs, err := store.AllSongs()
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		byID := make(map[string]string, len(songs))

		ix, err := search.OpenMemory()
		if err != nil {
			return err
		}
		defer ix.Close()
		if err := ix.IndexAll(songs); err != nil {
			return err
		}
		for _, song := range songs {
			byID[song.ID] = fmt.Sprintf("%s - %s (%s)", song.Metadata.Artists, song.Metadata.Title, song.Metadata.Path)
		}

		results, err := ix.Search(args[0], limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, res := range results {
			marker := ""
			if res.Fuzzy {
				marker = " (fuzzy)"
			}
			fmt.Printf("%.3f%s  %s\n", res.Score, marker, byID[res.SongID])
		}
		return nil
	},
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		songs, err := store.CountSongs()
		if err != nil {
			return err
		}
		albums, err := store.CountAlbumContexts()
		if err != nil {
			return err
		}
		ledger, err := library.LoadLedger(config.AppConfig.FailureLedgerPath)
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)
		fmt.Printf("Songs:        %d\n", songs)
		fmt.Printf("Albums:       %d\n", albums)
		fmt.Printf("Failed files: %d\n", ledger.Len())
		for _, path := range ledger.Paths() {
			fmt.Printf("  %s\n", path)
		}
		return nil
	},
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only catalog API",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The API must never block on a terminal prompt; ambiguity that
		// would need the oracle stays unresolved until the next CLI run.
		session := library.NewSession(
			albumctx.NewStore(oracle.NewCanned()),
			oracle.NewCanned(),
			fpcalcFromConfig(),
			fpcalcFromConfig(),
		)
		loadSnapshot(session)

		opts := server.Options{
			Session:      session,
			Username:     config.AppConfig.ServerUsername,
			PasswordHash: config.AppConfig.ServerPasswordHash,
		}
		if path := config.AppConfig.SearchIndexPath; path != "" {
			ix, err := search.Open(path)
			if err != nil {
				log.Printf("[WARN] search index unavailable: %v", err)
			} else {
				defer ix.Close()
				if err := ix.IndexAll(session.Songs()); err != nil {
					log.Printf("[WARN] search reindex failed: %v", err)
				}
				opts.Search = ix
			}
		}
		if dir := config.AppConfig.SimilarDir; dir != "" {
			sim, err := similar.Open(dir)
			if err != nil {
				log.Printf("[WARN] similarity store unavailable: %v", err)
			} else {
				opts.Similar = sim
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(opts).Run(ctx, config.AppConfig.ServerAddr)
	},
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a music directory and resolve new files as they appear",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := config.AppConfig.MusicDir
		if len(args) > 0 {
			root = args[0]
		}
		if root == "" {
			return fmt.Errorf("music directory not specified")
		}

		session := newSession()
		loadSnapshot(session)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fatalCh := make(chan error, 1)
		w := watcher.New(func(paths []string) {
			if err := resolveWatchedPaths(ctx, session, paths); err != nil {
				select {
				case fatalCh <- err:
				default:
				}
				stop()
				return
			}
			saveSnapshot(session)
			if err := session.Failures.Save(); err != nil {
				log.Printf("[WARN] watch: failed to save ledger: %v", err)
			}
		}, 0)

		if err := w.Start(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		defer w.Stop()
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", root)

		<-ctx.Done()
		select {
		case err := <-fatalCh:
			return err
		default:
			return nil
		}
	},
}

// resolveWatchedPaths feeds one debounced batch from the watcher into the
// session. Per-file failures are ledgered and the batch continues; an
// unexpected extraction failure or an undiscarded corrupt album context is
// returned so the watcher stops loudly instead of skipping the path.
func resolveWatchedPaths(ctx context.Context, session *library.Session, paths []string) error {
	for _, path := range paths {
		res, err := session.ProcessFile(ctx, path)
		if err != nil {
			var fatal *library.UnexpectedExtractionError
			if errors.As(err, &fatal) {
				log.Printf("[ERROR] watch: %v", err)
				return err
			}
			var corrupt *albumctx.CorruptContextError
			if errors.As(err, &corrupt) {
				log.Printf("[ERROR] watch: %v", err)
				return err
			}
			log.Printf("[ERROR] watch: %s: %v", path, err)
			session.Failures.Add(path)
			continue
		}
		log.Printf("[INFO] watch: %s: %s", path, res.Status)
	}
	return nil
}

// fpcalcFromConfig builds the fingerprint extractor from configured paths.
func fpcalcFromConfig() *fingerprint.Fpcalc {
	fp := fingerprint.NewFpcalc(config.AppConfig.FpcalcPath)
	if config.AppConfig.FfprobePath != "" {
		fp.ProbeBinary = config.AppConfig.FfprobePath
	}
	return fp
}

// newSession wires a resolution session from the active configuration,
// prompting on the terminal for anything the oracle must decide.
func newSession() *library.Session {
	var o oracle.Oracle = oracle.NewCLIOracle(os.Stdin, os.Stdout)
	if config.AppConfig.OpenAIAPIKey != "" {
		o = oracle.NewAIOracle(config.AppConfig.OpenAIAPIKey, config.AppConfig.OracleModel, o)
	}

	fp := fpcalcFromConfig()
	session := library.NewSession(albumctx.NewStore(o), o, fp, fp)
	session.ConfirmDiscard = func(e *albumctx.CorruptContextError) bool {
		fmt.Printf("Album context %s is corrupt: %v\n", e.Path, e.Err)
		ok, err := promptYesNo("Discard it and rebuild from the files")
		if err != nil {
			return false
		}
		return ok
	}

	if path := config.AppConfig.FailureLedgerPath; path != "" {
		ledger, err := library.LoadLedger(path)
		if err != nil {
			log.Printf("[WARN] could not load failure ledger: %v", err)
		} else {
			session.Failures = ledger
		}
	}

	if key := config.AppConfig.AcoustIDAPIKey; key != "" {
		client := acoustid.NewClient(key)
		if secs := config.AppConfig.LookupTimeoutSeconds; secs > 0 {
			client.HTTPClient.Timeout = time.Duration(secs) * time.Second
		}
		d := acoustid.NewDisambiguator(client, o)
		if config.AppConfig.ScoreThreshold > 0 {
			d.Threshold = config.AppConfig.ScoreThreshold
		}
		if len(config.AppConfig.StopWords) > 0 {
			d.Normalizer = acoustid.NewNormalizer(config.AppConfig.StopWords)
		}
		session.Identify = d
	} else {
		log.Printf("[INFO] no AcoustID API key configured, remote identification disabled")
	}

	if path := config.AppConfig.AnalyzerPath; path != "" {
		session.Analyze = analysis.NewExec(path)
	}
	if order := config.AppConfig.DefaultOrder; order != "" {
		session.DefaultOrder = model.SourceOrder(order).Normalize()
	}
	return session
}

func loadSnapshot(session *library.Session) {
	path := config.AppConfig.SnapshotPath
	if path == "" {
		return
	}
	if err := session.LoadSnapshot(path); err != nil {
		log.Printf("[WARN] could not load library snapshot: %v", err)
	}
}

func saveSnapshot(session *library.Session) {
	path := config.AppConfig.SnapshotPath
	if path == "" {
		return
	}
	if err := session.SaveSnapshot(path); err != nil {
		log.Printf("[WARN] could not save library snapshot: %v", err)
	}
}

func openStore() (database.Store, error) {
	if config.AppConfig.DatabasePath == "" {
		return nil, fmt.Errorf("database path not specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.AppConfig.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return database.Open(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath)
}

// syncCatalog mirrors the session into the catalog store, the search index,
// and the similarity store. All three are derived data; failures here never
// lose resolution work.
func syncCatalog(ctx context.Context, session *library.Session) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, song := range session.Songs() {
		if err := store.PutSong(song); err != nil {
			return fmt.Errorf("failed to store song %s: %w", song.ID, err)
		}
	}
	for _, album := range session.Albums.Cached() {
		if err := store.PutAlbumContext(album); err != nil {
			return fmt.Errorf("failed to store album %s: %w", album.ID, err)
		}
	}

	if path := config.AppConfig.SearchIndexPath; path != "" {
		ix, err := search.Open(path)
		if err != nil {
			log.Printf("[WARN] could not open search index: %v", err)
		} else {
			defer ix.Close()
			if err := ix.IndexAll(session.Songs()); err != nil {
				log.Printf("[WARN] search indexing failed: %v", err)
			}
		}
	}

	if dir := config.AppConfig.SimilarDir; dir != "" {
		sim, err := similar.Open(dir)
		if err != nil {
			log.Printf("[WARN] could not open similarity store: %v", err)
		} else {
			for _, song := range session.Songs() {
				if err := sim.Add(ctx, song); err != nil && !errors.Is(err, similar.ErrNoFeatures) {
					log.Printf("[WARN] similarity store: %v", err)
				}
			}
		}
	}
	return nil
}

// countAudioFiles sizes the progress bar before a scan.
func countAudioFiles(root string) int {
	n := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && albumctx.IsAudioPath(path) {
			n++
		}
		return nil
	})
	return n
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tunevault.yaml)")
	rootCmd.PersistentFlags().String("dir", "", "root directory containing music")
	rootCmd.PersistentFlags().String("db", "", "path to the catalog database")
	rootCmd.PersistentFlags().String("db-type", "pebble", "database type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().String("acoustid-key", "", "AcoustID API key")
	rootCmd.PersistentFlags().String("openai-key", "", "OpenAI API key for automated oracle decisions")
	rootCmd.PersistentFlags().String("analyzer", "", "audio feature analyzer executable")
	rootCmd.PersistentFlags().String("order", "", "default merge source order")

	viper.BindPFlag("music_dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	viper.BindPFlag("acoustid_api_key", rootCmd.PersistentFlags().Lookup("acoustid-key"))
	viper.BindPFlag("openai_api_key", rootCmd.PersistentFlags().Lookup("openai-key"))
	viper.BindPFlag("analyzer_path", rootCmd.PersistentFlags().Lookup("analyzer"))
	viper.BindPFlag("default_order", rootCmd.PersistentFlags().Lookup("order"))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)

	searchCmd.Flags().Int("limit", search.DefaultLimit, "maximum number of results")
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	viper.BindPFlag("server_addr", serveCmd.Flags().Lookup("addr"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tunevault")
	}

	config.BindEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()
	config.ApplyLogLevel()
	albumctx.SetAudioExtensions(config.AppConfig.SupportedExtensions)
	metrics.Register()
}
