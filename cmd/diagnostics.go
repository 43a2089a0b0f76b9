// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/tunevault/tunevault/internal/config"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the catalog database.",
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-missing",
		Short: "Remove songs whose files no longer exist on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runCleanupMissingSongs(force, dryRun)
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored song records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(limit, prefix, raw)
		},
	}
)

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	cleanupCmd.Flags().Bool("dry-run", false, "List orphaned records without deleting")

	queryCmd.Flags().Int("limit", 5, "Number of records to display")
	queryCmd.Flags().String("prefix", "song:", "Key prefix to inspect when --raw is set")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	diagnosticsCmd.AddCommand(cleanupCmd)
	diagnosticsCmd.AddCommand(queryCmd)

	rootCmd.AddCommand(diagnosticsCmd)
}

// runCleanupMissingSongs deletes songs none of whose recorded paths still
// exist. Songs with at least one surviving path are kept untouched; a rescan
// would pick up renames anyway.
func runCleanupMissingSongs(force, dryRun bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Inspecting songs in %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)

	songs, err := store.AllSongs()
	if err != nil {
		return fmt.Errorf("failed to fetch songs: %w", err)
	}

	orphaned := songs[:0:0]
	for _, song := range songs {
		alive := false
		for _, path := range song.FilePaths {
			if _, err := os.Stat(path); err == nil {
				alive = true
				break
			}
		}
		if !alive {
			orphaned = append(orphaned, song)
		}
	}

	if len(orphaned) == 0 {
		fmt.Println("No orphaned song records detected.")
		return nil
	}

	fmt.Printf("Found %d orphaned records:\n", len(orphaned))
	for i, song := range orphaned {
		fmt.Printf("%2d. ID: %s\n", i+1, song.ID)
		fmt.Printf("    Title: %s\n", song.Metadata.Title)
		fmt.Printf("    Paths: %s\n", strings.Join(song.FilePaths, ", "))
	}

	if dryRun {
		fmt.Println("Dry run enabled; no deletions were performed.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Delete %d records", len(orphaned)))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted. No records deleted.")
			return nil
		}
	}

	deleted := 0
	for _, song := range orphaned {
		if err := store.DeleteSong(song.ID); err != nil {
			fmt.Printf("Failed to delete %s: %v\n", song.ID, err)
			continue
		}
		deleted++
	}

	fmt.Printf("Deleted %d orphaned records. Run a rescan to repopulate clean entries.\n", deleted)
	return nil
}

func runDiagnosticsQuery(limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		return runRawPebbleQuery(limit, prefix)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	songs, err := store.AllSongs()
	if err != nil {
		return fmt.Errorf("failed to fetch songs: %w", err)
	}
	if len(songs) == 0 {
		fmt.Println("No songs found.")
		return nil
	}
	if len(songs) > limit {
		songs = songs[:limit]
	}

	for i, song := range songs {
		fmt.Printf("%2d. ID: %s\n", i+1, song.ID)
		fmt.Printf("    Title: %s\n", song.Metadata.Title)
		fmt.Printf("    Artists: %s\n", song.Metadata.Artists)
		fmt.Printf("    Fingerprint: %s\n", truncateString(song.Fingerprint, 60))
		fmt.Printf("    Paths: %s\n", strings.Join(song.FilePaths, ", "))
		fmt.Println("---")
	}

	return nil
}

func runRawPebbleQuery(limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	ok := iter.First()
	if prefix != "" {
		ok = iter.SeekGE([]byte(prefix))
	}

	for ; ok && iter.Valid(); ok = iter.Next() {
		fmt.Printf("Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Printf("Value length: %d bytes\n", len(val))
		preview := truncateString(string(val), 500)
		fmt.Printf("Value preview: %s\n", preview)
		fmt.Println("---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Println("No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
