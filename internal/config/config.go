// file: internal/config/config.go
// version: 1.4.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	MusicDir     string
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"

	SearchIndexPath string
	SimilarDir      string

	// External tools
	FpcalcPath   string
	FfprobePath  string
	AnalyzerPath string // audio feature analyzer; empty disables analysis

	// AcoustID
	AcoustIDAPIKey       string
	ScoreThreshold       float64
	LookupTimeoutSeconds int

	// Oracle
	OpenAIAPIKey string
	OracleModel  string

	// Merge behavior
	DefaultOrder string
	StopWords    []string

	// HTTP API
	ServerAddr         string
	ServerUsername     string
	ServerPasswordHash string // bcrypt hash; empty disables auth

	FailureLedgerPath string
	SnapshotPath      string

	LogLevel            string
	SupportedExtensions []string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	// Set defaults
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("fpcalc_path", "fpcalc")
	viper.SetDefault("ffprobe_path", "ffprobe")
	viper.SetDefault("score_threshold", 0.7)
	viper.SetDefault("lookup_timeout_seconds", 30)
	viper.SetDefault("server_addr", ":8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("supported_extensions", []string{
		".mp3", ".m4a", ".aac", ".ogg", ".opus", ".flac", ".wav", ".wma",
	})

	AppConfig = Config{
		MusicDir:             viper.GetString("music_dir"),
		DatabasePath:         viper.GetString("database_path"),
		DatabaseType:         viper.GetString("database_type"),
		SearchIndexPath:      viper.GetString("search_index_path"),
		SimilarDir:           viper.GetString("similar_dir"),
		FpcalcPath:           viper.GetString("fpcalc_path"),
		FfprobePath:          viper.GetString("ffprobe_path"),
		AnalyzerPath:         viper.GetString("analyzer_path"),
		AcoustIDAPIKey:       viper.GetString("acoustid_api_key"),
		ScoreThreshold:       viper.GetFloat64("score_threshold"),
		LookupTimeoutSeconds: viper.GetInt("lookup_timeout_seconds"),
		OpenAIAPIKey:         viper.GetString("openai_api_key"),
		OracleModel:          viper.GetString("oracle_model"),
		DefaultOrder:         viper.GetString("default_order"),
		StopWords:            viper.GetStringSlice("stop_words"),
		ServerAddr:           viper.GetString("server_addr"),
		ServerUsername:       viper.GetString("server_username"),
		ServerPasswordHash:   viper.GetString("server_password_hash"),
		FailureLedgerPath:    viper.GetString("failure_ledger_path"),
		SnapshotPath:         viper.GetString("snapshot_path"),
		LogLevel:             viper.GetString("log_level"),
		SupportedExtensions:  viper.GetStringSlice("supported_extensions"),
	}

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}

	// Derive per-library paths from the music dir when unset.
	if AppConfig.MusicDir != "" {
		if AppConfig.SearchIndexPath == "" {
			AppConfig.SearchIndexPath = filepath.Join(AppConfig.MusicDir, ".tunevault", "search.bleve")
		}
		if AppConfig.SimilarDir == "" {
			AppConfig.SimilarDir = filepath.Join(AppConfig.MusicDir, ".tunevault", "vectors")
		}
		if AppConfig.FailureLedgerPath == "" {
			AppConfig.FailureLedgerPath = filepath.Join(AppConfig.MusicDir, ".tunevault", "error_files.json")
		}
		if AppConfig.SnapshotPath == "" {
			AppConfig.SnapshotPath = filepath.Join(AppConfig.MusicDir, ".tunevault", "library_data.json")
		}
		if AppConfig.DatabasePath == "" {
			AppConfig.DatabasePath = filepath.Join(AppConfig.MusicDir, ".tunevault", "catalog")
		}
	}
}
