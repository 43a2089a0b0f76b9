// file: internal/config/persistence.go
// version: 1.7.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tunevault/tunevault/internal/database"
)

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	if AppConfig.MusicDir != "" {
		return filepath.Join(AppConfig.MusicDir, "config.yaml")
	}
	return ""
}

// LoadConfigFromFile loads settings from the YAML config file as a fallback.
// Called after LoadConfigFromDatabase so file values only fill in gaps.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		log.Printf("[WARN] Failed to parse config file %s: %v", path, err)
		return nil
	}

	applied := 0

	// Only fill in values that are currently empty so the database and
	// explicit flags keep precedence.
	stringFallbacks := map[string]*string{
		"music_dir":            &AppConfig.MusicDir,
		"acoustid_api_key":     &AppConfig.AcoustIDAPIKey,
		"openai_api_key":       &AppConfig.OpenAIAPIKey,
		"oracle_model":         &AppConfig.OracleModel,
		"analyzer_path":        &AppConfig.AnalyzerPath,
		"default_order":        &AppConfig.DefaultOrder,
		"server_username":      &AppConfig.ServerUsername,
		"server_password_hash": &AppConfig.ServerPasswordHash,
	}
	for key, ptr := range stringFallbacks {
		if *ptr == "" {
			if val, ok := fileConfig[key].(string); ok && val != "" {
				*ptr = val
				applied++
				log.Printf("[INFO] Loaded %s from config file", key)
			}
		}
	}

	if len(AppConfig.StopWords) == 0 {
		if raw, ok := fileConfig["stop_words"].([]any); ok {
			for _, item := range raw {
				if word, ok := item.(string); ok && word != "" {
					AppConfig.StopWords = append(AppConfig.StopWords, word)
				}
			}
			if len(AppConfig.StopWords) > 0 {
				applied++
			}
		}
	}

	if applied > 0 {
		log.Printf("[INFO] Applied %d settings from config file %s", applied, path)
	}
	return nil
}

// SaveConfigToFile writes key settings to a YAML config file next to the database.
// Secrets are stored in plaintext here; file permissions restrict access.
func SaveConfigToFile() error {
	path := ConfigFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	fileConfig := map[string]any{
		"music_dir":              AppConfig.MusicDir,
		"database_path":          AppConfig.DatabasePath,
		"database_type":          AppConfig.DatabaseType,
		"fpcalc_path":            AppConfig.FpcalcPath,
		"ffprobe_path":           AppConfig.FfprobePath,
		"analyzer_path":          AppConfig.AnalyzerPath,
		"score_threshold":        AppConfig.ScoreThreshold,
		"lookup_timeout_seconds": AppConfig.LookupTimeoutSeconds,
		"oracle_model":           AppConfig.OracleModel,
		"default_order":          AppConfig.DefaultOrder,
		"server_addr":            AppConfig.ServerAddr,
		"log_level":              AppConfig.LogLevel,
	}
	if len(AppConfig.StopWords) > 0 {
		fileConfig["stop_words"] = AppConfig.StopWords
	}

	// Only write secrets if they're set (plaintext in file, file permissions protect them)
	if AppConfig.AcoustIDAPIKey != "" {
		fileConfig["acoustid_api_key"] = AppConfig.AcoustIDAPIKey
	}
	if AppConfig.OpenAIAPIKey != "" {
		fileConfig["openai_api_key"] = AppConfig.OpenAIAPIKey
	}
	if AppConfig.ServerUsername != "" {
		fileConfig["server_username"] = AppConfig.ServerUsername
	}
	if AppConfig.ServerPasswordHash != "" {
		fileConfig["server_password_hash"] = AppConfig.ServerPasswordHash
	}

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	// Write with restrictive permissions since it may contain secrets
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}

// settingKeys lists every setting key persisted in the catalog store.
var settingKeys = []string{
	"music_dir",
	"analyzer_path",
	"acoustid_api_key",
	"score_threshold",
	"lookup_timeout_seconds",
	"openai_api_key",
	"oracle_model",
	"default_order",
	"stop_words",
	"server_addr",
	"server_username",
	"server_password_hash",
	"log_level",
}

// LoadConfigFromDatabase loads settings from the catalog store and applies
// them to AppConfig, then falls back to the YAML config file for gaps.
func LoadConfigFromDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	applied := 0
	for _, key := range settingKeys {
		value, err := store.GetSetting(key)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			log.Printf("[WARN] Could not load setting %q: %v", key, err)
			continue
		}
		if err := applySetting(key, value); err != nil {
			log.Printf("[WARN] Failed to apply setting %s: %v", key, err)
			continue
		}
		applied++
	}
	log.Printf("[INFO] Applied %d settings from database", applied)

	// Fall back to the config file for anything the store didn't provide.
	if err := LoadConfigFromFile(); err != nil {
		log.Printf("[WARN] Config file fallback failed: %v", err)
	}
	return nil
}

// SaveConfigToDatabase persists the current AppConfig into the catalog store.
func SaveConfigToDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	stopWords, err := json.Marshal(AppConfig.StopWords)
	if err != nil {
		return fmt.Errorf("failed to serialize stop words: %w", err)
	}

	values := map[string]string{
		"music_dir":              AppConfig.MusicDir,
		"analyzer_path":          AppConfig.AnalyzerPath,
		"acoustid_api_key":       AppConfig.AcoustIDAPIKey,
		"score_threshold":        strconv.FormatFloat(AppConfig.ScoreThreshold, 'f', -1, 64),
		"lookup_timeout_seconds": strconv.Itoa(AppConfig.LookupTimeoutSeconds),
		"openai_api_key":         AppConfig.OpenAIAPIKey,
		"oracle_model":           AppConfig.OracleModel,
		"default_order":          AppConfig.DefaultOrder,
		"stop_words":             string(stopWords),
		"server_addr":            AppConfig.ServerAddr,
		"server_username":        AppConfig.ServerUsername,
		"server_password_hash":   AppConfig.ServerPasswordHash,
		"log_level":              AppConfig.LogLevel,
	}
	for key, value := range values {
		if value == "" || value == "null" {
			continue
		}
		if err := store.SetSetting(key, value); err != nil {
			return fmt.Errorf("failed to persist setting %s: %w", key, err)
		}
	}
	return nil
}

// applySetting applies a single setting to AppConfig
func applySetting(key, value string) error {
	switch key {
	case "music_dir":
		AppConfig.MusicDir = value
	case "analyzer_path":
		AppConfig.AnalyzerPath = value
	case "acoustid_api_key":
		AppConfig.AcoustIDAPIKey = value
	case "score_threshold":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			AppConfig.ScoreThreshold = f
		}
	case "lookup_timeout_seconds":
		if i, err := strconv.Atoi(value); err == nil {
			AppConfig.LookupTimeoutSeconds = i
		}
	case "openai_api_key":
		AppConfig.OpenAIAPIKey = value
	case "oracle_model":
		AppConfig.OracleModel = value
	case "default_order":
		AppConfig.DefaultOrder = value
	case "stop_words":
		var words []string
		if err := json.Unmarshal([]byte(value), &words); err == nil && len(words) > 0 {
			AppConfig.StopWords = words
		}
	case "server_addr":
		AppConfig.ServerAddr = value
	case "server_username":
		AppConfig.ServerUsername = value
	case "server_password_hash":
		AppConfig.ServerPasswordHash = value
	case "log_level":
		AppConfig.LogLevel = value
	default:
		return fmt.Errorf("unknown setting key: %s", key)
	}
	return nil
}

// BindEnv wires the TUNEVAULT_* environment variables into viper.
func BindEnv() {
	viper.SetEnvPrefix("TUNEVAULT")
	viper.AutomaticEnv()
}
