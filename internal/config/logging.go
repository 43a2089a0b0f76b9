// file: internal/config/logging.go
// version: 1.0.0
// guid: 9d0e1f2a-3b4c-5d6e-7f8a-9b0c1d2e3f4a

package config

import (
	"bytes"
	"io"
	"log"
	"os"
)

// Log lines carry their level as a [DEBUG]/[INFO]/[WARN]/[ERROR] tag after
// the standard timestamp prefix. The filter drops lines tagged below the
// configured level; untagged lines always pass.
var levelRanks = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

var levelTags = map[string]int{
	"[DEBUG]": 0,
	"[INFO]":  1,
	"[WARN]":  2,
	"[ERROR]": 3,
}

type levelFilter struct {
	min int
	out io.Writer
}

func (w levelFilter) Write(p []byte) (int, error) {
	for tag, rank := range levelTags {
		if bytes.Contains(p, []byte(tag)) {
			if rank < w.min {
				return len(p), nil
			}
			break
		}
	}
	return w.out.Write(p)
}

// NewLevelFilter wraps out so lines tagged below level are dropped. Unknown
// levels behave as "info".
func NewLevelFilter(level string, out io.Writer) io.Writer {
	min, ok := levelRanks[level]
	if !ok {
		min = levelRanks["info"]
	}
	return levelFilter{min: min, out: out}
}

// ApplyLogLevel installs the configured log_level on the standard logger.
func ApplyLogLevel() {
	log.SetOutput(NewLevelFilter(AppConfig.LogLevel, os.Stderr))
}
