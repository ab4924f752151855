// Package config loads leakview settings from config file, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Defaults.
const (
	DefaultMaxAppFindings     = 200
	DefaultUnmatchedWarnBytes = 500
	DefaultSkipLeakedObjects  = true
	DefaultReportTitle        = "Memory Sanitizer Report"
	DefaultReportTheme        = "dark"
	DefaultRetentionEnabled   = true
	DefaultArchiveDir         = "archive"
)

// EnvLogDir is the environment variable consulted when no input directory
// is given on the command line.
const EnvLogDir = "LEAKVIEW_LOG_DIR"

// ErrBadTheme is returned for a report theme other than dark or light.
var ErrBadTheme = errors.New(`report theme must be "dark" or "light"`)

// Config is the full leakview configuration.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan"`
	Report    ReportConfig    `mapstructure:"report"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ScanConfig holds the classifier and truncation knobs.
type ScanConfig struct {
	MaxAppFindings     int  `mapstructure:"max_app_findings"`
	UnmatchedWarnBytes int  `mapstructure:"unmatched_warn_bytes"`
	SkipLeakedObjects  bool `mapstructure:"skip_leaked_objects"`
}

// ReportConfig holds report rendering settings.
type ReportConfig struct {
	Title string `mapstructure:"title"`
	Theme string `mapstructure:"theme"`
}

// RetentionConfig controls archiving of non-contributing log files.
type RetentionConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if c.Scan.MaxAppFindings <= 0 {
		return fmt.Errorf("scan.max_app_findings must be positive, got %d", c.Scan.MaxAppFindings)
	}

	if c.Scan.UnmatchedWarnBytes <= 0 {
		return fmt.Errorf("scan.unmatched_warn_bytes must be positive, got %d", c.Scan.UnmatchedWarnBytes)
	}

	if c.Report.Theme != "dark" && c.Report.Theme != "light" {
		return fmt.Errorf("%w, got %q", ErrBadTheme, c.Report.Theme)
	}

	return nil
}

// DefaultLogDir returns the environment-provided input directory, if any.
func DefaultLogDir() (string, bool) {
	dir := os.Getenv(EnvLogDir)

	return dir, dir != ""
}
