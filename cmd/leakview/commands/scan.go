// Package commands contains the leakview CLI subcommands.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leakview/leakview/internal/config"
	"github.com/leakview/leakview/internal/report"
	"github.com/leakview/leakview/internal/retention"
	"github.com/leakview/leakview/internal/scanner"
)

const (
	scanCmdUse      = "scan [log-dir]"
	scanCmdShort    = "Scan a directory of sanitizer logs and render an HTML report"
	scanMaxArgs     = 1
	scanOutputFlag  = "output"
	scanOutputShort = "o"
	scanOutputUsage = "output path for the HTML report"
	scanConfigFlag  = "config"
	scanConfigUsage = "config file path"
	defaultOutput   = "leak_report.html"
	fallbackUser    = "unknown"
)

// ErrNoInputDir is returned when neither a log directory argument nor the
// LEAKVIEW_LOG_DIR environment variable is provided.
var ErrNoInputDir = errors.New("no log directory given and " + config.EnvLogDir + " is not set")

// NewScanCommand creates the scan subcommand.
func NewScanCommand(quiet *bool) *cobra.Command {
	var outputPath, configPath string

	cmd := &cobra.Command{
		Use:   scanCmdUse,
		Short: scanCmdShort,
		Args:  cobra.MaximumNArgs(scanMaxArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			dir, err := resolveLogDir(args)
			if err != nil {
				return err
			}

			return runScan(dir, outputPath, configPath, *quiet)
		},
	}

	cmd.Flags().StringVarP(&outputPath, scanOutputFlag, scanOutputShort, defaultOutput, scanOutputUsage)
	cmd.Flags().StringVar(&configPath, scanConfigFlag, "", scanConfigUsage)

	return cmd
}

func resolveLogDir(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	dir, ok := config.DefaultLogDir()
	if !ok {
		return "", ErrNoInputDir
	}

	return dir, nil
}

func runScan(dir, outputPath, configPath string, quiet bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sink := report.NewBuilder(cfg.Report.Title, report.Theme(cfg.Report.Theme))

	runner := scanner.NewRunner(scanner.Config{
		MaxAppFindings:     cfg.Scan.MaxAppFindings,
		UnmatchedWarnBytes: cfg.Scan.UnmatchedWarnBytes,
		SkipLeakedObjects:  cfg.Scan.SkipLeakedObjects,
	}, slog.Default())

	result, err := runner.Run(dir, sink)
	if err != nil {
		return err
	}

	writeErr := sink.WriteFile(outputPath, buildSummary(result))
	if writeErr != nil {
		return fmt.Errorf("write report: %w", writeErr)
	}

	if cfg.Retention.Enabled {
		archiver := &retention.Archiver{Dir: archiveDir(dir, cfg.Retention.ArchiveDir)}
		archived := archiver.Apply(result.Decisions)

		slog.Info("archived non-contributing logs", "count", archived)
	}

	if !quiet {
		printSummary(result, outputPath)
	}

	return nil
}

func archiveDir(inputDir, configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}

	return filepath.Join(inputDir, configured)
}

func buildSummary(result *scanner.Result) report.Summary {
	host, err := os.Hostname()
	if err != nil {
		host = fallbackUser
	}

	userName := fallbackUser
	if current, userErr := user.Current(); userErr == nil {
		userName = current.Username
	}

	return report.Summary{
		Apps:          result.Apps,
		Files:         result.Files,
		DistinctLeaks: result.DistinctLeaks,
		GeneratedAt:   time.Now(),
		Host:          host,
		User:          userName,
	}
}

func printSummary(result *scanner.Result, outputPath string) {
	findings := 0
	for _, app := range result.Apps {
		findings += app.NewLeaks + app.GrownLeaks + app.Errors + app.Warnings
	}

	headline := color.New(color.FgGreen)
	if findings > 0 {
		headline = color.New(color.FgRed)
	}

	headline.Printf("%d finding(s) across %d file(s), %d distinct leak(s) -> %s\n",
		findings, result.Files, result.DistinctLeaks, outputPath)

	if len(result.Apps) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Application", "Files", "New", "Grown", "Errors", "Warnings", "Leaked", "Truncated"})

	for _, app := range result.Apps {
		truncated := ""
		if app.Truncated {
			truncated = "yes"
		}

		tw.AppendRow(table.Row{
			app.App, app.Files, app.NewLeaks, app.GrownLeaks,
			app.Errors, app.Warnings, humanize.Bytes(app.LeakedBytes), truncated,
		})
	}

	tw.Render()
}
