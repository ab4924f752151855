// Package retention applies the keep/discard decisions queued during a
// scan. Log files that contributed nothing to the report are moved out of
// the input directory, LZ4-compressed, so the next run over the same
// directory scans less.
package retention

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/leakview/leakview/internal/scanner"
)

const (
	archiveDirPerm = 0o750
	archiveSuffix  = ".lz4"
)

// Archiver moves discarded logs into Dir. Per-file failures are logged and
// skipped, never fatal: retention is an optimization, not a correctness
// concern.
type Archiver struct {
	Dir string
	Log *slog.Logger
}

// Apply walks the decision queue and archives every discarded file.
// It returns the number of files archived.
func (a *Archiver) Apply(decisions []scanner.RetentionDecision) int {
	archived := 0

	for _, decision := range decisions {
		if decision.Action != scanner.RetentionDiscard {
			continue
		}

		err := a.archive(decision.Path)
		if err != nil {
			a.logger().Warn("archive log file", "file", decision.Path, "error", err)

			continue
		}

		archived++
	}

	return archived
}

// archive compresses path into <Dir>/<base>.lz4 and removes the original.
func (a *Archiver) archive(path string) error {
	mkErr := os.MkdirAll(a.Dir, archiveDirPerm)
	if mkErr != nil {
		return fmt.Errorf("create archive dir: %w", mkErr)
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(a.Dir, filepath.Base(path)+archiveSuffix)

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	defer dst.Close()

	zw := lz4.NewWriter(dst)

	_, copyErr := io.Copy(zw, src)
	if copyErr != nil {
		return fmt.Errorf("compress: %w", copyErr)
	}

	closeErr := zw.Close()
	if closeErr != nil {
		return fmt.Errorf("flush compressor: %w", closeErr)
	}

	syncErr := dst.Close()
	if syncErr != nil {
		return fmt.Errorf("close %s: %w", dstPath, syncErr)
	}

	removeErr := os.Remove(path)
	if removeErr != nil {
		return fmt.Errorf("remove original: %w", removeErr)
	}

	return nil
}

func (a *Archiver) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}

	return slog.Default()
}
