package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Default scan limits.
const (
	DefaultMaxAppFindings     = 200
	DefaultUnmatchedWarnBytes = 500
)

// Config holds the scan knobs.
type Config struct {
	// MaxAppFindings is the per-application finding budget before
	// truncation.
	MaxAppFindings int

	// UnmatchedWarnBytes is the per-file unmatched-text threshold that
	// triggers a single warning.
	UnmatchedWarnBytes int

	// SkipLeakedObjects swallows "Objects leaked above:" address dumps
	// as separators.
	SkipLeakedObjects bool
}

// Runner drives one single-threaded pass over a directory of sanitizer
// logs: whole-file loads in sorted name order, classifier -> deduplicator ->
// state tracker, findings forwarded to a Sink.
type Runner struct {
	cfg   Config
	log   *slog.Logger
	tok   *Tokenizer
	dedup *Dedup
}

// Result is what one pass produced, beyond what the sink received.
type Result struct {
	Apps          []AppStats
	Decisions     []RetentionDecision
	Files         int
	DistinctLeaks int
}

// NewRunner creates a runner. Zero config fields fall back to the defaults.
func NewRunner(cfg Config, log *slog.Logger) *Runner {
	if cfg.MaxAppFindings <= 0 {
		cfg.MaxAppFindings = DefaultMaxAppFindings
	}

	if cfg.UnmatchedWarnBytes <= 0 {
		cfg.UnmatchedWarnBytes = DefaultUnmatchedWarnBytes
	}

	if log == nil {
		log = slog.Default()
	}

	return &Runner{
		cfg:   cfg,
		log:   log,
		tok:   &Tokenizer{SkipLeakedObjects: cfg.SkipLeakedObjects},
		dedup: NewDedup(),
	}
}

// Run scans every regular file in dir and feeds the findings to sink.
// Retention is returned as a decision queue, never applied here. The only
// fatal condition is an unreadable directory or file; everything else is
// recorded in the output.
func (r *Runner) Run(dir string, sink Sink) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	tracker := NewTracker(sink, r.cfg.MaxAppFindings)
	files := 0

	// ReadDir returns entries sorted by name. The order is load-bearing:
	// application grouping and test-case numbering are inferred purely
	// from filename adjacency.
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		desc := ParseLogName(path)

		if desc.Strange {
			r.log.Warn("unrecognized log file name", "file", entry.Name())
		}

		files++

		if !tracker.BeginFile(desc) {
			r.log.Debug("application truncated, content not scanned", "file", entry.Name(), "app", desc.App)

			continue
		}

		buf, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read log file %s: %w", entry.Name(), readErr)
		}

		r.scanFile(tracker, buf)
		r.log.Debug("scanned log file", "file", entry.Name(), "app", desc.App, "findings", tracker.FileErrors())
	}

	tracker.Finish()

	return &Result{
		Apps:          tracker.Stats(),
		Decisions:     tracker.Decisions(),
		Files:         files,
		DistinctLeaks: r.dedup.Len(),
	}, nil
}

// scanFile walks one fully loaded buffer with a resume offset, classifying
// regions and accumulating the bytes between matches as unmatched text.
func (r *Runner) scanFile(tracker *Tracker, buf []byte) {
	var (
		off       int
		unmatched int
		warned    bool
		pending   []byte
	)

	skip := func(gap []byte) {
		if len(gap) == 0 {
			return
		}

		unmatched += len(gap)

		if warned {
			return
		}

		pending = append(pending, gap...)

		// One warning per file; the accumulator keeps growing but is
		// never re-warned.
		if unmatched > r.cfg.UnmatchedWarnBytes {
			warned = true

			tracker.Record(Finding{Kind: FindingUnmatched, Text: string(pending)})
		}
	}

	for off < len(buf) && !tracker.Truncated() {
		tok, start, end, ok := r.tok.Next(buf, off)
		if !ok {
			skip(buf[off:])

			return
		}

		skip(buf[off:start])
		off = end

		switch tok.Kind {
		case TokenSeparator:
			// Advances the offset, emits nothing.
		case TokenError:
			tracker.Record(Finding{Kind: FindingError, Text: tok.Text})
		case TokenLeak:
			r.recordLeak(tracker, tok)
		}
	}
}

func (r *Runner) recordLeak(tracker *Tracker, tok Token) {
	sig := Signature{Direction: tok.Direction, Stack: tok.Stack}

	class, delta := r.dedup.Classify(sig, tok.Bytes, tok.Blocks)

	switch class {
	case ClassDuplicate:
		// Entirely suppressed: no finding, no counters.
	case ClassNew:
		tracker.Record(Finding{
			Kind:      FindingNewLeak,
			Signature: sig,
			Bytes:     tok.Bytes,
			Blocks:    tok.Blocks,
		})
	case ClassGrown:
		tracker.Record(Finding{
			Kind:        FindingGrownLeak,
			Signature:   sig,
			Bytes:       tok.Bytes,
			Blocks:      tok.Blocks,
			DeltaBytes:  delta.Bytes,
			DeltaBlocks: delta.Blocks,
		})
	}
}
