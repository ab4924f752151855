// Package scanner implements the streaming sanitizer-log classifier: it
// tokenizes raw log bytes, deduplicates leak reports across all files of a
// run, and tracks per-application error budgets with hard truncation.
package scanner

// Direction says whether a leak was reported as directly or indirectly lost.
type Direction string

// Leak directions as they appear in sanitizer output.
const (
	DirectLeak   Direction = "Direct"
	IndirectLeak Direction = "Indirect"
)

// Signature identifies a leak: the report direction plus the exact
// allocation stack text. Two reports with byte-identical stacks are the same
// leak.
type Signature struct {
	Direction Direction
	Stack     string
}

// FindingKind enumerates the finding variants produced by a scan.
type FindingKind int

// Finding variants.
const (
	FindingError FindingKind = iota
	FindingNewLeak
	FindingGrownLeak
	FindingUnmatched
	FindingTruncation
)

// Finding is one classified, non-suppressed observation from a log file.
// Findings are handed to the Sink as they are produced and not retained.
type Finding struct {
	Kind FindingKind
	App  string

	// Text holds the report body for FindingError and the skipped bytes
	// for FindingUnmatched.
	Text string

	// Leak fields, set for FindingNewLeak and FindingGrownLeak. Grown
	// findings additionally carry the deltas against the previous
	// observation of the same signature.
	Signature   Signature
	Bytes       uint64
	Blocks      uint64
	DeltaBytes  int64
	DeltaBlocks int64
}

// Sink receives render instructions in document order. The scanner core
// never touches the filesystem through it.
type Sink interface {
	// OpenApp starts the section for an application. Called before the
	// first finding of the application, never for applications without
	// findings.
	OpenApp(app string)

	// FileHeader emits the test-case header derived from the current
	// file's name. Called before the first finding of each contributing
	// file.
	FileHeader(header string)

	// Emit renders one finding into the open application section.
	Emit(f Finding)

	// CloseApp ends an application. ok is true when the application
	// produced no findings at all.
	CloseApp(app string, ok bool)
}

// RetentionAction is the verdict on a processed log file.
type RetentionAction int

// Retention verdicts.
const (
	RetentionKeep RetentionAction = iota
	RetentionDiscard
)

// RetentionDecision records whether a file contributed output. Decisions
// are queued during the scan and applied by a separate pass afterwards.
type RetentionDecision struct {
	Path   string
	Action RetentionAction
}
