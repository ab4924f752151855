package scanner

// budgetState is the mode of an application's finding budget: an explicit
// two-state machine instead of a counter overloaded with a sentinel value.
type budgetState int

const (
	budgetCounting budgetState = iota
	budgetTruncated
)

// appBudget counts the findings charged to the current application until the
// limit flips it to truncated.
type appBudget struct {
	state budgetState
	count int
}

// AppStats summarizes one application for the end-of-run report.
type AppStats struct {
	App         string
	Files       int
	NewLeaks    int
	GrownLeaks  int
	Errors      int
	Warnings    int
	LeakedBytes uint64
	Truncated   bool
}

// Tracker owns the application -> file -> finding bookkeeping of one run:
// section transitions, per-file headers, the retention decision queue and
// the hard truncation limit. It is exclusively owned by the single scan
// loop and never shared.
type Tracker struct {
	limit int
	sink  Sink

	hasApp      bool
	app         string
	budget      appBudget
	appFindings int

	hasFile         bool
	file            string
	fileHeader      string
	fileHeaderSent  bool
	fileErrors      int
	fileContributed bool

	decisions []RetentionDecision
	stats     []*AppStats
	cur       *AppStats
}

// NewTracker creates a tracker that emits render instructions to sink and
// truncates an application after limit findings.
func NewTracker(sink Sink, limit int) *Tracker {
	return &Tracker{limit: limit, sink: sink}
}

// BeginFile runs the filename-transition bookkeeping for the next file in
// sorted order and reports whether the file's content should be scanned at
// all: false once the current application is truncated.
func (t *Tracker) BeginFile(desc Descriptor) bool {
	t.closeFile()

	if !t.hasApp || desc.App != t.app {
		t.closeApp()

		t.hasApp = true
		t.app = desc.App
		t.budget = appBudget{}
		t.appFindings = 0
		t.cur = &AppStats{App: desc.App}
		t.stats = append(t.stats, t.cur)
	}

	t.cur.Files++

	t.hasFile = true
	t.file = desc.Path
	t.fileHeader = desc.Header
	t.fileHeaderSent = false
	t.fileErrors = 0
	t.fileContributed = false

	return t.budget.state == budgetCounting
}

// Record processes one non-duplicate finding for the current file. Once the
// application budget is exhausted it emits a single truncation warning in
// place of the finding and suppresses everything until the next application
// switch.
func (t *Tracker) Record(f Finding) {
	if t.budget.state == budgetTruncated {
		return
	}

	if t.budget.count >= t.limit {
		t.emitHeaders()
		t.sink.Emit(Finding{Kind: FindingTruncation, App: t.app})

		t.budget.state = budgetTruncated
		t.cur.Truncated = true
		t.cur.Warnings++
		t.appFindings++
		t.fileContributed = true

		return
	}

	t.emitHeaders()

	f.App = t.app
	t.sink.Emit(f)

	t.budget.count++
	t.appFindings++
	t.fileErrors++
	t.fileContributed = true

	switch f.Kind {
	case FindingNewLeak:
		t.cur.NewLeaks++
		t.cur.LeakedBytes += f.Bytes
	case FindingGrownLeak:
		t.cur.GrownLeaks++

		if f.DeltaBytes > 0 {
			t.cur.LeakedBytes += uint64(f.DeltaBytes)
		}
	case FindingError:
		t.cur.Errors++
	case FindingUnmatched, FindingTruncation:
		t.cur.Warnings++
	}
}

// Truncated reports whether the current application's budget is exhausted.
func (t *Tracker) Truncated() bool {
	return t.budget.state == budgetTruncated
}

// FileErrors returns the finding count charged to the current file.
func (t *Tracker) FileErrors() int {
	return t.fileErrors
}

// Finish closes out the final file and application after the last file of
// the run.
func (t *Tracker) Finish() {
	t.closeFile()
	t.closeApp()
}

// Decisions returns the retention decision queue in file order.
func (t *Tracker) Decisions() []RetentionDecision {
	return t.decisions
}

// Stats returns the per-application summaries in first-seen order.
func (t *Tracker) Stats() []AppStats {
	stats := make([]AppStats, len(t.stats))

	for i, s := range t.stats {
		stats[i] = *s
	}

	return stats
}

// emitHeaders lazily opens the application section and the per-file header
// before the first finding they cover.
func (t *Tracker) emitHeaders() {
	if t.appFindings == 0 {
		t.sink.OpenApp(t.app)
	}

	if !t.fileHeaderSent {
		t.sink.FileHeader(t.fileHeader)
		t.fileHeaderSent = true
	}
}

func (t *Tracker) closeFile() {
	if !t.hasFile {
		return
	}

	action := RetentionDiscard
	if t.fileContributed {
		action = RetentionKeep
	}

	t.decisions = append(t.decisions, RetentionDecision{Path: t.file, Action: action})
	t.hasFile = false
}

func (t *Tracker) closeApp() {
	if !t.hasApp {
		return
	}

	t.sink.CloseApp(t.app, t.appFindings == 0)
	t.hasApp = false
}
