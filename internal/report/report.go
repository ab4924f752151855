// Package report renders scan findings as a single self-contained HTML
// document: one collapsible section per application, preformatted finding
// blocks color-coded by classification, and a run summary with a leaked
// bytes chart.
package report

import (
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/leakview/leakview/internal/scanner"
)

// Theme selects the report color scheme.
type Theme string

// Available themes.
const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// outFilePerm is the permission mode for the rendered report.
const outFilePerm = 0o644

// blockKind says how one entry inside an application section is rendered.
type blockKind int

const (
	blockFileHeader blockKind = iota
	blockFinding
)

// block is one render instruction buffered inside an application section.
type block struct {
	Kind  blockKind
	Class string
	Text  string
}

// appSection buffers the instructions for one application, in order.
type appSection struct {
	App    string
	OK     bool
	Blocks []block
}

// Builder implements scanner.Sink by buffering render instructions in
// document order; WriteFile turns the buffer into the final document.
type Builder struct {
	title string
	theme Theme
	apps  []*appSection
	cur   *appSection
}

// NewBuilder creates a report builder.
func NewBuilder(title string, theme Theme) *Builder {
	if title == "" {
		title = "Memory Sanitizer Report"
	}

	if theme != ThemeLight {
		theme = ThemeDark
	}

	return &Builder{title: title, theme: theme}
}

// OpenApp starts a new application section.
func (b *Builder) OpenApp(app string) {
	b.cur = &appSection{App: app}
	b.apps = append(b.apps, b.cur)
}

// FileHeader adds the test-case header for the next findings.
func (b *Builder) FileHeader(header string) {
	b.cur.Blocks = append(b.cur.Blocks, block{Kind: blockFileHeader, Text: header})
}

// Emit adds one finding block to the open application section.
func (b *Builder) Emit(f scanner.Finding) {
	b.cur.Blocks = append(b.cur.Blocks, formatFinding(f))
}

// CloseApp ends an application. Applications without findings collapse to a
// neutral "ok" marker.
func (b *Builder) CloseApp(app string, ok bool) {
	if ok {
		b.apps = append(b.apps, &appSection{App: app, OK: true})
	}

	b.cur = nil
}

// Summary carries the end-of-run figures for the report head and footer.
type Summary struct {
	Apps          []scanner.AppStats
	Files         int
	DistinctLeaks int
	GeneratedAt   time.Time
	Host          string
	User          string
}

// WriteFile renders the buffered document to path.
func (b *Builder) WriteFile(path string, summary Summary) error {
	doc, err := b.render(summary)
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(path, []byte(doc), outFilePerm)
	if writeErr != nil {
		return fmt.Errorf("write report %s: %w", path, writeErr)
	}

	return nil
}

func (b *Builder) render(summary Summary) (string, error) {
	summaryHTML, err := renderSummary(summary, b.theme)
	if err != nil {
		return "", err
	}

	var content template.HTML

	for _, app := range b.apps {
		sectionHTML, sectionErr := renderTemplate("section.html", sectionData{
			App:    app.App,
			OK:     app.OK,
			Blocks: sectionBlocks(app),
		})
		if sectionErr != nil {
			return "", fmt.Errorf("render section %s: %w", app.App, sectionErr)
		}

		content += sectionHTML
	}

	scripts, err := renderTemplate("scripts.html", nil)
	if err != nil {
		return "", fmt.Errorf("render scripts: %w", err)
	}

	darkClass := ""
	if b.theme == ThemeDark {
		darkClass = "dark"
	}

	page, err := renderTemplate("page.html", pageData{
		Title:       b.title,
		DarkClass:   darkClass,
		Summary:     summaryHTML,
		Content:     content,
		Scripts:     scripts,
		GeneratedAt: summary.GeneratedAt.Format(time.RFC1123),
		Host:        summary.Host,
		User:        summary.User,
	})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return string(page), nil
}

func sectionBlocks(app *appSection) []blockData {
	blocks := make([]blockData, len(app.Blocks))

	for i, blk := range app.Blocks {
		blocks[i] = blockData{
			IsHeader: blk.Kind == blockFileHeader,
			Class:    blk.Class,
			Text:     blk.Text,
		}
	}

	return blocks
}

func renderSummary(summary Summary, theme Theme) (template.HTML, error) {
	rows := make([]summaryRow, len(summary.Apps))

	for i, app := range summary.Apps {
		rows[i] = summaryRow{
			App:         app.App,
			Files:       app.Files,
			NewLeaks:    app.NewLeaks,
			GrownLeaks:  app.GrownLeaks,
			Errors:      app.Errors,
			Warnings:    app.Warnings,
			LeakedBytes: humanize.Bytes(app.LeakedBytes),
			Truncated:   app.Truncated,
		}
	}

	return renderTemplate("summary.html", summaryData{
		Files:         summary.Files,
		Apps:          len(summary.Apps),
		DistinctLeaks: summary.DistinctLeaks,
		Rows:          rows,
		Chart:         leakChartHTML(summary.Apps, theme),
	})
}

// CSS classes per classification. Indirect leaks stay unstyled on purpose:
// they ride along with the direct leak that owns them.
const (
	classError     = "finding error"
	classDirect    = "finding leak-direct"
	classIndirect  = "finding"
	classGrown     = "finding leak-grown"
	classWarning   = "finding warning"
	classTruncated = "finding truncated"
)

func formatFinding(f scanner.Finding) block {
	switch f.Kind {
	case scanner.FindingError:
		return block{Kind: blockFinding, Class: classError, Text: f.Text}
	case scanner.FindingNewLeak:
		class := classIndirect
		if f.Signature.Direction == scanner.DirectLeak {
			class = classDirect
		}

		text := fmt.Sprintf("%s leak of %d byte(s) in %d object(s) allocated from:\n%s",
			f.Signature.Direction, f.Bytes, f.Blocks, f.Signature.Stack)

		return block{Kind: blockFinding, Class: class, Text: text}
	case scanner.FindingGrownLeak:
		text := fmt.Sprintf("%s leak grew: %+d %s (now %d), %+d %s (now %d)",
			f.Signature.Direction,
			f.DeltaBytes, plural(f.DeltaBytes, "byte"), f.Bytes,
			f.DeltaBlocks, plural(f.DeltaBlocks, "object"), f.Blocks)

		return block{Kind: blockFinding, Class: classGrown, Text: text}
	case scanner.FindingUnmatched:
		return block{Kind: blockFinding, Class: classWarning, Text: "Unrecognized output:\n" + f.Text}
	case scanner.FindingTruncation:
		text := fmt.Sprintf("Too many errors for %s; suppressing the rest of this application's output", f.App)

		return block{Kind: blockFinding, Class: classTruncated, Text: text}
	}

	return block{}
}

func plural(n int64, noun string) string {
	if n == 1 || n == -1 {
		return noun
	}

	return noun + "s"
}
