package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
	errTemplates  error
)

// getTemplates returns the parsed templates, loading them once.
func getTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error

		templates, parseErr = template.New("").ParseFS(templateFS, "templates/*.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing templates: %w", parseErr)
		}
	})

	return templates, errTemplates
}

// renderTemplate renders a named template with the given data.
func renderTemplate(name string, data any) (template.HTML, error) {
	tmpl, err := getTemplates()
	if err != nil {
		return "", fmt.Errorf("loading templates: %w", err)
	}

	var buf bytes.Buffer

	err = tmpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return template.HTML(buf.String()), nil
}

// pageData holds template data for page.html.
type pageData struct {
	Title       string
	DarkClass   string
	Summary     template.HTML
	Content     template.HTML
	Scripts     template.HTML
	GeneratedAt string
	Host        string
	User        string
}

// sectionData holds template data for section.html.
type sectionData struct {
	App    string
	OK     bool
	Blocks []blockData
}

// blockData is one header or finding inside a section.
type blockData struct {
	IsHeader bool
	Class    string
	Text     string
}

// summaryData holds template data for summary.html.
type summaryData struct {
	Files         int
	Apps          int
	DistinctLeaks int
	Rows          []summaryRow
	Chart         template.HTML
}

// summaryRow is one application line in the summary table.
type summaryRow struct {
	App         string
	Files       int
	NewLeaks    int
	GrownLeaks  int
	Errors      int
	Warnings    int
	LeakedBytes string
	Truncated   bool
}
