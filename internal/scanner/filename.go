package scanner

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Filename grammar: <executable>-<application>[-tc-<n>-<module>-<function>.<ext>].
const (
	filenameSep     = "-"
	beforeCaseCount = 3 // exe-app-<marker>.<ext>: logged before the first test case.
	testCaseCount   = 6 // exe-app-tc-<n>-<module>-<function>.<ext>.
	testCaseMarker  = "tc"
	testNumIndex    = 3
	moduleIndex     = 4
	funcIndex       = 5
)

// Descriptor is what a log file's name tells us: which application wrote it
// and how to title its findings. Parsed once per file, immutable afterwards.
type Descriptor struct {
	Path   string
	App    string
	Header string

	// Strange marks a name matching neither recognized grammar. It still
	// forms a normal test-case boundary.
	Strange bool
}

// ParseLogName derives a Descriptor from a log file path. Unrecognized
// names get a fallback header but are not an error.
func ParseLogName(path string) Descriptor {
	base := filepath.Base(path)
	tokens := strings.Split(base, filenameSep)

	desc := Descriptor{
		Path:    path,
		App:     tokens[0],
		Header:  "Strange log file name " + path,
		Strange: true,
	}

	if len(tokens) >= 2 {
		desc.App = tokens[1]
	}

	switch {
	case len(tokens) == beforeCaseCount:
		desc.Header = "before first test case of " + desc.App
		desc.Strange = false
	case len(tokens) >= testCaseCount && tokens[2] == testCaseMarker && isDigits(tokens[testNumIndex]):
		// A function name may itself contain dashes; everything past
		// the module is rejoined before stripping the extension.
		rest := strings.Join(tokens[funcIndex:], filenameSep)
		function := strings.SplitN(rest, ".", 2)[0]

		desc.Header = fmt.Sprintf("Test case #%s %s:%s", tokens[testNumIndex], tokens[moduleIndex], function)
		desc.Strange = false
	}

	return desc
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
