package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leakA100 = `Direct leak of 100 byte(s) in 2 object(s) allocated from:
    #0 0x4f0e32 in malloc
    #1 0x52a1b4 in alloc_thing foo.c:42
`

const leakA150 = `Direct leak of 150 byte(s) in 3 object(s) allocated from:
    #0 0x4f0e32 in malloc
    #1 0x52a1b4 in alloc_thing foo.c:42
`

func writeLogs(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

func TestRunner_DedupAcrossFilesAndApps(t *testing.T) {
	t.Parallel()

	dir := writeLogs(t, map[string]string{
		// Sorted order: kernel tc-1, kernel tc-2, stdlib tc-1.
		"beam-kernel-tc-1-kernel_SUITE-some_func.log":  leakA100,
		"beam-kernel-tc-2-kernel_SUITE-other_func.log": leakA100, // Exact repeat.
		"beam-stdlib-tc-1-stdlib_SUITE-io_case.log":    leakA150, // Same stack, grown.
	})

	sink := &recordSink{}
	runner := NewRunner(Config{}, nil)

	result, err := runner.Run(dir, sink)
	require.NoError(t, err)

	findings := sink.findings()
	require.Len(t, findings, 2)

	assert.Equal(t, FindingNewLeak, findings[0].Kind)
	assert.Equal(t, "kernel", findings[0].App)
	assert.Equal(t, uint64(100), findings[0].Bytes)

	// The dedup map is run-wide: the stdlib occurrence grows the kernel
	// one instead of starting over.
	assert.Equal(t, FindingGrownLeak, findings[1].Kind)
	assert.Equal(t, "stdlib", findings[1].App)
	assert.Equal(t, int64(50), findings[1].DeltaBytes)
	assert.Equal(t, int64(1), findings[1].DeltaBlocks)
	assert.Equal(t, uint64(150), findings[1].Bytes)

	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 1, result.DistinctLeaks)

	// The duplicate-only file contributed nothing.
	require.Len(t, result.Decisions, 3)
	assert.Equal(t, RetentionKeep, result.Decisions[0].Action)
	assert.Equal(t, RetentionDiscard, result.Decisions[1].Action)
	assert.Equal(t, RetentionKeep, result.Decisions[2].Action)
}

func TestRunner_ErrorReports(t *testing.T) {
	t.Parallel()

	content := "==ERROR: AddressSanitizer: heap-use-after-free on address 0x123\n" +
		"READ of size 4 at 0x123 thread T0\n" +
		"==21==ABORTING\n"

	dir := writeLogs(t, map[string]string{
		"beam-kernel-tc-1-kernel_SUITE-f.log": content,
	})

	sink := &recordSink{}

	_, err := NewRunner(Config{}, nil).Run(dir, sink)
	require.NoError(t, err)

	findings := sink.findings(FindingError)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Text, "heap-use-after-free")
}

func TestRunner_UnmatchedTextWarnsOncePerFile(t *testing.T) {
	t.Parallel()

	junk := strings.Repeat("x", 300) + "\n"

	dir := writeLogs(t, map[string]string{
		"beam-kernel-tc-1-kernel_SUITE-f.log": junk + leakA100 + junk + junk,
	})

	sink := &recordSink{}

	_, err := NewRunner(Config{}, nil).Run(dir, sink)
	require.NoError(t, err)

	warnings := sink.findings(FindingUnmatched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Text, "xxx")
}

func TestRunner_SmallUnmatchedTextIsSilent(t *testing.T) {
	t.Parallel()

	dir := writeLogs(t, map[string]string{
		"beam-kernel-tc-1-kernel_SUITE-f.log": "a little noise\n" + leakA100,
	})

	sink := &recordSink{}

	_, err := NewRunner(Config{}, nil).Run(dir, sink)
	require.NoError(t, err)

	assert.Empty(t, sink.findings(FindingUnmatched))
}

func TestRunner_SkipsNonRegularFiles(t *testing.T) {
	t.Parallel()

	dir := writeLogs(t, map[string]string{
		"beam-kernel-tc-1-kernel_SUITE-f.log": leakA100,
	})

	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o750))

	sink := &recordSink{}

	result, err := NewRunner(Config{}, nil).Run(dir, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Files)
}

func TestRunner_TruncationGatesLaterFiles(t *testing.T) {
	t.Parallel()

	// Two distinct leaks in the first file exhaust a budget of 1. The
	// second leak still reaches the dedup map (classification precedes
	// the budget check), but the second file of the same application is
	// not scanned at all, so its leak stays unknown.
	leakB := "Direct leak of 7 byte(s) in 1 object(s) allocated from:\n    #0 0xb in b\n"
	leakC := "Direct leak of 9 byte(s) in 1 object(s) allocated from:\n    #0 0xc in c\n"

	dir := writeLogs(t, map[string]string{
		"beam-kernel-tc-1-kernel_SUITE-f.log": leakA100 + "\n" + leakB,
		"beam-kernel-tc-2-kernel_SUITE-g.log": leakC,
	})

	sink := &recordSink{}

	result, err := NewRunner(Config{MaxAppFindings: 1}, nil).Run(dir, sink)
	require.NoError(t, err)

	assert.Len(t, sink.findings(FindingNewLeak), 1)
	assert.Len(t, sink.findings(FindingTruncation), 1)
	assert.Equal(t, 2, result.DistinctLeaks)
}

func TestRunner_MissingDirFails(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}

	_, err := NewRunner(Config{}, nil).Run(filepath.Join(t.TempDir(), "nope"), sink)
	assert.Error(t, err)
}

func TestRunner_EmptyDir(t *testing.T) {
	t.Parallel()

	sink := &recordSink{}

	result, err := NewRunner(Config{}, nil).Run(t.TempDir(), sink)
	require.NoError(t, err)

	assert.Zero(t, result.Files)
	assert.Empty(t, result.Apps)
	assert.Empty(t, sink.ops)
}
