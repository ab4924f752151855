package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leakBlock = `Direct leak of 100 byte(s) in 2 object(s) allocated from:
    #0 0x4f0e32 in malloc
    #1 0x52a1b4 in alloc_thing foo.c:42
`

func TestTokenizer_DirectLeak(t *testing.T) {
	t.Parallel()

	tok := &Tokenizer{}

	got, start, end, ok := tok.Next([]byte(leakBlock), 0)
	require.True(t, ok)

	assert.Equal(t, TokenLeak, got.Kind)
	assert.Equal(t, DirectLeak, got.Direction)
	assert.Equal(t, uint64(100), got.Bytes)
	assert.Equal(t, uint64(2), got.Blocks)
	assert.Contains(t, got.Stack, "#0 0x4f0e32 in malloc")
	assert.Contains(t, got.Stack, "#1 0x52a1b4 in alloc_thing foo.c:42")
	assert.Equal(t, 0, start)
	assert.Equal(t, len(leakBlock), end)
}

func TestTokenizer_IndirectLeak(t *testing.T) {
	t.Parallel()

	buf := []byte("Indirect leak of 50 byte(s) in 1 object(s) allocated from:\n\t#0 0xdead in f\n")
	tok := &Tokenizer{}

	got, _, _, ok := tok.Next(buf, 0)
	require.True(t, ok)

	assert.Equal(t, TokenLeak, got.Kind)
	assert.Equal(t, IndirectLeak, got.Direction)
	assert.Equal(t, uint64(50), got.Bytes)
	assert.Equal(t, uint64(1), got.Blocks)
}

func TestTokenizer_ErrorReport(t *testing.T) {
	t.Parallel()

	buf := []byte("==ERROR: AddressSanitizer: heap-use-after-free on address 0x123\n" +
		"READ of size 4 at 0x123 thread T0\n" +
		"    #0 0x401 in main\n" +
		"==21==ABORTING\n")
	tok := &Tokenizer{}

	got, start, end, ok := tok.Next(buf, 0)
	require.True(t, ok)

	assert.Equal(t, TokenError, got.Kind)
	assert.Contains(t, got.Text, "heap-use-after-free")
	assert.Contains(t, got.Text, "#0 0x401 in main")
	assert.NotContains(t, got.Text, "ABORTING")
	assert.Equal(t, 0, start)

	// The terminator line is not consumed; scanning resumes at its start.
	assert.Equal(t, "==21==ABORTING\n", string(buf[end:]))
}

func TestTokenizer_ErrorReportAtEOF(t *testing.T) {
	t.Parallel()

	buf := []byte("==ERROR: AddressSanitizer: SEGV on unknown address\n    #0 0x1 in f")
	tok := &Tokenizer{}

	got, _, end, ok := tok.Next(buf, 0)
	require.True(t, ok)

	assert.Equal(t, TokenError, got.Kind)
	assert.Contains(t, got.Text, "SEGV")
	assert.Equal(t, len(buf), end)
}

func TestTokenizer_Separators(t *testing.T) {
	t.Parallel()

	buf := []byte("=================\n\n-----------------\n" + leakBlock)
	tok := &Tokenizer{}

	off := 0
	seps := 0

	for {
		got, start, end, ok := tok.Next(buf, off)
		require.True(t, ok)
		assert.Equal(t, off, start, "no unmatched gaps expected")

		off = end

		if got.Kind == TokenLeak {
			break
		}

		assert.Equal(t, TokenSeparator, got.Kind)
		seps++
	}

	assert.Equal(t, 3, seps)
}

func TestTokenizer_LeakedObjectsBlock(t *testing.T) {
	t.Parallel()

	buf := []byte("Objects leaked above:\n0x6020000000d0 (18 bytes)\n0x6020000000f0 (18 bytes)\n")

	enabled := &Tokenizer{SkipLeakedObjects: true}

	got, start, end, ok := enabled.Next(buf, 0)
	require.True(t, ok)
	assert.Equal(t, TokenSeparator, got.Kind)
	assert.Equal(t, 0, start)
	assert.Equal(t, len(buf), end)

	// Disabled, the block is unmatched text.
	disabled := &Tokenizer{}

	_, _, _, ok = disabled.Next(buf, 0)
	assert.False(t, ok)
}

func TestTokenizer_UnmatchedGapBeforeMatch(t *testing.T) {
	t.Parallel()

	junk := "some unrecognized chatter\n"
	buf := []byte(junk + leakBlock)
	tok := &Tokenizer{}

	got, start, _, ok := tok.Next(buf, 0)
	require.True(t, ok)

	assert.Equal(t, TokenLeak, got.Kind)
	assert.Equal(t, len(junk), start)
}

func TestTokenizer_NoMatch(t *testing.T) {
	t.Parallel()

	tok := &Tokenizer{}

	_, _, _, ok := tok.Next([]byte("nothing recognizable here"), 0)
	assert.False(t, ok)
}

func TestTokenizer_ResumeOffset(t *testing.T) {
	t.Parallel()

	buf := []byte(leakBlock + "\n" + leakBlock)
	tok := &Tokenizer{}

	first, _, end, ok := tok.Next(buf, 0)
	require.True(t, ok)
	require.Equal(t, TokenLeak, first.Kind)

	// Blank line separator, then the second leak.
	sep, _, end, ok := tok.Next(buf, end)
	require.True(t, ok)
	require.Equal(t, TokenSeparator, sep.Kind)

	second, _, end, ok := tok.Next(buf, end)
	require.True(t, ok)
	assert.Equal(t, TokenLeak, second.Kind)
	assert.Equal(t, len(buf), end)
}
