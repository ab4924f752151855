package scanner

import (
	"regexp"
	"strconv"
	"sync"
)

// TokenKind enumerates the regions the tokenizer recognizes.
type TokenKind int

// Token kinds, in alternation priority order.
const (
	TokenLeak TokenKind = iota
	TokenError
	TokenSeparator
)

// Token is one classified region of a log buffer.
type Token struct {
	Kind TokenKind

	// Leak captures.
	Direction Direction
	Bytes     uint64
	Blocks    uint64
	Stack     string

	// Error report body.
	Text string
}

// Alternation pieces. Alternatives are tried in this order at each position;
// Go's regexp is leftmost-first, so earlier alternatives win ties.
const (
	leakAlt = `^(Direct|Indirect) leak of (\d+) byte\(s\) in (\d+) object\(s\) allocated from:\n` +
		`((?:[ \t]+[^\n]*(?:\n|\z))+)`
	errorAlt     = `^(==ERROR: AddressSanitizer:(?s:.*?))(?:\n(?:==|--)|\z)`
	ruleAlt      = `^(?:=+|-+)(?:\n|\z)`
	leakedObjAlt = `^Objects leaked above:\n(?:0x[^\n]*(?:\n|\z))+`
	blankAlt     = `^\n`
)

// Tokenizer finds the next recognizable region of a log buffer. The
// alternation is compiled once, on first use, and reused for every file of
// the run.
type Tokenizer struct {
	// SkipLeakedObjects also swallows "Objects leaked above:" address
	// dumps as separators.
	SkipLeakedObjects bool

	once sync.Once
	re   *regexp.Regexp
}

func (t *Tokenizer) compile() {
	pattern := `(?m)` + leakAlt + `|` + errorAlt + `|` + ruleAlt

	if t.SkipLeakedObjects {
		pattern += `|` + leakedObjAlt
	}

	pattern += `|` + blankAlt

	t.re = regexp.MustCompile(pattern)
}

// Submatch group offsets into FindSubmatchIndex results: groups 1-4 are the
// leak captures, group 5 is the error report body.
const (
	leakDirGroup   = 1
	leakBytesGroup = 2
	leakBlockGroup = 3
	leakStackGroup = 4
	errorTextGroup = 5
)

// Next returns the next token at or after off together with the matched
// span [start, end). Bytes between off and start are unmatched text the
// caller accumulates. ok is false when nothing more matches; the remainder
// of the buffer is then trailing unmatched text.
func (t *Tokenizer) Next(buf []byte, off int) (tok Token, start, end int, ok bool) {
	t.once.Do(t.compile)

	m := t.re.FindSubmatchIndex(buf[off:])
	if m == nil {
		return Token{}, 0, 0, false
	}

	start = off + m[0]
	end = off + m[1]

	switch {
	case m[2*leakDirGroup] >= 0:
		return t.leakToken(buf, off, m), start, end, true
	case m[2*errorTextGroup] >= 0:
		return t.errorToken(buf, off, m)
	default:
		return Token{Kind: TokenSeparator}, start, end, true
	}
}

func (t *Tokenizer) leakToken(buf []byte, off int, m []int) Token {
	group := func(g int) string {
		return string(buf[off+m[2*g] : off+m[2*g+1]])
	}

	bytes, _ := strconv.ParseUint(group(leakBytesGroup), 10, 64)
	blocks, _ := strconv.ParseUint(group(leakBlockGroup), 10, 64)

	return Token{
		Kind:      TokenLeak,
		Direction: Direction(group(leakDirGroup)),
		Bytes:     bytes,
		Blocks:    blocks,
		Stack:     group(leakStackGroup),
	}
}

// errorToken rewinds the match end to the start of the terminator line, so
// the terminator itself is rescanned as a fresh position (it may be a
// separator rule or the next error report).
func (t *Tokenizer) errorToken(buf []byte, off int, m []int) (Token, int, int, bool) {
	start := off + m[0]
	textEnd := off + m[2*errorTextGroup+1]

	end := textEnd
	if end < len(buf) && buf[end] == '\n' {
		end++
	}

	tok := Token{
		Kind: TokenError,
		Text: string(buf[off+m[2*errorTextGroup] : textEnd]),
	}

	return tok, start, end, true
}
