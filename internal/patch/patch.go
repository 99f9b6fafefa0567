// Package patch implements search/replace over text content.
package patch

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

var (
	// ErrNoMatch means the search text or pattern matched nothing.
	ErrNoMatch = errors.New("patch: no match")
	// ErrEmptySearch means the search text was empty.
	ErrEmptySearch = errors.New("patch: search text is empty")
)

// MatchTimeout bounds a single regex evaluation.
const MatchTimeout = 2 * time.Second

// Block is one search/replace pair.
type Block struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// Options selects the matching mode.
type Options struct {
	UseRegex        bool
	ReplaceAll      bool
	CaseInsensitive bool
}

// Result is the outcome of a successful Apply. Positions are byte offsets
// into the original content.
type Result struct {
	Content     string
	Occurrences int
	Positions   []int
}

// PatternError wraps a regex that failed to compile or evaluate.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Apply runs block against content. The replacement is always computed from
// the original content, never from a partially rewritten buffer.
func Apply(content string, block Block, opts Options) (Result, error) {
	if block.Search == "" {
		return Result{}, ErrEmptySearch
	}
	if opts.UseRegex {
		return applyRegex(content, block, opts)
	}
	if opts.CaseInsensitive {
		return applyFolded(content, block, opts)
	}
	return applyLiteral(content, block, opts)
}

// ApplyAll applies blocks in order; either every block matches and the final
// content is returned, or nothing is applied. Each block searches the output
// of the block before it, so the positions a block contributes are offsets
// into that intermediate content. Only the first block's positions refer to
// the original.
func ApplyAll(content string, blocks []Block, opts Options) (Result, error) {
	if len(blocks) == 0 {
		return Result{}, ErrEmptySearch
	}
	out := Result{Content: content}
	for i, b := range blocks {
		res, err := Apply(out.Content, b, opts)
		if err != nil {
			return Result{}, fmt.Errorf("block %d: %w", i+1, err)
		}
		out.Content = res.Content
		out.Occurrences += res.Occurrences
		out.Positions = append(out.Positions, res.Positions...)
	}
	return out, nil
}

func applyLiteral(content string, block Block, opts Options) (Result, error) {
	var positions []int
	for from := 0; from <= len(content); {
		idx := strings.Index(content[from:], block.Search)
		if idx < 0 {
			break
		}
		positions = append(positions, from+idx)
		from += idx + len(block.Search)
		if !opts.ReplaceAll {
			break
		}
	}
	if len(positions) == 0 {
		return Result{}, ErrNoMatch
	}
	spans := make([]span, len(positions))
	for i, pos := range positions {
		spans[i] = span{start: pos, end: pos + len(block.Search)}
	}
	return Result{
		Content:     splice(content, spans, func(int) string { return block.Replace }),
		Occurrences: len(positions),
		Positions:   positions,
	}, nil
}

// applyFolded matches literally but case-insensitively, reusing the regex
// engine on an escaped pattern. The replacement stays literal.
func applyFolded(content string, block Block, opts Options) (Result, error) {
	re, err := compile(regexp2.Escape(block.Search), true)
	if err != nil {
		return Result{}, err
	}
	spans, err := findSpans(re, content, opts.ReplaceAll)
	if err != nil {
		return Result{}, &PatternError{Pattern: block.Search, Err: err}
	}
	if len(spans) == 0 {
		return Result{}, ErrNoMatch
	}
	return Result{
		Content:     splice(content, spans, func(int) string { return block.Replace }),
		Occurrences: len(spans),
		Positions:   starts(spans),
	}, nil
}

func applyRegex(content string, block Block, opts Options) (Result, error) {
	re, err := compile(block.Search, opts.CaseInsensitive)
	if err != nil {
		return Result{}, err
	}
	spans, err := findSpans(re, content, opts.ReplaceAll)
	if err != nil {
		return Result{}, &PatternError{Pattern: block.Search, Err: err}
	}
	if len(spans) == 0 {
		return Result{}, ErrNoMatch
	}
	count := 1
	if opts.ReplaceAll {
		count = -1
	}
	out, err := re.Replace(content, block.Replace, -1, count)
	if err != nil {
		return Result{}, &PatternError{Pattern: block.Search, Err: err}
	}
	return Result{
		Content:     out,
		Occurrences: len(spans),
		Positions:   starts(spans),
	}, nil
}

func compile(pattern string, caseInsensitive bool) (*regexp2.Regexp, error) {
	flags := regexp2.RegexOptions(regexp2.None)
	if caseInsensitive {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, flags)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

type span struct {
	start, end int
}

// findSpans returns byte spans of non-overlapping matches. regexp2 reports
// rune offsets, so they are translated through a rune→byte table.
func findSpans(re *regexp2.Regexp, content string, all bool) ([]span, error) {
	var offsets []int
	byteOffset := func(runeIdx int) int {
		if offsets == nil {
			offsets = runeByteOffsets(content)
		}
		return offsets[runeIdx]
	}

	var spans []span
	m, err := re.FindStringMatch(content)
	for m != nil && err == nil {
		start := byteOffset(m.Index)
		spans = append(spans, span{start: start, end: byteOffset(m.Index + m.Length)})
		if !all {
			break
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return spans, nil
}

func runeByteOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

func splice(content string, spans []span, replacement func(int) string) string {
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for i, sp := range spans {
		b.WriteString(content[last:sp.start])
		b.WriteString(replacement(i))
		last = sp.end
	}
	b.WriteString(content[last:])
	return b.String()
}

func starts(spans []span) []int {
	out := make([]int, len(spans))
	for i, sp := range spans {
		out[i] = sp.start
	}
	return out
}
