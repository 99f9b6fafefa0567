package tools

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

func (d *Dispatcher) readFile(sess *session.Session, in ReadFileInput) domain.ToolResult {
	rec, ok := sess.Get(in.Path)
	if !ok {
		return notFound(sess, domain.ToolReadFile, in.Path, "file")
	}
	if rec.IsDirectory {
		return domain.Failed("", domain.ToolReadFile, domain.InvalidArgument("path", "%s is a directory", in.Path), &domain.ErrorContext{
			Tool: domain.ToolReadFile,
			Path: in.Path,
		})
	}

	maxLines := d.limits.MaxReadLines
	lines := strings.Split(rec.Content, "\n")
	total := len(lines)

	start, end := 1, total
	if !in.Windowed() {
		if total > maxLines {
			return domain.Failed("", domain.ToolReadFile,
				domain.NewToolError(domain.ErrorCodeLimitExceeded, "%s has %d lines, more than the %d that can be read at once", in.Path, total, maxLines),
				&domain.ErrorContext{
					Tool:       domain.ToolReadFile,
					Path:       in.Path,
					TotalLines: total,
					MaxLines:   maxLines,
					Suggestion: fmt.Sprintf("Read a window of at most %d lines with startLine/endLine (for example startLine=1, endLine=%d), or search for the symbol you need and read around it.", maxLines, maxLines),
				})
		}
	} else {
		start, end = in.StartLine, in.EndLine
		switch {
		case start == 0:
			start = 1
		case end == 0:
			end = min(total, start+maxLines-1)
		}
		if start > total {
			return domain.Failed("", domain.ToolReadFile, domain.InvalidArgument("startLine", "startLine %d is past the end of %s (%d lines)", start, in.Path, total), &domain.ErrorContext{
				Tool:       domain.ToolReadFile,
				Path:       in.Path,
				TotalLines: total,
			})
		}
		if end < start {
			return domain.Failed("", domain.ToolReadFile, domain.InvalidArgument("endLine", "endLine %d is before startLine %d", end, start), &domain.ErrorContext{
				Tool:       domain.ToolReadFile,
				Path:       in.Path,
				TotalLines: total,
			})
		}
		if span := end - start + 1; span > maxLines {
			return domain.Failed("", domain.ToolReadFile,
				domain.NewToolError(domain.ErrorCodeLimitExceeded, "requested %d lines of %s, at most %d can be read at once", span, in.Path, maxLines),
				&domain.ErrorContext{
					Tool:           domain.ToolReadFile,
					Path:           in.Path,
					TotalLines:     total,
					RequestedLines: span,
					MaxLines:       maxLines,
					Suggestion:     fmt.Sprintf("Split the read into windows of at most %d lines, e.g. startLine=%d, endLine=%d.", maxLines, start, start+maxLines-1),
				})
		}
		end = min(end, total)
	}

	window := lines[start-1 : end]
	text := strings.Join(window, "\n")
	fullBytes := len(text)
	truncated := false
	if fullBytes > d.limits.MaxReadBytes {
		text = truncateUTF8(text, d.limits.MaxReadBytes)
		truncated = true
	}
	returned := strings.Count(text, "\n") + 1

	content := text
	if in.IncludeLineNumbers {
		content = numberLines(text, start)
	}

	msg := fmt.Sprintf("Read lines %d-%d of %d from %s", start, end, total, in.Path)
	if truncated {
		msg += fmt.Sprintf(" (truncated to %s of %s)", humanize.Bytes(uint64(len(text))), humanize.Bytes(uint64(fullBytes)))
	}
	res := success(domain.ToolReadFile, in.Path, domain.FileActionRead, "%s", msg)
	res.Content = content
	res.Stats = &domain.ToolStats{
		StartLine:        start,
		EndLine:          start + returned - 1,
		TotalLinesInFile: total,
		LinesReturned:    returned,
		Truncated:        truncated,
		ReturnedBytes:    len(text),
		FullBytes:        fullBytes,
	}
	return res
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func numberLines(text string, first int) string {
	lines := strings.Split(text, "\n")
	width := len(fmt.Sprint(first + len(lines) - 1))
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d| %s", width, first+i, line)
	}
	return b.String()
}
