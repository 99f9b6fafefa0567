package continuation

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

// Touched is a path affected by earlier tool calls, with the last action
// that affected it. Folder paths end with "/".
type Touched struct {
	Path   string
	Action domain.FileAction
}

// TouchedPaths lists the paths affected by successful results, in first
// touch order. Reads count: a file the model has seen is a file it may
// hold a stale view of.
func TouchedPaths(results []domain.ToolResult) []Touched {
	index := make(map[string]int)
	var out []Touched
	for _, res := range results {
		p, ok := res.TouchedPath()
		if !ok {
			continue
		}
		if i, seen := index[p]; seen {
			out[i].Action = res.Action
			continue
		}
		index[p] = len(out)
		out = append(out, Touched{Path: p, Action: res.Action})
	}
	return out
}

// VerifyTouched reports the current state of every path the results touched.
func VerifyTouched(sess *session.Session, results []domain.ToolResult) []domain.FileVerification {
	touched := TouchedPaths(results)
	out := make([]domain.FileVerification, 0, len(touched))
	for _, t := range touched {
		out = append(out, verifyPath(sess, t))
	}
	return out
}

func verifyPath(sess *session.Session, t Touched) domain.FileVerification {
	v := domain.FileVerification{Path: t.Path, LastAction: t.Action}
	if strings.HasSuffix(t.Path, "/") {
		for _, p := range sess.Paths() {
			if strings.HasPrefix(p, t.Path) {
				v.Exists = true
				break
			}
		}
		return v
	}
	rec, ok := sess.Get(t.Path)
	if !ok {
		return v
	}
	v.Exists = true
	v.Size = rec.Size
	v.Lines = rec.Lines()
	v.Hash = rec.Hash
	return v
}

// ResumeNotice builds the message that tells the model which files to
// re-read before touching them again.
func ResumeNotice(reason string, files []domain.FileVerification) domain.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] The previous request was interrupted.", reason)
	if len(files) == 0 {
		b.WriteString(" No files were touched before the interruption.")
		return domain.ChatMessage{Role: domain.RoleSystem, Content: b.String()}
	}
	b.WriteString(" Re-read these files before editing them again, their content may differ from what you last saw:\n")
	for _, f := range files {
		switch {
		case !f.Exists:
			fmt.Fprintf(&b, "- %s (missing, last action: %s)\n", f.Path, f.LastAction)
		case strings.HasSuffix(f.Path, "/"):
			fmt.Fprintf(&b, "- %s (folder, last action: %s)\n", f.Path, f.LastAction)
		default:
			fmt.Fprintf(&b, "- %s (%s, %d lines, last action: %s)\n", f.Path, humanize.Bytes(uint64(f.Size)), f.Lines, f.LastAction)
		}
	}
	return domain.ChatMessage{Role: domain.RoleSystem, Content: strings.TrimRight(b.String(), "\n")}
}
