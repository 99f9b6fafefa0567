package tools

import (
	"errors"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/patch"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

func (d *Dispatcher) editFile(sess *session.Session, in EditFileInput) domain.ToolResult {
	rec, ok := sess.Get(in.Path)
	if !ok {
		return notFound(sess, in.Name, in.Path, "file")
	}
	if rec.IsDirectory {
		return domain.Failed("", in.Name, domain.InvalidArgument("path", "%s is a directory", in.Path), &domain.ErrorContext{
			Tool: in.Name,
			Path: in.Path,
		})
	}

	opts := patch.Options{
		UseRegex:        in.UseRegex,
		ReplaceAll:      in.ReplaceAll,
		CaseInsensitive: in.CaseInsensitive,
	}

	var (
		result patch.Result
		err    error
	)
	if in.Diff != "" {
		blocks, perr := patch.ParseBlocks(in.Diff)
		if perr != nil {
			return domain.Failed("", in.Name, domain.InvalidArgument("diff", "%v", perr), &domain.ErrorContext{
				Tool:       in.Name,
				Path:       in.Path,
				Suggestion: "Each block needs <<<<<<< SEARCH, =======, and >>>>>>> REPLACE lines.",
			})
		}
		result, err = patch.ApplyAll(rec.Content, blocks, opts)
	} else {
		result, err = patch.Apply(rec.Content, patch.Block{Search: in.Search, Replace: in.Replace}, opts)
	}

	if err != nil {
		var perr *patch.PatternError
		switch {
		case errors.Is(err, patch.ErrNoMatch):
			return domain.Failed("", in.Name, domain.NewToolError(domain.ErrorCodePatternNotFound, "search text not found in %s", in.Path), &domain.ErrorContext{
				Tool:       in.Name,
				Path:       in.Path,
				TotalLines: rec.Lines(),
				Suggestion: "Read the file again and copy the exact text to replace, including whitespace.",
			})
		case errors.As(err, &perr):
			return domain.Failed("", in.Name, domain.InvalidArgument("search", "%v", perr), &domain.ErrorContext{
				Tool: in.Name,
				Path: in.Path,
			})
		case errors.Is(err, patch.ErrEmptySearch):
			return domain.Failed("", in.Name, domain.InvalidArgument("search", "search text is empty"), nil)
		default:
			return domain.Failed("", in.Name, domain.NewToolError(domain.ErrorCodeInternal, "failed to apply edit: %v", err), nil)
		}
	}

	originalSize, originalLines := rec.Size, rec.Lines()
	rec.SetContent(result.Content)
	sess.Put(rec)

	res := success(in.Name, in.Path, domain.FileActionEdited, "Replaced %d occurrence(s) in %s", result.Occurrences, in.Path)
	res.Stats = &domain.ToolStats{
		Replacements:  result.Occurrences,
		OriginalSize:  originalSize,
		NewSize:       rec.Size,
		OriginalLines: originalLines,
		NewLines:      rec.Lines(),
		Positions:     result.Positions,
	}
	return res
}
