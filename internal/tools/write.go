package tools

import (
	"github.com/dustin/go-humanize"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

func (d *Dispatcher) writeFile(sess *session.Session, in WriteFileInput) domain.ToolResult {
	rec, exists := sess.Get(in.Path)
	if exists && rec.IsDirectory {
		return domain.Failed("", domain.ToolWriteFile, domain.InvalidArgument("path", "%s is a directory", in.Path), &domain.ErrorContext{
			Tool: domain.ToolWriteFile,
			Path: in.Path,
		})
	}

	if !exists {
		rec = domain.NewFileRecord(sess.ProjectID, in.Path, in.Content)
	} else {
		rec.SetContent(in.Content)
	}
	created := sess.Put(rec)

	action, verb := domain.FileActionUpdated, "Updated"
	if created {
		action, verb = domain.FileActionCreated, "Created"
	}
	res := success(domain.ToolWriteFile, in.Path, action, "%s %s (%s, %d lines)",
		verb, in.Path, humanize.Bytes(uint64(rec.Size)), rec.Lines())
	res.Stats = &domain.ToolStats{Size: rec.Size, NewLines: rec.Lines()}
	return res
}
