package tools

import (
	"strings"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

func (d *Dispatcher) deleteFile(sess *session.Session, in DeleteFileInput) domain.ToolResult {
	rec, ok := sess.Get(in.Path)
	if !ok {
		return notFound(sess, domain.ToolDeleteFile, in.Path, "file")
	}
	if rec.IsDirectory {
		return domain.Failed("", domain.ToolDeleteFile, domain.InvalidArgument("path", "%s is a directory, use delete_folder", in.Path), &domain.ErrorContext{
			Tool: domain.ToolDeleteFile,
			Path: in.Path,
		})
	}
	sess.Delete(in.Path)
	return success(domain.ToolDeleteFile, in.Path, domain.FileActionDeleted, "Deleted %s", in.Path)
}

func (d *Dispatcher) deleteFolder(sess *session.Session, in DeleteFolderInput) domain.ToolResult {
	if in.Folder == "" {
		return domain.Failed("", domain.ToolDeleteFolder, domain.NewToolError(domain.ErrorCodePermissionDenied, "refusing to delete the project root"), &domain.ErrorContext{
			Tool: domain.ToolDeleteFolder,
		})
	}
	removed := sess.DeletePrefix(in.Folder)
	if len(removed) == 0 {
		dir := strings.TrimSuffix(in.Folder, "/")
		res := notFound(sess, domain.ToolDeleteFolder, dir, "folder")
		res.Context.Suggestions = suggest(dir, folders(sess.FileTree()))
		res.Context.Suggestion = ""
		return res
	}
	count := 0
	for _, p := range removed {
		if strings.HasPrefix(p, in.Folder) {
			count++
		}
	}
	res := success(domain.ToolDeleteFolder, in.Folder, domain.FileActionFolderDeleted, "Deleted %s (%d entries)", in.Folder, count)
	res.Stats = &domain.ToolStats{FilesDeleted: count}
	return res
}

func folders(tree []string) []string {
	var out []string
	for _, entry := range tree {
		if strings.HasSuffix(entry, "/") {
			out = append(out, strings.TrimSuffix(entry, "/"))
		}
	}
	return out
}
