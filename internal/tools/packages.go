package tools

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

const packageJSONPath = "package.json"

const (
	sectionDependencies    = "dependencies"
	sectionDevDependencies = "devDependencies"
)

func (in RemovePackageInput) sections() []string {
	switch {
	case in.IsDev == nil:
		return []string{sectionDependencies, sectionDevDependencies}
	case *in.IsDev:
		return []string{sectionDevDependencies}
	default:
		return []string{sectionDependencies}
	}
}

func (d *Dispatcher) removePackage(sess *session.Session, in RemovePackageInput) domain.ToolResult {
	rec, ok := sess.Get(packageJSONPath)
	if !ok || rec.IsDirectory {
		return domain.Failed("", domain.ToolRemovePackage, domain.NewToolError(domain.ErrorCodeNotFound, "no %s in project", packageJSONPath), &domain.ErrorContext{
			Tool: domain.ToolRemovePackage,
			Path: packageJSONPath,
		})
	}

	doc := rec.Content
	if !gjson.Valid(doc) {
		// Tolerate comments and trailing commas; they do not survive the edit.
		doc = string(jsonc.ToJSON([]byte(doc)))
		if !gjson.Valid(doc) {
			return domain.Failed("", domain.ToolRemovePackage, domain.NewToolError(domain.ErrorCodeInvalidArgument, "%s is not valid JSON", packageJSONPath), &domain.ErrorContext{
				Tool: domain.ToolRemovePackage,
				Path: packageJSONPath,
			})
		}
	}

	var removed, missing []string
	for _, name := range in.Names {
		found := false
		for _, section := range in.sections() {
			key := section + "." + gjson.Escape(name)
			if !gjson.Get(doc, key).Exists() {
				continue
			}
			next, err := sjson.Delete(doc, key)
			if err != nil {
				return domain.Failed("", domain.ToolRemovePackage, domain.NewToolError(domain.ErrorCodeInternal, "failed to remove %s from %s: %v", name, section, err), nil)
			}
			doc = next
			found = true
		}
		if found {
			removed = append(removed, name)
		} else {
			missing = append(missing, name)
		}
	}

	if len(removed) > 0 {
		rec.SetContent(doc)
		sess.Put(rec)
	}

	res := success(domain.ToolRemovePackage, packageJSONPath, domain.FileActionPackagesRemoved, "%s", removalMessage(removed, missing, in.sections()))
	res.Stats = &domain.ToolStats{Removed: removed, NotFound: missing, Size: rec.Size}
	return res
}

func removalMessage(removed, missing, sections []string) string {
	var parts []string
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("Removed %s", strings.Join(removed, ", ")))
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("not found in %s: %s", strings.Join(sections, "/"), strings.Join(missing, ", ")))
	}
	return strings.Join(parts, "; ")
}
