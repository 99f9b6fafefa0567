package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// Input is the validated, typed form of a tool call's arguments. The set of
// implementations is closed; the dispatcher switches over it exhaustively.
type Input interface {
	Tool() domain.ToolName
	// Target is the normalized path the call acts on, used for policy checks.
	Target() string
	sealed()
}

type WriteFileInput struct {
	Path    string
	Content string
}

type ReadFileInput struct {
	Path               string
	StartLine          int
	EndLine            int
	IncludeLineNumbers bool
}

// Windowed reports whether a line window was requested.
func (in ReadFileInput) Windowed() bool {
	return in.StartLine > 0 || in.EndLine > 0
}

type EditFileInput struct {
	Name            domain.ToolName
	Path            string
	Search          string
	Replace         string
	Diff            string
	UseRegex        bool
	ReplaceAll      bool
	CaseInsensitive bool
}

type DeleteFileInput struct {
	Path string
}

type DeleteFolderInput struct {
	// Folder is normalized with a trailing "/"; the root is "".
	Folder string
}

type RemovePackageInput struct {
	Names []string
	// IsDev is nil when both sections should be searched.
	IsDev *bool
}

func (WriteFileInput) Tool() domain.ToolName     { return domain.ToolWriteFile }
func (ReadFileInput) Tool() domain.ToolName      { return domain.ToolReadFile }
func (in EditFileInput) Tool() domain.ToolName   { return in.Name }
func (DeleteFileInput) Tool() domain.ToolName    { return domain.ToolDeleteFile }
func (DeleteFolderInput) Tool() domain.ToolName  { return domain.ToolDeleteFolder }
func (RemovePackageInput) Tool() domain.ToolName { return domain.ToolRemovePackage }

func (in WriteFileInput) Target() string    { return in.Path }
func (in ReadFileInput) Target() string     { return in.Path }
func (in EditFileInput) Target() string     { return in.Path }
func (in DeleteFileInput) Target() string   { return in.Path }
func (in DeleteFolderInput) Target() string { return strings.TrimSuffix(in.Folder, "/") }
func (RemovePackageInput) Target() string   { return packageJSONPath }

func (WriteFileInput) sealed()     {}
func (ReadFileInput) sealed()      {}
func (EditFileInput) sealed()      {}
func (DeleteFileInput) sealed()    {}
func (DeleteFolderInput) sealed()  {}
func (RemovePackageInput) sealed() {}

// ParseInput validates raw arguments for the named tool.
func ParseInput(name domain.ToolName, raw map[string]any) (Input, *domain.ToolError) {
	a := args(raw)
	switch name {
	case domain.ToolWriteFile:
		p, terr := a.path("path", "filePath")
		if terr != nil {
			return nil, terr
		}
		content, ok, terr := a.str("content")
		if terr != nil {
			return nil, terr
		}
		if !ok {
			return nil, domain.InvalidArgument("content", "content is required")
		}
		return WriteFileInput{Path: p, Content: content}, nil

	case domain.ToolReadFile:
		p, terr := a.path("path", "filePath")
		if terr != nil {
			return nil, terr
		}
		in := ReadFileInput{Path: p}
		if in.IncludeLineNumbers, terr = a.boolean("includeLineNumbers"); terr != nil {
			return nil, terr
		}
		if in.StartLine, terr = a.integer("startLine"); terr != nil {
			return nil, terr
		}
		if in.EndLine, terr = a.integer("endLine"); terr != nil {
			return nil, terr
		}
		if v, ok := a["lineRange"]; ok && v != nil && !in.Windowed() {
			start, end, terr := parseLineRange(v)
			if terr != nil {
				return nil, terr
			}
			in.StartLine, in.EndLine = start, end
		}
		return in, nil

	case domain.ToolEditFile, domain.ToolClientReplaceStringInFile:
		return parseEditInput(name, a)

	case domain.ToolDeleteFile:
		p, terr := a.path("path", "filePath")
		if terr != nil {
			return nil, terr
		}
		return DeleteFileInput{Path: p}, nil

	case domain.ToolDeleteFolder:
		raw, ok, terr := a.str("path", "folderPath")
		if terr != nil {
			return nil, terr
		}
		if !ok || strings.TrimSpace(raw) == "" {
			return nil, domain.InvalidArgument("path", "path is required")
		}
		return DeleteFolderInput{Folder: domain.NormalizeFolder(raw)}, nil

	case domain.ToolRemovePackage:
		names, terr := parsePackageNames(a)
		if terr != nil {
			return nil, terr
		}
		in := RemovePackageInput{Names: names}
		if v, ok := a["isDev"]; ok && v != nil {
			dev, terr := a.boolean("isDev")
			if terr != nil {
				return nil, terr
			}
			in.IsDev = &dev
		}
		return in, nil
	}
	return nil, domain.InvalidArgument("tool", "unknown tool %q", name)
}

func parseEditInput(name domain.ToolName, a args) (Input, *domain.ToolError) {
	p, terr := a.path("path", "filePath")
	if terr != nil {
		return nil, terr
	}
	in := EditFileInput{Name: name, Path: p}
	if in.UseRegex, terr = a.boolean("useRegex"); terr != nil {
		return nil, terr
	}
	if in.ReplaceAll, terr = a.boolean("replaceAll"); terr != nil {
		return nil, terr
	}
	if in.CaseInsensitive, terr = a.boolean("caseInsensitive"); terr != nil {
		return nil, terr
	}

	diff, hasDiff, terr := a.str("diff")
	if terr != nil {
		return nil, terr
	}
	search, hasSearch, terr := a.str("search", "oldString", "old_string")
	if terr != nil {
		return nil, terr
	}
	if hasDiff && !hasSearch {
		if strings.TrimSpace(diff) == "" {
			return nil, domain.InvalidArgument("diff", "diff is empty")
		}
		in.Diff = diff
		return in, nil
	}

	searchField, replaceField := "search", "replace"
	if name == domain.ToolClientReplaceStringInFile {
		searchField, replaceField = "oldString", "newString"
	}
	if search == "" {
		return nil, domain.InvalidArgument(searchField, "%s is required and must not be empty", searchField)
	}
	replace, hasReplace, terr := a.str("replace", "newString", "new_string")
	if terr != nil {
		return nil, terr
	}
	if !hasReplace {
		return nil, domain.InvalidArgument(replaceField, "%s is required (it may be empty)", replaceField)
	}
	in.Search, in.Replace = search, replace
	return in, nil
}

// parsePackageNames accepts a single name, an array, a comma separated
// string or a JSON array encoded as a string.
func parsePackageNames(a args) ([]string, *domain.ToolError) {
	var raw any
	found := false
	for _, key := range []string{"names", "packageNames", "packages", "name", "packageName"} {
		if v, ok := a[key]; ok && v != nil {
			raw, found = v, true
			break
		}
	}
	if !found {
		return nil, domain.InvalidArgument("names", "names is required")
	}

	var names []string
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var list []string
			if err := json.Unmarshal([]byte(s), &list); err != nil {
				return nil, domain.InvalidArgument("names", "names looks like a JSON array but does not parse: %v", err)
			}
			names = list
		} else {
			names = strings.Split(s, ",")
		}
	case []string:
		names = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, domain.InvalidArgument("names", "names[%d] must be a string", i)
			}
			names = append(names, s)
		}
	default:
		return nil, domain.InvalidArgument("names", "names must be a string or a list of strings")
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, domain.InvalidArgument("names", "no package names given")
	}
	return out, nil
}

func parseLineRange(v any) (int, int, *domain.ToolError) {
	start, end, terr := lineRangeBounds(v)
	if terr != nil {
		return 0, 0, terr
	}
	if start < 1 || end < 1 {
		return 0, 0, domain.InvalidArgument("lineRange", "lineRange lines must be at least 1, got %d-%d", start, end)
	}
	return start, end, nil
}

func lineRangeBounds(v any) (int, int, *domain.ToolError) {
	switch r := v.(type) {
	case string:
		s := strings.TrimSpace(r)
		sep := strings.IndexAny(s, "-:")
		if sep < 0 {
			n, err := strconv.Atoi(s)
			if err != nil {
				return 0, 0, domain.InvalidArgument("lineRange", "lineRange must look like \"start-end\"")
			}
			return n, n, nil
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(s[:sep]))
		end, err2 := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
		if err1 != nil || err2 != nil {
			return 0, 0, domain.InvalidArgument("lineRange", "lineRange must look like \"start-end\"")
		}
		return start, end, nil
	case []any:
		if len(r) != 2 {
			return 0, 0, domain.InvalidArgument("lineRange", "lineRange must have exactly two elements")
		}
		start, ok1 := toInt(r[0])
		end, ok2 := toInt(r[1])
		if !ok1 || !ok2 {
			return 0, 0, domain.InvalidArgument("lineRange", "lineRange elements must be integers")
		}
		return start, end, nil
	case []int:
		if len(r) != 2 {
			return 0, 0, domain.InvalidArgument("lineRange", "lineRange must have exactly two elements")
		}
		return r[0], r[1], nil
	}
	return 0, 0, domain.InvalidArgument("lineRange", "lineRange must be a string or a two element list")
}

// args wraps decoded JSON arguments.
type args map[string]any

// str returns the first present key among keys.
func (a args) str(keys ...string) (string, bool, *domain.ToolError) {
	for _, k := range keys {
		v, ok := a[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", false, domain.InvalidArgument(k, "%s must be a string", k)
		}
		return s, true, nil
	}
	return "", false, nil
}

// path returns a normalized, non-empty path.
func (a args) path(keys ...string) (string, *domain.ToolError) {
	raw, ok, terr := a.str(keys...)
	if terr != nil {
		return "", terr
	}
	p := domain.NormalizePath(raw)
	if !ok || p == "" {
		return "", domain.InvalidArgument(keys[0], "%s is required", keys[0])
	}
	return p, nil
}

func (a args) boolean(key string) (bool, *domain.ToolError) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, domain.InvalidArgument(key, "%s must be a boolean", key)
		}
		return parsed, nil
	}
	return false, domain.InvalidArgument(key, "%s must be a boolean", key)
}

// integer returns 0 when key is absent.
func (a args) integer(key string) (int, *domain.ToolError) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, domain.InvalidArgument(key, "%s must be an integer", key)
	}
	if n < 1 {
		return 0, domain.InvalidArgument(key, "%s must be at least 1", key)
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func describe(in Input) string {
	return fmt.Sprintf("%s(%s)", in.Tool(), in.Target())
}
