package tools

import "github.com/xiaot623/gogo/agentcore/internal/domain"

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func editParameters() map[string]any {
	return object([]string{"path"}, map[string]any{
		"path":            prop("string", "File to edit."),
		"search":          prop("string", "Exact text (or pattern when useRegex is set) to find."),
		"replace":         prop("string", "Replacement text. May be empty."),
		"diff":            prop("string", "One or more <<<<<<< SEARCH / ======= / >>>>>>> REPLACE blocks, applied all or nothing."),
		"useRegex":        prop("boolean", "Treat search as a regular expression."),
		"replaceAll":      prop("boolean", "Replace every occurrence instead of the first."),
		"caseInsensitive": prop("boolean", "Match without regard to case."),
	})
}

func init() {
	MustRegister(Definition{
		Name:        domain.ToolWriteFile,
		Description: "Create a file or overwrite it with the given content.",
		Parameters: object([]string{"path", "content"}, map[string]any{
			"path":    prop("string", "Project-relative file path."),
			"content": prop("string", "Full file content."),
		}),
	})
	MustRegister(Definition{
		Name:        domain.ToolReadFile,
		Description: "Read a file. Files longer than 150 lines must be read in windows of at most 150 lines.",
		Parameters: object([]string{"path"}, map[string]any{
			"path":               prop("string", "Project-relative file path."),
			"startLine":          prop("integer", "First line to return, 1-based."),
			"endLine":            prop("integer", "Last line to return, inclusive."),
			"lineRange":          prop("string", "Alternative window syntax, e.g. \"20-80\"."),
			"includeLineNumbers": prop("boolean", "Prefix each returned line with its number."),
		}),
	})
	MustRegister(Definition{
		Name:        domain.ToolEditFile,
		Description: "Search and replace inside a file.",
		Parameters:  editParameters(),
	})
	MustRegister(Definition{
		Name:        domain.ToolClientReplaceStringInFile,
		Description: "Replace oldString with newString inside a file.",
		Parameters: object([]string{"path", "oldString", "newString"}, map[string]any{
			"path":            prop("string", "File to edit."),
			"oldString":       prop("string", "Exact text to find."),
			"newString":       prop("string", "Replacement text. May be empty."),
			"replaceAll":      prop("boolean", "Replace every occurrence instead of the first."),
			"caseInsensitive": prop("boolean", "Match without regard to case."),
		}),
	})
	MustRegister(Definition{
		Name:        domain.ToolDeleteFile,
		Description: "Delete a single file.",
		Parameters: object([]string{"path"}, map[string]any{
			"path": prop("string", "File to delete."),
		}),
	})
	MustRegister(Definition{
		Name:        domain.ToolDeleteFolder,
		Description: "Delete a folder and everything beneath it.",
		Parameters: object([]string{"path"}, map[string]any{
			"path": prop("string", "Folder to delete."),
		}),
	})
	MustRegister(Definition{
		Name:        domain.ToolRemovePackage,
		Description: "Remove packages from package.json dependencies or devDependencies.",
		Parameters: object([]string{"names"}, map[string]any{
			"names": map[string]any{
				"description": "A package name, a list of names, or a comma separated string.",
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
			"isDev": prop("boolean", "Only devDependencies when true, only dependencies when false, both when omitted."),
		}),
	})
}
