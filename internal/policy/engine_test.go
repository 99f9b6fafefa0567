package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewDefaultEngine(ctx)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input Input
		allow bool
	}{
		{"write ordinary file", Input{ToolName: "write_file", Path: "src/app.ts", Mutating: true}, true},
		{"delete ordinary folder", Input{ToolName: "delete_folder", Path: "src/", Mutating: true}, true},
		{"delete root folder", Input{ToolName: "delete_folder", Path: "", Mutating: true}, false},
		{"write git config", Input{ToolName: "write_file", Path: ".git/config", Mutating: true}, false},
		{"delete git folder", Input{ToolName: "delete_folder", Path: ".git", Mutating: true}, false},
		{"read git config", Input{ToolName: "read_file", Path: ".git/config"}, true},
		{"similar prefix", Input{ToolName: "write_file", Path: ".github/workflows/ci.yml", Mutating: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := engine.Evaluate(ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.allow, v.Allowed(), "verdict %+v", v)
			if !tc.allow {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package agentcore.tools

default verdict := "allow"

verdict := "block" if input.args.content == "forbidden"
`)
	require.NoError(t, err)

	v, err := engine.Evaluate(ctx, Input{ToolName: "write_file", Args: map[string]any{"content": "forbidden"}})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, v.Decision)

	v, err = engine.Evaluate(ctx, Input{ToolName: "write_file", Args: map[string]any{"content": "ok"}})
	require.NoError(t, err)
	assert.True(t, v.Allowed())
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n\nverdict := {")
	assert.Error(t, err)
}
