// Package policy gates tool calls through an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document a tool call is evaluated against.
type Input struct {
	ToolName  string
	ProjectID string
	Path      string
	Mutating  bool
	Args      map[string]any
}

func (in Input) document() map[string]any {
	args := in.Args
	if args == nil {
		args = map[string]any{}
	}
	return map[string]any{
		"tool_name":  in.ToolName,
		"project_id": in.ProjectID,
		"path":       in.Path,
		"mutating":   in.Mutating,
		"args":       args,
	}
}

// Verdict is the policy outcome for a single call.
type Verdict struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the call may proceed.
func (v Verdict) Allowed() bool {
	return v.Decision != DecisionBlock
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agentcore.tools.verdict"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine prepares DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Evaluate checks a tool call against the policy. A policy that yields no
// verdict allows the call.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Verdict, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input.document()))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Verdict{Decision: DecisionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Verdict{Decision: val}, nil
	case map[string]any:
		v := Verdict{Decision: DecisionAllow}
		if d, ok := val["decision"].(string); ok && d != "" {
			v.Decision = d
		}
		if r, ok := val["reason"].(string); ok {
			v.Reason = r
		}
		return v, nil
	default:
		return Verdict{}, fmt.Errorf("unexpected policy result type %T", val)
	}
}

// DefaultPolicy protects the project root and version-control metadata.
const DefaultPolicy = `
package agentcore.tools

default verdict := {"decision": "allow", "reason": ""}

verdict := {"decision": "block", "reason": "deleting the project root is not allowed"} if {
	input.tool_name == "delete_folder"
	input.path == ""
} else := {"decision": "block", "reason": "version control metadata is read-only"} if {
	input.mutating
	git_path(input.path)
}

git_path(p) if p == ".git"

git_path(p) if startswith(p, ".git/")
`
