// Package tools executes the session tools issued by the model against a
// project's virtual file store.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sahilm/fuzzy"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/policy"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

// Default limits for read_file.
const (
	DefaultMaxReadLines = 150
	DefaultMaxReadBytes = 500_000
)

// Limits bounds what a single read may return.
type Limits struct {
	MaxReadLines int
	MaxReadBytes int
}

// DefaultLimits returns the standard read limits.
func DefaultLimits() Limits {
	return Limits{MaxReadLines: DefaultMaxReadLines, MaxReadBytes: DefaultMaxReadBytes}
}

// Dispatcher runs tool calls against the session store. Callers serialize
// sequences of calls per project with session.Store.Lock.
type Dispatcher struct {
	store    *session.Store
	policy   *policy.Engine
	limits   Limits
	registry *Registry
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy gates every call through the policy engine.
func WithPolicy(engine *policy.Engine) Option {
	return func(d *Dispatcher) { d.policy = engine }
}

// WithLimits overrides the read limits. Zero fields keep the defaults.
func WithLimits(l Limits) Option {
	return func(d *Dispatcher) {
		if l.MaxReadLines > 0 {
			d.limits.MaxReadLines = l.MaxReadLines
		}
		if l.MaxReadBytes > 0 {
			d.limits.MaxReadBytes = l.MaxReadBytes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher over store.
func NewDispatcher(store *session.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		limits:   DefaultLimits(),
		registry: DefaultRegistry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the tool catalog served by this dispatcher.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Limits returns the effective read limits.
func (d *Dispatcher) Limits() Limits {
	return d.limits
}

// Execute validates and runs a single tool call. It never panics and never
// returns an error: every outcome, including an unknown tool name, is a
// ToolResult carrying callID.
func (d *Dispatcher) Execute(ctx context.Context, name domain.ToolName, raw map[string]any, projectID, callID string) (res domain.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked",
				"tool", name, "project_id", projectID, "call_id", callID,
				"panic", r, "stack", string(debug.Stack()))
			res = domain.Failed(callID, name, domain.NewToolError(domain.ErrorCodeInternal, "internal error while running %s: %v", name, r), nil)
		}
		res.CallID = callID
		if res.Tool == "" {
			res.Tool = name
		}
	}()

	if !name.Known() {
		return domain.Failed(callID, name, domain.InvalidArgument("tool", "unknown tool %q", name), &domain.ErrorContext{
			Tool:        name,
			Suggestions: suggest(string(name), toolNames()),
		})
	}

	in, terr := ParseInput(name, raw)
	if terr != nil {
		return domain.Failed(callID, name, terr, &domain.ErrorContext{Tool: name})
	}

	sess, err := d.store.Get(projectID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return domain.Failed(callID, name, domain.NewToolError(domain.ErrorCodeSessionNotFound, "no session for project %q", projectID), nil)
		}
		return domain.Failed(callID, name, domain.NewToolError(domain.ErrorCodeInternal, "failed to load session: %v", err), nil)
	}

	if d.policy != nil {
		verdict, err := d.policy.Evaluate(ctx, policy.Input{
			ToolName:  string(name),
			ProjectID: projectID,
			Path:      in.Target(),
			Mutating:  name.Mutating(),
			Args:      raw,
		})
		if err != nil {
			d.logger.Error("failed to evaluate tool policy", "tool", name, "error", err)
			return domain.Failed(callID, name, domain.NewToolError(domain.ErrorCodeInternal, "failed to evaluate policy: %v", err), nil)
		}
		if !verdict.Allowed() {
			d.logger.Warn("tool call blocked by policy", "call", describe(in), "reason", verdict.Reason)
			return domain.Failed(callID, name, domain.NewToolError(domain.ErrorCodePermissionDenied, "%s", verdict.Reason), &domain.ErrorContext{
				Tool: name,
				Path: in.Target(),
			})
		}
	}

	res = d.dispatch(sess, in)
	if res.Success {
		d.logger.Debug("tool call succeeded", "call", describe(in), "call_id", callID, "action", res.Action)
	} else if res.Error != nil {
		d.logger.Debug("tool call failed", "call", describe(in), "call_id", callID, "code", res.Error.Code)
	}
	return res
}

// ExecuteCall runs a domain.ToolCall.
func (d *Dispatcher) ExecuteCall(ctx context.Context, projectID string, call domain.ToolCall) domain.ToolResult {
	return d.Execute(ctx, call.Name, call.Input, projectID, call.CallID)
}

func (d *Dispatcher) dispatch(sess *session.Session, in Input) domain.ToolResult {
	switch in := in.(type) {
	case WriteFileInput:
		return d.writeFile(sess, in)
	case ReadFileInput:
		return d.readFile(sess, in)
	case EditFileInput:
		return d.editFile(sess, in)
	case DeleteFileInput:
		return d.deleteFile(sess, in)
	case DeleteFolderInput:
		return d.deleteFolder(sess, in)
	case RemovePackageInput:
		return d.removePackage(sess, in)
	}
	return domain.Failed("", in.Tool(), domain.NewToolError(domain.ErrorCodeInternal, "no handler for %T", in), nil)
}

func success(tool domain.ToolName, p string, action domain.FileAction, format string, a ...any) domain.ToolResult {
	return domain.ToolResult{
		Tool:    tool,
		Success: true,
		Path:    p,
		Action:  action,
		Message: fmt.Sprintf(format, a...),
	}
}

// notFound builds a NotFound failure with "did you mean" suggestions drawn
// from the session's paths.
func notFound(sess *session.Session, tool domain.ToolName, p, what string) domain.ToolResult {
	ctx := &domain.ErrorContext{Tool: tool, Path: p}
	ctx.Suggestions = suggest(p, sess.Paths())
	if len(ctx.Suggestions) > 0 {
		ctx.Suggestion = fmt.Sprintf("Did you mean %s?", ctx.Suggestions[0])
	}
	return domain.Failed("", tool, domain.NewToolError(domain.ErrorCodeNotFound, "%s not found: %s", what, p), ctx)
}

const maxSuggestions = 3

func suggest(pattern string, candidates []string) []string {
	if pattern == "" || len(candidates) == 0 {
		return nil
	}
	matches := fuzzy.Find(pattern, candidates)
	var out []string
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func toolNames() []string {
	out := make([]string, len(domain.ToolNames))
	for i, n := range domain.ToolNames {
		out[i] = string(n)
	}
	return out
}
