package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// checkpointSummary is the printable view of a stored checkpoint.
type checkpointSummary struct {
	Token         string     `json:"token" yaml:"token"`
	TurnID        string     `json:"turn_id" yaml:"turn_id"`
	ProjectID     string     `json:"project_id" yaml:"project_id"`
	Digest        string     `json:"digest" yaml:"digest"`
	Size          string     `json:"size" yaml:"size"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at" yaml:"expires_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty" yaml:"consumed_at,omitempty"`
	ElapsedTimeMs int64      `json:"elapsed_time_ms" yaml:"elapsed_time_ms"`
	Iterations    int        `json:"iterations" yaml:"iterations"`
	Messages      int        `json:"messages" yaml:"messages"`
	ToolResults   int        `json:"tool_results" yaml:"tool_results"`
	PendingCalls  int        `json:"pending_calls" yaml:"pending_calls"`
	Partial       string     `json:"partial_response,omitempty" yaml:"partial_response,omitempty"`
	Files         []string   `json:"files" yaml:"files"`
}

func newCheckpointCmd(configPath *string) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect stored checkpoints",
	}
	checkpointCmd.AddCommand(newCheckpointShowCmd(configPath))
	return checkpointCmd
}

func newCheckpointShowCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Decode a checkpoint without consuming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (use json or yaml)", format)
			}

			a, err := wireApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			cp, state, err := a.service.InspectCheckpoint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), format, summarize(cp, state))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: json or yaml")
	return cmd
}

func summarize(cp *domain.CheckpointRecord, state domain.ContinuationState) checkpointSummary {
	files := make([]string, 0, len(state.SessionSnapshot.Files))
	for p := range state.SessionSnapshot.Files {
		files = append(files, p)
	}
	sort.Strings(files)

	return checkpointSummary{
		Token:         cp.Token,
		TurnID:        cp.TurnID,
		ProjectID:     cp.ProjectID,
		Digest:        cp.Digest,
		Size:          humanize.Bytes(uint64(cp.SizeBytes)),
		CreatedAt:     cp.CreatedAt,
		ExpiresAt:     cp.ExpiresAt,
		ConsumedAt:    cp.ConsumedAt,
		ElapsedTimeMs: state.ElapsedTimeMs,
		Iterations:    state.Iterations,
		Messages:      len(state.Messages),
		ToolResults:   len(state.ToolResults),
		PendingCalls:  len(domain.PendingToolCalls(state.Messages)),
		Partial:       state.PartialResponse.Content,
		Files:         files,
	}
}

func writeSummary(w io.Writer, format string, s checkpointSummary) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
