package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coldtrace/coldtrace/internal/engine"
)

// ReplayBatchResult holds the replay result for a single batch.
type ReplayBatchResult struct {
	BatchID       int64               `json:"batch_id"`
	Readings      int64               `json:"readings"`
	Deterministic bool                `json:"deterministic"`
	Divergences   []engine.Divergence `json:"divergences,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Batches          []ReplayBatchResult `json:"batches"`
	TotalBatches     int                 `json:"total_batches"`
	AllDeterministic bool                `json:"all_deterministic"`
}

func (r ReplayResult) String() string {
	var b strings.Builder
	for _, batch := range r.Batches {
		if batch.Deterministic {
			fmt.Fprintf(&b, "batch %d: ok (%d readings)\n", batch.BatchID, batch.Readings)
			continue
		}
		fmt.Fprintf(&b, "batch %d: DIVERGED (%d readings)\n", batch.BatchID, batch.Readings)
		for _, d := range batch.Divergences {
			fmt.Fprintf(&b, "  %s: stored %s, replayed %s\n", d.Field, d.Stored, d.Replayed)
		}
	}
	if r.AllDeterministic {
		fmt.Fprintf(&b, "%d batch(es) replayed, all deterministic", r.TotalBatches)
	} else {
		fmt.Fprintf(&b, "%d batch(es) replayed, divergences found", r.TotalBatches)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var batchID int64

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay reading ledgers and verify determinism",
		Long: `Replay reading ledgers and verify determinism.

Recomputes every batch's compliance record by folding the excursion state
machine over its ledger in reading order and compares the result to the
stored record. Divergence means the database was mutated outside the engine.

Exit codes:
  0 - All replayed batches are deterministic
  1 - Divergences detected
  2 - Command error (database not found, etc.)

Examples:
  coldtrace replay --db cold.db --as auditor
  coldtrace replay --db cold.db --as auditor --batch 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())

			var reports []engine.ReplayReport
			if batchID != 0 {
				report, err := eng.ReplayBatch(ctx, batchID)
				if err != nil {
					return reportEngineError(f, err)
				}
				reports = []engine.ReplayReport{report}
			} else {
				reports, err = eng.ReplayAll(ctx)
				if err != nil {
					return reportEngineError(f, err)
				}
			}

			result := ReplayResult{
				TotalBatches:     len(reports),
				AllDeterministic: true,
			}
			for _, report := range reports {
				result.Batches = append(result.Batches, ReplayBatchResult{
					BatchID:       report.BatchID,
					Readings:      report.Readings,
					Deterministic: report.Deterministic(),
					Divergences:   report.Divergences,
				})
				if !report.Deterministic() {
					result.AllDeterministic = false
				}
			}

			if err := f.Success(result); err != nil {
				return err
			}
			if !result.AllDeterministic {
				return NewExitError(ExitFailure, "replay divergences detected")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&batchID, "batch", 0, "replay a single batch id (default: all)")

	return cmd
}
