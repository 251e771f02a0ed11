package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// NewBatchCommand creates the batch command group.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch lifecycle and compliance queries",
	}

	cmd.AddCommand(newBatchInitCommand(rootOpts))
	cmd.AddCommand(newBatchStatusCommand(rootOpts))
	cmd.AddCommand(newBatchBreachesCommand(rootOpts))

	return cmd
}

func parseBatchID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid batch-id", err)
	}
	return id, nil
}

// batchStatus is the payload for batch status.
type batchStatus struct {
	BatchID         int64  `json:"batch_id"`
	VaccineType     string `json:"vaccine_type"`
	Compliant       bool   `json:"compliant"`
	ExcursionCount  int64  `json:"excursion_count"`
	LastExcursionAt int64  `json:"last_excursion_at,omitempty"`
	LastChecked     int64  `json:"last_checked"`
	FlaggedReason   string `json:"flagged_reason,omitempty"`
	MinTemp         int64  `json:"min_temp"`
	MaxTemp         int64  `json:"max_temp"`
}

func (s batchStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch %d (%s, range [%d, %d])\n", s.BatchID, s.VaccineType, s.MinTemp, s.MaxTemp)
	if s.Compliant {
		fmt.Fprintf(&b, "compliant, %d/%d excursions used", s.ExcursionCount, compliance.MaxExcursions)
	} else {
		fmt.Fprintf(&b, "NON-COMPLIANT: %s", s.FlaggedReason)
	}
	return b.String()
}

func newBatchInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <batch-id> <vaccine-type>",
		Short: "Initialize a compliance record for a new batch",
		Long: `Initialize a compliance record for a new batch.

The vaccine type must already be registered via thresholds set; its range is
copied into the batch record. A batch can be initialized only once.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			if err := eng.InitializeBatch(ctx, batchID, args[1]); err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(fmt.Sprintf("batch %d initialized as %s", batchID, args[1]))
		},
	}
}

func newBatchStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status <batch-id>",
		Short:         "Show the compliance record for a batch",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			rec, ok, err := eng.BatchCompliance(ctx, batchID)
			if err != nil {
				return reportEngineError(f, err)
			}
			if !ok {
				_ = f.Error("BATCH_NOT_FOUND", fmt.Sprintf("no compliance record for batch %d", batchID))
				return NewExitError(ExitFailure, "batch not found")
			}
			return f.Success(batchStatus{
				BatchID:         rec.BatchID,
				VaccineType:     rec.VaccineType,
				Compliant:       rec.Compliant,
				ExcursionCount:  rec.ExcursionCount,
				LastExcursionAt: rec.LastExcursionAt,
				LastChecked:     rec.LastChecked,
				FlaggedReason:   rec.FlaggedReason,
				MinTemp:         rec.MinTemp,
				MaxTemp:         rec.MaxTemp,
			})
		},
	}
}

// breachList is the payload for batch breaches.
type breachList struct {
	BatchID int64         `json:"batch_id"`
	Events  []breachEntry `json:"events"`
}

type breachEntry struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
	Seq     int64  `json:"seq"`
}

func (l breachList) String() string {
	if len(l.Events) == 0 {
		return fmt.Sprintf("batch %d: no breach events", l.BatchID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "batch %d: %d breach event(s)", l.BatchID, len(l.Events))
	for _, ev := range l.Events {
		fmt.Fprintf(&b, "\n  seq %d  %s  %s", ev.Seq, ev.EventID, ev.Reason)
	}
	return b.String()
}

func newBatchBreachesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "breaches <batch-id>",
		Short:         "List persisted breach events for a batch",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			events, err := eng.Breaches(ctx, batchID)
			if err != nil {
				return reportEngineError(f, err)
			}

			list := breachList{BatchID: batchID, Events: make([]breachEntry, 0, len(events))}
			for _, ev := range events {
				list.Events = append(list.Events, breachEntry{
					EventID: ev.EventID,
					Reason:  ev.Reason,
					Seq:     ev.Seq,
				})
			}
			return f.Success(list)
		},
	}
}
