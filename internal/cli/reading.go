package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/coldtrace/coldtrace/internal/engine"
)

// NewReadingCommand creates the reading command group.
func NewReadingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reading",
		Short: "Temperature ledger operations",
	}

	cmd.AddCommand(newReadingSubmitCommand(rootOpts))
	cmd.AddCommand(newReadingGetCommand(rootOpts))
	cmd.AddCommand(newReadingCountCommand(rootOpts))
	cmd.AddCommand(newReadingAvgCommand(rootOpts))

	return cmd
}

// readingPayload is the JSON payload for ledger entries.
type readingPayload struct {
	BatchID     int64  `json:"batch_id"`
	ReadingID   int64  `json:"reading_id"`
	Temperature int64  `json:"temperature"`
	Seq         int64  `json:"seq"`
	Submitter   string `json:"submitter,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

func (p readingPayload) String() string {
	return fmt.Sprintf("batch %d reading #%d: %d (seq %d, by %s)",
		p.BatchID, p.ReadingID, p.Temperature, p.Seq, p.Submitter)
}

func newReadingSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var metadata string

	cmd := &cobra.Command{
		Use:   "submit <batch-id> <temperature>",
		Short: "Append a temperature reading to a batch's ledger",
		Long: `Append a temperature reading to a batch's ledger.

The reading is recorded whatever its compliance outcome. If it causes or
finds the batch non-compliant, the command reports the breach and exits 1;
the assigned reading id is still printed.

Example:
  coldtrace reading submit 42 7 --db cold.db --as sensor-3 --meta "truck 7"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}
			temperature, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid temperature", err)
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			r, err := eng.SubmitReading(ctx, rootOpts.Caller, batchID, temperature, metadata)
			if engine.IsInvalidTemperature(err) {
				// Recorded but non-compliant.
				_ = f.Error(string(engine.ErrCodeInvalidTemperature),
					fmt.Sprintf("reading #%d recorded; %v", r.ReadingID, err))
				return WrapExitError(ExitFailure, "batch non-compliant", err)
			}
			if err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(readingPayload{
				BatchID:     r.BatchID,
				ReadingID:   r.ReadingID,
				Temperature: r.Temperature,
				Seq:         r.Seq,
				Submitter:   r.Submitter,
				Metadata:    r.Metadata,
			})
		},
	}

	cmd.Flags().StringVar(&metadata, "meta", "", "free-form metadata stored with the reading")

	return cmd
}

func newReadingGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <batch-id> <reading-id>",
		Short:         "Show one ledger entry",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseBatchID(args[0])
			if err != nil {
				return err
			}
			readingID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid reading-id", err)
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			r, ok, err := eng.TemperatureHistory(ctx, batchID, readingID)
			if err != nil {
				return reportEngineError(f, err)
			}
			if !ok {
				_ = f.Error("BATCH_NOT_FOUND",
					fmt.Sprintf("no reading #%d for batch %d", readingID, batchID))
				return NewExitError(ExitFailure, "reading not found")
			}
			return f.Success(readingPayload{
				BatchID:     r.BatchID,
				ReadingID:   r.ReadingID,
				Temperature: r.Temperature,
				Seq:         r.Seq,
				Submitter:   r.Submitter,
				Metadata:    r.Metadata,
			})
		},
	}
}

// countPayload is the JSON payload for reading count.
type countPayload struct {
	BatchID int64 `json:"batch_id"`
	Count   int64 `json:"count"`
}

func (p countPayload) String() string {
	return fmt.Sprintf("batch %d: %d reading(s)", p.BatchID, p.Count)
}

func newReadingCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count <batch-id>",
		Short:         "Show the number of readings recorded for a batch",
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
			count, err := eng.ReadingCount(ctx, batchID)
			if err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(countPayload{BatchID: batchID, Count: count})
		},
	}
}

// avgPayload is the JSON payload for average temperature.
type avgPayload struct {
	BatchID int64 `json:"batch_id"`
	Average int64 `json:"average"`
}

func (p avgPayload) String() string {
	return fmt.Sprintf("batch %d: average temperature %d", p.BatchID, p.Average)
}

func newReadingAvgCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "avg <batch-id>",
		Short:         "Show the floor-average of all recorded readings",
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
			avg, err := eng.AverageTemperature(ctx, batchID)
			if err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(avgPayload{BatchID: batchID, Average: avg})
		},
	}
}
