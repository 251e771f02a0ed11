package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewThresholdsCommand creates the thresholds command group.
func NewThresholdsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Vaccine threshold registry",
	}

	cmd.AddCommand(newThresholdsSetCommand(rootOpts))
	cmd.AddCommand(newThresholdsGetCommand(rootOpts))

	return cmd
}

// thresholdsPayload is the JSON payload for threshold queries.
type thresholdsPayload struct {
	VaccineType string `json:"vaccine_type"`
	MinTemp     int64  `json:"min_temp"`
	MaxTemp     int64  `json:"max_temp"`
}

func (p thresholdsPayload) String() string {
	return fmt.Sprintf("%s: [%d, %d]", p.VaccineType, p.MinTemp, p.MaxTemp)
}

func newThresholdsSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <vaccine-type> <min-temp> <max-temp>",
		Short: "Create or overwrite the allowed range for a vaccine type",
		Long: `Create or overwrite the allowed temperature range for a vaccine type.

Admin-only. The range must satisfy max > min, min <= 100, max >= -50.
Existing batches keep the thresholds copied at initialization.

Example:
  coldtrace thresholds set mRNA 2 8 --db cold.db --as admin@example.org`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			minTemp, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid min-temp", err)
			}
			maxTemp, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid max-temp", err)
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			if err := eng.SetVaccineThresholds(ctx, rootOpts.Caller, args[0], minTemp, maxTemp); err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(thresholdsPayload{
				VaccineType: args[0],
				MinTemp:     minTemp,
				MaxTemp:     maxTemp,
			})
		},
	}
}

func newThresholdsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <vaccine-type>",
		Short:         "Show the registered range for a vaccine type",
		Args:          cobra.ExactArgs(1),
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
			t, ok, err := eng.VaccineThresholds(ctx, args[0])
			if err != nil {
				return reportEngineError(f, err)
			}
			if !ok {
				_ = f.Error("INVALID_VACCINE_TYPE", fmt.Sprintf("vaccine type %q is not registered", args[0]))
				return NewExitError(ExitFailure, "vaccine type not registered")
			}
			return f.Success(thresholdsPayload{
				VaccineType: t.VaccineType,
				MinTemp:     t.MinTemp,
				MaxTemp:     t.MaxTemp,
			})
		},
	}
}
