package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAdminCommand creates the admin command group.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator and pause-flag management",
	}

	cmd.AddCommand(newAdminShowCommand(rootOpts))
	cmd.AddCommand(newAdminTransferCommand(rootOpts))
	cmd.AddCommand(newAdminPauseCommand(rootOpts))
	cmd.AddCommand(newAdminUnpauseCommand(rootOpts))

	return cmd
}

// adminStatus is the payload for admin show.
type adminStatus struct {
	Admin  string `json:"admin"`
	Paused bool   `json:"paused"`
}

func (s adminStatus) String() string {
	return fmt.Sprintf("admin: %s\npaused: %t", s.Admin, s.Paused)
}

func newAdminShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the current administrator and pause state",
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

			admin, err := eng.Admin(ctx)
			if err != nil {
				return reportEngineError(f, err)
			}
			paused, err := eng.IsPaused(ctx)
			if err != nil {
				return reportEngineError(f, err)
			}

			return f.Success(adminStatus{Admin: admin, Paused: paused})
		},
	}
}

func newAdminTransferCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "transfer <new-admin>",
		Short:         "Transfer the administrator role to a new identity",
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
			if err := eng.SetAdmin(ctx, rootOpts.Caller, args[0]); err != nil {
				return reportEngineError(f, err)
			}
			return f.Success(fmt.Sprintf("administrator transferred to %s", args[0]))
		},
	}
}

func newAdminPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pause",
		Short:         "Pause all mutating compliance operations",
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
			if err := eng.Pause(ctx, rootOpts.Caller); err != nil {
				return reportEngineError(f, err)
			}
			return f.Success("paused")
		},
	}
}

func newAdminUnpauseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unpause",
		Short:         "Resume mutating compliance operations",
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
			if err := eng.Unpause(ctx, rootOpts.Caller); err != nil {
				return reportEngineError(f, err)
			}
			return f.Success("unpaused")
		},
	}
}
