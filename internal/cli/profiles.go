package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coldtrace/coldtrace/internal/profile"
)

// NewProfilesCommand creates the profiles command group.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "CUE threshold profile management",
	}

	cmd.AddCommand(newProfilesLoadCommand(rootOpts))

	return cmd
}

// profilesLoaded is the payload for profiles load.
type profilesLoaded struct {
	Dir      string   `json:"dir"`
	Profiles []string `json:"profiles"`
}

func (p profilesLoaded) String() string {
	return fmt.Sprintf("registered %d profile(s) from %s: %s",
		len(p.Profiles), p.Dir, strings.Join(p.Profiles, ", "))
}

func newProfilesLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <profile-dir>",
		Short: "Register every threshold profile in a CUE directory",
		Long: `Register every threshold profile in a CUE directory.

Profiles are declared under a top-level "profiles" struct keyed by vaccine
type. Each entry goes through the same admin-guarded registration path as
thresholds set.

Example:
  coldtrace profiles load ./profiles --db cold.db --as admin@example.org`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := profile.LoadDir(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load profiles", err)
			}

			ctx := cmd.Context()
			eng, cleanup, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			f := formatter(rootOpts, cmd.OutOrStdout())
			if err := eng.LoadProfiles(ctx, rootOpts.Caller, profiles); err != nil {
				return reportEngineError(f, err)
			}

			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				names = append(names, p.VaccineType)
			}
			return f.Success(profilesLoaded{Dir: args[0], Profiles: names})
		},
	}
}
