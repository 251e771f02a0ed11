package cli

import (
	"context"
	"io"

	"github.com/coldtrace/coldtrace/internal/config"
	"github.com/coldtrace/coldtrace/internal/engine"
	"github.com/coldtrace/coldtrace/internal/profile"
	"github.com/coldtrace/coldtrace/internal/store"
)

// openEngine resolves configuration, opens the database and constructs the
// engine. The returned cleanup closes the store and must be called once.
//
// Flag precedence: --db beats the config file, --as beats the configured
// admin identity. On first open of a database the resolved identity is
// seeded as administrator; on reopen the stored administrator wins.
//
// When the config names a profile directory, its CUE profiles are
// registered on every open under the stored administrator identity, so a
// deployment keeps its threshold registry in sync with the shipped files.
func openEngine(ctx context.Context, opts *RootOptions) (*engine.Engine, func(), error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	dbPath := cfg.Database
	if opts.Database != "" {
		dbPath = opts.Database
	}

	deployer := cfg.Admin
	if opts.Caller != "" {
		deployer = opts.Caller
	}
	if deployer == "" {
		return nil, nil, NewExitError(ExitCommandError, "no identity: set --as or configure admin")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	eng, err := engine.New(ctx, st, deployer)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	if cfg.ProfileDir != "" {
		profiles, err := profile.LoadDir(cfg.ProfileDir)
		if err != nil {
			st.Close()
			return nil, nil, WrapExitError(ExitCommandError, "failed to load profile directory", err)
		}
		admin, err := eng.Admin(ctx)
		if err != nil {
			st.Close()
			return nil, nil, WrapExitError(ExitCommandError, "failed to resolve administrator", err)
		}
		if err := eng.LoadProfiles(ctx, admin, profiles); err != nil {
			st.Close()
			return nil, nil, WrapExitError(ExitCommandError, "failed to register profiles", err)
		}
	}

	cleanup := func() { st.Close() }
	return eng, cleanup, nil
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}
