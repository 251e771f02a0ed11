package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coldtrace/coldtrace/internal/compliance"
	"github.com/coldtrace/coldtrace/internal/profile"
	"github.com/coldtrace/coldtrace/internal/store"
)

// Engine is the serialized front door for all compliance-state mutations.
//
// Thread-safety model:
//   - Mutating operations: serialized behind mu, one clock tick and one
//     SQLite transaction each
//   - Read-only queries: safe from any goroutine, no lock, no tick
//
// INVARIANTS:
//   - SubmitReading appends to the ledger whatever the compliance outcome,
//     so reading ids are dense regardless of excursions or flagging
//   - A non-compliant record is terminal: no engine path resets it
//   - The clock never goes backward, including across reopen
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	clock    *Clock
	eventIDs EventIDGenerator
	notifier Notifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventIDGenerator overrides the breach-event id generator.
// Tests use NewFixedGenerator for deterministic golden traces.
func WithEventIDGenerator(g EventIDGenerator) Option {
	return func(e *Engine) {
		e.eventIDs = g
	}
}

// WithNotifier overrides the breach notifier. The default logs via slog.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// New creates an Engine over an opened store.
//
// The deployer identity becomes the administrator on first open of a
// database; reopening never replaces an existing administrator. The logical
// clock resumes from the largest persisted sequence number.
func New(ctx context.Context, st *store.Store, deployer string, opts ...Option) (*Engine, error) {
	deployer = compliance.Normalize(deployer)
	if deployer == "" {
		return nil, fmt.Errorf("new engine: deployer identity must not be empty")
	}

	if err := st.SeedAdminState(ctx, deployer); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	e := &Engine{
		store:    st,
		clock:    NewClockAt(maxSeq),
		eventIDs: UUIDv7Generator{},
		notifier: SlogNotifier{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Clock returns the engine's logical clock.
// Scenario harnesses use it to burn sequence units between submissions.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// requireAdmin returns an Unauthorized error unless caller is the current
// administrator. Caller identity is an explicit parameter everywhere, never
// ambient state.
func (e *Engine) requireAdmin(ctx context.Context, caller string) error {
	admin, _, err := e.store.AdminState(ctx)
	if err != nil {
		return err
	}
	if caller != admin {
		return errUnauthorized(caller)
	}
	return nil
}

// requireActive rejects the call if the system is paused.
func (e *Engine) requireActive(ctx context.Context) error {
	_, paused, err := e.store.AdminState(ctx)
	if err != nil {
		return err
	}
	if paused {
		return errPaused()
	}
	return nil
}

// SetAdmin replaces the administrator identity. Admin-only.
func (e *Engine) SetAdmin(ctx context.Context, caller, newAdmin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	caller = compliance.Normalize(caller)
	newAdmin = compliance.Normalize(newAdmin)

	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if newAdmin == "" {
		return fmt.Errorf("set admin: new administrator identity must not be empty")
	}

	if err := e.store.SetAdmin(ctx, newAdmin); err != nil {
		return err
	}

	slog.Info("administrator transferred", "from", caller, "to", newAdmin)
	return nil
}

// Pause sets the process-wide paused flag. Admin-only.
// While paused, all mutating compliance operations fail with Paused;
// read-only queries remain available.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause clears the paused flag. Admin-only.
func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	caller = compliance.Normalize(caller)
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}

	if err := e.store.SetPaused(ctx, paused); err != nil {
		return err
	}

	slog.Info("pause flag changed", "paused", paused, "caller", caller)
	return nil
}

// Admin returns the current administrator identity.
func (e *Engine) Admin(ctx context.Context) (string, error) {
	admin, _, err := e.store.AdminState(ctx)
	return admin, err
}

// IsPaused returns the current paused flag.
func (e *Engine) IsPaused(ctx context.Context) (bool, error) {
	_, paused, err := e.store.AdminState(ctx)
	return paused, err
}

// SetVaccineThresholds creates or overwrites the allowed temperature range
// for a vaccine type. Admin-only. The range must satisfy
// max > min, min <= 100, max >= -50.
func (e *Engine) SetVaccineThresholds(ctx context.Context, caller, vaccineType string, minTemp, maxTemp int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	caller = compliance.Normalize(caller)
	vaccineType = compliance.Normalize(vaccineType)

	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := compliance.ValidateThresholds(vaccineType, minTemp, maxTemp); err != nil {
		return errInvalidThreshold(vaccineType, err)
	}

	now := e.clock.Next()
	t := compliance.Thresholds{
		VaccineType: vaccineType,
		MinTemp:     minTemp,
		MaxTemp:     maxTemp,
		UpdatedSeq:  now,
	}
	if err := e.store.UpsertThresholds(ctx, t); err != nil {
		return err
	}

	slog.Info("thresholds set",
		"vaccine_type", vaccineType,
		"min_temp", minTemp,
		"max_temp", maxTemp,
		"seq", now,
	)
	return nil
}

// VaccineThresholds returns the registry entry for a vaccine type.
// ok=false means not registered; this query never fails on absence.
func (e *Engine) VaccineThresholds(ctx context.Context, vaccineType string) (compliance.Thresholds, bool, error) {
	return e.store.GetThresholds(ctx, compliance.Normalize(vaccineType))
}

// LoadProfiles registers every profile through the same guarded path as
// SetVaccineThresholds. Admin-only. Fails on the first invalid profile;
// profiles registered before the failure remain registered (each upsert is
// its own transaction, matching a sequence of individual set calls).
func (e *Engine) LoadProfiles(ctx context.Context, caller string, profiles []profile.Profile) error {
	for _, p := range profiles {
		if err := e.SetVaccineThresholds(ctx, caller, p.VaccineType, p.MinTemp, p.MaxTemp); err != nil {
			return fmt.Errorf("profile %s: %w", p.VaccineType, err)
		}
	}
	return nil
}

// InitializeBatch creates the compliance record for a new batch, copying
// thresholds from the registry entry for its vaccine type.
//
// Fails with InvalidVaccineType if the type is unregistered, BatchExists if
// the batch already has a record, and Paused while the system is paused.
// Re-initialization is rejected rather than silently resetting history.
func (e *Engine) InitializeBatch(ctx context.Context, batchID int64, vaccineType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(ctx); err != nil {
		return err
	}

	vaccineType = compliance.Normalize(vaccineType)
	t, ok, err := e.store.GetThresholds(ctx, vaccineType)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidVaccineType(vaccineType)
	}

	// Existence is checked before the clock tick; a rejected re-init
	// takes no sequence unit, same as a rejected submit.
	if _, exists, err := e.store.GetBatch(ctx, batchID); err != nil {
		return err
	} else if exists {
		return errBatchExists(batchID)
	}

	now := e.clock.Next()
	rec := compliance.NewBatchRecord(batchID, t, now)

	inserted, err := e.store.InsertBatch(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		return errBatchExists(batchID)
	}

	slog.Info("batch initialized",
		"batch_id", batchID,
		"vaccine_type", vaccineType,
		"min_temp", t.MinTemp,
		"max_temp", t.MaxTemp,
		"seq", now,
	)
	return nil
}

// BatchCompliance returns the compliance record for a batch.
// ok=false means no record exists; this query never fails on absence.
func (e *Engine) BatchCompliance(ctx context.Context, batchID int64) (compliance.BatchRecord, bool, error) {
	return e.store.GetBatch(ctx, batchID)
}

// TemperatureHistory returns one ledger entry by reading id.
// ok=false means the entry does not exist.
func (e *Engine) TemperatureHistory(ctx context.Context, batchID, readingID int64) (compliance.Reading, bool, error) {
	return e.store.GetReading(ctx, batchID, readingID)
}

// ReadingCount returns the number of readings recorded for a batch,
// 0 if the batch is unknown.
func (e *Engine) ReadingCount(ctx context.Context, batchID int64) (int64, error) {
	return e.store.ReadingCount(ctx, batchID)
}

// Breaches returns the persisted breach events for a batch in seq order.
func (e *Engine) Breaches(ctx context.Context, batchID int64) ([]compliance.BreachEvent, error) {
	return e.store.BreachEvents(ctx, batchID)
}
