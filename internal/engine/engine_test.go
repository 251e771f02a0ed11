package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldtrace/coldtrace/internal/compliance"
	"github.com/coldtrace/coldtrace/internal/profile"
	"github.com/coldtrace/coldtrace/internal/store"
)

const testAdmin = "admin@coldtrace"

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e, err := New(context.Background(), st, testAdmin, opts...)
	require.NoError(t, err)
	return e
}

func registerMRNA(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.SetVaccineThresholds(context.Background(), testAdmin, "mRNA", 2, 8))
}

func TestNew_SeedsDeployerAsAdmin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	admin, err := e.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAdmin, admin)

	paused, err := e.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestNew_ResumesClockFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := store.Open(path)
	require.NoError(t, err)
	e, err := New(ctx, st, testAdmin)
	require.NoError(t, err)

	registerMRNA(t, e)
	require.NoError(t, e.InitializeBatch(ctx, 1, "mRNA"))
	_, err = e.SubmitReading(ctx, "sensor-a", 1, 5, "")
	require.NoError(t, err)
	lastSeq := e.Clock().Current()
	require.NoError(t, st.Close())

	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	e2, err := New(ctx, st, "someone-else")
	require.NoError(t, err)

	assert.Equal(t, lastSeq, e2.Clock().Current(), "clock resumes, never restarts")

	// The original administrator survives reopen with a different deployer.
	admin, err := e2.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAdmin, admin)
}

func TestSetAdmin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.SetAdmin(ctx, "mallory", "mallory")
	assert.True(t, IsUnauthorized(err), "non-admin cannot transfer, got %v", err)

	require.NoError(t, e.SetAdmin(ctx, testAdmin, "ops@coldtrace"))

	admin, err := e.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ops@coldtrace", admin)

	// Old admin lost its powers.
	err = e.Pause(ctx, testAdmin)
	assert.True(t, IsUnauthorized(err))
	require.NoError(t, e.Pause(ctx, "ops@coldtrace"))
}

func TestSetAdmin_RejectsEmptyIdentity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// The admin supplying a blank replacement is an input error, not an
	// authorization failure.
	err := e.SetAdmin(ctx, testAdmin, "")
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err), "got %v", err)
	assert.Empty(t, CodeOf(err))

	admin, err := e.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAdmin, admin, "administrator unchanged")
}

func TestPauseUnpause(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Pause(ctx, "mallory")
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, e.Pause(ctx, testAdmin))
	paused, err := e.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, e.Unpause(ctx, testAdmin))
	paused, err = e.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestSetVaccineThresholds_Validation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.SetVaccineThresholds(ctx, "mallory", "mRNA", 2, 8)
	assert.True(t, IsUnauthorized(err))

	// Inverted range fails; corrected range succeeds.
	err = e.SetVaccineThresholds(ctx, testAdmin, "mRNA", 8, 2)
	assert.True(t, IsInvalidThreshold(err), "inverted range, got %v", err)

	require.NoError(t, e.SetVaccineThresholds(ctx, testAdmin, "mRNA", 2, 8))

	got, ok, err := e.VaccineThresholds(ctx, "mRNA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.MinTemp)
	assert.Equal(t, int64(8), got.MaxTemp)
}

func TestVaccineThresholds_AbsentIsNotAnError(t *testing.T) {
	e := newTestEngine(t)

	_, ok, err := e.VaccineThresholds(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVaccineThresholds_NormalizedLabelsKeySameEntry(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Registered with a decomposed label, looked up with the composed form.
	require.NoError(t, e.SetVaccineThresholds(ctx, testAdmin, "attenue\u0301", -25, -15))

	_, ok, err := e.VaccineThresholds(ctx, "attenu\u00e9")
	require.NoError(t, err)
	assert.True(t, ok, "NFC-equivalent labels must hit the same entry")
}

func TestInitializeBatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	registerMRNA(t, e)

	err := e.InitializeBatch(ctx, 1, "unregistered")
	assert.True(t, IsInvalidVaccineType(err), "got %v", err)

	require.NoError(t, e.InitializeBatch(ctx, 1, "mRNA"))

	rec, ok, err := e.BatchCompliance(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Compliant)
	assert.Equal(t, int64(0), rec.ExcursionCount)
	assert.Equal(t, int64(0), rec.LastExcursionAt)
	assert.Equal(t, "mRNA", rec.VaccineType)
	assert.Equal(t, int64(2), rec.MinTemp)
	assert.Equal(t, int64(8), rec.MaxTemp)
}

func TestInitializeBatch_RejectsReinitialization(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	registerMRNA(t, e)
	require.NoError(t, e.InitializeBatch(ctx, 1, "mRNA"))

	// Drive the batch into an excursion, then try to re-init.
	_, err := e.SubmitReading(ctx, "sensor-a", 1, 20, "")
	require.NoError(t, err)

	before := e.Clock().Current()
	err = e.InitializeBatch(ctx, 1, "mRNA")
	assert.True(t, IsBatchExists(err), "got %v", err)
	assert.Equal(t, before, e.Clock().Current(), "rejected re-init must not tick the clock")

	rec, ok, err := e.BatchCompliance(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.ExcursionCount, "history survives rejected re-init")
}

func TestInitializeBatch_PausedRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	registerMRNA(t, e)
	require.NoError(t, e.Pause(ctx, testAdmin))

	err := e.InitializeBatch(ctx, 1, "mRNA")
	assert.True(t, IsPaused(err))
}

func TestThresholdUpdateDoesNotRewriteExistingBatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	registerMRNA(t, e)
	require.NoError(t, e.InitializeBatch(ctx, 1, "mRNA"))

	// Registry change after initialization.
	require.NoError(t, e.SetVaccineThresholds(ctx, testAdmin, "mRNA", -25, -15))

	rec, ok, err := e.BatchCompliance(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), rec.MinTemp, "batch keeps thresholds copied at init")
	assert.Equal(t, int64(8), rec.MaxTemp)
}

func TestLoadProfiles(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	profiles := []profile.Profile{
		{VaccineType: "mRNA", MinTemp: 2, MaxTemp: 8},
		{VaccineType: "mRNA-frozen", MinTemp: -25, MaxTemp: -15},
	}

	err := e.LoadProfiles(ctx, "mallory", profiles)
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, e.LoadProfiles(ctx, testAdmin, profiles))

	for _, p := range profiles {
		got, ok, err := e.VaccineThresholds(ctx, p.VaccineType)
		require.NoError(t, err)
		require.True(t, ok, "profile %s not registered", p.VaccineType)
		assert.Equal(t, p.MinTemp, got.MinTemp)
		assert.Equal(t, p.MaxTemp, got.MaxTemp)
	}
}

func TestCollectNotifier(t *testing.T) {
	n := &CollectNotifier{}
	n.NotifyBreach(context.Background(), compliance.BreachEvent{EventID: "ev-1", BatchID: 1})

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].EventID)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("ev-1", "ev-2")
	assert.Equal(t, "ev-1", g.Generate())
	assert.Equal(t, "ev-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
