package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, logging.NewNop()), st
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestScheduler(t)

	noop := func(context.Context) error { return nil }
	require.Error(t, s.Register("bad", 0, noop))
	require.NoError(t, s.Register("job", time.Minute, noop))
	require.Error(t, s.Register("job", time.Minute, noop))
}

func TestRunDueFiresOverdueJob(t *testing.T) {
	s, st := newTestScheduler(t)

	fired := 0
	require.NoError(t, s.Register("job", time.Hour, func(context.Context) error {
		fired++
		return nil
	}))

	// Freshly registered: not due yet.
	require.NoError(t, s.RunDue(context.Background()))
	require.Zero(t, fired)

	// Backdate the alarm the way a process suspension would leave it.
	require.NoError(t, st.AdvanceAlarm("job", time.Now().UTC().Add(-time.Minute)))
	require.NoError(t, s.RunDue(context.Background()))
	require.Equal(t, 1, fired)

	// The fire advanced the schedule a full period.
	require.NoError(t, s.RunDue(context.Background()))
	require.Equal(t, 1, fired)
}

func TestRunDueSurvivesFailingJob(t *testing.T) {
	s, st := newTestScheduler(t)

	failures := 0
	require.NoError(t, s.Register("flaky", time.Hour, func(context.Context) error {
		failures++
		return errors.New("boom")
	}))
	otherRan := false
	require.NoError(t, s.Register("other", time.Hour, func(context.Context) error {
		otherRan = true
		return nil
	}))

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.AdvanceAlarm("flaky", past))
	require.NoError(t, st.AdvanceAlarm("other", past))

	require.NoError(t, s.RunDue(context.Background()))
	require.Equal(t, 1, failures)
	require.True(t, otherRan)

	// The failing job's alarm still advanced; it does not spin.
	require.NoError(t, s.RunDue(context.Background()))
	require.Equal(t, 1, failures)
}

func TestRunDueIgnoresOrphanAlarm(t *testing.T) {
	s, st := newTestScheduler(t)

	// Row left behind by a job removed in a newer build.
	require.NoError(t, st.RegisterAlarm("ghost", time.Minute, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, st.AdvanceAlarm("ghost", time.Now().UTC().Add(-time.Minute)))

	require.NoError(t, s.RunDue(context.Background()))
}

func TestScheduleSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	s := New(st, logging.NewNop())
	require.NoError(t, s.Register("job", time.Hour, func(context.Context) error { return nil }))
	require.NoError(t, st.AdvanceAlarm("job", time.Now().UTC().Add(-time.Minute)))
	require.NoError(t, st.Close())

	// Restart: re-registering must keep the overdue fire time.
	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	s = New(st, logging.NewNop())

	fired := 0
	require.NoError(t, s.Register("job", time.Hour, func(context.Context) error {
		fired++
		return nil
	}))
	require.NoError(t, s.RunDue(context.Background()))
	require.Equal(t, 1, fired)
}
