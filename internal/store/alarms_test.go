package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisterAlarm(t *testing.T) {
	s := openTest(t)

	now := time.Now().UTC()
	require.NoError(t, s.RegisterAlarm("reconcile", 5*time.Minute, now))

	due, err := s.DueAlarms(now)
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = s.DueAlarms(now.Add(6 * time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "reconcile", due[0].Name)
}

func TestRegisterAlarmPreservesNextFire(t *testing.T) {
	s := openTest(t)

	now := time.Now().UTC()
	require.NoError(t, s.RegisterAlarm("reconcile", 5*time.Minute, now))

	// A restart re-registers; the pending fire time must survive so an
	// overdue alarm still fires immediately after wake.
	require.NoError(t, s.RegisterAlarm("reconcile", 5*time.Minute, now.Add(time.Hour)))

	due, err := s.DueAlarms(now.Add(6 * time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
}

func TestRegisterAlarmUpdatesPeriod(t *testing.T) {
	s := openTest(t)

	now := time.Now().UTC()
	require.NoError(t, s.RegisterAlarm("reconcile", 5*time.Minute, now))
	require.NoError(t, s.RegisterAlarm("reconcile", 10*time.Minute, now))

	due, err := s.DueAlarms(now.Add(6 * time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 10*time.Minute, due[0].Period)
}

func TestAdvanceAlarm(t *testing.T) {
	s := openTest(t)

	now := time.Now().UTC()
	require.NoError(t, s.RegisterAlarm("prune", time.Minute, now))
	require.NoError(t, s.AdvanceAlarm("prune", now.Add(time.Hour)))

	due, err := s.DueAlarms(now.Add(30 * time.Minute))
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = s.DueAlarms(now.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
}
