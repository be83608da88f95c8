package session

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highroller/derby/internal/economy"
)

func newTestEngine(t *testing.T) (*Engine, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	ledger := economy.NewMemoryLedger(1000)
	e, err := NewEngine(testConfig(), ledger, nil, nil, mock, log.New(io.Discard))
	require.NoError(t, err)
	return e, mock
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Lanes = 1
	_, err := NewEngine(cfg, economy.NewMemoryLedger(0), nil, nil, quartz.NewMock(t), log.New(io.Discard))
	assert.Error(t, err)
}

func TestOneActiveRoundPerScope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t)
	s, err := e.StartRound(ctx, "chan-1", "host", 42)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Cancel(ctx, "host") })

	_, err = e.StartRound(ctx, "chan-1", "other", 43)
	assert.ErrorIs(t, err, ErrSessionExists)

	// A different scope is independent.
	s2, err := e.StartRound(ctx, "chan-2", "host", 44)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Cancel(ctx, "host") })
	assert.Equal(t, 2, e.Registry().Len())
}

func TestScopeFreedAfterTerminalRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t)
	s, err := e.StartRound(ctx, "chan-1", "host", 42)
	require.NoError(t, err)

	require.NoError(t, s.Cancel(ctx, "host"))
	<-s.Done()

	_, ok := e.Session("chan-1")
	assert.False(t, ok)

	s2, err := e.StartRound(ctx, "chan-1", "host", 43)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Cancel(ctx, "host") })
	assert.NotEqual(t, s.ID(), s2.ID())
}

func TestRegistryRemoveIgnoresReplacedSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.New(io.Discard))
	a := &Session{id: "a"}
	b := &Session{id: "b"}

	require.NoError(t, r.Insert("scope", a))
	r.Remove("scope", b)
	got, ok := r.Get("scope")
	require.True(t, ok)
	assert.Same(t, a, got)

	r.Remove("scope", a)
	_, ok = r.Get("scope")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestStartRoundIsReproducible(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t)
	s, err := e.StartRound(ctx, "chan-1", "host", 7)
	require.NoError(t, err)
	snapA, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Cancel(ctx, "host"))
	<-s.Done()

	s2, err := e.StartRound(ctx, "chan-1", "host", 7)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Cancel(ctx, "host") })
	snapB, err := s2.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, snapA.Lanes, snapB.Lanes, "same seed draws the same field")
}
