package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	"vault/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAutoClaim(t *testing.T) {
	logger = zaptest.NewLogger(t)

	var called []string
	claim := func(_ context.Context, caller, name, destination string) (*domain.ClaimRecord, error) {
		require.Equal(t, "operator", caller)
		called = append(called, name+">"+destination)
		switch name {
		case "done":
			return nil, domain.ErrorAlreadyClaimedThisRound
		case "early":
			return nil, domain.ErrorNotStarted
		case "broken":
			return nil, errors.New("database is down")
		}
		return &domain.ClaimRecord{Vault: name, ToRound: 3, State: domain.ClaimStateSent}, nil
	}

	entries := []domain.AutoClaim{
		{Vault: "team", Destination: "a"},
		{Vault: "done", Destination: "b"},
		{Vault: "early", Destination: "c"},
		{Vault: "broken", Destination: "d"},
		{Vault: "advisors", Destination: "e"},
	}
	committed := autoClaim(context.Background(), claim, "operator", entries)
	require.Equal(t, 2, committed)
	require.Equal(t, []string{"team>a", "done>b", "early>c", "broken>d", "advisors>e"}, called)
}

func TestAutoClaimStopsOnCancel(t *testing.T) {
	logger = zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	claim := func(context.Context, string, string, string) (*domain.ClaimRecord, error) {
		return nil, fmt.Errorf("must not be called")
	}
	require.Zero(t, autoClaim(ctx, claim, "operator", []domain.AutoClaim{{Vault: "team"}}))
}

func TestScheduleRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	done := make(chan error, 1)
	go func() {
		done <- schedule(ctx, clockwork.NewRealClock(), func(context.Context) {
			runs++
			if runs == 3 {
				cancel()
			}
		}, time.Millisecond)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not return")
	}
	require.Equal(t, 3, runs)
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.pid")
	require.NoError(t, writePidFile(path))

	pid, err := readPidFile(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	_, err = readPidFile(path)
	require.Error(t, err)

	_, err = readPidFile(filepath.Join(t.TempDir(), "missing.pid"))
	require.Error(t, err)
}
