package vmm

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_TerminateKillsAndReaps(t *testing.T) {
	p, err := startProcess(exec.Command("sleep", "60"))
	require.NoError(t, err)

	assert.True(t, p.Alive())
	assert.Greater(t, p.PID(), 0)

	require.NoError(t, p.Terminate())
	assert.False(t, p.Alive())

	// Terminate is idempotent.
	require.NoError(t, p.Terminate())
}

func TestProcess_WaitReturnsOnExit(t *testing.T) {
	p, err := startProcess(exec.Command("true"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Wait(ctx))
	assert.False(t, p.Alive())
}

func TestProcess_WaitHonorsContext(t *testing.T) {
	p, err := startProcess(exec.Command("sleep", "60"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Terminate() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}

func TestProcess_TerminateAfterNaturalExit(t *testing.T) {
	p, err := startProcess(exec.Command("true"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	// Killing an already reaped child must not error.
	require.NoError(t, p.Terminate())
}
