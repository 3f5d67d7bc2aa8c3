package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexandremahdhaoui/bootprobe/internal/util/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearBackOff_Sequence(t *testing.T) {
	b := retry.Linear(10 * time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 30*time.Millisecond, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	out, err := retry.Do(context.Background(), 6, retry.Linear(time.Millisecond),
		func() (string, error) {
			attempts++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsAttemptBudgetExactly(t *testing.T) {
	errBoom := errors.New("boom")

	attempts := 0
	_, err := retry.Do(context.Background(), 4, retry.Linear(time.Millisecond),
		func() (struct{}, error) {
			attempts++
			return struct{}{}, errBoom
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, attempts, "must attempt exactly maxAttempts times")
}

func TestDo_ReturnsLastError(t *testing.T) {
	errFirst := errors.New("first failure")
	errLast := errors.New("last failure")

	attempts := 0
	_, err := retry.Do(context.Background(), 3, retry.Linear(time.Millisecond),
		func() (struct{}, error) {
			attempts++
			if attempts < 3 {
				return struct{}{}, errFirst
			}
			return struct{}{}, errLast
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, errLast)
	assert.NotErrorIs(t, err, errFirst)
}

func TestDo_RecoversMidBudget(t *testing.T) {
	attempts := 0
	out, err := retry.Do(context.Background(), 6, retry.Linear(time.Millisecond),
		func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errors.New("not yet")
			}
			return attempts, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, 3, attempts)
}
