package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	chain := Chain{
		Func(func(context.Context) error { calls = append(calls, "a"); return errors.New("a failed") }),
		Func(func(context.Context) error { calls = append(calls, "b"); return nil }),
		Func(func(context.Context) error { calls = append(calls, "c"); return nil }),
	}

	require.NoError(t, chain.Lock(context.Background()))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestChainJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	chain := Chain{
		Func(func(context.Context) error { return errA }),
		Func(func(context.Context) error { return errB }),
	}

	err := chain.Lock(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	assert.Error(t, Chain{}.Lock(context.Background()))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("  xdg-screensaver   lock ")
	require.NoError(t, err)
	assert.Equal(t, Command{Name: "xdg-screensaver", Args: []string{"lock"}}, cmd)

	_, err = ParseCommand("   ")
	assert.Error(t, err)
}

func TestCommandReportsFailure(t *testing.T) {
	err := Command{Name: "ble-autolock-no-such-binary"}.Lock(context.Background())
	assert.Error(t, err)
}

func TestDryRun(t *testing.T) {
	assert.NoError(t, DryRun{}.Lock(context.Background()))
}
