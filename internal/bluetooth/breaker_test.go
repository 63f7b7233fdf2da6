package bluetooth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	calls int
	err   error
	found bool
}

func (f *flakySource) Scan(context.Context, string, time.Duration) (int, bool, error) {
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	return -52, f.found, nil
}

func TestBreakerOpensOnAdapterFaults(t *testing.T) {
	inner := &flakySource{err: errors.New("adapter down")}
	b := NewBreakerSource(inner, 3, time.Hour, nil)

	for i := 0; i < 3; i++ {
		_, _, err := b.Scan(context.Background(), "AA:BB:CC:DD:EE:FF", time.Second)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen.String(), b.Health())

	_, found, err := b.Scan(context.Background(), "AA:BB:CC:DD:EE:FF", time.Second)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, found)
	assert.Equal(t, 3, inner.calls)
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	inner := &flakySource{}
	b := NewBreakerSource(inner, 2, time.Hour, nil)
	for i := 0; i < 5; i++ {
		_, found, err := b.Scan(context.Background(), "AA:BB:CC:DD:EE:FF", time.Second)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, "closed", b.Health())

	inner.found = true
	rssi, found, err := b.Scan(context.Background(), "AA:BB:CC:DD:EE:FF", time.Second)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, -52, rssi)
}
