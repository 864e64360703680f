package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitForPing(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		p := &flakyPinger{failures: 2}
		require.NoError(t, waitForPing(context.Background(), p, 5, time.Millisecond))
		assert.Equal(t, 3, p.calls)
	})

	t.Run("gives up", func(t *testing.T) {
		p := &flakyPinger{failures: 10}
		err := waitForPing(context.Background(), p, 3, time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gave up after 3 attempts")
		assert.Equal(t, 3, p.calls)
	})

	t.Run("zero attempts tries once", func(t *testing.T) {
		p := &flakyPinger{failures: 1}
		require.Error(t, waitForPing(context.Background(), p, 0, time.Millisecond))
		assert.Equal(t, 1, p.calls)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &flakyPinger{failures: 10}
		err := waitForPing(ctx, p, 5, time.Hour)
		require.ErrorIs(t, err, context.Canceled)
	})
}
