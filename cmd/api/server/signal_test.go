package server

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSignal(t *testing.T) {
	t.Run("cancelled by SIGTERM", func(t *testing.T) {
		ctx, stop := WithSignal(context.Background())
		defer stop()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("context not cancelled by signal")
		}
	})

	t.Run("cancelled with parent", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		ctx, stop := WithSignal(parent)
		defer stop()

		cancel()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}
