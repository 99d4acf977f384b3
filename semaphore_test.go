package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreAcquireRelease(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	s := k.NewSemaphore(2, 1)
	require.True(t, s.Valid())

	withBoundCore(t, Primary, func() {
		require.NoError(t, s.Acquire(k, 50_000_000))
		assert.NoError(t, s.Release(k))
	})
}

func TestSemaphoreAcquireBlocksAtZeroThenTimesOut(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	s := k.NewSemaphore(1, 0)

	withBoundCore(t, Primary, func() {
		err := s.Acquire(k, 1) // 1 tick timeout, count already 0
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeTimeout, kerr.Code)
	})
}

func TestSemaphoreReleaseRejectsOverCapacity(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	s := k.NewSemaphore(1, 1)

	withBoundCore(t, Primary, func() {
		err := s.Release(k)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidState, kerr.Code)
	})
}

func TestSemaphoreDestroyInvalidatesHandle(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	s := k.NewSemaphore(1, 1)
	require.NoError(t, s.Destroy())
	assert.False(t, s.Valid())

	withBoundCore(t, Primary, func() {
		err := s.Acquire(k, 1000)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidArg, kerr.Code)
	})
}

func TestSemaphoreNegativeTimeoutRejected(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	s := k.NewSemaphore(1, 1)

	withBoundCore(t, Primary, func() {
		err := s.Acquire(k, -1)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidArg, kerr.Code)
	})
}
