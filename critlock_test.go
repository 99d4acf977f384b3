package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBoundCore(t *testing.T, c CoreID, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		bindCore(c)
		fn()
	}()
	<-done
}

func TestCritlockAcquireRelease(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	c := k.NewCritlock()
	require.True(t, c.Valid())

	withBoundCore(t, Primary, func() {
		require.NoError(t, c.Acquire(k, 50_000_000))
		assert.True(t, k.isCriticalCore(Primary))
		require.NoError(t, c.Release(k))
		assert.False(t, k.isCriticalCore(Primary))
	})
}

func TestCritlockAcquireTimesOutWhenHeld(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	c := k.NewCritlock()

	withBoundCore(t, Primary, func() {
		require.NoError(t, c.Acquire(k, 50_000_000))
	})

	withBoundCore(t, Secondary, func() {
		err := c.Acquire(k, 1) // 1 tick timeout, already held by "Primary"
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeTimeout, kerr.Code)
	})
}

func TestCritlockReleaseWithoutAcquireFails(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	c := k.NewCritlock()

	withBoundCore(t, Primary, func() {
		err := c.Release(k)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidState, kerr.Code)
	})
}

func TestCritlockDestroyWhileLockedFails(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	c := k.NewCritlock()

	withBoundCore(t, Primary, func() {
		require.NoError(t, c.Acquire(k, 50_000_000))
	})

	err := c.Destroy()
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, CodeInvalidState, kerr.Code)

	withBoundCore(t, Primary, func() {
		require.NoError(t, c.Release(k))
	})
	require.NoError(t, c.Destroy())
	assert.False(t, c.Valid())
}

func TestCritlockOperationsRejectDestroyedHandle(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	c := k.NewCritlock()
	require.NoError(t, c.Destroy())

	withBoundCore(t, Primary, func() {
		err := c.Acquire(k, 1000)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidArg, kerr.Code)
	})
}
