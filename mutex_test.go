package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexAcquireRelease(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(false)
	require.True(t, m.Valid())

	withBoundCore(t, Primary, func() {
		require.NoError(t, m.Acquire(k, 50_000_000))
		require.NoError(t, m.Release(k))
	})
}

func TestMutexNonRecursiveRejectsReentry(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(false)

	withBoundCore(t, Primary, func() {
		require.NoError(t, m.Acquire(k, 50_000_000))
		err := m.Acquire(k, 50_000_000)
		require.Error(t, err)
		var kerr *Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, CodeInvalidState, kerr.Code)
		require.NoError(t, m.Release(k))
	})
}

func TestMutexRecursiveAllowsReentry(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(true)

	withBoundCore(t, Primary, func() {
		require.NoError(t, m.Acquire(k, 50_000_000))
		require.NoError(t, m.Acquire(k, 50_000_000))
		require.NoError(t, m.Release(k))
		// still held once more; destroy should fail until the final release.
		err := m.Destroy()
		require.Error(t, err)
		require.NoError(t, m.Release(k))
	})
}

func TestMutexReleaseByNonOwnerFails(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(false)

	acquired := make(chan struct{})
	proceed := make(chan struct{})
	var acquireErr, ownerReleaseErr error

	// require/assert must run on the test's own goroutine, not one spawned
	// by Create, so every call's result is stashed here and checked below.
	owner, err := k.Create(Primary, func(arg any) {
		acquireErr = m.Acquire(k, 50_000_000)
		close(acquired)
		<-proceed
		ownerReleaseErr = m.Release(k)
		k.Exit()
	}, nil, 512, 1)
	require.NoError(t, err)

	<-acquired
	require.NoError(t, acquireErr)
	ownerTID := m.owner
	ownerCount := m.lockCount

	var releaseErr error
	other, err := k.Create(Secondary, func(arg any) {
		releaseErr = m.Release(k)
		k.Exit()
	}, nil, 512, 1)
	require.NoError(t, err)

	waitForState(t, k, other, ThreadStopped, time.Second)

	require.Error(t, releaseErr)
	var kerr *Error
	require.ErrorAs(t, releaseErr, &kerr)
	assert.Equal(t, CodeInvalidState, kerr.Code)
	assert.Equal(t, ownerTID, m.owner)
	assert.Equal(t, ownerCount, m.lockCount)

	close(proceed)
	waitForState(t, k, owner, ThreadStopped, time.Second)
	require.NoError(t, ownerReleaseErr)

	require.NoError(t, k.Destroy(other))
	require.NoError(t, k.Destroy(owner))
}

func TestMutexAcquireRejectedInInterruptContext(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(false)

	withBoundCore(t, Primary, func() {
		RunInterrupt(func() {
			err := m.Acquire(k, 50_000_000)
			require.Error(t, err)
			var kerr *Error
			require.ErrorAs(t, err, &kerr)
			assert.Equal(t, CodeInvalidOp, kerr.Code)
		})
	})
}

func TestMutexDestroyWhileLockedFails(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()
	m := k.NewMutex(false)

	withBoundCore(t, Primary, func() {
		require.NoError(t, m.Acquire(k, 50_000_000))
	})

	err := m.Destroy()
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, CodeInvalidState, kerr.Code)

	withBoundCore(t, Primary, func() {
		require.NoError(t, m.Release(k))
	})
	require.NoError(t, m.Destroy())
	assert.False(t, m.Valid())
}
