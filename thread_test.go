package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadStateString(t *testing.T) {
	assert.Equal(t, "READY", ThreadReady.String())
	assert.Equal(t, "RUNNING", ThreadRunning.String())
	assert.Equal(t, "SUSPENDED", ThreadSuspended.String())
	assert.Equal(t, "STOPPED", ThreadStopped.String())
	assert.Equal(t, "UNKNOWN", ThreadState(99).String())
}

func TestNewTCBStampsGuard(t *testing.T) {
	tcb := newTCB(Primary, func(any) {}, nil, 64, 1)
	assert.True(t, tcb.guardIntact())
	assert.Equal(t, ThreadReady, tcb.state)
	assert.Equal(t, int32(1), tcb.priority)
}

func TestGuardIntactDetectsCorruption(t *testing.T) {
	tcb := newTCB(Primary, func(any) {}, nil, 64, 1)
	require := assert.New(t)
	require.True(tcb.guardIntact())
	tcb.stack[0] ^= 0xFF
	require.False(tcb.guardIntact())
}

func TestStackUsageReportsHighWaterMark(t *testing.T) {
	tcb := newTCB(Primary, func(any) {}, nil, 64, 1)
	assert.Equal(t, 0, tcb.stackUsage())
	tcb.stack[40] = 7
	assert.Equal(t, 40-3, tcb.stackUsage())
}

func TestInvalidHandleIsNeverValid(t *testing.T) {
	assert.False(t, InvalidHandle.Valid())
}
