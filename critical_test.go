package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriticalNesting(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()

	assert.False(t, k.isCriticalCore(Primary))
	k.enterCriticalCore(Primary)
	k.enterCriticalCore(Primary)
	assert.True(t, k.isCriticalCore(Primary))
	k.exitCriticalCore(Primary)
	assert.True(t, k.isCriticalCore(Primary))
	k.exitCriticalCore(Primary)
	assert.False(t, k.isCriticalCore(Primary))
}

func TestCriticalExitClampsAtZero(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()

	k.exitCriticalCore(Primary)
	k.exitCriticalCore(Primary)
	assert.False(t, k.isCriticalCore(Primary))
}

func TestCriticalResetReleasesGate(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()

	k.enterCriticalCore(Primary)
	k.enterCriticalCore(Primary) // nested
	k.resetCriticalCore(Primary)
	assert.False(t, k.isCriticalCore(Primary))

	// gate must be unlocked; entering again must not deadlock.
	k.enterCriticalCore(Primary)
	k.exitCriticalCore(Primary)
}

func TestCoresAreIndependent(t *testing.T) {
	k := NewWithConfig(DefaultConfig())
	defer k.Close()

	k.enterCriticalCore(Primary)
	assert.True(t, k.isCriticalCore(Primary))
	assert.False(t, k.isCriticalCore(Secondary))
	k.exitCriticalCore(Primary)
}
