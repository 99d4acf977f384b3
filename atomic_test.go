package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordLoadStore(t *testing.T) {
	var w Word
	w.Store(42)
	assert.Equal(t, uint32(42), w.Load())
}

func TestWordExchange(t *testing.T) {
	var w Word
	w.Store(1)
	prev := w.Exchange(2)
	assert.Equal(t, uint32(1), prev)
	assert.Equal(t, uint32(2), w.Load())
}

func TestWordCompareAndExchange(t *testing.T) {
	var w Word
	w.Store(5)

	expected := uint32(5)
	assert.True(t, w.CompareAndExchange(&expected, 6))
	assert.Equal(t, uint32(6), w.Load())

	expected = uint32(5) // stale now
	assert.False(t, w.CompareAndExchange(&expected, 7))
	assert.Equal(t, uint32(6), expected) // updated to observed value
	assert.Equal(t, uint32(6), w.Load())
}

func TestWordFetchAddSub(t *testing.T) {
	var w Word
	w.Store(10)
	assert.Equal(t, uint32(10), w.FetchAdd(5))
	assert.Equal(t, uint32(15), w.Load())
	assert.Equal(t, uint32(15), w.FetchSub(5))
	assert.Equal(t, uint32(10), w.Load())
}
