package asyncstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOBufferContains(t *testing.T) {
	b := NewIOBuffer(16)
	b.Reset(100)
	b.ExtendValid(108)

	assert.True(t, b.Contains(100))
	assert.True(t, b.Contains(108)) // inclusive of End()
	assert.True(t, b.ContainsExclusive(107))
	assert.False(t, b.ContainsExclusive(108))
	assert.False(t, b.Contains(99))
	assert.False(t, b.Contains(109))
}

func TestIOBufferExtendValidNeverShrinks(t *testing.T) {
	b := NewIOBuffer(16)
	b.Reset(0)
	b.ExtendValid(10)
	assert.EqualValues(t, 10, b.ValidBytes())

	b.ExtendValid(4)
	assert.EqualValues(t, 10, b.ValidBytes(), "ExtendValid must not shrink the valid range")
}

func TestIOBufferFlags(t *testing.T) {
	b := NewIOBuffer(8)
	assert.False(t, b.HasFlag(FlagValidData))
	b.SetFlag(FlagValidData)
	b.SetFlag(FlagUnsavedChanges)
	assert.True(t, b.HasFlag(FlagValidData))
	assert.True(t, b.HasFlag(FlagUnsavedChanges))
	b.ClearFlag(FlagValidData)
	assert.False(t, b.HasFlag(FlagValidData))
	assert.True(t, b.HasFlag(FlagUnsavedChanges))
}

func TestIOBufferSliceRoundTrip(t *testing.T) {
	b := NewIOBuffer(16)
	b.Reset(50)
	copy(b.Bytes(), []byte("hello world"))
	b.ExtendValid(50 + 11)

	got := b.Slice(56, 5)
	assert.Equal(t, "world", string(got))
}

func TestIOBufferCapacityContains(t *testing.T) {
	b := NewIOBuffer(16)
	b.Reset(0)
	assert.True(t, b.CapacityContains(0))
	assert.True(t, b.CapacityContains(15))
	assert.False(t, b.CapacityContains(16))
}
