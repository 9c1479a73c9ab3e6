package dbpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_SizeAndAvailable(t *testing.T) {
	p := New(nil, 5)
	assert.Equal(t, 5, p.Size())
	assert.Equal(t, 0, p.Available())
}

func TestPool_TryClaimSlotRespectsLimit(t *testing.T) {
	p := New(nil, 2)
	assert.True(t, p.tryClaimSlot())
	assert.True(t, p.tryClaimSlot())
	assert.False(t, p.tryClaimSlot(), "a third claim must fail once the limit is reached")
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p := New(nil, 1)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "closing twice must not panic or error")
	assert.True(t, p.closed.Load())
}
