package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyInputActiveLow(t *testing.T) {
	k := New()
	assert.EqualValues(t, 0x3FF, k.KeyInput(), "no buttons held: every bit set")

	k.SetPressed(ButtonA, true)
	assert.EqualValues(t, 0x3FF&^1, k.KeyInput())
}

func TestIRQConditionOR(t *testing.T) {
	k := New()
	k.SetKeyCnt((1 << 14) | (1 << ButtonA) | (1 << ButtonB))
	assert.False(t, k.IRQPending())
	k.SetPressed(ButtonA, true)
	assert.True(t, k.IRQPending())
}

func TestIRQConditionAND(t *testing.T) {
	k := New()
	k.SetKeyCnt((1 << 14) | (1 << 15) | (1 << ButtonA) | (1 << ButtonB))
	k.SetPressed(ButtonA, true)
	assert.False(t, k.IRQPending(), "AND condition needs both buttons held")
	k.SetPressed(ButtonB, true)
	assert.True(t, k.IRQPending())
}
