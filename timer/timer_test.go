package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haltcnt/gbaid/irq"
)

// TestTimerOverflowIRQ is the literal end-to-end scenario: a timer configured
// near the top of its range overflows and raises its IRQ on the tick that
// crosses 0x10000.
func TestTimerOverflowIRQ(t *testing.T) {
	controller := irq.New()
	controller.SetIE(1 << 3) // Timer0
	controller.SetIME(true)
	b := New(controller)

	b.Timers[0].Configure(0xFFFE, 0, false, true, true)
	b.Step(1) // counter: FFFE -> FFFF
	assert.EqualValues(t, 0xFFFF, b.Timers[0].Counter())
	assert.False(t, controller.Pending())

	b.Step(1) // counter overflows, reloads to 0xFFFE
	assert.EqualValues(t, 0xFFFE, b.Timers[0].Counter())
	assert.True(t, controller.Pending())
}

func TestCascadeMode(t *testing.T) {
	controller := irq.New()
	b := New(controller)
	b.Timers[0].Configure(0xFFFF, 0, false, false, true)
	b.Timers[1].Configure(0, 0, true, false, true) // cascades from timer 0

	b.Step(1) // timer0 overflows once and reloads 0xFFFF, timer1 should increment by 1
	assert.EqualValues(t, 0xFFFF, b.Timers[0].Counter())
	assert.EqualValues(t, 1, b.Timers[1].Counter())
}

func TestPrescalerShift(t *testing.T) {
	controller := irq.New()
	b := New(controller)
	b.Timers[0].Configure(0, 1, false, false, true) // prescaler /64
	b.Step(63)
	assert.EqualValues(t, 0, b.Timers[0].Counter())
	b.Step(1)
	assert.EqualValues(t, 1, b.Timers[0].Counter())
}
