package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haltcnt/gbaid/irq"
)

func newTestDisplay() *Display {
	vram := make([]byte, 0x18000)
	pal := make([]byte, 0x400)
	oam := make([]byte, 0x400)
	return New(vram, pal, oam, irq.New())
}

// TestForceBlankProducesWhiteScanline is the literal end-to-end scenario:
// setting DISPCNT's force-blank bit makes every pixel of the next rendered
// scanline the fixed white-ish blank color regardless of BG/OBJ state.
func TestForceBlankProducesWhiteScanline(t *testing.T) {
	d := newTestDisplay()
	d.DISPCNT = dispcntForceBlank
	d.renderScanline(0)
	for x := 0; x < ScreenWidth; x++ {
		assert.EqualValues(t, 0x7FFF, d.back[x])
	}
}

// TestFrameSwapOnVBlank is the literal end-to-end scenario: stepping the
// display through one full 228-scanline frame flips VBlank on at line 160
// and swaps the framebuffer exactly once.
func TestFrameSwapOnVBlank(t *testing.T) {
	d := newTestDisplay()
	d.Step(cyclesPerScanline * visibleScanlines)
	assert.EqualValues(t, visibleScanlines, d.VCOUNT)
	assert.NotZero(t, d.DISPSTAT&1, "VBlank flag must be set entering line 160")
	assert.True(t, d.FrameReady())
	assert.False(t, d.FrameReady(), "FrameReady is edge-triggered and clears on read")

	d.Step(cyclesPerScanline * (totalScanlines - visibleScanlines))
	assert.EqualValues(t, 0, d.VCOUNT)
	assert.Zero(t, d.DISPSTAT&1, "VBlank flag clears entering line 0")
}

func TestBitmapMode3Pixel(t *testing.T) {
	d := newTestDisplay()
	d.DISPCNT = 3 // mode 3
	d.VRAM[0] = 0xFF
	d.VRAM[1] = 0x7F // 0x7FFF, white
	d.renderScanline(0)
	assert.EqualValues(t, 0x7FFF, d.back[0])
}
