// Package video implements the display pipeline of spec.md section 4.J: the
// 308x228x4-cycle scanline/frame timing grid, DISPCNT/DISPSTAT/VCOUNT and
// the per-background and per-sprite register set, and a scanline renderer
// for background modes 0-5 plus the OBJ layer, composited through an
// alpha-blend stage into a double-buffered BGR555 framebuffer. The window
// registers are stored but do not mask layers or effects.
//
// Grounded on: the teacher's video/ppu.go scanline state machine (dot
// counter -> HBlank/VBlank flags -> per-scanline render callback ->
// frame-complete swap), generalized from the Game Boy's fixed 4-shade
// tile-only pipeline to the GBA's multi-mode tile/affine/bitmap pipeline.
package video

import "github.com/haltcnt/gbaid/irq"

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	dotsPerScanline   = 308
	visibleScanlines  = 160
	totalScanlines    = 228
	cyclesPerDot      = 4
	cyclesPerScanline = dotsPerScanline * cyclesPerDot
)

// DISPCNT bit layout.
const (
	dispcntModeMask   = 0x7
	dispcntFrameSel   = 1 << 4
	dispcntHBlankFree = 1 << 5
	dispcntObjMapping = 1 << 6 // 1 = 1-dimensional OBJ tile mapping
	dispcntForceBlank = 1 << 7
	dispcntBG0Enable  = 1 << 8
	dispcntBG1Enable  = 1 << 9
	dispcntBG2Enable  = 1 << 10
	dispcntBG3Enable  = 1 << 11
	dispcntObjEnable  = 1 << 12
	dispcntWin0Enable = 1 << 13
	dispcntWin1Enable = 1 << 14
	dispcntObjWinable = 1 << 15
)

// Background holds one BGxCNT/BGxHOFS/BGxVOFS register set, plus the affine
// reference point and parameter registers used by BG2/BG3 in modes 1/2.
type Background struct {
	Control uint16
	HOffset uint16
	VOffset uint16

	// Affine parameters (BG2/BG3 only).
	RefX, RefY     int32 // 20.8 fixed point
	PA, PB, PC, PD int16

	// internalX/Y are the per-frame accumulating reference point, reloaded
	// from RefX/RefY at the start of each frame and advanced by PB/PD each
	// scanline (spec.md section 4.J affine note).
	internalX, internalY int32
}

func (bg *Background) priority() int   { return int(bg.Control & 0x3) }
func (bg *Background) charBase() int   { return int((bg.Control >> 2) & 0x3) }
func (bg *Background) mosaic() bool    { return bg.Control&(1<<6) != 0 }
func (bg *Background) is256Color() bool { return bg.Control&(1<<7) != 0 }
func (bg *Background) screenBase() int { return int((bg.Control >> 8) & 0x1F) }
func (bg *Background) wraparound() bool { return bg.Control&(1<<13) != 0 }
func (bg *Background) screenSize() int { return int((bg.Control >> 14) & 0x3) }

// Display owns every display-pipeline register plus references into the
// memory planes it reads tile/palette/OAM data from.
type Display struct {
	IRQ *irq.Controller

	VRAM    []byte
	Palette []byte
	OAM     []byte

	DISPCNT  uint16
	DISPSTAT uint16
	VCOUNT   uint16

	BG [4]Background

	WIN0H, WIN1H uint16 // X2(high)/X1(low)
	WIN0V, WIN1V uint16 // Y2(high)/Y1(low)
	WININ, WINOUT uint16
	MOSAIC       uint16

	BLDCNT uint16
	BLDALPHA uint16
	BLDY     uint16

	dotCounter int

	front, back [ScreenWidth * ScreenHeight]uint16
	frameReady  bool

	// NotifyHBlank/NotifyVBlank let the owning aggregate wire DMA's HBlank/
	// VBlank-triggered channels without this package importing dma.
	NotifyHBlank func()
	NotifyVBlank func()
}

// New builds a display with its memory planes wired in; call Step to drive
// the timing grid forward.
func New(vram, palette, oam []byte, controller *irq.Controller) *Display {
	return &Display{VRAM: vram, Palette: palette, OAM: oam, IRQ: controller}
}

func (d *Display) mode() int { return int(d.DISPCNT & dispcntModeMask) }

// Step advances the dot counter by cycles system cycles, firing HBlank/
// VBlank entry events, rendering each visible scanline exactly once at its
// HBlank boundary, and swapping the framebuffer on entering VBlank (line 160).
func (d *Display) Step(cycles int) {
	for cycles > 0 {
		remaining := cyclesPerScanline - d.dotCounter
		step := cycles
		if step > remaining {
			step = remaining
		}
		d.dotCounter += step
		cycles -= step

		if d.dotCounter >= dotsPerScanline*cyclesPerDot {
			d.dotCounter = 0
			d.endScanline()
		}
	}
}

func (d *Display) endScanline() {
	line := int(d.VCOUNT)

	if line < visibleScanlines {
		d.renderScanline(line)
	}

	d.VCOUNT++
	if int(d.VCOUNT) == totalScanlines {
		d.VCOUNT = 0
	}

	switch {
	case int(d.VCOUNT) == visibleScanlines:
		d.DISPSTAT |= 1 // VBlank flag
		d.front, d.back = d.back, d.front
		d.frameReady = true
		if d.DISPSTAT&(1<<3) != 0 {
			d.IRQ.Request(0)
		}
		if d.NotifyVBlank != nil {
			d.NotifyVBlank()
		}
	case d.VCOUNT == 0:
		d.DISPSTAT &^= 1
		for bgi := range d.BG {
			d.BG[bgi].internalX = d.BG[bgi].RefX
			d.BG[bgi].internalY = d.BG[bgi].RefY
		}
	}

	d.DISPSTAT |= 1 << 1
	if d.DISPSTAT&(1<<4) != 0 {
		d.IRQ.Request(1)
	}
	if d.NotifyHBlank != nil {
		d.NotifyHBlank()
	}
	d.DISPSTAT &^= 1 << 1

	vcountTarget := uint16(d.DISPSTAT >> 8)
	matched := d.VCOUNT == vcountTarget
	if matched {
		d.DISPSTAT |= 1 << 2
		if d.DISPSTAT&(1<<5) != 0 {
			d.IRQ.Request(2)
		}
	} else {
		d.DISPSTAT &^= 1 << 2
	}
}

// Frame returns the most recently completed frame's pixel buffer, BGR555
// packed one uint16 per pixel, row-major.
func (d *Display) Frame() []uint16 { return d.front[:] }

// FrameReady reports (and clears) whether a new frame has completed since
// the last call.
func (d *Display) FrameReady() bool {
	r := d.frameReady
	d.frameReady = false
	return r
}
