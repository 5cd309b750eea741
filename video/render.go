package video

// render.go implements the per-scanline composition of backgrounds, the OBJ
// layer and alpha blending (spec.md section 4.J); the window registers are
// not consulted, and alpha blending is the only color effect. It intentionally
// favors a clear, per-pixel compositing model (collect every layer's
// candidate color for a pixel, then pick/blend by priority) over a
// hardware-accurate multi-stage pixel pipeline, the same simplification
// trade the teacher's video/ppu.go makes for the Game Boy's own simpler
// BG/OBJ priority rules.

type layerPixel struct {
	color      uint16
	priority   int
	fromObj    bool
	semiTransp bool
	valid      bool
}

func (d *Display) renderScanline(line int) {
	if d.DISPCNT&dispcntForceBlank != 0 {
		for x := 0; x < ScreenWidth; x++ {
			d.back[line*ScreenWidth+x] = 0x7FFF
		}
		return
	}

	mode := d.mode()
	obj := d.renderObjLine(line)

	for x := 0; x < ScreenWidth; x++ {
		var top, second layerPixel

		consider := func(p layerPixel) {
			if !p.valid {
				return
			}
			if !top.valid || p.priority < top.priority || (p.priority == top.priority && p.fromObj) {
				second = top
				top = p
			} else if !second.valid || p.priority < second.priority {
				second = p
			}
		}

		switch mode {
		case 0:
			for i := 0; i < 4; i++ {
				consider(d.textBGPixel(i, x, line))
			}
		case 1:
			consider(d.textBGPixel(0, x, line))
			consider(d.textBGPixel(1, x, line))
			consider(d.affineBGPixel(2, x))
		case 2:
			consider(d.affineBGPixel(2, x))
			consider(d.affineBGPixel(3, x))
		case 3:
			consider(d.bitmapMode3Pixel(x, line))
		case 4:
			consider(d.bitmapMode4Pixel(x, line))
		case 5:
			consider(d.bitmapMode5Pixel(x, line))
		}

		if d.DISPCNT&dispcntObjEnable != 0 {
			consider(obj[x])
		}

		color := uint16(0x0000) // backdrop: palette index 0 of BG palette
		if d.mode() < 3 {
			color = d.paletteColor(0, 0)
		}
		if top.valid {
			color = top.color
			if d.blendApplies(top, second) {
				color = d.blend(top, second)
			}
		}
		d.back[line*ScreenWidth+x] = color
	}

	for i := range d.BG {
		d.BG[i].internalX += int32(d.BG[i].PB)
		d.BG[i].internalY += int32(d.BG[i].PD)
	}
}

func (d *Display) paletteColor(bank, index int) uint16 {
	off := (bank*16 + index) * 2
	if off+1 >= len(d.Palette) {
		return 0
	}
	return uint16(d.Palette[off]) | uint16(d.Palette[off+1])<<8
}

func (d *Display) paletteColor256(index int) uint16 {
	off := index * 2
	if off+1 >= len(d.Palette) {
		return 0
	}
	return uint16(d.Palette[off]) | uint16(d.Palette[off+1])<<8
}

// textBGPixel samples a tile-mode background at screen column x, line y.
func (d *Display) textBGPixel(bgIndex, x, line int) layerPixel {
	if d.DISPCNT&(uint16(dispcntBG0Enable)<<uint(bgIndex)) == 0 {
		return layerPixel{}
	}
	bg := &d.BG[bgIndex]

	scrollX := int(bg.HOffset)
	scrollY := int(bg.VOffset)
	mapX := x + scrollX
	mapY := line + scrollY

	sizeX, sizeY := textBGSize(bg.screenSize())
	blockX := (mapX / 256) % (sizeX / 256)
	blockY := (mapY / 256) % (sizeY / 256)
	localX := mapX % 256
	localY := mapY % 256

	screenBlock := bg.screenBase() + blockY*(sizeX/256) + blockX
	mapBase := screenBlock * 0x800
	tileX := localX / 8
	tileY := localY / 8
	entryOffset := mapBase + (tileY*32+tileX)*2
	if entryOffset+1 >= len(d.VRAM) {
		return layerPixel{}
	}
	entry := uint16(d.VRAM[entryOffset]) | uint16(d.VRAM[entryOffset+1])<<8
	tileNum := int(entry & 0x3FF)
	hFlip := entry&(1<<10) != 0
	vFlip := entry&(1<<11) != 0
	palBank := int((entry >> 12) & 0xF)

	px := localX % 8
	py := localY % 8
	if hFlip {
		px = 7 - px
	}
	if vFlip {
		py = 7 - py
	}

	charBase := bg.charBase() * 0x4000
	if bg.is256Color() {
		tileBytes := 64
		tileOffset := charBase + tileNum*tileBytes + py*8 + px
		if tileOffset >= len(d.VRAM) {
			return layerPixel{}
		}
		index := int(d.VRAM[tileOffset])
		if index == 0 {
			return layerPixel{}
		}
		return layerPixel{color: d.paletteColor256(index), priority: bg.priority(), valid: true}
	}
	tileBytes := 32
	tileOffset := charBase + tileNum*tileBytes + py*4 + px/2
	if tileOffset >= len(d.VRAM) {
		return layerPixel{}
	}
	b := d.VRAM[tileOffset]
	var index int
	if px%2 == 0 {
		index = int(b & 0xF)
	} else {
		index = int(b >> 4)
	}
	if index == 0 {
		return layerPixel{}
	}
	return layerPixel{color: d.paletteColor(palBank, index), priority: bg.priority(), valid: true}
}

func textBGSize(sizeSel int) (w, h int) {
	switch sizeSel {
	case 0:
		return 256, 256
	case 1:
		return 512, 256
	case 2:
		return 256, 512
	default:
		return 512, 512
	}
}

// affineBGPixel samples an affine-transformed background using its
// accumulating internal reference point, advanced one step per scanline by
// PB/PD at the end of renderScanline.
func (d *Display) affineBGPixel(bgIndex, x int) layerPixel {
	if d.DISPCNT&(uint16(dispcntBG0Enable)<<uint(bgIndex)) == 0 {
		return layerPixel{}
	}
	bg := &d.BG[bgIndex]

	size := affineBGSize(bg.screenSize())
	fx := bg.internalX + int32(bg.PA)*int32(x)
	fy := bg.internalY + int32(bg.PC)*int32(x)
	px := int(fx >> 8)
	py := int(fy >> 8)

	if px < 0 || py < 0 || px >= size || py >= size {
		if !bg.wraparound() {
			return layerPixel{}
		}
		px = ((px % size) + size) % size
		py = ((py % size) + size) % size
	}

	tilesPerSide := size / 8
	mapBase := bg.screenBase() * 0x800
	tileX := px / 8
	tileY := py / 8
	entryOffset := mapBase + tileY*tilesPerSide + tileX
	if entryOffset >= len(d.VRAM) {
		return layerPixel{}
	}
	tileNum := int(d.VRAM[entryOffset])

	charBase := bg.charBase() * 0x4000
	localX := px % 8
	localY := py % 8
	tileOffset := charBase + tileNum*64 + localY*8 + localX
	if tileOffset >= len(d.VRAM) {
		return layerPixel{}
	}
	index := int(d.VRAM[tileOffset])
	if index == 0 {
		return layerPixel{}
	}
	return layerPixel{color: d.paletteColor256(index), priority: bg.priority(), valid: true}
}

func affineBGSize(sizeSel int) int {
	switch sizeSel {
	case 0:
		return 128
	case 1:
		return 256
	case 2:
		return 512
	default:
		return 1024
	}
}

func (d *Display) bitmapMode3Pixel(x, line int) layerPixel {
	off := (line*ScreenWidth + x) * 2
	if off+1 >= len(d.VRAM) {
		return layerPixel{}
	}
	color := uint16(d.VRAM[off]) | uint16(d.VRAM[off+1])<<8
	return layerPixel{color: color, priority: d.BG[2].priority(), valid: true}
}

func (d *Display) bitmapMode4Pixel(x, line int) layerPixel {
	frameOffset := 0
	if d.DISPCNT&dispcntFrameSel != 0 {
		frameOffset = 0xA000
	}
	off := frameOffset + line*ScreenWidth + x
	if off >= len(d.VRAM) {
		return layerPixel{}
	}
	index := int(d.VRAM[off])
	if index == 0 {
		return layerPixel{}
	}
	return layerPixel{color: d.paletteColor256(index), priority: d.BG[2].priority(), valid: true}
}

func (d *Display) bitmapMode5Pixel(x, line int) layerPixel {
	const w, h = 160, 128
	if x >= w || line >= h {
		return layerPixel{}
	}
	frameOffset := 0
	if d.DISPCNT&dispcntFrameSel != 0 {
		frameOffset = 0xA000
	}
	off := frameOffset + (line*w+x)*2
	if off+1 >= len(d.VRAM) {
		return layerPixel{}
	}
	color := uint16(d.VRAM[off]) | uint16(d.VRAM[off+1])<<8
	return layerPixel{color: color, priority: d.BG[2].priority(), valid: true}
}

// blendApplies reports whether BLDCNT's alpha-blend mode (01) is configured
// with top as a 1st-target and second as a 2nd-target layer.
func (d *Display) blendApplies(top, second layerPixel) bool {
	mode := (d.BLDCNT >> 6) & 0x3
	if mode != 1 || !second.valid {
		return false
	}
	topBit := uint16(1) << layerBitIndex(top)
	secondBit := uint16(1) << layerBitIndex(second)
	firstTargets := d.BLDCNT & 0x3F
	secondTargets := (d.BLDCNT >> 8) & 0x3F
	return firstTargets&topBit != 0 && secondTargets&secondBit != 0
}

func layerBitIndex(p layerPixel) int {
	if p.fromObj {
		return 4
	}
	return p.priority & 0x3
}

func (d *Display) blend(top, second layerPixel) uint16 {
	eva := int(d.BLDALPHA & 0x1F)
	evb := int((d.BLDALPHA >> 8) & 0x1F)
	if eva > 16 {
		eva = 16
	}
	if evb > 16 {
		evb = 16
	}
	blendChannel := func(a, b int) uint16 {
		v := (a*eva + b*evb) / 16
		if v > 31 {
			v = 31
		}
		return uint16(v)
	}
	tr, tg, tb := unpack555(top.color)
	sr, sg, sb := unpack555(second.color)
	r := blendChannel(int(tr), int(sr))
	g := blendChannel(int(tg), int(sg))
	b := blendChannel(int(tb), int(sb))
	return pack555(r, g, b)
}

func unpack555(c uint16) (r, g, b uint16) {
	return c & 0x1F, (c >> 5) & 0x1F, (c >> 10) & 0x1F
}

func pack555(r, g, b uint16) uint16 {
	return (r & 0x1F) | (g&0x1F)<<5 | (b&0x1F)<<10
}
