package video

// obj.go renders the 128-entry OAM sprite layer for one scanline: regular
// (non-affine) and affine sprites, 4bpp/8bpp tile data, horizontal/vertical
// flip, and per-sprite priority. The mosaic and semi-transparency attributes
// are decoded but do not change the rendered pixels.

var objSizeTable = [4][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},   // shape 0: square
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},   // shape 1: horizontal
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},   // shape 2: vertical
	{{8, 8}, {8, 8}, {8, 8}, {8, 8}},         // shape 3: reserved
}

type objEntry struct {
	y, x           int
	affine         bool
	doubleSize     bool
	disabled       bool
	mode           int // 0=normal,1=semi-transparent,2=OBJ window
	mosaic         bool
	is256Color     bool
	shape, size    int
	tileNum        int
	priority       int
	palBank        int
	hFlip, vFlip   bool
	affineIndex    int
}

func parseOAMEntry(oam []byte, i int) objEntry {
	base := i * 8
	if base+7 >= len(oam) {
		return objEntry{disabled: true}
	}
	attr0 := uint16(oam[base]) | uint16(oam[base+1])<<8
	attr1 := uint16(oam[base+2]) | uint16(oam[base+3])<<8
	attr2 := uint16(oam[base+4]) | uint16(oam[base+5])<<8

	e := objEntry{}
	e.y = int(attr0 & 0xFF)
	e.affine = attr0&(1<<8) != 0
	e.doubleSize = e.affine && attr0&(1<<9) != 0
	e.disabled = !e.affine && attr0&(1<<9) != 0
	e.mode = int((attr0 >> 10) & 0x3)
	e.mosaic = attr0&(1<<12) != 0
	e.is256Color = attr0&(1<<13) != 0
	e.shape = int((attr0 >> 14) & 0x3)

	e.x = int(attr1 & 0x1FF)
	if e.x >= 240 {
		e.x -= 512
	}
	if e.affine {
		e.affineIndex = int((attr1 >> 9) & 0x1F)
	} else {
		e.hFlip = attr1&(1<<12) != 0
		e.vFlip = attr1&(1<<13) != 0
	}
	e.size = int((attr1 >> 14) & 0x3)

	e.tileNum = int(attr2 & 0x3FF)
	e.priority = int((attr2 >> 10) & 0x3)
	e.palBank = int((attr2 >> 12) & 0xF)
	return e
}

func (d *Display) affineParams(index int) (pa, pb, pc, pd int16) {
	base := index*32 + 6
	read := func(off int) int16 {
		if base+off+1 >= len(d.OAM) {
			return 0
		}
		return int16(uint16(d.OAM[base+off]) | uint16(d.OAM[base+off+1])<<8)
	}
	return read(0), read(8), read(16), read(24)
}

// renderObjLine returns one layerPixel per screen column for sprites
// visible on the given scanline, already priority/precedence resolved
// (earlier OAM index wins ties, matching real hardware).
func (d *Display) renderObjLine(line int) [ScreenWidth]layerPixel {
	var out [ScreenWidth]layerPixel
	obj1D := d.DISPCNT&dispcntObjMapping != 0
	tileBase := 0x10000

	for i := 0; i < 128; i++ {
		e := parseOAMEntry(d.OAM, i)
		if e.disabled {
			continue
		}
		w, h := objSizeTable[e.shape][e.size][0], objSizeTable[e.shape][e.size][1]
		boundW, boundH := w, h
		if e.doubleSize {
			boundW, boundH = w*2, h*2
		}
		if line < e.y || line >= e.y+boundH {
			continue
		}

		var pa, pb, pc, pd int16 = 256, 0, 0, 256
		if e.affine {
			pa, pb, pc, pd = d.affineParams(e.affineIndex)
		}

		rowInBound := line - e.y
		centerX := boundW / 2
		centerY := boundH / 2

		for col := 0; col < boundW; col++ {
			screenX := e.x + col
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			dx := col - centerX
			dy := rowInBound - centerY

			var srcX, srcY int
			if e.affine {
				tx := (int(pa)*dx + int(pb)*dy) >> 8
				ty := (int(pc)*dx + int(pd)*dy) >> 8
				srcX = tx + w/2
				srcY = ty + h/2
				if srcX < 0 || srcX >= w || srcY < 0 || srcY >= h {
					continue
				}
			} else {
				srcX = dx + w/2
				srcY = dy + h/2
				if e.hFlip {
					srcX = w - 1 - srcX
				}
				if e.vFlip {
					srcY = h - 1 - srcY
				}
			}

			index, color, ok := d.objPixel(e, srcX, srcY, obj1D, tileBase, w)
			if !ok || index == 0 {
				continue
			}
			p := layerPixel{color: color, priority: e.priority, fromObj: true, semiTransp: e.mode == 1, valid: true}
			if !out[screenX].valid || p.priority < out[screenX].priority {
				out[screenX] = p
			}
		}
	}
	return out
}

func (d *Display) objPixel(e objEntry, srcX, srcY int, obj1D bool, tileBase, widthPixels int) (index int, color uint16, ok bool) {
	tileX := srcX / 8
	tileY := srcY / 8
	localX := srcX % 8
	localY := srcY % 8

	tilesPerRow := widthPixels / 8
	var tileNum int
	if obj1D {
		tileNum = e.tileNum + tileY*tilesPerRow + tileX
	} else {
		stride := 32
		if e.is256Color {
			stride = 16
		}
		tileNum = e.tileNum + tileY*stride + tileX
	}

	if e.is256Color {
		off := tileBase + tileNum*64 + localY*8 + localX
		if off >= len(d.VRAM) {
			return 0, 0, false
		}
		index = int(d.VRAM[off])
		if index == 0 {
			return 0, 0, true
		}
		return index, d.paletteObjColor256(index), true
	}

	off := tileBase + tileNum*32 + localY*4 + localX/2
	if off >= len(d.VRAM) {
		return 0, 0, false
	}
	b := d.VRAM[off]
	if localX%2 == 0 {
		index = int(b & 0xF)
	} else {
		index = int(b >> 4)
	}
	if index == 0 {
		return 0, 0, true
	}
	return index, d.paletteObjColor(e.palBank, index), true
}

func (d *Display) paletteObjColor(bank, index int) uint16 {
	off := 0x200 + (bank*16+index)*2
	if off+1 >= len(d.Palette) {
		return 0
	}
	return uint16(d.Palette[off]) | uint16(d.Palette[off+1])<<8
}

func (d *Display) paletteObjColor256(index int) uint16 {
	off := 0x200 + index*2
	if off+1 >= len(d.Palette) {
		return 0
	}
	return uint16(d.Palette[off]) | uint16(d.Palette[off+1])<<8
}
