// Package memory implements the typed memory block primitive (block.go)
// and the unified address bus (bus.go): address decoding across BIOS, the
// two WRAMs, the I/O plane, palette, VRAM, OAM and the cartridge, per
// spec.md section 4.D. Ground: the top-byte demux in the teacher's
// memory/mem.go (Read/Write switching on regionMap[address>>8]),
// generalized here to a top-nibble demux over the larger GBA map.
package memory

import (
	"github.com/haltcnt/gbaid/ioreg"
)

// Cartridge is the subset of cart.Cartridge the bus needs: ROM reads (with
// mirroring up to 0x0D000000) and save-device reads/writes at 0x0E000000.
type Cartridge interface {
	ReadROM8(offset uint32) uint8
	ReadROM16(offset uint32) uint16
	ReadROM32(offset uint32) uint32
	ReadSave(address uint32) uint8
	WriteSave(address uint32, value uint8)
	// EEPROMWindow/ReadEEPROMBit/WriteEEPROMBit handle the serial EEPROM window, which on
	// wide-address cartridges overlaps the top of the ROM mirror region.
	EEPROMWindow(address uint32) (isEEPROM bool)
	ReadEEPROMBit(address uint32) uint16
	WriteEEPROMBit(address uint32, value uint16)
}

// Bus is the unified GBA address space.
type Bus struct {
	BIOS    *Block
	EWRAM   *Block
	IWRAM   *Block
	Palette *Block
	VRAM    *Block
	OAM     *Block
	IO      *ioreg.Plane
	Cart    Cartridge

	// UnusedRead supplies the value returned for reads that land outside
	// any valid region, or for BIOS reads while the CPU's PC is not inside
	// the BIOS (spec.md section 4.E/F and 7). Typically the CPU's latched
	// prefetch word.
	UnusedRead func() uint32

	// PCInBIOS reports whether the CPU program counter currently points
	// into the BIOS region; used to guard BIOS reads per spec.md section 7.
	PCInBIOS func() bool

	// DisplayMode returns the current DISPCNT mode (0-5), used to decide
	// the VRAM OBJ/BG boundary for byte-write duplication.
	DisplayMode func() int
}

// NewBus constructs a bus with freshly allocated RAM/VRAM/OAM/palette
// blocks. BIOS and the cartridge are supplied separately since they come
// from host-provided files.
func NewBus(bios []byte, cart Cartridge) *Bus {
	return &Bus{
		BIOS:    NewBlockFrom(bios, true),
		EWRAM:   NewBlock(256 * 1024),
		IWRAM:   NewBlock(32 * 1024),
		Palette: NewBlock(1024),
		VRAM:    NewBlock(96 * 1024),
		OAM:     NewBlock(1024),
		IO:      ioreg.NewPlane(),
		Cart:    cart,
	}
}

func (b *Bus) unused() uint32 {
	if b.UnusedRead != nil {
		return b.UnusedRead()
	}
	return 0
}

// vramOffset maps a VRAM address into the 96 KiB block, applying the
// lower-64KiB/upper-32KiB mirroring described in spec.md section 4.D.
func vramOffset(offset uint32) uint32 {
	offset &= 0x1FFFF // 128 KiB window
	if offset >= 0x18000 {
		offset -= 0x8000 // 0x18000-0x1FFFF mirrors the 32KiB OBJ region at 0x10000-0x17FFF
	}
	return offset
}

// Read8 reads one byte from the bus.
func (b *Bus) Read8(address uint32) uint8 {
	switch address >> 24 {
	case 0x0:
		if b.PCInBIOS == nil || b.PCInBIOS() {
			return b.BIOS.Read8(address)
		}
		return uint8(b.unused())
	case 0x2:
		return b.EWRAM.Read8(address - 0x02000000)
	case 0x3:
		return b.IWRAM.Read8((address - 0x03000000) % 0x8000)
	case 0x4:
		if address <= 0x040003FE {
			return uint8(b.IO.Read(address-0x04000000, 1, true))
		}
		return uint8(b.unused())
	case 0x5:
		return b.Palette.Read8((address - 0x05000000) % 0x400)
	case 0x6:
		return b.VRAM.Read8(vramOffset(address - 0x06000000))
	case 0x7:
		return b.OAM.Read8((address - 0x07000000) % 0x400)
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		return b.Cart.ReadROM8((address - 0x08000000) % 0x02000000)
	case 0xE, 0xF:
		return b.Cart.ReadSave(address)
	default:
		return uint8(b.unused())
	}
}

// Read16 reads a 16-bit little-endian value, aligned down to even.
func (b *Bus) Read16(address uint32) uint16 {
	address &^= 1
	switch address >> 24 {
	case 0x0:
		if b.PCInBIOS == nil || b.PCInBIOS() {
			return b.BIOS.Read16(address)
		}
		return uint16(b.unused())
	case 0x2:
		return b.EWRAM.Read16(address - 0x02000000)
	case 0x3:
		return b.IWRAM.Read16((address - 0x03000000) % 0x8000)
	case 0x4:
		if address <= 0x040003FE {
			return uint16(b.IO.Read(address-0x04000000, 2, true))
		}
		return uint16(b.unused())
	case 0x5:
		return b.Palette.Read16((address - 0x05000000) % 0x400)
	case 0x6:
		return b.VRAM.Read16(vramOffset(address - 0x06000000))
	case 0x7:
		return b.OAM.Read16((address - 0x07000000) % 0x400)
	case 0x8, 0x9, 0xA, 0xB, 0xC:
		return b.Cart.ReadROM16((address - 0x08000000) % 0x02000000)
	case 0xD:
		if b.Cart.EEPROMWindow(address) {
			return b.Cart.ReadEEPROMBit(address)
		}
		return b.Cart.ReadROM16((address - 0x08000000) % 0x02000000)
	default:
		return uint16(b.unused())
	}
}

// Read32 reads a 32-bit little-endian value, aligned down to a multiple of 4,
// then rotates the result right by (addr & 3) * 8 to emulate the GBA bus's
// misaligned-read rotation (spec.md section 4.D).
func (b *Bus) Read32(address uint32) uint32 {
	misalign := (address & 3) * 8
	aligned := address &^ 3
	var v uint32
	switch aligned >> 24 {
	case 0x0:
		if b.PCInBIOS == nil || b.PCInBIOS() {
			v = b.BIOS.Read32(aligned)
		} else {
			v = b.unused()
		}
	case 0x2:
		v = b.EWRAM.Read32(aligned - 0x02000000)
	case 0x3:
		v = b.IWRAM.Read32((aligned - 0x03000000) % 0x8000)
	case 0x4:
		if aligned <= 0x040003FE {
			v = b.IO.Read(aligned-0x04000000, 4, true)
		} else {
			v = b.unused()
		}
	case 0x5:
		v = b.Palette.Read32((aligned - 0x05000000) % 0x400)
	case 0x6:
		v = b.VRAM.Read32(vramOffset(aligned - 0x06000000))
	case 0x7:
		v = b.OAM.Read32((aligned - 0x07000000) % 0x400)
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		v = b.Cart.ReadROM32((aligned - 0x08000000) % 0x02000000)
	default:
		v = b.unused()
	}
	if misalign == 0 {
		return v
	}
	return (v >> misalign) | (v << (32 - misalign))
}

func (b *Bus) objBoundary() uint32 {
	mode := 0
	if b.DisplayMode != nil {
		mode = b.DisplayMode()
	}
	if mode >= 3 {
		return 0x14000
	}
	return 0x10000
}

// Write8 writes one byte. VRAM/Palette duplicate the byte into both halves
// of the containing 16-bit word; OAM silently drops byte writes; these all
// match spec.md section 4.D.
func (b *Bus) Write8(address uint32, value uint8) {
	switch address >> 24 {
	case 0x2:
		b.EWRAM.Write8(address-0x02000000, value)
	case 0x3:
		b.IWRAM.Write8((address-0x03000000)%0x8000, value)
	case 0x4:
		if address <= 0x040003FE {
			b.IO.Write(address-0x04000000, 1, uint32(value), true)
		}
	case 0x5:
		off := (address - 0x05000000) % 0x400
		b.Palette.Write16(off, uint16(value)|uint16(value)<<8)
	case 0x6:
		off := vramOffset(address - 0x06000000)
		if off >= b.objBoundary() {
			return
		}
		b.VRAM.Write16(off, uint16(value)|uint16(value)<<8)
	case 0x7:
		// OAM rejects byte writes entirely.
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		// ROM: no-op, cartridges other than Flash decode writes elsewhere.
	case 0xE, 0xF:
		b.Cart.WriteSave(address, value)
	}
}

// Write16 writes a 16-bit little-endian value, aligned down to even.
func (b *Bus) Write16(address uint32, value uint16) {
	address &^= 1
	switch address >> 24 {
	case 0x2:
		b.EWRAM.Write16(address-0x02000000, value)
	case 0x3:
		b.IWRAM.Write16((address-0x03000000)%0x8000, value)
	case 0x4:
		if address <= 0x040003FE {
			b.IO.Write(address-0x04000000, 2, uint32(value), true)
		}
	case 0x5:
		b.Palette.Write16((address-0x05000000)%0x400, value)
	case 0x6:
		b.VRAM.Write16(vramOffset(address-0x06000000), value)
	case 0x7:
		b.OAM.Write16((address-0x07000000)%0x400, value)
	case 0x8, 0x9, 0xA, 0xB, 0xC:
		// ROM: no-op.
	case 0xD:
		if b.Cart.EEPROMWindow(address) {
			b.Cart.WriteEEPROMBit(address, value)
		}
	}
}

// Write32 writes a 32-bit little-endian value, aligned down to a multiple of 4.
func (b *Bus) Write32(address uint32, value uint32) {
	address &^= 3
	switch address >> 24 {
	case 0x2:
		b.EWRAM.Write32(address-0x02000000, value)
	case 0x3:
		b.IWRAM.Write32((address-0x03000000)%0x8000, value)
	case 0x4:
		if address <= 0x040003FE {
			b.IO.Write(address-0x04000000, 4, value, true)
		}
	case 0x5:
		b.Palette.Write32((address-0x05000000)%0x400, value)
	case 0x6:
		b.VRAM.Write32(vramOffset(address-0x06000000), value)
	case 0x7:
		b.OAM.Write32((address-0x07000000)%0x400, value)
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		// ROM: no-op.
	}
}
