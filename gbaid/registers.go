package gbaid

// registers.go binds every memory-mapped I/O register (spec.md section 6)
// to the owning subsystem's state through the ioreg.Plane slot mechanism.
// Registers that are themselves the live state (DISPCNT, a background's
// scroll offsets) bind straight to that subsystem's exported field; registers
// whose write has a side effect (DMA/timer enable, sound channel trigger)
// bind a shadow uint16/uint32 and drive the subsystem's Configure/Write*
// method from an OnPostWrite hook, the same "commit, then react" shape the
// teacher's mem.go special-cases for DIV/TIMA/DMA/P1 - just generalized
// across the GBA's much larger register file instead of four one-off ifs.

import (
	"github.com/haltcnt/gbaid/addr"
	"github.com/haltcnt/gbaid/dma"
	"github.com/haltcnt/gbaid/ioreg"
)

type int16Storage struct{ p *int16 }

func (s int16Storage) Get() uint32  { return uint32(uint16(*s.p)) }
func (s int16Storage) Set(v uint32) { *s.p = int16(uint16(v)) }

type int32Storage struct{ p *int32 }

func (s int32Storage) Get() uint32  { return uint32(*s.p) }
func (s int32Storage) Set(v uint32) { *s.p = int32(v) }

type readOnlyFunc struct{ get func() uint32 }

func (s readOnlyFunc) Get() uint32  { return s.get() }
func (s readOnlyFunc) Set(uint32)   {}

type writeOnlyFunc struct{ set func(uint32) }

func (s writeOnlyFunc) Get() uint32 { return 0 }
func (s writeOnlyFunc) Set(v uint32) { s.set(v) }

func bind16(p *ioreg.Plane, offset uint32, storage ioreg.Storage, readable, writable bool) {
	word := offset &^ 3
	shift := (offset % 4) * 8
	p.Bind(word, ioreg.Slot{Storage: storage, Mask: 0xFFFF, Shift: shift, Readable: readable, Writable: writable})
}

func bind32(p *ioreg.Plane, offset uint32, storage ioreg.Storage, readable, writable bool) {
	p.Bind(offset&^3, ioreg.Slot{Storage: storage, Mask: 0xFFFFFFFF, Shift: 0, Readable: readable, Writable: writable})
}

func bindPostWrite16(p *ioreg.Plane, offset uint32, shadow *uint16, onCommit func(new uint16)) {
	word := offset &^ 3
	shift := (offset % 4) * 8
	p.Bind(word, ioreg.Slot{
		Storage: ioreg.U16(shadow), Mask: 0xFFFF, Shift: shift, Readable: true, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { onCommit(uint16(newv >> shift)) },
	})
}

func (s *System) wireDisplay(p *ioreg.Plane) {
	d := s.Display
	bind16(p, addr.DISPCNT, ioreg.U16(&d.DISPCNT), true, true)
	bind16(p, addr.DISPSTAT, ioreg.U16(&d.DISPSTAT), true, true)
	bind16(p, addr.VCOUNT, ioreg.U16(&d.VCOUNT), true, false)

	bgCnt := []uint32{addr.BG0CNT, addr.BG1CNT, addr.BG2CNT, addr.BG3CNT}
	bgH := []uint32{addr.BG0HOFS, addr.BG1HOFS, addr.BG2HOFS, addr.BG3HOFS}
	bgV := []uint32{addr.BG0VOFS, addr.BG1VOFS, addr.BG2VOFS, addr.BG3VOFS}
	for i := 0; i < 4; i++ {
		bind16(p, bgCnt[i], ioreg.U16(&d.BG[i].Control), true, true)
		bind16(p, bgH[i], ioreg.U16(&d.BG[i].HOffset), false, true)
		bind16(p, bgV[i], ioreg.U16(&d.BG[i].VOffset), false, true)
	}

	affine := []struct {
		pa, pb, pc, pd *int16
		x, y           *int32
		base           uint32
	}{
		{&d.BG[2].PA, &d.BG[2].PB, &d.BG[2].PC, &d.BG[2].PD, &d.BG[2].RefX, &d.BG[2].RefY, addr.BG2PA},
		{&d.BG[3].PA, &d.BG[3].PB, &d.BG[3].PC, &d.BG[3].PD, &d.BG[3].RefX, &d.BG[3].RefY, addr.BG3PA},
	}
	for _, a := range affine {
		bind16(p, a.base+0, int16Storage{a.pa}, false, true)
		bind16(p, a.base+2, int16Storage{a.pb}, false, true)
		bind16(p, a.base+4, int16Storage{a.pc}, false, true)
		bind16(p, a.base+6, int16Storage{a.pd}, false, true)
	}
	bind32(p, addr.BG2X, int32Storage{&d.BG[2].RefX}, false, true)
	bind32(p, addr.BG2Y, int32Storage{&d.BG[2].RefY}, false, true)
	bind32(p, addr.BG3X, int32Storage{&d.BG[3].RefX}, false, true)
	bind32(p, addr.BG3Y, int32Storage{&d.BG[3].RefY}, false, true)

	bind16(p, addr.WIN0H, ioreg.U16(&d.WIN0H), false, true)
	bind16(p, addr.WIN1H, ioreg.U16(&d.WIN1H), false, true)
	bind16(p, addr.WIN0V, ioreg.U16(&d.WIN0V), false, true)
	bind16(p, addr.WIN1V, ioreg.U16(&d.WIN1V), false, true)
	bind16(p, addr.WININ, ioreg.U16(&d.WININ), true, true)
	bind16(p, addr.WINOUT, ioreg.U16(&d.WINOUT), true, true)
	bind16(p, addr.MOSAIC, ioreg.U16(&d.MOSAIC), false, true)
	bind16(p, addr.BLDCNT, ioreg.U16(&d.BLDCNT), true, true)
	bind16(p, addr.BLDALPHA, ioreg.U16(&d.BLDALPHA), true, true)
	bind16(p, addr.BLDY, ioreg.U16(&d.BLDY), false, true)
}

// dmaShadow holds the raw register bytes each DMA channel's SAD/DAD/CNT_L
// need latched before CNT_H's enable bit triggers Configure.
type dmaShadow struct {
	src, dst   uint32
	count      uint16
}

func (s *System) wireDMA(p *ioreg.Plane) {
	bases := [4]uint32{addr.DMA0SAD, addr.DMA1SAD, addr.DMA2SAD, addr.DMA3SAD}
	s.dmaShadows = make([]*dmaShadow, 4)
	for i := 0; i < 4; i++ {
		sh := &dmaShadow{}
		s.dmaShadows[i] = sh
		base := bases[i]
		bind32(p, base+0, writeOnlyShadow32(&sh.src), false, true)
		bind32(p, base+4, writeOnlyShadow32(&sh.dst), false, true)
		bindPostWrite16(p, base+8, &sh.count, func(uint16) {})

		idx := i
		bindPostWrite16(p, base+10, new(uint16), func(ctrl uint16) {
			ch := s.DMA.Channels[idx]
			dstCtl := dma.AddressControl((ctrl >> 5) & 0x3)
			srcCtl := dma.AddressControl((ctrl >> 7) & 0x3)
			repeat := ctrl&(1<<9) != 0
			wordSize32 := ctrl&(1<<10) != 0
			timing := [4]dma.Timing{dma.Immediate, dma.VBlank, dma.HBlank, dma.SoundFIFO}[(ctrl>>12)&0x3]
			irqEnable := ctrl&(1<<14) != 0
			enable := ctrl&(1<<15) != 0
			if !enable {
				ch.Disable()
				return
			}
			if idx == 3 && timing == dma.SoundFIFO {
				// channel 3's special timing is video capture, which leaves the channel disabled
				ch.Disable()
				return
			}
			sh := s.dmaShadows[idx]
			ch.Configure(sh.src, sh.dst, uint32(sh.count), dstCtl, srcCtl, repeat, wordSize32, timing, irqEnable)
			s.DMA.RunImmediate()
		})
	}
}

func writeOnlyShadow32(p *uint32) ioreg.Storage { return u32Ptr{p} }

type u32Ptr struct{ p *uint32 }

func (s u32Ptr) Get() uint32  { return *s.p }
func (s u32Ptr) Set(v uint32) { *s.p = v }

func (s *System) wireTimers(p *ioreg.Plane) {
	bases := [4]uint32{addr.TM0CNT_L, addr.TM1CNT_L, addr.TM2CNT_L, addr.TM3CNT_L}
	reloads := make([]*uint16, 4)
	for i := 0; i < 4; i++ {
		reload := new(uint16)
		reloads[i] = reload
		base := bases[i]
		bind16(p, base, readOnlyWrite16{get: s.Timers.Timers[i].Counter, set: func(v uint16) { *reload = v }}, true, true)

		idx := i
		bindPostWrite16(p, base+2, new(uint16), func(ctrl uint16) {
			t := s.Timers.Timers[idx]
			prescaler := uint8(ctrl & 0x3)
			cascade := ctrl&(1<<2) != 0
			irqEnable := ctrl&(1<<6) != 0
			enable := ctrl&(1<<7) != 0
			t.Configure(*reloads[idx], prescaler, cascade, irqEnable, enable)
		})
	}
}

func (s *System) wireKeypad(p *ioreg.Plane) {
	k := s.Keypad
	bind16(p, addr.KEYINPUT, readOnlyFunc{func() uint32 { return uint32(k.KeyInput()) }}, true, false)
	bindPostWrite16(p, addr.KEYCNT, new(uint16), func(v uint16) { k.SetKeyCnt(v) })
}

func (s *System) wireInterrupts(p *ioreg.Plane) {
	c := s.IRQ
	p.Bind(addr.IE&^3, ioreg.Slot{
		Storage: readOnlyFunc{func() uint32 { return uint32(c.IE()) }}, Mask: 0xFFFF, Shift: (addr.IE % 4) * 8, Readable: true, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { c.SetIE(uint16(newv >> ((addr.IE % 4) * 8))) },
	})
	p.Bind(addr.IF&^3, ioreg.Slot{
		Storage: readOnlyFunc{func() uint32 { return uint32(c.IF()) }}, Mask: 0xFFFF, Shift: (addr.IF % 4) * 8, Readable: true, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { c.AckIF(uint16(newv >> ((addr.IF % 4) * 8))) },
	})
	p.Bind(addr.IME&^3, ioreg.Slot{
		Storage: readOnlyFunc{func() uint32 {
			if c.IME() {
				return 1
			}
			return 0
		}}, Mask: 1, Shift: (addr.IME % 4) * 8, Readable: true, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { c.SetIME(newv != 0) },
	})
	p.Bind(addr.HALTCNT&^3, ioreg.Slot{
		Storage: nil, Mask: 0xFF, Shift: (addr.HALTCNT % 4) * 8, Readable: false, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { c.SetHalt() },
	})
}

func (s *System) wireSound(p *ioreg.Plane) {
	a := s.APU
	reg := func(offset uint32, onCommit func(uint16)) { bindPostWrite16(p, offset, new(uint16), onCommit) }

	reg(addr.SOUND1CNT_L, func(v uint16) { a.WriteSquareSweep(0, v) })
	reg(addr.SOUND1CNT_H, func(v uint16) { a.WriteSquareDutyEnvelope(0, v) })
	reg(addr.SOUND1CNT_X, func(v uint16) { a.WriteSquareFreqControl(0, v) })
	reg(addr.SOUND2CNT_L, func(v uint16) { a.WriteSquareDutyEnvelope(1, v) })
	reg(addr.SOUND2CNT_H, func(v uint16) { a.WriteSquareFreqControl(1, v) })
	reg(addr.SOUND3CNT_L, func(v uint16) { a.WriteWaveControl(v) })
	reg(addr.SOUND3CNT_H, func(v uint16) { a.WriteWaveLengthVolume(v) })
	reg(addr.SOUND3CNT_X, func(v uint16) { a.WriteWaveFreqControl(v) })
	reg(addr.SOUND4CNT_L, func(v uint16) { a.WriteNoiseLengthEnvelope(v) })
	reg(addr.SOUND4CNT_H, func(v uint16) { a.WriteNoiseFreqControl(v) })
	reg(addr.SOUNDCNT_L, func(v uint16) { a.WriteSoundCntL(v) })
	reg(addr.SOUNDCNT_H, func(v uint16) { a.WriteSoundCntH(v) })

	bind16(p, addr.SOUNDCNT_X, readOnlyWrite16{get: a.ReadSoundCntX, set: a.WriteSoundCntX}, true, true)

	p.Bind(addr.FIFO_A&^3, ioreg.Slot{
		Mask: 0xFFFFFFFF, Shift: 0, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { a.WriteFIFOA(newv) },
	})
	p.Bind(addr.FIFO_B&^3, ioreg.Slot{
		Mask: 0xFFFFFFFF, Shift: 0, Writable: true,
		OnPostWrite: func(mask, old, newv uint32) { a.WriteFIFOB(newv) },
	})

	for i := 0; i < 16; i++ {
		off := i
		p.Bind((addr.WAVE_RAM0_L+uint32(off))&^3, ioreg.Slot{
			Storage: byteFunc{
				get: func() uint32 { return uint32(a.ReadWaveRAM(off)) },
				set: func(v uint32) { a.WriteWaveRAM(off, uint8(v)) },
			},
			Mask: 0xFF, Shift: (uint32(off) % 4) * 8, Readable: true, Writable: true,
		})
	}
}

type readOnlyWrite16 struct {
	get func() uint16
	set func(uint16)
}

func (s readOnlyWrite16) Get() uint32  { return uint32(s.get()) }
func (s readOnlyWrite16) Set(v uint32) { s.set(uint16(v)) }

type byteFunc struct {
	get func() uint32
	set func(uint32)
}

func (s byteFunc) Get() uint32  { return s.get() }
func (s byteFunc) Set(v uint32) { s.set(v) }
