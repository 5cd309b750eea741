package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRAMReadWriteWraps(t *testing.T) {
	s := NewSRAM()
	s.Write(0, 0xAB)
	s.Write(32*1024, 0xCD) // wraps back to offset 0
	assert.Equal(t, uint8(0xCD), s.Read(0))
}

func TestSRAMExportImportRoundTrip(t *testing.T) {
	s := NewSRAM()
	s.Write(10, 0x77)

	other := NewSRAM()
	require.NoError(t, other.Import(s.Export()))
	assert.Equal(t, uint8(0x77), other.Read(10))
}

func TestFlashUnlockSequenceReadsManufacturerID(t *testing.T) {
	f := NewFlash64()

	f.Write(0x5555, 0xAA)
	f.Write(0x2AAA, 0x55)
	f.Write(0x5555, 0x90) // enter ID mode
	assert.NotEqual(t, uint8(0xFF), f.Read(0))

	f.Write(0x5555, 0xAA)
	f.Write(0x2AAA, 0x55)
	f.Write(0x5555, 0xF0) // exit ID mode
}

func TestFlashChipEraseSetsAllBytesFF(t *testing.T) {
	f := NewFlash64()
	f.Write(0x5555, 0xAA)
	f.Write(0x2AAA, 0x55)
	f.Write(0x5555, 0x80)
	f.Write(0x5555, 0xAA)
	f.Write(0x2AAA, 0x55)
	f.Write(0x5555, 0x10)

	for i := 0; i < len(f.data); i += 4096 {
		assert.Equal(t, uint8(0xFF), f.data[i])
	}
}

func TestDetectSaveDeviceFromIDStrings(t *testing.T) {
	cases := []struct {
		id   string
		kind Kind
	}{
		{"EEPROM_V120", KindEEPROM},
		{"SRAM_V110", KindSRAM},
		{"FLASH512_V130", KindFlash512K},
		{"FLASH1M_V103", KindFlash1M},
	}

	for _, tc := range cases {
		rom := make([]byte, 0x1000)
		copy(rom[0x100:], []byte(tc.id))

		device, _, err := DetectSaveDevice(rom, nil)
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, tc.kind, device.Kind())
	}
}

func TestDetectSaveDeviceAttachesRTCForSIIRTC(t *testing.T) {
	rom := make([]byte, 0x1000)
	copy(rom[0x100:], []byte("SRAM_V110"))
	copy(rom[0x200:], []byte("SIIRTC_V100"))

	_, gpio, err := DetectSaveDevice(rom, nil)
	require.NoError(t, err)
	require.NotNil(t, gpio)
	assert.NotNil(t, gpio.rtc)
}

func TestSaveFileRoundTripsMultipleDevices(t *testing.T) {
	sram := NewSRAM()
	sram.Write(5, 0x99)
	rtc := NewRTC()

	data, err := Save([]SaveDevice{sram, rtc})
	require.NoError(t, err)

	blocks, err := Load(data)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, KindSRAM, blocks[0].Kind)
	assert.Equal(t, KindRTC, blocks[1].Kind)

	restored := NewSRAM()
	require.NoError(t, restored.Import(blocks[0].Data))
	assert.Equal(t, uint8(0x99), restored.Read(5))
}

func TestSaveFileLoadRejectsBadMagic(t *testing.T) {
	_, err := Load([]byte("not a save file at all"))
	assert.Error(t, err)
}

func TestSaveFileLoadRejectsCorruptedChecksum(t *testing.T) {
	data, err := Save([]SaveDevice{NewSRAM()})
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = Load(corrupted)
	assert.ErrorIs(t, err, ErrChecksum)
}
