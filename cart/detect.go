package cart

import "bytes"

// detect.go scans a ROM image for the save-type ID strings real GBA
// cartridges embed (spec.md section 4.C), the same approach the BIOS and
// every GBA emulator use since the header carries no explicit save-type
// field. Ground: the teacher's cart_utils.go ROM-header scanning approach
// for Game Boy's cartridge-type byte, generalized from a single byte read
// to a substring search since the GBA convention is an ASCII ID string
// rather than a fixed header field.
var idStrings = []struct {
	text []byte
	kind Kind
}{
	{[]byte("EEPROM_V"), KindEEPROM},
	{[]byte("FLASH1M_V"), KindFlash1M},
	{[]byte("FLASH512_V"), KindFlash512K},
	{[]byte("FLASH_V"), KindFlash512K},
	{[]byte("SRAM_V"), KindSRAM},
}

// DetectSaveDevice scans rom for a save-type ID string, builds the matching
// backend (plus an RTC behind a GPIO port, since SIIRTC_V cartridges always
// pair one with Flash/SRAM), and restores persisted bytes from save if
// non-nil.
func DetectSaveDevice(rom, save []byte) (SaveDevice, *GPIO, error) {
	kind, found := scanForKind(rom)

	var device SaveDevice
	switch {
	case found && kind == KindEEPROM:
		device = NewEEPROM(len(rom) <= romSizeThreshold)
	case found && kind == KindFlash1M:
		device = NewFlash128()
	case found && kind == KindFlash512K:
		device = NewFlash64()
	case found && kind == KindSRAM:
		device = NewSRAM()
	default:
		device = nil
	}

	var gpio *GPIO
	if bytes.Contains(rom, []byte("SIIRTC_V")) {
		gpio = NewGPIO()
		gpio.AttachRTC(NewRTC())
	}

	if len(save) == 0 {
		return device, gpio, nil
	}

	blocks, err := Load(save)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range blocks {
		switch {
		case device != nil && b.Kind == device.Kind():
			if err := device.Import(b.Data); err != nil {
				return nil, nil, err
			}
		case b.Kind == KindRTC && gpio != nil:
			rtc := NewRTC()
			if err := rtc.Import(b.Data); err != nil {
				return nil, nil, err
			}
			gpio.AttachRTC(rtc)
		}
	}

	return device, gpio, nil
}

func scanForKind(rom []byte) (Kind, bool) {
	for _, id := range idStrings {
		if bytes.Contains(rom, id.text) {
			return id.kind, true
		}
	}
	return 0, false
}

// ExportSave serializes every persistent save device the cartridge owns
// (the bulk SRAM/Flash/EEPROM backend and, if present, the RTC behind the
// GPIO port) into the save-file container format.
func (c *Cartridge) ExportSave() []byte {
	var devices []SaveDevice
	if c.save != nil {
		devices = append(devices, c.save)
	}
	if c.gpio != nil && c.gpio.rtc != nil {
		devices = append(devices, c.gpio.rtc)
	}
	if len(devices) == 0 {
		return nil
	}
	data, err := Save(devices)
	if err != nil {
		return nil
	}
	return data
}
