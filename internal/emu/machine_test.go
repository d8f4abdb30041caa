package emu

import (
	"encoding/binary"
	"testing"
)

// buildROM makes a synthetic ROM with a valid header & checksums, mirroring
// the cart package's own test helper (kept private there).
func buildROM(cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)
	copy(rom[0x0134:0x0144], []byte("EMUTEST"))
	rom[0x0143] = 0x00
	rom[0x0144], rom[0x0145] = '0', '1'
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014B] = 0x33
	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum
	var gsum uint16
	for i := range rom {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)
	// A long run of NOPs (0x00) so stepping a frame never runs off into
	// undefined opcodes before the PPU reports a completed frame.
	for i := 0x0150; i < len(rom); i++ {
		rom[i] = 0x00
	}
	return rom
}

func TestMachine_StepFrame_ProducesFramebuffer(t *testing.T) {
	m := New(Config{})
	rom := buildROM(0x00, 0x00, 0x00, 32*1024) // ROM-only, no RAM
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.StepFrame()
	fb := m.Framebuffer()
	if len(fb) != screenW*screenH*4 {
		t.Fatalf("framebuffer size = %d, want %d", len(fb), screenW*screenH*4)
	}
	allZero := true
	for _, b := range fb {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatalf("framebuffer is all zero after a frame; expected LCD-on shade colors")
	}
}

func TestMachine_SaveLoadStateRoundTrip(t *testing.T) {
	m := New(Config{})
	rom := buildROM(0x01, 0x01, 0x02, 64*1024) // MBC1 + RAM
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.StepFrame()
	m.StepFrame()

	data, err := m.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	m2 := New(Config{})
	if err := m2.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge (m2): %v", err)
	}
	if err := m2.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if got := m2.Framebuffer(); len(got) != screenW*screenH*4 {
		t.Fatalf("m2 framebuffer size = %d", len(got))
	}
}

func TestMachine_LoadState_RejectsBadMagic(t *testing.T) {
	m := New(Config{})
	rom := buildROM(0x00, 0x00, 0x00, 32*1024)
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if err := m.LoadState([]byte("not a save state")); err == nil {
		t.Fatalf("LoadState on garbage data should return an error")
	}
}

func TestMachine_BatteryRoundTrip(t *testing.T) {
	m := New(Config{})
	rom := buildROM(0x03, 0x01, 0x02, 64*1024) // MBC1+RAM+BATTERY, 8KiB RAM
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if _, ok := m.SaveBattery(); !ok {
		t.Fatalf("battery-backed cartridge should report ok=true even before any writes")
	}
	data := make([]byte, 8*1024)
	data[0] = 0x42
	if !m.LoadBattery(data) {
		t.Fatalf("LoadBattery returned false for a battery-backed cartridge")
	}
	out, ok := m.SaveBattery()
	if !ok {
		t.Fatalf("SaveBattery ok=false after LoadBattery wrote data")
	}
	if out[0] != 0x42 {
		t.Fatalf("SaveBattery()[0] = %#02x, want 0x42", out[0])
	}
}
