package cart

import (
	"bytes"
	"encoding/gob"
)

// nowUnix is a seam for tests to control wall-clock time driving the RTC.
var nowUnix = func() int64 {
	return wallClockNow()
}

// MBC3 implements ROM/RAM banking plus the MBC3 real-time clock.
// Banking behavior:
// - 0000-1FFF: RAM/RTC enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank (0-3) or RTC reg select (08-0C)
// - 6000-7FFF: Latch clock (0x00 then 0x01 latches live RTC into the read-only snapshot)
// - A000-BFFF: External RAM, or latched RTC register when 0x08-0x0C is selected
type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits (1..127)
	ramBank    byte // 0..3, or 0x08..0x0C to select an RTC register

	rtcLatchPrev byte

	// live registers, advanced lazily against wall-clock time on every access
	rtcSec  int
	rtcMin  int
	rtcHour int
	rtcDay  int // 9-bit day counter (0..511)
	rtcHalt bool
	rtcCarry bool
	lastRTCWallSec int64

	// snapshot captured by the 0x00->0x01 latch sequence; RTC register reads
	// always come from here, never from the live registers.
	latchSec   int
	latchMin   int
	latchHour  int
	latchDay   int
	latchHalt  bool
	latchCarry bool
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBank = 1
	m.lastRTCWallSec = nowUnix()
	return m
}

// updateRTC advances the live registers by the wall-clock time elapsed since
// the last observation. Halting the clock (bit 6 of day-high) freezes the
// registers but still consumes the elapsed wall-clock time so a later
// un-halt does not replay it.
func (m *MBC3) updateRTC() {
	now := nowUnix()
	delta := now - m.lastRTCWallSec
	m.lastRTCWallSec = now
	if delta <= 0 || m.rtcHalt {
		return
	}
	total := int64(m.rtcHour)*3600 + int64(m.rtcMin)*60 + int64(m.rtcSec) + delta
	dayInc := total / 86400
	rem := total % 86400
	m.rtcHour = int(rem / 3600)
	m.rtcMin = int((rem % 3600) / 60)
	m.rtcSec = int(rem % 60)
	newDay := int64(m.rtcDay) + dayInc
	if newDay >= 512 {
		newDay %= 512
		m.rtcCarry = true
	}
	m.rtcDay = int(newDay)
}

func (m *MBC3) Read(addr uint16) byte {
	m.updateRTC()
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.readRTCRegister(m.ramBank)
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) readRTCRegister(sel byte) byte {
	switch sel {
	case 0x08:
		return byte(m.latchSec)
	case 0x09:
		return byte(m.latchMin)
	case 0x0A:
		return byte(m.latchHour)
	case 0x0B:
		return byte(m.latchDay & 0xFF)
	case 0x0C:
		v := byte((m.latchDay >> 8) & 0x01)
		if m.latchHalt {
			v |= 0x40
		}
		if m.latchCarry {
			v |= 0x80
		}
		return v
	}
	return 0xFF
}

func (m *MBC3) Write(addr uint16, value byte) {
	m.updateRTC()
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.ramBank = value
	case addr < 0x8000:
		if value == 0x01 && m.rtcLatchPrev == 0x00 {
			m.latchSec, m.latchMin, m.latchHour, m.latchDay = m.rtcSec, m.rtcMin, m.rtcHour, m.rtcDay
			m.latchHalt, m.latchCarry = m.rtcHalt, m.rtcCarry
		}
		m.rtcLatchPrev = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.writeRTCRegister(m.ramBank, value)
			return
		}
		if len(m.ram) == 0 {
			return
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

func (m *MBC3) writeRTCRegister(sel byte, value byte) {
	switch sel {
	case 0x08:
		m.rtcSec = int(value & 0x3F)
	case 0x09:
		m.rtcMin = int(value & 0x3F)
	case 0x0A:
		m.rtcHour = int(value & 0x1F)
	case 0x0B:
		m.rtcDay = (m.rtcDay &^ 0xFF) | int(value)
	case 0x0C:
		m.rtcDay = (m.rtcDay & 0xFF) | (int(value&0x01) << 8)
		m.rtcHalt = value&0x40 != 0
		m.rtcCarry = value&0x80 != 0
	}
}

type mbc3State struct {
	RAM []byte

	RAMEnabled bool
	ROMBank    byte
	RAMBank    byte

	RTCLatchPrev byte

	RTCSec  int
	RTCMin  int
	RTCHour int
	RTCDay  int
	RTCHalt bool
	RTCCarry bool
	LastRTCWallSec int64

	LatchSec   int
	LatchMin   int
	LatchHour  int
	LatchDay   int
	LatchHalt  bool
	LatchCarry bool
}

// BatteryBacked implementation: persists external RAM plus the RTC, matching
// real MBC3 battery-backed cartridges which keep the clock running between
// power cycles via a small coin-cell.
func (m *MBC3) SaveRAM() []byte {
	st := mbc3State{
		RAMEnabled: m.ramEnabled, ROMBank: m.romBank, RAMBank: m.ramBank,
		RTCLatchPrev: m.rtcLatchPrev,
		RTCSec: m.rtcSec, RTCMin: m.rtcMin, RTCHour: m.rtcHour, RTCDay: m.rtcDay,
		RTCHalt: m.rtcHalt, RTCCarry: m.rtcCarry, LastRTCWallSec: m.lastRTCWallSec,
		LatchSec: m.latchSec, LatchMin: m.latchMin, LatchHour: m.latchHour, LatchDay: m.latchDay,
		LatchHalt: m.latchHalt, LatchCarry: m.latchCarry,
	}
	if len(m.ram) > 0 {
		st.RAM = make([]byte, len(m.ram))
		copy(st.RAM, m.ram)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	var st mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return
	}
	if len(m.ram) > 0 && len(st.RAM) > 0 {
		copy(m.ram, st.RAM)
	}
	m.ramEnabled, m.romBank, m.ramBank = st.RAMEnabled, st.ROMBank, st.RAMBank
	m.rtcLatchPrev = st.RTCLatchPrev
	m.rtcSec, m.rtcMin, m.rtcHour, m.rtcDay = st.RTCSec, st.RTCMin, st.RTCHour, st.RTCDay
	m.rtcHalt, m.rtcCarry, m.lastRTCWallSec = st.RTCHalt, st.RTCCarry, st.LastRTCWallSec
	m.latchSec, m.latchMin, m.latchHour, m.latchDay = st.LatchSec, st.LatchMin, st.LatchHour, st.LatchDay
	m.latchHalt, m.latchCarry = st.LatchHalt, st.LatchCarry
}

// SaveState/LoadState give the Cartridge interface the same gob bundle as
// SaveRAM/LoadRAM: external RAM, banking registers, and the RTC.
func (m *MBC3) SaveState() []byte {
	return m.SaveRAM()
}

func (m *MBC3) LoadState(data []byte) {
	m.LoadRAM(data)
}
