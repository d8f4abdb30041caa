package emu

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nullform/gbcore/internal/apu"
	"github.com/nullform/gbcore/internal/bus"
	"github.com/nullform/gbcore/internal/cart"
	"github.com/nullform/gbcore/internal/cpu"
)

const (
	screenW = 160
	screenH = 144
)

// Buttons carries the instantaneous press state of all eight joypad inputs.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Machine is the top-level scheduler: it owns one CPU, one Bus (and through
// it, the PPU and cartridge), and one APU, and drives them together one
// frame at a time. It is the only component in this module that handles ROM
// files and save-state/battery persistence — the core components it wires
// together know nothing about either.
type Machine struct {
	cfg Config

	cpu *cpu.CPU
	bus *bus.Bus
	apu *apu.APU

	romPath string
	bootROM []byte

	fb []byte // RGBA8888, screenW*screenH*4
}

// New creates a Machine with no cartridge loaded yet.
func New(cfg Config) *Machine {
	return &Machine{
		cfg: cfg,
		apu: apu.New(44100),
		fb:  make([]byte, screenW*screenH*4),
	}
}

// SetBootROM stashes a boot ROM image to be used by subsequent LoadCartridge
// or ResetWithBoot calls.
func (m *Machine) SetBootROM(data []byte) { m.bootROM = data }

// LoadCartridge wires a fresh Bus/CPU pair around rom, optionally overlaying
// boot. If boot is not supplied but one was set via SetBootROM earlier, that
// one is reused.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	if len(rom) < 0x150 {
		return fmt.Errorf("emu: rom too small to contain a header (%d bytes)", len(rom))
	}
	if len(boot) == 0 {
		boot = m.bootROM
	}

	c := cart.NewCartridge(rom)
	b := bus.NewWithCartridge(c)
	m.bus = b
	m.cpu = cpu.New(b)

	if len(boot) >= 0x100 {
		m.bootROM = boot
		b.SetBootROM(boot)
		m.cpu.SP = 0xFFFE
		m.cpu.SetPC(0x0000)
	} else {
		m.cpu.ResetNoBoot()
		m.applyPostBootIO()
	}

	if h, err := cart.ParseHeader(rom); err == nil {
		slog.Info("cartridge loaded", "title", h.Title, "type", h.CartTypeStr, "rom_banks", h.ROMBanks, "ram_bytes", h.RAMSizeBytes)
	}
	return nil
}

// applyPostBootIO seeds the IO registers with the values the DMG boot ROM
// would have left behind, for the no-boot-ROM startup path.
func (m *Machine) applyPostBootIO() {
	b := m.bus
	b.Write(0xFF00, 0xCF)
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC
	b.Write(0xFF40, 0x91) // LCDC: on, BG on, tile data at 0x8000, sprites off
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}

// LoadROMFromFile reads path and loads it as the current cartridge, recording
// path for ROMPath/SaveState and battery-file naming by the caller.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(data, nil); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ROMPath returns the path most recently passed to LoadROMFromFile, or "" if
// the current cartridge was loaded via LoadCartridge directly.
func (m *Machine) ROMPath() string { return m.romPath }

// SetSerialWriter routes the cartridge's serial-port byte stream to w. Must
// be called after a cartridge is loaded, since LoadCartridge replaces the Bus.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// ResetPostBoot reinitializes the current cartridge's CPU/bus state as if the
// DMG boot ROM had just handed off control, without a boot ROM overlay.
func (m *Machine) ResetPostBoot() {
	if m.cpu == nil {
		return
	}
	m.cpu.ResetNoBoot()
	m.applyPostBootIO()
}

// ResetWithBoot restarts execution from 0x0000 with the stored boot ROM
// overlaying the low 256 bytes, if one was set.
func (m *Machine) ResetWithBoot() {
	if m.cpu == nil || m.bus == nil || len(m.bootROM) < 0x100 {
		return
	}
	m.bus.SetBootROM(m.bootROM)
	m.cpu.SP = 0xFFFE
	m.cpu.SetPC(0x0000)
}

// SetButtons updates the instantaneous joypad state.
func (m *Machine) SetButtons(btn Buttons) {
	if m.bus != nil {
		m.bus.SetJoypadState(btn.mask())
	}
}

// SetUseFetcherBG records the UseFetcherBG setting. The PPU has a single
// BG/window render path (the scanline fetcher), so the setting does not
// change what is drawn.
func (m *Machine) SetUseFetcherBG(v bool) { m.cfg.UseFetcherBG = v }
func (m *Machine) UseFetcherBG() bool     { return m.cfg.UseFetcherBG }

// stepUntilFrame runs CPU instructions — ticking the bus (and through it the
// PPU and timer) and the APU after each one — until the PPU reports a
// completed frame.
func (m *Machine) stepUntilFrame(render bool) {
	if m.cpu == nil || m.bus == nil {
		return
	}
	p := m.bus.PPU()
	for {
		cyc := m.cpu.Step()
		m.apu.Tick(cyc)
		if p.FrameReady() {
			if render {
				m.renderFramebuffer()
			}
			return
		}
	}
}

// StepFrame runs one video frame and refreshes the RGBA framebuffer.
func (m *Machine) StepFrame() { m.stepUntilFrame(true) }

// StepFrameNoRender runs one video frame without the RGBA conversion —
// useful for headless conformance tests that only care about serial output.
func (m *Machine) StepFrameNoRender() { m.stepUntilFrame(false) }

// dmgShades maps the PPU's 2-bit shade indices to an RGBA palette
// approximating the original DMG's green-tinted LCD.
var dmgShades = [4][4]byte{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

func (m *Machine) renderFramebuffer() {
	src := m.bus.PPU().Framebuffer()
	for y := 0; y < screenH; y++ {
		for x := 0; x < screenW; x++ {
			rgba := dmgShades[src[y][x]&3]
			i := (y*screenW + x) * 4
			copy(m.fb[i:i+4], rgba[:])
		}
	}
}

// Framebuffer returns the RGBA8888 pixel buffer for the last rendered frame.
func (m *Machine) Framebuffer() []byte { return m.fb }

// LoadBattery restores cartridge RAM from a prior save. It returns false only
// when the cartridge type does not implement cart.BatteryBacked; the header's
// battery flag is not checked.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil {
		return false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveBattery returns a copy of the cartridge's external RAM, or ok=false if
// the cartridge has none to persist.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.bus == nil {
		return nil, false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	data := bb.SaveRAM()
	return data, len(data) > 0
}

// APUPullStereo drains up to n stereo frames (interleaved int16 L,R,L,R,...)
// for playback; safe to call from a separate audio-callback goroutine.
func (m *Machine) APUPullStereo(n int) []int16 { return m.apu.PullStereo(n) }

// APUBufferedStereo reports how many stereo frames are currently queued.
func (m *Machine) APUBufferedStereo() int { return m.apu.StereoAvailable() }

// APUCapBufferedStereo drops the oldest queued frames so at most max remain,
// bounding audio latency when the host falls behind.
func (m *Machine) APUCapBufferedStereo(max int) {
	if avail := m.apu.StereoAvailable(); avail > max {
		m.apu.PullStereo(avail - max)
	}
}

// APUClearAudioLatency discards all currently queued stereo frames.
func (m *Machine) APUClearAudioLatency() {
	m.apu.PullStereo(m.apu.StereoAvailable())
}

const (
	saveStateMagic   = "GBSTATE"
	saveStateVersion = byte(1)
)

// saveStateEnvelope is the top-level on-disk/on-wire save-state format: a
// fixed magic and version tag followed by each owned component's own
// gob-encoded blob. Components never know about this envelope; only the
// Machine assembles and parses it.
type saveStateEnvelope struct {
	Magic   [7]byte
	Version byte
	Bus     []byte
	APU     []byte
	ROMPath string
}

// SaveState serializes the full machine — bus (and through it PPU, timer,
// joypad, cartridge banking/RTC/RAM) plus APU — into the GBSTATE envelope.
func (m *Machine) SaveState() ([]byte, error) {
	if m.bus == nil {
		return nil, errors.New("emu: no cartridge loaded")
	}
	env := saveStateEnvelope{
		Version: saveStateVersion,
		Bus:     m.bus.SaveState(),
		APU:     m.apu.SaveState(),
		ROMPath: m.romPath,
	}
	copy(env.Magic[:], saveStateMagic)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores a machine previously serialized with SaveState. The
// current cartridge must already be loaded (its type determines the banking
// state that gets restored into it).
func (m *Machine) LoadState(data []byte) error {
	var env saveStateEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("emu: decode save state: %w", err)
	}
	if string(env.Magic[:]) != saveStateMagic {
		return errors.New("emu: not a GBSTATE save file")
	}
	if env.Version != saveStateVersion {
		return fmt.Errorf("emu: unsupported save-state version %d", env.Version)
	}
	if m.bus == nil {
		return errors.New("emu: no cartridge loaded")
	}
	m.bus.LoadState(env.Bus)
	m.apu.LoadState(env.APU)
	return nil
}

// SaveStateToFile writes a GBSTATE envelope to path.
func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadStateFromFile reads and applies a GBSTATE envelope from path.
func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadState(data)
}
