package ui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/nullform/gbcore/internal/emu"
)

// App is a thin ebiten host around a Machine: it converts keyboard state to
// joypad buttons, streams audio from the APU's ring buffer, and presents the
// Machine's RGBA framebuffer each frame. It owns no emulation state itself.
type App struct {
	cfg Config
	m   *emu.Machine
	tex *ebiten.Image

	paused bool
	fast   bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream
	audioMuted  bool

	showStats bool

	toastMsg   string
	toastUntil time.Time
}

// NewApp wires an ebiten window around an already-constructed Machine.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	a := &App{cfg: cfg, m: m}
	a.audioCtx = audio.NewContext(cfg.SampleRate)
	if m != nil {
		m.SetUseFetcherBG(cfg.UseFetcherBG)
	}
	return a
}

// Run starts the ebiten game loop; blocks until the window is closed.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.m == nil {
		return nil
	}
	if a.audioPlayer == nil {
		a.audioSrc = &apuStream{m: a.m, mono: !a.cfg.AudioStereo, muted: &a.audioMuted, sampleRate: a.cfg.SampleRate}
		p, err := a.audioCtx.NewPlayer(a.audioSrc)
		if err == nil {
			a.audioPlayer = p
			a.applyPlayerBufferSize()
			a.audioPlayer.Play()
		} else {
			slog.Warn("audio player init failed", "error", err)
		}
	}

	var btn emu.Buttons
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		btn.Right = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		btn.Left = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		btn.Up = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		btn.Down = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		btn.A = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		btn.B = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		btn.Start = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		btn.Select = true
	}
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	prevFast := a.fast
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.ResetPostBoot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		a.m.ResetWithBoot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		a.showStats = !a.showStats
	}
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.m.SaveStateToFile(a.statePath()); err != nil {
			a.toast("Save failed: " + err.Error())
		} else {
			a.toast("State saved")
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := a.m.LoadStateFromFile(a.statePath()); err != nil {
			a.toast("Load failed: " + err.Error())
		} else {
			a.toast("State loaded")
		}
	}

	muted := a.paused
	if muted != a.audioMuted {
		a.audioMuted = muted
		a.m.APUClearAudioLatency()
	}
	if prevFast != a.fast {
		if a.fast {
			a.m.APUCapBufferedStereo(1920) // ~40ms at 44.1kHz
		} else {
			a.m.APUClearAudioLatency()
		}
		a.applyPlayerBufferSize()
	}

	if !a.paused {
		steps := 1
		if a.fast {
			steps = 4
		}
		for i := 0; i < steps; i++ {
			a.m.StepFrame()
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if a.showStats {
		bf := a.m.APUBufferedStereo()
		ms := (bf * 1000) / a.cfg.SampleRate
		und, lp, lw := 0, 0, 0
		if a.audioSrc != nil {
			und, lp, lw = a.audioSrc.underruns, a.audioSrc.lastPulled, a.audioSrc.lastWant
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Buf: %d (~%dms)", bf, ms), 4, 4)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Under: %d  Read: %d/%d", und, lp, lw), 4, 18)
	}

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

// statePath derives the save-state file path from the loaded ROM's path.
func (a *App) statePath() string {
	rom := a.m.ROMPath()
	if rom == "" {
		return "gbemu.state"
	}
	base := strings.TrimSuffix(rom, filepath.Ext(rom))
	return base + ".state"
}
