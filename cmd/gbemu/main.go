package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nullform/gbcore/internal/cart"
	"github.com/nullform/gbcore/internal/emu"
	"github.com/nullform/gbcore/internal/ui"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbemu"
	app.Usage = "gbemu [options] -rom <file>"
	app.Description = "A DMG Game Boy emulator core with an ebiten-based desktop front end"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to ROM (.gb)"},
		cli.StringFlag{Name: "bootrom", Usage: "optional DMG boot ROM"},
		cli.IntFlag{Name: "scale", Value: 3, Usage: "window scale"},
		cli.StringFlag{Name: "title", Value: "gbemu", Usage: "window title"},
		cli.BoolFlag{Name: "trace", Usage: "no effect; the emulator does not log instructions"},
		cli.BoolTFlag{Name: "save", Usage: "persist battery RAM to ROM.sav on exit and load on start"},
		cli.BoolFlag{Name: "fetcherbg", Usage: "render BG/window via the scanline fetcher path"},
		cli.BoolFlag{Name: "headless", Usage: "run without a window"},
		cli.IntFlag{Name: "frames", Value: 300, Usage: "frames to run in headless mode"},
		cli.StringFlag{Name: "outpng", Usage: "write the last framebuffer to a PNG at this path"},
		cli.StringFlag{Name: "expect", Usage: "assert framebuffer CRC32 (hex)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("gbemu exited with error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	var rom []byte
	if romPath != "" {
		data, err := os.ReadFile(romPath)
		if err != nil {
			return fmt.Errorf("read rom: %w", err)
		}
		rom = data
	}
	var boot []byte
	if p := c.String("bootrom"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read bootrom: %w", err)
		}
		boot = data
	}

	if len(rom) >= 0x150 {
		if h, err := cart.ParseHeader(rom); err == nil {
			slog.Info("rom header", "title", h.Title, "type", h.CartTypeStr, "banks", h.ROMBanks, "ram_bytes", h.RAMSizeBytes)
		}
	}

	m := emu.New(emu.Config{Trace: c.Bool("trace"), UseFetcherBG: c.Bool("fetcherbg")})
	if len(boot) >= 0x100 {
		m.SetBootROM(boot)
	}
	if len(rom) > 0 {
		if err := m.LoadCartridge(rom, boot); err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if romPath != "" {
			if abs, err := filepath.Abs(romPath); err == nil {
				_ = m.LoadROMFromFile(abs)
			} else {
				_ = m.LoadROMFromFile(romPath)
			}
		}
	}

	saveRAM := c.BoolT("save")
	var savPath string
	if saveRAM && romPath != "" {
		savPath = strings.TrimSuffix(romPath, ".gb") + ".sav"
		if data, err := os.ReadFile(savPath); err == nil {
			if m.LoadBattery(data) {
				slog.Info("loaded battery RAM", "path", savPath, "bytes", len(data))
			}
		}
	}

	if c.Bool("headless") {
		if err := runHeadless(m, c.Int("frames"), c.String("outpng"), c.String("expect")); err != nil {
			return err
		}
		if saveRAM && savPath != "" {
			writeBattery(m, savPath)
		}
		return nil
	}

	uiCfg := ui.Config{Title: c.String("title"), Scale: c.Int("scale"), UseFetcherBG: c.Bool("fetcherbg")}
	app := ui.NewApp(uiCfg, m)
	if err := app.Run(); err != nil {
		return err
	}
	if saveRAM {
		outSav := savPath
		if outSav == "" && m.ROMPath() != "" && strings.HasSuffix(strings.ToLower(m.ROMPath()), ".gb") {
			outSav = strings.TrimSuffix(m.ROMPath(), ".gb") + ".sav"
		}
		if outSav != "" {
			writeBattery(m, outSav)
		}
	}
	return nil
}

func writeBattery(m *emu.Machine, path string) {
	data, ok := m.SaveBattery()
	if !ok {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("write battery RAM failed", "path", path, "error", err)
		return
	}
	slog.Info("wrote battery RAM", "path", path, "bytes", len(data))
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()
	slog.Info("headless run complete", "frames", frames, "elapsed", dur.Truncate(time.Millisecond), "fps", fps, "fb_crc32", fmt.Sprintf("%08x", crc))

	if pngPath != "" {
		if err := saveFramePNG(fb, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		slog.Info("wrote framebuffer PNG", "path", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{Pix: make([]byte, len(pix)), Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
