// Package debugfrontend is a terminal inspector frontend (spec.md section
// 4.N): a tcell-rendered, downsampled view of the framebuffer plus a status
// line of CPU/PPU register state, usable without any native GUI
// dependency.
//
// Grounded on: the teacher's main.go TerminalRenderer — tcell.Screen setup,
// the frame-rate ticker driving RunUntilFrame, a shade-character palette for
// pixel luminance, and SIGINT/SIGTERM handling are kept as written,
// generalized from the Game Boy's 160x144 4-shade framebuffer to the GBA's
// 240x160 BGR555 one (luminance derived from the packed color instead of a
// fixed 2-bit shade) and extended with a one-line register readout the
// teacher's version didn't need (it had no mode/interrupt state worth
// surfacing at a glance).
package debugfrontend

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/haltcnt/gbaid/gbaid"
)

const (
	screenWidth  = 240
	screenHeight = 160

	scaleX = 2
	scaleY = 1

	frameTime = time.Second / 60
)

var shadeChars = []rune{'█', '▓', '▒', '░', ' '}

// Terminal renders a System's frame and register state to a tcell screen.
type Terminal struct {
	screen  tcell.Screen
	system  *gbaid.System
	running bool
}

// New builds a terminal frontend around an already-constructed System.
func New(system *gbaid.System) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("debugfrontend: init terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("debugfrontend: init terminal: %w", err)
	}
	return &Terminal{screen: screen, system: system, running: true}, nil
}

// Run drives the emulator one frame per tick until Escape is pressed or the
// process receives SIGINT/SIGTERM.
func (t *Terminal) Run() error {
	defer func() {
		slog.Info("debugfrontend: closing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-ticker.C:
			t.system.Emulate(1232 * 228)
			t.render()
			t.screen.Show()
		case <-signals:
			t.running = false
			slog.Info("debugfrontend: received stop signal")
			return nil
		}
	}
	return nil
}

func (t *Terminal) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				t.running = false
				return
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *Terminal) render() {
	frame := t.system.Frame()
	t.screen.Clear()

	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			pixel := frame[y*screenWidth+x]
			shade := shadeIndex(pixel)
			char := shadeChars[shade]
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

			screenX := x * scaleX
			screenY := y * scaleY
			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(screenX+sx, screenY, char, nil, style)
			}
		}
	}

	t.renderStatusLine()
}

// shadeIndex maps a packed BGR555 pixel's luminance to one of 5 shade
// characters, darkest to lightest.
func shadeIndex(color uint16) int {
	r := int(color & 0x1F)
	g := int((color >> 5) & 0x1F)
	b := int((color >> 10) & 0x1F)
	lum := (r*3 + g*6 + b) / 10 // rough luma weighting, 0-31
	shade := 4 - lum*4/31
	if shade < 0 {
		shade = 0
	}
	if shade > 4 {
		shade = 4
	}
	return shade
}

func (t *Terminal) renderStatusLine() {
	pc := t.system.CPU.Regs.PC()
	mode := t.system.CPU.Regs.Mode()
	line := fmt.Sprintf("PC=%08X mode=%d VCOUNT=%d IME=%v", pc, mode, t.system.Display.VCOUNT, t.system.IRQ.IME())
	style := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	y := screenHeight*scaleY + 1
	for x, r := range line {
		t.screen.SetContent(x, y, r, nil, style)
	}
}
