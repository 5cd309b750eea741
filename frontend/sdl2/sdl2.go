//go:build sdl2

// Package sdl2 is the reference frontend (spec.md section 4.N): an SDL2
// window presenting the 240x160 framebuffer scaled up, a keyboard-to-keypad
// mapping, and queued PCM audio playback.
//
// Grounded on: the teacher's backend/sdl2/sdl2.go almost file-for-file —
// window/renderer/texture setup, the streaming-texture render path and the
// QueueAudio playback loop are kept as written, generalized from the Game
// Boy's 160x144 4-shade framebuffer to the GBA's 240x160 BGR555 one and
// from a mono PCM stream to the GBA's stereo one.
package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/haltcnt/gbaid/gbaid"
	"github.com/haltcnt/gbaid/keypad"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	screenWidth  = 240
	screenHeight = 160
	pixelScale   = 3
)

// Frontend drives a System through an SDL2 window until the user closes it
// or presses Escape.
type Frontend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audioDev sdl.AudioDeviceID

	system      *gbaid.System
	pixelBuffer []byte
	running     bool
}

// New builds a frontend around an already-constructed System.
func New(system *gbaid.System) *Frontend {
	return &Frontend{system: system}
}

// Run opens the window and blocks, pumping events and stepping the
// emulator one frame at a time, until the window is closed.
func (f *Frontend) Run(title string) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("sdl2: init: %w", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		screenWidth*pixelScale, screenHeight*pixelScale, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("sdl2: create window: %w", err)
	}
	f.window = window
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("sdl2: create renderer: %w", err)
	}
	f.renderer = renderer
	defer renderer.Destroy()

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING, screenWidth, screenHeight)
	if err != nil {
		return fmt.Errorf("sdl2: create texture: %w", err)
	}
	f.texture = texture
	defer texture.Destroy()

	f.pixelBuffer = make([]byte, screenWidth*screenHeight*4)

	if err := f.initAudio(); err != nil {
		slog.Warn("sdl2: audio unavailable", "error", err)
	} else {
		defer sdl.CloseAudioDevice(f.audioDev)
	}

	f.running = true
	for f.running {
		f.pumpEvents()
		f.system.Emulate(1232 * 228) // one full frame's worth of scanlines
		if f.system.FrameReady() {
			f.renderFrame()
		}
		f.queueAudio()
	}
	return nil
}

func (f *Frontend) initAudio() error {
	spec := &sdl.AudioSpec{Freq: 32768, Format: sdl.AUDIO_S16LSB, Channels: 2, Samples: 1024}
	obtained := &sdl.AudioSpec{}
	dev, err := sdl.OpenAudioDevice("", false, spec, obtained, 0)
	if err != nil {
		return err
	}
	f.audioDev = dev
	sdl.PauseAudioDevice(dev, false)
	return nil
}

func (f *Frontend) queueAudio() {
	if f.audioDev == 0 {
		return
	}
	const targetBytes = 4096
	queued := sdl.GetQueuedAudioSize(f.audioDev)
	if queued >= targetBytes {
		return
	}
	frames := int(targetBytes-queued) / 4
	samples := f.system.AudioSamples(frames)
	if len(samples) == 0 {
		return
	}
	bytes := (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[: len(samples)*2 : len(samples)*2]
	sdl.QueueAudio(f.audioDev, bytes)
}

var keyMapping = map[sdl.Keycode]int{
	sdl.K_z:      keypad.ButtonA,
	sdl.K_x:      keypad.ButtonB,
	sdl.K_RETURN: keypad.ButtonStart,
	sdl.K_RSHIFT: keypad.ButtonSelect,
	sdl.K_UP:     keypad.ButtonUp,
	sdl.K_DOWN:   keypad.ButtonDown,
	sdl.K_LEFT:   keypad.ButtonLeft,
	sdl.K_RIGHT:  keypad.ButtonRight,
	sdl.K_a:      keypad.ButtonL,
	sdl.K_s:      keypad.ButtonR,
}

func (f *Frontend) pumpEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			f.running = false
		case *sdl.KeyboardEvent:
			if e.Keysym.Sym == sdl.K_ESCAPE && e.Type == sdl.KEYDOWN {
				f.running = false
				continue
			}
			if button, ok := keyMapping[e.Keysym.Sym]; ok {
				f.system.SetKey(button, e.Type == sdl.KEYDOWN)
			}
		}
	}
}

func (f *Frontend) renderFrame() {
	frame := f.system.Frame()
	for i, px := range frame {
		r, g, b := unpackBGR555(px)
		off := i * 4
		f.pixelBuffer[off] = 255   // alpha
		f.pixelBuffer[off+1] = b
		f.pixelBuffer[off+2] = g
		f.pixelBuffer[off+3] = r
	}
	f.texture.Update(nil, unsafe.Pointer(&f.pixelBuffer[0]), screenWidth*4)
	f.renderer.Clear()
	f.renderer.Copy(f.texture, nil, nil)
	f.renderer.Present()
}

func unpackBGR555(c uint16) (r, g, b uint8) {
	r = uint8(c&0x1F) << 3
	g = uint8((c>>5)&0x1F) << 3
	b = uint8((c>>10)&0x1F) << 3
	return
}
