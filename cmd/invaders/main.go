// Command invaders is a thin SDL2 host demonstrating the core: it loads a
// ROM image, drives the machine's pacing loop, renders the framebuffer and
// maps keyboard events to the input port. It is glue, not core.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sync"

	"github.com/kmatsuoka/invaders/io"
	"github.com/kmatsuoka/invaders/machine"
	"github.com/veandco/go-sdl2/sdl"
)

var (
	debug = flag.Bool("debug", false, "If true will emit full CPU/device debugging while running")
	diag  = flag.Bool("diag", false, "If true enables the CP/M BDOS diagnostic hook (for 8080 exerciser ROMs)")
	rom   = flag.String("rom", "", "Path to the ROM image to load")
	at    = flag.Int("load_addr", 0, "Address to load the ROM image at")
	fix   = flag.Bool("fix_halt", false, "If true patches opcode 0 to HLT, guarding against diagnostic ROMs rebooting")
	scale = flag.Int("scale", 2, "Scale factor to render the screen")
	port  = flag.Int("port", 6060, "Port to run the HTTP server for pprof")
)

// The screen is native 224 columns x 256 rows in memory, displayed rotated
// 90 degrees counter-clockwise, giving a 256x224 window.
const (
	memCols = 224
	memRows = 256
	winW    = memRows
	winH    = memCols
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// consoleAudio logs the sound triggers the shift device forwards; this demo
// never plays real samples, out of scope for the core.
type consoleAudio struct{}

func (consoleAudio) Trigger(sound uint8, on bool) {
	log.Printf("audio: sound %d on=%t", sound, on)
}

// keyMap translates SDL keycodes to the five controls the input port tracks.
var keyMap = map[sdl.Keycode]io.Key{
	sdl.K_c:      io.KeyCoin,
	sdl.K_RETURN: io.KeyStart,
	sdl.K_1:      io.KeyStart,
	sdl.K_SPACE:  io.KeyFire,
	sdl.K_PERIOD: io.KeyFire,
	sdl.K_LEFT:   io.KeyLeft,
	sdl.K_z:      io.KeyLeft,
	sdl.K_RIGHT:  io.KeyRight,
	sdl.K_x:      io.KeyRight,
}

// fastImage pokes pixel bytes directly into the window surface, avoiding the
// color.Color conversion overhead Surface.Set otherwise pays per pixel.
type fastImage struct {
	surface *sdl.Surface
	data    []byte
}

func (f *fastImage) set(x, y int, c color.RGBA) {
	i := int32(y)*f.surface.Pitch + int32(x)*int32(f.surface.Format.BytesPerPixel)
	f.data[i+0] = c.R
	f.data[i+1] = c.G
	f.data[i+2] = c.B
	f.data[i+3] = c.A
}

func (f *fastImage) ColorModel() color.Model { return f.surface.ColorModel() }
func (f *fastImage) Bounds() image.Rectangle { return f.surface.Bounds() }
func (f *fastImage) At(x, y int) color.Color { return f.surface.At(x, y) }

// render rotates the 1-bit, column-major framebuffer 90 degrees
// counter-clockwise into fi, the arcade's native display orientation on a
// portrait-mounted monitor. Source (col, row) maps to dest (row, memCols-1-col).
func render(fb []uint8, fi *fastImage, scale int) {
	for col := 0; col < memCols; col++ {
		for row := 0; row < memRows; row++ {
			byteIdx := col*(memRows/8) + row/8
			bit := (fb[byteIdx] >> uint(row%8)) & 1
			c := black
			if bit != 0 {
				c = white
			}
			dx := row
			dy := memCols - 1 - col
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					fi.set(dx*scale+sx, dy*scale+sy, c)
				}
			}
		}
	}
}

func main() {
	flag.Parse()

	if *rom == "" {
		log.Fatal("-rom is required")
	}
	romBytes, err := os.ReadFile(*rom)
	if err != nil {
		log.Fatalf("can't load rom: %v from path: %s", err, *rom)
	}

	m, err := machine.Init(&machine.Def{
		Audio: consoleAudio{},
		Debug: *debug,
		Diag:  *diag,
	})
	if err != nil {
		log.Fatalf("can't init machine: %v", err)
	}
	if err := m.LoadROM(romBytes, uint16(*at), *fix); err != nil {
		log.Fatalf("can't load rom into memory: %v", err)
	}

	go func() {
		log.Println(http.ListenAndServe(fmt.Sprintf("localhost:%d", *port), nil))
	}()

	var window *sdl.Window
	fi := &fastImage{}

	sdl.Main(func() {
		var wg sync.WaitGroup
		wg.Add(1)
		sdl.Do(func() {
			if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
				log.Fatalf("can't init SDL: %v", err)
			}
			var err error
			window, err = sdl.CreateWindow("invaders", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
				int32(winW**scale), int32(winH**scale), sdl.WINDOW_SHOWN)
			if err != nil {
				log.Fatalf("can't create window: %v", err)
			}
			fi.surface, err = window.GetSurface()
			if err != nil {
				log.Fatalf("can't get window surface: %v", err)
			}
			fi.data = fi.surface.Pixels()
			wg.Done()
		})
		wg.Wait()
		defer func() {
			window.Destroy()
			sdl.Quit()
		}()

		for !m.Halted() {
			quit := false
			sdl.Do(func() {
				for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
					switch e := event.(type) {
					case *sdl.QuitEvent:
						quit = true
					case *sdl.KeyboardEvent:
						key, ok := keyMap[e.Keysym.Sym]
						if !ok {
							continue
						}
						if e.State == sdl.PRESSED {
							m.KeyPressed(key)
						} else {
							m.KeyReleased(key)
						}
					}
				}
			})
			if quit {
				return
			}

			if err := m.Tick(); err != nil {
				log.Fatalf("tick error: %v", err)
			}

			sdl.Do(func() {
				render(m.Framebuffer(), fi, *scale)
				window.UpdateSurface()
			})
		}
	})
}
