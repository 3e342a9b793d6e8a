package gui

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// Screen size of the device display.
const (
	Width  = 128
	Height = 64
)

var _ drivers.Displayer = (*Canvas)(nil)

// Canvas is an in-memory RGB565 framebuffer.
type Canvas struct {
	w, h    int
	buf     []byte
	flushes int
}

// NewCanvas returns a cleared w×h canvas.
func NewCanvas(w, h int) *Canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Canvas{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (c *Canvas) stride() int { return c.w * 2 }

func (c *Canvas) Size() (x, y int16) {
	return int16(c.w), int16(c.h)
}

func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= c.w || iy < 0 || iy >= c.h {
		return
	}
	pixel := rgb565From888(col.R, col.G, col.B)
	off := iy*c.stride() + ix*2
	c.buf[off] = byte(pixel)
	c.buf[off+1] = byte(pixel >> 8)
}

// Display counts a flush. The canvas has no backing device.
func (c *Canvas) Display() error {
	c.flushes++
	return nil
}

// Flushes returns how many times Display was called.
func (c *Canvas) Flushes() int { return c.flushes }

// Pixel returns the RGB565 value at (x, y), or 0 outside the canvas.
func (c *Canvas) Pixel(x, y int) uint16 {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return 0
	}
	off := y*c.stride() + x*2
	return uint16(c.buf[off]) | uint16(c.buf[off+1])<<8
}

// Lit returns the number of pixels that differ from bg.
func (c *Canvas) Lit(bg color.RGBA) int {
	want := rgb565From888(bg.R, bg.G, bg.B)
	n := 0
	for off := 0; off+1 < len(c.buf); off += 2 {
		if uint16(c.buf[off])|uint16(c.buf[off+1])<<8 != want {
			n++
		}
	}
	return n
}

func (c *Canvas) FillRectangle(x, y, width, height int16, col color.RGBA) error {
	x0 := clampInt(int(x), 0, c.w)
	y0 := clampInt(int(y), 0, c.h)
	x1 := clampInt(int(x)+int(width), 0, c.w)
	y1 := clampInt(int(y)+int(height), 0, c.h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565From888(col.R, col.G, col.B)
	lo, hi := byte(pixel), byte(pixel>>8)
	for py := y0; py < y1; py++ {
		row := py * c.stride()
		for px := x0; px < x1; px++ {
			c.buf[row+px*2] = lo
			c.buf[row+px*2+1] = hi
		}
	}
	return nil
}

// Fill paints the whole canvas.
func (c *Canvas) Fill(col color.RGBA) {
	_ = c.FillRectangle(0, 0, int16(c.w), int16(c.h), col)
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
