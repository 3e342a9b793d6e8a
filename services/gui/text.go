package gui

import (
	"image/color"
	"unicode/utf8"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Font is the text font used by the gui service and the crash screen.
var Font tinyfont.Fonter = &proggy.TinySZ8pt7b

var (
	Black = color.RGBA{A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Metrics returns the line height, the baseline offset from the top of a
// line and the advance of one character cell.
func Metrics(font tinyfont.Fonter) (lineHeight, baseline, cellWidth int16) {
	lineHeight = int16(font.GetYAdvance())
	baseline = lineHeight * 3 / 4
	_, outboxWidth := tinyfont.LineWidth(font, "0")
	cellWidth = int16(outboxWidth)
	return lineHeight, baseline, cellWidth
}

// DrawText draws s with its top-left corner at (x, y).
func DrawText(d drivers.Displayer, font tinyfont.Fonter, x, y int16, s string, c color.RGBA) {
	_, baseline, _ := Metrics(font)
	tinyfont.WriteLine(d, font, x, y+baseline, s, c)
}

// DrawLines draws lines top to bottom, wrapping at the display width. It
// returns the number of lines that did not fit.
func DrawLines(d drivers.Displayer, font tinyfont.Fonter, lines []string, c color.RGBA) int {
	lineHeight, _, cellWidth := Metrics(font)
	if lineHeight <= 0 || cellWidth <= 0 {
		return len(lines)
	}
	w, h := d.Size()
	cols := max(w/cellWidth, 1)

	y := int16(0)
	for i, line := range lines {
		for first := true; first || line != ""; first = false {
			if y+lineHeight > h {
				return len(lines) - i
			}
			var chunk string
			chunk, line = takeRunes(line, cols)
			DrawText(d, font, 0, y, chunk, c)
			y += lineHeight
		}
	}
	return 0
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
