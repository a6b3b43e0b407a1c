package console

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/kmem/mem/spin"
)

const (
	// Cols and Rows are the dimensions of the 80x25 text mode buffer.
	Cols = 80
	Rows = 25
)

// Color is a VGA text mode palette index.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// Attr packs a foreground and background color into an attribute byte.
func Attr(fg, bg Color) uint8 {
	return uint8(bg)<<4 | uint8(fg)&0x0f
}

// VGA is an in-memory text mode buffer. Each cell holds a code page 437
// character in the low byte and an attribute in the high byte, the layout
// of the buffer at 0xB8000. It implements io.Writer, so it can be handed to
// anything that needs the boot console.
type VGA struct {
	lock  spin.Lock
	cells [Rows * Cols]uint16
	row   int
	col   int
	attr  uint8
	enc   *encoding.Encoder
}

// NewVGA returns a cleared buffer printing light gray on black.
func NewVGA() *VGA {
	v := &VGA{
		attr: Attr(LightGray, Black),
		enc:  encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder()),
	}
	v.clear()
	return v
}

// SetColor changes the attribute used for subsequent writes.
func (v *VGA) SetColor(fg, bg Color) {
	v.lock.Lock()
	v.attr = Attr(fg, bg)
	v.lock.Unlock()
}

// Write encodes p (UTF-8) to code page 437 and prints it. Runes without a
// CP437 glyph are replaced.
func (v *VGA) Write(p []byte) (int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	encoded, err := v.enc.Bytes(p)
	if err != nil {
		return 0, err
	}
	for _, c := range encoded {
		v.putByte(c)
	}
	return len(p), nil
}

func (v *VGA) putByte(c byte) {
	switch c {
	case '\n':
		v.newline()
		return
	case '\r':
		v.col = 0
		return
	}
	v.cells[v.row*Cols+v.col] = uint16(v.attr)<<8 | uint16(c)
	v.col++
	if v.col == Cols {
		v.newline()
	}
}

func (v *VGA) newline() {
	v.col = 0
	if v.row < Rows-1 {
		v.row++
		return
	}
	// scroll up one line
	copy(v.cells[:], v.cells[Cols:])
	blank := uint16(v.attr)<<8 | ' '
	for i := (Rows - 1) * Cols; i < Rows*Cols; i++ {
		v.cells[i] = blank
	}
}

// Clear blanks the screen and homes the cursor.
func (v *VGA) Clear() {
	v.lock.Lock()
	v.clear()
	v.lock.Unlock()
}

func (v *VGA) clear() {
	blank := uint16(v.attr)<<8 | ' '
	for i := range v.cells {
		v.cells[i] = blank
	}
	v.row, v.col = 0, 0
}

// Cell returns the raw 16-bit cell at row, col.
func (v *VGA) Cell(row, col int) uint16 {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.cells[row*Cols+col]
}

// Lines decodes the screen back to UTF-8, one string per row with trailing
// blanks removed. Trailing empty rows are dropped.
func (v *VGA) Lines() []string {
	v.lock.Lock()
	raw := make([]byte, 0, Cols)
	lines := make([]string, 0, Rows)
	dec := charmap.CodePage437.NewDecoder()
	for r := range Rows {
		raw = raw[:0]
		for c := range Cols {
			raw = append(raw, byte(v.cells[r*Cols+c]))
		}
		line, err := dec.Bytes(raw)
		if err != nil {
			line = raw
		}
		lines = append(lines, strings.TrimRight(string(line), " "))
	}
	v.lock.Unlock()

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// String returns the non-empty screen contents joined by newlines.
func (v *VGA) String() string {
	return strings.Join(v.Lines(), "\n")
}
