package console

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVGA_WriteAndLines(t *testing.T) {
	v := NewVGA()
	_, err := fmt.Fprintf(v, "Hello, World!\nsecond line\n")
	require.NoError(t, err)

	require.Equal(t, []string{"Hello, World!", "second line"}, v.Lines())

	cell := v.Cell(0, 0)
	assert.Equal(t, uint16('H'), cell&0xff)
	assert.Equal(t, uint16(Attr(LightGray, Black)), cell>>8)
}

func TestVGA_CodePage437(t *testing.T) {
	v := NewVGA()
	_, err := v.Write([]byte("├─ 4 KiB ─┤ ½"))
	require.NoError(t, err)

	// box drawing characters have CP437 glyphs
	assert.Equal(t, uint16(0xc3), v.Cell(0, 0)&0xff)
	assert.Equal(t, uint16(0xc4), v.Cell(0, 1)&0xff)
	assert.Equal(t, "├─ 4 KiB ─┤ ½", v.Lines()[0])
}

func TestVGA_UnsupportedRuneReplaced(t *testing.T) {
	v := NewVGA()
	_, err := v.Write([]byte("a€b"))
	require.NoError(t, err)
	assert.Equal(t, uint16('a'), v.Cell(0, 0)&0xff)
	assert.NotEqual(t, uint16(0), v.Cell(0, 1)&0xff)
	assert.Equal(t, uint16('b'), v.Cell(0, 2)&0xff)
}

func TestVGA_Color(t *testing.T) {
	v := NewVGA()
	v.SetColor(Red, Black)
	_, err := v.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, uint16(Attr(Red, Black)), v.Cell(0, 0)>>8)
}

func TestVGA_WrapAndScroll(t *testing.T) {
	v := NewVGA()
	for i := range Rows + 2 {
		_, err := fmt.Fprintf(v, "line %d\n", i)
		require.NoError(t, err)
	}
	lines := v.Lines()
	require.Len(t, lines, Rows-1)
	assert.Equal(t, "line 3", lines[0], "oldest lines scroll off the top")
	assert.Equal(t, fmt.Sprintf("line %d", Rows+1), lines[len(lines)-1])

	v.Clear()
	require.Empty(t, v.Lines())

	long := make([]byte, Cols+5)
	for i := range long {
		long[i] = 'x'
	}
	_, err := v.Write(long)
	require.NoError(t, err)
	lines = v.Lines()
	require.Len(t, lines, 2)
	assert.Len(t, lines[1], 5)
}
