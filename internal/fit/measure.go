package fit

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/cbassuarez/flux/internal/ir"
)

// Glyph metrics for the text measurer, as fractions of the font size.
const (
	CharWidth  = 0.6
	LineHeight = 1.2
)

// DefaultFontSize is the font size assumed for unstyled text, in px.
const DefaultFontSize = 16.0

// TextBox measures plain text with fixed glyph metrics. Width is the
// widest line in terminal cells (East Asian wide runes count twice).
type TextBox struct {
	Text  string
	Font  float64
	Scale float64
}

// NewTextBox returns a TextBox at DefaultFontSize and scale 1.
func NewTextBox(text string) *TextBox {
	return &TextBox{Text: text, Font: DefaultFontSize, Scale: 1}
}

// Size returns the scaled layout size of the text.
func (t *TextBox) Size() Size {
	lines := strings.Split(t.Text, "\n")
	cells := 0
	for _, l := range lines {
		cells = max(cells, runewidth.StringWidth(l))
	}
	return Size{
		W: float64(cells) * CharWidth * t.Font * t.Scale,
		H: float64(len(lines)) * LineHeight * t.Font * t.Scale,
	}
}

func (t *TextBox) FontSize() float64      { return t.Font }
func (t *TextBox) SetFontSize(px float64) { t.Font = px }
func (t *TextBox) SetScale(s float64)     { t.Scale = s }

// FixedBox is a box of constant size, used for containers.
type FixedBox struct {
	S Size
}

// Container returns the box for a slot reservation. Lengths in ch and em
// resolve against fontSize. A missing dimension is unconstrained.
func Container(r ir.Reserve, fontSize float64) *FixedBox {
	return &FixedBox{S: Size{
		W: toPx(r.Width, fontSize),
		H: toPx(r.Height, fontSize),
	}}
}

func toPx(l ir.Length, fontSize float64) float64 {
	switch l.Unit {
	case ir.UnitCh:
		return l.Value * CharWidth * fontSize
	case ir.UnitEm:
		return l.Value * fontSize
	case ir.UnitPx:
		return l.Value
	}
	return maxDimension
}

const maxDimension = 1 << 30

func (b *FixedBox) Size() Size          { return b.S }
func (b *FixedBox) FontSize() float64   { return DefaultFontSize }
func (b *FixedBox) SetFontSize(float64) {}
func (b *FixedBox) SetScale(float64)    {}

// Measurer builds the boxes for a slot so the patch engine can resolve
// fit policies server-side.
type Measurer interface {
	Measure(spec ir.SlotSpec, text string) (container, inner Box)
}

// TextMeasurer measures slots with TextBox at a base font size.
type TextMeasurer struct {
	FontSize float64
}

// Measure implements Measurer.
func (m TextMeasurer) Measure(spec ir.SlotSpec, text string) (Box, Box) {
	size := m.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	inner := NewTextBox(text)
	inner.Font = size
	return Container(spec.Reserve, size), inner
}
