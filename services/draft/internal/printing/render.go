package printing

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ESC/POS control sequences understood by common 58mm and 80mm printers.
var (
	cmdInit        = []byte{0x1b, '@'}
	cmdBoldOn      = []byte{0x1b, 'E', 1}
	cmdBoldOff     = []byte{0x1b, 'E', 0}
	cmdAlignLeft   = []byte{0x1b, 'a', 0}
	cmdAlignCenter = []byte{0x1b, 'a', 1}
	cmdDoubleOn    = []byte{0x1d, '!', 0x11}
	cmdDoubleOff   = []byte{0x1d, '!', 0x00}
	cmdFeedCut     = []byte{0x1d, 'V', 66, 3}
)

const (
	DefaultWidth = 32
	minWidth     = 24
	timeLayout   = "02 Jan 2006 15:04"
)

type Header struct {
	TableName string
	Persons   int
	Staff     string
	At        time.Time
}

// Line is one printable row. Quantity is signed on KOTs.
type Line struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Note     string
	Spice    string
	Jain     bool
}

// Renderer turns tickets into ESC/POS byte streams. Width is the number of
// characters per printed row.
type Renderer struct {
	width int
}

func NewRenderer(width int) *Renderer {
	if width < minWidth {
		width = DefaultWidth
	}
	return &Renderer{width: width}
}

// KOT renders one kitchen ticket. Removed quantities are printed with a
// leading minus and flagged for the kitchen.
func (r *Renderer) KOT(h Header, number int, lines []Line) []byte {
	var b bytes.Buffer
	r.open(&b, fmt.Sprintf("KOT #%d", number), h)

	for _, l := range lines {
		qty := fmt.Sprintf("%+d", l.Quantity)
		name := l.Name
		if l.Quantity < 0 {
			name += " (CANCEL)"
		}
		r.row(&b, qty+"  "+name, "")
		r.details(&b, l)
	}

	r.close(&b)
	return b.Bytes()
}

// Full renders the whole cart as a flat list, without prices.
func (r *Renderer) Full(h Header, lines []Line) []byte {
	var b bytes.Buffer
	r.open(&b, "FULL ORDER", h)

	for _, l := range lines {
		r.row(&b, fmt.Sprintf("%d  %s", l.Quantity, l.Name), "")
		r.details(&b, l)
	}

	r.close(&b)
	return b.Bytes()
}

// Bill renders a customer bill with line totals, subtotal and the per-person
// share.
func (r *Renderer) Bill(h Header, lines []Line) []byte {
	var b bytes.Buffer
	r.open(&b, "BILL", h)

	subtotal := decimal.Zero
	for _, l := range lines {
		total := LineTotal(l)
		subtotal = subtotal.Add(total)
		r.row(&b, l.Name, "")
		r.row(&b, fmt.Sprintf("  %d x %s", l.Quantity, l.Price.StringFixed(2)), total.StringFixed(2))
	}

	r.rule(&b)
	b.Write(cmdBoldOn)
	r.row(&b, "TOTAL", subtotal.StringFixed(2))
	b.Write(cmdBoldOff)
	if h.Persons > 1 {
		r.row(&b, fmt.Sprintf("Per person (%d)", h.Persons), PerPerson(subtotal, h.Persons).StringFixed(2))
	}

	r.close(&b)
	return b.Bytes()
}

// LineTotal is price times quantity.
func LineTotal(l Line) decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PerPerson splits a total evenly, rounded to two places.
func PerPerson(total decimal.Decimal, persons int) decimal.Decimal {
	if persons < 1 {
		persons = 1
	}
	return total.Div(decimal.NewFromInt(int64(persons))).Round(2)
}

func (r *Renderer) open(b *bytes.Buffer, title string, h Header) {
	b.Write(cmdInit)
	b.Write(cmdAlignCenter)
	b.Write(cmdDoubleOn)
	b.WriteString(title + "\n")
	b.Write(cmdDoubleOff)
	if h.TableName != "" {
		b.WriteString("Table " + h.TableName + "\n")
	}
	b.Write(cmdAlignLeft)
	if !h.At.IsZero() {
		r.row(b, h.At.Format(timeLayout), "")
	}
	if h.Staff != "" {
		r.row(b, "Staff: "+h.Staff, "")
	}
	if h.Persons > 0 {
		r.row(b, fmt.Sprintf("Persons: %d", h.Persons), "")
	}
	r.rule(b)
}

func (r *Renderer) close(b *bytes.Buffer) {
	r.rule(b)
	b.WriteString("\n\n")
	b.Write(cmdFeedCut)
}

func (r *Renderer) details(b *bytes.Buffer, l Line) {
	if l.Spice != "" {
		r.row(b, "    * "+l.Spice, "")
	}
	if l.Jain {
		r.row(b, "    * Jain", "")
	}
	if l.Note != "" {
		r.row(b, "    > "+l.Note, "")
	}
}

// row writes left-aligned text with an optional right-aligned column,
// truncating the left side to fit.
func (r *Renderer) row(b *bytes.Buffer, left, right string) {
	room := r.width
	if right != "" {
		room = r.width - utf8.RuneCountInString(right) - 1
	}
	if room < 0 {
		room = 0
	}
	if runes := []rune(left); len(runes) > room {
		left = string(runes[:room])
	}
	if right == "" {
		b.WriteString(left + "\n")
		return
	}
	pad := r.width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(left + strings.Repeat(" ", pad) + right + "\n")
}

func (r *Renderer) rule(b *bytes.Buffer) {
	b.WriteString(strings.Repeat("-", r.width) + "\n")
}
