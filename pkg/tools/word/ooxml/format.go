package ooxml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrTextRange is returned by FormatText for offsets outside the paragraph.
var ErrTextRange = errors.New("invalid text range")

// RunFormat lists character properties. Nil pointers and empty strings
// leave the property untouched.
type RunFormat struct {
	Bold      *bool
	Italic    *bool
	Underline *bool
	Color     string
	FontSize  *float64 // points
	FontName  string
}

var namedColors = map[string]string{
	"black":   "000000",
	"white":   "FFFFFF",
	"red":     "FF0000",
	"green":   "00FF00",
	"blue":    "0000FF",
	"yellow":  "FFFF00",
	"cyan":    "00FFFF",
	"magenta": "FF00FF",
	"gray":    "808080",
	"grey":    "808080",
	"orange":  "FFA500",
	"purple":  "800080",
}

// ParseColor accepts "#RRGGBB", "RRGGBB" or a basic color name and returns
// the upper-case hex form.
func ParseColor(s string) (string, error) {
	c := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if hex, ok := namedColors[strings.ToLower(c)]; ok {
		return hex, nil
	}
	if len(c) != 6 {
		return "", fmt.Errorf("invalid color '%s'", s)
	}
	if _, err := strconv.ParseUint(c, 16, 32); err != nil {
		return "", fmt.Errorf("invalid color '%s'", s)
	}
	return strings.ToUpper(c), nil
}

// applyRunFormat writes f into an rPr element in schema order.
func applyRunFormat(rPr *etree.Element, f RunFormat) {
	if f.FontName != "" {
		fonts := orderedChild(rPr, "rFonts", rPrOrder)
		for _, a := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
			fonts.CreateAttr(a, f.FontName)
		}
	}
	if f.Bold != nil {
		setOnOff(rPr, "b", *f.Bold, rPrOrder)
	}
	if f.Italic != nil {
		setOnOff(rPr, "i", *f.Italic, rPrOrder)
	}
	if f.Color != "" {
		if hex, err := ParseColor(f.Color); err == nil {
			setVal(orderedChild(rPr, "color", rPrOrder), hex)
		}
	}
	if f.FontSize != nil && *f.FontSize > 0 {
		half := strconv.Itoa(int(math.Round(*f.FontSize * 2)))
		setVal(orderedChild(rPr, "sz", rPrOrder), half)
		setVal(orderedChild(rPr, "szCs", rPrOrder), half)
	}
	if f.Underline != nil {
		u := "none"
		if *f.Underline {
			u = "single"
		}
		setVal(orderedChild(rPr, "u", rPrOrder), u)
	}
}

// FormatText applies f to the characters [start, end) of the body paragraph
// at index. Offsets count characters of the paragraph text.
func (d *Document) FormatText(index, start, end int, f RunFormat) error {
	p, err := d.Paragraph(index)
	if err != nil {
		return err
	}
	n := len(paragraphGlyphs(p.el))
	if start < 0 || end > n || start >= end {
		return fmt.Errorf("%w: paragraph has %d characters", ErrTextRange, n)
	}
	if f.Color != "" {
		if _, err := ParseColor(f.Color); err != nil {
			return err
		}
	}
	for _, r := range isolate(p.el, start, end) {
		applyRunFormat(firstChild(r, "rPr"), f)
	}
	return nil
}
