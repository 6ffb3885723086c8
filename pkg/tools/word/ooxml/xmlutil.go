package ooxml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Child order of w:rPr as required by the schema.
var rPrOrder = []string{
	"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike",
	"dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
	"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz",
	"szCs", "highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
	"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish", "oMath",
}

// Child order of w:pPr as required by the schema.
var pPrOrder = []string{
	"pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr",
	"widowControl", "numPr", "suppressLineNumbers", "pBdr", "shd", "tabs",
	"suppressAutoHyphens", "kinsoku", "wordWrap", "overflowPunct",
	"topLinePunct", "autoSpaceDE", "autoSpaceDN", "bidi", "adjustRightInd",
	"snapToGrid", "spacing", "ind", "contextualSpacing", "mirrorIndents",
	"suppressOverlap", "jc", "textDirection", "textAlignment",
	"textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr",
	"pPrChange",
}

// Child order of w:style.
var styleOrder = []string{
	"name", "aliases", "basedOn", "next", "link", "autoRedefine", "hidden",
	"uiPriority", "semiHidden", "unhideWhenUsed", "qFormat", "locked",
	"personal", "personalCompose", "personalReply", "rsid", "pPr", "rPr",
	"tblPr", "trPr", "tcPr", "tblStylePr",
}

func isW(el *etree.Element, tag string) bool {
	return el != nil && el.Space == "w" && el.Tag == tag
}

func orderIndex(order []string, tag string) int {
	for i, t := range order {
		if t == tag {
			return i
		}
	}
	return len(order)
}

// orderedChild returns the w:<tag> child of parent, creating it at its
// schema position when it is missing.
func orderedChild(parent *etree.Element, tag string, order []string) *etree.Element {
	if c := parent.SelectElement("w:" + tag); c != nil {
		return c
	}
	el := etree.NewElement("w:" + tag)
	want := orderIndex(order, tag)
	for _, c := range parent.ChildElements() {
		if orderIndex(order, c.Tag) > want {
			parent.InsertChildAt(c.Index(), el)
			return el
		}
	}
	parent.AddChild(el)
	return el
}

// firstChild returns the w:<tag> child of parent, creating it as the first
// element child when missing. Used for pPr, rPr, tblPr and friends.
func firstChild(parent *etree.Element, tag string) *etree.Element {
	if c := parent.SelectElement("w:" + tag); c != nil {
		return c
	}
	el := etree.NewElement("w:" + tag)
	parent.InsertChildAt(0, el)
	return el
}

func removeChildren(parent *etree.Element, tag string) {
	for _, c := range parent.SelectElements("w:" + tag) {
		parent.RemoveChild(c)
	}
}

func setVal(el *etree.Element, val string) {
	el.CreateAttr("w:val", val)
}

func val(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("w:val", "")
}

// onOff reads a toggle property such as w:b. A missing w:val means on.
func onOff(el *etree.Element) bool {
	if el == nil {
		return false
	}
	switch strings.ToLower(val(el)) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func setOnOff(parent *etree.Element, tag string, on bool, order []string) {
	el := orderedChild(parent, tag, order)
	el.RemoveAttr("w:val")
	if !on {
		setVal(el, "0")
	}
}

func newTextElement(text string) *etree.Element {
	t := etree.NewElement("w:t")
	if text != strings.TrimSpace(text) || strings.Contains(text, "  ") {
		t.CreateAttr("xml:space", "preserve")
	}
	t.SetText(text)
	return t
}

// newRun builds a w:r holding text. Tabs and newlines become w:tab and w:br.
func newRun(text string) *etree.Element {
	r := etree.NewElement("w:r")
	appendRunText(r, text)
	return r
}

func appendRunText(r *etree.Element, text string) {
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			r.AddChild(newTextElement(buf.String()))
			buf.Reset()
		}
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.CreateElement("w:tab")
		case '\n':
			flush()
			r.CreateElement("w:br")
		case '\r':
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
}

// glyphRunes returns the characters a run contributes to paragraph text.
// Tabs read as '\t' and line breaks as '\n'. Page and column breaks, fields
// and drawings contribute nothing.
func glyphRunes(r *etree.Element) []rune {
	var out []rune
	for _, c := range r.ChildElements() {
		out = append(out, childGlyphs(c)...)
	}
	return out
}

func childGlyphs(c *etree.Element) []rune {
	if c.Space != "w" {
		return nil
	}
	switch c.Tag {
	case "t":
		return []rune(c.Text())
	case "tab":
		return []rune{'\t'}
	case "cr":
		return []rune{'\n'}
	case "br":
		switch c.SelectAttrValue("w:type", "") {
		case "", "textWrapping":
			return []rune{'\n'}
		}
	case "noBreakHyphen":
		return []rune{'-'}
	}
	return nil
}

func isGlyphChild(c *etree.Element) bool {
	return len(childGlyphs(c)) > 0 || isW(c, "t")
}

// collectRuns returns the w:r elements below el in document order. Runs
// nested in hyperlinks, content controls, smart tags and insertions are
// included; runs are never descended into.
func collectRuns(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		switch {
		case isW(c, "r"):
			out = append(out, c)
		case isW(c, "pPr"), isW(c, "del"), isW(c, "moveFrom"):
		default:
			out = append(out, collectRuns(c)...)
		}
	}
	return out
}

type runSpan struct {
	run        *etree.Element
	start, end int
}

func runSpans(p *etree.Element) []runSpan {
	var spans []runSpan
	pos := 0
	for _, r := range collectRuns(p) {
		n := len(glyphRunes(r))
		spans = append(spans, runSpan{run: r, start: pos, end: pos + n})
		pos += n
	}
	return spans
}

// splitRun splits r at glyph offset at. The right half is inserted after r
// with a copy of r's formatting and returned.
func splitRun(r *etree.Element, at int) *etree.Element {
	right := etree.NewElement("w:r")
	if rPr := r.SelectElement("w:rPr"); rPr != nil {
		right.AddChild(rPr.Copy())
	}
	pos := 0
	var move []*etree.Element
	for _, c := range r.ChildElements() {
		if isW(c, "rPr") {
			continue
		}
		g := childGlyphs(c)
		switch {
		case pos >= at:
			move = append(move, c)
		case isW(c, "t") && pos+len(g) > at:
			cut := at - pos
			c.SetText(string(g[:cut]))
			preserveSpace(c)
			right.AddChild(newTextElement(string(g[cut:])))
		}
		pos += len(g)
	}
	for _, c := range move {
		r.RemoveChild(c)
		right.AddChild(c)
	}
	parent := r.Parent()
	parent.InsertChildAt(r.Index()+1, right)
	return right
}

func preserveSpace(t *etree.Element) {
	if t.SelectAttr("xml:space") == nil {
		t.CreateAttr("xml:space", "preserve")
	}
}

// splitAt makes off a run boundary inside paragraph p.
func splitAt(p *etree.Element, off int) {
	for _, s := range runSpans(p) {
		if s.start < off && off < s.end {
			splitRun(s.run, off-s.start)
			return
		}
	}
}

// isolate splits runs so that the glyph range [start, end) of p is covered by
// whole runs, and returns those runs.
func isolate(p *etree.Element, start, end int) []*etree.Element {
	splitAt(p, end)
	splitAt(p, start)
	var out []*etree.Element
	for _, s := range runSpans(p) {
		if s.end > s.start && s.start >= start && s.end <= end {
			out = append(out, s.run)
		}
	}
	return out
}

// setRunText replaces the glyph content of r with text, keeping formatting
// and non-text children such as drawings in place.
func setRunText(r *etree.Element, text string) {
	insertAt := -1
	for _, c := range r.ChildElements() {
		if isGlyphChild(c) {
			if insertAt < 0 {
				insertAt = c.Index()
			}
			r.RemoveChild(c)
		}
	}
	if text == "" {
		return
	}
	tmp := newRun(text)
	if insertAt < 0 {
		insertAt = len(r.Child)
	}
	for i, c := range tmp.ChildElements() {
		tmp.RemoveChild(c)
		r.InsertChildAt(insertAt+i, c)
	}
}

// isEmptyRun reports whether r holds nothing but formatting.
func isEmptyRun(r *etree.Element) bool {
	for _, c := range r.ChildElements() {
		if !isW(c, "rPr") {
			return false
		}
	}
	return true
}

func removeElement(el *etree.Element) {
	if p := el.Parent(); p != nil {
		p.RemoveChild(el)
	}
}

// insertAfter places el directly after anchor under the same parent.
func insertAfter(anchor, el *etree.Element) {
	anchor.Parent().InsertChildAt(anchor.Index()+1, el)
}

func insertBefore(anchor, el *etree.Element) {
	anchor.Parent().InsertChildAt(anchor.Index(), el)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
