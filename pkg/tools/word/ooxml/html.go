package ooxml

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// HTML renders the body as simple HTML: headings, paragraphs, numbered
// lists, tables and bold/italic runs. Layout is not preserved.
func (d *Document) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ol>\n")
			inList = false
		}
	}
	for _, el := range d.Body().ChildElements() {
		switch {
		case isW(el, "p"):
			p := &Paragraph{el: el, doc: d}
			style := p.StyleName()
			if strings.HasPrefix(strings.ToLower(style), "list number") {
				if !inList {
					b.WriteString("<ol>\n")
					inList = true
				}
				fmt.Fprintf(&b, "<li>%s</li>\n", runsHTML(p))
				continue
			}
			closeList()
			tag := blockTag(style)
			content := runsHTML(p)
			if content == "" && tag == "p" {
				continue
			}
			fmt.Fprintf(&b, "<%s>%s</%s>\n", tag, content, tag)
		case isW(el, "tbl"):
			closeList()
			b.WriteString(tableHTML(d, el))
		}
	}
	closeList()
	b.WriteString("</body></html>\n")
	return b.String()
}

func blockTag(style string) string {
	lower := strings.ToLower(style)
	if lower == "title" {
		return "h1"
	}
	if rest, ok := strings.CutPrefix(lower, "heading "); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 {
			return "h" + strconv.Itoa(min(n, 6))
		}
	}
	return "p"
}

func runsHTML(p *Paragraph) string {
	var b strings.Builder
	for _, r := range p.Runs() {
		text := html.EscapeString(string(glyphRunes(r)))
		if text == "" {
			continue
		}
		text = strings.ReplaceAll(text, "\n", "<br>")
		rPr := r.SelectElement("w:rPr")
		var bold, italic bool
		if rPr != nil {
			bold = onOff(rPr.SelectElement("w:b"))
			italic = onOff(rPr.SelectElement("w:i"))
		}
		if italic {
			text = "<em>" + text + "</em>"
		}
		if bold {
			text = "<strong>" + text + "</strong>"
		}
		b.WriteString(text)
	}
	return b.String()
}

func tableHTML(d *Document, tbl *etree.Element) string {
	var b strings.Builder
	b.WriteString("<table>\n")
	for ri, tr := range tbl.SelectElements("w:tr") {
		b.WriteString("<tr>")
		cell := "td"
		if ri == 0 {
			cell = "th"
		}
		for _, tc := range tr.SelectElements("w:tc") {
			var parts []string
			for _, p := range tc.SelectElements("w:p") {
				parts = append(parts, runsHTML(&Paragraph{el: p, doc: d}))
			}
			fmt.Fprintf(&b, "<%s>%s</%s>", cell, strings.Join(parts, "<br>"), cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}
