package ooxml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Paragraph wraps a w:p element.
type Paragraph struct {
	el  *etree.Element
	doc *Document
}

// Element exposes the underlying w:p.
func (p *Paragraph) Element() *etree.Element { return p.el }

// Text concatenates the text of every run in the paragraph.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range collectRuns(p.el) {
		b.WriteString(string(glyphRunes(r)))
	}
	return b.String()
}

// StyleID returns the w:pStyle value, empty for the default style.
func (p *Paragraph) StyleID() string {
	if pPr := p.el.SelectElement("w:pPr"); pPr != nil {
		return val(pPr.SelectElement("w:pStyle"))
	}
	return ""
}

// StyleName returns the display name of the paragraph style.
func (p *Paragraph) StyleName() string {
	id := p.StyleID()
	st, err := p.doc.Styles()
	if err != nil {
		if id == "" {
			return "Normal"
		}
		return id
	}
	if id == "" {
		return st.DefaultParagraphName()
	}
	return st.NameOf(id)
}

// SetStyle applies a paragraph style by display name, creating built-in
// styles on demand.
func (p *Paragraph) SetStyle(name string) error {
	st, err := p.doc.Styles()
	if err != nil {
		return err
	}
	id, err := st.Ensure(name)
	if err != nil {
		return err
	}
	p.setStyleID(id)
	return nil
}

func (p *Paragraph) setStyleID(id string) {
	pPr := firstChild(p.el, "pPr")
	setVal(orderedChild(pPr, "pStyle", pPrOrder), id)
}

// Alignment returns the raw w:jc value of the paragraph.
func (p *Paragraph) Alignment() string {
	if pPr := p.el.SelectElement("w:pPr"); pPr != nil {
		return val(pPr.SelectElement("w:jc"))
	}
	return ""
}

// SetAlignment sets w:jc. An empty value removes it.
func (p *Paragraph) SetAlignment(jc string) {
	pPr := firstChild(p.el, "pPr")
	if jc == "" {
		removeChildren(pPr, "jc")
		return
	}
	setVal(orderedChild(pPr, "jc", pPrOrder), jc)
}

// AddRun appends a run holding text and returns it.
func (p *Paragraph) AddRun(text string) *etree.Element {
	r := newRun(text)
	p.el.AddChild(r)
	return r
}

// Runs returns the paragraph runs, including those inside hyperlinks and
// content controls.
func (p *Paragraph) Runs() []*etree.Element {
	return collectRuns(p.el)
}

// IsTOC reports whether the paragraph carries a table of contents style.
func (p *Paragraph) IsTOC() bool {
	return strings.HasPrefix(strings.ToLower(p.StyleName()), "toc")
}

// IsHeading reports whether the paragraph style name starts with "heading".
func (p *Paragraph) IsHeading() bool {
	return strings.HasPrefix(strings.ToLower(p.StyleName()), "heading")
}

// NewParagraph creates a detached paragraph with the given text and style.
// An empty style leaves the document default.
func (d *Document) NewParagraph(text, style string) (*Paragraph, error) {
	p := &Paragraph{el: etree.NewElement("w:p"), doc: d}
	if style != "" {
		if err := p.SetStyle(style); err != nil {
			return nil, err
		}
	}
	if text != "" {
		p.AddRun(text)
	}
	return p, nil
}

// Paragraphs returns the body-level paragraphs in order.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, el := range d.Body().SelectElements("w:p") {
		out = append(out, &Paragraph{el: el, doc: d})
	}
	return out
}

// Paragraph returns the body paragraph at index.
func (d *Document) Paragraph(index int) (*Paragraph, error) {
	ps := d.Paragraphs()
	if index < 0 || index >= len(ps) {
		return nil, fmt.Errorf("%w: %d (document has %d paragraphs)", ErrParagraphIndex, index, len(ps))
	}
	return ps[index], nil
}

// appendBlock adds a body-level block, keeping the final w:sectPr last.
func (d *Document) appendBlock(el *etree.Element) {
	body := d.Body()
	if sect := body.SelectElement("w:sectPr"); sect != nil {
		body.InsertChildAt(sect.Index(), el)
		return
	}
	body.AddChild(el)
}

// AddParagraph appends a paragraph to the body.
func (d *Document) AddParagraph(text, style string) (*Paragraph, error) {
	p, err := d.NewParagraph(text, style)
	if err != nil {
		return nil, err
	}
	d.appendBlock(p.el)
	return p, nil
}

// AddHeading appends a heading paragraph. Level 0 uses the Title style.
func (d *Document) AddHeading(text string, level int) (*Paragraph, error) {
	if level < 0 || level > 9 {
		return nil, fmt.Errorf("heading level must be between 0 and 9, got %d", level)
	}
	style := "Title"
	if level > 0 {
		style = fmt.Sprintf("Heading %d", level)
	}
	return d.AddParagraph(text, style)
}

// AddPageBreak appends a paragraph holding a page break.
func (d *Document) AddPageBreak() *Paragraph {
	p := &Paragraph{el: etree.NewElement("w:p"), doc: d}
	r := p.el.CreateElement("w:r")
	r.CreateElement("w:br").CreateAttr("w:type", "page")
	d.appendBlock(p.el)
	return p
}

// DeleteParagraph removes the body paragraph at index.
func (d *Document) DeleteParagraph(index int) error {
	p, err := d.Paragraph(index)
	if err != nil {
		return err
	}
	removeElement(p.el)
	return nil
}

// Location describes where a paragraph sits in the document.
type Location struct {
	// Index is the body paragraph index, or -1 inside a table.
	Index   int
	InTable bool
	Table   int
	Row     int
	Cell    int
}

func (l Location) String() string {
	if l.InTable {
		return fmt.Sprintf("table %d, row %d, cell %d", l.Table, l.Row, l.Cell)
	}
	return fmt.Sprintf("paragraph %d", l.Index)
}

// Located is a paragraph and where it was found.
type Located struct {
	*Paragraph
	Location
}

// AllParagraphs returns body paragraphs first, then the direct paragraphs
// of every table cell in table, row and cell order.
func (d *Document) AllParagraphs() []Located {
	var out []Located
	for i, p := range d.Paragraphs() {
		out = append(out, Located{Paragraph: p, Location: Location{Index: i}})
	}
	for ti, t := range d.Tables() {
		for ri, row := range t.Rows() {
			for ci, cell := range row.SelectElements("w:tc") {
				for _, el := range cell.SelectElements("w:p") {
					out = append(out, Located{
						Paragraph: &Paragraph{el: el, doc: d},
						Location:  Location{Index: -1, InTable: true, Table: ti, Row: ri, Cell: ci},
					})
				}
			}
		}
	}
	return out
}

// Text returns body paragraph text followed by table cell paragraph text,
// one paragraph per line.
func (d *Document) Text() string {
	var lines []string
	for _, lp := range d.AllParagraphs() {
		lines = append(lines, lp.Text())
	}
	return strings.Join(lines, "\n")
}

// FindParagraph returns the index of the first body paragraph containing
// text, skipping table of contents paragraphs.
func (d *Document) FindParagraph(text string) (int, bool) {
	if text == "" {
		return -1, false
	}
	for i, p := range d.Paragraphs() {
		if p.IsTOC() {
			continue
		}
		if strings.Contains(p.Text(), text) {
			return i, true
		}
	}
	return -1, false
}

// blockText is the text of any body element: the concatenated w:t values
// below it.
func blockText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range el.FindElements(".//w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}
