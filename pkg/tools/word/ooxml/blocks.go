package ooxml

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

var (
	// ErrHeaderNotFound is returned when no paragraph matches a header text.
	ErrHeaderNotFound = errors.New("header not found")
	// ErrAnchorNotFound is returned when the start anchor of a block is missing.
	ErrAnchorNotFound = errors.New("anchor not found")
)

// InsertNear places paragraphs before or after anchor, keeping their order.
func (d *Document) InsertNear(anchor *Paragraph, before bool, paras ...*Paragraph) {
	prev := anchor.el
	for i, p := range paras {
		if before {
			insertBefore(anchor.el, p.el)
			continue
		}
		if i == 0 {
			insertAfter(anchor.el, p.el)
		} else {
			insertAfter(prev, p.el)
		}
		prev = p.el
	}
}

func (d *Document) newParagraphs(texts []string, style string) ([]*Paragraph, error) {
	out := make([]*Paragraph, 0, len(texts))
	for _, t := range texts {
		p, err := d.NewParagraph(t, style)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ListStyle returns the first of "List Number", "List Paragraph" and
// "Normal" the document defines, or "" when none is.
func (d *Document) ListStyle() string {
	st, err := d.Styles()
	if err != nil {
		return ""
	}
	for _, name := range []string{"List Number", "List Paragraph", "Normal"} {
		if st.Exists(name) {
			return name
		}
	}
	return ""
}

func isBlockBoundaryStyle(p *Paragraph) bool {
	name := strings.ToLower(p.StyleName())
	for _, prefix := range []string{"heading", "título", "toc"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ReplaceBelowHeader replaces the paragraphs under a header, up to the next
// heading or table of contents paragraph, with new paragraphs. The header
// is matched on trimmed text, ignoring case. It returns how many
// paragraphs were removed.
func (d *Document) ReplaceBelowHeader(header string, texts []string, style string) (int, error) {
	paras := d.Paragraphs()
	want := strings.ToLower(strings.TrimSpace(header))
	headerIdx := -1
	for i, p := range paras {
		if p.IsTOC() {
			continue
		}
		if strings.ToLower(strings.TrimSpace(p.Text())) == want {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return 0, ErrHeaderNotFound
	}
	newParas, err := d.newParagraphs(texts, style)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paras[headerIdx+1:] {
		if isBlockBoundaryStyle(p) {
			break
		}
		removeElement(p.el)
		removed++
	}
	d.InsertNear(paras[headerIdx], false, newParas...)
	return removed, nil
}

// looksLikeHeader is the fallback end marker of a manual block: a paragraph
// with a bold, all caps or explicitly sized run.
func looksLikeHeader(p *etree.Element) bool {
	for _, r := range p.FindElements(".//w:r") {
		rPr := r.SelectElement("w:rPr")
		if rPr == nil {
			continue
		}
		if rPr.SelectElement("w:b") != nil || rPr.SelectElement("w:caps") != nil || rPr.SelectElement("w:sz") != nil {
			return true
		}
	}
	return false
}

// ReplaceBetweenAnchors removes every body element strictly between the
// start anchor paragraph and the end anchor, then inserts new paragraphs
// after the start anchor. Without an end anchor the block ends at the next
// header-like paragraph or the end of the body. It returns how many
// elements were removed.
func (d *Document) ReplaceBetweenAnchors(start, end string, texts []string, style string) (int, error) {
	var blocks []*etree.Element
	for _, el := range d.Body().ChildElements() {
		if isW(el, "sectPr") {
			continue
		}
		blocks = append(blocks, el)
	}
	startIdx := -1
	for i, el := range blocks {
		if isW(el, "p") && strings.TrimSpace(blockText(el)) == strings.TrimSpace(start) {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return 0, ErrAnchorNotFound
	}
	endIdx := len(blocks)
	for i := startIdx + 1; i < len(blocks); i++ {
		el := blocks[i]
		if !isW(el, "p") {
			continue
		}
		if end != "" {
			if strings.TrimSpace(blockText(el)) == strings.TrimSpace(end) {
				endIdx = i
				break
			}
		} else if looksLikeHeader(el) {
			endIdx = i
			break
		}
	}
	newParas, err := d.newParagraphs(texts, style)
	if err != nil {
		return 0, err
	}
	for _, el := range blocks[startIdx+1 : endIdx] {
		removeElement(el)
	}
	d.InsertNear(&Paragraph{el: blocks[startIdx], doc: d}, false, newParas...)
	return endIdx - startIdx - 1, nil
}
