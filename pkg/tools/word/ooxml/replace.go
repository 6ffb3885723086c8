package ooxml

import (
	"github.com/beevik/etree"
)

// normalizeRune maps a character to the form used for matching. ok is false
// for characters that are invisible to search.
func normalizeRune(r rune) (rune, bool) {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u00ad', '\ufeff':
		return 0, false
	case '\u00a0', '\t':
		return ' ', true
	}
	return r, true
}

// NormalizeSearchText applies the matching normalisation to s.
func NormalizeSearchText(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if n, ok := normalizeRune(r); ok {
			out = append(out, n)
		}
	}
	return string(out)
}

// normalizedIndex returns the normalised text of glyphs and, for every
// normalised position, the glyph offset it came from.
func normalizedIndex(glyphs []rune) ([]rune, []int) {
	text := make([]rune, 0, len(glyphs))
	index := make([]int, 0, len(glyphs))
	for i, g := range glyphs {
		if n, ok := normalizeRune(g); ok {
			text = append(text, n)
			index = append(index, i)
		}
	}
	return text, index
}

type glyphRange struct{ start, end int }

func paragraphGlyphs(p *etree.Element) []rune {
	var out []rune
	for _, r := range collectRuns(p) {
		out = append(out, glyphRunes(r)...)
	}
	return out
}

// matchRanges finds non-overlapping occurrences of needle in the normalised
// paragraph text and maps them back to glyph ranges.
func matchRanges(p *etree.Element, needle []rune) []glyphRange {
	if len(needle) == 0 {
		return nil
	}
	text, index := normalizedIndex(paragraphGlyphs(p))
	var out []glyphRange
	for i := 0; i+len(needle) <= len(text); {
		if runesEqual(text[i:i+len(needle)], needle) {
			out = append(out, glyphRange{start: index[i], end: index[i+len(needle)-1] + 1})
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

// replaceRange rewrites glyph range [start, end) of p with text. The matched
// runs keep their formatting: each takes as many characters as it held and
// the last one takes the rest.
func replaceRange(p *etree.Element, start, end int, text string) {
	runs := isolate(p, start, end)
	if len(runs) == 0 {
		return
	}
	rest := []rune(text)
	for i, r := range runs {
		var chunk []rune
		if i == len(runs)-1 {
			chunk = rest
			rest = nil
		} else {
			n := min(len(glyphRunes(r)), len(rest))
			chunk, rest = rest[:n], rest[n:]
		}
		setRunText(r, string(chunk))
		if isEmptyRun(r) {
			removeElement(r)
		}
	}
}

// ReplaceText replaces every occurrence of find with repl in body and table
// paragraphs, preserving run formatting. Table of contents paragraphs are
// left alone. It returns the number of replacements.
func (d *Document) ReplaceText(find, repl string) int {
	needle := []rune(NormalizeSearchText(find))
	if len(needle) == 0 {
		return 0
	}
	count := 0
	for _, lp := range d.AllParagraphs() {
		if lp.IsTOC() {
			continue
		}
		matches := matchRanges(lp.el, needle)
		for i := len(matches) - 1; i >= 0; i-- {
			replaceRange(lp.el, matches[i].start, matches[i].end, repl)
			count++
		}
	}
	return count
}
