package ooxml

import (
	"strings"
	"unicode"
)

// OutlineParagraph is one body paragraph in an outline.
type OutlineParagraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Style string `json:"style"`
}

// OutlineTable summarises one table with a 3x3 preview.
type OutlineTable struct {
	Index   int        `json:"index"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Preview [][]string `json:"preview"`
}

// Outline is the document structure summary.
type Outline struct {
	Paragraphs []OutlineParagraph `json:"paragraphs"`
	Tables     []OutlineTable     `json:"tables"`
}

// Outline lists paragraphs (text cut at 100 characters) and tables.
func (d *Document) Outline() Outline {
	out := Outline{Paragraphs: []OutlineParagraph{}, Tables: []OutlineTable{}}
	for i, p := range d.Paragraphs() {
		out.Paragraphs = append(out.Paragraphs, OutlineParagraph{
			Index: i,
			Text:  truncate(p.Text(), 100),
			Style: p.StyleName(),
		})
	}
	for i, t := range d.Tables() {
		ot := OutlineTable{Index: i, Rows: t.RowCount(), Columns: t.ColumnCount(), Preview: [][]string{}}
		for r := 0; r < min(3, ot.Rows); r++ {
			row := []string{}
			for c := 0; c < min(3, ot.Columns); c++ {
				text, err := t.CellText(r, c)
				if err != nil {
					row = append(row, "N/A")
					continue
				}
				row = append(row, truncate(text, 20))
			}
			ot.Preview = append(ot.Preview, row)
		}
		out.Tables = append(out.Tables, ot)
	}
	return out
}

// ParagraphInfo is returned for a single paragraph lookup.
type ParagraphInfo struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Style     string `json:"style"`
	IsHeading bool   `json:"is_heading"`
}

// ParagraphInfo describes the body paragraph at index.
func (d *Document) ParagraphInfo(index int) (ParagraphInfo, error) {
	p, err := d.Paragraph(index)
	if err != nil {
		return ParagraphInfo{}, err
	}
	return ParagraphInfo{
		Index:     index,
		Text:      p.Text(),
		Style:     p.StyleName(),
		IsHeading: p.IsHeading(),
	}, nil
}

// Occurrence is one search hit. Body hits carry ParagraphIndex, table hits
// carry Location.
type Occurrence struct {
	ParagraphIndex *int   `json:"paragraph_index,omitempty"`
	Location       string `json:"location,omitempty"`
	Position       int    `json:"position"`
	Context        string `json:"context"`
}

// SearchResult is the result of FindText.
type SearchResult struct {
	Query       string       `json:"query"`
	MatchCount  int          `json:"match_count"`
	Occurrences []Occurrence `json:"occurrences"`
}

// FindText searches body and table paragraphs. Positions are rune offsets
// into the paragraph text.
func (d *Document) FindText(query string, matchCase, wholeWord bool) SearchResult {
	res := SearchResult{Query: query, Occurrences: []Occurrence{}}
	if query == "" {
		return res
	}
	for _, lp := range d.AllParagraphs() {
		text := lp.Text()
		for _, pos := range findAll(text, query, matchCase, wholeWord) {
			occ := Occurrence{Position: pos, Context: truncate(text, 100)}
			if lp.InTable {
				occ.Location = lp.Location.String()
			} else {
				idx := lp.Index
				occ.ParagraphIndex = &idx
			}
			res.Occurrences = append(res.Occurrences, occ)
		}
	}
	res.MatchCount = len(res.Occurrences)
	return res
}

func findAll(text, query string, matchCase, wholeWord bool) []int {
	hay, needle := []rune(text), []rune(query)
	if !matchCase {
		hay, needle = []rune(strings.ToLower(text)), []rune(strings.ToLower(query))
	}
	var out []int
	for i := 0; i+len(needle) <= len(hay); {
		if !runesEqual(hay[i:i+len(needle)], needle) {
			i++
			continue
		}
		if wholeWord && (isWordRune(hay, i-1) || isWordRune(hay, i+len(needle))) {
			i++
			continue
		}
		out = append(out, i)
		i += len(needle)
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(rs []rune, i int) bool {
	if i < 0 || i >= len(rs) {
		return false
	}
	return unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_'
}

// ParagraphXML returns the XML of the first paragraph, body or table,
// containing text.
func (d *Document) ParagraphXML(text string) (string, bool, error) {
	for _, lp := range d.AllParagraphs() {
		if strings.Contains(lp.Text(), text) {
			s, err := elementXML(lp.el)
			return s, true, err
		}
	}
	return "", false, nil
}
