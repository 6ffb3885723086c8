package ooxml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Table wraps a body-level w:tbl.
type Table struct {
	el  *etree.Element
	doc *Document
}

// Tables returns the body-level tables in order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, el := range d.Body().SelectElements("w:tbl") {
		out = append(out, &Table{el: el, doc: d})
	}
	return out
}

// Rows returns the w:tr elements of the table.
func (t *Table) Rows() []*etree.Element {
	return t.el.SelectElements("w:tr")
}

// RowCount is the number of rows.
func (t *Table) RowCount() int { return len(t.Rows()) }

// ColumnCount is the grid width, or the widest row when the grid is absent.
func (t *Table) ColumnCount() int {
	if grid := t.el.SelectElement("w:tblGrid"); grid != nil {
		if n := len(grid.SelectElements("w:gridCol")); n > 0 {
			return n
		}
	}
	cols := 0
	for _, r := range t.Rows() {
		if n := len(r.SelectElements("w:tc")); n > cols {
			cols = n
		}
	}
	return cols
}

// CellText returns the text of a cell, paragraphs joined by newlines.
func (t *Table) CellText(row, col int) (string, error) {
	rows := t.Rows()
	if row < 0 || row >= len(rows) {
		return "", fmt.Errorf("row %d out of range", row)
	}
	cells := rows[row].SelectElements("w:tc")
	if col < 0 || col >= len(cells) {
		return "", fmt.Errorf("column %d out of range", col)
	}
	var parts []string
	for _, p := range cells[col].SelectElements("w:p") {
		parts = append(parts, (&Paragraph{el: p, doc: t.doc}).Text())
	}
	return strings.Join(parts, "\n"), nil
}

// AddTable appends a rows x cols table styled "Table Grid". Cells are
// filled from data where present.
func (d *Document) AddTable(rows, cols int, data [][]string) (*Table, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("table needs at least one row and one column, got %dx%d", rows, cols)
	}
	st, err := d.Styles()
	if err != nil {
		return nil, err
	}
	styleID, err := st.Ensure("Table Grid")
	if err != nil {
		return nil, err
	}

	// 9360 twips is the text width of a Letter page with one inch margins.
	colWidth := 9360 / cols
	tbl := etree.NewElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	setVal(tblPr.CreateElement("w:tblStyle"), styleID)
	w := tblPr.CreateElement("w:tblW")
	w.CreateAttr("w:w", "0")
	w.CreateAttr("w:type", "auto")
	look := tblPr.CreateElement("w:tblLook")
	setVal(look, "04A0")
	look.CreateAttr("w:firstRow", "1")
	look.CreateAttr("w:lastRow", "0")
	look.CreateAttr("w:firstColumn", "1")
	look.CreateAttr("w:lastColumn", "0")
	look.CreateAttr("w:noHBand", "0")
	look.CreateAttr("w:noVBand", "1")

	grid := tbl.CreateElement("w:tblGrid")
	for c := 0; c < cols; c++ {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", fmt.Sprint(colWidth))
	}
	for r := 0; r < rows; r++ {
		tr := tbl.CreateElement("w:tr")
		for c := 0; c < cols; c++ {
			tc := tr.CreateElement("w:tc")
			tcW := tc.CreateElement("w:tcPr").CreateElement("w:tcW")
			tcW.CreateAttr("w:w", fmt.Sprint(colWidth))
			tcW.CreateAttr("w:type", "dxa")
			p := tc.CreateElement("w:p")
			if r < len(data) && c < len(data[r]) && data[r][c] != "" {
				p.AddChild(newRun(data[r][c]))
			}
		}
	}
	d.appendBlock(tbl)
	return &Table{el: tbl, doc: d}, nil
}
