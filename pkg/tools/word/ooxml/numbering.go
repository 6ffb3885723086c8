package ooxml

import (
	"path"
	"strconv"

	"github.com/beevik/etree"
)

// numbering returns the numbering part, creating it when missing.
func (d *Document) numbering() *etree.Document {
	rels, err := d.rels(d.mainPart)
	if err != nil {
		return nil
	}
	if part, ok := rels.byType(RelNumbering); ok && d.pkg.HasPart(part) {
		if doc, err := d.part(part); err == nil {
			return doc
		}
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("w:numbering")
	root.CreateAttr("xmlns:w", NsW)
	part := path.Join(path.Dir(d.mainPart), "numbering.xml")
	d.putPart(part, CTNumbering, doc)
	rels.add(RelNumbering, relTarget(d.mainPart, part))
	return doc
}

// ensureDecimalNumbering adds a single level "1." list definition and
// returns its w:numId.
func (d *Document) ensureDecimalNumbering() int {
	doc := d.numbering()
	if doc == nil {
		return 0
	}
	root := doc.Root()
	maxAbstract, maxNum := -1, 0
	for _, a := range root.SelectElements("w:abstractNum") {
		if n := atoiDefault(a.SelectAttrValue("w:abstractNumId", ""), -1); n > maxAbstract {
			maxAbstract = n
		}
	}
	for _, n := range root.SelectElements("w:num") {
		if v := atoiDefault(n.SelectAttrValue("w:numId", ""), 0); v > maxNum {
			maxNum = v
		}
	}
	abstractID := strconv.Itoa(maxAbstract + 1)
	numID := maxNum + 1

	// abstractNum elements must precede every w:num.
	abs := etree.NewElement("w:abstractNum")
	abs.CreateAttr("w:abstractNumId", abstractID)
	setVal(abs.CreateElement("w:multiLevelType"), "singleLevel")
	lvl := abs.CreateElement("w:lvl")
	lvl.CreateAttr("w:ilvl", "0")
	setVal(lvl.CreateElement("w:start"), "1")
	setVal(lvl.CreateElement("w:numFmt"), "decimal")
	setVal(lvl.CreateElement("w:pStyle"), "ListNumber")
	setVal(lvl.CreateElement("w:lvlText"), "%1.")
	setVal(lvl.CreateElement("w:lvlJc"), "left")
	ind := lvl.CreateElement("w:pPr").CreateElement("w:ind")
	ind.CreateAttr("w:left", "360")
	ind.CreateAttr("w:hanging", "360")
	if first := root.SelectElement("w:num"); first != nil {
		root.InsertChildAt(first.Index(), abs)
	} else {
		root.AddChild(abs)
	}

	num := root.CreateElement("w:num")
	num.CreateAttr("w:numId", strconv.Itoa(numID))
	setVal(num.CreateElement("w:abstractNumId"), abstractID)
	return numID
}
