package ooxml

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// Styles wraps the styles part of a document.
type Styles struct {
	d   *Document
	doc *etree.Document
}

// Style is a style definition as reported to callers.
type Style struct {
	ID      string
	Name    string
	Type    string
	BasedOn string
}

// Styles returns the styles part, creating an empty one when the package
// has none.
func (d *Document) Styles() (*Styles, error) {
	if d.styles != nil {
		return d.styles, nil
	}
	rels, err := d.rels(d.mainPart)
	if err != nil {
		return nil, err
	}
	part, ok := rels.byType(RelStyles)
	var doc *etree.Document
	if ok && d.pkg.HasPart(part) {
		if doc, err = d.part(part); err != nil {
			return nil, err
		}
	} else {
		part = path.Join(path.Dir(d.mainPart), "styles.xml")
		doc = newStylesDoc()
		d.putPart(part, CTStyles, doc)
		rels.add(RelStyles, relTarget(d.mainPart, part))
	}
	d.styles = &Styles{d: d, doc: doc}
	return d.styles, nil
}

// relTarget makes part relative to the directory of source.
func relTarget(source, part string) string {
	dir := path.Dir(source)
	if dir == "." {
		return part
	}
	if strings.HasPrefix(part, dir+"/") {
		return strings.TrimPrefix(part, dir+"/")
	}
	return "/" + part
}

func newStylesDoc() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", NsW)
	root.CreateAttr("xmlns:r", NsR)

	defaults := root.CreateElement("w:docDefaults")
	rPr := defaults.CreateElement("w:rPrDefault").CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	for _, a := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
		fonts.CreateAttr(a, "Calibri")
	}
	setVal(rPr.CreateElement("w:sz"), "22")
	setVal(rPr.CreateElement("w:szCs"), "22")
	sp := defaults.CreateElement("w:pPrDefault").CreateElement("w:pPr").CreateElement("w:spacing")
	sp.CreateAttr("w:after", "160")
	sp.CreateAttr("w:line", "259")
	sp.CreateAttr("w:lineRule", "auto")
	return doc
}

func (s *Styles) root() *etree.Element { return s.doc.Root() }

func (s *Styles) all() []*etree.Element {
	return s.root().SelectElements("w:style")
}

// uiName maps the lower-case built-in names Word stores ("heading 1") to
// the names shown in its user interface ("Heading 1").
func uiName(name string) string {
	lower := strings.ToLower(name)
	for _, prefix := range []string{"heading ", "toc "} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if _, err := strconv.Atoi(rest); err == nil {
				if prefix == "toc " {
					return "TOC " + rest
				}
				return "Heading " + rest
			}
		}
	}
	switch lower {
	case "caption", "footer", "header", "title", "subtitle", "normal":
		return string(unicode.ToUpper(rune(lower[0]))) + lower[1:]
	}
	return name
}

func styleName(el *etree.Element) string {
	return uiName(val(el.SelectElement("w:name")))
}

func (s *Styles) byName(name string) *etree.Element {
	want := strings.TrimSpace(name)
	for _, el := range s.all() {
		raw := val(el.SelectElement("w:name"))
		if strings.EqualFold(raw, want) || strings.EqualFold(uiName(raw), want) {
			return el
		}
	}
	// Callers sometimes pass the style id ("Heading1") instead of the name.
	for _, el := range s.all() {
		if strings.EqualFold(el.SelectAttrValue("w:styleId", ""), strings.ReplaceAll(want, " ", "")) {
			return el
		}
	}
	return nil
}

func (s *Styles) byID(id string) *etree.Element {
	for _, el := range s.all() {
		if el.SelectAttrValue("w:styleId", "") == id {
			return el
		}
	}
	return nil
}

// Exists reports whether a style with the display name is defined.
func (s *Styles) Exists(name string) bool {
	return s.byName(name) != nil
}

// Lookup returns the definition of a style by display name.
func (s *Styles) Lookup(name string) (Style, bool) {
	el := s.byName(name)
	if el == nil {
		return Style{}, false
	}
	return toStyle(el), true
}

func toStyle(el *etree.Element) Style {
	return Style{
		ID:      el.SelectAttrValue("w:styleId", ""),
		Name:    styleName(el),
		Type:    el.SelectAttrValue("w:type", "paragraph"),
		BasedOn: val(el.SelectElement("w:basedOn")),
	}
}

// NameOf returns the display name of a style id, or the id itself when the
// style is not defined.
func (s *Styles) NameOf(id string) string {
	if el := s.byID(id); el != nil {
		if n := styleName(el); n != "" {
			return n
		}
	}
	return id
}

// DefaultParagraphName is the name of the default paragraph style.
func (s *Styles) DefaultParagraphName() string {
	for _, el := range s.all() {
		def := el.SelectAttrValue("w:default", "")
		if el.SelectAttrValue("w:type", "") == "paragraph" && (def == "1" || def == "true") {
			if n := styleName(el); n != "" {
				return n
			}
		}
	}
	return "Normal"
}

// Ensure returns the style id for a display name. Known built-in styles
// missing from the document are added first.
func (s *Styles) Ensure(name string) (string, error) {
	if el := s.byName(name); el != nil {
		return el.SelectAttrValue("w:styleId", ""), nil
	}
	def, ok := builtinStyle(name)
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrStyleNotFound, name)
	}
	if def.basedOn != "" && s.byID(def.basedOn) == nil {
		if based, ok := builtinByID(def.basedOn); ok {
			if _, err := s.Ensure(based.display); err != nil {
				return "", err
			}
		}
	}
	el := s.newStyle(def.typ, def.id, def.name)
	if def.isDefault {
		el.CreateAttr("w:default", "1")
	}
	def.build(s, el)
	return def.id, nil
}

func (s *Styles) newStyle(typ, id, name string) *etree.Element {
	el := s.root().CreateElement("w:style")
	el.CreateAttr("w:type", typ)
	el.CreateAttr("w:styleId", id)
	setVal(el.CreateElement("w:name"), name)
	return el
}

// CustomStyle describes a paragraph style created by AddCustom. Nil fields
// are left unset.
type CustomStyle struct {
	Name     string
	BasedOn  string
	Bold     *bool
	Italic   *bool
	FontSize *float64
	FontName string
	Color    string
}

// AddCustom creates a paragraph style, or updates the formatting of an
// existing one with the same name.
func (s *Styles) AddCustom(cs CustomStyle) (string, error) {
	name := strings.TrimSpace(cs.Name)
	if name == "" {
		return "", fmt.Errorf("style name cannot be empty")
	}
	el := s.byName(name)
	if el == nil {
		el = s.newStyle("paragraph", s.uniqueID(name), name)
		orderedChild(el, "qFormat", styleOrder)
	}
	if cs.BasedOn != "" {
		baseID, err := s.Ensure(cs.BasedOn)
		if err != nil {
			return "", err
		}
		setVal(orderedChild(el, "basedOn", styleOrder), baseID)
	}
	rPr := orderedChild(el, "rPr", styleOrder)
	applyRunFormat(rPr, RunFormat{
		Bold:     cs.Bold,
		Italic:   cs.Italic,
		FontSize: cs.FontSize,
		FontName: cs.FontName,
		Color:    cs.Color,
	})
	return el.SelectAttrValue("w:styleId", ""), nil
}

func (s *Styles) uniqueID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "Style"
	}
	id := base
	for i := 1; s.byID(id) != nil; i++ {
		id = base + strconv.Itoa(i)
	}
	return id
}

type builtin struct {
	id, name, display string
	typ               string
	basedOn, next     string
	isDefault         bool
	build             func(s *Styles, el *etree.Element)
}

func builtinStyle(name string) (builtin, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, b := range builtins() {
		if strings.ToLower(b.display) == key || strings.ToLower(b.id) == strings.ReplaceAll(key, " ", "") {
			return b, true
		}
	}
	return builtin{}, false
}

func builtinByID(id string) (builtin, bool) {
	for _, b := range builtins() {
		if b.id == id {
			return b, true
		}
	}
	return builtin{}, false
}

// BuiltinStyleNames lists the styles a new document is created with.
func BuiltinStyleNames() []string {
	var out []string
	for _, b := range builtins() {
		out = append(out, b.display)
	}
	return out
}

func builtins() []builtin {
	out := []builtin{
		{id: "Normal", name: "Normal", display: "Normal", typ: "paragraph", isDefault: true, build: func(s *Styles, el *etree.Element) {
			orderedChild(el, "qFormat", styleOrder)
		}},
		{id: "DefaultParagraphFont", name: "Default Paragraph Font", display: "Default Paragraph Font", typ: "character", isDefault: true, build: func(s *Styles, el *etree.Element) {
			setVal(orderedChild(el, "uiPriority", styleOrder), "1")
			orderedChild(el, "semiHidden", styleOrder)
			orderedChild(el, "unhideWhenUsed", styleOrder)
		}},
		{id: "TableNormal", name: "Normal Table", display: "Normal Table", typ: "table", isDefault: true, build: func(s *Styles, el *etree.Element) {
			orderedChild(el, "semiHidden", styleOrder)
			tblPr := orderedChild(el, "tblPr", styleOrder)
			ind := tblPr.CreateElement("w:tblInd")
			ind.CreateAttr("w:w", "0")
			ind.CreateAttr("w:type", "dxa")
			mar := tblPr.CreateElement("w:tblCellMar")
			for _, side := range []string{"top", "left", "bottom", "right"} {
				w := "0"
				if side == "left" || side == "right" {
					w = "108"
				}
				m := mar.CreateElement("w:" + side)
				m.CreateAttr("w:w", w)
				m.CreateAttr("w:type", "dxa")
			}
		}},
		{id: "Title", name: "Title", display: "Title", typ: "paragraph", basedOn: "Normal", next: "Normal", build: func(s *Styles, el *etree.Element) {
			paragraphStyleCommon(el, "Normal", "Normal")
			pPr := orderedChild(el, "pPr", styleOrder)
			orderedChild(pPr, "contextualSpacing", pPrOrder)
			rPr := orderedChild(el, "rPr", styleOrder)
			setVal(orderedChild(rPr, "kern", rPrOrder), "28")
			setVal(orderedChild(rPr, "sz", rPrOrder), "56")
			setVal(orderedChild(rPr, "szCs", rPrOrder), "56")
		}},
		{id: "ListParagraph", name: "List Paragraph", display: "List Paragraph", typ: "paragraph", basedOn: "Normal", build: func(s *Styles, el *etree.Element) {
			paragraphStyleCommon(el, "Normal", "")
			pPr := orderedChild(el, "pPr", styleOrder)
			orderedChild(pPr, "ind", pPrOrder).CreateAttr("w:left", "720")
			orderedChild(pPr, "contextualSpacing", pPrOrder)
		}},
		{id: "ListNumber", name: "List Number", display: "List Number", typ: "paragraph", basedOn: "Normal", build: func(s *Styles, el *etree.Element) {
			paragraphStyleCommon(el, "Normal", "")
			pPr := orderedChild(el, "pPr", styleOrder)
			numPr := orderedChild(pPr, "numPr", pPrOrder)
			setVal(numPr.CreateElement("w:numId"), strconv.Itoa(s.d.ensureDecimalNumbering()))
			orderedChild(pPr, "contextualSpacing", pPrOrder)
		}},
		{id: "TableGrid", name: "Table Grid", display: "Table Grid", typ: "table", basedOn: "TableNormal", build: func(s *Styles, el *etree.Element) {
			setVal(orderedChild(el, "basedOn", styleOrder), "TableNormal")
			setVal(orderedChild(el, "uiPriority", styleOrder), "39")
			pPr := orderedChild(el, "pPr", styleOrder)
			sp := orderedChild(pPr, "spacing", pPrOrder)
			sp.CreateAttr("w:after", "0")
			sp.CreateAttr("w:line", "240")
			sp.CreateAttr("w:lineRule", "auto")
			tblPr := orderedChild(el, "tblPr", styleOrder)
			borders := tblPr.CreateElement("w:tblBorders")
			for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
				b := borders.CreateElement("w:" + side)
				setVal(b, "single")
				b.CreateAttr("w:sz", "4")
				b.CreateAttr("w:space", "0")
				b.CreateAttr("w:color", "auto")
			}
		}},
	}
	sizes := []string{"32", "26", "24", "22", "22", "22", "22", "22", "22"}
	for i := 1; i <= 9; i++ {
		level := i
		out = append(out, builtin{
			id:      "Heading" + strconv.Itoa(level),
			name:    "heading " + strconv.Itoa(level),
			display: "Heading " + strconv.Itoa(level),
			typ:     "paragraph", basedOn: "Normal", next: "Normal",
			build: func(s *Styles, el *etree.Element) {
				paragraphStyleCommon(el, "Normal", "Normal")
				pPr := orderedChild(el, "pPr", styleOrder)
				orderedChild(pPr, "keepNext", pPrOrder)
				orderedChild(pPr, "keepLines", pPrOrder)
				sp := orderedChild(pPr, "spacing", pPrOrder)
				sp.CreateAttr("w:before", "240")
				sp.CreateAttr("w:after", "0")
				setVal(orderedChild(pPr, "outlineLvl", pPrOrder), strconv.Itoa(level-1))
				rPr := orderedChild(el, "rPr", styleOrder)
				orderedChild(rPr, "b", rPrOrder)
				orderedChild(rPr, "bCs", rPrOrder)
				if level > 3 {
					orderedChild(rPr, "i", rPrOrder)
				}
				setVal(orderedChild(rPr, "color", rPrOrder), "2F5496")
				setVal(orderedChild(rPr, "sz", rPrOrder), sizes[level-1])
				setVal(orderedChild(rPr, "szCs", rPrOrder), sizes[level-1])
			},
		})
	}
	return out
}

func paragraphStyleCommon(el *etree.Element, basedOn, next string) {
	if basedOn != "" {
		setVal(orderedChild(el, "basedOn", styleOrder), basedOn)
	}
	if next != "" {
		setVal(orderedChild(el, "next", styleOrder), next)
	}
	orderedChild(el, "qFormat", styleOrder)
}
