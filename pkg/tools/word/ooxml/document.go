package ooxml

import (
	"fmt"
	"os"

	"github.com/beevik/etree"
)

// Document is an opened .docx package with its main part parsed.
type Document struct {
	pkg      *Package
	mainPart string
	xml      map[string]*etree.Document
	ct       *contentTypes
	styles   *Styles
}

// Open reads a .docx file from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses a .docx package from raw bytes.
func Load(data []byte) (*Document, error) {
	pkg, err := ReadPackage(data)
	if err != nil {
		return nil, err
	}
	return fromPackage(pkg)
}

func fromPackage(pkg *Package) (*Document, error) {
	d := &Document{pkg: pkg, xml: map[string]*etree.Document{}}
	ctDoc, err := d.part(contentTypesPart)
	if err != nil {
		return nil, err
	}
	d.ct = &contentTypes{doc: ctDoc}

	d.mainPart = "word/document.xml"
	if rels, err := d.rels(""); err == nil {
		if target, ok := rels.byType(RelOfficeDocument); ok {
			d.mainPart = target
		}
	}
	if !pkg.HasPart(d.mainPart) {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, d.mainPart)
	}
	main, err := d.part(d.mainPart)
	if err != nil {
		return nil, err
	}
	if main.Root() == nil || main.Root().SelectElement("w:body") == nil {
		return nil, fmt.Errorf("%w: main part has no body", ErrNotDocx)
	}
	return d, nil
}

// part returns the parsed XML of a package part, parsing it on first use.
func (d *Document) part(name string) (*etree.Document, error) {
	if doc, ok := d.xml[name]; ok {
		return doc, nil
	}
	raw, ok := d.pkg.Part(name)
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	d.xml[name] = doc
	return doc, nil
}

// putPart registers a new XML part with its content type override.
func (d *Document) putPart(name, contentType string, doc *etree.Document) {
	d.xml[name] = doc
	d.pkg.SetPart(name, nil)
	d.ct.ensureOverride(name, contentType)
}

// rels returns the relationships of a part. An empty source selects the
// package-level relationships. A missing .rels part is created on demand.
func (d *Document) rels(source string) (*relationships, error) {
	name := "_rels/.rels"
	if source != "" {
		name = relsPartName(source)
	}
	if !d.pkg.HasPart(name) && d.xml[name] == nil {
		d.xml[name] = newRelationshipsDoc()
		d.pkg.SetPart(name, nil)
	}
	doc, err := d.part(name)
	if err != nil {
		return nil, err
	}
	return &relationships{source: source, doc: doc}, nil
}

// root is the w:document element.
func (d *Document) root() *etree.Element {
	doc, _ := d.part(d.mainPart)
	return doc.Root()
}

// Body returns the w:body element.
func (d *Document) Body() *etree.Element {
	return d.root().SelectElement("w:body")
}

// Bytes serialises the document with all edits applied.
func (d *Document) Bytes() ([]byte, error) {
	for name, doc := range d.xml {
		doc.WriteSettings.CanonicalEndTags = false
		b, err := doc.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("serialise %s: %w", name, err)
		}
		d.pkg.SetPart(name, b)
	}
	return d.pkg.Bytes()
}

// ensureRootNamespace declares a namespace prefix on the main document root.
func (d *Document) ensureRootNamespace(prefix, uri string) {
	ensureNamespace(d.root(), prefix, uri)
}

func ensureNamespace(el *etree.Element, prefix, uri string) {
	if el.SelectAttr("xmlns:"+prefix) == nil {
		el.CreateAttr("xmlns:"+prefix, uri)
	}
}

// XML returns the serialised w:body element.
func (d *Document) XML() (string, error) {
	return elementXML(d.Body())
}

func elementXML(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	return doc.WriteToString()
}
