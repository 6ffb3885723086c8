package ooxml

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// CoreProperties mirrors docProps/core.xml.
type CoreProperties struct {
	Title          string
	Author         string
	Subject        string
	Keywords       string
	LastModifiedBy string
	Revision       int
	Created        time.Time
	Modified       time.Time
}

// Info is the summary returned by get_document_info.
type Info struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	Subject        string `json:"subject"`
	Keywords       string `json:"keywords"`
	Created        string `json:"created"`
	Modified       string `json:"modified"`
	LastModifiedBy string `json:"last_modified_by"`
	Revision       int    `json:"revision"`
	PageCount      int    `json:"page_count"`
	WordCount      int    `json:"word_count"`
	ParagraphCount int    `json:"paragraph_count"`
	TableCount     int    `json:"table_count"`
}

const w3cdtf = "2006-01-02T15:04:05Z"

func (d *Document) corePart(create bool) (*etree.Document, error) {
	rels, err := d.rels("")
	if err != nil {
		return nil, err
	}
	if part, ok := rels.byType(RelCoreProperties); ok && d.pkg.HasPart(part) {
		return d.part(part)
	}
	if !create {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(blankCore); err != nil {
		return nil, err
	}
	d.putPart("docProps/core.xml", CTCoreProperties, doc)
	rels.add(RelCoreProperties, "docProps/core.xml")
	return doc, nil
}

// CoreProperties reads the core properties. A package without a core part
// yields the zero value.
func (d *Document) CoreProperties() (CoreProperties, error) {
	var cp CoreProperties
	doc, err := d.corePart(false)
	if err != nil || doc == nil {
		return cp, err
	}
	root := doc.Root()
	text := func(tag string) string {
		if el := root.SelectElement(tag); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}
	cp.Title = text("dc:title")
	cp.Author = text("dc:creator")
	cp.Subject = text("dc:subject")
	cp.Keywords = text("cp:keywords")
	cp.LastModifiedBy = text("cp:lastModifiedBy")
	cp.Revision, _ = strconv.Atoi(text("cp:revision"))
	cp.Created = parseW3CDTF(text("dcterms:created"))
	cp.Modified = parseW3CDTF(text("dcterms:modified"))
	return cp, nil
}

func parseW3CDTF(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, w3cdtf, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SetCoreProperties writes every non-zero field of cp.
func (d *Document) SetCoreProperties(cp CoreProperties) error {
	doc, err := d.corePart(true)
	if err != nil {
		return err
	}
	root := doc.Root()
	set := func(tag, value string) *etree.Element {
		el := root.SelectElement(tag)
		if el == nil {
			el = root.CreateElement(tag)
		}
		el.SetText(value)
		return el
	}
	setDate := func(tag string, t time.Time) {
		el := set(tag, t.UTC().Format(w3cdtf))
		el.CreateAttr("xsi:type", "dcterms:W3CDTF")
	}
	ensureNamespace(root, "xsi", NsXSI)
	ensureNamespace(root, "dcterms", NsDCT)
	ensureNamespace(root, "dc", NsDC)

	if cp.Title != "" {
		set("dc:title", cp.Title)
	}
	if cp.Subject != "" {
		set("dc:subject", cp.Subject)
	}
	if cp.Author != "" {
		set("dc:creator", cp.Author)
	}
	if cp.Keywords != "" {
		set("cp:keywords", cp.Keywords)
	}
	if cp.LastModifiedBy != "" {
		set("cp:lastModifiedBy", cp.LastModifiedBy)
	}
	if cp.Revision > 0 {
		set("cp:revision", strconv.Itoa(cp.Revision))
	}
	if !cp.Created.IsZero() {
		setDate("dcterms:created", cp.Created)
	}
	if !cp.Modified.IsZero() {
		setDate("dcterms:modified", cp.Modified)
	}
	return nil
}

func formatPropTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05-07:00")
}

// Info collects core properties and body statistics. Page count is the
// number of sections, since pages only exist after layout.
func (d *Document) Info() (Info, error) {
	cp, err := d.CoreProperties()
	if err != nil {
		return Info{}, err
	}
	paras := d.Paragraphs()
	words := 0
	for _, p := range paras {
		words += len(strings.Fields(p.Text()))
	}
	return Info{
		Title:          cp.Title,
		Author:         cp.Author,
		Subject:        cp.Subject,
		Keywords:       cp.Keywords,
		Created:        formatPropTime(cp.Created),
		Modified:       formatPropTime(cp.Modified),
		LastModifiedBy: cp.LastModifiedBy,
		Revision:       cp.Revision,
		PageCount:      len(d.root().FindElements(".//w:sectPr")),
		WordCount:      words,
		ParagraphCount: len(paras),
		TableCount:     len(d.Tables()),
	}, nil
}
