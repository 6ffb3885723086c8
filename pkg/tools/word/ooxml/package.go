package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const contentTypesPart = "[Content_Types].xml"

// Package is an in-memory OPC container. Part names never carry a leading slash.
type Package struct {
	parts map[string][]byte
	order []string
}

// ReadPackage loads a zip package from raw bytes.
func ReadPackage(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	pkg := &Package{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		pkg.SetPart(strings.TrimPrefix(f.Name, "/"), b)
	}
	if !pkg.HasPart(contentTypesPart) {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, contentTypesPart)
	}
	return pkg, nil
}

// Part returns the raw bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

// HasPart reports whether the package contains the named part.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// SetPart adds or replaces a part.
func (p *Package) SetPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// PartNames returns part names in package order.
func (p *Package) PartNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Bytes serialises the package. The content types part is written first.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(p.order))
	names = append(names, contentTypesPart)
	for _, n := range p.order {
		if n != contentTypesPart {
			names = append(names, n)
		}
	}
	for _, n := range names {
		data, ok := p.parts[n]
		if !ok {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", n, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nextPartName returns the first unused name of the form prefixN.ext.
func (p *Package) nextPartName(prefix, ext string) string {
	for i := 1; ; i++ {
		name := prefix + strconv.Itoa(i) + "." + ext
		if !p.HasPart(name) {
			return name
		}
	}
}

// relsPartName maps word/document.xml to word/_rels/document.xml.rels.
func relsPartName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget resolves a relationship target relative to its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID, Type, Target, TargetMode string
}

// relationships is a parsed .rels part bound to its source part.
type relationships struct {
	source string
	doc    *etree.Document
}

func (r *relationships) root() *etree.Element {
	return r.doc.Root()
}

func (r *relationships) list() []Relationship {
	var out []Relationship
	for _, el := range r.root().SelectElements("Relationship") {
		out = append(out, Relationship{
			ID:         el.SelectAttrValue("Id", ""),
			Type:       el.SelectAttrValue("Type", ""),
			Target:     el.SelectAttrValue("Target", ""),
			TargetMode: el.SelectAttrValue("TargetMode", ""),
		})
	}
	return out
}

// byType returns the part name of the first relationship of the given type.
func (r *relationships) byType(relType string) (string, bool) {
	for _, rel := range r.list() {
		if rel.Type == relType && rel.TargetMode != "External" {
			return resolveTarget(r.source, rel.Target), true
		}
	}
	return "", false
}

// byID returns the part name a relationship id points at.
func (r *relationships) byID(id string) (string, bool) {
	for _, rel := range r.list() {
		if rel.ID == id && rel.TargetMode != "External" {
			return resolveTarget(r.source, rel.Target), true
		}
	}
	return "", false
}

// add appends a relationship and returns its new id.
func (r *relationships) add(relType, target string) string {
	used := map[string]bool{}
	for _, rel := range r.list() {
		used[rel.ID] = true
	}
	id := ""
	for i := 1; ; i++ {
		id = "rId" + strconv.Itoa(i)
		if !used[id] {
			break
		}
	}
	el := r.root().CreateElement("Relationship")
	el.CreateAttr("Id", id)
	el.CreateAttr("Type", relType)
	el.CreateAttr("Target", target)
	return id
}

func newRelationshipsDoc() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", NsPkgRl)
	return doc
}

// contentTypes wraps [Content_Types].xml.
type contentTypes struct {
	doc *etree.Document
}

func (c *contentTypes) hasDefault(ext string) bool {
	for _, el := range c.doc.Root().SelectElements("Default") {
		if strings.EqualFold(el.SelectAttrValue("Extension", ""), ext) {
			return true
		}
	}
	return false
}

func (c *contentTypes) ensureDefault(ext, contentType string) {
	if c.hasDefault(ext) {
		return
	}
	el := etree.NewElement("Default")
	el.CreateAttr("Extension", ext)
	el.CreateAttr("ContentType", contentType)
	c.doc.Root().InsertChildAt(0, el)
}

func (c *contentTypes) ensureOverride(part, contentType string) {
	name := "/" + part
	for _, el := range c.doc.Root().SelectElements("Override") {
		if el.SelectAttrValue("PartName", "") == name {
			el.CreateAttr("ContentType", contentType)
			return
		}
	}
	el := c.doc.Root().CreateElement("Override")
	el.CreateAttr("PartName", name)
	el.CreateAttr("ContentType", contentType)
}
