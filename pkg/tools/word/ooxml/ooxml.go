// Package ooxml edits WordprocessingML packages (.docx) in place.
//
// A Document keeps the zip parts of the package in memory and parses the XML
// parts it needs into etree DOMs. Edits are made on the DOM and written back
// when the document is saved, so parts the package does not touch survive a
// round trip byte for byte.
//
// Element lookups rely on the conventional prefixes written by Word,
// LibreOffice and python-docx (w, wp, a, pic, r, w14, w15).
package ooxml

import "errors"

const (
	NsW     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NsR     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NsWP    = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	NsA     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NsPic   = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	NsW14   = "http://schemas.microsoft.com/office/word/2010/wordml"
	NsW15   = "http://schemas.microsoft.com/office/word/2012/wordml"
	NsMC    = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	NsCP    = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	NsDC    = "http://purl.org/dc/elements/1.1/"
	NsDCT   = "http://purl.org/dc/terms/"
	NsXSI   = "http://www.w3.org/2001/XMLSchema-instance"
	NsPkgCT = "http://schemas.openxmlformats.org/package/2006/content-types"
	NsPkgRl = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship types.
const (
	RelOfficeDocument   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelStyles           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelNumbering        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelSettings         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelImage            = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelComments         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RelCommentsExtended = "http://schemas.microsoft.com/office/2011/relationships/commentsExtended"
	RelCoreProperties   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelExtendedProps    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
)

// Content types.
const (
	CTMainDocument     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	CTStyles           = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	CTNumbering        = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	CTSettings         = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	CTComments         = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	CTCommentsExtended = "application/vnd.openxmlformats-officedocument.wordprocessingml.commentsExtended+xml"
	CTCoreProperties   = "application/vnd.openxmlformats-package.core-properties+xml"
	CTExtendedProps    = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	CTRelationships    = "application/vnd.openxmlformats-package.relationships+xml"
)

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

var (
	// ErrNotDocx is returned when the input is not a zip package with a main document part.
	ErrNotDocx = errors.New("not a valid .docx package")
	// ErrParagraphIndex is returned for a paragraph index outside the body.
	ErrParagraphIndex = errors.New("paragraph index out of range")
	// ErrPictureIndex is returned for a picture index outside the document.
	ErrPictureIndex = errors.New("picture index out of range")
	// ErrCommentNotFound is returned when a comment reference cannot be resolved.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrStyleNotFound is returned when a style name is neither defined nor built in.
	ErrStyleNotFound = errors.New("style not found")
	// ErrUnsupportedImage is returned by AddPicture for formats it cannot size.
	ErrUnsupportedImage = errors.New("unsupported image format")
)
