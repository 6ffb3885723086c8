package ooxml

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
)

// Picture is a drawing found in a paragraph run.
type Picture struct {
	Index     int
	Location  Location
	WidthEMU  int64
	HeightEMU int64
	// Alignment is left, center, right, justify or undefined.
	Alignment string

	drawing *etree.Element
	para    *Paragraph
}

// WidthInches is the displayed width.
func (p Picture) WidthInches() float64 { return float64(p.WidthEMU) / EMUPerInch }

// HeightInches is the displayed height.
func (p Picture) HeightInches() float64 { return float64(p.HeightEMU) / EMUPerInch }

// alignmentName maps w:jc values onto the four names the tools accept.
func alignmentName(jc string) string {
	switch jc {
	case "left", "start":
		return "left"
	case "center":
		return "center"
	case "right", "end":
		return "right"
	case "both", "distribute":
		return "justify"
	}
	return "undefined"
}

// Alignments are the values AlignPicture accepts, mapped to w:jc.
var Alignments = map[string]string{
	"left":    "left",
	"center":  "center",
	"right":   "right",
	"justify": "both",
}

func extentOf(drawing *etree.Element) *etree.Element {
	return drawing.FindElement(".//wp:extent")
}

// Pictures lists drawings with a size, body paragraphs first and then table
// cells.
func (d *Document) Pictures() []Picture {
	var out []Picture
	for _, lp := range d.AllParagraphs() {
		for _, r := range lp.Runs() {
			for _, drawing := range r.FindElements(".//w:drawing") {
				ext := extentOf(drawing)
				if ext == nil {
					continue
				}
				cx, _ := strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
				cy, _ := strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
				out = append(out, Picture{
					Index:     len(out),
					Location:  lp.Location,
					WidthEMU:  cx,
					HeightEMU: cy,
					Alignment: alignmentName(lp.Alignment()),
					drawing:   drawing,
					para:      lp.Paragraph,
				})
			}
		}
	}
	return out
}

func (d *Document) picture(index int) (Picture, error) {
	pics := d.Pictures()
	if index < 0 || index >= len(pics) {
		return Picture{}, fmt.Errorf("%w: %d (document contains %d)", ErrPictureIndex, index, len(pics))
	}
	return pics[index], nil
}

// Resize is the outcome of ResizePicture, in inches.
type Resize struct {
	FromWidth, FromHeight float64
	ToWidth, ToHeight     float64
}

// ResizePicture sets the displayed size of a picture in inches. With
// keepAspect and a single dimension the other one is scaled to match.
func (d *Document) ResizePicture(index int, width, height *float64, keepAspect bool) (Resize, error) {
	if width == nil && height == nil {
		return Resize{}, fmt.Errorf("at least one of width or height must be specified")
	}
	pic, err := d.picture(index)
	if err != nil {
		return Resize{}, err
	}
	res := Resize{FromWidth: pic.WidthInches(), FromHeight: pic.HeightInches()}
	res.ToWidth, res.ToHeight = res.FromWidth, res.FromHeight
	switch {
	case keepAspect && width != nil && height == nil:
		res.ToWidth = *width
		if res.FromWidth > 0 {
			res.ToHeight = *width * res.FromHeight / res.FromWidth
		}
	case keepAspect && height != nil && width == nil:
		res.ToHeight = *height
		if res.FromHeight > 0 {
			res.ToWidth = *height * res.FromWidth / res.FromHeight
		}
	default:
		if width != nil {
			res.ToWidth = *width
		}
		if height != nil {
			res.ToHeight = *height
		}
	}
	cx := strconv.FormatInt(int64(res.ToWidth*EMUPerInch), 10)
	cy := strconv.FormatInt(int64(res.ToHeight*EMUPerInch), 10)
	ext := extentOf(pic.drawing)
	ext.CreateAttr("cx", cx)
	ext.CreateAttr("cy", cy)
	if aExt := pic.drawing.FindElement(".//pic:spPr/a:xfrm/a:ext"); aExt != nil {
		aExt.CreateAttr("cx", cx)
		aExt.CreateAttr("cy", cy)
	}
	return res, nil
}

// AlignPicture sets the alignment of the paragraph holding a picture.
func (d *Document) AlignPicture(index int, alignment string) error {
	jc, ok := Alignments[strings.ToLower(alignment)]
	if !ok {
		return fmt.Errorf("invalid alignment '%s'", alignment)
	}
	pic, err := d.picture(index)
	if err != nil {
		return err
	}
	pic.para.SetAlignment(jc)
	return nil
}

// Images without a physical resolution are placed at 72 pixels per inch.
const defaultDPI = 72

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
}

// AddPicture appends a paragraph holding an inline image. The format is
// detected from the content. A nil width keeps the native size; otherwise
// the height follows the aspect ratio.
func (d *Document) AddPicture(data []byte, width *float64) (*Paragraph, error) {
	mime := mimetype.Detect(data)
	ext, ok := imageExtensions[mime.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	wIn := float64(cfg.Width) / defaultDPI
	hIn := float64(cfg.Height) / defaultDPI
	if width != nil && *width > 0 {
		hIn = *width * hIn / wIn
		wIn = *width
	}
	cx := int64(math.Round(wIn * EMUPerInch))
	cy := int64(math.Round(hIn * EMUPerInch))

	part := d.pkg.nextPartName("word/media/image", ext)
	d.pkg.SetPart(part, data)
	d.ct.ensureDefault(ext, mime.String())
	rels, err := d.rels(d.mainPart)
	if err != nil {
		return nil, err
	}
	rID := rels.add(RelImage, relTarget(d.mainPart, part))

	for prefix, uri := range map[string]string{"wp": NsWP, "a": NsA, "pic": NsPic, "r": NsR} {
		d.ensureRootNamespace(prefix, uri)
	}
	docPrID := 1
	for _, el := range d.root().FindElements(".//wp:docPr") {
		if n := atoiDefault(el.SelectAttrValue("id", ""), 0); n >= docPrID {
			docPrID = n + 1
		}
	}
	name := part[strings.LastIndex(part, "/")+1:]
	run, err := drawingRun(docPrID, name, rID, cx, cy)
	if err != nil {
		return nil, err
	}
	p := &Paragraph{el: etree.NewElement("w:p"), doc: d}
	p.el.AddChild(run)
	d.appendBlock(p.el)
	return p, nil
}

const drawingTemplate = `<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0"><wp:extent cx="%[4]d" cy="%[5]d"/><wp:docPr id="%[1]d" name="Picture %[1]d"/><wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="%[2]s"/><pic:cNvPicPr/></pic:nvPicPr><pic:blipFill><a:blip r:embed="%[3]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill><pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[4]d" cy="%[5]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`

func drawingRun(id int, name, rID string, cx, cy int64) (*etree.Element, error) {
	frag := etree.NewDocument()
	if err := frag.ReadFromString(fmt.Sprintf(drawingTemplate, id, name, rID, cx, cy)); err != nil {
		return nil, err
	}
	return frag.Root().Copy(), nil
}
