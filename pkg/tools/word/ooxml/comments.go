package ooxml

import (
	"encoding/binary"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Comment is a comment as reported by the comment tools.
type Comment struct {
	ID             string  `json:"id"`
	CommentID      string  `json:"comment_id"`
	Author         string  `json:"author"`
	Initials       string  `json:"initials"`
	Date           *string `json:"date"`
	Text           string  `json:"text"`
	ParagraphIndex *int    `json:"paragraph_index"`
	InTable        bool    `json:"in_table"`
	ReferenceText  string  `json:"reference_text"`
	ParentID       *string `json:"parent_id"`

	el     *etree.Element
	paraID string
	when   time.Time
}

const commentDateLayout = "2006-01-02T15:04:05-07:00"

func (d *Document) commentsPart(create bool) (*etree.Document, error) {
	return d.relatedPart(RelComments, "comments.xml", CTComments, create, func() *etree.Document {
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("w:comments")
		root.CreateAttr("xmlns:w", NsW)
		root.CreateAttr("xmlns:w14", NsW14)
		root.CreateAttr("xmlns:mc", NsMC)
		root.CreateAttr("mc:Ignorable", "w14")
		return doc
	})
}

func (d *Document) commentsExtendedPart(create bool) (*etree.Document, error) {
	return d.relatedPart(RelCommentsExtended, "commentsExtended.xml", CTCommentsExtended, create, func() *etree.Document {
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("w15:commentsEx")
		root.CreateAttr("xmlns:w15", NsW15)
		root.CreateAttr("xmlns:mc", NsMC)
		root.CreateAttr("mc:Ignorable", "w15")
		return doc
	})
}

// relatedPart returns the part the main document points at with relType.
// When create is set a missing part is built with blank and linked.
func (d *Document) relatedPart(relType, name, contentType string, create bool, blank func() *etree.Document) (*etree.Document, error) {
	rels, err := d.rels(d.mainPart)
	if err != nil {
		return nil, err
	}
	if part, ok := rels.byType(relType); ok && d.pkg.HasPart(part) {
		return d.part(part)
	}
	if !create {
		return nil, nil
	}
	doc := blank()
	part := path.Join(path.Dir(d.mainPart), name)
	d.putPart(part, contentType, doc)
	rels.add(relType, relTarget(d.mainPart, part))
	return doc, nil
}

type commentAnchor struct {
	loc  Location
	text string
}

// commentAnchors maps comment ids to the first paragraph holding one of
// their markers.
func (d *Document) commentAnchors() map[string]commentAnchor {
	out := map[string]commentAnchor{}
	for _, lp := range d.AllParagraphs() {
		markers := append(lp.el.FindElements(".//w:commentRangeStart"), lp.el.FindElements(".//w:commentReference")...)
		for _, m := range markers {
			id := m.SelectAttrValue("w:id", "")
			if _, seen := out[id]; !seen {
				out[id] = commentAnchor{loc: lp.Location, text: lp.Text()}
			}
		}
	}
	return out
}

func lastParagraph(el *etree.Element) *etree.Element {
	ps := el.SelectElements("w:p")
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

// Comments returns every comment in comments.xml order. Ids are
// comment_1, comment_2, and so on.
func (d *Document) Comments() ([]Comment, error) {
	doc, err := d.commentsPart(false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return d.commentsFromMarkers(), nil
	}
	anchors := d.commentAnchors()
	out := []Comment{}
	byParaID := map[string]int{}
	for i, el := range doc.Root().SelectElements("w:comment") {
		c := Comment{
			ID:        fmt.Sprintf("comment_%d", i+1),
			CommentID: el.SelectAttrValue("w:id", strconv.Itoa(i)),
			Author:    el.SelectAttrValue("w:author", "Unknown"),
			Initials:  el.SelectAttrValue("w:initials", ""),
			el:        el,
		}
		if raw := el.SelectAttrValue("w:date", ""); raw != "" {
			date := raw
			if t, ok := parseCommentTime(raw); ok {
				c.when = t
				date = t.Format(commentDateLayout)
			}
			c.Date = &date
		}
		var text strings.Builder
		for _, t := range el.FindElements(".//w:t") {
			text.WriteString(t.Text())
		}
		c.Text = strings.TrimSpace(text.String())
		if a, ok := anchors[c.CommentID]; ok {
			c.InTable = a.loc.InTable
			c.ReferenceText = truncate(a.text, 50)
			if !a.loc.InTable {
				idx := a.loc.Index
				c.ParagraphIndex = &idx
			}
		}
		if p := lastParagraph(el); p != nil {
			c.paraID = p.SelectAttrValue("w14:paraId", "")
			if c.paraID != "" {
				byParaID[c.paraID] = i
			}
		}
		out = append(out, c)
	}

	ext, err := d.commentsExtendedPart(false)
	if err != nil || ext == nil {
		return out, err
	}
	for _, ex := range ext.Root().SelectElements("w15:commentEx") {
		child, ok := byParaID[ex.SelectAttrValue("w15:paraId", "")]
		if !ok {
			continue
		}
		parent, ok := byParaID[ex.SelectAttrValue("w15:paraIdParent", "")]
		if !ok || parent == child {
			continue
		}
		pid := out[parent].ID
		out[child].ParentID = &pid
	}
	return out, nil
}

// commentsFromMarkers reports placeholder comments for paragraphs that
// carry comment markers in a package without a comments part.
func (d *Document) commentsFromMarkers() []Comment {
	out := []Comment{}
	for _, lp := range d.AllParagraphs() {
		if len(lp.el.FindElements(".//w:commentRangeStart")) == 0 && len(lp.el.FindElements(".//w:commentReference")) == 0 {
			continue
		}
		n := len(out) + 1
		c := Comment{
			ID:            fmt.Sprintf("comment_%d", n),
			CommentID:     strconv.Itoa(n),
			Author:        "Unknown",
			Text:          "Comment detected but content not accessible",
			InTable:       lp.InTable,
			ReferenceText: truncate(lp.Text(), 50),
		}
		if !lp.InTable {
			idx := lp.Index
			c.ParagraphIndex = &idx
		}
		out = append(out, c)
	}
	return out
}

func parseCommentTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CommentsByAuthor filters comments by author, ignoring case.
func CommentsByAuthor(comments []Comment, author string) []Comment {
	out := []Comment{}
	for _, c := range comments {
		if strings.EqualFold(c.Author, author) {
			out = append(out, c)
		}
	}
	return out
}

// CommentsForParagraph filters comments anchored at a body paragraph.
func CommentsForParagraph(comments []Comment, index int) []Comment {
	out := []Comment{}
	for _, c := range comments {
		if c.ParagraphIndex != nil && *c.ParagraphIndex == index {
			out = append(out, c)
		}
	}
	return out
}

func newParaID() string {
	u := uuid.New()
	return fmt.Sprintf("%08X", binary.BigEndian.Uint32(u[:4])&0x7FFFFFFF)
}

func initialsOf(author string) string {
	var b strings.Builder
	for _, f := range strings.Fields(author) {
		b.WriteString(strings.ToUpper(string([]rune(f)[:1])))
	}
	return b.String()
}

func nextCommentID(root *etree.Element) int {
	next := 0
	for _, el := range root.SelectElements("w:comment") {
		if n := atoiDefault(el.SelectAttrValue("w:id", ""), -1); n >= next {
			next = n + 1
		}
	}
	return next
}

// newComment appends a w:comment to the comments part and returns it with
// the paraId of its paragraph.
func newComment(root *etree.Element, id int, author, initials, text string, now time.Time) (*etree.Element, string) {
	if initials == "" {
		initials = initialsOf(author)
	}
	el := root.CreateElement("w:comment")
	el.CreateAttr("w:id", strconv.Itoa(id))
	el.CreateAttr("w:author", author)
	el.CreateAttr("w:date", now.UTC().Format(w3cdtf))
	el.CreateAttr("w:initials", initials)
	paraID := newParaID()
	p := el.CreateElement("w:p")
	p.CreateAttr("w14:paraId", paraID)
	p.CreateElement("w:r").CreateElement("w:annotationRef")
	p.AddChild(newRun(text))
	return el, paraID
}

func referenceRun(id string) *etree.Element {
	r := etree.NewElement("w:r")
	r.CreateElement("w:commentReference").CreateAttr("w:id", id)
	return r
}

func commentMarker(tag, id string) *etree.Element {
	el := etree.NewElement("w:" + tag)
	el.CreateAttr("w:id", id)
	return el
}

// AddComment anchors a new comment to the whole body paragraph at index and
// returns its w:id.
func (d *Document) AddComment(index int, text, author, initials string) (string, error) {
	p, err := d.Paragraph(index)
	if err != nil {
		return "", err
	}
	doc, err := d.commentsPart(true)
	if err != nil {
		return "", err
	}
	ensureNamespace(doc.Root(), "w14", NsW14)
	n := nextCommentID(doc.Root())
	newComment(doc.Root(), n, author, initials, text, time.Now())
	id := strconv.Itoa(n)

	startAt := 0
	if pPr := p.el.SelectElement("w:pPr"); pPr != nil {
		startAt = pPr.Index() + 1
	}
	p.el.InsertChildAt(startAt, commentMarker("commentRangeStart", id))
	p.el.AddChild(commentMarker("commentRangeEnd", id))
	p.el.AddChild(referenceRun(id))
	return id, nil
}

// ResolveComment finds the comment a caller refers to. ref may be an
// ISO-8601 timestamp (matched within one second), a comment_N id, a raw
// w:id, or a 0-based position among top-level comments.
func ResolveComment(comments []Comment, ref string) (Comment, bool) {
	ref = strings.TrimSpace(ref)
	if t, ok := parseCommentTime(ref); ok && strings.Contains(ref, "-") {
		for _, c := range comments {
			if c.when.IsZero() {
				continue
			}
			diff := c.when.Sub(t)
			if diff < time.Second && diff > -time.Second {
				return c, true
			}
		}
		return Comment{}, false
	}
	for _, c := range comments {
		if c.ID == ref {
			return c, true
		}
	}
	for _, c := range comments {
		if c.CommentID == ref {
			return c, true
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 0 {
		var top []Comment
		for _, c := range comments {
			if c.ParentID == nil {
				top = append(top, c)
			}
		}
		if n < len(top) {
			return top[n], true
		}
	}
	return Comment{}, false
}

// threadRoot follows parent links up to the first comment of a thread.
func threadRoot(comments []Comment, c Comment) Comment {
	byID := map[string]Comment{}
	for _, x := range comments {
		byID[x.ID] = x
	}
	for seen := 0; c.ParentID != nil && seen < len(comments); seen++ {
		parent, ok := byID[*c.ParentID]
		if !ok {
			break
		}
		c = parent
	}
	return c
}

// ReplyToComment adds a threaded reply to the comment ref resolves to.
// Replies to replies attach to the thread root. It returns the w:id of the
// new comment.
func (d *Document) ReplyToComment(ref, text, author, initials string) (string, error) {
	comments, err := d.Comments()
	if err != nil {
		return "", err
	}
	target, ok := ResolveComment(comments, ref)
	if !ok || target.el == nil {
		return "", fmt.Errorf("%w: %s", ErrCommentNotFound, ref)
	}
	parent := threadRoot(comments, target)

	doc, err := d.commentsPart(true)
	if err != nil {
		return "", err
	}
	ensureNamespace(doc.Root(), "w14", NsW14)
	parentPara := lastParagraph(parent.el)
	if parentPara == nil {
		parentPara = parent.el.CreateElement("w:p")
	}
	parentParaID := parentPara.SelectAttrValue("w14:paraId", "")
	if parentParaID == "" {
		parentParaID = newParaID()
		parentPara.CreateAttr("w14:paraId", parentParaID)
	}

	id := nextCommentID(doc.Root())
	idStr := strconv.Itoa(id)
	_, replyParaID := newComment(doc.Root(), id, author, initials, text, time.Now())

	ext, err := d.commentsExtendedPart(true)
	if err != nil {
		return "", err
	}
	hasEntry := false
	for _, ex := range ext.Root().SelectElements("w15:commentEx") {
		if ex.SelectAttrValue("w15:paraId", "") == parentParaID {
			hasEntry = true
		}
	}
	if !hasEntry {
		ex := ext.Root().CreateElement("w15:commentEx")
		ex.CreateAttr("w15:paraId", parentParaID)
		ex.CreateAttr("w15:done", "0")
	}
	ex := ext.Root().CreateElement("w15:commentEx")
	ex.CreateAttr("w15:paraId", replyParaID)
	ex.CreateAttr("w15:paraIdParent", parentParaID)
	ex.CreateAttr("w15:done", "0")

	d.anchorReply(parent.CommentID, idStr)
	return idStr, nil
}

// anchorReply places the markers of a reply next to those of its parent.
func (d *Document) anchorReply(parentID, id string) {
	body := d.Body()
	match := func(tag string) *etree.Element {
		for _, el := range body.FindElements(".//w:" + tag) {
			if el.SelectAttrValue("w:id", "") == parentID {
				return el
			}
		}
		return nil
	}
	if start := match("commentRangeStart"); start != nil {
		insertAfter(start, commentMarker("commentRangeStart", id))
	}
	if end := match("commentRangeEnd"); end != nil {
		insertAfter(end, commentMarker("commentRangeEnd", id))
	}
	if ref := match("commentReference"); ref != nil {
		if run := ref.Parent(); run != nil && isW(run, "r") {
			insertAfter(run, referenceRun(id))
		}
	}
}
