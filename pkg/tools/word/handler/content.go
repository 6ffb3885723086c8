package handler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/pkg/tools/word/ooxml"
)

type addParagraphArgs struct {
	Filename string `json:"filename" validate:"required"`
	Text     string `json:"text"`
	Style    string `json:"style"`
}

// HandleAddParagraph appends a paragraph. An unknown style falls back to
// Normal.
func (h *WordHandler) HandleAddParagraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addParagraphArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		note := ""
		_, err := doc.AddParagraph(args.Text, args.Style)
		if errors.Is(err, ooxml.ErrStyleNotFound) {
			note = fmt.Sprintf(" (style '%s' not found, used Normal)", args.Style)
			_, err = doc.AddParagraph(args.Text, "Normal")
		}
		if err != nil {
			return "", failf("Failed to add paragraph: %v", err)
		}
		return fmt.Sprintf("Paragraph added to %s%s", args.Filename, note), nil
	}))
}

type addHeadingArgs struct {
	Filename string `json:"filename" validate:"required"`
	Text     string `json:"text" validate:"required"`
	Level    *int   `json:"level" validate:"omitempty,gte=1,lte=9"`
}

// HandleAddHeading appends a "Heading N" paragraph.
func (h *WordHandler) HandleAddHeading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addHeadingArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	level := 1
	if args.Level != nil {
		level = *args.Level
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if _, err := doc.AddHeading(args.Text, level); err != nil {
			return "", failf("Failed to add heading: %v", err)
		}
		return fmt.Sprintf("Heading '%s' (level %d) added to %s", args.Text, level, args.Filename), nil
	}))
}

type addTableArgs struct {
	Filename string     `json:"filename" validate:"required"`
	Rows     int        `json:"rows" validate:"gte=1"`
	Cols     int        `json:"cols" validate:"gte=1"`
	Data     [][]string `json:"data"`
}

// HandleAddTable appends a table styled "Table Grid".
func (h *WordHandler) HandleAddTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addTableArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if _, err := doc.AddTable(args.Rows, args.Cols, args.Data); err != nil {
			return "", failf("Failed to add table: %v", err)
		}
		return fmt.Sprintf("Table (%dx%d) added to %s", args.Rows, args.Cols, args.Filename), nil
	}))
}

type addPictureArgs struct {
	Filename  string   `json:"filename" validate:"required"`
	ImagePath string   `json:"image_path" validate:"required"`
	Width     *float64 `json:"width" validate:"omitempty,gt=0"`
}

// HandleAddPicture appends an inline image. The image is read through the
// store, so it is subject to the same sandbox as documents.
func (h *WordHandler) HandleAddPicture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addPictureArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	img, err := h.store.Checkout(ctx, args.ImagePath)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer img.Release()
	if !img.Exists() {
		return textResult("", failf("Image file not found: %s", args.ImagePath))
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return textResult("", failf("Failed to add picture: %v", err))
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if _, err := doc.AddPicture(data, args.Width); err != nil {
			return "", failf("Failed to add picture: %v", err)
		}
		return fmt.Sprintf("Picture %s added to %s", args.ImagePath, args.Filename), nil
	}))
}

// HandleAddPageBreak appends a page break.
func (h *WordHandler) HandleAddPageBreak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		doc.AddPageBreak()
		return fmt.Sprintf("Page break added to %s.", args.Filename), nil
	}))
}

type paragraphArgs struct {
	Filename       string `json:"filename" validate:"required"`
	ParagraphIndex *int   `json:"paragraph_index" validate:"required"`
}

// HandleDeleteParagraph removes one body paragraph.
func (h *WordHandler) HandleDeleteParagraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args paragraphArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if err := doc.DeleteParagraph(*args.ParagraphIndex); err != nil {
			return "", paragraphIndexError(doc)
		}
		return fmt.Sprintf("Paragraph at index %d deleted successfully.", *args.ParagraphIndex), nil
	}))
}

type searchReplaceArgs struct {
	Filename    string `json:"filename" validate:"required"`
	FindText    string `json:"find_text" validate:"required"`
	ReplaceText string `json:"replace_text"`
}

// HandleSearchAndReplace replaces text while keeping run formatting.
func (h *WordHandler) HandleSearchAndReplace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchReplaceArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		n := doc.ReplaceText(args.FindText, args.ReplaceText)
		if n == 0 {
			return fmt.Sprintf("No occurrences of '%s' found.", args.FindText), nil
		}
		return fmt.Sprintf("Replaced %d occurrence(s) of '%s' with '%s'.", n, args.FindText, args.ReplaceText), nil
	}))
}

// resolveTarget finds the anchor paragraph of the insert tools, by index
// when one is given and by text otherwise.
func resolveTarget(doc *ooxml.Document, text string, index *int) (*ooxml.Paragraph, int, error) {
	if index != nil {
		p, err := doc.Paragraph(*index)
		if err != nil {
			return nil, 0, failf("Invalid target_paragraph_index: %d. Document has %d paragraphs.", *index, len(doc.Paragraphs()))
		}
		return p, *index, nil
	}
	i, ok := doc.FindParagraph(text)
	if !ok {
		return nil, 0, failf("Target paragraph not found (by index or text). (TOC paragraphs are skipped in text search)")
	}
	p, _ := doc.Paragraph(i)
	return p, i, nil
}

type insertHeaderArgs struct {
	Filename             string `json:"filename" validate:"required"`
	TargetText           string `json:"target_text"`
	HeaderTitle          string `json:"header_title" validate:"required"`
	Position             string `json:"position" validate:"omitempty,oneof=before after"`
	HeaderStyle          string `json:"header_style"`
	TargetParagraphIndex *int   `json:"target_paragraph_index"`
}

// HandleInsertHeaderNearText inserts a heading before or after an anchor
// paragraph.
func (h *WordHandler) HandleInsertHeaderNearText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args insertHeaderArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Position == "" {
		args.Position = "after"
	}
	if args.HeaderStyle == "" {
		args.HeaderStyle = "Heading 1"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		anchor, idx, err := resolveTarget(doc, args.TargetText, args.TargetParagraphIndex)
		if err != nil {
			return "", err
		}
		p, err := doc.NewParagraph(args.HeaderTitle, args.HeaderStyle)
		if err != nil {
			return "", failf("Failed to insert header: %v", err)
		}
		doc.InsertNear(anchor, args.Position == "before", p)
		return fmt.Sprintf("Header '%s' (style: %s) inserted %s paragraph (index %d).", args.HeaderTitle, args.HeaderStyle, args.Position, idx), nil
	}))
}

type insertLineArgs struct {
	Filename             string `json:"filename" validate:"required"`
	TargetText           string `json:"target_text"`
	LineText             string `json:"line_text"`
	Position             string `json:"position" validate:"omitempty,oneof=before after"`
	LineStyle            string `json:"line_style"`
	TargetParagraphIndex *int   `json:"target_paragraph_index"`
}

// HandleInsertLineOrParagraphNearText inserts a paragraph next to an anchor,
// in the anchor's style unless one is given.
func (h *WordHandler) HandleInsertLineOrParagraphNearText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args insertLineArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Position == "" {
		args.Position = "after"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		anchor, idx, err := resolveTarget(doc, args.TargetText, args.TargetParagraphIndex)
		if err != nil {
			return "", err
		}
		style := args.LineStyle
		if style == "" {
			style = anchor.StyleName()
		}
		p, err := doc.NewParagraph(args.LineText, style)
		if err != nil {
			return "", failf("Failed to insert line/paragraph: %v", err)
		}
		doc.InsertNear(anchor, args.Position == "before", p)
		return fmt.Sprintf("Line/paragraph inserted %s paragraph (index %d) with style '%s'.", args.Position, idx, style), nil
	}))
}

type insertListArgs struct {
	Filename             string   `json:"filename" validate:"required"`
	TargetText           string   `json:"target_text"`
	ListItems            []string `json:"list_items" validate:"required,min=1"`
	Position             string   `json:"position" validate:"omitempty,oneof=before after"`
	TargetParagraphIndex *int     `json:"target_paragraph_index"`
}

// HandleInsertNumberedListNearText inserts list items next to an anchor.
func (h *WordHandler) HandleInsertNumberedListNearText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args insertListArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Position == "" {
		args.Position = "after"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		anchor, idx, err := resolveTarget(doc, args.TargetText, args.TargetParagraphIndex)
		if err != nil {
			return "", err
		}
		style := doc.ListStyle()
		if style == "" {
			// Built in, created on demand together with its numbering.
			style = "List Number"
		}
		paras := make([]*ooxml.Paragraph, 0, len(args.ListItems))
		for _, item := range args.ListItems {
			p, err := doc.NewParagraph(item, style)
			if err != nil {
				return "", failf("Failed to insert numbered list: %v", err)
			}
			paras = append(paras, p)
		}
		doc.InsertNear(anchor, args.Position == "before", paras...)
		return fmt.Sprintf("Numbered list inserted %s paragraph (index %d).", args.Position, idx), nil
	}))
}

type replaceBelowHeaderArgs struct {
	Filename          string   `json:"filename" validate:"required"`
	HeaderText        string   `json:"header_text" validate:"required"`
	NewParagraphs     []string `json:"new_paragraphs"`
	NewParagraphStyle string   `json:"new_paragraph_style"`
}

// HandleReplaceParagraphBlockBelowHeader swaps the section under a header.
func (h *WordHandler) HandleReplaceParagraphBlockBelowHeader(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args replaceBelowHeaderArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	style := args.NewParagraphStyle
	if style == "" {
		style = "Normal"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeBlock, func(doc *ooxml.Document) (string, error) {
		removed, err := doc.ReplaceBelowHeader(args.HeaderText, args.NewParagraphs, style)
		switch {
		case errors.Is(err, ooxml.ErrHeaderNotFound):
			return "", failf("Header '%s' not found in document.", args.HeaderText)
		case err != nil:
			return "", failf("Failed to replace content: %v", err)
		}
		return fmt.Sprintf("Replaced content under '%s' with %d paragraph(s), style: %s, removed %d elements.",
			args.HeaderText, len(args.NewParagraphs), style, removed), nil
	}))
}

type replaceBetweenAnchorsArgs struct {
	Filename          string   `json:"filename" validate:"required"`
	StartAnchorText   string   `json:"start_anchor_text" validate:"required"`
	NewParagraphs     []string `json:"new_paragraphs"`
	EndAnchorText     string   `json:"end_anchor_text"`
	NewParagraphStyle string   `json:"new_paragraph_style"`
}

// HandleReplaceBlockBetweenManualAnchors swaps everything between two anchor
// paragraphs.
func (h *WordHandler) HandleReplaceBlockBetweenManualAnchors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args replaceBetweenAnchorsArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	style := args.NewParagraphStyle
	if style == "" {
		style = "Normal"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeBlock, func(doc *ooxml.Document) (string, error) {
		removed, err := doc.ReplaceBetweenAnchors(args.StartAnchorText, args.EndAnchorText, args.NewParagraphs, style)
		switch {
		case errors.Is(err, ooxml.ErrAnchorNotFound):
			return "", failf("Start anchor '%s' not found.", args.StartAnchorText)
		case err != nil:
			return "", failf("Failed to replace content: %v", err)
		}
		end := args.EndAnchorText
		if end == "" {
			end = "next logical header"
		}
		return fmt.Sprintf("Replaced content between '%s' and '%s' with %d paragraph(s), style: %s, removed %d elements.",
			args.StartAnchorText, end, len(args.NewParagraphs), style, removed), nil
	}))
}
