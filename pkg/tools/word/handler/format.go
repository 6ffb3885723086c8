package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/pkg/tools/word/ooxml"
)

type formatTextArgs struct {
	Filename       string   `json:"filename" validate:"required"`
	ParagraphIndex *int     `json:"paragraph_index" validate:"required"`
	StartPos       *int     `json:"start_pos" validate:"required"`
	EndPos         *int     `json:"end_pos" validate:"required"`
	Bold           *bool    `json:"bold"`
	Italic         *bool    `json:"italic"`
	Underline      *bool    `json:"underline"`
	Color          string   `json:"color"`
	FontSize       *float64 `json:"font_size" validate:"omitempty,gt=0"`
	FontName       string   `json:"font_name"`
}

// HandleFormatText formats a character range of one paragraph.
func (h *WordHandler) HandleFormatText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args formatTextArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	index, start, end := *args.ParagraphIndex, *args.StartPos, *args.EndPos
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		p, err := doc.Paragraph(index)
		if err != nil {
			return "", paragraphIndexError(doc)
		}
		text := []rune(p.Text())
		err = doc.FormatText(index, start, end, ooxml.RunFormat{
			Bold:      args.Bold,
			Italic:    args.Italic,
			Underline: args.Underline,
			Color:     args.Color,
			FontSize:  args.FontSize,
			FontName:  args.FontName,
		})
		switch {
		case errors.Is(err, ooxml.ErrTextRange):
			return "", failf("Invalid text positions. Paragraph has %d characters.", len(text))
		case err != nil:
			return "", failf("Failed to format text: %v", err)
		}
		target := ""
		if end <= len(text) {
			target = string(text[start:end])
		}
		return fmt.Sprintf("Text '%s' formatted successfully in paragraph %d.", target, index), nil
	}))
}

type customStyleArgs struct {
	Filename  string   `json:"filename" validate:"required"`
	StyleName string   `json:"style_name" validate:"required"`
	Bold      *bool    `json:"bold"`
	Italic    *bool    `json:"italic"`
	FontSize  *float64 `json:"font_size" validate:"omitempty,gt=0"`
	FontName  string   `json:"font_name"`
	Color     string   `json:"color"`
	BaseStyle string   `json:"base_style"`
}

// HandleCreateCustomStyle defines or updates a paragraph style.
func (h *WordHandler) HandleCreateCustomStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args customStyleArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if args.Color != "" {
			if _, err := ooxml.ParseColor(args.Color); err != nil {
				return "", failf("Failed to create style: %v", err)
			}
		}
		styles, err := doc.Styles()
		if err != nil {
			return "", failf("Failed to create style: %v", err)
		}
		_, err = styles.AddCustom(ooxml.CustomStyle{
			Name:     args.StyleName,
			BasedOn:  args.BaseStyle,
			Bold:     args.Bold,
			Italic:   args.Italic,
			FontSize: args.FontSize,
			FontName: args.FontName,
			Color:    args.Color,
		})
		if err != nil {
			return "", failf("Failed to create style: %v", err)
		}
		return fmt.Sprintf("Style '%s' created successfully.", args.StyleName), nil
	}))
}
