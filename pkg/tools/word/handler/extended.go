package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/circuitbreaker"
	"office_word_mcp_server/pkg/tools/word/convert"
	"office_word_mcp_server/pkg/tools/word/crypt"
	"office_word_mcp_server/pkg/tools/word/ooxml"
)

// HandleGetParagraphText describes one body paragraph.
func (h *WordHandler) HandleGetParagraphText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args paragraphArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	index := *args.ParagraphIndex
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		if index < 0 {
			return "", failf("Invalid parameter: paragraph_index must be a non-negative integer")
		}
		info, err := doc.ParagraphInfo(index)
		if err != nil {
			return "", failf("Invalid paragraph index: %d. Document has %d paragraphs.", index, len(doc.Paragraphs()))
		}
		return toJSON(info)
	}))
}

type findTextArgs struct {
	Filename   string `json:"filename" validate:"required"`
	TextToFind string `json:"text_to_find"`
	MatchCase  *bool  `json:"match_case"`
	WholeWord  bool   `json:"whole_word"`
}

// HandleFindTextInDocument lists the occurrences of a text in body and table
// paragraphs.
func (h *WordHandler) HandleFindTextInDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args findTextArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	matchCase := args.MatchCase == nil || *args.MatchCase
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		if args.TextToFind == "" {
			return "", failf("Search text cannot be empty")
		}
		return toJSON(doc.FindText(args.TextToFind, matchCase, args.WholeWord))
	}))
}

// HandleConvertToPDF converts a document with the first engine that works.
func (h *WordHandler) HandleConvertToPDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args convertArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	filename := storage.EnsureDocxExtension(args.Filename)
	src, err := h.store.Checkout(ctx, filename)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer src.Release()
	if !src.Exists() {
		return textResult("", failf("Document %s does not exist", filename))
	}
	if data, err := os.ReadFile(src.Path); err == nil && crypt.IsEncrypted(data) {
		return textResult("", failf("Document %s is password protected; unprotect it first", filename))
	}

	output := args.OutputFilename
	if output == "" {
		output = storage.WithExtension(filename, ".pdf")
	} else if filepath.Ext(output) != ".pdf" {
		output += ".pdf"
	}
	dst, err := h.store.Checkout(ctx, output)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer dst.Release()
	if !dst.IsRemote() {
		output = dst.Path
	}
	outDir := filepath.Dir(dst.Path)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return textResult("", failf("Cannot create PDF: %v (Path: %s, Dir: %s)", err, output, outDir))
	}
	if ok, reason := storage.Writable(dst.Path); !ok {
		return textResult("", failf("Cannot create PDF: %s (Path: %s, Dir: %s)", reason, output, outDir))
	}

	res, err := h.pdf.Convert(ctx, src.Path, dst.Path)
	if err != nil {
		var failure *convert.Failure
		if errors.As(err, &failure) {
			return textResult("", failure)
		}
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			h.log.Warn("pdf conversion rejected: circuit open")
		}
		return textResult("", failf("Failed to convert document to PDF: %v", err))
	}
	if err := dst.Commit(ctx); err != nil {
		return textResult("", failf("Failed to convert document to PDF: %v", err))
	}
	msg := fmt.Sprintf("Document successfully converted to PDF via %s: %s", res.Command, output)
	if res.Pages > 0 {
		msg += fmt.Sprintf(" (%d page(s))", res.Pages)
	}
	return textResult(msg, nil)
}
