package handler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/gobwas/glob"
	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/tools/word/convert"
	"office_word_mcp_server/pkg/tools/word/ooxml"
)

type filenameArgs struct {
	Filename string `json:"filename" validate:"required"`
}

type createDocumentArgs struct {
	Filename string `json:"filename" validate:"required"`
	Title    string `json:"title"`
	Author   string `json:"author"`
}

// HandleCreateDocument creates a new document with the built-in styles.
func (h *WordHandler) HandleCreateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createDocumentArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	filename := storage.EnsureDocxExtension(args.Filename)
	handle, err := h.store.Checkout(ctx, filename)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer handle.Release()

	if ok, reason := storage.Writable(handle.Path); !ok {
		return textResult("", failf("Cannot create document: %s", reason))
	}
	doc, err := ooxml.New()
	if err != nil {
		return textResult("", failf("Failed to create document: %v", err))
	}
	if err := doc.SetCoreProperties(ooxml.CoreProperties{Title: args.Title, Author: args.Author}); err != nil {
		return textResult("", failf("Failed to create document: %v", err))
	}
	if err := h.save(ctx, handle, doc); err != nil {
		return textResult("", err)
	}
	return textResult(fmt.Sprintf("Document %s created successfully", filename), nil)
}

type copyDocumentArgs struct {
	SourceFilename      string `json:"source_filename" validate:"required"`
	DestinationFilename string `json:"destination_filename"`
}

// HandleCopyDocument copies a document byte for byte.
func (h *WordHandler) HandleCopyDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args copyDocumentArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	source := storage.EnsureDocxExtension(args.SourceFilename)
	dest := args.DestinationFilename
	if dest == "" {
		dest = storage.WithExtension(source, "") + "_copy.docx"
	}
	dest = storage.EnsureDocxExtension(dest)

	src, err := h.store.Checkout(ctx, source)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer src.Release()
	if !src.Exists() {
		return textResult("", failf("Source document %s does not exist", source))
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return textResult("", failf("Failed to copy document: %v", err))
	}

	dst, err := h.store.Checkout(ctx, dest)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer dst.Release()
	if ok, reason := storage.Writable(dst.Path); !ok {
		return textResult("", failf("Cannot copy document: %s", reason))
	}
	if err := h.saveBytes(ctx, dst, data); err != nil {
		return textResult("", err)
	}
	return textResult(fmt.Sprintf("Document copied to %s", dest), nil)
}

// HandleGetDocumentInfo reports core properties and body statistics.
func (h *WordHandler) HandleGetDocumentInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		info, err := doc.Info()
		if err != nil {
			return "", failf("Failed to get document info: %v", err)
		}
		return toJSON(info)
	}))
}

// HandleGetDocumentText returns all paragraph text, tables last.
func (h *WordHandler) HandleGetDocumentText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		return doc.Text(), nil
	}))
}

// HandleGetDocumentOutline summarises paragraphs and tables.
func (h *WordHandler) HandleGetDocumentOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		return toJSON(doc.Outline())
	}))
}

type listDocumentsArgs struct {
	Directory string `json:"directory"`
	Pattern   string `json:"pattern"`
	Recursive bool   `json:"recursive"`
}

type documentEntry struct {
	name     string
	size     int64
	modified time.Time
	created  time.Time
}

// HandleListAvailableDocuments lists documents in a local directory.
func (h *WordHandler) HandleListAvailableDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listDocumentsArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Directory == "" {
		args.Directory = "."
	}
	if args.Pattern == "" {
		args.Pattern = "*.docx"
	}
	if storage.IsObjectRef(args.Directory) {
		return textResult("", failf("Listing is only supported for local directories"))
	}
	dir, err := h.store.Resolve(args.Directory)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return textResult("", failf("Directory %s does not exist", args.Directory))
	}
	matcher, err := glob.Compile(args.Pattern)
	if err != nil {
		return textResult("", failf("Invalid pattern '%s': %v", args.Pattern, err))
	}

	entries, err := listDocuments(dir, matcher, args.Recursive)
	if err != nil {
		return textResult("", failf("Failed to list documents: %v", err))
	}
	if len(entries) == 0 {
		return textResult(fmt.Sprintf("No Word documents found in %s", args.Directory), nil)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d Word document(s) in %s:\n", len(entries), args.Directory)
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s (%.2f KB, modified %s", e.name, float64(e.size)/1024, e.modified.Format(time.RFC3339))
		if !e.created.IsZero() {
			fmt.Fprintf(&b, ", created %s", e.created.Format(time.RFC3339))
		}
		b.WriteString(")\n")
	}
	return textResult(strings.TrimRight(b.String(), "\n"), nil)
}

// listDocuments matches pattern against file names, or against paths
// relative to dir when recursing.
func listDocuments(dir string, pattern glob.Glob, recursive bool) ([]documentEntry, error) {
	var out []documentEntry
	add := func(path, name string) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		e := documentEntry{name: name, size: info.Size(), modified: info.ModTime()}
		if ts, err := times.Stat(path); err == nil && ts.HasBirthTime() {
			e.created = ts.BirthTime()
		}
		out = append(out, e)
	}
	if !recursive {
		items, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if !it.IsDir() && pattern.Match(it.Name()) {
				add(filepath.Join(dir, it.Name()), it.Name())
			}
		}
	} else {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subdirectories are skipped.
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, _ := filepath.Rel(dir, path)
			if pattern.Match(d.Name()) || pattern.Match(filepath.ToSlash(rel)) {
				add(path, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

type documentXMLArgs struct {
	Filename   string `json:"filename" validate:"required"`
	SearchText string `json:"search_text"`
}

// HandleGetDocumentXML returns the raw XML of the main part or of one
// paragraph.
func (h *WordHandler) HandleGetDocumentXML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args documentXMLArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		if args.SearchText == "" {
			xml, err := doc.XML()
			if err != nil {
				return "", failf("Failed to get document XML: %v", err)
			}
			return xml, nil
		}
		xml, found, err := doc.ParagraphXML(args.SearchText)
		switch {
		case err != nil:
			return "", failf("Failed to get paragraph XML: %v", err)
		case !found:
			return "", failf("Paragraph containing '%s' not found.", args.SearchText)
		}
		return xml, nil
	}))
}

type convertArgs struct {
	Filename       string `json:"filename" validate:"required"`
	OutputFilename string `json:"output_filename"`
}

// HandleConvertToMarkdown renders the document as Markdown. With an output
// file the Markdown is written there; otherwise it is returned.
func (h *WordHandler) HandleConvertToMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args convertArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	var markdown string
	_, err := h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		md, err := convert.Markdown(doc.HTML())
		if err != nil {
			return "", failf("Failed to convert document to Markdown: %v", err)
		}
		markdown = md
		return "", nil
	})
	if err != nil || args.OutputFilename == "" {
		return textResult(markdown, err)
	}

	output := args.OutputFilename
	if filepath.Ext(output) == "" {
		output += ".md"
	}
	handle, err := h.store.Checkout(ctx, output)
	if err != nil {
		return textResult("", failf("%v", err))
	}
	defer handle.Release()
	if ok, reason := storage.Writable(handle.Path); !ok {
		return textResult("", failf("Cannot create Markdown file: %s", reason))
	}
	if err := h.saveBytes(ctx, handle, []byte(markdown)); err != nil {
		return textResult("", err)
	}
	return textResult(fmt.Sprintf("Document successfully converted to Markdown: %s", output), nil)
}
