package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/tools/word/convert"
)

type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// pdfRunner imitates LibreOffice; docx2pdf is never installed.
type pdfRunner struct{}

func (pdfRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	if name == "docx2pdf" || len(args) < 6 {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	outDir, in := args[4], args[5]
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".pdf"
	return "", os.WriteFile(filepath.Join(outDir, base), []byte("%PDF-1.4 fake"), 0o644)
}

func newTestHandler(t *testing.T) (*WordHandler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(config.DocumentsConfig{AllowedDirs: []string{dir}, DefaultDir: dir}, nil)
	require.NoError(t, err)
	pdf := convert.NewPDFConverter(convert.Options{Timeout: time.Second, Runner: pdfRunner{}}, nil)
	return NewWordHandler(store, pdf), dir
}

// call runs a tool and returns its text and whether it failed.
func call(t *testing.T, fn toolFunc, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func mustCall(t *testing.T, fn toolFunc, args map[string]any) string {
	t.Helper()
	out, isErr := call(t, fn, args)
	require.False(t, isErr, out)
	return out
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// newDocument creates report.docx with a heading and two paragraphs.
func newDocument(t *testing.T, h *WordHandler) {
	t.Helper()
	out := mustCall(t, h.HandleCreateDocument, map[string]any{"filename": "report", "title": "Quarterly", "author": "Ada"})
	assert.Equal(t, "Document report.docx created successfully", out)
	mustCall(t, h.HandleAddHeading, map[string]any{"filename": "report.docx", "text": "Summary", "level": 1})
	mustCall(t, h.HandleAddParagraph, map[string]any{"filename": "report.docx", "text": "Revenue grew strongly."})
	mustCall(t, h.HandleAddParagraph, map[string]any{"filename": "report.docx", "text": "Costs stayed flat."})
}

func TestCreateAndRead(t *testing.T) {
	h, dir := newTestHandler(t)
	newDocument(t, h)
	assert.FileExists(t, filepath.Join(dir, "report.docx"))

	text := mustCall(t, h.HandleGetDocumentText, map[string]any{"filename": "report.docx"})
	assert.Contains(t, text, "Summary")
	assert.Contains(t, text, "Costs stayed flat.")

	info := mustCall(t, h.HandleGetDocumentInfo, map[string]any{"filename": "report.docx"})
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(info), &m))
	assert.Equal(t, "Quarterly", m["title"])
	assert.Equal(t, "Ada", m["author"])

	outline := mustCall(t, h.HandleGetDocumentOutline, map[string]any{"filename": "report"})
	assert.Contains(t, outline, "Summary")
}

func TestMissingDocument(t *testing.T) {
	h, _ := newTestHandler(t)
	out, isErr := call(t, h.HandleGetDocumentText, map[string]any{"filename": "missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Document missing.docx does not exist", out)

	out, isErr = call(t, h.HandleReplaceParagraphBlockBelowHeader, map[string]any{"filename": "missing", "header_text": "X"})
	assert.True(t, isErr)
	assert.Equal(t, "Document missing.docx not found.", out)
}

func TestInvalidParameters(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out, isErr := call(t, h.HandleAddHeading, map[string]any{"filename": "report.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: text is required", out)

	out, isErr = call(t, h.HandleAddHeading, map[string]any{"filename": "report.docx", "text": "x", "level": 12})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: level must be at most 9", out)

	out, isErr = call(t, h.HandleAddTable, map[string]any{"filename": "report.docx", "rows": 0, "cols": 2})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: rows must be at least 1", out)

	// Numbers sent as strings are accepted.
	out = mustCall(t, h.HandleAddTable, map[string]any{"filename": "report.docx", "rows": "2", "cols": "3"})
	assert.Equal(t, "Table (2x3) added to report.docx", out)
}

func TestAddParagraphUnknownStyle(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)
	out := mustCall(t, h.HandleAddParagraph, map[string]any{"filename": "report.docx", "text": "x", "style": "Fancy"})
	assert.Equal(t, "Paragraph added to report.docx (style 'Fancy' not found, used Normal)", out)
}

func TestDeleteAndParagraphText(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out, isErr := call(t, h.HandleDeleteParagraph, map[string]any{"filename": "report.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: paragraph_index is required", out)

	out, isErr = call(t, h.HandleDeleteParagraph, map[string]any{"filename": "report.docx", "paragraph_index": 40})
	assert.True(t, isErr)
	assert.Contains(t, out, "Invalid paragraph index.")

	out = mustCall(t, h.HandleDeleteParagraph, map[string]any{"filename": "report.docx", "paragraph_index": 1})
	assert.Equal(t, "Paragraph at index 1 deleted successfully.", out)

	info := mustCall(t, h.HandleGetParagraphText, map[string]any{"filename": "report.docx", "paragraph_index": 1})
	assert.Contains(t, info, "Costs stayed flat.")

	out, isErr = call(t, h.HandleGetParagraphText, map[string]any{"filename": "report.docx", "paragraph_index": -1})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: paragraph_index must be a non-negative integer", out)
}

func TestSearchAndReplace(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleSearchAndReplace, map[string]any{"filename": "report.docx", "find_text": "flat", "replace_text": "low"})
	assert.Equal(t, "Replaced 1 occurrence(s) of 'flat' with 'low'.", out)
	out = mustCall(t, h.HandleSearchAndReplace, map[string]any{"filename": "report.docx", "find_text": "absent", "replace_text": "x"})
	assert.Equal(t, "No occurrences of 'absent' found.", out)

	found := mustCall(t, h.HandleFindTextInDocument, map[string]any{"filename": "report.docx", "text_to_find": "low"})
	assert.Contains(t, found, "Costs stayed low.")

	out, isErr := call(t, h.HandleFindTextInDocument, map[string]any{"filename": "report.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Search text cannot be empty", out)
}

func TestInsertNearText(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleInsertHeaderNearText, map[string]any{
		"filename": "report.docx", "target_text": "Revenue grew strongly.", "header_title": "Details",
	})
	assert.Equal(t, "Header 'Details' (style: Heading 1) inserted after paragraph (index 1).", out)

	out = mustCall(t, h.HandleInsertLineOrParagraphNearText, map[string]any{
		"filename": "report.docx", "target_paragraph_index": 0, "line_text": "Preface", "position": "before",
	})
	assert.Equal(t, "Line/paragraph inserted before paragraph (index 0) with style 'Heading 1'.", out)

	out = mustCall(t, h.HandleInsertNumberedListNearText, map[string]any{
		"filename": "report.docx", "target_text": "Costs stayed flat.", "list_items": []any{"one", "two"},
	})
	assert.Equal(t, "Numbered list inserted after paragraph (index 4).", out)

	out, isErr := call(t, h.HandleInsertHeaderNearText, map[string]any{
		"filename": "report.docx", "target_text": "nowhere", "header_title": "X",
	})
	assert.True(t, isErr)
	assert.Contains(t, out, "Target paragraph not found")

	out, isErr = call(t, h.HandleInsertHeaderNearText, map[string]any{
		"filename": "report.docx", "target_text": "Costs", "header_title": "X", "position": "middle",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid parameter: position must be one of: before, after", out)

	text := mustCall(t, h.HandleGetDocumentText, map[string]any{"filename": "report.docx"})
	assert.True(t, strings.Index(text, "Preface") < strings.Index(text, "Summary"))
	assert.True(t, strings.Index(text, "Details") < strings.Index(text, "Costs"))
}

func TestReplaceBlocks(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)
	mustCall(t, h.HandleAddHeading, map[string]any{"filename": "report.docx", "text": "Appendix", "level": 1})
	mustCall(t, h.HandleAddParagraph, map[string]any{"filename": "report.docx", "text": "Tail."})

	out := mustCall(t, h.HandleReplaceParagraphBlockBelowHeader, map[string]any{
		"filename": "report.docx", "header_text": "Summary", "new_paragraphs": []any{"Fresh text."},
	})
	assert.Contains(t, out, "Replaced content under 'Summary' with 1 paragraph(s)")

	text := mustCall(t, h.HandleGetDocumentText, map[string]any{"filename": "report.docx"})
	assert.Contains(t, text, "Fresh text.")
	assert.NotContains(t, text, "Revenue grew strongly.")
	assert.Contains(t, text, "Tail.")

	out, isErr := call(t, h.HandleReplaceParagraphBlockBelowHeader, map[string]any{
		"filename": "report.docx", "header_text": "Nope",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Header 'Nope' not found in document.", out)

	out, isErr = call(t, h.HandleReplaceBlockBetweenManualAnchors, map[string]any{
		"filename": "report.docx", "start_anchor_text": "Nope",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Start anchor 'Nope' not found.", out)
}

func TestFormatTextAndCustomStyle(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleFormatText, map[string]any{
		"filename": "report.docx", "paragraph_index": 1, "start_pos": 0, "end_pos": 7, "bold": true,
	})
	assert.Equal(t, "Text 'Revenue' formatted successfully in paragraph 1.", out)

	out, isErr := call(t, h.HandleFormatText, map[string]any{
		"filename": "report.docx", "paragraph_index": 1, "start_pos": 5, "end_pos": 500,
	})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid text positions. Paragraph has 22 characters.", out)

	out = mustCall(t, h.HandleCreateCustomStyle, map[string]any{
		"filename": "report.docx", "style_name": "Callout", "bold": true, "color": "red", "font_size": 14,
	})
	assert.Equal(t, "Style 'Callout' created successfully.", out)
	out = mustCall(t, h.HandleAddParagraph, map[string]any{"filename": "report.docx", "text": "Note", "style": "Callout"})
	assert.Equal(t, "Paragraph added to report.docx", out)
}

func TestComments(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleAddComment, map[string]any{
		"filename": "report.docx", "paragraph_index": 1, "text": "Source?", "author": "Grace",
	})
	var added addCommentResult
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.True(t, added.Success)
	assert.Equal(t, "Comment added to paragraph 1", added.Message)
	assert.NotEmpty(t, added.CommentID)

	out = mustCall(t, h.HandleReplyToComment, map[string]any{
		"filename": "report.docx", "comment_id": added.CommentID, "reply_text": "Annual report.",
	})
	var reply replyResult
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.True(t, reply.Success)
	assert.Equal(t, defaultCommentAuthor, reply.Author)

	out = mustCall(t, h.HandleGetAllComments, map[string]any{"filename": "report.docx"})
	var all commentsResult
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Equal(t, 2, all.TotalComments)

	out = mustCall(t, h.HandleGetCommentsByAuthor, map[string]any{"filename": "report.docx", "author": "grace"})
	var byAuthor commentsResult
	require.NoError(t, json.Unmarshal([]byte(out), &byAuthor))
	assert.Equal(t, 1, byAuthor.TotalComments)

	out = mustCall(t, h.HandleGetCommentsForParagraph, map[string]any{"filename": "report.docx", "paragraph_index": 1})
	var forPara paragraphCommentsResult
	require.NoError(t, json.Unmarshal([]byte(out), &forPara))
	assert.Equal(t, "Revenue grew strongly.", forPara.ParagraphText)
	assert.NotZero(t, forPara.TotalComments)

	out, isErr := call(t, h.HandleReplyToComment, map[string]any{
		"filename": "report.docx", "comment_id": "999", "reply_text": "x",
	})
	assert.True(t, isErr)
	var failure commentFailure
	require.NoError(t, json.Unmarshal([]byte(out), &failure))
	assert.False(t, failure.Success)
	assert.Equal(t, "Comment with ID 999 not found or could not be accessed.", failure.Error)

	out, isErr = call(t, h.HandleGetCommentsByAuthor, map[string]any{"filename": "report.docx", "author": " "})
	assert.True(t, isErr)
	assert.Contains(t, out, "Author name cannot be empty")
}

func TestPictures(t *testing.T) {
	h, dir := newTestHandler(t)
	newDocument(t, h)
	img := writePNG(t, dir, "chart.png", 144, 72)

	out, isErr := call(t, h.HandleAddPicture, map[string]any{"filename": "report.docx", "image_path": "nope.png"})
	assert.True(t, isErr)
	assert.Equal(t, "Image file not found: nope.png", out)

	out = mustCall(t, h.HandleListPictures, map[string]any{"filename": "report.docx"})
	assert.Equal(t, "No pictures found in report.docx", out)

	mustCall(t, h.HandleAddPicture, map[string]any{"filename": "report.docx", "image_path": img})
	mustCall(t, h.HandleAddPicture, map[string]any{"filename": "report.docx", "image_path": "chart.png", "width": 4})

	out = mustCall(t, h.HandleListPictures, map[string]any{"filename": "report.docx"})
	assert.True(t, strings.HasPrefix(out, "Found 2 picture(s) in report.docx:\n\nPicture 0:\n"), out)
	assert.Contains(t, out, "  Size: 2.0\" x 1.0\"\n  Alignment: undefined")
	assert.Contains(t, out, "  Size: 4.0\" x 2.0\"")

	out = mustCall(t, h.HandleResizePicture, map[string]any{"filename": "report.docx", "picture_index": 0, "width": 1})
	assert.Equal(t, "Picture 0 resized successfully from 2.00\"x1.00\" to 1.00\"x0.50\"", out)

	out, isErr = call(t, h.HandleResizePicture, map[string]any{"filename": "report.docx", "picture_index": 0})
	assert.True(t, isErr)
	assert.Equal(t, "Error: At least one of width or height must be specified", out)

	out, isErr = call(t, h.HandleAlignPicture, map[string]any{"filename": "report.docx", "picture_index": 5})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid picture index 5. Document contains 2 picture(s) (0-1)", out)

	out, isErr = call(t, h.HandleAlignPicture, map[string]any{"filename": "report.docx", "picture_index": 0, "alignment": "Middle"})
	assert.True(t, isErr)
	assert.Equal(t, "Invalid alignment 'middle'. Must be one of: left, center, right, justify", out)

	out = mustCall(t, h.HandleAlignPicturesBatch, map[string]any{
		"filename": "report.docx", "picture_indices": []any{0, 7}, "alignment": "right",
	})
	assert.True(t, strings.HasPrefix(out, "Batch alignment completed: 1 succeeded, 1 failed\n\n"), out)
	assert.Contains(t, out, "✓ Picture 0: Picture 0 aligned to right successfully")
	assert.Contains(t, out, "✗ Picture 7: Invalid picture index 7")

	out, isErr = call(t, h.HandleAlignPicturesBatch, map[string]any{"filename": "report.docx", "picture_indices": []any{}})
	assert.True(t, isErr)
	assert.Equal(t, "Error: picture_indices list is empty", out)

	out = mustCall(t, h.HandleProcessPicturesBySize, map[string]any{"filename": "report.docx", "min_width": 2})
	assert.Equal(t, "Found 1 matching picture(s): [1]. Please specify alignment or resize parameters to process them.", out)

	out, isErr = call(t, h.HandleProcessPicturesBySize, map[string]any{"filename": "report.docx", "min_width": 10})
	assert.True(t, isErr)
	assert.Equal(t, "No pictures match the criteria: width >= 10.0\"", out)

	out = mustCall(t, h.HandleProcessPicturesBySize, map[string]any{
		"filename": "report.docx", "max_width": 1.5, "alignment": "center", "resize_height": 1,
	})
	assert.True(t, strings.HasPrefix(out, "Processed 1 picture(s) matching criteria: indices [0]\n\nAlignment results:\n"), out)
	assert.Contains(t, out, "Resize results:\nBatch resize completed: 1 succeeded, 0 failed")

	out = mustCall(t, h.HandleAlignAllPictures, map[string]any{"filename": "report.docx"})
	assert.True(t, strings.HasPrefix(out, "Batch alignment completed: 2 succeeded, 0 failed"), out)

	out = mustCall(t, h.HandleResizeAllPictures, map[string]any{"filename": "report.docx", "height": 0.5})
	assert.True(t, strings.HasPrefix(out, "Batch resize completed: 2 succeeded, 0 failed"), out)

	out = mustCall(t, h.HandleListPictures, map[string]any{"filename": "report.docx"})
	assert.Contains(t, out, "  Size: 1.0\" x 0.5\"\n  Alignment: center")
}

func TestProtectAndUnprotect(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleProtectDocument, map[string]any{"filename": "report", "password": "s3cret"})
	assert.Equal(t, "Document report.docx encrypted successfully with password.", out)

	out, isErr := call(t, h.HandleGetDocumentText, map[string]any{"filename": "report.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Document report.docx is password protected; unprotect it first", out)

	out, isErr = call(t, h.HandleProtectDocument, map[string]any{"filename": "report.docx", "password": "again"})
	assert.True(t, isErr)
	assert.Equal(t, "Document report.docx is already password protected", out)

	out, isErr = call(t, h.HandleUnprotectDocument, map[string]any{"filename": "report.docx", "password": "wrong"})
	assert.True(t, isErr)
	assert.Equal(t, "Failed to decrypt document: wrong password or unsupported encryption", out)

	out = mustCall(t, h.HandleUnprotectDocument, map[string]any{"filename": "report.docx", "password": "s3cret"})
	assert.Equal(t, "Document report.docx decrypted successfully.", out)

	out, isErr = call(t, h.HandleUnprotectDocument, map[string]any{"filename": "report.docx", "password": "s3cret"})
	assert.True(t, isErr)
	assert.Equal(t, "Document report.docx is not password protected", out)

	text := mustCall(t, h.HandleGetDocumentText, map[string]any{"filename": "report.docx"})
	assert.Contains(t, text, "Revenue grew strongly.")
}

func TestCopyAndList(t *testing.T) {
	h, dir := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleCopyDocument, map[string]any{"source_filename": "report.docx"})
	assert.Equal(t, "Document copied to report_copy.docx", out)
	assert.FileExists(t, filepath.Join(dir, "report_copy.docx"))

	out, isErr := call(t, h.HandleCopyDocument, map[string]any{"source_filename": "ghost.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Source document ghost.docx does not exist", out)

	out = mustCall(t, h.HandleListAvailableDocuments, map[string]any{})
	assert.True(t, strings.HasPrefix(out, "Found 2 Word document(s) in .:\n- report.docx ("), out)
	assert.Contains(t, out, "- report_copy.docx (")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	out = mustCall(t, h.HandleListAvailableDocuments, map[string]any{"directory": "empty"})
	assert.Equal(t, "No Word documents found in empty", out)
}

func TestDocumentXML(t *testing.T) {
	h, _ := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleGetDocumentXML, map[string]any{"filename": "report.docx", "search_text": "Costs"})
	assert.Contains(t, out, "Costs stayed flat.")
	assert.Contains(t, out, "w:p")

	out, isErr := call(t, h.HandleGetDocumentXML, map[string]any{"filename": "report.docx", "search_text": "zzz"})
	assert.True(t, isErr)
	assert.Equal(t, "Paragraph containing 'zzz' not found.", out)
}

func TestConvertToMarkdown(t *testing.T) {
	h, dir := newTestHandler(t)
	newDocument(t, h)

	md := mustCall(t, h.HandleConvertToMarkdown, map[string]any{"filename": "report.docx"})
	assert.Contains(t, md, "# Summary")
	assert.Contains(t, md, "Revenue grew strongly.")

	out := mustCall(t, h.HandleConvertToMarkdown, map[string]any{"filename": "report.docx", "output_filename": "report"})
	assert.Equal(t, "Document successfully converted to Markdown: report.md", out)
	data, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	assert.Equal(t, md, string(data))
}

func TestConvertToPDF(t *testing.T) {
	h, dir := newTestHandler(t)
	newDocument(t, h)

	out := mustCall(t, h.HandleConvertToPDF, map[string]any{"filename": "report.docx"})
	assert.True(t, strings.HasPrefix(out, "Document successfully converted to PDF via "), out)
	assert.Contains(t, out, filepath.Join(dir, "report.pdf"))
	assert.FileExists(t, filepath.Join(dir, "report.pdf"))

	out, isErr := call(t, h.HandleConvertToPDF, map[string]any{"filename": "ghost.docx"})
	assert.True(t, isErr)
	assert.Equal(t, "Document ghost.docx does not exist", out)
}
