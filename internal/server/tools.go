package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/tools/word/handler"
)

// access tells the middleware how a tool treats its document.
type access int

const (
	// other tools neither cache nor lock.
	other access = iota
	// reads are cached by document version.
	reads
	// writes hold the document lock.
	writes
)

// Tool is a registered tool with the metadata the middleware needs.
type Tool struct {
	server.ServerTool
	access access
	// document extracts the document reference from the arguments.
	document func(args map[string]any) string
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func docArg(name string) func(map[string]any) string {
	return func(args map[string]any) string {
		if ref := stringArg(args, name); ref != "" {
			return storage.EnsureDocxExtension(ref)
		}
		return ""
	}
}

var (
	filenameDoc = docArg("filename")
	// copy_document writes its destination.
	copyDestination = func(args map[string]any) string {
		if dst := stringArg(args, "destination_filename"); dst != "" {
			return storage.EnsureDocxExtension(dst)
		}
		if src := stringArg(args, "source_filename"); src != "" {
			return storage.WithExtension(storage.EnsureDocxExtension(src), "") + "_copy.docx"
		}
		return ""
	}
)

var (
	stringList  = mcp.Items(map[string]any{"type": "string"})
	integerList = mcp.Items(map[string]any{"type": "integer"})
	stringTable = mcp.Items(map[string]any{"type": "array", "items": map[string]any{"type": "string"}})
)

func filenameParam() mcp.ToolOption {
	return mcp.WithString("filename", mcp.Required(), mcp.Description("Path of the Word document, or minio://bucket/key. .docx is appended when no extension is given."))
}

func positionParam() mcp.ToolOption {
	return mcp.WithString("position", mcp.Description("Insert before or after the target paragraph."), mcp.Enum("before", "after"), mcp.DefaultString("after"))
}

func targetParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("target_text", mcp.Description("Text of the paragraph to insert near. TOC paragraphs are skipped.")),
		mcp.WithNumber("target_paragraph_index", mcp.Description("Index of the paragraph to insert near. Takes precedence over target_text.")),
	}
}

func alignmentParam() mcp.ToolOption {
	return mcp.WithString("alignment", mcp.Description("Paragraph alignment of the picture."), mcp.Enum("left", "center", "right", "justify"), mcp.DefaultString("center"))
}

func sizeParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("width", mcp.Description("New width in inches.")),
		mcp.WithNumber("height", mcp.Description("New height in inches.")),
		mcp.WithBoolean("maintain_aspect_ratio", mcp.Description("Derive the missing dimension from the aspect ratio."), mcp.DefaultBool(true)),
	}
}

func newTool(name, description string, readOnly bool, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{mcp.WithDescription(description), mcp.WithReadOnlyHintAnnotation(readOnly)}, opts...)
	return mcp.NewTool(name, opts...)
}

func withOpts(base []mcp.ToolOption, more ...mcp.ToolOption) []mcp.ToolOption {
	return append(append([]mcp.ToolOption{}, base...), more...)
}

// Tools lists every Word tool served by h.
func Tools(h *handler.WordHandler) []Tool {
	add := func(tool mcp.Tool, fn server.ToolHandlerFunc, a access, doc func(map[string]any) string) Tool {
		return Tool{ServerTool: server.ServerTool{Tool: tool, Handler: fn}, access: a, document: doc}
	}
	return []Tool{
		// Document tools
		add(newTool("create_document", "Create a new Word document with optional metadata.", false,
			filenameParam(),
			mcp.WithString("title", mcp.Description("Document title.")),
			mcp.WithString("author", mcp.Description("Document author.")),
		), h.HandleCreateDocument, writes, filenameDoc),
		add(newTool("copy_document", "Create a copy of a Word document.", false,
			mcp.WithString("source_filename", mcp.Required(), mcp.Description("Document to copy.")),
			mcp.WithString("destination_filename", mcp.Description("Target path. Defaults to <name>_copy.docx.")),
		), h.HandleCopyDocument, writes, copyDestination),
		add(newTool("get_document_info", "Get the properties and statistics of a Word document.", true,
			filenameParam(),
		), h.HandleGetDocumentInfo, reads, filenameDoc),
		add(newTool("get_document_text", "Extract all text from a Word document, body paragraphs first, then tables.", true,
			filenameParam(),
		), h.HandleGetDocumentText, reads, filenameDoc),
		add(newTool("get_document_outline", "Get the paragraph and table structure of a Word document.", true,
			filenameParam(),
		), h.HandleGetDocumentOutline, reads, filenameDoc),
		add(newTool("list_available_documents", "List Word documents in a directory.", true,
			mcp.WithString("directory", mcp.Description("Directory to list."), mcp.DefaultString(".")),
			mcp.WithString("pattern", mcp.Description("Glob matched against file names."), mcp.DefaultString("*.docx")),
			mcp.WithBoolean("recursive", mcp.Description("Descend into subdirectories.")),
		), h.HandleListAvailableDocuments, other, nil),
		add(newTool("get_document_xml", "Get the raw body XML, or the XML of the first paragraph containing search_text.", true,
			filenameParam(),
			mcp.WithString("search_text", mcp.Description("Text of the paragraph to return.")),
		), h.HandleGetDocumentXML, reads, filenameDoc),
		add(newTool("convert_to_markdown", "Convert a Word document to Markdown.", false,
			filenameParam(),
			mcp.WithString("output_filename", mcp.Description("Write the Markdown here instead of returning it.")),
		), h.HandleConvertToMarkdown, other, filenameDoc),

		// Content tools
		add(newTool("add_paragraph", "Append a paragraph to a Word document.", false,
			filenameParam(),
			mcp.WithString("text", mcp.Required(), mcp.Description("Paragraph text.")),
			mcp.WithString("style", mcp.Description("Paragraph style name. Unknown styles fall back to Normal.")),
		), h.HandleAddParagraph, writes, filenameDoc),
		add(newTool("add_heading", "Append a heading to a Word document.", false,
			filenameParam(),
			mcp.WithString("text", mcp.Required(), mcp.Description("Heading text.")),
			mcp.WithNumber("level", mcp.Description("Heading level."), mcp.Min(1), mcp.Max(9), mcp.DefaultNumber(1)),
		), h.HandleAddHeading, writes, filenameDoc),
		add(newTool("add_table", "Append a table to a Word document.", false,
			filenameParam(),
			mcp.WithNumber("rows", mcp.Required(), mcp.Description("Number of rows."), mcp.Min(1)),
			mcp.WithNumber("cols", mcp.Required(), mcp.Description("Number of columns."), mcp.Min(1)),
			mcp.WithArray("data", mcp.Description("Cell texts, row by row."), stringTable),
		), h.HandleAddTable, writes, filenameDoc),
		add(newTool("add_picture", "Append an image to a Word document.", false,
			filenameParam(),
			mcp.WithString("image_path", mcp.Required(), mcp.Description("Path of the image file.")),
			mcp.WithNumber("width", mcp.Description("Width in inches. The height keeps the aspect ratio.")),
		), h.HandleAddPicture, writes, filenameDoc),
		add(newTool("add_page_break", "Append a page break to a Word document.", false,
			filenameParam(),
		), h.HandleAddPageBreak, writes, filenameDoc),
		add(newTool("delete_paragraph", "Delete a paragraph by index.", false,
			filenameParam(),
			mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("0-based paragraph index.")),
		), h.HandleDeleteParagraph, writes, filenameDoc),
		add(newTool("search_and_replace", "Replace every occurrence of a text, keeping the formatting of the runs.", false,
			filenameParam(),
			mcp.WithString("find_text", mcp.Required(), mcp.Description("Text to find.")),
			mcp.WithString("replace_text", mcp.Required(), mcp.Description("Replacement text.")),
		), h.HandleSearchAndReplace, writes, filenameDoc),
		add(newTool("insert_header_near_text", "Insert a heading before or after a target paragraph.", false,
			withOpts(targetParams(),
				filenameParam(),
				mcp.WithString("header_title", mcp.Required(), mcp.Description("Heading text.")),
				positionParam(),
				mcp.WithString("header_style", mcp.Description("Heading style."), mcp.DefaultString("Heading 1")),
			)...,
		), h.HandleInsertHeaderNearText, writes, filenameDoc),
		add(newTool("insert_line_or_paragraph_near_text", "Insert a paragraph before or after a target paragraph.", false,
			withOpts(targetParams(),
				filenameParam(),
				mcp.WithString("line_text", mcp.Description("Paragraph text.")),
				positionParam(),
				mcp.WithString("line_style", mcp.Description("Paragraph style. Defaults to the style of the target.")),
			)...,
		), h.HandleInsertLineOrParagraphNearText, writes, filenameDoc),
		add(newTool("insert_numbered_list_near_text", "Insert a numbered list before or after a target paragraph.", false,
			withOpts(targetParams(),
				filenameParam(),
				mcp.WithArray("list_items", mcp.Required(), mcp.Description("List item texts."), stringList),
				positionParam(),
			)...,
		), h.HandleInsertNumberedListNearText, writes, filenameDoc),
		add(newTool("replace_paragraph_block_below_header", "Replace the paragraphs under a heading, up to the next heading.", false,
			filenameParam(),
			mcp.WithString("header_text", mcp.Required(), mcp.Description("Text of the heading.")),
			mcp.WithArray("new_paragraphs", mcp.Required(), mcp.Description("Paragraphs to insert."), stringList),
			mcp.WithString("new_paragraph_style", mcp.Description("Style of the new paragraphs."), mcp.DefaultString("Normal")),
		), h.HandleReplaceParagraphBlockBelowHeader, writes, filenameDoc),
		add(newTool("replace_block_between_manual_anchors", "Replace everything between two anchor paragraphs.", false,
			filenameParam(),
			mcp.WithString("start_anchor_text", mcp.Required(), mcp.Description("Text of the start anchor.")),
			mcp.WithArray("new_paragraphs", mcp.Required(), mcp.Description("Paragraphs to insert."), stringList),
			mcp.WithString("end_anchor_text", mcp.Description("Text of the end anchor. Defaults to the next heading-like paragraph.")),
			mcp.WithString("new_paragraph_style", mcp.Description("Style of the new paragraphs."), mcp.DefaultString("Normal")),
		), h.HandleReplaceBlockBetweenManualAnchors, writes, filenameDoc),

		// Formatting tools
		add(newTool("format_text", "Format a character range within a paragraph.", false,
			filenameParam(),
			mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("0-based paragraph index.")),
			mcp.WithNumber("start_pos", mcp.Required(), mcp.Description("First character, 0-based.")),
			mcp.WithNumber("end_pos", mcp.Required(), mcp.Description("Character after the range.")),
			mcp.WithBoolean("bold", mcp.Description("Bold.")),
			mcp.WithBoolean("italic", mcp.Description("Italic.")),
			mcp.WithBoolean("underline", mcp.Description("Underline.")),
			mcp.WithString("color", mcp.Description("Hex RGB (FF0000) or a color name.")),
			mcp.WithNumber("font_size", mcp.Description("Font size in points.")),
			mcp.WithString("font_name", mcp.Description("Font family.")),
		), h.HandleFormatText, writes, filenameDoc),
		add(newTool("create_custom_style", "Create or update a paragraph style.", false,
			filenameParam(),
			mcp.WithString("style_name", mcp.Required(), mcp.Description("Style name.")),
			mcp.WithBoolean("bold", mcp.Description("Bold.")),
			mcp.WithBoolean("italic", mcp.Description("Italic.")),
			mcp.WithNumber("font_size", mcp.Description("Font size in points.")),
			mcp.WithString("font_name", mcp.Description("Font family.")),
			mcp.WithString("color", mcp.Description("Hex RGB (FF0000) or a color name.")),
			mcp.WithString("base_style", mcp.Description("Style to inherit from.")),
		), h.HandleCreateCustomStyle, writes, filenameDoc),

		// Extended tools
		add(newTool("get_paragraph_text_from_document", "Get the text and style of one paragraph.", true,
			filenameParam(),
			mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("0-based paragraph index.")),
		), h.HandleGetParagraphText, reads, filenameDoc),
		add(newTool("find_text_in_document", "Find the occurrences of a text in paragraphs and table cells.", true,
			filenameParam(),
			mcp.WithString("text_to_find", mcp.Required(), mcp.Description("Text to search for.")),
			mcp.WithBoolean("match_case", mcp.Description("Case-sensitive search."), mcp.DefaultBool(true)),
			mcp.WithBoolean("whole_word", mcp.Description("Match whole words only.")),
		), h.HandleFindTextInDocument, reads, filenameDoc),
		add(newTool("convert_to_pdf", "Convert a Word document to PDF with LibreOffice or docx2pdf.", false,
			filenameParam(),
			mcp.WithString("output_filename", mcp.Description("PDF path. Defaults to the document name with .pdf.")),
		), h.HandleConvertToPDF, other, filenameDoc),

		// Comment tools
		add(newTool("get_all_comments", "List every comment of a Word document.", true,
			filenameParam(),
		), h.HandleGetAllComments, reads, filenameDoc),
		add(newTool("get_comments_by_author", "List the comments of one author.", true,
			filenameParam(),
			mcp.WithString("author", mcp.Required(), mcp.Description("Author name, case-insensitive.")),
		), h.HandleGetCommentsByAuthor, reads, filenameDoc),
		add(newTool("get_comments_for_paragraph", "List the comments anchored in one paragraph.", true,
			filenameParam(),
			mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("0-based paragraph index.")),
		), h.HandleGetCommentsForParagraph, reads, filenameDoc),
		add(newTool("add_comment", "Add a comment covering a whole paragraph.", false,
			filenameParam(),
			mcp.WithNumber("paragraph_index", mcp.Required(), mcp.Description("0-based paragraph index.")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Comment text.")),
			mcp.WithString("author", mcp.Description("Comment author.")),
			mcp.WithString("initials", mcp.Description("Author initials.")),
		), h.HandleAddComment, writes, filenameDoc),
		add(newTool("reply_to_comment", "Reply to a comment. The comment is found by timestamp, comment_N id, raw id or position.", false,
			filenameParam(),
			mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment reference.")),
			mcp.WithString("reply_text", mcp.Required(), mcp.Description("Reply text.")),
			mcp.WithString("author", mcp.Description("Reply author.")),
			mcp.WithString("initials", mcp.Description("Author initials.")),
		), h.HandleReplyToComment, writes, filenameDoc),

		// Picture tools
		add(newTool("list_pictures", "List the pictures of a Word document with their size and alignment.", true,
			filenameParam(),
		), h.HandleListPictures, reads, filenameDoc),
		add(newTool("resize_picture", "Resize one picture.", false,
			withOpts(sizeParams(),
				filenameParam(),
				mcp.WithNumber("picture_index", mcp.Required(), mcp.Description("0-based picture index.")),
			)...,
		), h.HandleResizePicture, writes, filenameDoc),
		add(newTool("align_picture", "Align one picture.", false,
			filenameParam(),
			mcp.WithNumber("picture_index", mcp.Required(), mcp.Description("0-based picture index.")),
			alignmentParam(),
		), h.HandleAlignPicture, writes, filenameDoc),
		add(newTool("align_pictures_batch", "Align several pictures.", false,
			filenameParam(),
			mcp.WithArray("picture_indices", mcp.Required(), mcp.Description("0-based picture indices."), integerList),
			alignmentParam(),
		), h.HandleAlignPicturesBatch, writes, filenameDoc),
		add(newTool("align_all_pictures", "Align every picture.", false,
			filenameParam(),
			alignmentParam(),
		), h.HandleAlignAllPictures, writes, filenameDoc),
		add(newTool("resize_pictures_batch", "Resize several pictures.", false,
			withOpts(sizeParams(),
				filenameParam(),
				mcp.WithArray("picture_indices", mcp.Required(), mcp.Description("0-based picture indices."), integerList),
			)...,
		), h.HandleResizePicturesBatch, writes, filenameDoc),
		add(newTool("resize_all_pictures", "Resize every picture.", false,
			withOpts(sizeParams(), filenameParam())...,
		), h.HandleResizeAllPictures, writes, filenameDoc),
		add(newTool("process_pictures_by_size", "Align or resize the pictures within a size range.", false,
			filenameParam(),
			mcp.WithNumber("min_width", mcp.Description("Minimum width in inches.")),
			mcp.WithNumber("max_width", mcp.Description("Maximum width in inches.")),
			mcp.WithNumber("min_height", mcp.Description("Minimum height in inches.")),
			mcp.WithNumber("max_height", mcp.Description("Maximum height in inches.")),
			mcp.WithString("alignment", mcp.Description("Alignment for the matching pictures."), mcp.Enum("left", "center", "right", "justify")),
			mcp.WithNumber("resize_width", mcp.Description("New width in inches.")),
			mcp.WithNumber("resize_height", mcp.Description("New height in inches.")),
		), h.HandleProcessPicturesBySize, writes, filenameDoc),

		// Protection tools
		add(newTool("protect_document", "Encrypt a Word document with a password.", false,
			filenameParam(),
			mcp.WithString("password", mcp.Required(), mcp.Description("Password.")),
		), h.HandleProtectDocument, writes, filenameDoc),
		add(newTool("unprotect_document", "Remove the password of a Word document.", false,
			filenameParam(),
			mcp.WithString("password", mcp.Required(), mcp.Description("Password.")),
		), h.HandleUnprotectDocument, writes, filenameDoc),
	}
}
