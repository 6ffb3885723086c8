// Package handler implements the Word document MCP tools. Every handler
// decodes its arguments, checks out the document through the store, edits it
// with the ooxml engine and reports a user-facing message. Domain failures
// are returned as error results, never as Go errors.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mitchellh/mapstructure"

	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/logger"
	"office_word_mcp_server/pkg/tools/word/convert"
	"office_word_mcp_server/pkg/tools/word/crypt"
	"office_word_mcp_server/pkg/tools/word/ooxml"
)

// WordHandler serves the Word document tools.
type WordHandler struct {
	store *storage.Store
	pdf   *convert.PDFConverter
	log   *logger.Logger
}

// NewWordHandler creates a handler working on documents of store. pdf
// performs convert_to_pdf.
func NewWordHandler(store *storage.Store, pdf *convert.PDFConverter) *WordHandler {
	return &WordHandler{
		store: store,
		pdf:   pdf,
		log:   logger.New("word-handler", "", ""),
	}
}

// toolError carries a message meant for the MCP client as is.
type toolError string

func (e toolError) Error() string { return string(e) }

func failf(format string, args ...any) error {
	return toolError(fmt.Sprintf(format, args...))
}

// access describes how a tool uses its document.
type access struct {
	write bool
	// missing formats the message for a document that does not exist.
	missing string
}

var (
	readDoc    = access{missing: "Document %s does not exist"}
	writeDoc   = access{write: true, missing: "Document %s does not exist"}
	writeBlock = access{write: true, missing: "Document %s not found."}
)

// withDocument opens filename, runs op on it and saves the result when the
// access mode writes.
func (h *WordHandler) withDocument(ctx context.Context, filename string, mode access, op func(doc *ooxml.Document) (string, error)) (string, error) {
	filename = storage.EnsureDocxExtension(filename)
	handle, err := h.store.Checkout(ctx, filename)
	if err != nil {
		return "", failf("%v", err)
	}
	defer handle.Release()

	if !handle.Exists() {
		return "", failf(mode.missing, filename)
	}
	if mode.write {
		if ok, reason := storage.Writable(handle.Path); !ok {
			return "", failf("Cannot modify document: %s. Consider creating a copy first.", reason)
		}
	}
	doc, err := h.open(filename, handle.Path)
	if err != nil {
		return "", err
	}
	msg, err := op(doc)
	if err != nil {
		return "", err
	}
	if mode.write {
		if err := h.save(ctx, handle, doc); err != nil {
			return "", err
		}
	}
	return msg, nil
}

func (h *WordHandler) open(filename, path string) (*ooxml.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failf("Failed to read document %s: %v", filename, err)
	}
	if crypt.IsEncrypted(data) {
		return nil, failf("Document %s is password protected; unprotect it first", filename)
	}
	doc, err := ooxml.Load(data)
	if err != nil {
		return nil, failf("Failed to open document %s: %v", filename, err)
	}
	return doc, nil
}

func (h *WordHandler) save(ctx context.Context, handle *storage.Handle, doc *ooxml.Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return failf("Failed to save document: %v", err)
	}
	return h.saveBytes(ctx, handle, data)
}

func (h *WordHandler) saveBytes(ctx context.Context, handle *storage.Handle, data []byte) error {
	if err := handle.Save(data); err != nil {
		return failf("Failed to save document: %v", err)
	}
	if err := handle.Commit(ctx); err != nil {
		h.log.WithError(err).WithField("document", handle.Ref).Error("commit failed")
		return failf("Failed to save document: %v", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their argument names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeArgs fills out from the tool arguments and validates it. Numbers
// and booleans sent as strings are accepted.
func decodeArgs(ctx context.Context, req mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(req.GetArguments()); err != nil {
		return failf("Invalid parameter: %v", err)
	}
	if err := validate.StructCtx(ctx, out); err != nil {
		return invalidParams(err)
	}
	return nil
}

func invalidParams(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return failf("Invalid parameter: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag()))
		}
	}
	return failf("Invalid parameter: %s", strings.Join(msgs, "; "))
}

// textResult turns the outcome of a tool into its MCP result.
func textResult(msg string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// toJSON renders v the way every JSON tool answers: two space indentation.
func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", failf("Failed to encode result: %v", err)
	}
	return string(b), nil
}

func paragraphIndexError(doc *ooxml.Document) error {
	n := len(doc.Paragraphs())
	return failf("Invalid paragraph index. Document has %d paragraphs (0-%d).", n, n-1)
}
