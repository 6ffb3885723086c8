package handler

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/pkg/tools/word/ooxml"
)

var alignmentNames = []string{"left", "center", "right", "justify"}

// pyFloat prints a float the way the picture messages always have: the
// shortest form, with a trailing ".0" for whole numbers.
func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func intList(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func checkAlignment(alignment string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(alignment))
	if _, ok := ooxml.Alignments[a]; !ok {
		return "", failf("Invalid alignment '%s'. Must be one of: %s", a, strings.Join(alignmentNames, ", "))
	}
	return a, nil
}

// HandleListPictures describes every picture with its size and alignment.
func (h *WordHandler) HandleListPictures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		pics := doc.Pictures()
		if len(pics) == 0 {
			return fmt.Sprintf("No pictures found in %s", args.Filename), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d picture(s) in %s:\n\n", len(pics), args.Filename)
		for _, p := range pics {
			fmt.Fprintf(&b, "Picture %d:\n", p.Index)
			fmt.Fprintf(&b, "  Location: %s\n", p.Location)
			fmt.Fprintf(&b, "  Size: %s\" x %s\"\n", pyFloat(round2(p.WidthInches())), pyFloat(round2(p.HeightInches())))
			fmt.Fprintf(&b, "  Alignment: %s\n\n", p.Alignment)
		}
		return strings.TrimSpace(b.String()), nil
	}))
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// pictureOp applies one picture edit and reports it the way the single
// picture tools do. ok is false when the edit failed.
type pictureOp func(doc *ooxml.Document, index int) (msg string, ok bool)

func pictureIndexMessage(filename string, index, count int) string {
	if count == 0 {
		return fmt.Sprintf("No pictures found in %s", filename)
	}
	return fmt.Sprintf("Invalid picture index %d. Document contains %d picture(s) (0-%d)", index, count, count-1)
}

func alignOp(filename, alignment string) pictureOp {
	return func(doc *ooxml.Document, index int) (string, bool) {
		if n := len(doc.Pictures()); index < 0 || index >= n {
			return pictureIndexMessage(filename, index, n), false
		}
		if err := doc.AlignPicture(index, alignment); err != nil {
			return fmt.Sprintf("Failed to align picture: %v", err), false
		}
		return fmt.Sprintf("Picture %d aligned to %s successfully", index, alignment), true
	}
}

func resizeOp(filename string, width, height *float64, keepAspect bool) pictureOp {
	return func(doc *ooxml.Document, index int) (string, bool) {
		if n := len(doc.Pictures()); index < 0 || index >= n {
			return pictureIndexMessage(filename, index, n), false
		}
		res, err := doc.ResizePicture(index, width, height, keepAspect)
		if err != nil {
			return fmt.Sprintf("Failed to resize picture: %v", err), false
		}
		return fmt.Sprintf("Picture %d resized successfully from %.2f\"x%.2f\" to %.2f\"x%.2f\"",
			index, res.FromWidth, res.FromHeight, res.ToWidth, res.ToHeight), true
	}
}

// runBatch applies op to each index and summarises the outcome.
func runBatch(doc *ooxml.Document, indices []int, kind string, op pictureOp) string {
	var lines []string
	succeeded, failed := 0, 0
	for _, idx := range indices {
		msg, ok := op(doc, idx)
		if ok {
			succeeded++
			lines = append(lines, fmt.Sprintf("✓ Picture %d: %s", idx, msg))
		} else {
			failed++
			lines = append(lines, fmt.Sprintf("✗ Picture %d: %s", idx, msg))
		}
	}
	return fmt.Sprintf("Batch %s completed: %d succeeded, %d failed\n\n%s", kind, succeeded, failed, strings.Join(lines, "\n"))
}

func allIndices(doc *ooxml.Document) []int {
	pics := doc.Pictures()
	out := make([]int, len(pics))
	for i := range pics {
		out[i] = i
	}
	return out
}

type resizePictureArgs struct {
	Filename            string   `json:"filename" validate:"required"`
	PictureIndex        *int     `json:"picture_index" validate:"required"`
	Width               *float64 `json:"width" validate:"omitempty,gt=0"`
	Height              *float64 `json:"height" validate:"omitempty,gt=0"`
	MaintainAspectRatio *bool    `json:"maintain_aspect_ratio"`
}

// HandleResizePicture sets the displayed size of one picture.
func (h *WordHandler) HandleResizePicture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resizePictureArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	keep := args.MaintainAspectRatio == nil || *args.MaintainAspectRatio
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if args.Width == nil && args.Height == nil {
			return "", failf("Error: At least one of width or height must be specified")
		}
		msg, ok := resizeOp(args.Filename, args.Width, args.Height, keep)(doc, *args.PictureIndex)
		if !ok {
			return "", failf("%s", msg)
		}
		return msg, nil
	}))
}

type alignPictureArgs struct {
	Filename     string `json:"filename" validate:"required"`
	PictureIndex *int   `json:"picture_index" validate:"required"`
	Alignment    string `json:"alignment"`
}

// HandleAlignPicture aligns the paragraph of one picture.
func (h *WordHandler) HandleAlignPicture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args alignPictureArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Alignment == "" {
		args.Alignment = "center"
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		alignment, err := checkAlignment(args.Alignment)
		if err != nil {
			return "", err
		}
		msg, ok := alignOp(args.Filename, alignment)(doc, *args.PictureIndex)
		if !ok {
			return "", failf("%s", msg)
		}
		return msg, nil
	}))
}

type alignBatchArgs struct {
	Filename       string `json:"filename" validate:"required"`
	PictureIndices []int  `json:"picture_indices"`
	Alignment      string `json:"alignment"`
}

// HandleAlignPicturesBatch aligns several pictures.
func (h *WordHandler) HandleAlignPicturesBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args alignBatchArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Alignment == "" {
		args.Alignment = "center"
	}
	alignment, err := checkAlignment(args.Alignment)
	if err != nil {
		return textResult("", err)
	}
	if len(args.PictureIndices) == 0 {
		return textResult("", failf("Error: picture_indices list is empty"))
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		return runBatch(doc, args.PictureIndices, "alignment", alignOp(args.Filename, alignment)), nil
	}))
}

type alignAllArgs struct {
	Filename  string `json:"filename" validate:"required"`
	Alignment string `json:"alignment"`
}

// HandleAlignAllPictures aligns every picture.
func (h *WordHandler) HandleAlignAllPictures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args alignAllArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Alignment == "" {
		args.Alignment = "center"
	}
	alignment, err := checkAlignment(args.Alignment)
	if err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		indices := allIndices(doc)
		if len(indices) == 0 {
			return "", failf("No pictures found in %s", args.Filename)
		}
		return runBatch(doc, indices, "alignment", alignOp(args.Filename, alignment)), nil
	}))
}

type resizeBatchArgs struct {
	Filename            string   `json:"filename" validate:"required"`
	PictureIndices      []int    `json:"picture_indices"`
	Width               *float64 `json:"width" validate:"omitempty,gt=0"`
	Height              *float64 `json:"height" validate:"omitempty,gt=0"`
	MaintainAspectRatio *bool    `json:"maintain_aspect_ratio"`
}

// HandleResizePicturesBatch resizes several pictures.
func (h *WordHandler) HandleResizePicturesBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resizeBatchArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if len(args.PictureIndices) == 0 {
		return textResult("", failf("Error: picture_indices list is empty"))
	}
	if args.Width == nil && args.Height == nil {
		return textResult("", failf("Error: At least one of width or height must be specified"))
	}
	keep := args.MaintainAspectRatio == nil || *args.MaintainAspectRatio
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		return runBatch(doc, args.PictureIndices, "resize", resizeOp(args.Filename, args.Width, args.Height, keep)), nil
	}))
}

type resizeAllArgs struct {
	Filename            string   `json:"filename" validate:"required"`
	Width               *float64 `json:"width" validate:"omitempty,gt=0"`
	Height              *float64 `json:"height" validate:"omitempty,gt=0"`
	MaintainAspectRatio *bool    `json:"maintain_aspect_ratio"`
}

// HandleResizeAllPictures resizes every picture.
func (h *WordHandler) HandleResizeAllPictures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resizeAllArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	if args.Width == nil && args.Height == nil {
		return textResult("", failf("Error: At least one of width or height must be specified"))
	}
	keep := args.MaintainAspectRatio == nil || *args.MaintainAspectRatio
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		indices := allIndices(doc)
		if len(indices) == 0 {
			return "", failf("No pictures found in %s", args.Filename)
		}
		return runBatch(doc, indices, "resize", resizeOp(args.Filename, args.Width, args.Height, keep)), nil
	}))
}

type pictureSizeFilterArgs struct {
	Filename     string   `json:"filename" validate:"required"`
	MinWidth     *float64 `json:"min_width"`
	MaxWidth     *float64 `json:"max_width"`
	MinHeight    *float64 `json:"min_height"`
	MaxHeight    *float64 `json:"max_height"`
	Alignment    string   `json:"alignment"`
	ResizeWidth  *float64 `json:"resize_width" validate:"omitempty,gt=0"`
	ResizeHeight *float64 `json:"resize_height" validate:"omitempty,gt=0"`
}

func (a pictureSizeFilterArgs) matches(p ooxml.Picture) bool {
	w, h := p.WidthInches(), p.HeightInches()
	switch {
	case a.MinWidth != nil && w < *a.MinWidth:
		return false
	case a.MaxWidth != nil && w > *a.MaxWidth:
		return false
	case a.MinHeight != nil && h < *a.MinHeight:
		return false
	case a.MaxHeight != nil && h > *a.MaxHeight:
		return false
	}
	return true
}

func (a pictureSizeFilterArgs) criteria() string {
	var c []string
	if a.MinWidth != nil {
		c = append(c, fmt.Sprintf("width >= %s\"", pyFloat(*a.MinWidth)))
	}
	if a.MaxWidth != nil {
		c = append(c, fmt.Sprintf("width <= %s\"", pyFloat(*a.MaxWidth)))
	}
	if a.MinHeight != nil {
		c = append(c, fmt.Sprintf("height >= %s\"", pyFloat(*a.MinHeight)))
	}
	if a.MaxHeight != nil {
		c = append(c, fmt.Sprintf("height <= %s\"", pyFloat(*a.MaxHeight)))
	}
	return strings.Join(c, ", ")
}

// HandleProcessPicturesBySize aligns or resizes the pictures within a size
// range.
func (h *WordHandler) HandleProcessPicturesBySize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args pictureSizeFilterArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	return textResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		pics := doc.Pictures()
		if len(pics) == 0 {
			return "", failf("No pictures found in %s", args.Filename)
		}
		var matched []int
		for _, p := range pics {
			if args.matches(p) {
				matched = append(matched, p.Index)
			}
		}
		if len(matched) == 0 {
			return "", failf("No pictures match the criteria: %s", args.criteria())
		}
		resize := args.ResizeWidth != nil || args.ResizeHeight != nil
		if args.Alignment == "" && !resize {
			return fmt.Sprintf("Found %d matching picture(s): %s. Please specify alignment or resize parameters to process them.",
				len(matched), intList(matched)), nil
		}

		var results []string
		if args.Alignment != "" {
			var out string
			if alignment, err := checkAlignment(args.Alignment); err != nil {
				out = err.Error()
			} else {
				out = runBatch(doc, matched, "alignment", alignOp(args.Filename, alignment))
			}
			results = append(results, "Alignment results:\n"+out)
		}
		if resize {
			out := runBatch(doc, matched, "resize", resizeOp(args.Filename, args.ResizeWidth, args.ResizeHeight, true))
			results = append(results, "Resize results:\n"+out)
		}
		return fmt.Sprintf("Processed %d picture(s) matching criteria: indices %s\n\n%s",
			len(matched), intList(matched), strings.Join(results, "\n\n")), nil
	}))
}
