package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/pkg/tools/word/ooxml"
)

// defaultCommentAuthor names the author of comments added without one.
const defaultCommentAuthor = "Current user"

type commentsResult struct {
	Success       bool            `json:"success"`
	Author        string          `json:"author,omitempty"`
	Comments      []ooxml.Comment `json:"comments"`
	TotalComments int             `json:"total_comments"`
}

type paragraphCommentsResult struct {
	Success        bool            `json:"success"`
	ParagraphIndex int             `json:"paragraph_index"`
	ParagraphText  string          `json:"paragraph_text"`
	Comments       []ooxml.Comment `json:"comments"`
	TotalComments  int             `json:"total_comments"`
}

type commentFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// commentResult renders the outcome of a comment tool. Failures keep the
// JSON shape of successes.
func commentResult(body string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		out, jerr := toJSON(commentFailure{Error: err.Error()})
		if jerr != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(out), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (h *WordHandler) allComments(doc *ooxml.Document) ([]ooxml.Comment, error) {
	comments, err := doc.Comments()
	if err != nil {
		return nil, failf("Failed to extract comments: %v", err)
	}
	if comments == nil {
		comments = []ooxml.Comment{}
	}
	return comments, nil
}

// HandleGetAllComments lists every comment with its anchor.
func (h *WordHandler) HandleGetAllComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args filenameArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return commentResult("", err)
	}
	return commentResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		comments, err := h.allComments(doc)
		if err != nil {
			return "", err
		}
		return toJSON(commentsResult{Success: true, Comments: comments, TotalComments: len(comments)})
	}))
}

type commentsByAuthorArgs struct {
	Filename string `json:"filename" validate:"required"`
	Author   string `json:"author"`
}

// HandleGetCommentsByAuthor lists the comments of one author, ignoring case.
func (h *WordHandler) HandleGetCommentsByAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args commentsByAuthorArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return commentResult("", err)
	}
	return commentResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		if strings.TrimSpace(args.Author) == "" {
			return "", failf("Author name cannot be empty")
		}
		comments, err := h.allComments(doc)
		if err != nil {
			return "", err
		}
		matched := ooxml.CommentsByAuthor(comments, args.Author)
		return toJSON(commentsResult{Success: true, Author: args.Author, Comments: matched, TotalComments: len(matched)})
	}))
}

// HandleGetCommentsForParagraph lists the comments anchored in one body
// paragraph.
func (h *WordHandler) HandleGetCommentsForParagraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args paragraphArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return commentResult("", err)
	}
	index := *args.ParagraphIndex
	return commentResult(h.withDocument(ctx, args.Filename, readDoc, func(doc *ooxml.Document) (string, error) {
		if index < 0 {
			return "", failf("Paragraph index must be non-negative")
		}
		p, err := doc.Paragraph(index)
		if err != nil {
			return "", failf("Paragraph index %d is out of range. Document has %d paragraphs.", index, len(doc.Paragraphs()))
		}
		comments, err := h.allComments(doc)
		if err != nil {
			return "", err
		}
		matched := ooxml.CommentsForParagraph(comments, index)
		return toJSON(paragraphCommentsResult{
			Success:        true,
			ParagraphIndex: index,
			ParagraphText:  p.Text(),
			Comments:       matched,
			TotalComments:  len(matched),
		})
	}))
}

type addCommentArgs struct {
	Filename       string `json:"filename" validate:"required"`
	ParagraphIndex *int   `json:"paragraph_index" validate:"required"`
	Text           string `json:"text" validate:"required"`
	Author         string `json:"author"`
	Initials       string `json:"initials"`
}

type addCommentResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	CommentID      string `json:"comment_id"`
	ParagraphIndex int    `json:"paragraph_index"`
	Text           string `json:"text"`
	Author         string `json:"author"`
}

// HandleAddComment anchors a new comment to a whole body paragraph.
func (h *WordHandler) HandleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addCommentArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return commentResult("", err)
	}
	author := args.Author
	if author == "" {
		author = defaultCommentAuthor
	}
	index := *args.ParagraphIndex
	return commentResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		id, err := doc.AddComment(index, args.Text, author, args.Initials)
		switch {
		case errors.Is(err, ooxml.ErrParagraphIndex):
			return "", failf("Paragraph index %d is out of range. Document has %d paragraphs.", index, len(doc.Paragraphs()))
		case err != nil:
			return "", failf("Failed to add comment: %v", err)
		}
		return toJSON(addCommentResult{
			Success:        true,
			Message:        fmt.Sprintf("Comment added to paragraph %d", index),
			CommentID:      id,
			ParagraphIndex: index,
			Text:           args.Text,
			Author:         author,
		})
	}))
}

type replyArgs struct {
	Filename  string `json:"filename" validate:"required"`
	CommentID string `json:"comment_id"`
	ReplyText string `json:"reply_text"`
	Author    string `json:"author"`
	Initials  string `json:"initials"`
}

type replyResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	CommentID string `json:"comment_id"`
	ReplyText string `json:"reply_text"`
	Author    string `json:"author"`
}

// HandleReplyToComment adds a threaded reply. The target may be given by
// timestamp, comment_N id, raw id or position.
func (h *WordHandler) HandleReplyToComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args replyArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return commentResult("", err)
	}
	author := args.Author
	if author == "" {
		author = defaultCommentAuthor
	}
	return commentResult(h.withDocument(ctx, args.Filename, writeDoc, func(doc *ooxml.Document) (string, error) {
		if strings.TrimSpace(args.CommentID) == "" {
			return "", failf("Comment ID cannot be empty")
		}
		if strings.TrimSpace(args.ReplyText) == "" {
			return "", failf("Reply text cannot be empty")
		}
		_, err := doc.ReplyToComment(args.CommentID, args.ReplyText, author, args.Initials)
		switch {
		case errors.Is(err, ooxml.ErrCommentNotFound):
			return "", failf("Comment with ID %s not found or could not be accessed.", args.CommentID)
		case err != nil:
			return "", failf("Failed to add reply to comment: %v", err)
		}
		return toJSON(replyResult{
			Success:   true,
			Message:   fmt.Sprintf("Reply added to comment %s", args.CommentID),
			CommentID: args.CommentID,
			ReplyText: args.ReplyText,
			Author:    author,
		})
	}))
}
