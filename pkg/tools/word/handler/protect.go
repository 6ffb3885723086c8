package handler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/tools/word/crypt"
)

type passwordArgs struct {
	Filename string `json:"filename" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// transform rewrites the raw bytes of a document in place.
func (h *WordHandler) transform(ctx context.Context, filename string, fn func(data []byte) ([]byte, error)) error {
	handle, err := h.store.Checkout(ctx, filename)
	if err != nil {
		return failf("%v", err)
	}
	defer handle.Release()
	if !handle.Exists() {
		return failf("Document %s does not exist", filename)
	}
	if ok, reason := storage.Writable(handle.Path); !ok {
		return failf("Cannot modify document: %s. Consider creating a copy first.", reason)
	}
	data, err := os.ReadFile(handle.Path)
	if err != nil {
		return failf("Failed to read document %s: %v", filename, err)
	}
	out, err := fn(data)
	if err != nil {
		return err
	}
	return h.saveBytes(ctx, handle, out)
}

// HandleProtectDocument encrypts a document with a password.
func (h *WordHandler) HandleProtectDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args passwordArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	filename := storage.EnsureDocxExtension(args.Filename)
	err := h.transform(ctx, filename, func(data []byte) ([]byte, error) {
		out, err := crypt.Encrypt(data, args.Password)
		switch {
		case errors.Is(err, crypt.ErrAlreadyEncrypted):
			return nil, failf("Document %s is already password protected", filename)
		case err != nil:
			return nil, failf("Failed to protect document: %v", err)
		}
		return out, nil
	})
	return textResult(fmt.Sprintf("Document %s encrypted successfully with password.", filename), err)
}

// HandleUnprotectDocument removes the password of a document.
func (h *WordHandler) HandleUnprotectDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args passwordArgs
	if err := decodeArgs(ctx, req, &args); err != nil {
		return textResult("", err)
	}
	filename := storage.EnsureDocxExtension(args.Filename)
	err := h.transform(ctx, filename, func(data []byte) ([]byte, error) {
		out, err := crypt.Decrypt(data, args.Password)
		switch {
		case errors.Is(err, crypt.ErrNotEncrypted):
			return nil, failf("Document %s is not password protected", filename)
		case errors.Is(err, crypt.ErrWrongPassword):
			return nil, failf("Failed to decrypt document: wrong password or unsupported encryption")
		case err != nil:
			return nil, failf("Failed to decrypt document: %v", err)
		}
		return out, nil
	})
	return textResult(fmt.Sprintf("Document %s decrypted successfully.", filename), err)
}
