// Package crypt password protects Office packages. Protected files are
// ECMA-376 encrypted packages stored in a Compound File Binary container.
package crypt

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrWrongPassword is returned when decryption does not yield a package.
	ErrWrongPassword = errors.New("wrong password or unsupported encryption")
	// ErrNotEncrypted is returned when decrypting a plain package.
	ErrNotEncrypted = errors.New("document is not password protected")
	// ErrAlreadyEncrypted is returned when encrypting a protected file.
	ErrAlreadyEncrypted = errors.New("document is already password protected")
)

const oleStorage = "application/x-ole-storage"

// IsEncrypted reports whether data is a CFB container rather than a zip
// package.
func IsEncrypted(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(oleStorage) {
			return true
		}
	}
	return false
}

// Encrypt protects a plain package with password.
func Encrypt(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if IsEncrypted(data) {
		return nil, ErrAlreadyEncrypted
	}
	if !isPackage(data) {
		return nil, fmt.Errorf("not an Office package")
	}
	out, err := excelize.Encrypt(data, &excelize.Options{Password: password})
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return out, nil
}

// Decrypt removes the protection of an encrypted package.
func Decrypt(data []byte, password string) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, ErrNotEncrypted
	}
	out, err := decrypt(data, password)
	if err != nil || !isPackage(out) {
		return nil, ErrWrongPassword
	}
	return out, nil
}

// decrypt guards against panics on malformed containers.
func decrypt(data []byte, password string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decrypt: %v", r)
		}
	}()
	return excelize.Decrypt(data, &excelize.Options{Password: password})
}

// isPackage checks for a zip archive holding [Content_Types].xml.
func isPackage(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" {
			return true
		}
	}
	return false
}
