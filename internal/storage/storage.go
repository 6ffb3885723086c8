// Package storage resolves document references to local working files.
// Plain paths are checked against the configured sandbox; minio://bucket/key
// references are downloaded to a temporary directory and uploaded back on
// commit.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"office_word_mcp_server/internal/config"
)

var (
	// ErrNotExist is returned when a referenced document does not exist.
	ErrNotExist = errors.New("document does not exist")
	// ErrAccessDenied is returned for paths outside the allowed directories.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotWritable is returned when a document cannot be saved.
	ErrNotWritable = errors.New("not writable")
)

// ObjectStore transfers objects between a bucket and local files.
type ObjectStore interface {
	// Download copies bucket/key to path. A missing object yields ErrNotExist.
	Download(ctx context.Context, bucket, key, path string) error
	Upload(ctx context.Context, bucket, key, path string) error
}

// Store hands out working copies of documents.
type Store struct {
	allowed    []string
	defaultDir string
	atomic     bool
	objects    ObjectStore
}

// New builds a store. objects may be nil, in which case minio references are
// rejected.
func New(cfg config.DocumentsConfig, objects ObjectStore) (*Store, error) {
	s := &Store{defaultDir: cfg.DefaultDir, atomic: cfg.AtomicWrite, objects: objects}
	for _, dir := range cfg.AllowedDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		abs, err := filepath.Abs(expandHome(dir))
		if err != nil {
			return nil, fmt.Errorf("allowed dir %s: %w", dir, err)
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		s.allowed = append(s.allowed, filepath.Clean(abs))
	}
	return s, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// AllowedDirs returns the sandbox roots. Empty means unrestricted.
func (s *Store) AllowedDirs() []string { return s.allowed }

// EnsureDocxExtension appends .docx to references without an extension.
func EnsureDocxExtension(ref string) string {
	if filepath.Ext(strings.TrimPrefix(ref, minioScheme)) == "" {
		return ref + ".docx"
	}
	return ref
}

// WithExtension replaces the extension of a path, keeping minio references
// in their bucket.
func WithExtension(ref, ext string) string {
	return strings.TrimSuffix(ref, filepath.Ext(ref)) + ext
}

func (s *Store) inside(path string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for _, dir := range s.allowed {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Resolve turns a local path into an absolute, symlink-free path. With
// allowed directories configured the real path must stay inside them. For
// files that do not exist yet the deepest existing ancestor is resolved and
// the missing tail joined back on.
func (s *Store) Resolve(path string) (string, error) {
	path = expandHome(path)
	if !filepath.IsAbs(path) && s.defaultDir != "" {
		path = filepath.Join(s.defaultDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	restricted := len(s.allowed) > 0
	if restricted && !s.inside(abs) {
		return "", fmt.Errorf("%w - path outside allowed directories: %s", ErrAccessDenied, abs)
	}
	resolved, err := realPath(abs)
	if errors.Is(err, errDanglingLink) {
		if restricted {
			return "", fmt.Errorf("%w - dangling symlink: %s", ErrAccessDenied, abs)
		}
		return abs, nil
	}
	if err != nil {
		return "", err
	}
	if restricted && !s.inside(resolved) {
		return "", fmt.Errorf("%w - symlink target outside allowed directories: %s", ErrAccessDenied, abs)
	}
	return resolved, nil
}

var errDanglingLink = errors.New("dangling symlink")

// realPath evaluates the symlinks of the deepest existing ancestor of abs
// and joins the missing components back on. A missing component that is
// itself a symlink would be followed on write, so it is reported.
func realPath(abs string) (string, error) {
	var tail []string
	p := abs
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if _, lerr := os.Lstat(p); lerr == nil {
			return "", errDanglingLink
		}
		parent := filepath.Dir(p)
		if parent == p {
			return abs, nil
		}
		tail = append([]string{filepath.Base(p)}, tail...)
		p = parent
	}
}

// Handle is a checked-out document.
type Handle struct {
	// Ref is the reference as given, with .docx appended where needed.
	Ref string
	// Path is the local working file.
	Path string

	store  *Store
	remote *objectRef
	tmpDir string
}

// IsRemote reports whether the handle is backed by object storage.
func (h *Handle) IsRemote() bool { return h.remote != nil }

// Exists reports whether the working file exists.
func (h *Handle) Exists() bool {
	info, err := os.Stat(h.Path)
	return err == nil && !info.IsDir()
}

// Checkout resolves ref to a local working file. The file itself may not
// exist yet. Callers must Release the handle.
func (s *Store) Checkout(ctx context.Context, ref string) (*Handle, error) {
	if obj, ok := parseObjectRef(ref); ok {
		return s.checkoutObject(ctx, ref, obj)
	}
	path, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return &Handle{Ref: ref, Path: path, store: s}, nil
}

func (s *Store) checkoutObject(ctx context.Context, ref string, obj *objectRef) (*Handle, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("object storage is not configured for %s", ref)
	}
	dir, err := os.MkdirTemp("", "word-mcp-*")
	if err != nil {
		return nil, err
	}
	h := &Handle{Ref: ref, Path: filepath.Join(dir, filepath.Base(obj.key)), store: s, remote: obj, tmpDir: dir}
	if err := s.objects.Download(ctx, obj.bucket, obj.key, h.Path); err != nil && !errors.Is(err, ErrNotExist) {
		h.Release()
		return nil, fmt.Errorf("download %s: %w", ref, err)
	}
	return h, nil
}

// Commit uploads the working file of an object handle. It is a no-op for
// local files, which are written in place.
func (h *Handle) Commit(ctx context.Context) error {
	if h.remote == nil || !h.Exists() {
		return nil
	}
	if err := h.store.objects.Upload(ctx, h.remote.bucket, h.remote.key, h.Path); err != nil {
		return fmt.Errorf("upload %s: %w", h.Ref, err)
	}
	return nil
}

// Release removes temporary files.
func (h *Handle) Release() {
	if h.tmpDir != "" {
		os.RemoveAll(h.tmpDir)
		h.tmpDir = ""
	}
}

// Save writes data to the working file, atomically when configured.
func (h *Handle) Save(data []byte) error {
	return h.store.WriteFile(h.Path, data)
}

// WriteFile writes data to a resolved local path, creating missing parent
// directories.
func (s *Store) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if s.atomic {
		return WriteFileAtomic(path, data, 0o644)
	}
	return os.WriteFile(path, data, 0o644)
}
