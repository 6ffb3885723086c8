package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/internal/config"
)

type memObjects struct {
	objects map[string][]byte
}

func (m *memObjects) Download(_ context.Context, bucket, key, path string) error {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return ErrNotExist
	}
	return os.WriteFile(path, data, 0o644)
}

func (m *memObjects) Upload(_ context.Context, bucket, key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func TestEnsureDocxExtension(t *testing.T) {
	assert.Equal(t, "report.docx", EnsureDocxExtension("report"))
	assert.Equal(t, "report.docx", EnsureDocxExtension("report.docx"))
	assert.Equal(t, "notes.txt", EnsureDocxExtension("notes.txt"))
	assert.Equal(t, "minio://bucket/a.docx", EnsureDocxExtension("minio://bucket/a"))
	assert.Equal(t, "out/report.pdf", WithExtension("out/report.docx", ".pdf"))
}

func TestResolveSandbox(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	s, err := New(config.DocumentsConfig{AllowedDirs: []string{root}}, nil)
	require.NoError(t, err)

	inFile := filepath.Join(root, "a.docx")
	require.NoError(t, os.WriteFile(inFile, []byte("x"), 0o644))

	got, err := s.Resolve(inFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(inFile), filepath.Base(got))

	// New files are allowed when their parent is inside.
	_, err = s.Resolve(filepath.Join(root, "new.docx"))
	require.NoError(t, err)

	_, err = s.Resolve(filepath.Join(outside, "b.docx"))
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, err.Error(), "path outside allowed directories")

	// A sibling sharing the root as a name prefix is outside.
	_, err = s.Resolve(root + "-other/c.docx")
	require.ErrorIs(t, err, ErrAccessDenied)

	link := filepath.Join(root, "escape.docx")
	target := filepath.Join(outside, "secret.docx")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	if err := os.Symlink(target, link); err == nil {
		_, err = s.Resolve(link)
		require.ErrorIs(t, err, ErrAccessDenied)
	}
}

func TestResolveSandboxSymlinkedAncestor(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	s, err := New(config.DocumentsConfig{AllowedDirs: []string{root}}, nil)
	require.NoError(t, err)

	dirLink := filepath.Join(root, "link")
	if err := os.Symlink(outside, dirLink); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	// The missing directories below the link must not hide where it points.
	for _, p := range []string{
		filepath.Join(dirLink, "evil.docx"),
		filepath.Join(dirLink, "newdir", "evil.docx"),
		filepath.Join(dirLink, "a", "b", "evil.docx"),
	} {
		_, err := s.Resolve(p)
		require.ErrorIs(t, err, ErrAccessDenied, p)
	}

	h, err := s.Checkout(context.Background(), filepath.Join(dirLink, "newdir", "evil.docx"))
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Nil(t, h)
	assert.NoDirExists(t, filepath.Join(outside, "newdir"))

	// A dangling link would be followed on write.
	dangling := filepath.Join(root, "dangling.docx")
	require.NoError(t, os.Symlink(filepath.Join(outside, "later.docx"), dangling))
	_, err = s.Resolve(dangling)
	require.ErrorIs(t, err, ErrAccessDenied)

	// New directories under a real directory are still fine.
	got, err := s.Resolve(filepath.Join(root, "new", "deep", "ok.docx"))
	require.NoError(t, err)
	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realRoot, "new", "deep", "ok.docx"), got)
}

func TestResolveCanonicalisesSymlinks(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.DocumentsConfig{}, nil)
	require.NoError(t, err)

	file := filepath.Join(dir, "doc.docx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	alias := filepath.Join(dir, "alias")
	if err := os.Symlink(dir, alias); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	direct, err := s.Resolve(file)
	require.NoError(t, err)
	viaLink, err := s.Resolve(filepath.Join(alias, "doc.docx"))
	require.NoError(t, err)
	assert.Equal(t, direct, viaLink)
}

func TestResolveUnrestrictedUsesDefaultDir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.DocumentsConfig{DefaultDir: dir}, nil)
	require.NoError(t, err)
	got, err := s.Resolve("doc.docx")
	require.NoError(t, err)
	realDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realDir, "doc.docx"), got)
}

func TestCheckoutLocal(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.DocumentsConfig{AtomicWrite: true}, nil)
	require.NoError(t, err)

	h, err := s.Checkout(context.Background(), filepath.Join(dir, "sub", "x.docx"))
	require.NoError(t, err)
	defer h.Release()
	assert.False(t, h.IsRemote())
	assert.False(t, h.Exists())

	require.NoError(t, h.Save([]byte("data")))
	assert.True(t, h.Exists())
	require.NoError(t, h.Commit(context.Background()))
	got, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestCheckoutObject(t *testing.T) {
	objects := &memObjects{objects: map[string][]byte{"docs/in/report.docx": []byte("v1")}}
	s, err := New(config.DocumentsConfig{}, objects)
	require.NoError(t, err)
	ctx := context.Background()

	h, err := s.Checkout(ctx, "minio://docs/in/report.docx")
	require.NoError(t, err)
	assert.True(t, h.IsRemote())
	require.True(t, h.Exists())
	require.NoError(t, h.Save([]byte("v2")))
	require.NoError(t, h.Commit(ctx))
	tmp := filepath.Dir(h.Path)
	h.Release()

	assert.Equal(t, "v2", string(objects.objects["docs/in/report.docx"]))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err), "release removes the working copy")

	h, err = s.Checkout(ctx, "minio://docs/new.docx")
	require.NoError(t, err)
	defer h.Release()
	assert.False(t, h.Exists())

	noObjects, _ := New(config.DocumentsConfig{}, nil)
	_, err = noObjects.Checkout(ctx, "minio://docs/x.docx")
	require.Error(t, err)
}

func TestWritable(t *testing.T) {
	dir := t.TempDir()
	ok, msg := Writable(filepath.Join(dir, "new.docx"))
	assert.True(t, ok, msg)

	file := filepath.Join(dir, "ro.docx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o444))
	if os.Geteuid() != 0 {
		ok, msg = Writable(file)
		assert.False(t, ok)
		assert.Contains(t, msg, "not writeable")
	}

	ok, _ = Writable(dir)
	assert.False(t, ok)
}

func TestWriteFileAtomicKeepsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.docx")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	got, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(got))
}
