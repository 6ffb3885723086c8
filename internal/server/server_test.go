package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/internal/audit"
	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/lock"
	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/lru"
	"office_word_mcp_server/pkg/tools/word/convert"
	"office_word_mcp_server/pkg/tools/word/handler"
)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Publish(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

func newTestStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(config.DocumentsConfig{AllowedDirs: []string{dir}, DefaultDir: dir}, nil)
	require.NoError(t, err)
	return store, dir
}

func newTestServer(t *testing.T, pub audit.Publisher) (*Server, string) {
	t.Helper()
	store, dir := newTestStore(t)
	cache, err := lru.New(lru.Config[string, string]{Capacity: 32})
	require.NoError(t, err)
	pdf := convert.NewPDFConverter(convert.Options{Timeout: time.Second}, nil)
	s, err := New(Deps{
		Config:  config.Default(),
		Store:   store,
		Handler: handler.NewWordHandler(store, pdf),
		Audit:   pub,
		Cache:   cache,
	})
	require.NoError(t, err)
	return s, dir
}

func TestToolsRegistry(t *testing.T) {
	store, _ := newTestStore(t)
	tools := Tools(handler.NewWordHandler(store, convert.NewPDFConverter(convert.Options{}, nil)))
	require.Len(t, tools, 40)

	seen := make(map[string]bool)
	for _, tool := range tools {
		assert.False(t, seen[tool.Tool.Name], "duplicate tool %s", tool.Tool.Name)
		seen[tool.Tool.Name] = true
		assert.NotNil(t, tool.Handler, tool.Tool.Name)
		assert.NotEmpty(t, tool.Tool.Description, tool.Tool.Name)
		if tool.access != other {
			assert.NotNil(t, tool.document, "%s needs a document extractor", tool.Tool.Name)
		}
	}
	for _, name := range []string{"create_document", "convert_to_pdf", "protect_document", "process_pictures_by_size", "get_comments_by_author"} {
		assert.True(t, seen[name], name)
	}
}

func TestCopyDestination(t *testing.T) {
	assert.Equal(t, "b.docx", copyDestination(map[string]any{"source_filename": "a", "destination_filename": "b"}))
	assert.Equal(t, "a_copy.docx", copyDestination(map[string]any{"source_filename": "a.docx"}))
	assert.Equal(t, "", copyDestination(map[string]any{}))
}

func TestServerEndToEnd(t *testing.T) {
	rec := &recorder{}
	s, dir := newTestServer(t, rec)
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCP())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1.0.0"}
	initRes, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "word-document-server", initRes.ServerInfo.Name)

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Tools, 40)

	callTool := func(name string, args map[string]any) *mcp.CallToolResult {
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := c.CallTool(ctx, req)
		require.NoError(t, err)
		return res
	}

	res := callTool("create_document", map[string]any{"filename": "notes"})
	require.False(t, res.IsError, resultText(res))
	assert.FileExists(t, filepath.Join(dir, "notes.docx"))

	res = callTool("add_paragraph", map[string]any{"filename": "notes", "text": "First line"})
	require.False(t, res.IsError, resultText(res))

	res = callTool("get_document_text", map[string]any{"filename": "notes"})
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "First line")

	// The write after the cached read must be visible.
	res = callTool("add_paragraph", map[string]any{"filename": "notes", "text": "Second line"})
	require.False(t, res.IsError, resultText(res))
	res = callTool("get_document_text", map[string]any{"filename": "notes"})
	assert.Contains(t, resultText(res), "Second line")

	res = callTool("get_document_text", map[string]any{"filename": "absent"})
	assert.True(t, res.IsError)

	events := rec.all()
	require.Len(t, events, 6)
	for _, e := range events {
		assert.NotEmpty(t, e.TraceID)
	}
	assert.Equal(t, "create_document", events[0].Tool)
	assert.Equal(t, "notes.docx", events[0].Document)
	assert.True(t, events[0].Success)
	assert.Equal(t, "absent.docx", events[5].Document)
	assert.False(t, events[5].Success)
}

func TestServeUnknownTransport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.cfg.Server.Transport = "carrier-pigeon"
	assert.Error(t, s.Serve(context.Background()))
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{Config: config.Default()})
	assert.Error(t, err)
}

// counting returns a handler that reports how often it ran.
func counting(text string, isErr bool, calls *int) server.ToolHandlerFunc {
	return func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		*calls++
		if isErr {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestCacheMiddleware(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.docx"), []byte("x"), 0o644))
	docs := newDocuments(store)
	tools := map[string]Tool{
		"get_document_text": {access: reads, document: filenameDoc},
		"add_paragraph":     {access: writes, document: filenameDoc},
	}
	cache, err := lru.New(lru.Config[string, string]{Capacity: 8})
	require.NoError(t, err)
	mw := cacheMiddleware(cache, docs, tools)
	ctx := context.Background()

	calls := 0
	h := mw(counting("text", false, &calls))
	req := request("get_document_text", map[string]any{"filename": "a"})
	for i := 0; i < 3; i++ {
		res, err := h(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "text", resultText(res))
	}
	assert.Equal(t, 1, calls)

	// A write bumps the document version.
	key, err := docs.key("a.docx")
	require.NoError(t, err)
	docs.bump(key)
	_, err = h(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// Other arguments are other entries.
	_, err = h(ctx, request("get_document_text", map[string]any{"filename": "a", "extra": 1}))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	// Writes and failures pass straight through.
	w := mw(counting("ok", false, &calls))
	_, _ = w(ctx, request("add_paragraph", map[string]any{"filename": "a"}))
	_, _ = w(ctx, request("add_paragraph", map[string]any{"filename": "a"}))
	assert.Equal(t, 5, calls)

	failing := mw(counting("boom", true, &calls))
	_, _ = failing(ctx, request("get_document_text", map[string]any{"filename": "missing"}))
	_, _ = failing(ctx, request("get_document_text", map[string]any{"filename": "missing"}))
	assert.Equal(t, 7, calls)
}

func TestLockMiddlewareBusy(t *testing.T) {
	store, _ := newTestStore(t)
	docs := newDocuments(store)
	tools := map[string]Tool{"add_paragraph": {access: writes, document: filenameDoc}}
	locker := lock.NewLocal()
	mw := lockMiddleware(locker, 50*time.Millisecond, docs, tools)

	key, err := docs.key("a.docx")
	require.NoError(t, err)
	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	calls := 0
	h := mw(counting("ok", false, &calls))
	res, err := h(context.Background(), request("add_paragraph", map[string]any{"filename": "a"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Document a.docx is busy, another operation is modifying it. Try again.", resultText(res))
	assert.Equal(t, 0, calls)
	assert.Equal(t, uint64(0), docs.version(key))

	unlock()
	res, err = h(context.Background(), request("add_paragraph", map[string]any{"filename": "a"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), docs.version(key))
}

func TestTraceMiddleware(t *testing.T) {
	var seen string
	h := traceMiddleware("test")(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		seen = TraceID(ctx)
		return mcp.NewToolResultText("ok"), nil
	})
	_, err := h(context.Background(), request("get_document_text", nil))
	require.NoError(t, err)
	assert.Len(t, seen, 36)
	assert.Empty(t, TraceID(context.Background()))
}

func TestDocumentKeyFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(config.DocumentsConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.docx"), []byte("x"), 0o644))
	alias := filepath.Join(dir, "alias")
	if err := os.Symlink(dir, alias); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	docs := newDocuments(store)

	direct, err := docs.key(filepath.Join(dir, "a.docx"))
	require.NoError(t, err)
	viaLink, err := docs.key(filepath.Join(alias, "a.docx"))
	require.NoError(t, err)
	assert.Equal(t, direct, viaLink)

	// Both names contend for the same lock.
	locker := lock.NewLocal()
	mw := lockMiddleware(locker, 50*time.Millisecond, docs, map[string]Tool{"add_paragraph": {access: writes, document: filenameDoc}})
	unlock, err := locker.Lock(context.Background(), direct)
	require.NoError(t, err)
	defer unlock()

	calls := 0
	res, err := mw(counting("ok", false, &calls))(context.Background(), request("add_paragraph", map[string]any{"filename": filepath.Join(alias, "a.docx")}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, 0, calls)
}
