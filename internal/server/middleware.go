package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"office_word_mcp_server/internal/audit"
	"office_word_mcp_server/internal/lock"
	"office_word_mcp_server/internal/storage"
	"office_word_mcp_server/pkg/httpmiddleware"
	"office_word_mcp_server/pkg/logger"
	"office_word_mcp_server/pkg/lru"
)

type traceKey struct{}

// TraceID returns the trace id of the current tool call, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// resultText joins the text contents of a result.
func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func failed(res *mcp.CallToolResult, err error) bool {
	return err != nil || res == nil || res.IsError
}

// traceMiddleware tags each call with a trace id and logs its outcome.
func traceMiddleware(service string) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			traceID := uuid.NewString()
			ctx = context.WithValue(ctx, traceKey{}, traceID)
			log := logger.New(service, traceID, httpmiddleware.Subject(ctx)).WithField("tool", req.Params.Name)
			log.Debug("tool call started")

			start := time.Now()
			res, err := next(ctx, req)
			log = log.WithField("duration_ms", time.Since(start).Milliseconds()).WithField("is_error", failed(res, err))
			switch {
			case err != nil:
				log.WithError(err).Error("tool call failed")
			case res != nil && res.IsError:
				log.WithField("message", resultText(res)).Warn("tool call returned an error")
			default:
				log.Info("tool call finished")
			}
			return res, err
		}
	}
}

// auditMiddleware publishes one event per call. Publishing never fails the
// call.
func auditMiddleware(pub audit.Publisher, tools map[string]Tool) server.ToolHandlerMiddleware {
	log := logger.New("audit", "", "")
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			res, err := next(ctx, req)

			e := audit.Event{
				TraceID:    TraceID(ctx),
				Tool:       req.Params.Name,
				Success:    !failed(res, err),
				DurationMs: time.Since(start).Milliseconds(),
				Timestamp:  start.UTC(),
			}
			if t, ok := tools[req.Params.Name]; ok && t.document != nil {
				e.Document = t.document(req.GetArguments())
			}
			pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if perr := pub.Publish(pubCtx, e); perr != nil {
				log.WithError(perr).WithField("tool", e.Tool).Warn("publish audit event")
			}
			cancel()
			return res, err
		}
	}
}

// documents tracks a version per document, bumped after every write. Read
// cache keys include it.
type documents struct {
	store *storage.Store
	mu    sync.Mutex
	gen   map[string]uint64
}

func newDocuments(store *storage.Store) *documents {
	return &documents{store: store, gen: make(map[string]uint64)}
}

// key identifies a document reference: the resolved, symlink-free path for
// local files, the reference itself for objects.
func (d *documents) key(ref string) (string, error) {
	if storage.IsObjectRef(ref) {
		return ref, nil
	}
	return d.store.Resolve(ref)
}

func (d *documents) version(key string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen[key]
}

func (d *documents) bump(key string) {
	d.mu.Lock()
	d.gen[key]++
	d.mu.Unlock()
}

// lockMiddleware serialises the writing tools per document.
func lockMiddleware(locker lock.Locker, wait time.Duration, docs *documents, tools map[string]Tool) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			t, ok := tools[req.Params.Name]
			if !ok || t.access != writes || t.document == nil {
				return next(ctx, req)
			}
			ref := t.document(req.GetArguments())
			if ref == "" {
				return next(ctx, req)
			}
			key, err := docs.key(ref)
			if err != nil {
				// The handler reports the resolution error.
				return next(ctx, req)
			}

			lockCtx, cancel := context.WithTimeout(ctx, wait)
			unlock, err := locker.Lock(lockCtx, key)
			cancel()
			if err != nil {
				if errors.Is(err, lock.ErrLocked) {
					return mcp.NewToolResultError(fmt.Sprintf("Document %s is busy, another operation is modifying it. Try again.", ref)), nil
				}
				return mcp.NewToolResultError(fmt.Sprintf("Failed to lock document %s: %v", ref, err)), nil
			}
			defer unlock()
			defer docs.bump(key)
			return next(ctx, req)
		}
	}
}

// cacheMiddleware answers repeated reads of an unchanged document from the
// LRU. Only successful results are kept.
func cacheMiddleware(cache *lru.Cache[string, string], docs *documents, tools map[string]Tool) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			t, ok := tools[req.Params.Name]
			if !ok || t.access != reads || t.document == nil {
				return next(ctx, req)
			}
			key, ok := cacheKey(req, t, docs)
			if !ok {
				return next(ctx, req)
			}
			if text, hit := cache.Get(key); hit {
				return mcp.NewToolResultText(text), nil
			}
			res, err := next(ctx, req)
			if !failed(res, err) && len(res.Content) == 1 {
				text := resultText(res)
				cache.Put(key, text, len(text))
			}
			return res, err
		}
	}
}

// cacheKey combines the tool, its arguments and the state of the local
// document file. Object references are never cached.
func cacheKey(req mcp.CallToolRequest, t Tool, docs *documents) (string, bool) {
	ref := t.document(req.GetArguments())
	if ref == "" || storage.IsObjectRef(ref) {
		return "", false
	}
	path, err := docs.key(ref)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	// Map keys are marshalled in sorted order.
	args, err := json.Marshal(req.GetArguments())
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s|%s|%d|%d|%d|%s", req.Params.Name, path, info.Size(), info.ModTime().UnixNano(), docs.version(path), args), true
}
