// Package server assembles the Word document MCP server: the tool registry,
// the tool middleware and the stdio, SSE and streamable HTTP transports.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"office_word_mcp_server/internal/audit"
	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/discovery/etcd"
	"office_word_mcp_server/internal/lock"
	"office_word_mcp_server/internal/storage"
	pkghttp "office_word_mcp_server/pkg/http"
	"office_word_mcp_server/pkg/httpmiddleware"
	"office_word_mcp_server/pkg/logger"
	"office_word_mcp_server/pkg/lru"
	"office_word_mcp_server/pkg/tools/word/handler"
)

const (
	// lockWait bounds how long a writing tool waits for its document.
	lockWait = 10 * time.Second
	// shutdownGrace bounds the graceful shutdown of the HTTP transports.
	shutdownGrace = 5 * time.Second
	// registrationTTL is the etcd lease of the service registration, in seconds.
	registrationTTL = 10
)

const instructions = `Tools for creating, reading and editing Word (.docx) documents.
Documents are addressed by file path, or by minio://bucket/key when object storage is configured.
Paragraph indices are 0-based and count body paragraphs only.`

// Deps are the collaborators of a Server.
type Deps struct {
	Config  *config.AppConfig
	Store   *storage.Store
	Handler *handler.WordHandler
	// Locker serialises writes per document. Nil uses an in-process lock.
	Locker lock.Locker
	// Audit receives one event per tool call. Nil disables auditing.
	Audit audit.Publisher
	// Cache holds read results. Nil disables caching.
	Cache *lru.Cache[string, string]
	// Discovery registers the HTTP transports in etcd. Optional.
	Discovery *etcd.ServiceDiscovery
}

// Server is the Word document MCP server.
type Server struct {
	cfg       *config.AppConfig
	mcp       *server.MCPServer
	tools     []Tool
	discovery *etcd.ServiceDiscovery
	log       *logger.Logger
}

// New builds the MCP server and registers every tool.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Store == nil || deps.Handler == nil {
		return nil, errors.New("server: config, store and handler are required")
	}
	cfg := deps.Config
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	pub := deps.Audit
	if pub == nil {
		pub = audit.Noop{}
	}

	tools := Tools(deps.Handler)
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if _, dup := byName[t.Tool.Name]; dup {
			return nil, fmt.Errorf("server: tool %s registered twice", t.Tool.Name)
		}
		byName[t.Tool.Name] = t
	}
	docs := newDocuments(deps.Store)

	// The first middleware is the outermost.
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
		server.WithToolHandlerMiddleware(traceMiddleware(cfg.App.Name)),
		server.WithToolHandlerMiddleware(auditMiddleware(pub, byName)),
		server.WithToolHandlerMiddleware(lockMiddleware(locker, lockWait, docs, byName)),
	}
	if deps.Cache != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(cacheMiddleware(deps.Cache, docs, byName)))
	}

	s := server.NewMCPServer(cfg.App.Name, cfg.App.Version, opts...)
	serverTools := make([]server.ServerTool, 0, len(tools))
	for _, t := range tools {
		serverTools = append(serverTools, t.ServerTool)
	}
	s.AddTools(serverTools...)

	return &Server{
		cfg:       cfg,
		mcp:       s,
		tools:     tools,
		discovery: deps.Discovery,
		log:       logger.New(cfg.App.Name, "", ""),
	}, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []Tool { return s.tools }

// Serve runs the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	switch s.cfg.Server.Transport {
	case "", "stdio":
		return s.ServeStdio(ctx, os.Stdin, os.Stdout)
	case "sse", "streamable-http":
		return s.ServeHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport %q: use stdio, sse or streamable-http", s.cfg.Server.Transport)
	}
}

// ServeStdio speaks MCP over in and out. Logs go to stderr.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.WithField("tools", len(s.tools)).Info("Starting Word MCP server with STDIO transport")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(logger.New("stdio", "", "").StdLogger())
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ServeHTTP serves the SSE or streamable HTTP transport behind the HTTP
// middleware chain.
func (s *Server) ServeHTTP(ctx context.Context) error {
	srv, err := pkghttp.NewServer(s.cfg)
	if err != nil {
		return err
	}
	switch s.cfg.Server.Transport {
	case "sse":
		sse := server.NewSSEServer(s.mcp,
			server.WithBaseURL(s.baseURL()),
			server.WithSSEContextFunc(httpmiddleware.PropagateSubject),
		)
		srv.Handle("/sse", sse.SSEHandler())
		srv.Handle("/message", sse.MessageHandler())
		s.log.Infof("Starting Word MCP server with SSE transport on %s", srv.Addr())
	default:
		streamable := server.NewStreamableHTTPServer(s.mcp,
			server.WithEndpointPath(s.cfg.Server.Path),
			server.WithHTTPContextFunc(httpmiddleware.PropagateSubject),
			server.WithLogger(logger.New("streamable-http", "", "")),
		)
		srv.Handle(s.cfg.Server.Path, streamable)
		s.log.Infof("Starting Word MCP server with streamable HTTP transport on %s%s", srv.Addr(), s.cfg.Server.Path)
	}

	if reg := s.register(ctx); reg != nil {
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := reg.Deregister(dctx); err != nil {
				s.log.WithError(err).Warn("deregister service")
			}
		}()
	}
	return srv.Run(ctx, shutdownGrace)
}

// baseURL is the public URL the SSE transport advertises.
func (s *Server) baseURL() string {
	if s.cfg.Server.BaseURL != "" {
		return s.cfg.Server.BaseURL
	}
	return "http://" + s.advertisedAddr()
}

// advertisedAddr replaces a wildcard listen host with the machine's name.
func (s *Server) advertisedAddr() string {
	host := s.cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		if name, err := os.Hostname(); err == nil {
			host = name
		} else {
			host = "localhost"
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(s.cfg.Server.Port))
}

// register announces the HTTP endpoint in etcd. Failures are logged and the
// server keeps running unregistered.
func (s *Server) register(ctx context.Context) *etcd.Registration {
	if s.discovery == nil {
		return nil
	}
	addr := s.advertisedAddr()
	reg, err := s.discovery.Register(ctx, s.cfg.App.Name, addr, registrationTTL)
	if err != nil {
		s.log.WithError(err).Warn("Failed to register service")
		return nil
	}
	s.log.Info(fmt.Sprintf("Service '%s' registered at '%s'", s.cfg.App.Name, addr))
	return reg
}
