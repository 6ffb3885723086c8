package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/server"
	"office_word_mcp_server/pkg/logger"
)

type serveOptions struct {
	configPath string
	transport  string
	host       string
	port       int
	path       string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "config.yaml", "path of the YAML configuration file")
	f.StringVar(&o.transport, "transport", "", "transport: stdio, sse or streamable-http (default from config or MCP_TRANSPORT)")
	f.StringVar(&o.host, "host", "", "listen host for the HTTP transports")
	f.IntVar(&o.port, "port", 0, "listen port for the HTTP transports")
	f.StringVar(&o.path, "path", "", "endpoint path of the streamable HTTP transport")
}

// loadConfig reads the configuration and applies the flags the user set.
// Flags win over the file and the environment.
func (o *serveOptions) loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = o.transport
	}
	if flags.Changed("host") {
		cfg.Server.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	if flags.Changed("path") {
		cfg.Server.Path = o.path
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	// 1. 加载配置
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	// 2. 初始化 Logger
	logger.Init(cfg.Logger.Level)
	appLogger := logger.New(cfg.App.Name, "", "")
	appLogger.WithField("transport", cfg.Server.Transport).Info("Logger initialized")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化存储、锁、审计、转换器和缓存
	deps, cleanup, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 4. 创建 MCP 服务并启动传输层
	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}
