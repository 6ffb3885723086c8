package cli

import (
	"fmt"

	"office_word_mcp_server/internal/audit"
	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/discovery/etcd"
	"office_word_mcp_server/internal/lock"
	"office_word_mcp_server/internal/server"
	"office_word_mcp_server/internal/storage"
	pkghttp "office_word_mcp_server/pkg/http"
	"office_word_mcp_server/pkg/logger"
	"office_word_mcp_server/pkg/lru"
	"office_word_mcp_server/pkg/tools/word/convert"
	"office_word_mcp_server/pkg/tools/word/handler"
)

// buildDeps connects the configured backends. The returned cleanup closes
// them in reverse order and is safe to call on a partial setup.
func buildDeps(cfg *config.AppConfig) (server.Deps, func(), error) {
	log := logger.New(cfg.App.Name, "", "")
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("close dependency")
			}
		}
	}
	fail := func(err error) (server.Deps, func(), error) {
		cleanup()
		return server.Deps{}, func() {}, err
	}

	var objects storage.ObjectStore
	if cfg.Databases.MinIO.Endpoint != "" {
		mc, err := storage.GetClient(&cfg.Databases.MinIO)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to MinIO: %w", err))
		}
		objects = storage.NewMinIOStore(mc)
		log.WithField("endpoint", cfg.Databases.MinIO.Endpoint).Info("minio:// document references enabled")
	}
	store, err := storage.New(cfg.Documents, objects)
	if err != nil {
		return fail(fmt.Errorf("failed to create document store: %w", err))
	}

	var locker lock.Locker
	switch cfg.Lock.Backend {
	case "redis":
		rdb, err := lock.GetClient(&cfg.Databases.Redis)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, rdb.Close)
		locker = lock.NewRedis(rdb, cfg.Lock.TTL)
	default:
		locker = lock.NewLocal()
	}

	pub, err := newAuditPublisher(cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, pub.Close)

	breaker, err := pkghttp.NewBreaker("convert", cfg.Middleware.CircuitBreaker)
	if err != nil {
		return fail(err)
	}
	pdf := convert.NewPDFConverter(convert.Options{
		Timeout:          cfg.Convert.Timeout,
		LibreOfficePaths: cfg.Convert.LibreOfficePaths,
		Docx2PDFPath:     cfg.Convert.Docx2PDFPath,
		VerifyPDF:        cfg.Convert.VerifyPDF,
	}, breaker)

	var cache *lru.Cache[string, string]
	if cfg.Cache.Enabled {
		cache, err = lru.New(lru.Config[string, string]{
			Capacity:  cfg.Cache.Capacity,
			MaxWeight: cfg.Cache.MaxWeight,
			TTL:       cfg.Cache.TTL,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to create result cache: %w", err))
		}
	}

	var discovery *etcd.ServiceDiscovery
	if cfg.Server.Transport != "stdio" && len(cfg.Databases.Etcd.Endpoints) > 0 {
		discovery, err = etcd.NewServiceDiscovery(etcd.Config{
			Endpoints: cfg.Databases.Etcd.Endpoints,
			Username:  cfg.Databases.Etcd.Username,
			Password:  cfg.Databases.Etcd.Password,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to create service discovery client: %w", err))
		}
		closers = append(closers, discovery.Close)
	}

	return server.Deps{
		Config:    cfg,
		Store:     store,
		Handler:   handler.NewWordHandler(store, pdf),
		Locker:    locker,
		Audit:     pub,
		Cache:     cache,
		Discovery: discovery,
	}, cleanup, nil
}

// newAuditPublisher picks Kafka when brokers are configured and falls back
// to the log.
func newAuditPublisher(cfg *config.AppConfig) (audit.Publisher, error) {
	switch {
	case !cfg.Audit.Enabled:
		return audit.Noop{}, nil
	case len(cfg.Databases.Kafka.Brokers) > 0:
		pub, err := audit.NewKafkaPublisher(cfg.Databases.Kafka.Brokers, cfg.Audit.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit publisher: %w", err)
		}
		return pub, nil
	default:
		return audit.NewLogPublisher("audit"), nil
	}
}
