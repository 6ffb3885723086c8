package etcd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KV is the subset of the etcd client used for discovery.
type KV interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Close() error
}

// ServiceDiscovery registers server instances under /<service>/<addr>.
type ServiceDiscovery struct {
	cli KV
}

// Config holds the etcd connection settings.
type Config struct {
	Endpoints []string
	Username  string
	Password  string
}

// NewServiceDiscovery connects to etcd.
func NewServiceDiscovery(cfg Config) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceDiscovery{cli: cli}, nil
}

func serviceKey(serviceName, addr string) string {
	return "/" + serviceName + "/" + addr
}

// Registration is a live registration. Deregister removes it.
type Registration struct {
	sd      *ServiceDiscovery
	key     string
	lease   clientv3.LeaseID
	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once
}

// Register puts addr under a lease of ttl seconds and keeps the lease alive
// until ctx is cancelled or Deregister is called.
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (*Registration, error) {
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("grant lease: %w", err)
	}
	key := serviceKey(serviceName, addr)
	if _, err := s.cli.Put(ctx, key, addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	kaCtx, cancel := context.WithCancel(ctx)
	keepAliveCh, err := s.cli.KeepAlive(kaCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("keep alive: %w", err)
	}

	reg := &Registration{sd: s, key: key, lease: leaseResp.ID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(reg.done)
		for {
			select {
			case <-kaCtx.Done():
				return
			case _, ok := <-keepAliveCh:
				if !ok {
					// Lease expired or was revoked.
					return
				}
			}
		}
	}()
	return reg, nil
}

// Done is closed when keep-alive stops.
func (r *Registration) Done() <-chan struct{} { return r.done }

// Deregister stops the keep-alive, revokes the lease and deletes the key.
func (r *Registration) Deregister(ctx context.Context) error {
	var err error
	r.release.Do(func() {
		r.cancel()
		if _, rerr := r.sd.cli.Revoke(ctx, r.lease); rerr != nil {
			err = fmt.Errorf("revoke lease: %w", rerr)
		}
		// The lease removes the key as well; delete it in case revoke failed.
		if _, derr := r.sd.cli.Delete(ctx, r.key); derr != nil && err == nil {
			err = fmt.Errorf("delete %s: %w", r.key, derr)
		}
	})
	return err
}

// Discover lists the addresses registered for serviceName.
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.cli.Get(ctx, "/"+strings.Trim(serviceName, "/")+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		addrs = append(addrs, string(kv.Value))
	}
	return addrs, nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
