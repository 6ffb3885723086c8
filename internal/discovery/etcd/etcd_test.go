package etcd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type fakeKV struct {
	mu      sync.Mutex
	puts    map[string]clientv3.LeaseID
	revoked []clientv3.LeaseID
	deleted []string
	ka      chan *clientv3.LeaseKeepAliveResponse
	getKey  string
}

func newFakeKV() *fakeKV {
	return &fakeKV{puts: map[string]clientv3.LeaseID{}, ka: make(chan *clientv3.LeaseKeepAliveResponse)}
}

func (f *fakeKV) Grant(context.Context, int64) (*clientv3.LeaseGrantResponse, error) {
	return &clientv3.LeaseGrantResponse{ID: 42, TTL: 10}, nil
}

func (f *fakeKV) Put(_ context.Context, key, _ string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = 42
	return &clientv3.PutResponse{}, nil
}

func (f *fakeKV) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.getKey = key
	return &clientv3.GetResponse{}, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return &clientv3.DeleteResponse{}, nil
}

func (f *fakeKV) KeepAlive(context.Context, clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	return f.ka, nil
}

func (f *fakeKV) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeKV) Close() error { return nil }

func TestRegisterAndDeregister(t *testing.T) {
	kv := newFakeKV()
	sd := &ServiceDiscovery{cli: kv}

	reg, err := sd.Register(context.Background(), "word-document-server", "10.0.0.1:8000", 10)
	require.NoError(t, err)
	assert.Equal(t, clientv3.LeaseID(42), kv.puts["/word-document-server/10.0.0.1:8000"])

	require.NoError(t, reg.Deregister(context.Background()))
	require.NoError(t, reg.Deregister(context.Background()))
	select {
	case <-reg.Done():
	case <-time.After(time.Second):
		t.Fatal("keep-alive loop did not stop")
	}
	assert.Equal(t, []clientv3.LeaseID{42}, kv.revoked)
	assert.Equal(t, []string{"/word-document-server/10.0.0.1:8000"}, kv.deleted)
}

func TestRegisterStopsWithContext(t *testing.T) {
	kv := newFakeKV()
	sd := &ServiceDiscovery{cli: kv}
	ctx, cancel := context.WithCancel(context.Background())
	reg, err := sd.Register(ctx, "svc", "addr", 5)
	require.NoError(t, err)
	cancel()
	select {
	case <-reg.Done():
	case <-time.After(time.Second):
		t.Fatal("keep-alive loop did not stop")
	}
}

func TestDiscoverUsesServicePrefix(t *testing.T) {
	kv := newFakeKV()
	sd := &ServiceDiscovery{cli: kv}
	addrs, err := sd.Discover(context.Background(), "svc")
	require.NoError(t, err)
	assert.Empty(t, addrs)
	assert.Equal(t, "/svc/", kv.getKey)
}
