package runconfig

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Manager wraps a Service with the last successfully loaded Config, cached
// for concurrent readers (e.g. a long-running workflow run that rereads
// limits between pipeline steps) without reloading sources on every call.
type Manager struct {
	*Service

	mu       sync.Mutex
	current  atomic.Value // *Config
	debounce time.Duration
	closed   bool
}

// NewManager wraps svc (or a fresh Service if svc is nil).
func NewManager(svc *Service) *Manager {
	if svc == nil {
		svc = NewService()
	}
	return &Manager{Service: svc, debounce: 100 * time.Millisecond}
}

// SetDebounce configures the minimum interval between hot-reload
// notifications once Watch-driven reloads are wired to a live source.
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// Load loads and validates configuration via the wrapped Service, then
// caches the result for Get.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, err
	}
	m.current.Store(cfg)
	return cfg, nil
}

// Get returns the last configuration stored by Load, or nil if Load was
// never called.
func (m *Manager) Get() *Config {
	v, _ := m.current.Load().(*Config)
	return v
}

// Close marks the manager closed; it holds no source resources to release.
// Idempotent.
func (m *Manager) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
