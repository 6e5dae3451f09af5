package ddns

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"
)

// SourceFactory is a constructor function that update methods register to create themselves.
type SourceFactory func(log logr.Logger, settings map[string]string) (AddressSource, error)

// ServiceFactory is a constructor function that DNS services register to create themselves.
type ServiceFactory func(log logr.Logger, settings map[string]string) (Service, error)

// registration holds either a factory or the error that kept a driver from
// initialising.
type registration[F any] struct {
	factory F
	err     error
}

// Registry maps configuration names to driver factories. It is populated
// during init() and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]registration[SourceFactory]
	services map[string]registration[ServiceFactory]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:  make(map[string]registration[SourceFactory]),
		services: make(map[string]registration[ServiceFactory]),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the registry that driver packages register into.
func Default() *Registry {
	return defaultRegistry
}

// RegisterSource is called by update method packages in their init() to self-register.
func RegisterSource(name string, f SourceFactory) {
	defaultRegistry.RegisterSource(name, f)
}

// RegisterService is called by DNS service packages in their init() to self-register.
func RegisterService(name string, f ServiceFactory) {
	defaultRegistry.RegisterService(name, f)
}

// RegisterSourceError records that the named update method failed to
// initialise. The error is returned only when an entry asks for it.
func RegisterSourceError(name string, err error) {
	defaultRegistry.RegisterSourceError(name, err)
}

// RegisterServiceError records that the named DNS service failed to
// initialise. The error is returned only when an entry asks for it.
func RegisterServiceError(name string, err error) {
	defaultRegistry.RegisterServiceError(name, err)
}

// RegisterSource adds an update method factory. It panics on a nil factory
// or a name that is already taken.
func (r *Registry) RegisterSource(name string, f SourceFactory) {
	if f == nil {
		panic(fmt.Sprintf("ddns: nil factory for update method %q", name))
	}
	register(&r.mu, r.sources, "update method", name, registration[SourceFactory]{factory: f})
}

// RegisterService adds a DNS service factory. It panics on a nil factory or
// a name that is already taken.
func (r *Registry) RegisterService(name string, f ServiceFactory) {
	if f == nil {
		panic(fmt.Sprintf("ddns: nil factory for service %q", name))
	}
	register(&r.mu, r.services, "service", name, registration[ServiceFactory]{factory: f})
}

// RegisterSourceError records an update method whose initialisation failed.
// NewSource returns err for it.
func (r *Registry) RegisterSourceError(name string, err error) {
	if err == nil {
		panic(fmt.Sprintf("ddns: nil error for update method %q", name))
	}
	register(&r.mu, r.sources, "update method", name, registration[SourceFactory]{err: err})
}

// RegisterServiceError records a DNS service whose initialisation failed.
// NewService returns err for it.
func (r *Registry) RegisterServiceError(name string, err error) {
	if err == nil {
		panic(fmt.Sprintf("ddns: nil error for service %q", name))
	}
	register(&r.mu, r.services, "service", name, registration[ServiceFactory]{err: err})
}

func register[F any](mu *sync.RWMutex, m map[string]registration[F], kind, name string, reg registration[F]) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := m[name]; exists {
		panic(fmt.Sprintf("ddns: %s %q already registered", kind, name))
	}
	m[name] = reg
}

// NewSource looks up the named update method and creates it. Errors from the
// driver's constructor are returned unchanged.
func (r *Registry) NewSource(name string, log logr.Logger, settings map[string]string) (AddressSource, error) {
	r.mu.RLock()
	reg, ok := r.sources[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: update method %q (registered: %v)", ErrUnknownDriver, name, r.Sources())
	}
	if reg.err != nil {
		return nil, fmt.Errorf("update method %q failed to initialise: %w", name, reg.err)
	}
	return reg.factory(log, settings)
}

// NewService looks up the named DNS service and creates it. Errors from the
// driver's constructor are returned unchanged.
func (r *Registry) NewService(name string, log logr.Logger, settings map[string]string) (Service, error) {
	r.mu.RLock()
	reg, ok := r.services[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: service %q (registered: %v)", ErrUnknownDriver, name, r.Services())
	}
	if reg.err != nil {
		return nil, fmt.Errorf("service %q failed to initialise: %w", name, reg.err)
	}
	return reg.factory(log, settings)
}

// Sources returns the registered update method names in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sets.List(sets.KeySet(r.sources))
}

// Services returns the registered DNS service names in sorted order.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sets.List(sets.KeySet(r.services))
}

// Len returns the total number of registered drivers of both kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources) + len(r.services)
}
