package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
)

// SinkAdapter persists records to one storage backend. Configure receives the
// integrator's live handle and must be idempotent.
type SinkAdapter interface {
	Configure(ctx context.Context, handle any) error
	SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error
}

type SinkFactory func() SinkAdapter

// SinkRegistry maps backend kinds to adapter constructors.
type SinkRegistry struct {
	mu        sync.RWMutex
	factories map[model.BackendKind]SinkFactory
}

func NewSinkRegistry() *SinkRegistry {
	return &SinkRegistry{factories: make(map[model.BackendKind]SinkFactory)}
}

func (r *SinkRegistry) Register(kind model.BackendKind, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

func (r *SinkRegistry) Lookup(kind model.BackendKind) (SinkFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

func (r *SinkRegistry) Kinds() []model.BackendKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]model.BackendKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// SinkDispatcher owns the single configured adapter of a pipeline.
type SinkDispatcher struct {
	registry *SinkRegistry

	mu       sync.RWMutex
	kind     model.BackendKind
	identity string
	adapter  SinkAdapter
}

func NewSinkDispatcher(registry *SinkRegistry) *SinkDispatcher {
	if registry == nil {
		registry = DefaultSinkRegistry()
	}
	return &SinkDispatcher{registry: registry}
}

// Configure selects and initialises the adapter for kind. Repeating it with the
// configured kind is a logged no-op.
func (d *SinkDispatcher) Configure(ctx context.Context, kind model.BackendKind, handle any, identity string) error {
	factory, ok := d.registry.Lookup(kind)
	if !ok {
		return apperrors.NewConfiguration(fmt.Sprintf("unsupported database type %q, expected one of %v", kind, d.registry.Kinds()))
	}
	if isNilHandle(handle) {
		return apperrors.NewConfiguration("a database instance is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.adapter != nil {
		if d.kind != kind {
			return apperrors.NewConfiguration(fmt.Sprintf("sink already configured as %q, cannot switch to %q", d.kind, kind))
		}
		logger.Info("sink already initialized", "kind", kind)
		return nil
	}

	adapter := factory()
	if err := adapter.Configure(ctx, handle); err != nil {
		if apperrors.Is(err, apperrors.ErrConfiguration) {
			return err
		}
		return apperrors.New(apperrors.ErrConfiguration, fmt.Sprintf("failed to initialize %s sink", kind), err)
	}
	d.kind = kind
	d.identity = identity
	d.adapter = adapter
	logger.Info("sink configured", "kind", kind)
	return nil
}

// SaveMetadata forwards rec to the configured adapter. Backend errors are returned as-is.
func (d *SinkDispatcher) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	d.mu.RLock()
	adapter := d.adapter
	d.mu.RUnlock()
	if adapter == nil {
		return apperrors.NewNotInitialized("sink not initialized, call Configure first")
	}
	if rec == nil {
		return errors.New("nil metadata record")
	}
	return adapter.SaveMetadata(ctx, rec)
}

func (d *SinkDispatcher) Kind() model.BackendKind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kind
}

func (d *SinkDispatcher) Identity() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.identity
}

func isNilHandle(handle any) bool {
	if handle == nil {
		return true
	}
	v := reflect.ValueOf(handle)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
