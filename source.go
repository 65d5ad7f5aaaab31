/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/registry"
	"github.com/suparena/objectstore/storagemodels"
)

// SourceAware is implemented by drivers that resolve entities of other classes
// through the source they are attached to.
type SourceAware interface {
	SetSource(src *Source)
}

// managed is the class-agnostic view of a Manager used for lifecycle operations.
type managed interface {
	className() string
	loadRequests() int64
	start(ctx context.Context) error
	close() error
}

// Source owns one Manager per registered entity class and dispatches by type,
// so heterogeneous entity classes share one logical data space.
type Source struct {
	mu       sync.RWMutex
	managers map[reflect.Type]managed
	order    []reflect.Type
	closers  []io.Closer
	logger   *slog.Logger
	opts     sourceOptions
}

// NewSource creates an empty source.
func NewSource(opts ...SourceOption) *Source {
	options := sourceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	return &Source{
		managers: make(map[reflect.Type]managed),
		logger:   options.logger,
		opts:     options,
	}
}

// Register creates the manager for class E, with no driver attached.
// A class can only be registered once per source.
func Register[E storagemodels.Identifiable](s *Source, opts ...ManagerOption) (*Manager[E], error) {
	typ := registry.TypeOf[E]()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.managers[typ]; exists {
		return nil, errors.NewAlreadyRegisteredError(registry.ClassNameOf(typ))
	}

	all := make([]ManagerOption, 0, len(s.opts.managerOpts)+len(opts)+1)
	all = append(all, WithLogger(s.logger))
	all = append(all, s.opts.managerOpts...)
	all = append(all, opts...)
	m := NewManager[E](all...)

	s.managers[typ] = m
	s.order = append(s.order, typ)
	return m, nil
}

// Attach registers class E and assigns driver to its manager. Drivers
// implementing SourceAware receive the source back-reference.
func Attach[E storagemodels.Identifiable](s *Source, driver datastore.Connector[E], opts ...ManagerOption) (*Manager[E], error) {
	m, err := Register[E](s, opts...)
	if err != nil {
		return nil, err
	}
	m.SetDriver(driver)
	if aware, ok := driver.(SourceAware); ok {
		aware.SetSource(s)
	}
	return m, nil
}

// Lookup returns the manager of class E.
func Lookup[E storagemodels.Identifiable](s *Source) (*Manager[E], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[registry.TypeOf[E]()]
	if !ok {
		return nil, false
	}
	return m.(*Manager[E]), true
}

func managerFor[E storagemodels.Identifiable](s *Source) (*Manager[E], error) {
	m, ok := Lookup[E](s)
	if !ok {
		return nil, errors.NewNotRegisteredError(registry.ClassName[E]())
	}
	return m, nil
}

// ManagedClasses returns the class names of every registered class, sorted.
func (s *Source) ManagedClasses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.managers))
	for _, m := range s.managers {
		names = append(names, m.className())
	}
	slices.Sort(names)
	return names
}

// AddCloser registers a resource released by Close, after every driver.
// Backends use it for resources shared by several drivers, such as a database handle.
func (s *Source) AddCloser(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, c)
}

// LoadRequests returns the number of driver-level fetches across all classes.
func (s *Source) LoadRequests() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, m := range s.managers {
		total += m.loadRequests()
	}
	return total
}

// Start starts every driver that needs it and preloads the classes registered
// with WithPreload, in registration order. The first failure aborts.
func (s *Source) Start(ctx context.Context) error {
	for _, m := range s.snapshot() {
		if err := m.start(ctx); err != nil {
			s.logger.ErrorContext(ctx, "object source start failed", "class", m.className(), "error", err)
			return err
		}
	}
	s.logger.InfoContext(ctx, "object source started", "classes", s.ManagedClasses())
	return nil
}

// Close releases driver resources, in reverse registration order, then the
// resources added with AddCloser. Every failure is reported.
func (s *Source) Close() error {
	managers := s.snapshot()

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for i := len(managers) - 1; i >= 0; i-- {
		if err := managers[i].close(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("object source closed", "errors", len(errs))
	return stderrors.Join(errs...)
}

func (s *Source) snapshot() []managed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]managed, 0, len(s.order))
	for _, typ := range s.order {
		out = append(out, s.managers[typ])
	}
	return out
}

// Dispatch helpers. Each resolves the manager of class E and forwards the call;
// an unregistered class yields errors.ErrNotRegistered.

// Create creates entity through the manager of class E.
func Create[E storagemodels.Identifiable](ctx context.Context, s *Source, entity E) error {
	m, err := managerFor[E](s)
	if err != nil {
		return err
	}
	return m.Create(ctx, entity)
}

// Update updates entity through the manager of class E.
func Update[E storagemodels.Identifiable](ctx context.Context, s *Source, entity E) error {
	m, err := managerFor[E](s)
	if err != nil {
		return err
	}
	return m.Update(ctx, entity)
}

// Delete deletes key through the manager of class E.
func Delete[E storagemodels.Identifiable](ctx context.Context, s *Source, key int64) error {
	m, err := managerFor[E](s)
	if err != nil {
		return err
	}
	return m.Delete(ctx, key)
}

// Load loads key through the manager of class E.
func Load[E storagemodels.Identifiable](ctx context.Context, s *Source, key int64) (E, bool, error) {
	m, err := managerFor[E](s)
	if err != nil {
		var zero E
		return zero, false, err
	}
	return m.Load(ctx, key)
}

// LoadAll loads every entity of class E.
func LoadAll[E storagemodels.Identifiable](ctx context.Context, s *Source) ([]E, error) {
	m, err := managerFor[E](s)
	if err != nil {
		return nil, err
	}
	return m.LoadAll(ctx)
}

// LoadKeys loads the entities of class E with the given keys, in order.
func LoadKeys[E storagemodels.Identifiable](ctx context.Context, s *Source, keys []int64) ([]E, error) {
	m, err := managerFor[E](s)
	if err != nil {
		return nil, err
	}
	return m.LoadKeys(ctx, keys)
}

// LoadRelation loads the entities of class E related to key.
func LoadRelation[E storagemodels.Identifiable](ctx context.Context, s *Source, relation string, key int64) ([]E, error) {
	m, err := managerFor[E](s)
	if err != nil {
		return nil, err
	}
	return m.LoadRelation(ctx, relation, key)
}

// LoadObjectSet loads the entities of class E in the named set.
func LoadObjectSet[E storagemodels.Identifiable](ctx context.Context, s *Source, setID string, params ...any) ([]E, error) {
	m, err := managerFor[E](s)
	if err != nil {
		return nil, err
	}
	return m.LoadObjectSet(ctx, setID, params...)
}

// BuildProxy returns a lazy reference to the entity of class E with key.
func BuildProxy[E storagemodels.Identifiable](s *Source, key int64) (Proxy[E], error) {
	m, err := managerFor[E](s)
	if err != nil {
		return Proxy[E]{}, err
	}
	return m.BuildProxy(key), nil
}
