// Package di is a minimal, string-keyed service locator used to wire
// modules together without a generated dependency graph.
package di

import "sync"

// ServiceRegistry is the read side a factory or module Startup sees.
type ServiceRegistry interface {
	Get(key string) any
}

// Container is the write side a Module uses to register its services.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
}

type entry struct {
	once    sync.Once
	value   any
	factory func(ServiceRegistry) any
}

type container struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewContainer creates an empty container.
func NewContainer() *container {
	return &container{entries: make(map[string]*entry)}
}

// Register stores an already-constructed value under key.
func (c *container) Register(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value}
}

// registerFactory stores a lazily-built singleton under key.
func (c *container) registerFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{factory: factory}
}

// Get resolves key, building it on first access if it was registered as a
// factory, and panics if nothing was ever registered under it: an unknown
// token is a wiring bug, not a runtime condition to recover from.
func (c *container) Get(key string) any {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		panic("di: no service registered for " + key)
	}
	if e.factory != nil {
		e.once.Do(func() {
			e.value = e.factory(c)
		})
	}
	return e.value
}

// RegisterToken registers a typed, lazily-built singleton factory under
// token. The factory receives the registry so it can pull its own
// dependencies, which may themselves be lazily-built tokens.
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	cc, ok := c.(*container)
	if !ok {
		panic("di: RegisterToken requires a *container")
	}
	cc.registerFactory(token, func(sr ServiceRegistry) any { return factory(sr) })
}

// MustGet resolves token and asserts it to type T, panicking with a
// descriptive message on mismatch — used by the typed getter helpers each
// module exposes alongside its tokens.
func MustGet[T any](sr ServiceRegistry, token string) T {
	v, ok := sr.Get(token).(T)
	if !ok {
		panic("di: service registered under " + token + " has unexpected type")
	}
	return v
}
