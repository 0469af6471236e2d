// Package di implements a minimal dependency injection container with
// typed tokens and lazily evaluated, memoized factories.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container extends the registry with registration.
type Container interface {
	ServiceRegistry
	Register(name string, svc any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	once    sync.Once
	value   any
	factory func(ServiceRegistry) any
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

// Register stores an already constructed service instance.
func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{value: svc}
	e.once.Do(func() {}) // mark resolved
	c.entries[name] = e
}

// RegisterFactory stores a lazy constructor. The factory runs at most once,
// on first Get.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

// Get resolves a service by name, running its factory if needed.
// Panics on unknown names: a missing registration is a wiring bug,
// not a runtime condition.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	e.once.Do(func() {
		if e.factory != nil {
			e.value = e.factory(c)
		}
	})
	return e.value
}

// Has reports whether a service is registered under the given name.
func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}
