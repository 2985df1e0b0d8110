// internal/di/container.go
package di

import (
	"sync"
)

// Container is a minimal name-keyed service registry used to wire the
// application together at startup.
type Container struct {
	services map[string]interface{}
	mutex    sync.RWMutex
}

var (
	globalContainer *Container
	once            sync.Once
)

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

// GetContainer returns the process-wide container instance.
func GetContainer() *Container {
	once.Do(func() {
		globalContainer = NewContainer()
	})
	return globalContainer
}

// Register stores a service instance under the given name.
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services[name] = service
}

// Get returns the named service, or nil if it was never registered.
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	service, exists := c.services[name]
	if !exists {
		return nil
	}
	return service
}

// Has reports whether a service is registered under the given name.
func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.services[name]
	return exists
}

// Clear removes all registered services. Used by tests.
func (c *Container) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services = make(map[string]interface{})
}

// GetNames lists all registered service names.
func (c *Container) GetNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	return names
}
