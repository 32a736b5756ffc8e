package persistence

import (
	"maps"
	"sync"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/mapper"
)

// Builder creates Entities for any class and wires their collaborators. It
// implements mapper.ObjectBuilder and mapper.ObjectConfigurations.
type Builder struct {
	mu           sync.RWMutex
	dependencies map[string]map[string]any
}

// NewBuilder creates a Builder without dependencies.
func NewBuilder() *Builder {
	return &Builder{dependencies: make(map[string]map[string]any)}
}

// Inject declares a collaborator reinjected into every entity of className.
func (b *Builder) Inject(className, name string, dependency any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deps, ok := b.dependencies[className]
	if !ok {
		deps = make(map[string]any)
		b.dependencies[className] = deps
	}
	deps[name] = dependency
}

// ObjectConfiguration returns the wiring of className. Every class is
// configured; classes without injected collaborators have none.
func (b *Builder) ObjectConfiguration(className string) (*mapper.ObjectConfiguration, error) {
	if className == "" {
		return nil, crerr.InvalidArgument("class name must not be empty")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &mapper.ObjectConfiguration{
		ClassName:    className,
		Dependencies: maps.Clone(b.dependencies[className]),
	}, nil
}

// CreateEmptyObject returns a new Entity of className.
func (b *Builder) CreateEmptyObject(className string, _ *mapper.ObjectConfiguration) (mapper.Object, error) {
	return NewEntity(className), nil
}

// ReinjectDependencies copies the configured collaborators into obj.
func (b *Builder) ReinjectDependencies(obj mapper.Object, cfg *mapper.ObjectConfiguration) error {
	e, ok := obj.(*Entity)
	if !ok {
		return crerr.InvalidArgument("cannot reinject into %T, only *Entity", obj)
	}
	for name, dep := range cfg.Dependencies {
		e.dependencies[name] = dep
	}
	return nil
}
