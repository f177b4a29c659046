package record

import (
	"sync"

	"github.com/starford/flexdir/internal/apperr"
)

// DefaultKind names the built-in object and collection constructors.
const DefaultKind = "default"

// ObjectFactory builds a record for a directory type.
type ObjectFactory func(key string, fields map[string]any, owner string) *Record

// CollectionFactory builds an empty collection for a directory type.
type CollectionFactory func(owner string) *Collection

// Kinds maps blueprint object/collection kind names to constructors.
// Types resolve their constructors once, when they are configured.
type Kinds struct {
	mu          sync.RWMutex
	objects     map[string]ObjectFactory
	collections map[string]CollectionFactory
}

// NewKinds returns a registry holding the default kinds.
func NewKinds() *Kinds {
	return &Kinds{
		objects:     map[string]ObjectFactory{DefaultKind: New},
		collections: map[string]CollectionFactory{DefaultKind: NewCollection},
	}
}

// RegisterObject adds or replaces an object kind.
func (k *Kinds) RegisterObject(name string, f ObjectFactory) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.objects[name] = f
}

// RegisterCollection adds or replaces a collection kind.
func (k *Kinds) RegisterCollection(name string, f CollectionFactory) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.collections[name] = f
}

// Object returns the constructor for an object kind. An empty name means
// the default kind.
func (k *Kinds) Object(typ, name string) (ObjectFactory, error) {
	if name == "" {
		name = DefaultKind
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	f, ok := k.objects[name]
	if !ok {
		return nil, apperr.Configf(typ, "unknown object kind %q", name)
	}
	return f, nil
}

// Collection returns the constructor for a collection kind.
func (k *Kinds) Collection(typ, name string) (CollectionFactory, error) {
	if name == "" {
		name = DefaultKind
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	f, ok := k.collections[name]
	if !ok {
		return nil, apperr.Configf(typ, "unknown collection kind %q", name)
	}
	return f, nil
}
