package directory

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/schema"
	"github.com/starford/flexdir/internal/storage"
)

// TypeConfig is an explicitly configured directory type.
type TypeConfig struct {
	// Blueprint is the blueprint file, relative to the blueprint folder.
	// Empty means <name>.yaml.
	Blueprint string `yaml:"blueprint"`
	Enabled   *bool  `yaml:"enabled"`
}

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	// Blueprints holds the blueprint files.
	Blueprints storage.Provider
	// Dir is the blueprint folder scanned for types that are not
	// configured explicitly.
	Dir   string
	Types map[string]TypeConfig
}

// Registry maps type names to directory types.
type Registry struct {
	env      *Env
	opts     RegistryOptions
	types    map[string]*Type
	names    []string // sorted
	explicit []string // sorted explicit types, preferred by Default
}

// NewRegistry builds every explicit type and every blueprint found in the
// blueprint folder. Blueprints are parsed up front, so a broken one fails
// here.
func NewRegistry(env *Env, opts RegistryOptions) (*Registry, error) {
	env = env.withDefaults()
	r := &Registry{env: env, opts: opts, types: map[string]*Type{}}

	explicit := make([]string, 0, len(opts.Types))
	for name := range opts.Types {
		explicit = append(explicit, name)
	}
	sort.Strings(explicit)
	for _, name := range explicit {
		t, err := r.build(name)
		if err != nil {
			return nil, err
		}
		r.types[name] = t
	}
	r.explicit = explicit

	if opts.Blueprints != nil {
		items, err := opts.Blueprints.List(opts.Dir)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.IsDir || path.Ext(it.Name) != ".yaml" {
				continue
			}
			name := strings.TrimSuffix(it.Name, ".yaml")
			if _, ok := r.types[name]; ok {
				continue
			}
			t, err := r.build(name)
			if err != nil {
				return nil, err
			}
			r.types[name] = t
			env.Logger.Debug("directory type discovered", slog.String("type", name))
		}
	}

	for name := range r.types {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) build(name string) (*Type, error) {
	cfg, explicit := r.opts.Types[name]
	file := cfg.Blueprint
	if file == "" {
		file = name + ".yaml"
	}
	if r.opts.Blueprints == nil {
		return nil, apperr.Configf(name, "blueprint for %s is missing", name)
	}
	p := path.Join(r.opts.Dir, file)
	data, err := r.opts.Blueprints.Read(p)
	if err != nil {
		return nil, &apperr.ConfigError{Type: name, Msg: "blueprint for " + name + " is missing", Err: err}
	}
	bp, err := schema.Parse(name, p, data)
	if err != nil {
		return nil, err
	}
	t, err := NewType(name, bp, r.env)
	if err != nil {
		return nil, err
	}
	t.explicit = explicit
	if cfg.Enabled != nil {
		t.enabled = *cfg.Enabled
	}
	return t, nil
}

// Get returns the named type, or nil.
func (r *Registry) Get(name string) *Type {
	return r.types[name]
}

// Default returns the first enabled explicit type, or the first enabled
// type by name when no explicit type is enabled.
func (r *Registry) Default() *Type {
	for _, names := range [][]string{r.explicit, r.names} {
		for _, n := range names {
			if t := r.types[n]; t.enabled {
				return t
			}
		}
	}
	return nil
}

// All returns every type sorted by name.
func (r *Registry) All() []*Type {
	out := make([]*Type, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.types[n])
	}
	return out
}

// Count returns the number of enabled types.
func (r *Registry) Count() int {
	n := 0
	for _, t := range r.types {
		if t.enabled {
			n++
		}
	}
	return n
}

// Reload rebuilds the named type from its blueprint with a fresh backend,
// dropping the loaded collection and any unsaved changes.
func (r *Registry) Reload(name string) (*Type, error) {
	old, ok := r.types[name]
	if !ok {
		return nil, apperr.ErrUnknownType
	}
	r.env.Cache.Release(old.path)
	t, err := r.build(name)
	if err != nil {
		return nil, err
	}
	r.types[name] = t
	r.env.Logger.Info("directory type reloaded", slog.String("type", name))
	return t, nil
}

// Env returns the shared environment.
func (r *Registry) Env() *Env { return r.env }
