// Package registry holds the set of configured database engines.
//
// The registry is built once at process start from configuration and is
// read-only afterwards; both the CLI and the control-plane server resolve
// engines through it.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zulandar/rds/internal/config"
)

var (
	// ErrDuplicateEngine is returned when registering a name twice.
	ErrDuplicateEngine = errors.New("duplicate engine")
	// ErrUnknownEngine is returned when looking up an unregistered name.
	ErrUnknownEngine = errors.New("unknown engine")
)

// Engine is the descriptor for one managed database engine instance.
type Engine struct {
	Name          string
	Port          int
	DataDir       string
	ListenAddress string
	Description   string
	BrowseURL     string
	ExtraEnv      map[string]string
	Capabilities  map[string][]string
	Backup        *config.BackupPolicy
}

// HasBackup reports whether the engine has an enabled backup policy.
func (e *Engine) HasBackup() bool {
	return e.Backup != nil && e.Backup.Enabled
}

// Actions returns the engine's capability names, sorted.
func (e *Engine) Actions() []string {
	actions := make([]string, 0, len(e.Capabilities))
	for a := range e.Capabilities {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Registry is an ordered, immutable-after-construction set of engines.
type Registry struct {
	engines map[string]*Engine
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Register adds an engine. Registration order is preserved and determines
// List order. Called during startup only; the registry is not mutated once
// serving begins.
func (r *Registry) Register(e *Engine) error {
	if e.Name == "" {
		return fmt.Errorf("registry: engine name is required")
	}
	if len(e.Capabilities) == 0 {
		return fmt.Errorf("registry: engine %s has no capabilities", e.Name)
	}
	if _, ok := r.engines[e.Name]; ok {
		return fmt.Errorf("registry: %w: %s", ErrDuplicateEngine, e.Name)
	}
	r.engines[e.Name] = e
	r.order = append(r.order, e.Name)
	return nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (*Engine, error) {
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("registry: %w: %s (known: %v)", ErrUnknownEngine, name, r.order)
	}
	return e, nil
}

// List returns all engines in registration order.
func (r *Registry) List() []*Engine {
	out := make([]*Engine, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.engines[name])
	}
	return out
}

// Names returns the registered engine names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	return len(r.order)
}

// FromConfig builds a registry from the configured engines, in file order.
func FromConfig(cfg *config.Config) (*Registry, error) {
	r := New()
	for i := range cfg.Engines {
		ec := &cfg.Engines[i]
		e := &Engine{
			Name:          ec.Name,
			Port:          ec.Port,
			DataDir:       ec.DataDir,
			ListenAddress: ec.ListenAddress,
			Description:   ec.Description,
			BrowseURL:     ec.BrowseURL,
			ExtraEnv:      ec.ExtraEnv,
			Capabilities:  ec.Capabilities,
			Backup:        ec.Backup,
		}
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
