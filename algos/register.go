// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package algos

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bird-group/stepneverstop-RLs/specs"
)

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("algos: algorithm already registered")

	// ErrNotFound is returned when no algorithm has the requested name.
	ErrNotFound = errors.New("algos: algorithm not found")
)

// Spec describes one registered algorithm: how to construct it, whether it
// is on- or off-policy, and whether it is a multi-agent method.
type Spec struct {

	// New constructs the algorithm for one behavior, with hyperparameters
	// from configuration overriding its defaults.
	New func(as specs.EnvAgentSpec, hypers map[string]any) (Policy, error)

	// Mode reports how the algorithm consumes experience.
	Mode PolicyMode

	// IsMulti marks multi-agent methods.
	IsMulti bool

	// Logo is printed when the algorithm is constructed by name.
	Logo string
}

// Registry maps algorithm names to their Specs.
type Registry struct {
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a named algorithm.  Re-registering a name is an error.
func (r *Registry) Register(name string, sp Spec) error {
	if _, dup := r.specs[name]; dup {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	if sp.New == nil {
		return fmt.Errorf("algos: Register %q: nil constructor", name)
	}
	r.specs[name] = sp
	return nil
}

// Get returns the Spec for a name.
func (r *Registry) Get(name string) (Spec, error) {
	sp, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q (registered: %v)", ErrNotFound, name, r.List())
	}
	return sp, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.specs))
	for nm := range r.specs {
		names = append(names, nm)
	}
	sort.Strings(names)
	return names
}

// std is the process-wide registry that algorithm packages add themselves
// to in init().
var std = NewRegistry()

// Register adds a named algorithm to the standard registry.  It panics on a
// duplicate name: registration happens in init() and a collision is a
// programming error.
func Register(name string, sp Spec) {
	if err := std.Register(name, sp); err != nil {
		panic(err)
	}
}

// Get returns the Spec for a name from the standard registry.
func Get(name string) (Spec, error) { return std.Get(name) }

// List returns the names in the standard registry, sorted.
func List() []string { return std.List() }

// New constructs a registered algorithm by name for the given behavior
// spec, applying hyperparameter overrides.
func New(name string, as specs.EnvAgentSpec, hypers map[string]any) (Policy, error) {
	sp, err := std.Get(name)
	if err != nil {
		return nil, err
	}
	return sp.New(as, hypers)
}
