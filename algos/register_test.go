// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package algos

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bird-group/stepneverstop-RLs/specs"
)

type nullPolicy struct{}

func (np *nullPolicy) SelectAction(obs *specs.Data) (*specs.Data, error) { return obs, nil }
func (np *nullPolicy) Store(exp map[string]*specs.Data) error            { return nil }
func (np *nullPolicy) Learn() (Stats, error)                             { return nil, nil }
func (np *nullPolicy) Mode() PolicyMode                                  { return OffPolicy }

func nullSpec() Spec {
	return Spec{
		New: func(as specs.EnvAgentSpec, hypers map[string]any) (Policy, error) {
			return &nullPolicy{}, nil
		},
		Mode: OffPolicy,
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("null", nullSpec()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("null", nullSpec()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("duplicate Register: got %v, want ErrAlreadyRegistered", err)
	}
	sp, err := r.Get("null")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sp.Mode != OffPolicy {
		t.Errorf("Mode: got %v, want %v", sp.Mode, OffPolicy)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
	names := r.List()
	if len(names) != 1 || names[0] != "null" {
		t.Errorf("List: got %v, want [null]", names)
	}
}

func TestRegistryNilConstructor(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("bad", Spec{}); err == nil {
		t.Errorf("Register with nil constructor: expected error")
	}
}

func TestPolicyModeJSON(t *testing.T) {
	b, err := json.Marshal(OffPolicy)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var pm PolicyMode
	if err := json.Unmarshal(b, &pm); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if pm != OffPolicy {
		t.Errorf("round trip: got %v, want %v", pm, OffPolicy)
	}
}
