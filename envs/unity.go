// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bird-group/stepneverstop-RLs/specs"
)

// Communicator exchanges batched records with a running Unity ML-Agents
// process.  The wire protocol (side channels, RPC) lives entirely behind
// this interface; this package only enforces its data-shape contract.
type Communicator interface {

	// BehaviorSpecs reports the shape contract per behavior name, as
	// published by the process after its first reset.
	BehaviorSpecs() (map[string]specs.EnvAgentSpec, error)

	// Reset restarts all copies and returns, per behavior, a record with
	// an initial FieldObs batch.
	Reset() (map[string]*specs.Data, error)

	// Exchange applies one action record per behavior and returns the
	// step results, per behavior plus "global".
	Exchange(actions map[string]*specs.Data) (map[string]*specs.Data, error)

	Close() error
}

// UnityEnv adapts a Communicator to the batched Env surface, validating
// every exchanged record against the published behavior specs.  Behavior
// names containing '?' (Unity team-id separators) are exposed with '_'
// instead, matching the sanitized names used in configuration.
type UnityEnv struct {
	comm   Communicator
	nCopys int

	// sanitized name -> spec
	specs map[string]specs.EnvAgentSpec

	// sanitized name -> raw behavior name on the wire
	rawNames map[string]string
}

// NewUnityEnv wraps a communicator for nCopys parallel copies.
func NewUnityEnv(comm Communicator, nCopys int) (*UnityEnv, error) {
	if comm == nil {
		return nil, fmt.Errorf("envs: nil Unity communicator")
	}
	if nCopys <= 0 {
		return nil, fmt.Errorf("envs: nCopys must be positive, got %d", nCopys)
	}
	raw, err := comm.BehaviorSpecs()
	if err != nil {
		return nil, fmt.Errorf("envs: behavior specs: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("envs: Unity process published no behaviors")
	}
	ue := &UnityEnv{
		comm:     comm,
		nCopys:   nCopys,
		specs:    make(map[string]specs.EnvAgentSpec, len(raw)),
		rawNames: make(map[string]string, len(raw)),
	}
	for bn, as := range raw {
		if err := as.Validate(); err != nil {
			return nil, fmt.Errorf("envs: behavior %q: %w", bn, err)
		}
		fixed := strings.ReplaceAll(bn, "?", "_")
		ue.specs[fixed] = as
		ue.rawNames[fixed] = bn
	}
	return ue, nil
}

func (ue *UnityEnv) AgentSpecs() map[string]specs.EnvAgentSpec { return ue.specs }

func (ue *UnityEnv) NCopys() int { return ue.nCopys }

// BehaviorNames returns the sanitized behavior names, sorted.
func (ue *UnityEnv) BehaviorNames() []string {
	names := make([]string, 0, len(ue.specs))
	for nm := range ue.specs {
		names = append(names, nm)
	}
	sort.Strings(names)
	return names
}

func (ue *UnityEnv) Reset() (map[string]*specs.Data, error) {
	out, err := ue.comm.Reset()
	if err != nil {
		return nil, err
	}
	fixed := ue.sanitize(out)
	if err := ue.validate(fixed, false); err != nil {
		return nil, err
	}
	return fixed, nil
}

func (ue *UnityEnv) Step(actions map[string]*specs.Data) (map[string]*specs.Data, error) {
	raw := make(map[string]*specs.Data, len(actions))
	for nm, rec := range actions {
		bn, ok := ue.rawNames[nm]
		if !ok {
			return nil, fmt.Errorf("envs: action for unknown behavior %q (have %v)", nm, ue.BehaviorNames())
		}
		av, err := rec.Get(FieldAction)
		if err != nil {
			return nil, fmt.Errorf("envs: behavior %q: %w", nm, err)
		}
		as := ue.specs[nm]
		if av.Dim(0) != ue.nCopys || (!as.IsContinuous && av.Len()/av.Dim(0) != as.ADim) {
			return nil, fmt.Errorf("envs: behavior %q action shape %v, want [%d, %d]",
				nm, av.Shapes(), ue.nCopys, as.ADim)
		}
		raw[bn] = rec
	}
	out, err := ue.comm.Exchange(raw)
	if err != nil {
		return nil, err
	}
	fixed := ue.sanitize(out)
	if err := ue.validate(fixed, true); err != nil {
		return nil, err
	}
	return fixed, nil
}

func (ue *UnityEnv) Close() error { return ue.comm.Close() }

// sanitize rewrites raw behavior keys to their fixed names, passing
// "global" through.
func (ue *UnityEnv) sanitize(recs map[string]*specs.Data) map[string]*specs.Data {
	out := make(map[string]*specs.Data, len(recs))
	for bn, rec := range recs {
		out[strings.ReplaceAll(bn, "?", "_")] = rec
	}
	return out
}

// validate enforces the shape contract on records arriving from the
// process: known behaviors only, NCopys leading dims, and the step fields
// present after an exchange.
func (ue *UnityEnv) validate(recs map[string]*specs.Data, stepped bool) error {
	for nm, rec := range recs {
		if nm == "global" {
			continue
		}
		if _, ok := ue.specs[nm]; !ok {
			return fmt.Errorf("envs: record for unknown behavior %q", nm)
		}
		flat := rec.Flatten()
		for path, tsr := range flat {
			if tsr.NumDims() < 1 || tsr.Dim(0) != ue.nCopys {
				return fmt.Errorf("envs: behavior %q field %q leading dim %v, want NCopys %d",
					nm, path, tsr.Shapes(), ue.nCopys)
			}
		}
		if stepped {
			for _, want := range []string{FieldReward, FieldDone} {
				if _, ok := flat[want]; !ok {
					return fmt.Errorf("envs: behavior %q step record missing %q", nm, want)
				}
			}
		}
	}
	return nil
}
