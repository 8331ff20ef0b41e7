// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package envs defines the batched environment surface algorithms train
against, and adapters onto it: a gym-style vectorizer over local
single-copy environments, and a Unity adapter speaking the multi-behavior
shape contract over a pluggable communicator.

Every observation and result is a nested record keyed by behavior name plus
"global", each field carrying the parallel-copies batch as its leading
dimension.
*/
package envs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bird-group/stepneverstop-RLs/specs"
)

// Field names produced by environments within each behavior record.
const (
	FieldObs    = "obs"     // observation used to act at this step
	FieldObsN   = "obs_"    // successor observation, pre auto-reset
	FieldReward = "reward"  // scalar reward per copy
	FieldDone   = "done"    // 1 where the episode terminated this step
	FieldAction = "action"  // one-hot or continuous action vector
)

// BeginMask is the "global" field marking copies whose next observation
// starts a fresh episode.
const BeginMask = "begin_mask"

// ErrUnknownPlatform is returned by MakeEnv for an unrecognized platform.
var ErrUnknownPlatform = errors.New("envs: unknown platform")

// Env is a batched environment advancing NCopys parallel copies in
// lockstep.  Step auto-resets finished copies: the returned FieldObs is
// always valid for acting, while FieldObsN preserves the terminal
// observation for learning.
type Env interface {

	// AgentSpecs returns the shape contract per behavior name.
	AgentSpecs() map[string]specs.EnvAgentSpec

	// NCopys is the number of parallel copies.
	NCopys() int

	// Reset starts all copies and returns, per behavior, a record with a
	// FieldObs observation batch.
	Reset() (map[string]*specs.Data, error)

	// Step applies one action record per behavior and returns, per
	// behavior, a record with FieldObs, FieldObsN, FieldReward and
	// FieldDone, plus a "global" record carrying BeginMask.
	Step(actions map[string]*specs.Data) (map[string]*specs.Data, error)

	Close() error
}

// ScalarEnv is one single-copy environment with a flat vector observation
// and discrete actions, the local stand-in for a gym classic-control task.
type ScalarEnv interface {

	// Spec is the shape contract of this environment.
	Spec() specs.EnvAgentSpec

	// Reset starts a new episode and returns its first observation.
	Reset() []float64

	// Step advances one step.
	Step(action int) (obs []float64, reward float64, done bool)

	// Seed seeds the environment's random source.
	Seed(seed int64)
}

// scalarFactories maps gym-style environment names to constructors;
// environment packages register themselves in init().
var scalarFactories = make(map[string]func() ScalarEnv)

// RegisterScalar registers a named single-copy environment constructor.
// It panics on a duplicate name.
func RegisterScalar(name string, f func() ScalarEnv) {
	if _, dup := scalarFactories[name]; dup {
		panic(fmt.Sprintf("envs: scalar env %q already registered", name))
	}
	scalarFactories[name] = f
}

// ScalarEnvNames returns the registered single-copy environment names,
// sorted.
func ScalarEnvNames() []string {
	names := make([]string, 0, len(scalarFactories))
	for nm := range scalarFactories {
		names = append(names, nm)
	}
	sort.Strings(names)
	return names
}

// NewScalar constructs a registered single-copy environment by name.
func NewScalar(name string) (ScalarEnv, error) {
	f, ok := scalarFactories[name]
	if !ok {
		return nil, fmt.Errorf("envs: no scalar env %q (registered: %v)", name, ScalarEnvNames())
	}
	return f(), nil
}
