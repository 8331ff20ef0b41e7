// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envs

import (
	"fmt"

	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/emer/emergent/v2/env"
	"github.com/emer/etable/v2/etensor"
	"github.com/google/uuid"
)

// AgentKey is the behavior name used for single-agent platforms.
const AgentKey = "agent_0"

// GymEnv vectorizes NCopys independent copies of a single-copy environment
// behind the batched Env surface, auto-resetting each copy as its episode
// ends.  One behavior key (AgentKey) is produced, plus the "global" record.
type GymEnv struct {

	// run identity, for log correlation across processes
	ID uuid.UUID

	// the independent copies, stepped in lockstep
	Copies []ScalarEnv

	// per-copy step counter within the current episode; Max truncates
	// overly long episodes when positive
	Steps []env.Ctr

	// episodes completed per copy
	Episodes []env.Ctr

	spec specs.EnvAgentSpec

	// observation to act on next step, refreshed by Reset/Step
	cur [][]float64

	// marks copies whose cur observation begins a new episode
	begin []bool

	closed bool
}

// NewGymEnv builds a vectorized environment over nCopys copies constructed
// by the registered factory for name.  maxEpSteps > 0 truncates episodes
// at that length (the classic-control time limit); truncation sets done.
func NewGymEnv(name string, nCopys, maxEpSteps int) (*GymEnv, error) {
	if nCopys <= 0 {
		return nil, fmt.Errorf("envs: nCopys must be positive, got %d", nCopys)
	}
	ge := &GymEnv{
		ID:       uuid.New(),
		Copies:   make([]ScalarEnv, nCopys),
		Steps:    make([]env.Ctr, nCopys),
		Episodes: make([]env.Ctr, nCopys),
		cur:      make([][]float64, nCopys),
		begin:    make([]bool, nCopys),
	}
	for c := 0; c < nCopys; c++ {
		se, err := NewScalar(name)
		if err != nil {
			return nil, err
		}
		ge.Copies[c] = se
		ge.Steps[c].Scale = env.Tick
		ge.Steps[c].Max = maxEpSteps
		ge.Episodes[c].Scale = env.Trial
	}
	ge.spec = ge.Copies[0].Spec()
	if err := ge.spec.Validate(); err != nil {
		return nil, err
	}
	return ge, nil
}

// Seed seeds every copy, offset so copies do not march in phase.
func (ge *GymEnv) Seed(seed int64) {
	for c, se := range ge.Copies {
		se.Seed(seed + int64(c))
	}
}

func (ge *GymEnv) AgentSpecs() map[string]specs.EnvAgentSpec {
	return map[string]specs.EnvAgentSpec{AgentKey: ge.spec}
}

func (ge *GymEnv) NCopys() int { return len(ge.Copies) }

// Reset starts a fresh episode on every copy.
func (ge *GymEnv) Reset() (map[string]*specs.Data, error) {
	if ge.closed {
		return nil, fmt.Errorf("envs: %s used after Close", ge.ID)
	}
	for c, se := range ge.Copies {
		ge.cur[c] = se.Reset()
		ge.Steps[c].Init()
		ge.Episodes[c].Init()
		ge.begin[c] = true
	}
	rec := specs.NewData()
	rec.Set(FieldObs+specs.PathSep+"vector_0", ge.vecTensor(ge.cur))
	return map[string]*specs.Data{AgentKey: rec}, nil
}

// Step advances every copy by its action, auto-resetting finished copies.
func (ge *GymEnv) Step(actions map[string]*specs.Data) (map[string]*specs.Data, error) {
	if ge.closed {
		return nil, fmt.Errorf("envs: %s used after Close", ge.ID)
	}
	act, ok := actions[AgentKey]
	if !ok {
		return nil, fmt.Errorf("envs: no %q key in actions", AgentKey)
	}
	av, err := act.Get(FieldAction)
	if err != nil {
		return nil, err
	}
	n := ge.NCopys()
	if av.Dim(0) != n {
		return nil, fmt.Errorf("envs: action leading dim %d, want NCopys %d", av.Dim(0), n)
	}
	aDim := ge.spec.ADim

	obs := ge.vecTensor(ge.cur) // pre-step observations, copied out now
	next := make([][]float64, n)
	reward := etensor.NewFloat32([]int{n, 1}, nil, nil)
	done := etensor.NewFloat32([]int{n, 1}, nil, nil)
	begin := etensor.NewFloat32([]int{n, 1}, nil, nil)

	for c := 0; c < n; c++ {
		if ge.begin[c] {
			begin.Values[c] = 1
			ge.begin[c] = false
		}
		a := 0
		bestV := av.FloatVal1D(c * aDim)
		for i := 1; i < aDim; i++ {
			if v := av.FloatVal1D(c*aDim + i); v > bestV {
				a, bestV = i, v
			}
		}
		o, r, dn := ge.Copies[c].Step(a)
		if ge.Steps[c].Incr() { // hit the step limit
			dn = true
		}
		next[c] = o
		reward.Values[c] = float32(r)
		if dn {
			done.Values[c] = 1
			ge.Episodes[c].Incr()
			ge.cur[c] = ge.Copies[c].Reset()
			ge.Steps[c].Init()
			ge.begin[c] = true
		} else {
			ge.cur[c] = o
		}
	}

	rec := specs.NewData()
	rec.Set(FieldObs+specs.PathSep+"vector_0", obs)
	rec.Set(FieldObsN+specs.PathSep+"vector_0", ge.vecTensor(next))
	rec.Set(FieldReward, reward)
	rec.Set(FieldDone, done)

	global := specs.NewData()
	global.Set(BeginMask, begin)

	return map[string]*specs.Data{AgentKey: rec, "global": global}, nil
}

// Obs returns the observation record to act on next, reflecting any
// auto-resets from the last Step.
func (ge *GymEnv) Obs() *specs.Data {
	rec := specs.NewData()
	rec.Set(FieldObs+specs.PathSep+"vector_0", ge.vecTensor(ge.cur))
	return rec
}

func (ge *GymEnv) Close() error {
	ge.closed = true
	return nil
}

func (ge *GymEnv) String() string {
	return fmt.Sprintf("GymEnv %s x%d", ge.ID, ge.NCopys())
}

// vecTensor packs per-copy vectors into one [NCopys, dim] float32 tensor.
func (ge *GymEnv) vecTensor(rows [][]float64) *etensor.Float32 {
	n := len(rows)
	dim := ge.spec.ObsSpec.VectorSize()
	tsr := etensor.NewFloat32([]int{n, dim}, nil, nil)
	for c, row := range rows {
		for j, v := range row {
			tsr.Values[c*dim+j] = float32(v)
		}
	}
	return tsr
}
