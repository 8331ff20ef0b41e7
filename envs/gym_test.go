// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envs

import (
	"testing"

	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/emer/emergent/v2/env"
	"github.com/emer/etable/v2/etensor"
)

// countEnv is a deterministic single-copy environment: observation counts
// up each step, episode ends after epLen steps, reward equals the action.
type countEnv struct {
	t     int
	epLen int
}

func (ce *countEnv) Spec() specs.EnvAgentSpec {
	return specs.EnvAgentSpec{
		ObsSpec: specs.SensorSpec{VectorDims: []int{2}},
		ADim:    2,
	}
}

func (ce *countEnv) Reset() []float64 {
	ce.t = 0
	return []float64{0, 0}
}

func (ce *countEnv) Step(action int) ([]float64, float64, bool) {
	ce.t++
	return []float64{float64(ce.t), float64(ce.t)}, float64(action), ce.t >= ce.epLen
}

func (ce *countEnv) Seed(seed int64) {}

func init() {
	RegisterScalar("Count-v0", func() ScalarEnv {
		return &countEnv{epLen: 3}
	})
}

// rightActions one-hots action 1 for every copy.
func rightActions(n, aDim int) map[string]*specs.Data {
	av := etensor.NewFloat32([]int{n, aDim}, nil, nil)
	for c := 0; c < n; c++ {
		av.Values[c*aDim+1] = 1
	}
	act := specs.NewData()
	act.Set(FieldAction, av)
	return map[string]*specs.Data{AgentKey: act}
}

func TestGymResetShapes(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	out, err := ge.Reset()
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := out[AgentKey]
	if !ok {
		t.Fatalf("no %q record", AgentKey)
	}
	obs, err := rec.Get(FieldObs + specs.PathSep + "vector_0")
	if err != nil {
		t.Fatal(err)
	}
	if obs.Dim(0) != 3 || obs.Dim(1) != 2 {
		t.Errorf("obs shape %v, want [3 2]", obs.Shapes())
	}
}

func TestGymCounterScales(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	for c := 0; c < 2; c++ {
		if ge.Steps[c].Scale != env.Tick {
			t.Errorf("copy %d step counter scale %v, want %v", c, ge.Steps[c].Scale, env.Tick)
		}
		if ge.Steps[c].Max != 5 {
			t.Errorf("copy %d step counter max %d, want 5", c, ge.Steps[c].Max)
		}
		if ge.Episodes[c].Scale != env.Trial {
			t.Errorf("copy %d episode counter scale %v, want %v", c, ge.Episodes[c].Scale, env.Trial)
		}
	}
}

func TestGymStepRecord(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ge.Reset(); err != nil {
		t.Fatal(err)
	}
	out, err := ge.Step(rightActions(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	rec := out[AgentKey]
	for _, path := range []string{
		FieldObs + specs.PathSep + "vector_0",
		FieldObsN + specs.PathSep + "vector_0",
		FieldReward,
		FieldDone,
	} {
		if _, err := rec.Get(path); err != nil {
			t.Errorf("missing %q: %v", path, err)
		}
	}
	rew, _ := rec.Get(FieldReward)
	for c := 0; c < 2; c++ {
		if rew.FloatVal1D(c) != 1 {
			t.Errorf("copy %d reward %g, want 1", c, rew.FloatVal1D(c))
		}
	}
	obsN, _ := rec.Get(FieldObsN + specs.PathSep + "vector_0")
	if obsN.FloatVal1D(0) != 1 {
		t.Errorf("successor obs %g, want 1", obsN.FloatVal1D(0))
	}
}

func TestGymAutoResetAndBeginMask(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ge.Reset(); err != nil {
		t.Fatal(err)
	}
	// first step after Reset raises the begin mask
	out, err := ge.Step(rightActions(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	begin, err := out["global"].Get(BeginMask)
	if err != nil {
		t.Fatal(err)
	}
	if begin.FloatVal1D(0) != 1 || begin.FloatVal1D(1) != 1 {
		t.Error("begin mask not raised after Reset")
	}

	// countEnv ends at step 3; walk there and check done plus auto-reset
	for s := 0; s < 2; s++ {
		if out, err = ge.Step(rightActions(2, 2)); err != nil {
			t.Fatal(err)
		}
	}
	done, _ := out[AgentKey].Get(FieldDone)
	if done.FloatVal1D(0) != 1 {
		t.Fatal("episode did not end at step 3")
	}
	if ge.Episodes[0].Cur != 1 {
		t.Errorf("episode counter %d, want 1", ge.Episodes[0].Cur)
	}

	// the step after termination acts on a fresh observation and raises
	// the begin mask again
	out, err = ge.Step(rightActions(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	obs, _ := out[AgentKey].Get(FieldObs + specs.PathSep + "vector_0")
	if obs.FloatVal1D(0) != 0 {
		t.Errorf("post-reset obs %g, want 0", obs.FloatVal1D(0))
	}
	begin, _ = out["global"].Get(BeginMask)
	if begin.FloatVal1D(0) != 1 {
		t.Error("begin mask not raised after auto-reset")
	}
}

func TestGymStepLimitTruncates(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ge.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := ge.Step(rightActions(1, 2)); err != nil {
		t.Fatal(err)
	}
	out, err := ge.Step(rightActions(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	done, _ := out[AgentKey].Get(FieldDone)
	if done.FloatVal1D(0) != 1 {
		t.Error("step limit did not truncate the episode")
	}
}

func TestGymClosedErrors(t *testing.T) {
	ge, err := NewGymEnv("Count-v0", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := ge.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ge.Reset(); err == nil {
		t.Error("Reset after Close did not error")
	}
	if _, err := ge.Step(rightActions(1, 2)); err == nil {
		t.Error("Step after Close did not error")
	}
}

func TestNewScalarUnknown(t *testing.T) {
	if _, err := NewScalar("NoSuch-v0"); err == nil {
		t.Error("unknown scalar env did not error")
	}
}
