// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pg

import (
	"testing"

	"github.com/bird-group/stepneverstop-RLs/algos"
	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/emer/etable/v2/etensor"
)

func vecSpec(obsDim, aDim int) specs.EnvAgentSpec {
	return specs.EnvAgentSpec{
		ObsSpec: specs.SensorSpec{VectorDims: []int{obsDim}},
		ADim:    aDim,
	}
}

// expSlice builds one stored time slice for a single copy taking action a
// with the given reward and done flag.
func expSlice(obs []float32, a, aDim int, reward float32, done bool) map[string]*specs.Data {
	ot := etensor.NewFloat32([]int{1, len(obs)}, nil, nil)
	copy(ot.Values, obs)
	at := etensor.NewFloat32([]int{1, aDim}, nil, nil)
	at.Values[a] = 1
	rt := etensor.NewFloat32([]int{1, 1}, nil, nil)
	rt.Values[0] = reward
	dt := etensor.NewFloat32([]int{1, 1}, nil, nil)
	if done {
		dt.Values[0] = 1
	}

	rec := specs.NewData()
	rec.Set("obs"+specs.PathSep+"vector_0", ot)
	rec.Set("action", at)
	rec.Set("reward", rt)
	rec.Set("done", dt)
	return map[string]*specs.Data{"agent_0": rec}
}

func TestNewRejectsContinuous(t *testing.T) {
	as := vecSpec(2, 2)
	as.IsContinuous = true
	if _, err := New(as, nil); err == nil {
		t.Error("continuous action spec accepted")
	}
}

func TestSelectActionShape(t *testing.T) {
	p, err := New(vecSpec(3, 4), map[string]any{"n_copys": 2})
	if err != nil {
		t.Fatal(err)
	}
	p.Seed(1)
	obs := specs.NewData()
	obs.Set("obs"+specs.PathSep+"vector_0", etensor.NewFloat32([]int{2, 3}, nil, nil))
	act, err := p.SelectAction(obs)
	if err != nil {
		t.Fatal(err)
	}
	av, err := act.Get("action")
	if err != nil {
		t.Fatal(err)
	}
	if av.Dim(0) != 2 || av.Dim(1) != 4 {
		t.Fatalf("action shape %v, want [2 4]", av.Shapes())
	}
	for c := 0; c < 2; c++ {
		var sum float32
		for a := 0; a < 4; a++ {
			sum += av.(*etensor.Float32).Values[c*4+a]
		}
		if sum != 1 {
			t.Errorf("copy %d action not one-hot (sum %g)", c, sum)
		}
	}
}

func TestLearnWithoutFinishedEpisode(t *testing.T) {
	p, err := New(vecSpec(2, 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Store(expSlice([]float32{1, 0}, 0, 2, 1, false)); err != nil {
		t.Fatal(err)
	}
	stats, err := p.Learn()
	if err != nil {
		t.Fatal(err)
	}
	if stats != nil {
		t.Error("Learn with only a running episode returned stats")
	}
}

// TestLearnReinforcesRewardedAction feeds one-step episodes where action 1
// pays 1 and action 0 pays nothing; the policy must come to prefer action 1.
func TestLearnReinforcesRewardedAction(t *testing.T) {
	p, err := New(vecSpec(2, 2), map[string]any{"lr": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	p.Seed(3)
	obs := []float64{1, 0.5, 1} // with bias
	for i := 0; i < 40; i++ {
		a := i % 2
		if err := p.Store(expSlice([]float32{1, 0.5}, a, 2, float32(a), true)); err != nil {
			t.Fatal(err)
		}
		stats, err := p.Learn()
		if err != nil {
			t.Fatal(err)
		}
		if stats == nil {
			t.Fatal("finished episode produced no stats")
		}
		if stats["episodes"] != 1 {
			t.Fatalf("episodes stat %g, want 1", stats["episodes"])
		}
	}
	probs := p.probs(obs)
	if probs[1] <= probs[0] {
		t.Errorf("policy prefers unrewarded action: %v", probs)
	}
}

func TestLearnReturnStats(t *testing.T) {
	p, err := New(vecSpec(2, 2), map[string]any{"gamma": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	// one 3-step episode, rewards 1 each
	for s := 0; s < 3; s++ {
		if err := p.Store(expSlice([]float32{1, 0}, 0, 2, 1, s == 2)); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := p.Learn()
	if err != nil {
		t.Fatal(err)
	}
	if stats["return"] != 3 {
		t.Errorf("undiscounted return %g, want 3", stats["return"])
	}
	if stats["ep_length"] != 3 {
		t.Errorf("ep_length %g, want 3", stats["ep_length"])
	}
	// pending episodes were consumed
	stats, err = p.Learn()
	if err != nil {
		t.Fatal(err)
	}
	if stats != nil {
		t.Error("second Learn replayed consumed episodes")
	}
}

func TestRegistryEntry(t *testing.T) {
	sp, err := algos.Get("pg")
	if err != nil {
		t.Fatal(err)
	}
	if sp.Mode != algos.OnPolicy {
		t.Errorf("pg registered as %v", sp.Mode)
	}
	pol, err := algos.New("pg", vecSpec(2, 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if pol.Mode() != algos.OnPolicy {
		t.Error("pg policy reports wrong mode")
	}
}
