// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package pg implements REINFORCE with a linear softmax policy over vector
observations.  Trajectories are accumulated per environment copy and its
Monte-Carlo return gradient is applied when that copy's episode ends, so the
method stays strictly on-policy.
*/
package pg

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/bird-group/stepneverstop-RLs/algos"
	"github.com/bird-group/stepneverstop-RLs/configs"
	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/emer/etable/v2/etensor"
	"gonum.org/v1/gonum/mat"
)

func init() {
	algos.Register("pg", algos.Spec{
		New:  func(as specs.EnvAgentSpec, hypers map[string]any) (algos.Policy, error) { return New(as, hypers) },
		Mode: algos.OnPolicy,
		Logo: "REINFORCE",
	})
}

// Config holds the REINFORCE hyperparameters.
type Config struct {

	// discount factor for returns-to-go
	Gamma float64 `yaml:"gamma"`

	// gradient step size
	Lr float64 `yaml:"lr"`

	// behavior key experience arrives under
	AgentKey string `yaml:"agent_key"`

	// number of parallel environment copies
	NCopys int `yaml:"n_copys"`
}

func (c *Config) Defaults() {
	c.Gamma = 0.99
	c.Lr = 0.001
	c.AgentKey = "agent_0"
	c.NCopys = 1
}

// step is one stored transition of a single copy's running episode.
type step struct {
	obs    []float64
	action int
	reward float64
}

// PG is a linear softmax REINFORCE learner.
type PG struct {
	Cfg  Config
	Spec specs.EnvAgentSpec

	// policy weights, [ADim x obsDim+1] (trailing bias column)
	W *mat.Dense

	// running episode per copy, flushed into pending updates on done
	trajs [][]step

	// finished episodes awaiting the next Learn call
	pending [][]step

	rng *rand.Rand
}

// New returns a REINFORCE learner for the given behavior spec.
func New(as specs.EnvAgentSpec, hypers map[string]any) (*PG, error) {
	if err := as.Validate(); err != nil {
		return nil, err
	}
	if !as.ObsSpec.HasVector() {
		return nil, fmt.Errorf("pg: requires vector observations")
	}
	if as.IsContinuous {
		return nil, fmt.Errorf("pg: discrete actions only")
	}
	var cfg Config
	cfg.Defaults()
	if err := configs.ApplyHypers(hypers, &cfg); err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	return &PG{
		Cfg:   cfg,
		Spec:  as,
		W:     mat.NewDense(as.ADim, as.ObsSpec.VectorSize()+1, nil),
		trajs: make([][]step, cfg.NCopys),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Seed seeds action sampling, for reproducible runs.
func (p *PG) Seed(seed int64) {
	p.rng = rand.New(rand.NewSource(seed))
}

func (p *PG) Mode() algos.PolicyMode { return algos.OnPolicy }

// SelectAction samples one action per copy from the softmax policy,
// returning a one-hot "action" field [NCopys, ADim].
func (p *PG) SelectAction(obs *specs.Data) (*specs.Data, error) {
	feats, n, err := obsFeatures(obs)
	if err != nil {
		return nil, err
	}
	act := etensor.NewFloat32([]int{n, p.Spec.ADim}, nil, nil)
	for c := 0; c < n; c++ {
		a := p.sample(p.probs(feats[c]))
		act.Values[c*p.Spec.ADim+a] = 1
	}
	out := specs.NewData()
	out.Set("action", act)
	return out, nil
}

// Store appends one time slice; a copy whose done flag is set has its
// episode moved to the pending updates.
func (p *PG) Store(exp map[string]*specs.Data) error {
	rec, ok := exp[p.Cfg.AgentKey]
	if !ok {
		return fmt.Errorf("pg: no %q key in experience", p.Cfg.AgentKey)
	}
	feats, n, err := obsFeatures(rec)
	if err != nil {
		return err
	}
	if n != p.Cfg.NCopys {
		return fmt.Errorf("pg: got %d copies, configured %d", n, p.Cfg.NCopys)
	}
	action, err := rec.Get("action")
	if err != nil {
		return err
	}
	reward, err := rec.Get("reward")
	if err != nil {
		return err
	}
	done, err := rec.Get("done")
	if err != nil {
		return err
	}
	for c := 0; c < n; c++ {
		p.trajs[c] = append(p.trajs[c], step{
			obs:    feats[c],
			action: onehotArg(action, c, p.Spec.ADim),
			reward: reward.FloatVal1D(c),
		})
		if done.FloatVal1D(c) != 0 {
			p.pending = append(p.pending, p.trajs[c])
			p.trajs[c] = nil
		}
	}
	return nil
}

// Learn applies the REINFORCE update for every finished episode and drops
// them.  Returns nil Stats when no episode has finished since the last
// call.
func (p *PG) Learn() (algos.Stats, error) {
	if len(p.pending) == 0 {
		return nil, nil
	}
	var retSum, lenSum float64
	for _, traj := range p.pending {
		// returns-to-go
		g := 0.0
		rets := make([]float64, len(traj))
		for i := len(traj) - 1; i >= 0; i-- {
			g = traj[i].reward + p.Cfg.Gamma*g
			rets[i] = g
		}
		retSum += rets[0]
		lenSum += float64(len(traj))
		for i, st := range traj {
			probs := p.probs(st.obs)
			for a := 0; a < p.Spec.ADim; a++ {
				grad := -probs[a]
				if a == st.action {
					grad++
				}
				for j, x := range st.obs {
					p.W.Set(a, j, p.W.At(a, j)+p.Cfg.Lr*rets[i]*grad*x)
				}
			}
		}
	}
	n := float64(len(p.pending))
	p.pending = nil
	return algos.Stats{
		"episodes":  n,
		"return":    retSum / n,
		"ep_length": lenSum / n,
	}, nil
}

// probs is the softmax over W.s, computed with the max-subtraction trick.
func (p *PG) probs(s []float64) []float64 {
	logits := make([]float64, p.Spec.ADim)
	maxl := math.Inf(-1)
	for a := range logits {
		var v float64
		for j, x := range s {
			v += p.W.At(a, j) * x
		}
		logits[a] = v
		if v > maxl {
			maxl = v
		}
	}
	var sum float64
	for a, v := range logits {
		logits[a] = math.Exp(v - maxl)
		sum += logits[a]
	}
	for a := range logits {
		logits[a] /= sum
	}
	return logits
}

// sample draws an action index from a categorical distribution.
func (p *PG) sample(probs []float64) int {
	r := p.rng.Float64()
	var cum float64
	for a, pr := range probs {
		cum += pr
		if r < cum {
			return a
		}
	}
	return len(probs) - 1
}

// obsFeatures flattens the vector sensors of a [NCopys, *] record into
// per-copy feature vectors with a trailing bias term.
func obsFeatures(rec *specs.Data) ([][]float64, int, error) {
	flat := rec.Flatten()
	n := -1
	var cols []etensor.Tensor
	for _, path := range rec.Paths() {
		if path != "obs" && !strings.HasPrefix(path, "obs"+specs.PathSep) {
			continue
		}
		tsr := flat[path]
		if n < 0 {
			n = tsr.Dim(0)
		} else if tsr.Dim(0) != n {
			return nil, 0, fmt.Errorf("pg: inconsistent copy dims across obs fields")
		}
		cols = append(cols, tsr)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("pg: no obs fields in record")
	}
	feats := make([][]float64, n)
	for c := 0; c < n; c++ {
		var row []float64
		for _, tsr := range cols {
			d := tsr.Len() / n
			for j := 0; j < d; j++ {
				row = append(row, tsr.FloatVal1D(c*d+j))
			}
		}
		feats[c] = append(row, 1) // bias
	}
	return feats, n, nil
}

// onehotArg decodes the one-hot action for copy c.
func onehotArg(action etensor.Tensor, c, aDim int) int {
	best, bestV := 0, action.FloatVal1D(c*aDim)
	for a := 1; a < aDim; a++ {
		if v := action.FloatVal1D(c*aDim + a); v > bestV {
			best, bestV = a, v
		}
	}
	return best
}
