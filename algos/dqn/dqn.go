// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package dqn implements Q-learning with linear function approximation over
vector observations, in single ("dqn") and double ("ddqn") variants.  The
double variant selects the bootstrap action with the online weights and
evaluates it with the target weights, per https://arxiv.org/abs/1509.06461.

Experience is replayed from the shared circular buffer as [T, B, *] windows;
each window contributes its transitions to the TD update in random order.
*/
package dqn

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bird-group/stepneverstop-RLs/algos"
	"github.com/bird-group/stepneverstop-RLs/configs"
	"github.com/bird-group/stepneverstop-RLs/memories"
	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/emer/emergent/v2/erand"
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/etable/v2/minmax"
	"github.com/goki/mat32"
	"gonum.org/v1/gonum/mat"
)

func init() {
	algos.Register("dqn", algos.Spec{
		New:  func(as specs.EnvAgentSpec, hypers map[string]any) (algos.Policy, error) { return New(as, hypers) },
		Mode: algos.OffPolicy,
		Logo: "DQN",
	})
	algos.Register("ddqn", algos.Spec{
		New: func(as specs.EnvAgentSpec, hypers map[string]any) (algos.Policy, error) {
			hypers = withDouble(hypers)
			return New(as, hypers)
		},
		Mode: algos.OffPolicy,
		Logo: "Double DQN",
	})
}

func withDouble(hypers map[string]any) map[string]any {
	out := map[string]any{"double": true}
	for k, v := range hypers {
		out[k] = v
	}
	return out
}

// Config holds the DQN hyperparameters.
type Config struct {

	// discount factor
	Gamma float64 `yaml:"gamma"`

	// TD step size
	Lr float64 `yaml:"lr"`

	// initial epsilon-greedy exploration probability
	Eps float32 `yaml:"eps"`

	// epsilon floor
	EpsMin float32 `yaml:"eps_min"`

	// multiplicative epsilon decay applied per learning step
	EpsDecay float32 `yaml:"eps_decay"`

	// target weights are copied from the online weights every SyncEvery
	// learning steps
	SyncEvery int `yaml:"sync_every"`

	// DDQN bootstrap action selection
	Double bool `yaml:"double"`

	// clip rewards into RewardClip before the TD target when on
	ClipReward bool `yaml:"clip_reward"`

	// reward clipping range, active when ClipReward is on
	RewardClip minmax.F32 `yaml:"reward_clip"`

	// behavior key experience is stored under
	AgentKey string `yaml:"agent_key"`

	// replay geometry, shared with the buffer
	NCopys     int `yaml:"n_copys"`
	BatchSize  int `yaml:"batch_size"`
	BufferSize int `yaml:"buffer_size"`
	TimeStep   int `yaml:"time_step"`
}

func (c *Config) Defaults() {
	c.Gamma = 0.99
	c.Lr = 0.01
	c.Eps = 1
	c.EpsMin = 0.05
	c.EpsDecay = 0.999
	c.SyncEvery = 100
	c.RewardClip.Set(-1, 1)
	c.AgentKey = "agent_0"
	c.NCopys = 1
	c.BatchSize = 32
	c.BufferSize = 10000
	c.TimeStep = 1
}

// DQN is a linear-function-approximation Q-learner over vector
// observations.  Q(s) = W * [s; 1], one output row per action.
type DQN struct {
	Cfg  Config
	Spec specs.EnvAgentSpec

	// online and target weights, [ADim x obsDim+1] (trailing bias column)
	W, WTarget *mat.Dense

	// replay buffer, written by Store and read by Learn
	Buffer *memories.DataBuffer

	// current exploration probability
	Eps float32

	updates int
	rng     *rand.Rand
}

// New returns a DQN for the given behavior spec with hyperparameter
// overrides applied on top of Defaults.
func New(as specs.EnvAgentSpec, hypers map[string]any) (*DQN, error) {
	if err := as.Validate(); err != nil {
		return nil, err
	}
	if !as.ObsSpec.HasVector() {
		return nil, fmt.Errorf("dqn: requires vector observations")
	}
	if as.IsContinuous {
		return nil, fmt.Errorf("dqn: discrete actions only")
	}
	var cfg Config
	cfg.Defaults()
	if err := configs.ApplyHypers(hypers, &cfg); err != nil {
		return nil, fmt.Errorf("dqn: %w", err)
	}
	buf, err := memories.NewDataBuffer(cfg.NCopys, cfg.BatchSize, cfg.BufferSize, cfg.TimeStep)
	if err != nil {
		return nil, err
	}
	nin := as.ObsSpec.VectorSize() + 1
	dq := &DQN{
		Cfg:     cfg,
		Spec:    as,
		W:       mat.NewDense(as.ADim, nin, nil),
		WTarget: mat.NewDense(as.ADim, nin, nil),
		Buffer:  buf,
		Eps:     cfg.Eps,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	return dq, nil
}

// Seed seeds exploration and replay sampling, for reproducible runs.
func (dq *DQN) Seed(seed int64) {
	dq.rng = rand.New(rand.NewSource(seed))
	dq.Buffer.Seed(seed + 1)
}

func (dq *DQN) Mode() algos.PolicyMode { return algos.OffPolicy }

// SelectAction applies epsilon-greedy action selection per environment
// copy, returning a record with a one-hot "action" field [NCopys, ADim].
func (dq *DQN) SelectAction(obs *specs.Data) (*specs.Data, error) {
	feats, n, err := obsFeatures(obs)
	if err != nil {
		return nil, err
	}
	act := etensor.NewFloat32([]int{n, dq.Spec.ADim}, nil, nil)
	for c := 0; c < n; c++ {
		var a int
		if dq.rng.Float32() < dq.Eps {
			a = dq.rng.Intn(dq.Spec.ADim)
		} else {
			a = argmaxQ(dq.W, feats[c])
		}
		act.Values[c*dq.Spec.ADim+a] = 1
	}
	out := specs.NewData()
	out.Set("action", act)
	return out, nil
}

// Store appends one synchronized time slice to the replay buffer.
func (dq *DQN) Store(exp map[string]*specs.Data) error {
	return dq.Buffer.Add(exp)
}

// Learn replays one batch of windows and applies the TD update across all
// of its transitions, then decays epsilon and periodically syncs the target
// weights.  Returns nil Stats until the buffer can sample.
func (dq *DQN) Learn() (algos.Stats, error) {
	if !dq.Buffer.CanSample() {
		return nil, nil
	}
	samples, err := dq.Buffer.Sample(0, 0)
	if err != nil {
		return nil, err
	}
	rec, ok := samples[dq.Cfg.AgentKey]
	if !ok {
		return nil, fmt.Errorf("dqn: no %q key in sampled batch (keys %v)", dq.Cfg.AgentKey, dq.Buffer.Keys())
	}
	obs, err := batchFeatures(rec, "obs")
	if err != nil {
		return nil, err
	}
	obsNext, err := batchFeatures(rec, "obs_")
	if err != nil {
		return nil, err
	}
	action, err := rec.Get("action")
	if err != nil {
		return nil, err
	}
	reward, err := rec.Get("reward")
	if err != nil {
		return nil, err
	}
	done, err := rec.Get("done")
	if err != nil {
		return nil, err
	}

	n := len(obs) // T*B transitions
	ord := make([]int, n)
	for i := range ord {
		ord[i] = i
	}
	erand.PermuteInts(ord)

	var lossSum, qSum float64
	qMin, qMax := mat32.Infinity, -mat32.Infinity
	for _, i := range ord {
		a := onehotArg(action, i, dq.Spec.ADim)
		r := reward.FloatVal1D(i)
		if dq.Cfg.ClipReward {
			r = float64(dq.Cfg.RewardClip.ClipVal(float32(r)))
		}
		d := done.FloatVal1D(i)

		var qBoot float64
		if dq.Cfg.Double {
			aStar := argmaxQ(dq.W, obsNext[i])
			qBoot = qValue(dq.WTarget, obsNext[i], aStar)
		} else {
			qBoot = qValue(dq.WTarget, obsNext[i], argmaxQ(dq.WTarget, obsNext[i]))
		}
		y := r + dq.Cfg.Gamma*(1-d)*qBoot
		q := qValue(dq.W, obs[i], a)
		td := y - q
		for j, x := range obs[i] {
			dq.W.Set(a, j, dq.W.At(a, j)+dq.Cfg.Lr*td*x)
		}

		lossSum += td * td
		qSum += q
		qMin = mat32.Min(qMin, float32(q))
		qMax = mat32.Max(qMax, float32(q))
	}

	dq.updates++
	if dq.updates%dq.Cfg.SyncEvery == 0 {
		dq.WTarget.Copy(dq.W)
	}
	dq.Eps = mat32.Max(dq.Eps*dq.Cfg.EpsDecay, dq.Cfg.EpsMin)

	return algos.Stats{
		"loss":    lossSum / float64(n),
		"q_mean":  qSum / float64(n),
		"q_min":   float64(qMin),
		"q_max":   float64(qMax),
		"epsilon": float64(dq.Eps),
	}, nil
}

// obsFeatures flattens the vector sensors of a [NCopys, *] observation
// record into per-copy feature vectors with a trailing bias term.
func obsFeatures(rec *specs.Data) ([][]float64, int, error) {
	flat := rec.Flatten()
	paths := rec.Paths()
	n := -1
	var cols []etensor.Tensor
	for _, p := range paths {
		if p != "obs" && !strings.HasPrefix(p, "obs"+specs.PathSep) {
			continue
		}
		tsr := flat[p]
		if n < 0 {
			n = tsr.Dim(0)
		} else if tsr.Dim(0) != n {
			return nil, 0, fmt.Errorf("dqn: inconsistent copy dims across obs fields")
		}
		cols = append(cols, tsr)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("dqn: no obs fields in record (paths %v)", paths)
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

// batchFeatures flattens the named observation fields of a sampled
// [T, B, *] record into one feature vector per transition, time-major.
func batchFeatures(rec *specs.Data, prefix string) ([][]float64, error) {
	flat := rec.Flatten()
	var cols []etensor.Tensor
	n := -1
	for _, p := range rec.Paths() {
		if p != prefix && !strings.HasPrefix(p, prefix+specs.PathSep) {
			continue
		}
		tsr := flat[p]
		tb := tsr.Dim(0) * tsr.Dim(1)
		if n < 0 {
			n = tb
		} else if tb != n {
			return nil, fmt.Errorf("dqn: inconsistent T*B across %q fields", prefix)
		}
		cols = append(cols, tsr)
	}
	if n < 0 {
		return nil, fmt.Errorf("dqn: no %q fields in sampled record", prefix)
	}
	feats := make([][]float64, n)
	for i := 0; i < n; i++ {
		var row []float64
		for _, tsr := range cols {
			d := tsr.Len() / n
			for j := 0; j < d; j++ {
				row = append(row, tsr.FloatVal1D(i*d+j))
			}
		}
		feats[i] = append(row, 1)
	}
	return feats, nil
}

// qValue is Q(s, a) = W[a] . s.
func qValue(w *mat.Dense, s []float64, a int) float64 {
	var q float64
	for j, x := range s {
		q += w.At(a, j) * x
	}
	return q
}

// argmaxQ returns the greedy action under the given weights.
func argmaxQ(w *mat.Dense, s []float64) int {
	na, _ := w.Dims()
	best, bestQ := 0, qValue(w, s, 0)
	for a := 1; a < na; a++ {
		if q := qValue(w, s, a); q > bestQ {
			best, bestQ = a, q
		}
	}
	return best
}

// onehotArg decodes the stored one-hot action at transition i.
func onehotArg(action etensor.Tensor, i, aDim int) int {
	best, bestV := 0, action.FloatVal1D(i*aDim)
	for a := 1; a < aDim; a++ {
		if v := action.FloatVal1D(i*aDim + a); v > bestV {
			best, bestV = a, v
		}
	}
	return best
}
