// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classic provides pure-Go classic-control environments, so the
// gym platform can run without an external process.
package classic

import (
	"math"
	"math/rand"

	"github.com/bird-group/stepneverstop-RLs/envs"
	"github.com/bird-group/stepneverstop-RLs/specs"
)

func init() {
	envs.RegisterScalar("CartPole-v0", func() envs.ScalarEnv {
		return NewCartPole()
	})
}

const (
	gravity        = 9.8
	massCart       = 1.0
	massPole       = 0.1
	totalMass      = massCart + massPole
	poleLength     = 0.5 // half the pole
	poleMassLength = massPole * poleLength
	forceMag       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
)

// CartPole is the classic pole-balancing task: a cart on a frictionless
// track with a pole hinged on top, pushed left or right each step.
// Observation is [x, xDot, theta, thetaDot]; reward is 1 per step until
// the pole falls or the cart leaves the track.
type CartPole struct {
	x        float64
	xDot     float64
	theta    float64
	thetaDot float64

	rng *rand.Rand
}

func NewCartPole() *CartPole {
	return &CartPole{rng: rand.New(rand.NewSource(1))}
}

func (cp *CartPole) Spec() specs.EnvAgentSpec {
	return specs.EnvAgentSpec{
		ObsSpec: specs.SensorSpec{VectorDims: []int{4}},
		ADim:    2,
	}
}

func (cp *CartPole) Seed(seed int64) {
	cp.rng = rand.New(rand.NewSource(seed))
}

func (cp *CartPole) Reset() []float64 {
	cp.x = cp.uniform()
	cp.xDot = cp.uniform()
	cp.theta = cp.uniform()
	cp.thetaDot = cp.uniform()
	return cp.obs()
}

// Step pushes the cart (0 left, 1 right) and integrates one tau tick of
// the dynamics with explicit Euler.
func (cp *CartPole) Step(action int) ([]float64, float64, bool) {
	force := forceMag
	if action == 0 {
		force = -forceMag
	}

	cosTheta := math.Cos(cp.theta)
	sinTheta := math.Sin(cp.theta)

	temp := (force + poleMassLength*cp.thetaDot*cp.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(poleLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	cp.x += tau * cp.xDot
	cp.xDot += tau * xAcc
	cp.theta += tau * cp.thetaDot
	cp.thetaDot += tau * thetaAcc

	done := cp.x < -xThreshold || cp.x > xThreshold ||
		cp.theta < -thetaThreshold || cp.theta > thetaThreshold
	return cp.obs(), 1.0, done
}

func (cp *CartPole) obs() []float64 {
	return []float64{cp.x, cp.xDot, cp.theta, cp.thetaDot}
}

func (cp *CartPole) uniform() float64 {
	return cp.rng.Float64()*0.1 - 0.05
}
