// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package specs

import "fmt"

// SensorSpec describes the observation surface of one behavior: any number
// of vector sensors (flat feature dims) and visual sensors (H, W, C dims).
type SensorSpec struct {

	// flat feature size per vector sensor
	VectorDims []int

	// [height, width, channels] per visual sensor
	VisualDims [][]int
}

// HasVector returns true if at least one vector sensor is present.
func (ss *SensorSpec) HasVector() bool { return len(ss.VectorDims) > 0 }

// HasVisual returns true if at least one visual sensor is present.
func (ss *SensorSpec) HasVisual() bool { return len(ss.VisualDims) > 0 }

// VectorSize is the total flat feature size across vector sensors.
func (ss *SensorSpec) VectorSize() int {
	n := 0
	for _, d := range ss.VectorDims {
		n += d
	}
	return n
}

// EnvAgentSpec is the per-behavior shape contract between an environment and
// an algorithm: what it observes, how many actions it has, and whether the
// action space is continuous.
type EnvAgentSpec struct {
	ObsSpec      SensorSpec
	ADim         int
	IsContinuous bool
}

func (as *EnvAgentSpec) Validate() error {
	if as.ADim <= 0 {
		return fmt.Errorf("specs.EnvAgentSpec: ADim must be positive, got %d", as.ADim)
	}
	if !as.ObsSpec.HasVector() && !as.ObsSpec.HasVisual() {
		return fmt.Errorf("specs.EnvAgentSpec: no observation sensors defined")
	}
	return nil
}
