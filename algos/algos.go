// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package algos defines the algorithm registry and the interfaces every
algorithm implementation satisfies.  Algorithm packages register themselves
in init(), keyed by the name used in configuration files, so that a training
driver can construct any algorithm from its name alone.
*/
package algos

import (
	"fmt"

	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/goki/ki/kit"
)

// PolicyMode distinguishes how an algorithm consumes experience.
type PolicyMode int

var KiT_PolicyMode = kit.Enums.AddEnum(PolicyModeN, kit.NotBitFlag, nil)

func (pm PolicyMode) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(pm) }
func (pm *PolicyMode) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(pm, b) }

const (
	// OnPolicy algorithms learn only from experience gathered by the
	// current policy, consuming the buffer as a rollout store.
	OnPolicy PolicyMode = iota

	// OffPolicy algorithms replay arbitrary past experience.
	OffPolicy

	PolicyModeN
)

func (pm PolicyMode) String() string {
	switch pm {
	case OnPolicy:
		return "on-policy"
	case OffPolicy:
		return "off-policy"
	}
	return "unknown"
}

// FromString is the inverse of String, required by the kit enum
// machinery used in UnmarshalJSON above.
func (pm *PolicyMode) FromString(s string) error {
	switch s {
	case "on-policy":
		*pm = OnPolicy
		return nil
	case "off-policy":
		*pm = OffPolicy
		return nil
	}
	return fmt.Errorf("String: %s is not a valid option for type: PolicyMode", s)
}

// Stats holds named scalar summaries from one learning step, e.g. "loss",
// "q_mean".
type Stats map[string]float64

// Policy is the interface every algorithm implements.  Observations and
// actions are nested records whose leading dimension is the batch of
// parallel environment copies.
type Policy interface {

	// SelectAction maps the current observation record to an action
	// record, applying the algorithm's exploration strategy.
	SelectAction(obs *specs.Data) (*specs.Data, error)

	// Store appends one synchronized time slice of experience, keyed by
	// behavior name plus "global".
	Store(exp map[string]*specs.Data) error

	// Learn performs one training step from stored experience.  It is a
	// no-op (nil Stats, nil error) when not enough experience has
	// accumulated.
	Learn() (Stats, error)

	// Mode reports how the algorithm consumes experience.
	Mode() PolicyMode
}
