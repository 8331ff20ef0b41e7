// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package envs

import (
	"fmt"

	"github.com/bird-group/stepneverstop-RLs/configs"
)

// MakeEnv builds the environment named by the training config.  Platform
// "gym" vectorizes a registered scalar environment; "unity" requires a
// communicator supplied by the caller via MakeUnityEnv.
func MakeEnv(cfg *configs.TrainConfig) (Env, error) {
	switch cfg.Platform {
	case "gym":
		ge, err := NewGymEnv(cfg.EnvName, cfg.NCopys, 0)
		if err != nil {
			return nil, err
		}
		if cfg.Seed != 0 {
			ge.Seed(cfg.Seed)
		}
		return ge, nil
	case "unity":
		return nil, fmt.Errorf("envs: platform unity needs a communicator, use MakeUnityEnv")
	default:
		return nil, fmt.Errorf("envs: platform %q: %w", cfg.Platform, ErrUnknownPlatform)
	}
}

// MakeUnityEnv builds a Unity environment over an established communicator.
func MakeUnityEnv(cfg *configs.TrainConfig, comm Communicator) (Env, error) {
	return NewUnityEnv(comm, cfg.NCopys)
}
