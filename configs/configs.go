// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package configs loads run configuration from YAML with environment-variable
overrides, and applies per-algorithm hyperparameter maps onto algorithm
config structs.
*/
package configs

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// TrainConfig is the top-level configuration of one training run.
type TrainConfig struct {

	// environment platform: "gym" or "unity"
	Platform string `yaml:"platform" env:"RLS_PLATFORM" env-default:"gym"`

	// environment name within the platform
	EnvName string `yaml:"env_name" env:"RLS_ENV_NAME" env-default:"CartPole-v0"`

	// registered algorithm name
	Algo string `yaml:"algo" env:"RLS_ALGO" env-default:"dqn"`

	// number of parallel environment copies
	NCopys int `yaml:"n_copys" env:"RLS_N_COPYS" env-default:"4"`

	// random seed for environments and algorithms
	Seed int64 `yaml:"seed" env:"RLS_SEED" env-default:"42"`

	// total environment steps to train for
	MaxTrainStep int `yaml:"max_train_step" env:"RLS_MAX_TRAIN_STEP" env-default:"10000"`

	// algorithm hyperparameter overrides, applied on top of the
	// algorithm's Defaults
	Hypers map[string]any `yaml:"hypers"`
}

// Load reads a TrainConfig from the given YAML file, then applies
// environment variable overrides.  An empty path reads from the environment
// alone.
func Load(path string) (*TrainConfig, error) {
	cfg := &TrainConfig{}
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("configs: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("configs: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadHypers reads a raw hyperparameter map from a YAML file, e.g. one of
// the per-algorithm defaults files.
func LoadHypers(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configs: %w", err)
	}
	hypers := make(map[string]any)
	if err := yaml.Unmarshal(b, &hypers); err != nil {
		return nil, fmt.Errorf("configs: %s: %w", path, err)
	}
	return hypers, nil
}

// ApplyHypers applies a hyperparameter map onto an algorithm config struct
// by round-tripping through YAML, so map keys follow the struct's yaml
// tags.  Unknown keys are an error: a typoed hyperparameter must not be
// silently ignored.
func ApplyHypers(hypers map[string]any, cfg any) error {
	if len(hypers) == 0 {
		return nil
	}
	b, err := yaml.Marshal(hypers)
	if err != nil {
		return fmt.Errorf("configs: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("configs: applying hypers: %w", err)
	}
	return nil
}
