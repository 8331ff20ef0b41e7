// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package configs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.yaml")
	body := `platform: gym
env_name: CartPole-v0
algo: ddqn
n_copys: 2
seed: 7
max_train_step: 500
hypers:
  lr: 0.05
  sync_every: 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Algo != "ddqn" || cfg.NCopys != 2 || cfg.Seed != 7 {
		t.Errorf("Load: got %+v", cfg)
	}
	if v, ok := cfg.Hypers["lr"]; !ok || v.(float64) != 0.05 {
		t.Errorf("Hypers lr: got %v", cfg.Hypers["lr"])
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RLS_ALGO", "pg")
	t.Setenv("RLS_N_COPYS", "8")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Algo != "pg" || cfg.NCopys != 8 {
		t.Errorf("env override: got algo %q nCopys %d", cfg.Algo, cfg.NCopys)
	}
	if cfg.Platform != "gym" {
		t.Errorf("env default: got platform %q", cfg.Platform)
	}
}

func TestLoadHypers(t *testing.T) {
	hypers, err := LoadHypers("defaults/dqn.yaml")
	if err != nil {
		t.Fatalf("LoadHypers: %v", err)
	}
	if v, ok := hypers["sync_every"]; !ok || v.(int) != 100 {
		t.Errorf("sync_every: got %v", hypers["sync_every"])
	}
}

type fakeCfg struct {
	Gamma     float64 `yaml:"gamma"`
	SyncEvery int     `yaml:"sync_every"`
	Double    bool    `yaml:"double"`
}

func TestApplyHypers(t *testing.T) {
	cfg := fakeCfg{Gamma: 0.99, SyncEvery: 100}
	err := ApplyHypers(map[string]any{"sync_every": 10, "double": true}, &cfg)
	if err != nil {
		t.Fatalf("ApplyHypers: %v", err)
	}
	if cfg.SyncEvery != 10 || !cfg.Double || cfg.Gamma != 0.99 {
		t.Errorf("ApplyHypers: got %+v", cfg)
	}
	if err := ApplyHypers(map[string]any{"sync_evry": 10}, &cfg); err == nil {
		t.Errorf("unknown key: expected error")
	}
	if err := ApplyHypers(nil, &cfg); err != nil {
		t.Errorf("nil hypers: %v", err)
	}
}
