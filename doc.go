// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rls is the overall repository for a reinforcement learning training
framework in the Go language (golang), organized around a shared circular
experience buffer and a registry of training algorithms.

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* memories: the circular experience replay buffer, storing nested tensor
records per behavior with a shared write pointer and windowed [T, B, ...]
sampling.

* specs: nested tensor records exchanged between environments, algorithms
and the buffer, and the shape contracts (sensor and agent specs) they are
validated against.

* algos: the algorithm registry and the algorithm implementations under it
(dqn, pg), each self-registering by name with its policy mode.

* envs: the batched environment surface and its adapters -- a gym-style
vectorizer over local single-copy environments (envs/classic) and a Unity
multi-behavior adapter over a pluggable communicator.

* configs: YAML run configuration with environment-variable overrides, and
per-algorithm hyperparameter defaults files.

* examples: these compile into runnable programs.  examples/cartpole is the
place to start: it trains a registered algorithm on the built-in CartPole
task and logs per-episode returns.
*/
package rls
