// Copyright 2024 The CAKE Scheduler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package core

import "github.com/ritzdacat/cakesched/sched"

// Config is the scalar and per-tier configuration surface, set once by
// the loader before init. Topology is deliberately not a field here: it
// is a strategy object the loader supplies separately
// (sched/topology.Vector), not a flag bag threaded through the hot path.
type Config struct {
	// QuantumNS is the base scheduling quantum (default 2-4ms).
	QuantumNS sched.Duration
	// NewFlowBonusNS is absorbed into a new task's initial deficit
	// (default 8ms).
	NewFlowBonusNS sched.Duration
	// SparseThresholdPermille sets CachedThresholdNS relative to QuantumNS
	// (default 50-100).
	SparseThresholdPermille uint32
	// Tiers is the immutable per-tier parameter table.
	Tiers TierTable
	// EnableStats gates whether Stats counters are maintained at all.
	EnableStats bool
}

// CachedThresholdNS computes `quantum_ns * sparse_threshold_permille /
// 1024`, precomputed once at Init so the classifier's hot path never
// multiplies.
func (c Config) CachedThresholdNS() sched.Duration {
	return sched.Duration((uint64(c.QuantumNS) * uint64(c.SparseThresholdPermille)) >> 10)
}

// InitialDeficitUS computes `(quantum + bonus) / 1024`, the new-flow
// bonus absorbed into a freshly created task's deficit.
func (c Config) InitialDeficitUS() uint32 {
	return uint32((uint64(c.QuantumNS) + uint64(c.NewFlowBonusNS)) >> 10)
}
