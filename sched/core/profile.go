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

// GamingProfile is the default parameter set `intf.h` in
// _examples/original_source labels "Gaming profile — pre-computed by
// userspace": a 4ms quantum, an 8ms new-flow bonus, and a 100-permille
// sparse threshold, tuned to promote bursty input-driven tasks quickly.
func GamingProfile() Config {
	return Config{
		QuantumNS:               4_000_000,
		NewFlowBonusNS:          8_000_000,
		SparseThresholdPermille: 100,
		Tiers:                   DefaultTierTable(),
		EnableStats:             true,
	}
}

// BalancedProfile trades a little of GamingProfile's latency bias for
// throughput: a shorter bonus and a stricter sparse threshold mean fewer
// tasks qualify for promotion, at the benefit of less preemption overhead
// on a machine doing mixed interactive and background work.
func BalancedProfile() Config {
	return Config{
		QuantumNS:               3_000_000,
		NewFlowBonusNS:          6_000_000,
		SparseThresholdPermille: 75,
		Tiers:                   DefaultTierTable(),
		EnableStats:             true,
	}
}

// BackgroundProfile favors throughput over latency: a long quantum, a
// small new-flow bonus, a 50-permille sparse threshold (with the doubled
// quantum this gives the same 390,625ns cached threshold as
// GamingProfile), and per-tier starvation thresholds doubled across the
// board so long-running batch tasks are rarely preempted.
func BackgroundProfile() Config {
	base := DefaultTierTable()
	var loose [sched.TierCount]TierConfig
	for i := 0; i < sched.TierCount; i++ {
		c := base[i]
		c.StarvationNS *= 2
		loose[i] = c
	}
	return Config{
		QuantumNS:               8_000_000,
		NewFlowBonusNS:          4_000_000,
		SparseThresholdPermille: 50,
		Tiers:                   NewTierTable(loose),
		EnableStats:             true,
	}
}
