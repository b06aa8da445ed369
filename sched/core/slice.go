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

// ConsumeDeficit applies the per-stop deficit update:
// `deficit_us -= min(deficit_us, runtime_us)`, never going negative.
func ConsumeDeficit(deficitUS uint32, runLengthNS sched.Duration) uint32 {
	runUS := nsToApproxUS(runLengthNS)
	if runUS > deficitUS {
		return 0
	}
	return deficitUS - runUS
}

// NextSlice is the slice/deficit engine's precomputed next-run slice:
// `max(deficit_ns, quantum_ns) * slice_multiplier[tier] >> 10`.
// deficit_us participates in this max() at face value rather than
// rescaled to nanoseconds: a small microsecond-ish credit compared
// directly against a multi-million nanosecond quantum, so in practice the
// quantum dominates unless a task has banked an unusually large deficit.
// This matches the source scheduler's literal arithmetic and is recorded
// as a design decision in DESIGN.md.
func NextSlice(quantumNS sched.Duration, deficitUS uint32, tier sched.Tier, tiers TierTable) sched.Duration {
	base := sched.Duration(deficitUS)
	if quantumNS > base {
		base = quantumNS
	}
	mult := uint64(tiers.For(tier).SliceMultiplier)
	return sched.Duration((uint64(base) * mult) >> 10)
}
