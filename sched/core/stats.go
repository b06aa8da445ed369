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

// TierStats holds the per-tier counters the statistics surface exposes:
// dispatches, wait budget demotions, starvation preemptions, and
// wait-time accounting. Sparse promotions/demotions are global counters
// on Stats, not per tier.
type TierStats struct {
	Dispatches         uint64
	StarvationPreempts uint64
	WaitDemotions      uint64
	TotalWaitNS        uint64
	NrWaits            uint64
	MaxWaitNS          uint64
}

// Stats is one CPU's statistics, matching the `cake_stats` struct fields
// of the source scheduler's intf.h, plus an added exit-reason record (see
// ExitInfo below). Stats is owned by exactly one simulated CPU: counters
// live in per-CPU arrays with no cross-CPU writes on the hot path, so
// aggregation across CPUs happens only in AggregateStats, never during an
// event handler.
type Stats struct {
	PerTier [sched.TierCount]TierStats

	NewFlowDispatches uint64
	OldFlowDispatches uint64

	SparsePromotions uint64
	SparseDemotions  uint64

	PreemptInjections uint64

	TotalWaitNS uint64
	NrWaits     uint64
	MaxWaitNS   uint64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats { return &Stats{} }

// RecordDispatch increments the dispatch counters for tier, splitting by
// whether the dispatching task still carries FlagNew (a "new flow").
func (s *Stats) RecordDispatch(tier sched.Tier, isNewFlow bool) {
	s.PerTier[tier.Index()].Dispatches++
	if isNewFlow {
		s.NewFlowDispatches++
	} else {
		s.OldFlowDispatches++
	}
}

// RecordWait folds one wake-to-run latency sample into both the global
// and per-tier wait statistics: total, count, and max wait time, each
// tracked globally and per tier.
func (s *Stats) RecordWait(tier sched.Tier, waitNS sched.Duration) {
	w := uint64(waitNS)
	s.TotalWaitNS += w
	s.NrWaits++
	if w > s.MaxWaitNS {
		s.MaxWaitNS = w
	}
	ts := &s.PerTier[tier.Index()]
	ts.TotalWaitNS += w
	ts.NrWaits++
	if w > ts.MaxWaitNS {
		ts.MaxWaitNS = w
	}
}

// RecordSparseCrossing increments the global sparse promotion/demotion
// counters when a classifier update crosses the gaming-tier score
// threshold.
func (s *Stats) RecordSparseCrossing(promoted bool) {
	if promoted {
		s.SparsePromotions++
	} else {
		s.SparseDemotions++
	}
}

// RecordWaitDemotion increments tier's wait-budget demotion counter.
func (s *Stats) RecordWaitDemotion(tier sched.Tier) {
	s.PerTier[tier.Index()].WaitDemotions++
}

// RecordStarvationPreempt increments tier's starvation-preemption counter,
// incremented each time the periodic tick detects and kicks a starved CPU.
func (s *Stats) RecordStarvationPreempt(tier sched.Tier) {
	s.PerTier[tier.Index()].StarvationPreempts++
}

// RecordPreemptInjection increments the count of victim-CPU preempt kicks
// issued by CPU selection's critical-latency fast lane.
func (s *Stats) RecordPreemptInjection() {
	s.PreemptInjections++
}

// Clone returns a value copy of s, safe to hand to a reader while the
// original continues to be mutated by its owning CPU.
func (s *Stats) Clone() Stats { return *s }

// AggregateStats sums a set of per-CPU Stats into one global view, meant
// to be read by the loader at will. Aggregation is the only place
// per-CPU counters are combined; it never runs on a scheduling hot path.
func AggregateStats(perCPU []*Stats) Stats {
	var out Stats
	for _, s := range perCPU {
		if s == nil {
			continue
		}
		out.NewFlowDispatches += s.NewFlowDispatches
		out.OldFlowDispatches += s.OldFlowDispatches
		out.SparsePromotions += s.SparsePromotions
		out.SparseDemotions += s.SparseDemotions
		out.PreemptInjections += s.PreemptInjections
		out.TotalWaitNS += s.TotalWaitNS
		out.NrWaits += s.NrWaits
		if s.MaxWaitNS > out.MaxWaitNS {
			out.MaxWaitNS = s.MaxWaitNS
		}
		for i := 0; i < sched.TierCount; i++ {
			ts := &out.PerTier[i]
			src := s.PerTier[i]
			ts.Dispatches += src.Dispatches
			ts.StarvationPreempts += src.StarvationPreempts
			ts.WaitDemotions += src.WaitDemotions
			ts.TotalWaitNS += src.TotalWaitNS
			ts.NrWaits += src.NrWaits
			if src.MaxWaitNS > ts.MaxWaitNS {
				ts.MaxWaitNS = src.MaxWaitNS
			}
		}
	}
	return out
}

// ExitInfo is an exit-reason record mirroring sched_ext's UEI_RECORD
// pattern: a reason/message pair the loader reads after the scheduler
// detaches.
type ExitInfo struct {
	Reason  string
	Message string
	At      sched.Timestamp
}
