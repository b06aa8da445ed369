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

import (
	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
	"github.com/ritzdacat/cakesched/sched/topology"
)

// WakeFlags are the wake-context flags select_cpu receives.
type WakeFlags uint8

// WakeSync marks a wake where the waker is about to block, the one case
// where L1-cache warmth is privileged over topology.
const WakeSync WakeFlags = 1 << 0

// CPUSelector is the CPU selection and preemption injection component: on
// every wake it picks an idle CPU (topology-aware for latency-critical
// tiers) or a victim CPU to preempt, and arranges the direct-dispatch
// mailbox target for whichever it picks. A single CPUSelector is shared
// across every simulated CPU, so it takes no *Stats of its own; SelectCPU
// is instead handed the waking CPU's own Stats, consistent with Stats
// being owned by exactly one CPU.
type CPUSelector struct {
	idleMask   *BitMask64
	victimMask *BitMask64
	topo       *topology.Vector
	kicker     kernelif.Kicker
	nrCPUs     int
}

// NewCPUSelector builds a CPUSelector over the given global bitmasks,
// topology strategy, and kick helper.
func NewCPUSelector(idleMask, victimMask *BitMask64, topo *topology.Vector, kicker kernelif.Kicker, nrCPUs int) *CPUSelector {
	return &CPUSelector{
		idleMask:   idleMask,
		victimMask: victimMask,
		topo:       topo,
		kicker:     kicker,
		nrCPUs:     nrCPUs,
	}
}

// SelectCPU implements the scheduler's 10-step wake-time CPU selection
// algorithm. tc may be nil (context lookup miss); on a miss it falls back
// to the kernel's default CPU pick (prevCPU) with no mailbox target set.
// stats may be nil when statistics are disabled; when non-nil it records
// this call's victim-CPU preempt injection, if any.
func (s *CPUSelector) SelectCPU(now sched.Timestamp, thisCPU sched.CPUID, tc *TaskContext, prevCPU sched.CPUID, flags WakeFlags, stats *Stats) sched.CPUID {
	// Step 1: speculative victim load, discarded below if unused.
	victimCPU, hasVictim := s.victimMask.FirstSet()

	// Step 2: context fast-path lookup already performed by the caller;
	// tc == nil means "absent".
	if tc == nil {
		return prevCPU.Clamp(s.nrCPUs)
	}

	tc.Lock()
	defer tc.Unlock()

	// Step 3: last_wake_ts is set before any early return, on every path.
	tc.LastWakeTS = now

	// Step 4: SYNC wake — L1 warmth beats topology.
	if flags&WakeSync != 0 {
		tc.TargetDSQID = MailboxDSQID(thisCPU)
		s.kicker.Kick(thisCPU, kernelif.KickIdle)
		return thisCPU
	}

	tier := tc.Packed.Tier()

	// Step 5/6: prev_cpu's idle bit first; otherwise a topology-aware scan
	// for latency-sensitive tiers, or a flat scan for everything else.
	if s.idleMask.Test(prevCPU) {
		tc.TargetDSQID = MailboxDSQID(prevCPU)
		s.kicker.Kick(prevCPU, kernelif.KickPreempt)
		return prevCPU
	}

	candidate, found := s.findIdle(tier, prevCPU)

	// Step 7: hybrid efficiency/performance swap.
	if found && s.topo.HasHybrid() && tier <= sched.TierGaming && !s.topo.IsBig(candidate) {
		if big, ok := s.findIdleBig(prevCPU); ok {
			candidate = big
		}
	}

	// Step 8: an idle CPU was found.
	if found {
		tc.TargetDSQID = MailboxDSQID(candidate)
		s.kicker.Kick(candidate, kernelif.KickPreempt)
		return candidate
	}

	// Step 9: Critical-Latency fast lane through a speculative victim.
	if tier == sched.TierCriticalLatency && hasVictim {
		tc.TargetDSQID = MailboxDSQID(victimCPU)
		s.kicker.Kick(victimCPU, kernelif.KickPreempt)
		if stats != nil {
			stats.RecordPreemptInjection()
		}
		return victimCPU
	}

	// Step 10: no idle CPU, no victim to take — the task enters its tier
	// DSQ normally from prev_cpu.
	return prevCPU
}

func (s *CPUSelector) findIdle(tier sched.Tier, prevCPU sched.CPUID) (sched.CPUID, bool) {
	if tier <= sched.TierRealtime {
		for _, c := range s.topo.Preferred(prevCPU) {
			if s.idleMask.Test(c) {
				return c, true
			}
		}
		return sched.UnknownCPU, false
	}
	return s.idleMask.FirstSet()
}

func (s *CPUSelector) findIdleBig(prevCPU sched.CPUID) (sched.CPUID, bool) {
	for _, c := range s.topo.Preferred(prevCPU) {
		if s.topo.IsBig(c) && s.idleMask.Test(c) {
			return c, true
		}
	}
	return sched.UnknownCPU, false
}
