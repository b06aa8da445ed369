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
// Package core implements the CAKE-derived scheduler's in-kernel logic:
// the task context store, tier configuration, idle/victim bitmasks, the
// sparse classifier, the slice/deficit engine, the wait-budget AQM, the
// DSQ priority fabric, CPU selection and preemption injection, and the
// event handlers that fuse them together. None of it depends on actually
// running inside a kernel; kernelif's interfaces are the only
// boundary to the host environment, so this package is driven here by the
// simulate package in production use and directly by tests.
package core

import (
	log "github.com/golang/glog"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
	"github.com/ritzdacat/cakesched/sched/topology"
)

// starvationJitterMask takes 7 bits, shifted left 10 (≈ ×1024 ns): a
// 0-127 random value scaled into a 0-130,048ns jitter window added to the
// per-tier starvation threshold, so simultaneous preempt kicks across
// many CPUs don't form a thundering herd.
const starvationJitterMask = 0x7F

func starvationJitterNS(rng sched.XorShift32) (sched.XorShift32, sched.Duration) {
	next, v := rng.Next()
	return next, sched.Duration((v & starvationJitterMask) << 10)
}

// Scheduler is the glue holding every other piece of this package
// together: the concrete state a real sched_ext BPF program would keep
// in static/BSS storage, wired to the kernelif contract instead of real
// kfuncs.
type Scheduler struct {
	cfg    Config
	topo   *topology.Vector
	kernel kernelif.Kernel[*TaskContext]

	nrCPUs int
	store  *ContextStore
	fabric *DSQFabric

	idleMask   *BitMask64
	victimMask *BitMask64
	shadow     []CPUShadow

	selector *CPUSelector
	perCPU   []*Stats

	cachedThresholdNS sched.Duration
	exit              *ExitInfo
}

// NewScheduler builds a Scheduler over cfg, topo, and the kernel-helper
// contract. It does not yet create DSQs or pre-warm the idle mask; that
// happens in Init.
func NewScheduler(cfg Config, topo *topology.Vector, kernel kernelif.Kernel[*TaskContext]) *Scheduler {
	nrCPUs := kernel.System.NrCPUs()
	idleMask := &BitMask64{}
	victimMask := &BitMask64{}
	store := NewContextStore(kernel.Storage)
	perCPU := make([]*Stats, nrCPUs)
	for i := range perCPU {
		perCPU[i] = NewStats()
	}
	return &Scheduler{
		cfg:        cfg,
		topo:       topo,
		kernel:     kernel,
		nrCPUs:     nrCPUs,
		store:      store,
		fabric:     NewDSQFabric(kernel.DSQ),
		idleMask:   idleMask,
		victimMask: victimMask,
		shadow:     make([]CPUShadow, nrCPUs),
		selector:   NewCPUSelector(idleMask, victimMask, topo, kernel.Kicker, nrCPUs),
		perCPU:     perCPU,
	}
}

// Fabric exposes the DSQ fabric for callers (the simulator, verify) that
// need to inspect queue depths without threading every accessor through
// Scheduler.
func (s *Scheduler) Fabric() *DSQFabric { return s.fabric }

// TierOf reports pid's current tier, for callers (the simulator) that need
// to label a dispatch after Stopping has reclassified it.
func (s *Scheduler) TierOf(pid sched.PID) (sched.Tier, bool) {
	tc, ok := s.store.Lookup(pid)
	if !ok {
		return 0, false
	}
	tc.Lock()
	defer tc.Unlock()
	return tc.Packed.Tier(), true
}

// ScoreOf reports pid's current sparse score, for callers (the simulator,
// verify) that need to observe it without reaching into ContextStore.
func (s *Scheduler) ScoreOf(pid sched.PID) (sched.Score, bool) {
	tc, ok := s.store.Lookup(pid)
	if !ok {
		return 0, false
	}
	tc.Lock()
	defer tc.Unlock()
	return tc.Packed.SparseScore(), true
}

// Stats returns cpu's live per-CPU statistics.
func (s *Scheduler) Stats(cpu sched.CPUID) *Stats { return s.perCPU[cpu] }

// AggregateStats sums every CPU's statistics into one snapshot.
func (s *Scheduler) AggregateStats() Stats { return AggregateStats(s.perCPU) }

// Init creates all DSQs, pre-warms idle_mask from the CPUs the caller
// reports as already idle, and precomputes the cached sparse-run
// threshold (Config.CachedThresholdNS). Cross-CPU access to that initial idle set is guarded by the
// kernel-helper RCU read lock.
func (s *Scheduler) Init(currentlyIdle []sched.CPUID) error {
	log.Infof("cake: init: %d CPUs", s.nrCPUs)
	if err := s.fabric.Init(s.nrCPUs); err != nil {
		log.Errorf("cake: DSQ creation failed: %v", err)
		return WrapInitError(err)
	}

	s.kernel.RCU.ReadLock()
	for _, cpu := range currentlyIdle {
		s.idleMask.Set(cpu)
		if int(cpu) >= 0 && int(cpu) < len(s.shadow) {
			s.shadow[cpu].IsIdle = true
		}
	}
	s.kernel.RCU.ReadUnlock()

	s.cachedThresholdNS = s.cfg.CachedThresholdNS()
	return nil
}

// Exit records the exit reason and message for the loader to read later.
func (s *Scheduler) Exit(reason, message string) {
	s.exit = &ExitInfo{Reason: reason, Message: message, At: s.kernel.Clock.Now()}
	log.Infof("cake: exit: %s: %s", reason, message)
}

// ExitInfo returns the last recorded exit info, or nil if the scheduler
// has not exited.
func (s *Scheduler) ExitInfo() *ExitInfo { return s.exit }

// Enable is the per-task class-join hook. Context allocation itself is
// deferred to the first Running call; Enable only logs.
func (s *Scheduler) Enable(pid sched.PID) {
	log.V(2).Infof("cake: enable pid=%d", pid)
}

// Disable releases pid's context storage.
func (s *Scheduler) Disable(pid sched.PID) {
	log.V(2).Infof("cake: disable pid=%d", pid)
	s.store.Release(pid)
}

// SelectCPU picks a CPU to wake pid on. Context lookup here is
// fast-path only (no allocation); an absent context falls back to the
// kernel's default CPU pick inside CPUSelector.
func (s *Scheduler) SelectCPU(now sched.Timestamp, thisCPU sched.CPUID, pid sched.PID, prevCPU sched.CPUID, flags WakeFlags) sched.CPUID {
	tc, _ := s.store.Lookup(pid)
	var stats *Stats
	if s.cfg.EnableStats {
		stats = s.perCPU[thisCPU]
	}
	return s.selector.SelectCPU(now, thisCPU, tc, prevCPU, flags, stats)
}

// Enqueue routes pid into the DSQ fabric. A missing context (a task
// enqueued before its first Running call ever allocated one) falls back
// to the Interactive DSQ as a safe default.
func (s *Scheduler) Enqueue(pid sched.PID, flags kernelif.InsertFlags) {
	tc, ok := s.store.Lookup(pid)
	if !ok {
		s.kernel.DSQ.Insert(pid, TierDSQID(sched.TierInteractive), 0, flags)
		return
	}
	tc.Lock()
	slice := tc.NextSliceNS
	tc.Unlock()
	s.fabric.Enqueue(pid, tc, slice, flags)
}

// Dispatch pulls at most one task for cpu and, if stats are enabled,
// records the dispatch by tier and flow age.
func (s *Scheduler) Dispatch(cpu sched.CPUID, outgoingPID sched.PID, outgoingRuntime sched.Duration) (sched.PID, bool) {
	pid, ok := s.fabric.Dispatch(cpu, outgoingPID, outgoingRuntime)
	if !ok {
		return sched.UnknownPID, false
	}
	if s.cfg.EnableStats {
		if tc, found := s.store.Lookup(pid); found {
			tc.Lock()
			isNew := tc.Packed.Flags()&sched.FlagNew != 0
			tier := tc.Packed.Tier()
			tc.Unlock()
			s.perCPU[cpu].RecordDispatch(tier, isNew)
		}
	}
	return pid, true
}

// Running updates per-CPU shadow state and victim_mask only on change,
// runs the wait-budget AQM if a wake is pending, then clears the pending
// wake and stamps last_run_at. This is the one handler allowed to
// allocate a task context.
func (s *Scheduler) Running(cpu sched.CPUID, pid sched.PID, now sched.Timestamp) {
	tc := s.store.GetOrCreate(pid, now, s.cfg)
	tc.Lock()
	defer tc.Unlock()

	tier := tc.Packed.Tier()
	s.idleMask.SetIfChanged(cpu, &s.shadow[cpu].IsIdle, false)
	s.victimMask.SetIfChanged(cpu, &s.shadow[cpu].IsVictim, tier >= sched.TierInteractive)

	if tc.LastWakeTS != 0 {
		waitTime := now.Sub(tc.LastWakeTS)
		tierCfg := s.cfg.Tiers.For(tier)
		result := ApplyWaitBudget(tierCfg, tier, tc.Packed.WaitData(), tc.Packed.SparseScore(), tc.AvgRuntimeUS, waitTime)
		tc.AvgRuntimeUS = result.AvgRuntimeUS
		newPacked := tc.Packed.WithWaitData(result.WaitData)
		if result.Demoted {
			newTier := mapScoreToTier(result.Score, tc.AvgRuntimeUS)
			newPacked = newPacked.WithScore(result.Score).WithTier(newTier)
			if s.cfg.EnableStats {
				s.perCPU[cpu].RecordWaitDemotion(tier)
			}
		}
		tc.Packed = newPacked
		if s.cfg.EnableStats {
			s.perCPU[cpu].RecordWait(tier, waitTime)
		}
	}

	tc.Packed = tc.Packed.WithFlags(tc.Packed.Flags() &^ sched.FlagNew)
	tc.LastWakeTS = 0
	tc.LastRunAt = now
}

// Stopping classifies the just-finished run, updates the deficit, and
// writes back packed_info only if it actually changed.
func (s *Scheduler) Stopping(cpu sched.CPUID, pid sched.PID, now sched.Timestamp) {
	tc, ok := s.store.Lookup(pid)
	if !ok {
		return
	}
	tc.Lock()
	defer tc.Unlock()

	runLength := now.Sub(tc.LastRunAt)
	oldPacked := tc.Packed
	result := Classify(s.cachedThresholdNS, tc.AvgRuntimeUS, oldPacked.SparseScore(), runLength)

	tc.AvgRuntimeUS = result.AvgRuntimeUS
	tc.DeficitUS = ConsumeDeficit(tc.DeficitUS, runLength)

	newPacked := oldPacked.WithScore(result.Score).WithTier(result.Tier)
	if newPacked != oldPacked {
		tc.Packed = newPacked
	}
	tc.NextSliceNS = NextSlice(s.cfg.QuantumNS, tc.DeficitUS, result.Tier, s.cfg.Tiers)

	if s.cfg.EnableStats {
		if result.CrossedGamingUp {
			s.perCPU[cpu].RecordSparseCrossing(true)
		}
		if result.CrossedGamingDown {
			s.perCPU[cpu].RecordSparseCrossing(false)
		}
	}
}

// Tick checks the running task against its tier's jittered starvation
// threshold, kicking this CPU to preempt if exceeded.
func (s *Scheduler) Tick(cpu sched.CPUID, pid sched.PID, now sched.Timestamp) {
	tc, ok := s.store.Lookup(pid)
	if !ok {
		return
	}
	tc.Lock()
	tier := tc.Packed.Tier()
	runtime := now.Sub(tc.LastRunAt)
	newRNG, jitter := starvationJitterNS(tc.RNG)
	tc.RNG = newRNG
	tc.Unlock()

	threshold := s.cfg.Tiers.For(tier).StarvationNS + jitter
	if runtime > threshold {
		s.kernel.Kicker.Kick(cpu, kernelif.KickPreempt)
		if s.cfg.EnableStats {
			s.perCPU[cpu].RecordStarvationPreempt(tier)
		}
	}
}

// UpdateIdle is the cached-cursor transition callback, clearing the
// victim bit too when a CPU goes idle.
func (s *Scheduler) UpdateIdle(cpu sched.CPUID, idle bool) {
	s.idleMask.SetIfChanged(cpu, &s.shadow[cpu].IsIdle, idle)
	if idle {
		s.victimMask.SetIfChanged(cpu, &s.shadow[cpu].IsVictim, false)
	}
}
