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
)

// mailboxBase is a reserved high DSQ id number for per-CPU mailbox DSQ
// ids, chosen far above the 7 tier ids so the two id spaces never
// collide.
const mailboxBase kernelif.DSQID = 1 << 32

// lotteryMask is the 1-in-16 anti-starvation lottery odds, tested against
// the low 4 bits of the outgoing task's pid-xor-runtime entropy source.
const lotteryMask = 0xF

// TierDSQID returns the FIFO DSQ id for tier.
func TierDSQID(tier sched.Tier) kernelif.DSQID {
	return kernelif.DSQID(tier.Index())
}

// MailboxDSQID returns the per-CPU direct-dispatch mailbox DSQ id for cpu.
func MailboxDSQID(cpu sched.CPUID) kernelif.DSQID {
	return mailboxBase + kernelif.DSQID(cpu)
}

// DSQFabric is the DSQ priority fabric: one FIFO per tier plus one
// mailbox FIFO per CPU, with fixed enqueue routing and dispatch
// pull-order rules.
type DSQFabric struct {
	ops            kernelif.DSQOps
	lotteryEnabled bool
}

// NewDSQFabric wraps ops as a DSQFabric with the anti-starvation lottery
// enabled, matching normal operation.
func NewDSQFabric(ops kernelif.DSQOps) *DSQFabric {
	return &DSQFabric{ops: ops, lotteryEnabled: true}
}

// DisableLottery turns off the anti-starvation lottery, isolating strict
// priority order for tests that need deterministic dispatch order.
func (f *DSQFabric) DisableLottery() { f.lotteryEnabled = false }

// Init creates all tier DSQs and one mailbox DSQ per CPU. NUMA hints are
// always 0: this repository has no NUMA-aware memory placement.
func (f *DSQFabric) Init(nrCPUs int) error {
	for t := 0; t < sched.TierCount; t++ {
		if err := f.ops.CreateDSQ(TierDSQID(sched.Tier(t)), 0); err != nil {
			return err
		}
	}
	for c := 0; c < nrCPUs; c++ {
		if err := f.ops.CreateDSQ(MailboxDSQID(sched.CPUID(c)), 0); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue routes a task: a WAKEUP-gated pending mailbox target takes
// priority; a plain yield (neither WAKEUP nor PREEMPT) goes to the back
// of Background; everything else goes to the task's current tier DSQ.
// TargetDSQID is cleared unconditionally, whether or not it was honored.
func (f *DSQFabric) Enqueue(task sched.PID, tc *TaskContext, slice sched.Duration, flags kernelif.InsertFlags) {
	wakeup := flags&kernelif.EnqueueWakeup != 0
	preempt := flags&kernelif.EnqueuePreempt != 0

	target := tc.TargetDSQID
	tc.TargetDSQID = 0

	if wakeup && target != 0 {
		f.ops.Insert(task, target, slice, flags)
		return
	}
	if !wakeup && !preempt {
		f.ops.Insert(task, TierDSQID(sched.TierBackground), slice, flags)
		return
	}
	f.ops.Insert(task, TierDSQID(tc.Packed.Tier()), slice, flags)
}

// Dispatch pulls at most one task for cpu, per the pull order:
// this CPU's mailbox first, then (about 1 in 16 calls) a starvation
// lottery favoring Background and Interactive, then strict tier priority.
// outgoingPID and outgoingRuntime seed the lottery coin; outgoingPID may
// be sched.UnknownPID if the CPU was idle. UnknownPID's bits are all ones,
// so with a zero outgoingRuntime that coin never wins the lottery.
func (f *DSQFabric) Dispatch(cpu sched.CPUID, outgoingPID sched.PID, outgoingRuntime sched.Duration) (sched.PID, bool) {
	if pid, ok := f.ops.MoveToLocal(MailboxDSQID(cpu)); ok {
		return pid, true
	}

	if f.lotteryEnabled {
		coin := uint32(outgoingPID) ^ uint32(outgoingRuntime)
		if coin&lotteryMask == 0 {
			if pid, ok := f.ops.MoveToLocal(TierDSQID(sched.TierBackground)); ok {
				return pid, true
			}
			if pid, ok := f.ops.MoveToLocal(TierDSQID(sched.TierInteractive)); ok {
				return pid, true
			}
		}
	}

	for t := sched.TierCriticalLatency; t <= sched.TierBackground; t++ {
		if pid, ok := f.ops.MoveToLocal(TierDSQID(t)); ok {
			return pid, true
		}
	}
	return sched.UnknownPID, false
}

// NrQueued reports how many tasks are waiting in tier's DSQ.
func (f *DSQFabric) NrQueued(tier sched.Tier) uint32 {
	return f.ops.NrQueued(TierDSQID(tier))
}
