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
	"testing"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
)

func newFabric(t *testing.T, nrCPUs int) (*DSQFabric, *kernelif.FakeDSQOps) {
	t.Helper()
	ops := kernelif.NewFakeDSQOps()
	f := NewDSQFabric(ops)
	if err := f.Init(nrCPUs); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	return f, ops
}

// Scenario 5: direct-dispatch on a SYNC wake.
func TestEnqueueRoutesWakeupTargetToMailbox(t *testing.T) {
	f, _ := newFabric(t, 8)
	tc := &TaskContext{Packed: sched.NewPackedState(), TargetDSQID: MailboxDSQID(5)}
	f.Enqueue(100, tc, 1000, kernelif.EnqueueWakeup)

	if tc.TargetDSQID != 0 {
		t.Error("target_dsq_id not cleared after consumption")
	}
	pid, ok := f.Dispatch(5, sched.UnknownPID, 0)
	if !ok || pid != 100 {
		t.Fatalf("Dispatch(5) = (%v, %v), want (100, true)", pid, ok)
	}
}

func TestEnqueuePlainYieldGoesToBackground(t *testing.T) {
	f, ops := newFabric(t, 4)
	tc := &TaskContext{Packed: sched.NewPackedState().WithTier(sched.TierGaming)}
	f.Enqueue(1, tc, 1000, 0)

	if n := ops.NrQueued(TierDSQID(sched.TierBackground)); n != 1 {
		t.Errorf("Background NrQueued = %d, want 1", n)
	}
}

func TestEnqueueNoTargetGoesToCurrentTier(t *testing.T) {
	f, ops := newFabric(t, 4)
	tc := &TaskContext{Packed: sched.NewPackedState().WithTier(sched.TierGaming)}
	f.Enqueue(1, tc, 1000, kernelif.EnqueueWakeup)

	if n := ops.NrQueued(TierDSQID(sched.TierGaming)); n != 1 {
		t.Errorf("Gaming NrQueued = %d, want 1", n)
	}
}

func TestEnqueueClearsStaleTargetWithoutWakeupFlag(t *testing.T) {
	f, ops := newFabric(t, 4)
	tc := &TaskContext{Packed: sched.NewPackedState().WithTier(sched.TierBatch), TargetDSQID: MailboxDSQID(2)}
	f.Enqueue(1, tc, 1000, kernelif.EnqueuePreempt)

	if tc.TargetDSQID != 0 {
		t.Error("stale target_dsq_id not cleared")
	}
	if n := ops.NrQueued(TierDSQID(sched.TierBatch)); n != 1 {
		t.Errorf("Batch NrQueued = %d, want 1 (PREEMPT routes to current tier)", n)
	}
}

// Dispatch pull order: mailbox first.
func TestDispatchMailboxBeatsTierDSQ(t *testing.T) {
	f, ops := newFabric(t, 4)
	ops.Insert(1, TierDSQID(sched.TierCriticalLatency), 0, 0)
	ops.Insert(2, MailboxDSQID(0), 0, 0)

	pid, ok := f.Dispatch(0, sched.UnknownPID, 0)
	if !ok || pid != 2 {
		t.Fatalf("Dispatch(0) = (%v, %v), want (2, true): mailbox must win", pid, ok)
	}
}

// With the lottery disabled, a non-empty Critical-Latency DSQ always
// dispatches before any lower tier.
func TestDispatchStrictPriorityWithLotteryDisabled(t *testing.T) {
	f, ops := newFabric(t, 4)
	f.DisableLottery()
	ops.Insert(1, TierDSQID(sched.TierBackground), 0, 0)
	ops.Insert(2, TierDSQID(sched.TierCriticalLatency), 0, 0)

	pid, ok := f.Dispatch(0, sched.PID(999), 1)
	if !ok || pid != 2 {
		t.Fatalf("Dispatch(0) = (%v, %v), want (2, true): Critical-Latency beats Background", pid, ok)
	}
}

// Two tasks enqueued to the same tier DSQ in order A, B dispatch in
// order A, B.
func TestDispatchFIFOWithinTier(t *testing.T) {
	f, ops := newFabric(t, 4)
	f.DisableLottery()
	ops.Insert(10, TierDSQID(sched.TierBatch), 0, 0)
	ops.Insert(20, TierDSQID(sched.TierBatch), 0, 0)

	first, _ := f.Dispatch(0, sched.UnknownPID, 0)
	second, _ := f.Dispatch(0, sched.UnknownPID, 0)
	if first != 10 || second != 20 {
		t.Errorf("dispatch order = (%v, %v), want (10, 20)", first, second)
	}
}

func TestDispatchEmptyReturnsFalse(t *testing.T) {
	f, _ := newFabric(t, 2)
	if _, ok := f.Dispatch(0, sched.UnknownPID, 0); ok {
		t.Error("Dispatch on an empty fabric returned ok=true")
	}
}

func TestDispatchLotteryFavorsBackgroundAndInteractive(t *testing.T) {
	f, ops := newFabric(t, 1)
	ops.Insert(1, TierDSQID(sched.TierCriticalLatency), 0, 0)
	ops.Insert(2, TierDSQID(sched.TierBackground), 0, 0)

	pid, ok := f.Dispatch(0, sched.PID(0), 0)
	if !ok || pid != 2 {
		t.Fatalf("Dispatch with a zero lottery coin = (%v, %v), want (2, true)", pid, ok)
	}
}
