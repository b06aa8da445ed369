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
// Package kernelif declares the kernel-helper contract: the primitives
// the scheduler core consumes but does not implement: a monotonic clock,
// per-task storage, dispatch-queue operations, idle/preemption kicks,
// and RCU-style read protection for cross-CPU task pointer access during
// init. A real attachment of this scheduler would satisfy this contract
// with actual sched_ext kfuncs; this module ships a fake implementation
// (fake.go) suitable for the simulation harness and for tests: a small,
// explicit adapter between an external event source and this
// repository's own types.
package kernelif

import "github.com/ritzdacat/cakesched/sched"

// Clock returns the scheduler's monotonic time source: cached
// nanoseconds per CPU for the current dispatch.
type Clock interface {
	Now() sched.Timestamp
}

// KickFlags requests preemption of a specified CPU with flags {IDLE,
// PREEMPT}.
type KickFlags uint8

const (
	// KickIdle requests that an idle CPU re-enter the scheduler loop to
	// notice a newly targeted mailbox dispatch.
	KickIdle KickFlags = 1 << iota
	// KickPreempt requests that a running CPU yield immediately to service
	// a higher-priority dispatch.
	KickPreempt
)

// Kicker requests CPU preemption or wake.
type Kicker interface {
	Kick(cpu sched.CPUID, flags KickFlags)
}

// DSQID identifies a dispatch queue: one of the seven per-tier queues or
// one of the per-CPU mailboxes.
type DSQID uint64

// InsertFlags carry the enqueue-time flags the DSQ fabric's routing
// logic switches on: WAKEUP (direct-dispatch eligible) and PREEMPT
// (skips the Background yield-to-back-of-queue rule).
type InsertFlags uint8

const (
	// EnqueueWakeup marks an enqueue triggered by a wakeup, making the
	// task's pending target_dsq_id (if any) eligible for consumption.
	EnqueueWakeup InsertFlags = 1 << iota
	// EnqueuePreempt marks an enqueue that must not be deprioritized into
	// Background, even though it did not originate from a wakeup (e.g. a
	// starvation-triggered requeue).
	EnqueuePreempt
)

// DSQOps is the dispatch-queue primitive contract: create (by id, with
// NUMA hint), insert (task, id, slice, flags), move-to-local (id →
// bool), nr-queued (id → u32). MoveToLocal here also returns the moved
// PID: the real kfunc only reports success because the kernel itself
// resumes the moved task, but a hosted simulation has no other way to
// observe which task a dispatch pulled, so the fake implementation
// threads it through for the simulator and verifier to read back.
type DSQOps interface {
	CreateDSQ(id DSQID, numaNode int32) error
	Insert(task sched.PID, id DSQID, slice sched.Duration, flags InsertFlags)
	MoveToLocal(id DSQID) (sched.PID, bool)
	NrQueued(id DSQID) uint32
}

// RCU models the read lock the kernel requires around cross-CPU task
// pointer access during Init's idle-mask pre-warm.
type RCU interface {
	ReadLock()
	ReadUnlock()
}

// System exposes the nr-CPUs integer accessor. It has no CPU-id or
// cpu-of-task accessor; callers pass CPU ids explicitly.
type System interface {
	NrCPUs() int
}

// TaskStorage is the generic per-task map backing the kernel's per-task
// storage: get/create/delete, with core.TaskContext expected to be the
// sole concrete instantiation of T in this repository.
type TaskStorage[T any] interface {
	// Get returns the stored value for pid and true, or the zero value and
	// false if pid has no entry.
	Get(pid sched.PID) (T, bool)
	// Create inserts value for pid, overwriting any existing entry.
	Create(pid sched.PID, value T)
	// Delete removes pid's entry, if any.
	Delete(pid sched.PID)
}

// Kernel bundles the full helper contract a scheduler Init receives.
type Kernel[T any] struct {
	Clock   Clock
	Kicker  Kicker
	DSQ     DSQOps
	RCU     RCU
	System  System
	Storage TaskStorage[T]
}
