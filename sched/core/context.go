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
	"sync"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
)

// maxUint16 is the cap the source scheduler places on avg_runtime_us: an
// EMA of run-length capped to 65,535us. DeficitUS is carried as a uint32
// for arithmetic headroom during intermediate computation, but its
// steady-state value stays well inside 16 bits for any reasonable
// configuration.
const maxUint16 = 65535

// TaskContext is the per-task state, owned by the kernel's per-task
// storage for the task's lifetime in the scheduler class. A mutex stands
// in for the relaxed-atomic word-tearing guard the original C scheduler
// relies on for packed_info: this repository has no single-instruction
// packed store to rely on, so instead it serializes the handful of fields
// that most callbacks touch together.
type TaskContext struct {
	mu sync.Mutex

	PID       sched.PID
	CreatedAt sched.Timestamp

	NextSliceNS  sched.Duration
	LastRunAt    sched.Timestamp
	LastWakeTS   sched.Timestamp
	DeficitUS    uint32
	AvgRuntimeUS uint32
	Packed       sched.PackedState
	TargetDSQID  kernelif.DSQID
	RNG          sched.XorShift32
}

// NewTaskContext builds the initial per-task state: tier=Interactive,
// score=50, flags={NEW}, deficit absorbing the new-flow bonus, everything
// else zero.
func NewTaskContext(pid sched.PID, now sched.Timestamp, cfg Config) *TaskContext {
	deficit := cfg.InitialDeficitUS()
	packed := sched.NewPackedState()
	return &TaskContext{
		PID:         pid,
		CreatedAt:   now,
		DeficitUS:   deficit,
		Packed:      packed,
		RNG:         sched.SeedXorShift32(pid, now),
		NextSliceNS: NextSlice(cfg.QuantumNS, deficit, packed.Tier(), cfg.Tiers),
	}
}

// Lock serializes access to tc for the duration of one event handler:
// per-task state is accessed almost exclusively by whichever CPU is
// running or waking the task, so contention is rare in practice.
func (tc *TaskContext) Lock()   { tc.mu.Lock() }
func (tc *TaskContext) Unlock() { tc.mu.Unlock() }

// ContextStore is the task context store: a thin wrapper over the
// kernel-helper TaskStorage contract that segregates the allocating path
// from the lookup path. The fast path is a pure lookup; allocation is
// segregated into a non-inlined cold path invoked only from running.
type ContextStore struct {
	storage kernelif.TaskStorage[*TaskContext]
}

// NewContextStore wraps storage as a ContextStore.
func NewContextStore(storage kernelif.TaskStorage[*TaskContext]) *ContextStore {
	return &ContextStore{storage: storage}
}

// Lookup is the fast path: a pure lookup with no allocation.
func (s *ContextStore) Lookup(pid sched.PID) (*TaskContext, bool) {
	return s.storage.Get(pid)
}

// create is the cold allocation path, deliberately not inlined so the hot
// lookup path above keeps a tight instruction footprint.
//
//go:noinline
func (s *ContextStore) create(pid sched.PID, now sched.Timestamp, cfg Config) *TaskContext {
	tc := NewTaskContext(pid, now, cfg)
	s.storage.Create(pid, tc)
	return tc
}

// GetOrCreate returns pid's context, allocating one via the cold path if
// none exists yet. Only running calls this with create semantics; every
// other handler uses Lookup and falls back to a safe default when absent.
func (s *ContextStore) GetOrCreate(pid sched.PID, now sched.Timestamp, cfg Config) *TaskContext {
	if tc, ok := s.Lookup(pid); ok {
		return tc
	}
	return s.create(pid, now, cfg)
}

// Release explicitly frees pid's context on task exit, to avoid leaks.
func (s *ContextStore) Release(pid sched.PID) {
	s.storage.Delete(pid)
}
