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
package kernelif

import (
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ritzdacat/cakesched/sched"
)

// FakeClock is a manually-advanced Clock used by the simulator and by
// tests: the simulation engine is the sole authority on "now", so it
// steps this clock explicitly rather than reading a wall clock.
type FakeClock struct {
	mu  sync.Mutex
	now sched.Timestamp
}

// NewFakeClock returns a FakeClock starting at timestamp 0.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// Now implements Clock.
func (c *FakeClock) Now() sched.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time. d must be
// nonnegative; the scheduler's clock never runs backwards.
func (c *FakeClock) Advance(d sched.Duration) sched.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += sched.Timestamp(d)
	}
	return c.now
}

// Kick is one recorded call to FakeKicker.Kick.
type Kick struct {
	CPU   sched.CPUID
	Flags KickFlags
}

// FakeKicker records every Kick call in order, for assertions in the
// simulator and in tests; it has no other effect, matching the note
// that kicking an idle CPU is how the kernel is asked to re-enter its
// scheduler loop -- a detail the simulator observes rather than enforces.
type FakeKicker struct {
	mu    sync.Mutex
	kicks []Kick
}

// NewFakeKicker returns an empty FakeKicker.
func NewFakeKicker() *FakeKicker {
	return &FakeKicker{}
}

// Kick implements Kicker.
func (k *FakeKicker) Kick(cpu sched.CPUID, flags KickFlags) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicks = append(k.kicks, Kick{CPU: cpu, Flags: flags})
}

// Kicks returns a copy of every kick recorded so far.
func (k *FakeKicker) Kicks() []Kick {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Kick, len(k.kicks))
	copy(out, k.kicks)
	return out
}

// FakeDSQOps is an in-memory, FIFO-per-ID implementation of DSQOps.
type FakeDSQOps struct {
	mu      sync.Mutex
	created map[DSQID]bool
	queues  map[DSQID][]sched.PID
}

// NewFakeDSQOps returns an empty FakeDSQOps with no DSQs created yet.
func NewFakeDSQOps() *FakeDSQOps {
	return &FakeDSQOps{
		created: map[DSQID]bool{},
		queues:  map[DSQID][]sched.PID{},
	}
}

// CreateDSQ implements DSQOps. Creating the same id twice is an error,
// matching the note that DSQ creation is the one fatal path Init
// must propagate.
func (d *FakeDSQOps) CreateDSQ(id DSQID, numaNode int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.created[id] {
		return status.Errorf(codes.AlreadyExists, "DSQ %d already created", id)
	}
	d.created[id] = true
	d.queues[id] = nil
	return nil
}

// Insert implements DSQOps. Inserting into an uncreated DSQ is tolerated
// (the queue is created lazily) so that fakes built directly in tests
// without a full Init pass still behave predictably.
func (d *FakeDSQOps) Insert(task sched.PID, id DSQID, slice sched.Duration, flags InsertFlags) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queues[id] = append(d.queues[id], task)
}

// MoveToLocal implements DSQOps: pops the head of id's FIFO, if any.
func (d *FakeDSQOps) MoveToLocal(id DSQID) (sched.PID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.queues[id]
	if len(q) == 0 {
		return sched.UnknownPID, false
	}
	task := q[0]
	d.queues[id] = q[1:]
	return task, true
}

// NrQueued implements DSQOps.
func (d *FakeDSQOps) NrQueued(id DSQID) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint32(len(d.queues[id]))
}

// FakeRCU is a trivial mutex standing in for the kernel's RCU read-side
// protection; init is single-threaded in the simulator, so this exists
// only to give core.Scheduler.Init something real to call.
type FakeRCU struct {
	mu sync.Mutex
}

// NewFakeRCU returns a ready FakeRCU.
func NewFakeRCU() *FakeRCU {
	return &FakeRCU{}
}

// ReadLock implements RCU.
func (r *FakeRCU) ReadLock() { r.mu.Lock() }

// ReadUnlock implements RCU.
func (r *FakeRCU) ReadUnlock() { r.mu.Unlock() }

// FakeSystem reports a fixed CPU count.
type FakeSystem struct {
	nrCPUs int
}

// NewFakeSystem returns a FakeSystem reporting nrCPUs CPUs.
func NewFakeSystem(nrCPUs int) *FakeSystem {
	return &FakeSystem{nrCPUs: nrCPUs}
}

// NrCPUs implements System.
func (s *FakeSystem) NrCPUs() int { return s.nrCPUs }

// FakeTaskStorage is a mutex-guarded map implementing TaskStorage[T].
type FakeTaskStorage[T any] struct {
	mu    sync.RWMutex
	store map[sched.PID]T
}

// NewFakeTaskStorage returns an empty FakeTaskStorage.
func NewFakeTaskStorage[T any]() *FakeTaskStorage[T] {
	return &FakeTaskStorage[T]{store: map[sched.PID]T{}}
}

// Get implements TaskStorage.
func (s *FakeTaskStorage[T]) Get(pid sched.PID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.store[pid]
	return v, ok
}

// Create implements TaskStorage.
func (s *FakeTaskStorage[T]) Create(pid sched.PID, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[pid] = value
}

// Delete implements TaskStorage.
func (s *FakeTaskStorage[T]) Delete(pid sched.PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, pid)
}
