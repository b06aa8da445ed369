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
	"math/bits"
	"sync/atomic"

	"github.com/ritzdacat/cakesched/sched"
)

// cacheLinePad fills out BitMask64 to 128 bytes, keeping idle_mask and
// victim_mask cache-line isolated so concurrent CPUs don't false-share.
// Go has no alignment pragma, so a trailing byte-array filler is the
// idiomatic substitute.
const cacheLinePad = 128 - 8

// BitMask64 is the lock-free global CPU bitmask backing idle_mask and
// victim_mask: up to 64 CPUs, one bit each, mutated with atomic OR/AND and
// read with atomic load. Go's atomic.Uint64 load/store already carry
// acquire/release semantics; there is no weaker "relaxed" tier in the
// language runtime to opt into for victim_mask, so its reads simply accept
// the same ordering idle_mask pays for — correctness does not depend on
// the distinction, only performance might, and this is a hosted model
// rather than the real hot path.
type BitMask64 struct {
	bits atomic.Uint64
	_    [cacheLinePad]byte
}

// Load returns the full 64-bit mask.
func (m *BitMask64) Load() uint64 {
	return m.bits.Load()
}

// Test reports whether cpu's bit is set.
func (m *BitMask64) Test(cpu sched.CPUID) bool {
	if cpu < 0 || cpu >= 64 {
		return false
	}
	return m.bits.Load()&(uint64(1)<<uint(cpu)) != 0
}

// Set atomically sets cpu's bit, retrying the compare-and-swap only while
// contended; a bit already set short-circuits without touching the cache
// line, same as an OR-with-self would.
func (m *BitMask64) Set(cpu sched.CPUID) {
	if cpu < 0 || cpu >= 64 {
		return
	}
	bit := uint64(1) << uint(cpu)
	for {
		old := m.bits.Load()
		if old&bit != 0 {
			return
		}
		if m.bits.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

// Clear atomically clears cpu's bit.
func (m *BitMask64) Clear(cpu sched.CPUID) {
	if cpu < 0 || cpu >= 64 {
		return
	}
	bit := uint64(1) << uint(cpu)
	for {
		old := m.bits.Load()
		if old&bit == 0 {
			return
		}
		if m.bits.CompareAndSwap(old, old&^bit) {
			return
		}
	}
}

// FirstSet returns the lowest-numbered set bit via count-trailing-zeros,
// keeping "find an idle CPU" O(1) rather than scanning bit by bit.
func (m *BitMask64) FirstSet() (sched.CPUID, bool) {
	v := m.bits.Load()
	if v == 0 {
		return sched.UnknownCPU, false
	}
	return sched.CPUID(bits.TrailingZeros64(v)), true
}

// SetIfChanged applies the "cached cursor" discipline: *shadow is the
// CPU's own cached view of its bit; the global mask is only touched when
// want differs from the cached value, so the overwhelming majority of
// calls touch no shared cache line at all.
func (m *BitMask64) SetIfChanged(cpu sched.CPUID, shadow *bool, want bool) {
	if *shadow == want {
		return
	}
	*shadow = want
	if want {
		m.Set(cpu)
	} else {
		m.Clear(cpu)
	}
}

// CPUShadow is one CPU's 2-bit local state machine: its cached view of
// its own idle_mask and victim_mask bits.
type CPUShadow struct {
	IsIdle   bool
	IsVictim bool
}
