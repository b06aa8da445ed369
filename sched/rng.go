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
package sched

// XorShift32 is the task-local entropy source the source scheduler calls
// `rng_state`: a zero-cost, self-seeded pseudo-random stream used to
// jitter the periodic starvation check. (The anti-starvation lottery coin
// does not come from here; it is derived from the outgoing task's pid and
// runtime.) It is a value type: callers carry it inside their task
// context and write the advanced state back alongside their other packed
// fields.
type XorShift32 uint32

// SeedXorShift32 self-seeds an XorShift32 from values available at first
// use (PID and creation timestamp), so no external entropy source is
// needed. The seed is folded until nonzero, since a zero state is a fixed
// point of the xorshift transform.
func SeedXorShift32(pid PID, createdAt Timestamp) XorShift32 {
	seed := uint32(pid)*2654435761 + uint32(createdAt)
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return XorShift32(seed)
}

// Next advances the generator and returns the next pseudo-random word.
func (x XorShift32) Next() (XorShift32, uint32) {
	v := uint32(x)
	v ^= v << 13
	v ^= v >> 17
	v ^= v << 5
	return XorShift32(v), v
}

// Jitter returns a pseudo-random Duration in [0, maxNS) along with the
// advanced generator state. The starvation kick jitters its kick by 0-127us
// (7 bits) shifted left 10 (~x1024ns); this helper is general enough to
// serve that and any other bounded-jitter need.
func (x XorShift32) Jitter(maxNS uint32) (XorShift32, Duration) {
	if maxNS == 0 {
		return x, 0
	}
	next, v := x.Next()
	return next, Duration(v % maxNS)
}
