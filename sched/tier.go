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

// Tier is one of the scheduler's seven priority classes, in total order:
// lower index means higher priority. Tier is the CPU-time analogue of a
// CAKE AQM queueing tier.
type Tier uint8

// TierCount is the number of real tiers; TierTable implementations carry an
// eighth, padding entry so that `tier & 7` is branch-free.
const TierCount = 7

// TierTableSize is the number of slots a tier-indexed array must have to
// hold TierCount real tiers plus one padding entry.
const TierTableSize = 8

const (
	// TierCriticalLatency is reserved for input/IRQ-class tasks with
	// sub-50us average run length and a perfect sparse score.
	TierCriticalLatency Tier = iota
	// TierRealtime is for sub-500us average run length tasks, e.g. audio.
	TierRealtime
	// TierCritical is for very sparse tasks, e.g. compositors.
	TierCritical
	// TierGaming is for sparse, bursty interactive workloads.
	TierGaming
	// TierInteractive is the default tier for ordinary applications.
	TierInteractive
	// TierBatch is for heavy, sustained CPU consumers.
	TierBatch
	// TierBackground is the lowest tier: strict priority, largest slices.
	TierBackground
)

var tierNames = [TierTableSize]string{
	TierCriticalLatency: "critical-latency",
	TierRealtime:        "realtime",
	TierCritical:        "critical",
	TierGaming:          "gaming",
	TierInteractive:     "interactive",
	TierBatch:           "batch",
	TierBackground:      "background",
	7:                   "padding",
}

// Index returns the tier modulo TierTableSize: the branch-free `tier & 7`
// indexing every tier configuration table lookup uses.
func (t Tier) Index() int {
	return int(t) & (TierTableSize - 1)
}

// Valid reports whether t is one of the seven real tiers.
func (t Tier) Valid() bool {
	return t <= TierBackground
}

func (t Tier) String() string {
	return tierNames[t.Index()]
}
