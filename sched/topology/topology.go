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
// Package topology is the strategy object a scheduler loader supplies at
// startup: multi-LLC, hybrid P/E core, and SMT awareness live here as a
// precomputed per-CPU preference vector, not as global flags threaded
// through the scheduler's hot path. The hot path calls
// Vector.Preferred(cpu), an iterator over "next CPU to try", plus
// HasHybrid and IsBig for the big-core swap, so a flat
// single-cluster machine and an exotic big.LITTLE NUMA box look identical
// to the scheduler core.
package topology

import "github.com/ritzdacat/cakesched/sched"

// maxPreference bounds the precomputed preference vector per CPU: sibling,
// then same-LLC peers, then same-cluster peers, then global, capped at 8
// preferred peers in order.
const maxPreference = 8

// description holds the raw topology facts a Vector is built from.
type description struct {
	nrCPUs        int
	hasMultiLLC   bool
	hasHybrid     bool
	smtEnabled    bool
	cpuLLCID      []int32
	cpuIsBig      []bool
	cpuSiblingMap []sched.CPUID
}

// Option configures a Vector at construction time.
type Option func(*description)

// WithMultiLLC records that CPUs are split across last-level-cache
// domains, supplying the per-CPU LLC id. Passing a shorter llcID than
// nrCPUs leaves the remaining CPUs out of every LLC group: they get no
// same-LLC preference and are never listed as another CPU's LLC peer.
func WithMultiLLC(llcID []int32) Option {
	return func(d *description) {
		d.hasMultiLLC = true
		d.cpuLLCID = llcID
	}
}

// WithHybrid records that some CPUs are "big" (performance) cores and
// others "little" (efficiency) cores.
func WithHybrid(isBig []bool) Option {
	return func(d *description) {
		d.hasHybrid = true
		d.cpuIsBig = isBig
	}
}

// WithSMT records each CPU's SMT sibling (a negative CPUID such as
// sched.UnknownCPU if none; 0 names CPU 0), enabling the sibling-first
// preference ordering.
func WithSMT(siblingMap []sched.CPUID) Option {
	return func(d *description) {
		d.smtEnabled = true
		d.cpuSiblingMap = siblingMap
	}
}

// Vector is the precomputed, immutable-after-construction topology
// strategy: one preference list per CPU, sibling first, then same-LLC,
// then same big/little cluster, then everything else, truncated to
// maxPreference entries. It is built once by the loader and never
// mutated afterward: every topology field is fixed at construction and
// read-only for the rest of the Vector's life.
type Vector struct {
	nrCPUs      int
	hasMultiLLC bool
	hasHybrid   bool
	smtEnabled  bool
	cpuIsBig    []bool
	preferred   [][]sched.CPUID
}

// Uniform returns a Vector for a flat, single-cluster, no-SMT machine:
// every CPU's preference vector is simply "every other CPU, in id order."
// This is the default a loader supplies when it has not probed hardware
// topology, and what the simulator uses for every scenario.
func Uniform(nrCPUs int) *Vector {
	return New(nrCPUs)
}

// New builds a Vector for nrCPUs CPUs from the given options. With no
// options, it behaves like Uniform.
func New(nrCPUs int, opts ...Option) *Vector {
	d := &description{nrCPUs: nrCPUs}
	for _, opt := range opts {
		opt(d)
	}
	v := &Vector{
		nrCPUs:      nrCPUs,
		hasMultiLLC: d.hasMultiLLC,
		hasHybrid:   d.hasHybrid,
		smtEnabled:  d.smtEnabled,
		cpuIsBig:    d.cpuIsBig,
	}
	v.preferred = make([][]sched.CPUID, nrCPUs)
	for cpu := 0; cpu < nrCPUs; cpu++ {
		v.preferred[cpu] = v.buildPreference(d, sched.CPUID(cpu))
	}
	return v
}

func (v *Vector) buildPreference(d *description, cpu sched.CPUID) []sched.CPUID {
	seen := map[sched.CPUID]bool{cpu: true}
	out := make([]sched.CPUID, 0, maxPreference)

	add := func(c sched.CPUID) bool {
		if seen[c] || int(c) < 0 || int(c) >= v.nrCPUs {
			return len(out) >= maxPreference
		}
		seen[c] = true
		out = append(out, c)
		return len(out) >= maxPreference
	}

	if d.smtEnabled && int(cpu) < len(d.cpuSiblingMap) {
		if sib := d.cpuSiblingMap[cpu]; sib.Valid() {
			if add(sib) {
				return out
			}
		}
	}

	if d.hasMultiLLC && int(cpu) < len(d.cpuLLCID) {
		llc := d.cpuLLCID[cpu]
		for c := 0; c < v.nrCPUs && len(out) < maxPreference; c++ {
			if c < len(d.cpuLLCID) && d.cpuLLCID[c] == llc {
				if add(sched.CPUID(c)) {
					return out
				}
			}
		}
	}

	if d.hasHybrid && int(cpu) < len(d.cpuIsBig) {
		big := d.cpuIsBig[cpu]
		for c := 0; c < v.nrCPUs && len(out) < maxPreference; c++ {
			if c < len(d.cpuIsBig) && d.cpuIsBig[c] == big {
				if add(sched.CPUID(c)) {
					return out
				}
			}
		}
	}

	for c := 0; c < v.nrCPUs && len(out) < maxPreference; c++ {
		if add(sched.CPUID(c)) {
			return out
		}
	}
	return out
}

// Preferred returns cpu's precomputed preference list: sibling, then
// same-LLC, then same-cluster, then global, already truncated and
// deduplicated. The caller walks it in order and stops at the first idle
// entry.
func (v *Vector) Preferred(cpu sched.CPUID) []sched.CPUID {
	if int(cpu) < 0 || int(cpu) >= len(v.preferred) {
		return nil
	}
	return v.preferred[cpu]
}

// HasHybrid reports whether this Vector was built with big/little data,
// gating CPU selection's efficiency-to-performance core swap for
// latency-sensitive tiers.
func (v *Vector) HasHybrid() bool { return v.hasHybrid }

// IsBig reports whether cpu is a performance core. Always false if this
// Vector has no hybrid data.
func (v *Vector) IsBig(cpu sched.CPUID) bool {
	if !v.hasHybrid || int(cpu) < 0 || int(cpu) >= len(v.cpuIsBig) {
		return false
	}
	return v.cpuIsBig[cpu]
}

// NrCPUs returns the CPU count this Vector was built for.
func (v *Vector) NrCPUs() int { return v.nrCPUs }
