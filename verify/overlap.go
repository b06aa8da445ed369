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
package verify

import (
	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/ritzdacat/cakesched/sched"
	"github.com/ritzdacat/cakesched/simulate"
)

// dispatchSpan adapts a simulate.DispatchEvent to augmentedtree.Interval, in
// the shape of analysis/sched_thread_span.go's threadSpan: a one-dimensional
// [start, end) interval with a stable ID.
type dispatchSpan struct {
	ev simulate.DispatchEvent
	id uint64
}

func (s *dispatchSpan) LowAtDimension(d uint64) int64 { return int64(s.ev.StartedAt) }
func (s *dispatchSpan) HighAtDimension(d uint64) int64 {
	return int64(s.ev.StartedAt) + int64(s.ev.RunLength)
}
func (s *dispatchSpan) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return s.HighAtDimension(d) > j.LowAtDimension(d) && j.HighAtDimension(d) > s.LowAtDimension(d)
}
func (s *dispatchSpan) ID() uint64 { return s.id }

// CheckNoOverlappingDispatch asserts that no two dispatches on the same CPU
// ever overlap in time: a single simulated core can only run one task at
// once. Each CPU gets its own interval tree, built incrementally in
// chronological order; before a span is added, the tree is queried for
// anything it overlaps.
func CheckNoOverlappingDispatch(trace *simulate.Trace) Result {
	const name = "sane:no_overlapping_dispatch_per_cpu"
	treesByCPU := map[sched.CPUID]augmentedtree.Tree{}
	var nextID uint64

	for _, ev := range trace.Events {
		tree, ok := treesByCPU[ev.CPU]
		if !ok {
			tree = augmentedtree.New(1)
			treesByCPU[ev.CPU] = tree
		}
		nextID++
		span := &dispatchSpan{ev: ev, id: nextID}
		conflicts := tree.Query(span)
		if len(conflicts) > 0 {
			other := conflicts[0].(*dispatchSpan)
			return fail(name, "CPU %v: pid %d [%s, %s) overlaps pid %d [%s, %s)",
				ev.CPU, ev.PID, ev.StartedAt, ev.StartedAt+sched.Timestamp(ev.RunLength),
				other.ev.PID, other.ev.StartedAt, other.ev.StartedAt+sched.Timestamp(other.ev.RunLength))
		}
		tree.Add(span)
	}
	return pass(name)
}
