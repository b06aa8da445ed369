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
// Package verify composes predicate checkers for the scheduler's safety
// and liveness invariants, run over a simulate.Trace. Each Check is a
// small closure over a predicate, in the spirit of a tracepoint matcher
// wrapping a `matching func(ev) bool`, reduced to plain functions since
// this repository has no consumable copy of an LTL-style operator
// library to compose against.
package verify

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/simulate"
)

// Result is one Check's outcome.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Check inspects a trace and reports whether it held.
type Check func(trace *simulate.Trace) Result

func pass(name string) Result { return Result{Name: name, Pass: true} }

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Pass: false, Detail: fmt.Sprintf(format, args...)}
}

// CheckScoresInRange confirms sparse_score stays in [0, 100] for every
// observed dispatch. sched.PackedState.WithScore already clamps the upper
// bound when a score is stored; this check is the end-to-end confirmation that
// no code path ever stored an unclamped value.
func CheckScoresInRange(trace *simulate.Trace) Result {
	const name = "sparse_score_in_range"
	for _, ev := range trace.Events {
		if ev.Score > 100 {
			return fail(name, "pid %d score %d exceeds 100 at %s", ev.PID, ev.Score, ev.StartedAt)
		}
	}
	return pass(name)
}

// CheckTiersValid confirms every observed dispatch has tier ∈ {0..6}.
func CheckTiersValid(trace *simulate.Trace) Result {
	const name = "tier_valid"
	for _, ev := range trace.Events {
		if !ev.Tier.Valid() {
			return fail(name, "pid %d has invalid tier %d at %s", ev.PID, ev.Tier, ev.StartedAt)
		}
	}
	return pass(name)
}

// CheckStarvationPreemptsHaveKicks confirms every recorded per-tier
// starvation preempt in the aggregate stats corresponds to at least one
// KickPreempt in the trace's kick log.
func CheckStarvationPreemptsHaveKicks(trace *simulate.Trace) Result {
	const name = "starvation_preempts_have_kicks"
	var totalPreempts uint64
	for _, ts := range trace.Stats.PerTier {
		totalPreempts += ts.StarvationPreempts
	}
	if totalPreempts == 0 {
		return pass(name)
	}
	var kicks int
	for _, k := range trace.Kicks {
		if k.Flags == kernelif.KickPreempt {
			kicks++
		}
	}
	if kicks == 0 {
		return fail(name, "%d starvation preempts recorded but no KickPreempt observed", totalPreempts)
	}
	return pass(name)
}

// CheckDispatchLengthsPositive is a basic sanity check that every dispatch
// has a positive run length. The workload parser does not reject a zero
// or negative `run` duration, so this check is what catches one.
func CheckDispatchLengthsPositive(trace *simulate.Trace) Result {
	const name = "sane:dispatch_run_length_positive"
	for _, ev := range trace.Events {
		if ev.RunLength <= 0 {
			return fail(name, "pid %d dispatched at %s with non-positive run length %v", ev.PID, ev.StartedAt, ev.RunLength)
		}
	}
	return pass(name)
}

// Report runs every check in checks concurrently via errgroup (the same
// fan-out shape simulate.Run uses to drive per-CPU goroutines) and returns
// their results in call order.
func Report(trace *simulate.Trace, checks ...Check) []Result {
	results := make([]Result, len(checks))
	eg := errgroup.Group{}
	for i, check := range checks {
		i, check := i, check
		eg.Go(func() error {
			results[i] = check(trace)
			return nil
		})
	}
	_ = eg.Wait() // every Check is total; no error path to propagate
	return results
}

// AllChecks is the default battery Report is usually called with.
func AllChecks() []Check {
	return []Check{
		CheckScoresInRange,
		CheckTiersValid,
		CheckDispatchLengthsPositive,
		CheckStarvationPreemptsHaveKicks,
		CheckNoOverlappingDispatch,
	}
}

// Failures filters results down to the ones that did not pass.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Pass {
			out = append(out, r)
		}
	}
	return out
}
