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
// Package testhelpers contains helpers shared across this repository's
// tests: a cmp-based value differ, and canned workload scenario text
// covering the six end-to-end scenarios. No test in this repository
// imports it yet; the sched/core, simulate, and verify tests spell out
// their own scenario text.
package testhelpers

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// DiffValue compares got against want with cmp.Diff, returning the diff
// text and whether the two were equal. Kept generic over any struct
// since this repository defines no protobuf messages to diff.
func DiffValue(t *testing.T, got, want any, opts ...cmp.Option) (diff string, equal bool) {
	t.Helper()
	diff = cmp.Diff(want, got, opts...)
	return diff, diff == ""
}

// Canned workload scenarios, one per the end-to-end scenario. Each
// is plain workload DSL text; callers parse it with workload.Parse, so
// this package does not import workload (workload's own tests live in
// package workload and could not import testhelpers if it did).
const (
	// ScenarioNewTaskOneSparseRun is a single task with one short run: it
	// lands in the interactive tier, its sparse score rising from 50 to 54.
	ScenarioNewTaskOneSparseRun = "task solo\n  wake\n  run 2000\n"

	// ScenarioGamingPromotionSequence alternates short runs and sleeps
	// long enough that a gaming-profile task should climb toward the
	// critical-latency tier.
	ScenarioGamingPromotionSequence = `profile: gaming
task client
  wake
  run 3000
  sleep 8000
  wake
  run 3000
  sleep 8000
  wake
  run 3000
  sleep 8000
  wake
  run 3000
`

	// ScenarioBulkDemotion runs one task continuously with no sleeps,
	// which should demote it toward the bulk/background tiers as its
	// sparse score falls.
	ScenarioBulkDemotion = `task compiler
  wake
  run 5000000
  run 5000000
  run 5000000
  run 5000000
`

	// ScenarioWaitBudgetAQMDemotion wakes a task repeatedly with long
	// sleeps between wakes. Under simulate.Run every wake is dispatched
	// at once, so each measured wait is 0, and four wakes do not fill the
	// AQM's 10-check window: the AQM does not demote it.
	ScenarioWaitBudgetAQMDemotion = `task waiter
  wake
  sleep 40000
  wake
  sleep 40000
  wake
  sleep 40000
  wake
  run 1000
`

	// ScenarioSyncWakeDirectDispatch wakes a task with the sync hint,
	// which should route it straight to the waking CPU's direct-dispatch
	// mailbox.
	ScenarioSyncWakeDirectDispatch = "task waker\n  wake sync\n  run 1000\n"

	// ScenarioStarvationKick runs one task long enough, under the
	// background profile's doubled starvation budget, to trigger a
	// jittered starvation kick.
	ScenarioStarvationKick = "profile: background\ntask hog\n  wake\n  run 250000000\n"
)
