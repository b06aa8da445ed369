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
	"strings"
	"testing"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/simulate"
	"github.com/ritzdacat/cakesched/workload"
)

func runScenario(t *testing.T, src string) *simulate.Trace {
	t.Helper()
	scn, err := workload.Parse("t", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	trace, err := simulate.Run(scn)
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	return trace
}

func TestAllChecksPassOnOrdinaryWorkload(t *testing.T) {
	trace := runScenario(t, "task a\n  wake\n  run 50000\n  wake\n  run 60000\n")
	results := Report(trace, AllChecks()...)
	if fails := Failures(results); len(fails) != 0 {
		t.Errorf("unexpected failures: %+v", fails)
	}
}

func TestStarvationScenarioPassesChecksAndKicks(t *testing.T) {
	trace := runScenario(t, "profile: background\ntask hog\n  wake\n  run 250000000\n")
	results := Report(trace, AllChecks()...)
	if fails := Failures(results); len(fails) != 0 {
		t.Errorf("unexpected failures: %+v", fails)
	}
	found := false
	for _, k := range trace.Kicks {
		if k.Flags == kernelif.KickPreempt {
			found = true
		}
	}
	if !found {
		t.Errorf("Kicks = %+v, want at least one KickPreempt", trace.Kicks)
	}
}

func TestCheckNoOverlappingDispatchCatchesAnArtificialOverlap(t *testing.T) {
	trace := &simulate.Trace{
		Events: []simulate.DispatchEvent{
			{CPU: 0, PID: 1, StartedAt: 0, RunLength: 1000},
			{CPU: 0, PID: 2, StartedAt: 500, RunLength: 1000},
		},
	}
	result := CheckNoOverlappingDispatch(trace)
	if result.Pass {
		t.Fatal("CheckNoOverlappingDispatch passed on an overlapping trace")
	}
}

func TestCheckScoresInRangeCatchesAnArtificialViolation(t *testing.T) {
	trace := &simulate.Trace{
		Events: []simulate.DispatchEvent{{PID: 1, Score: 101}},
	}
	if CheckScoresInRange(trace).Pass {
		t.Fatal("CheckScoresInRange passed with score=101")
	}
}
