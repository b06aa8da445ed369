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

import "github.com/ritzdacat/cakesched/sched"

// longSleepNS is the "two frames at 60 Hz" long-sleep recovery
// threshold.
const longSleepNS sched.Duration = 33_000_000

// waitDemotionWindow and waitDemotionMinViolations are the AQM's demotion
// policy constants: a 10-run sliding window, demoted once at least 3 of
// those runs (30%) violated the tier's wait budget.
const (
	waitDemotionWindow         = 10
	waitDemotionMinViolations  = 3
	waitDemotionScorePenalty   = 10
)

// AQMResult is the pure output of ApplyWaitBudget: the task's updated
// wait_data, sparse_score (unchanged unless a demotion fires), and
// avg_runtime_us (halved if this wake followed a long sleep).
type AQMResult struct {
	WaitData     sched.WaitData
	Score        sched.Score
	AvgRuntimeUS uint32
	Demoted      bool
}

// ApplyWaitBudget is the wait-budget AQM: called from Running with the
// measured wake-to-run latency.
func ApplyWaitBudget(tierCfg TierConfig, tier sched.Tier, waitData sched.WaitData, score sched.Score, avgRuntimeUS uint32, waitTimeNS sched.Duration) AQMResult {
	result := AQMResult{WaitData: waitData, Score: score, AvgRuntimeUS: avgRuntimeUS}

	if waitTimeNS > longSleepNS {
		result.AvgRuntimeUS = avgRuntimeUS / 2
	}

	violated := waitTimeNS > tierCfg.WaitBudgetNS
	wd := waitData.Inc(violated)

	if wd.Checks() >= waitDemotionWindow && tier < sched.TierBackground {
		if wd.Violations() >= waitDemotionMinViolations {
			result.Score = penalizeScore(score, waitDemotionScorePenalty)
			result.Demoted = true
		}
		result.WaitData = sched.NewWaitData(0, 0)
		return result
	}

	result.WaitData = wd
	return result
}

func penalizeScore(score sched.Score, penalty int) sched.Score {
	v := int(score) - penalty
	if v < 0 {
		v = 0
	}
	return sched.Score(v)
}
