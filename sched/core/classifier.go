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

// gamingThreshold is the score boundary whose crossing is counted
// separately from ordinary promotion, for the Gaming-tier stats.
const gamingThreshold = 70

// nsToApproxUS converts a nanosecond duration to the approximate
// microsecond unit used by avg_runtime_us and deficit_us throughout this
// package: a >>10 shift rather than an exact /1000 division, consistent
// with every other fixed-point conversion in this design (quantum scaling,
// slice multipliers, cached_threshold_ns all use the 1024 convention
// instead of decimal microseconds). This choice is recorded in DESIGN.md
// under classifier.go.
func nsToApproxUS(ns sched.Duration) uint32 {
	if ns <= 0 {
		return 0
	}
	return uint32(ns) >> 10
}

func clampU16(v uint32) uint32 {
	if v > maxUint16 {
		return maxUint16
	}
	return v
}

// updateAvgRuntime applies an alpha 1/8 EMA (`avg += (meas - avg) >> 3`),
// with first-sample seeding (an unset avg of zero is replaced outright
// rather than smoothed towards) and a u16 cap.
func updateAvgRuntime(avgUS uint32, runLengthNS sched.Duration) uint32 {
	meas := nsToApproxUS(runLengthNS)
	if avgUS == 0 {
		return clampU16(meas)
	}
	delta := int64(meas) - int64(avgUS)
	next := int64(avgUS) + (delta >> 3)
	if next < 0 {
		next = 0
	}
	return clampU16(uint32(next))
}

// updateScore applies a deliberately asymmetric score adjustment: +4 for
// a run shorter than the cached sparse threshold, -6 otherwise, clamped
// to [0,100]. The asymmetry means sustained burstiness is required to
// promote, while a single long run demotes quickly.
func updateScore(score sched.Score, runLengthNS, cachedThresholdNS sched.Duration) sched.Score {
	v := int(score)
	if runLengthNS < cachedThresholdNS {
		v += 4
	} else {
		v -= 6
	}
	switch {
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}
	return sched.Score(v)
}

// mapScoreToTier maps a sparse score to its tier. A perfect score of 100
// additionally consults avg_us, once there is history to consult, to
// split the latency-critical tiers from plain Critical.
func mapScoreToTier(score sched.Score, avgUS uint32) sched.Tier {
	s := int(score)
	switch {
	case s < 30:
		return sched.TierBackground
	case s < 50:
		return sched.TierBatch
	case s < 70:
		return sched.TierInteractive
	case s < 90:
		return sched.TierGaming
	case s < 100:
		return sched.TierCritical
	default:
		if avgUS > 0 {
			switch {
			case avgUS < 50:
				return sched.TierCriticalLatency
			case avgUS < 500:
				return sched.TierRealtime
			}
		}
		return sched.TierCritical
	}
}

// ClassifyResult is the pure output of Classify: the new avg_runtime_us,
// sparse_score, and tier, plus whether this update crossed the Gaming
// stats threshold in either direction. Classify has no side effects on
// global state; the caller writes the result back in a single
// packed-word store and updates stats itself.
type ClassifyResult struct {
	AvgRuntimeUS      uint32
	Score             sched.Score
	Tier              sched.Tier
	CrossedGamingUp   bool
	CrossedGamingDown bool
}

// Classify is the sparse classifier, called once from Stopping with the
// task's just-finished run length.
func Classify(cachedThresholdNS sched.Duration, avgUS uint32, score sched.Score, runLengthNS sched.Duration) ClassifyResult {
	newAvg := updateAvgRuntime(avgUS, runLengthNS)
	newScore := updateScore(score, runLengthNS, cachedThresholdNS)
	tier := mapScoreToTier(newScore, newAvg)

	result := ClassifyResult{AvgRuntimeUS: newAvg, Score: newScore, Tier: tier}
	oldV, newV := int(score), int(newScore)
	if oldV < gamingThreshold && newV >= gamingThreshold {
		result.CrossedGamingUp = true
	} else if oldV >= gamingThreshold && newV < gamingThreshold {
		result.CrossedGamingDown = true
	}
	return result
}
