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

// TierConfig is one row of the immutable per-tier parameter table.
// SliceMultiplier is fixed-point with 1024 representing 1.0x, matching the
// packed-word fixed-point convention used throughout this repository.
type TierConfig struct {
	StarvationNS    sched.Duration
	WaitBudgetNS    sched.Duration
	SliceMultiplier uint32
}

// TierTable is the 8-entry (7 tiers + 1 padding) array-of-structs table
// that keeps `tier & 7` (sched.Tier.Index) always a valid, branch-free
// lookup even for a corrupted or impossible tier value.
type TierTable [sched.TierTableSize]TierConfig

// NewTierTable builds a TierTable from the seven real tier entries,
// padding the 8th slot with a copy of the Background entry: an
// out-of-range tier index degrades to the slowest, most forgiving
// tier rather than an undefined one.
func NewTierTable(entries [sched.TierCount]TierConfig) TierTable {
	var t TierTable
	for i, e := range entries {
		t[i] = e
	}
	t[sched.TierTableSize-1] = entries[sched.TierBackground]
	return t
}

// For returns the configuration row for tier, always a valid index by
// construction (TierTable is sized and padded for branch-free lookup).
func (t TierTable) For(tier sched.Tier) TierConfig {
	return t[tier.Index()]
}

// DefaultTierTable is the source scheduler's gaming profile table:
// starvation thresholds rising from 2ms to 100ms, wait budgets tightest
// at Critical-Latency, and slice multipliers from 0.7x up to 1.3x as tier
// number increases.
func DefaultTierTable() TierTable {
	return NewTierTable([sched.TierCount]TierConfig{
		sched.TierCriticalLatency: {StarvationNS: 2_000_000, WaitBudgetNS: 1_000_000, SliceMultiplier: 717},
		sched.TierRealtime:        {StarvationNS: 5_000_000, WaitBudgetNS: 2_000_000, SliceMultiplier: 819},
		sched.TierCritical:        {StarvationNS: 10_000_000, WaitBudgetNS: 4_000_000, SliceMultiplier: 922},
		sched.TierGaming:          {StarvationNS: 20_000_000, WaitBudgetNS: 4_000_000, SliceMultiplier: 1024},
		sched.TierInteractive:     {StarvationNS: 40_000_000, WaitBudgetNS: 8_000_000, SliceMultiplier: 1126},
		sched.TierBatch:           {StarvationNS: 60_000_000, WaitBudgetNS: 16_000_000, SliceMultiplier: 1229},
		sched.TierBackground:      {StarvationNS: 100_000_000, WaitBudgetNS: 32_000_000, SliceMultiplier: 1331},
	})
}
