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

import (
	"testing"

	"github.com/ritzdacat/cakesched/sched"
)

func TestDefaultTierTableStarvationIncreasesWithTier(t *testing.T) {
	table := DefaultTierTable()
	for i := 1; i < sched.TierCount; i++ {
		prev := table[i-1].StarvationNS
		cur := table[i].StarvationNS
		if cur <= prev {
			t.Errorf("tier %d starvation %v not greater than tier %d's %v", i, cur, i-1, prev)
		}
	}
}

func TestDefaultTierTablePaddingMatchesBackground(t *testing.T) {
	table := DefaultTierTable()
	if table[sched.TierTableSize-1] != table[sched.TierBackground.Index()] {
		t.Errorf("padding entry %+v does not match Background entry %+v",
			table[sched.TierTableSize-1], table[sched.TierBackground.Index()])
	}
}

func TestTierTableForOutOfRangeDegradesToBranchFreeLookup(t *testing.T) {
	table := DefaultTierTable()
	got := table.For(sched.Tier(7))
	want := table[sched.TierBackground.Index()]
	if got != want {
		t.Errorf("For(7) = %+v, want %+v", got, want)
	}
}
