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
package topology

import (
	"testing"

	"github.com/ritzdacat/cakesched/sched"
)

func TestUniformPreferenceIsEveryOtherCPU(t *testing.T) {
	v := Uniform(4)
	pref := v.Preferred(0)
	if len(pref) != 3 {
		t.Fatalf("Preferred(0) = %v, want 3 entries", pref)
	}
	for _, c := range pref {
		if c == 0 {
			t.Errorf("Preferred(0) contains self")
		}
	}
}

func TestSMTSiblingIsFirstPreference(t *testing.T) {
	v := New(4, WithSMT([]sched.CPUID{1, 0, 3, 2}))
	pref := v.Preferred(0)
	if len(pref) == 0 || pref[0] != 1 {
		t.Fatalf("Preferred(0) = %v, want sibling 1 first", pref)
	}
}

func TestMultiLLCGroupsBeforeGlobal(t *testing.T) {
	v := New(4, WithMultiLLC([]int32{0, 0, 1, 1}))
	pref := v.Preferred(0)
	if len(pref) == 0 || pref[0] != 1 {
		t.Fatalf("Preferred(0) = %v, want LLC-mate 1 first", pref)
	}
}

func TestHybridGroupsSameCluster(t *testing.T) {
	v := New(4, WithHybrid([]bool{true, true, false, false}))
	if !v.HasHybrid() {
		t.Fatal("HasHybrid() = false, want true")
	}
	pref := v.Preferred(0)
	if len(pref) == 0 || pref[0] != 1 {
		t.Fatalf("Preferred(0) = %v, want same-cluster 1 first", pref)
	}
	if !v.IsBig(0) || v.IsBig(2) {
		t.Error("IsBig mismatched cluster assignment")
	}
}

func TestPreferredOutOfRangeIsEmpty(t *testing.T) {
	v := Uniform(2)
	if got := v.Preferred(5); got != nil {
		t.Errorf("Preferred(5) = %v, want nil", got)
	}
}
