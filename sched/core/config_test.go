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

func TestCachedThresholdNSMatchesWorkedExample(t *testing.T) {
	cfg := GamingProfile()
	if got, want := cfg.CachedThresholdNS(), sched.Duration(390625); got != want {
		t.Errorf("CachedThresholdNS() = %d, want %d", got, want)
	}
}

func TestInitialDeficitUSMatchesWorkedExample(t *testing.T) {
	cfg := GamingProfile()
	if got, want := cfg.InitialDeficitUS(), uint32(11718); got != want {
		t.Errorf("InitialDeficitUS() = %d, want %d", got, want)
	}
}

func TestBackgroundProfileDoublesStarvation(t *testing.T) {
	base := DefaultTierTable()
	bg := BackgroundProfile()
	for i := 0; i < sched.TierCount; i++ {
		if got, want := bg.Tiers[i].StarvationNS, base[i].StarvationNS*2; got != want {
			t.Errorf("tier %d starvation = %v, want %v", i, got, want)
		}
	}
}
