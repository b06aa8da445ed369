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
package sched

import "testing"

func TestSeedXorShift32NeverZero(t *testing.T) {
	if got := SeedXorShift32(0, 0); got == 0 {
		t.Errorf("SeedXorShift32(0, 0) = 0, want nonzero (zero is a fixed point)")
	}
}

func TestXorShift32NextAdvances(t *testing.T) {
	x := SeedXorShift32(42, 1000)
	seen := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		var v uint32
		x, v = x.Next()
		if seen[v] {
			t.Fatalf("iteration %d: repeated value %d within 100 draws", i, v)
		}
		seen[v] = true
	}
}

func TestJitterBounded(t *testing.T) {
	x := SeedXorShift32(7, 7)
	const maxNS = 128
	for i := 0; i < 1000; i++ {
		var d Duration
		x, d = x.Jitter(maxNS)
		if d < 0 || d >= maxNS {
			t.Fatalf("Jitter(%d) = %d, want in [0, %d)", maxNS, d, maxNS)
		}
	}
}

func TestJitterZeroMax(t *testing.T) {
	x := SeedXorShift32(1, 1)
	_, d := x.Jitter(0)
	if d != 0 {
		t.Errorf("Jitter(0) = %d, want 0", d)
	}
}
