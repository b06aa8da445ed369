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

func TestBitMask64SetTestClear(t *testing.T) {
	var m BitMask64
	if m.Test(3) {
		t.Fatal("bit 3 set before Set")
	}
	m.Set(3)
	if !m.Test(3) {
		t.Fatal("bit 3 not set after Set")
	}
	m.Clear(3)
	if m.Test(3) {
		t.Fatal("bit 3 still set after Clear")
	}
}

func TestBitMask64FirstSetIsLowestBit(t *testing.T) {
	var m BitMask64
	m.Set(5)
	m.Set(2)
	got, ok := m.FirstSet()
	if !ok || got != 2 {
		t.Errorf("FirstSet() = (%v, %v), want (2, true)", got, ok)
	}
}

func TestBitMask64FirstSetEmpty(t *testing.T) {
	var m BitMask64
	if _, ok := m.FirstSet(); ok {
		t.Error("FirstSet() on empty mask reported ok=true")
	}
}

func TestSetIfChangedSkipsRedundantWrites(t *testing.T) {
	var m BitMask64
	shadow := false
	m.SetIfChanged(1, &shadow, false)
	if m.Test(1) {
		t.Error("SetIfChanged wrote to the mask when shadow already matched")
	}
	m.SetIfChanged(1, &shadow, true)
	if !shadow || !m.Test(1) {
		t.Error("SetIfChanged(true) did not update shadow and mask")
	}
	m.SetIfChanged(1, &shadow, true)
	if !m.Test(1) {
		t.Error("bit cleared unexpectedly by a redundant SetIfChanged(true)")
	}
}

func TestBitMask64OutOfRangeCPUIsNoop(t *testing.T) {
	var m BitMask64
	m.Set(sched.CPUID(64))
	if m.Load() != 0 {
		t.Errorf("Set(64) mutated the mask: %x", m.Load())
	}
	if m.Test(sched.CPUID(-1)) {
		t.Error("Test(-1) = true, want false")
	}
}
