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

func TestCPUIDClampIsPowerOfTwoMask(t *testing.T) {
	tests := []struct {
		cpu    CPUID
		nrCPUs int
		want   CPUID
	}{
		{cpu: 3, nrCPUs: 8, want: 3},
		{cpu: 9, nrCPUs: 8, want: 1},
		{cpu: -1, nrCPUs: 8, want: 7},
		{cpu: 5, nrCPUs: 0, want: 0},
	}
	for _, tc := range tests {
		if got := tc.cpu.Clamp(tc.nrCPUs); got != tc.want {
			t.Errorf("CPUID(%d).Clamp(%d) = %d, want %d", tc.cpu, tc.nrCPUs, got, tc.want)
		}
	}
}

func TestTimestampSub(t *testing.T) {
	a := Timestamp(1000)
	b := Timestamp(4000)
	if got, want := b.Sub(a), Duration(3000); got != want {
		t.Errorf("Sub() = %v, want %v", got, want)
	}
}

func TestValidity(t *testing.T) {
	if UnknownTimestamp.Valid() {
		t.Error("UnknownTimestamp.Valid() = true, want false")
	}
	if UnknownPID.Valid() {
		t.Error("UnknownPID.Valid() = true, want false")
	}
	if UnknownCPU.Valid() {
		t.Error("UnknownCPU.Valid() = true, want false")
	}
	if !PID(1).Valid() {
		t.Error("PID(1).Valid() = false, want true")
	}
}
