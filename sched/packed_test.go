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

func TestNewPackedStateDefaults(t *testing.T) {
	p := NewPackedState()
	if got, want := p.Tier(), TierInteractive; got != want {
		t.Errorf("Tier() = %v, want %v", got, want)
	}
	if got, want := p.SparseScore(), Score(50); got != want {
		t.Errorf("SparseScore() = %v, want %v", got, want)
	}
	if got, want := p.Flags(), FlagNew; got != want {
		t.Errorf("Flags() = %v, want %v", got, want)
	}
	if got, want := p.WaitData(), WaitData(0); got != want {
		t.Errorf("WaitData() = %v, want %v", got, want)
	}
}

func TestPackedStateFieldsAreIndependent(t *testing.T) {
	p := NewPackedState().
		WithTier(TierCriticalLatency).
		WithScore(100).
		WithWaitData(NewWaitData(10, 3)).
		WithFlags(0)

	if got, want := p.Tier(), TierCriticalLatency; got != want {
		t.Errorf("Tier() = %v, want %v", got, want)
	}
	if got, want := p.SparseScore(), Score(100); got != want {
		t.Errorf("SparseScore() = %v, want %v", got, want)
	}
	if got, want := p.WaitData().Checks(), uint8(10); got != want {
		t.Errorf("Checks() = %v, want %v", got, want)
	}
	if got, want := p.WaitData().Violations(), uint8(3); got != want {
		t.Errorf("Violations() = %v, want %v", got, want)
	}
	if got, want := p.Flags(), TaskFlags(0); got != want {
		t.Errorf("Flags() = %v, want %v", got, want)
	}
}

func TestScoreClampsAt100(t *testing.T) {
	p := NewPackedState().WithScore(250)
	if got, want := p.SparseScore(), Score(100); got != want {
		t.Errorf("SparseScore() = %v, want %v", got, want)
	}
}

func TestWaitDataSaturatesAt15(t *testing.T) {
	w := NewWaitData(0, 0)
	for i := 0; i < 20; i++ {
		w = w.Inc(true)
	}
	if got, want := w.Checks(), uint8(15); got != want {
		t.Errorf("Checks() = %v, want %v", got, want)
	}
	if got, want := w.Violations(), uint8(15); got != want {
		t.Errorf("Violations() = %v, want %v", got, want)
	}
}

func TestWaitDataIncNonViolating(t *testing.T) {
	w := NewWaitData(2, 1)
	w = w.Inc(false)
	if got, want := w.Checks(), uint8(3); got != want {
		t.Errorf("Checks() = %v, want %v", got, want)
	}
	if got, want := w.Violations(), uint8(1); got != want {
		t.Errorf("Violations() = %v, want %v", got, want)
	}
}

func TestDeadKalmanErrorNeverMutatedByPublicAPI(t *testing.T) {
	p := NewPackedState().
		WithTier(TierBackground).
		WithScore(0).
		WithWaitData(NewWaitData(15, 15)).
		WithFlags(0)
	// kalman_error occupies bits [0:8); confirm it still reads as the dead
	// placeholder after every other sub-field has been rewritten.
	if got, want := uint8(p)&maskKalmanError, DeadKalmanError; got != want {
		t.Errorf("kalman_error bits = %d, want %d (dead placeholder)", got, want)
	}
}
