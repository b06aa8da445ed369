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

// PackedState is the single 32-bit read-modify-write word the source
// scheduler calls `packed_info`: flags:4 | tier:3 | sparse_score:7 |
// wait_data:8 | kalman_error:8. Rather than porting the original's
// shift/mask macros directly, this is a dedicated immutable value type
// with typed getters/setters, relying on the compiler to elide the packing.
// Every mutator returns a new PackedState; the caller commits it with one
// assignment, preserving the single-store-per-update discipline every
// write site needs to stay race-free under the kernel's RCU rules.
type PackedState uint32

const (
	shiftKalmanError = 0
	shiftWaitData     = 8
	shiftSparseScore  = 16
	shiftTier         = 23
	shiftFlags        = 26

	maskKalmanError = 0xFF
	maskWaitData    = 0xFF
	maskSparseScore = 0x7F
	maskTier        = 0x07
	maskFlags       = 0x0F
)

// DeadKalmanError is the inert placeholder value every PackedState carries
// in its kalman_error sub-field. An earlier revision of the source
// scheduler scored run-length with a Kalman filter; the field survives in
// the packed word's layout but is never read by the current EMA-based
// classifier. This implementation preserves the field's presence, at the
// same bit offset, without wiring it to anything: reviving dead state with
// a guessed meaning would be worse than leaving it inert.
const DeadKalmanError uint8 = 255

// TaskFlags holds the 4-bit flags sub-field of PackedState.
type TaskFlags uint8

// FlagNew marks a task that has not yet started its first run; the first
// Running callback clears it. Dispatch statistics count a task carrying it
// as a new flow.
const FlagNew TaskFlags = 1 << 0

// Score is the clamped [0,100] sparse-flow behavioral score.
type Score uint8

// Clamp confines a raw score delta to the legal [0,100] range.
func (s Score) Clamp() Score {
	switch {
	case s > 100:
		return 100
	default:
		return s
	}
}

// WaitData packs the AQM's sliding-window counters: violations:4 | checks:4,
// both saturating (not wrapping) at 15.
type WaitData uint8

// NewWaitData builds a WaitData from already-saturated checks/violations.
func NewWaitData(checks, violations uint8) WaitData {
	return WaitData(saturate4(checks) | saturate4(violations)<<4)
}

// Checks returns the number of completed wake-to-run cycles observed in the
// current AQM window.
func (w WaitData) Checks() uint8 {
	return uint8(w) & 0x0F
}

// Violations returns the number of those cycles that exceeded the tier's
// wait budget.
func (w WaitData) Violations() uint8 {
	return (uint8(w) >> 4) & 0x0F
}

// Inc returns a WaitData with Checks incremented (saturating at 15)
// and, if violated, Violations incremented (saturating at 15) too.
func (w WaitData) Inc(violated bool) WaitData {
	checks := w.Checks()
	violations := w.Violations()
	if checks < 15 {
		checks++
	}
	if violated && violations < 15 {
		violations++
	}
	return NewWaitData(checks, violations)
}

func saturate4(v uint8) uint8 {
	if v > 15 {
		return 15
	}
	return v
}

// NewPackedState builds the initial packed word for a freshly created task
// context: tier=Interactive, score=50, flags={FlagNew}, everything else
// zero.
func NewPackedState() PackedState {
	return PackedState(0).
		WithFlags(FlagNew).
		WithTier(TierInteractive).
		WithScore(50).
		WithWaitData(0).
		withKalmanError(DeadKalmanError)
}

// Flags returns the flags sub-field.
func (p PackedState) Flags() TaskFlags {
	return TaskFlags((uint32(p) >> shiftFlags) & maskFlags)
}

// WithFlags returns p with its flags sub-field replaced.
func (p PackedState) WithFlags(f TaskFlags) PackedState {
	return p.replace(shiftFlags, maskFlags, uint32(f)&maskFlags)
}

// Tier returns the tier sub-field.
func (p PackedState) Tier() Tier {
	return Tier((uint32(p) >> shiftTier) & maskTier)
}

// WithTier returns p with its tier sub-field replaced.
func (p PackedState) WithTier(t Tier) PackedState {
	return p.replace(shiftTier, maskTier, uint32(t)&maskTier)
}

// SparseScore returns the sparse_score sub-field.
func (p PackedState) SparseScore() Score {
	return Score((uint32(p) >> shiftSparseScore) & maskSparseScore)
}

// WithScore returns p with its sparse_score sub-field replaced. The value
// is clamped to [0,100] before storage.
func (p PackedState) WithScore(s Score) PackedState {
	return p.replace(shiftSparseScore, maskSparseScore, uint32(s.Clamp()))
}

// WaitData returns the wait_data sub-field.
func (p PackedState) WaitData() WaitData {
	return WaitData((uint32(p) >> shiftWaitData) & maskWaitData)
}

// WithWaitData returns p with its wait_data sub-field replaced.
func (p PackedState) WithWaitData(w WaitData) PackedState {
	return p.replace(shiftWaitData, maskWaitData, uint32(w))
}

// withKalmanError sets the inert kalman_error sub-field. Unexported: no
// caller outside this file should ever need to set it to anything but
// DeadKalmanError.
func (p PackedState) withKalmanError(v uint8) PackedState {
	return p.replace(shiftKalmanError, maskKalmanError, uint32(v))
}

func (p PackedState) replace(shift, mask, value uint32) PackedState {
	cleared := uint32(p) &^ (mask << shift)
	return PackedState(cleared | (value&mask)<<shift)
}
