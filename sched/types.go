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
// Package sched provides the fundamental value types shared by every layer
// of the CAKE-tier scheduler: monotonic timestamps and durations, CPU and
// task identifiers, and the tier ordering the scheduler dispatches against.
package sched

import "fmt"

// Timestamp is a monotonic nanosecond reading taken from the scheduler's
// clock source. Negative values are reserved for "unknown".
type Timestamp int64

// UnknownTimestamp represents an unset or indeterminate timestamp.
const UnknownTimestamp Timestamp = -1

// Valid reports whether t is a real, known timestamp.
func (t Timestamp) Valid() bool {
	return t >= 0
}

// Sub returns the Duration elapsed between two Timestamps. It assumes
// t >= u, which holds for every call site in this scheduler since callers
// always subtract an earlier timestamp from a later one.
func (t Timestamp) Sub(u Timestamp) Duration {
	return Duration(t - u)
}

func (t Timestamp) String() string {
	if !t.Valid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%dns", int64(t))
}

// Duration is a span of nanoseconds. Unlike time.Duration it is defined over
// the scheduler's own Timestamp arithmetic so that wraps and saturation can
// be reasoned about explicitly rather than inherited from the standard
// library's semantics.
type Duration int64

func (d Duration) String() string {
	return fmt.Sprintf("%dns", int64(d))
}

// CPUID identifies a logical CPU.
type CPUID int32

// UnknownCPU represents an indeterminate CPU.
const UnknownCPU CPUID = -1

// Valid reports whether c is a real CPU index.
func (c CPUID) Valid() bool {
	return c >= 0
}

// Clamp masks c into [0, nrCPUs) by bit-masking rather than modulo, so an
// out-of-range CPU index degrades to some valid CPU instead of panicking.
// nrCPUs must be a power of two; callers size their CPU tables that way.
func (c CPUID) Clamp(nrCPUs int) CPUID {
	if nrCPUs <= 0 {
		return 0
	}
	return CPUID(int(c) & (nrCPUs - 1))
}

func (c CPUID) String() string {
	if !c.Valid() {
		return "CPU<unknown>"
	}
	return fmt.Sprintf("CPU%d", int32(c))
}

// PID identifies a schedulable task.
type PID int64

// UnknownPID represents an indeterminate PID.
const UnknownPID PID = -1

// Valid reports whether p is a real PID.
func (p PID) Valid() bool {
	return p > UnknownPID
}

func (p PID) String() string {
	return fmt.Sprintf("PID %d", int64(p))
}
