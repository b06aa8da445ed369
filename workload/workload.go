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
// Package workload parses a small text DSL describing synthetic per-task
// run/sleep/wake sequences, used to drive the simulate package and to
// encode end-to-end scenarios as fixtures. The grammar is intentionally
// line-oriented: a stateful scanner over directive lines, each split into
// fields and matched by prefix rather than a regexp.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ritzdacat/cakesched/sched"
)

// StepKind distinguishes the three directives a task's step list can hold.
type StepKind int

const (
	// StepRun simulates the task executing for Duration nanoseconds before
	// yielding (a plain Stopping transition in the scheduler's terms).
	StepRun StepKind = iota
	// StepSleep advances the task's idle time by Duration before its next
	// wake. The sleep ends before the wake is stamped, so it is not counted
	// as wake-to-run wait time by running's AQM.
	StepSleep
	// StepWake requests a CPU for the task via select_cpu, optionally with
	// the SYNC flag and a waker CPU hint.
	StepWake
)

// Step is one instruction in a task's scripted behavior.
type Step struct {
	Kind     StepKind
	Duration sched.Duration // meaningful for StepRun/StepSleep
	Sync     bool           // meaningful for StepWake
	WakeCPU  sched.CPUID    // meaningful for StepWake: the waker's CPU
}

// TaskSpec is one simulated task: a name (for readability in traces and
// verify failures), a PID, and the step sequence it executes in order.
type TaskSpec struct {
	Name   string
	PID    sched.PID
	Pin    sched.CPUID
	Pinned bool
	Steps  []Step
}

// Scenario is a fully parsed workload: how many CPUs to simulate, which
// named core profile (GamingProfile, BalancedProfile, BackgroundProfile)
// to configure the scheduler with, and the tasks to run
// concurrently across them.
type Scenario struct {
	Name    string
	Profile string // "gaming", "balanced", or "background"
	NrCPUs  int
	Tasks   []TaskSpec
}

// Grammar (one directive per line, blank lines and '#' comments ignored):
//
//	profile: <gaming|balanced|background>
//	cpus: <n>
//	task <name> [pid=<n>] [cpu=<n>]
//	  run <ns>
//	  sleep <ns>
//	  wake [sync] [cpu=<n>]
const (
	kwProfile = "profile:"
	kwCPUs    = "cpus:"
	kwTask    = "task"
	kwRun     = "run"
	kwSleep   = "sleep"
	kwWake    = "wake"
)

// Parse reads a scenario from r. Parse errors are returned as
// status.Errorf(codes.InvalidArgument, ...), consistent with the
// gRPC-style error codes used elsewhere in this repository.
func Parse(name string, r io.Reader) (*Scenario, error) {
	scn := &Scenario{Name: name, Profile: "gaming", NrCPUs: 1}
	var current *TaskSpec

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indented := line != trimmed
		fields := strings.Fields(trimmed)

		switch {
		case !indented && strings.HasPrefix(trimmed, kwProfile):
			scn.Profile = strings.TrimSpace(strings.TrimPrefix(trimmed, kwProfile))
		case !indented && strings.HasPrefix(trimmed, kwCPUs):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, kwCPUs)))
			if err != nil {
				return nil, parseErrorf(lineNo, "bad cpus directive %q: %v", trimmed, err)
			}
			scn.NrCPUs = n
		case !indented && fields[0] == kwTask:
			task, err := parseTaskHeader(lineNo, fields)
			if err != nil {
				return nil, err
			}
			scn.Tasks = append(scn.Tasks, task)
			current = &scn.Tasks[len(scn.Tasks)-1]
		case indented && current != nil:
			step, err := parseStep(lineNo, fields)
			if err != nil {
				return nil, err
			}
			current.Steps = append(current.Steps, step)
		default:
			return nil, parseErrorf(lineNo, "unexpected line %q outside any task", trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "workload %s: read error: %v", name, err)
	}
	if len(scn.Tasks) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "workload %s: no tasks defined", name)
	}
	return scn, nil
}

func parseTaskHeader(lineNo int, fields []string) (TaskSpec, error) {
	task := TaskSpec{Name: fields[1], PID: syntheticPID()}
	for _, kv := range fields[2:] {
		k, v, err := splitKV(lineNo, kv)
		if err != nil {
			return TaskSpec{}, err
		}
		switch k {
		case "pid":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return TaskSpec{}, parseErrorf(lineNo, "bad pid %q: %v", v, err)
			}
			task.PID = sched.PID(n)
		case "cpu":
			n, err := strconv.Atoi(v)
			if err != nil {
				return TaskSpec{}, parseErrorf(lineNo, "bad cpu %q: %v", v, err)
			}
			task.Pin = sched.CPUID(n)
			task.Pinned = true
		default:
			return TaskSpec{}, parseErrorf(lineNo, "unknown task attribute %q", k)
		}
	}
	return task, nil
}

func parseStep(lineNo int, fields []string) (Step, error) {
	switch fields[0] {
	case kwRun, kwSleep:
		if len(fields) != 2 {
			return Step{}, parseErrorf(lineNo, "%s requires exactly one duration argument", fields[0])
		}
		ns, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Step{}, parseErrorf(lineNo, "bad duration %q: %v", fields[1], err)
		}
		kind := StepRun
		if fields[0] == kwSleep {
			kind = StepSleep
		}
		return Step{Kind: kind, Duration: sched.Duration(ns)}, nil
	case kwWake:
		step := Step{Kind: StepWake}
		for _, arg := range fields[1:] {
			if arg == "sync" {
				step.Sync = true
				continue
			}
			k, v, err := splitKV(lineNo, arg)
			if err != nil {
				return Step{}, err
			}
			if k != "cpu" {
				return Step{}, parseErrorf(lineNo, "unknown wake attribute %q", k)
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return Step{}, parseErrorf(lineNo, "bad cpu %q: %v", v, err)
			}
			step.WakeCPU = sched.CPUID(n)
		}
		return step, nil
	default:
		return Step{}, parseErrorf(lineNo, "unknown step directive %q", fields[0])
	}
}

func splitKV(lineNo int, s string) (string, string, error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return "", "", parseErrorf(lineNo, "expected key=value, got %q", s)
	}
	return parts[0], parts[1], nil
}

func parseErrorf(lineNo int, format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, "workload line %d: %s", lineNo, fmt.Sprintf(format, args...))
}

// syntheticPID mints a PID for a task whose workload line didn't pin one,
// deriving it from a fresh UUID's low bits so that concurrent parses never
// collide.
func syntheticPID() sched.PID {
	id := uuid.New()
	low := uint32(id[12])<<24 | uint32(id[13])<<16 | uint32(id[14])<<8 | uint32(id[15])
	return sched.PID(low &^ 0x80000000)
}
