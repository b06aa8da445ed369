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
// Package simulate is the discrete-event harness that drives sched/core's
// event handlers from a workload.Scenario, since the real sched_ext
// callbacks this package models cannot run inside a hosted Go process.
// One goroutine is fanned out per simulated CPU via errgroup; each CPU
// goroutine replays its assigned tasks' scripted steps against
// sched/core.Scheduler and appends to a shared, mutex-protected Trace.
package simulate

import (
	"sync"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
	"github.com/ritzdacat/cakesched/sched/core"
	"github.com/ritzdacat/cakesched/sched/topology"
	"github.com/ritzdacat/cakesched/workload"
)

// DispatchEvent is one "a task ran on a CPU" observation, the unit the
// verify package's invariant checkers operate over.
type DispatchEvent struct {
	CPU       sched.CPUID
	PID       sched.PID
	TaskName  string
	Tier      sched.Tier
	Score     sched.Score
	StartedAt sched.Timestamp
	RunLength sched.Duration
}

// KickEvent mirrors one kernelif.Kick observation. At is the shared
// FakeClock's reading when Run copies the kick log after every CPU has
// finished; runCPU keeps its own per-CPU time and never advances that
// clock, so At does not record when the kick was issued.
type KickEvent struct {
	kernelif.Kick
	At sched.Timestamp
}

// Trace is the complete record of one simulation run: every dispatch in
// the order it was observed (grouped by CPU, chronological within a CPU),
// every kick, and the scheduler's final aggregate statistics.
type Trace struct {
	Scenario string
	NrCPUs   int
	Events   []DispatchEvent
	Kicks    []KickEvent
	Stats    core.Stats
	Exit     *core.ExitInfo
}

func resolveProfile(name string) core.Config {
	switch name {
	case "balanced":
		return core.BalancedProfile()
	case "background":
		return core.BackgroundProfile()
	default:
		return core.GamingProfile()
	}
}

// Run builds a fresh Scheduler over fake kernelif primitives, assigns
// scn's tasks to CPUs (honoring Pin, round-robining the rest), and plays
// every task's step list to completion, recording a Trace.
func Run(scn *workload.Scenario) (*Trace, error) {
	nrCPUs := scn.NrCPUs
	if nrCPUs < 1 {
		nrCPUs = 1
	}
	cfg := resolveProfile(scn.Profile)
	kicker := kernelif.NewFakeKicker()
	clock := kernelif.NewFakeClock()
	kernel := kernelif.Kernel[*core.TaskContext]{
		Clock:   clock,
		Kicker:  kicker,
		DSQ:     kernelif.NewFakeDSQOps(),
		RCU:     kernelif.NewFakeRCU(),
		System:  kernelif.NewFakeSystem(nrCPUs),
		Storage: kernelif.NewFakeTaskStorage[*core.TaskContext](),
	}
	scheduler := core.NewScheduler(cfg, topology.Uniform(nrCPUs), kernel)
	if err := scheduler.Init(nil); err != nil {
		return nil, err
	}

	perCPU := make([][]workload.TaskSpec, nrCPUs)
	for i, task := range scn.Tasks {
		cpu := task.Pin.Clamp(nrCPUs)
		if !task.Pinned {
			cpu = sched.CPUID(i).Clamp(nrCPUs)
		}
		perCPU[cpu] = append(perCPU[cpu], task)
	}

	var mu sync.Mutex
	trace := &Trace{Scenario: scn.Name, NrCPUs: nrCPUs}

	eg := errgroup.Group{}
	for cpu := 0; cpu < nrCPUs; cpu++ {
		cpuID, tasks := sched.CPUID(cpu), perCPU[cpu]
		eg.Go(func() error {
			events := runCPU(scheduler, cpuID, tasks)
			mu.Lock()
			trace.Events = append(trace.Events, events...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, k := range kicker.Kicks() {
		trace.Kicks = append(trace.Kicks, KickEvent{Kick: k, At: clock.Now()})
	}
	trace.Stats = scheduler.AggregateStats()
	trace.Exit = scheduler.ExitInfo()
	log.Infof("simulate: %s: %d CPUs, %d dispatch events", scn.Name, nrCPUs, len(trace.Events))
	return trace, nil
}

// runCPU replays tasks' step lists against s sequentially on one simulated
// CPU, in submission order across tasks: a single simulated core is
// fundamentally sequential, even though many such cores run concurrently
// via the errgroup fan-out in Run.
func runCPU(s *core.Scheduler, cpu sched.CPUID, tasks []workload.TaskSpec) []DispatchEvent {
	var events []DispatchEvent
	var now sched.Timestamp
	runningPID := sched.UnknownPID
	var runningSince sched.Timestamp

	for _, task := range tasks {
		for _, step := range task.Steps {
			switch step.Kind {
			case workload.StepSleep:
				now += sched.Timestamp(step.Duration)

			case workload.StepWake:
				var flags core.WakeFlags
				if step.Sync {
					flags = core.WakeSync
				}
				s.SelectCPU(now, cpu, task.PID, cpu, flags)
				outgoingRuntime := sched.Duration(0)
				if runningPID.Valid() {
					outgoingRuntime = now.Sub(runningSince)
				}
				s.Enqueue(task.PID, kernelif.EnqueueWakeup)
				pid, ok := s.Dispatch(cpu, runningPID, outgoingRuntime)
				if ok {
					runningPID = pid
					runningSince = now
					s.Running(cpu, pid, now)
				}

			case workload.StepRun:
				now += sched.Timestamp(step.Duration)
				if runningPID.Valid() {
					s.Tick(cpu, runningPID, now)
					s.Stopping(cpu, runningPID, now)
					tier, _ := s.TierOf(runningPID)
					score, _ := s.ScoreOf(runningPID)
					events = append(events, DispatchEvent{
						CPU:       cpu,
						PID:       runningPID,
						TaskName:  task.Name,
						Tier:      tier,
						Score:     score,
						StartedAt: runningSince,
						RunLength: step.Duration,
					})
					runningPID = sched.UnknownPID
				}
			}
		}
	}
	return events
}
