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

	"github.com/ritzdacat/cakesched/kernelif"
	"github.com/ritzdacat/cakesched/sched"
	"github.com/ritzdacat/cakesched/sched/topology"
)

func TestSelectCPUMissingContextFallsBackToPrevCPU(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	kicker := kernelif.NewFakeKicker()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)

	got := sel.SelectCPU(100, 0, nil, 2, 0, nil)
	if got != 2 {
		t.Errorf("SelectCPU(nil context) = %v, want prevCPU 2", got)
	}
	if len(kicker.Kicks()) != 0 {
		t.Error("no kick should be issued without a task context")
	}
}

func TestSelectCPUAlwaysSetsLastWakeTS(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	kicker := kernelif.NewFakeKicker()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())

	sel.SelectCPU(555, 0, tc, 3, 0, nil)
	if tc.LastWakeTS != 555 {
		t.Errorf("LastWakeTS = %d, want 555", tc.LastWakeTS)
	}
}

func TestSelectCPUSyncWakeTargetsThisCPU(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	kicker := kernelif.NewFakeKicker()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())

	got := sel.SelectCPU(1, 2, tc, 3, WakeSync, nil)
	if got != 2 {
		t.Errorf("SYNC wake CPU = %v, want thisCPU 2", got)
	}
	if tc.TargetDSQID != MailboxDSQID(2) {
		t.Errorf("TargetDSQID = %v, want mailbox(2)", tc.TargetDSQID)
	}
}

func TestSelectCPUPrefersIdlePrevCPU(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	idle.Set(3)
	kicker := kernelif.NewFakeKicker()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())

	got := sel.SelectCPU(1, 0, tc, 3, 0, nil)
	if got != 3 {
		t.Errorf("SelectCPU = %v, want idle prevCPU 3", got)
	}
}

func TestSelectCPUCriticalLatencyFastLaneUsesVictim(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	victim.Set(1)
	kicker := kernelif.NewFakeKicker()
	stats := NewStats()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())
	tc.Packed = tc.Packed.WithTier(sched.TierCriticalLatency)

	got := sel.SelectCPU(1, 0, tc, 2, 0, stats)
	if got != 1 {
		t.Errorf("SelectCPU = %v, want victim 1", got)
	}
	if stats.PreemptInjections != 1 {
		t.Errorf("PreemptInjections = %d, want 1", stats.PreemptInjections)
	}
}

func TestSelectCPUNoIdleNoVictimReturnsPrevCPU(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	kicker := kernelif.NewFakeKicker()
	sel := NewCPUSelector(idle, victim, topology.Uniform(4), kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())

	got := sel.SelectCPU(1, 0, tc, 2, 0, nil)
	if got != 2 {
		t.Errorf("SelectCPU = %v, want prevCPU 2", got)
	}
}

func TestSelectCPUTopologyAwareForLatencyTiers(t *testing.T) {
	idle, victim := &BitMask64{}, &BitMask64{}
	idle.Set(1) // sibling of cpu 0
	kicker := kernelif.NewFakeKicker()
	topo := topology.New(4, topology.WithSMT([]sched.CPUID{1, 0, 3, 2}))
	sel := NewCPUSelector(idle, victim, topo, kicker, 4)
	tc := NewTaskContext(1, 0, GamingProfile())
	tc.Packed = tc.Packed.WithTier(sched.TierRealtime)

	got := sel.SelectCPU(1, 0, tc, 0, 0, nil)
	if got != 1 {
		t.Errorf("SelectCPU = %v, want sibling CPU 1", got)
	}
}
