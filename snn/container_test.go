// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"strings"
	"testing"

	"github.com/emer/etable/etensor"
)

// constSeq returns a [steps, 1, 1] sequence with every step at v.
func constSeq(steps int, v float32) *etensor.Float32 {
	return inTensorShaped([]int{steps, 1, 1}, v)
}

func TestTemporalSequential(t *testing.T) {
	// unrolling over time must match stepping the same model manually
	sm1, _ := NewLIF(2)
	sm2, _ := NewLIF(2)
	tp := NewTemporal(sm1)
	y := tp.Forward(constSeq(4, 1.5))
	for ti := 0; ti < 4; ti++ {
		o := sm2.Forward(inTensor(1.5))
		if y.Values[ti] != o.Values[0] {
			t.Errorf("temporal step %v: got: %v, trg: %v\n", ti, y.Values[ti], o.Values[0])
		}
	}
	CmprFloats(y.Values, []float32{0, 1, 0, 1}, "temporal LIF sequence", t)
}

func TestTemporalResetAfterProcess(t *testing.T) {
	sm, _ := NewLIF(2)
	tp := NewTemporal(sm)
	tp.Forward(constSeq(4, 1.5))
	if sm.U != nil {
		t.Errorf("temporal should reset inner state after the sequence\n")
	}
	// the automatic reset must not break backward over the sequence
	dy := constSeq(4, 1)
	dx := tp.Backward(dy)
	if dx == nil {
		t.Fatalf("backward after automatic reset returned nil")
	}
	if dx.Dim(0) != 4 {
		t.Errorf("backward sequence length wrong: %v\n", dx.Dim(0))
	}
}

func TestTemporalManualReset(t *testing.T) {
	sm, _ := NewLIF(2)
	tp := NewTemporal(sm)
	tp.ResetAfterProcess = false
	tp.Forward(constSeq(2, 1.5))
	if sm.U == nil {
		t.Errorf("inner state should persist without automatic reset\n")
	}
	tp.Reset()
	if sm.U != nil {
		t.Errorf("manual reset should propagate to the inner module\n")
	}
}

func TestTemporalDetach(t *testing.T) {
	sm, _ := NewLIF(2)
	tp := NewTemporal(sm)
	tp.Forward(constSeq(3, 1.5))
	tp.Detach()
	if tp.Backward(constSeq(3, 1)) != nil {
		t.Errorf("backward after detach should return nil\n")
	}
}

func TestSpatialChain(t *testing.T) {
	ln, _ := NewLinear(1, 1, false)
	ln.Weight.Value.Values = []float32{2}
	sm, _ := NewLIF(2)
	sp := NewSpatial(ln, sm)
	// x=0.6 -> drive 1.2 -> u=0.6: no spike; then u=1.2: spike
	o := sp.Forward(inTensor(0.6))
	CmprFloats(o.Values, []float32{0}, "spatial step 1", t)
	o = sp.Forward(inTensor(0.6))
	CmprFloats(o.Values, []float32{1}, "spatial step 2", t)
	if np := len(sp.Params()); np != 1 {
		t.Errorf("expected 1 param from chain, got %v\n", np)
	}
	sp.Reset()
	if sm.U != nil {
		t.Errorf("spatial reset should propagate\n")
	}
}

func TestSpatialBackward(t *testing.T) {
	ln, _ := NewLinear(1, 1, false)
	ln.Weight.Value.Values = []float32{2}
	sm, _ := NewLIF(2)
	sm.UThreshold = 10 // keep it sub-threshold
	sp := NewSpatial(ln, sm)
	sp.Forward(inTensor(0.5))
	dx := sp.Backward(inTensor(1))
	if dx == nil {
		t.Fatalf("spatial backward returned nil")
	}
	// u - thr is far outside the surrogate window, so the soma grad is 0
	// and nothing propagates through the weight
	CmprFloats(dx.Values, []float32{0}, "spatial backward", t)
}

func TestNetwork(t *testing.T) {
	sm, _ := NewLIF(2)
	nt := NewNetwork(nil, NewTemporal(sm), NewAvgSpike())
	y := nt.Forward(constSeq(4, 1.5))
	// spikes at steps 2 and 4: rate 0.5
	CmprFloats(y.Values, []float32{0.5}, "network forward", t)
	dy := nt.Backward(inTensor(1))
	if dy == nil {
		t.Fatalf("network backward returned nil")
	}
	if dy.Dim(0) != 4 {
		t.Errorf("network backward sequence length wrong: %v\n", dy.Dim(0))
	}
	nt.Reset()
	if sm.U != nil {
		t.Errorf("network reset should propagate\n")
	}
}

func TestNetworkSizeReport(t *testing.T) {
	l1, _ := NewSRM0(4, 3, 2)
	l2, _ := NewSRM0(3, 2, 2)
	nt := NewNetwork(nil, NewTemporal(NewSpatial(l1, l2)), NewSumSpike())
	rep := nt.SizeReport()
	if !strings.Contains(rep, "Total") || !strings.Contains(rep, "18") {
		t.Errorf("size report missing totals:\n%v", rep)
	}
}

// stepCounter counts learning step hook invocations.
type stepCounter struct {
	ModuleBase
	n int
}

func (sc *stepCounter) Forward(x *etensor.Float32) *etensor.Float32   { return x }
func (sc *stepCounter) Backward(dy *etensor.Float32) *etensor.Float32 { return dy }
func (sc *stepCounter) StepOnce()                                     { sc.n++ }

func TestTemporalStepHook(t *testing.T) {
	sc := &stepCounter{}
	tp := NewTemporal(sc)
	tp.Forward(constSeq(3, 0))
	if sc.n != 0 {
		t.Errorf("step hook should be off by default\n")
	}
	tp.StartStep()
	tp.Forward(constSeq(3, 0))
	if sc.n != 1 {
		t.Errorf("step hook should run once per sequence, ran %v\n", sc.n)
	}
	tp.StopStep()
	tp.Forward(constSeq(3, 0))
	if sc.n != 1 {
		t.Errorf("step hook should stop after StopStep\n")
	}
}
