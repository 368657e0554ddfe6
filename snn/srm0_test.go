// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"testing"

	"github.com/emer/snn/surrogate"
)

// setWeights overwrites all weights with the given value, for
// reproducible traces.
func setWeights(sl *SRM0, v float32) {
	for i := range sl.Weight.Value.Values {
		sl.Weight.Value.Values[i] = v
	}
}

func TestSRM0Warmup(t *testing.T) {
	sl, err := NewSRM0(2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	setWeights(sl, 100)
	// refractory gate starts at zero, so the first step after a reset
	// cannot fire no matter how strong the input
	o := sl.Forward(inTensor(1, 1))
	CmprFloats(o.Values, []float32{0, 0}, "SRM0 warmup step", t)
}

func TestSRM0Trace(t *testing.T) {
	// two-layer chain, all-ones weights, all-ones input every step:
	// each layer fires on alternating steps once its trace has warmed up
	l1, err := NewSRM0(2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := NewSRM0(2, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	setWeights(l1, 1)
	setWeights(l2, 1)
	cor1 := [][]float32{{0, 0}, {1, 1}, {0, 0}, {1, 1}}
	cor2 := []float32{0, 1, 0, 1}
	x := inTensor(1, 1)
	for i := 0; i < 4; i++ {
		o1 := l1.Forward(x)
		CmprFloats(o1.Values, cor1[i], "SRM0 layer 1", t)
		o2 := l2.Forward(o1)
		CmprFloats(o2.Values, []float32{cor2[i]}, "SRM0 layer 2", t)
	}
}

func TestSRM0Refractory(t *testing.T) {
	sl, _ := NewSRM0(1, 1, 2)
	setWeights(sl, 2)
	x := inTensor(1)
	sl.Forward(x) // warmup: no fire, gate opens
	o := sl.Forward(x)
	if o.Values[0] != 1 {
		t.Fatalf("SRM0 should fire once warmed up")
	}
	// the step right after a spike is suppressed even with input
	o = sl.Forward(x)
	if o.Values[0] != 0 {
		t.Errorf("SRM0 refractory step should not fire\n")
	}
}

func TestSRM0ResetIdempotent(t *testing.T) {
	sl, _ := NewSRM0(1, 1, 2)
	setWeights(sl, 2)
	x := inTensor(1)
	first := sl.Forward(x).Values[0]
	sl.Forward(x)
	sl.Reset()
	sl.Reset()
	if sl.S != nil || sl.R != nil {
		t.Errorf("reset did not clear state\n")
	}
	if o := sl.Forward(x).Values[0]; o != first {
		t.Errorf("post-reset step differs from fresh step\n")
	}
}

func TestSRM0Backward(t *testing.T) {
	sl, err := NewSRM0(1, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	setWeights(sl, 2)
	sl.Sg = &surrogate.Rectangular{A: 10}
	x := inTensor(1)
	sl.Forward(x) // s=1, x=2, r0=0: no fire
	sl.Forward(x) // s=1.5, x=3, r0=1: fires
	do2 := sl.Backward(inTensor(1))
	do1 := sl.Backward(inTensor(0))
	CmprFloats(do2.Values, []float32{0.2}, "SRM0 backward step 2 input grad", t)
	CmprFloats(do1.Values, []float32{0.1}, "SRM0 backward step 1 input grad", t)
	CmprFloats(sl.Weight.Grad.Values, []float32{0.15}, "SRM0 weight grad", t)
	if sl.Backward(inTensor(0)) != nil {
		t.Errorf("backward past the recorded steps should return nil\n")
	}
}

func TestSRM0ConfigErrors(t *testing.T) {
	if _, err := NewSRM0(0, 2, 2); err == nil {
		t.Errorf("expected error for zero input size\n")
	}
	if _, err := NewSRM0(2, 2, 0); err == nil {
		t.Errorf("expected error for zero time constant\n")
	}
}
