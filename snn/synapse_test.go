// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"testing"

	"github.com/emer/etable/etensor"
)

func TestLinear(t *testing.T) {
	ln, err := NewLinear(2, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	ln.Weight.Value.Values = []float32{0.5, -0.25}
	ln.Bias.Value.Values = []float32{0.1}
	x := inTensor(1, 1)
	y := ln.Forward(x)
	CmprFloats(y.Values, []float32{0.35}, "linear forward", t)
	dx := ln.Backward(inTensor(1))
	CmprFloats(dx.Values, []float32{0.5, -0.25}, "linear dx", t)
	CmprFloats(ln.Weight.Grad.Values, []float32{1, 1}, "linear dW", t)
	CmprFloats(ln.Bias.Grad.Values, []float32{1}, "linear dB", t)
	if ln.Backward(inTensor(1)) != nil {
		t.Errorf("backward past the recorded steps should return nil\n")
	}
}

func TestLinearNoBias(t *testing.T) {
	ln, _ := NewLinear(3, 2, false)
	if ln.Bias != nil {
		t.Fatalf("bias should be nil")
	}
	if np := len(ln.Params()); np != 1 {
		t.Errorf("expected 1 param, got %v\n", np)
	}
}

func TestLinearConfigErrors(t *testing.T) {
	if _, err := NewLinear(0, 1, false); err == nil {
		t.Errorf("expected error for zero input size\n")
	}
}

func conv33Input() *etensor.Float32 {
	x := etensor.NewFloat32([]int{1, 1, 3, 3}, nil, nil)
	for i := range x.Values {
		x.Values[i] = float32(i + 1)
	}
	return x
}

func TestConv2d(t *testing.T) {
	cv, err := NewConv2d(1, 1, 2, 1, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	for i := range cv.Weight.Value.Values {
		cv.Weight.Value.Values[i] = 1
	}
	y := cv.Forward(conv33Input())
	CmprFloats(y.Values, []float32{12, 16, 24, 28}, "conv forward", t)
	dy := etensor.NewFloat32([]int{1, 1, 2, 2}, nil, nil)
	for i := range dy.Values {
		dy.Values[i] = 1
	}
	dx := cv.Backward(dy)
	CmprFloats(dx.Values, []float32{1, 2, 1, 2, 4, 2, 1, 2, 1}, "conv dx", t)
	CmprFloats(cv.Weight.Grad.Values, []float32{12, 16, 24, 28}, "conv dW", t)
}

func TestConv2dPadding(t *testing.T) {
	cv, _ := NewConv2d(1, 1, 2, 1, 1, false)
	for i := range cv.Weight.Value.Values {
		cv.Weight.Value.Values[i] = 1
	}
	x := etensor.NewFloat32([]int{1, 1, 2, 2}, nil, nil)
	x.Values = []float32{1, 2, 3, 4}
	y := cv.Forward(x)
	if y.Dim(2) != 3 || y.Dim(3) != 3 {
		t.Fatalf("padded output shape wrong: %v x %v", y.Dim(2), y.Dim(3))
	}
	CmprFloats(y.Values, []float32{1, 3, 2, 4, 10, 6, 3, 7, 4}, "padded conv forward", t)
}

func TestConv2dConfigErrors(t *testing.T) {
	if _, err := NewConv2d(1, 1, 0, 1, 0, false); err == nil {
		t.Errorf("expected error for zero kernel\n")
	}
	if _, err := NewConv2d(1, 1, 2, 0, 0, false); err == nil {
		t.Errorf("expected error for zero stride\n")
	}
}
