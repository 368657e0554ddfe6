// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"testing"

	"github.com/emer/etable/etensor"
)

func spikeMap(vals ...float32) *etensor.Float32 {
	x := etensor.NewFloat32([]int{1, 1, 2, 2}, nil, nil)
	copy(x.Values, vals)
	return x
}

func TestFlatten(t *testing.T) {
	fl := NewFlatten()
	x := etensor.NewFloat32([]int{2, 2, 2}, nil, nil)
	x.Values = []float32{0, 1, 0.4, 0.6, 1, 1, 0, 0}
	y := fl.Forward(x)
	if y.NumDims() != 2 || y.Dim(0) != 2 || y.Dim(1) != 4 {
		t.Fatalf("flatten shape wrong")
	}
	// values re-binarized at 0.5
	CmprFloats(y.Values, []float32{0, 1, 0, 1, 1, 1, 0, 0}, "flatten forward", t)
	dy := etensor.NewFloat32([]int{2, 4}, nil, nil)
	for i := range dy.Values {
		dy.Values[i] = float32(i)
	}
	dx := fl.Backward(dy)
	if dx.NumDims() != 3 {
		t.Fatalf("flatten backward shape wrong")
	}
	CmprFloats(dx.Values, dy.Values, "flatten grad is identity", t)
}

func TestMaxPool2d(t *testing.T) {
	mp, err := NewMaxPool2d(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if mp.Stride != 2 {
		t.Fatalf("stride should default to kernel size")
	}
	y := mp.Forward(spikeMap(0, 0, 1, 0))
	CmprFloats(y.Values, []float32{1}, "max pool forward", t)
	dx := mp.Backward(inTensorShaped([]int{1, 1, 1, 1}, 1))
	// gradient routed to the firing unit
	CmprFloats(dx.Values, []float32{0, 0, 1, 0}, "max pool grad routing", t)
}

func TestAvgPool2d(t *testing.T) {
	ap, err := NewAvgPool2d(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	// 2 of 4 spiking: average 0.5 re-binarizes to 1
	y := ap.Forward(spikeMap(1, 0, 1, 0))
	CmprFloats(y.Values, []float32{1}, "avg pool majority", t)
	// 1 of 4 spiking: average 0.25 re-binarizes to 0
	y = ap.Forward(spikeMap(1, 0, 0, 0))
	CmprFloats(y.Values, []float32{0}, "avg pool minority", t)
	dx := ap.Backward(inTensorShaped([]int{1, 1, 1, 1}, 1))
	CmprFloats(dx.Values, []float32{0.25, 0.25, 0.25, 0.25}, "avg pool grad spread", t)
}

// inTensorShaped returns a tensor of the given shape filled with v.
func inTensorShaped(shp []int, v float32) *etensor.Float32 {
	x := etensor.NewFloat32(shp, nil, nil)
	for i := range x.Values {
		x.Values[i] = v
	}
	return x
}
