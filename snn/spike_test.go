// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"testing"

	"github.com/emer/snn/surrogate"
)

func TestSpike(t *testing.T) {
	v := inTensor(-0.5, -0.0001, 0, 0.0001, 2)
	o := Spike(v)
	CmprFloats(o.Values, []float32{0, 0, 1, 1, 1}, "spike threshold", t)
}

func TestSpikeGrad(t *testing.T) {
	v := inTensor(-1, -0.25, 0, 0.25, 1)
	do := inTensor(2, 2, 2, 2, 2)
	dv := SpikeGrad(surrogate.NewRectangular(), v, do)
	CmprFloats(dv.Values, []float32{0, 2, 2, 2, 0}, "spike surrogate grad", t)
}

func TestToSpike(t *testing.T) {
	x := inTensor(0, 0.25, 0.5, 0.75, 1)
	o := ToSpike(x)
	CmprFloats(o.Values, []float32{0, 0, 1, 1, 1}, "to spike", t)
}
