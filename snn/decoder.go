// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import "github.com/emer/etable/etensor"

// Decoders reduce a spike sequence [T, batch, ...] back to analog
// values [batch, ...], so a spiking model can feed a conventional loss
// function or downstream analog layers.  Both are linear in the
// spikes, so their backward passes broadcast the output gradient back
// over the time axis.

//////////////////////////////////////////////////////////////////////////////
//  AvgSpike

// AvgSpike decodes a spike sequence into the mean firing rate of each
// unit over the sequence.
type AvgSpike struct {
	ModuleBase
	tape []int
}

// NewAvgSpike returns a firing-rate decoder.
func NewAvgSpike() *AvgSpike {
	return &AvgSpike{}
}

func (av *AvgSpike) Detach() {
	av.tape = nil
}

func (av *AvgSpike) Forward(x *etensor.Float32) *etensor.Float32 {
	steps := x.Dim(0)
	y := timeSlice(x, 0)
	n := y.Len()
	for t := 1; t < steps; t++ {
		for i := range y.Values {
			y.Values[i] += x.Values[t*n+i]
		}
	}
	norm := 1 / float32(steps)
	for i := range y.Values {
		y.Values[i] *= norm
	}
	av.tape = append(av.tape, steps)
	return y
}

func (av *AvgSpike) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(av.tape)
	if n == 0 {
		return nil
	}
	steps := av.tape[n-1]
	av.tape = av.tape[:n-1]
	shp := append([]int{steps}, shapeOf(dy)...)
	dx := etensor.NewFloat32(shp, nil, nil)
	norm := 1 / float32(steps)
	ln := dy.Len()
	for t := 0; t < steps; t++ {
		for i, dv := range dy.Values {
			dx.Values[t*ln+i] = dv * norm
		}
	}
	return dx
}

//////////////////////////////////////////////////////////////////////////////
//  SumSpike

// SumSpike decodes a spike sequence into the total spike count of each
// unit over the sequence.
type SumSpike struct {
	ModuleBase
	tape []int
}

// NewSumSpike returns a spike-count decoder.
func NewSumSpike() *SumSpike {
	return &SumSpike{}
}

func (sv *SumSpike) Detach() {
	sv.tape = nil
}

func (sv *SumSpike) Forward(x *etensor.Float32) *etensor.Float32 {
	steps := x.Dim(0)
	y := timeSlice(x, 0)
	n := y.Len()
	for t := 1; t < steps; t++ {
		for i := range y.Values {
			y.Values[i] += x.Values[t*n+i]
		}
	}
	sv.tape = append(sv.tape, steps)
	return y
}

func (sv *SumSpike) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(sv.tape)
	if n == 0 {
		return nil
	}
	steps := sv.tape[n-1]
	sv.tape = sv.tape[:n-1]
	shp := append([]int{steps}, shapeOf(dy)...)
	dx := etensor.NewFloat32(shp, nil, nil)
	ln := dy.Len()
	for t := 0; t < steps; t++ {
		copy(dx.Values[t*ln:(t+1)*ln], dy.Values)
	}
	return dx
}
