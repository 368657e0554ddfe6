// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"math/rand"

	"github.com/emer/emergent/erand"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"github.com/goki/mat32"
)

// Encoders turn analog data into the spike sequences the spiking
// modules consume, producing the time-leading layout [T, batch, ...]
// that Temporal unrolls.  The stochastic encoders have no gradient
// path from spikes back to the analog input, so their Backward returns
// nil and gradient-based training starts at the first module after the
// encoder.

//////////////////////////////////////////////////////////////////////////////
//  Direct

// Direct passes through data that is already a spike sequence, moving
// the time axis from second to first: [batch, T, ...] in,
// [T, batch, ...] out.  This is the encoder for event-camera style
// datasets that record spikes natively.
type Direct struct {
	ModuleBase
	tape []int
}

// NewDirect returns a Direct encoder.
func NewDirect() *Direct {
	return &Direct{}
}

func (dr *Direct) Detach() {
	dr.tape = nil
}

// swap01 returns x with its first two axes exchanged.
func swap01(x *etensor.Float32) *etensor.Float32 {
	shp := shapeOf(x)
	d0, d1 := shp[0], shp[1]
	rest := 1
	for _, d := range shp[2:] {
		rest *= d
	}
	oshp := append([]int{d1, d0}, shp[2:]...)
	y := etensor.NewFloat32(oshp, nil, nil)
	for i := 0; i < d0; i++ {
		for j := 0; j < d1; j++ {
			copy(y.Values[(j*d0+i)*rest:(j*d0+i+1)*rest], x.Values[(i*d1+j)*rest:(i*d1+j+1)*rest])
		}
	}
	return y
}

func (dr *Direct) Forward(x *etensor.Float32) *etensor.Float32 {
	if x.NumDims() < 2 {
		panic("snn.Direct: input has no time axis")
	}
	dr.tape = append(dr.tape, x.NumDims())
	return swap01(x)
}

// Backward transposes the gradient back to [batch, T, ...]: Direct is
// deterministic, so unlike the stochastic encoders it is
// gradient-transparent.
func (dr *Direct) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(dr.tape)
	if n == 0 {
		return nil
	}
	dr.tape = dr.tape[:n-1]
	return swap01(dy)
}

//////////////////////////////////////////////////////////////////////////////
//  Poisson

// Poisson is a rate encoder: each analog value, normalized into [0, 1]
// by Range, becomes the per-step firing probability of an independent
// Bernoulli spike train of TimeSteps steps.  [batch, ...] in,
// [TimeSteps, batch, ...] out.
type Poisson struct {
	ModuleBase
	TimeSteps int        `def:"64" desc:"number of timesteps to generate"`
	Range     minmax.F32 `desc:"analog input range mapped onto firing probability 0..1 -- values outside are clamped"`
}

// NewPoisson returns a Poisson rate encoder generating steps timesteps,
// mapping analog values from [min, max] onto firing probabilities.
// Returns an error if the range is empty or inverted.
func NewPoisson(steps int, min, max float32) (*Poisson, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("snn.NewPoisson: time steps must be positive, got %d", steps)
	}
	if max <= min {
		return nil, fmt.Errorf("snn.NewPoisson: max value %g is not above min value %g", max, min)
	}
	pe := &Poisson{TimeSteps: steps}
	pe.Range.Set(min, max)
	return pe, nil
}

func (pe *Poisson) Forward(x *etensor.Float32) *etensor.Float32 {
	shp := append([]int{pe.TimeSteps}, shapeOf(x)...)
	y := etensor.NewFloat32(shp, nil, nil)
	n := x.Len()
	for i, xv := range x.Values {
		p := mat32.Clamp(pe.Range.NormVal(xv), 0, 1)
		for t := 0; t < pe.TimeSteps; t++ {
			if rand.Float32() < p {
				y.Values[t*n+i] = 1
			}
		}
	}
	return y
}

// Backward returns nil: the Bernoulli draws sever the gradient path.
func (pe *Poisson) Backward(dy *etensor.Float32) *etensor.Float32 {
	return nil
}

//////////////////////////////////////////////////////////////////////////////
//  Latency

// Latency is a time-to-first-spike encoder: each analog value,
// normalized by Range, sets an onset time within the sequence, before
// which the unit is silent and after which it fires each step with
// probability Prob.  Larger values fire later.  Optional onset jitter
// is drawn from Noise.  [batch, ...] in, [TimeSteps, batch, ...] out.
type Latency struct {
	ModuleBase
	TimeSteps int             `def:"64" desc:"number of timesteps to generate"`
	Range     minmax.F32      `desc:"analog input range mapped onto onset time 0..TimeSteps"`
	Prob      float32         `def:"0.75" desc:"per-step firing probability after onset"`
	Noise     erand.RndParams `view:"inline" desc:"distribution of random jitter added to the onset time -- Mean distribution means no jitter"`
}

// NewLatency returns a Latency encoder generating steps timesteps,
// mapping analog values from [min, max] onto spike onset times.
// Returns an error if the range is empty or inverted.
func NewLatency(steps int, min, max float32) (*Latency, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("snn.NewLatency: time steps must be positive, got %d", steps)
	}
	if max <= min {
		return nil, fmt.Errorf("snn.NewLatency: max value %g is not above min value %g", max, min)
	}
	le := &Latency{TimeSteps: steps}
	le.Defaults()
	le.Range.Set(min, max)
	return le, nil
}

func (le *Latency) Defaults() {
	le.Prob = 0.75
	le.Noise.Dist = erand.Mean
}

func (le *Latency) Forward(x *etensor.Float32) *etensor.Float32 {
	shp := append([]int{le.TimeSteps}, shapeOf(x)...)
	y := etensor.NewFloat32(shp, nil, nil)
	n := x.Len()
	for i, xv := range x.Values {
		onset := le.Range.NormVal(xv) * float32(le.TimeSteps)
		if le.Noise.Dist != erand.Mean {
			onset += float32(le.Noise.Gen(-1))
		}
		for t := 0; t < le.TimeSteps; t++ {
			if float32(t) >= onset && rand.Float32() < le.Prob {
				y.Values[t*n+i] = 1
			}
		}
	}
	return y
}

// Backward returns nil: the Bernoulli draws sever the gradient path.
func (le *Latency) Backward(dy *etensor.Float32) *etensor.Float32 {
	return nil
}
