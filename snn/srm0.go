// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/emer/snn/surrogate"
)

// srm0Frame records one SRM0 Forward step for Backward: the updated
// input trace, the refractory gate and synaptic drive entering the
// soma, and the pre-threshold potential.
type srm0Frame struct {
	s *etensor.Float32
	r *etensor.Float32
	x *etensor.Float32
	u *etensor.Float32
}

// SRM0 is a fused fully-connected layer of simplified spike response
// model neurons: synapse and soma in one module, because the synaptic
// drive is computed from a per-input spike trace rather than from the
// instantaneous spikes.  Each Forward step does:
//
//	S = S / TauM + O_in          decaying input spike trace
//	X = S * Weight^T             synaptic drive
//	U = URest + X * R            response, gated by the refractory state
//	O = Heaviside(U - UThreshold)
//	R = 1 - O                    absolute one-step refractory gate
//
// A neuron that fires has R = 0 on the next step, so its drive is
// suppressed for exactly one step.  After Reset both S and R start at
// zero, so the first step after a reset cannot fire regardless of
// input: the trace warms up for one step.
//
// Input is a spike tensor of shape [batch, In]; output is a spike
// tensor of shape [batch, Out].
type SRM0 struct {
	ModuleBase
	In         int            `desc:"number of input neurons"`
	Out        int            `desc:"number of output neurons"`
	TauM       float32        `def:"2" desc:"time constant of the input spike trace decay"`
	UThreshold float32        `def:"1" desc:"firing threshold potential"`
	URest      float32        `def:"0" desc:"resting potential"`
	Sg         surrogate.Grad `view:"inline" desc:"surrogate gradient substituted for the firing threshold derivative in Backward"`
	Weight     *Param         `desc:"connection weights, shape [Out, In]"`

	Dt float32 `view:"-" json:"-" xml:"-" desc:"rate = 1 / TauM"`

	S *etensor.Float32 `view:"-" desc:"input spike trace, shape [batch, In] -- nil until the first Forward after Reset"`
	R *etensor.Float32 `view:"-" desc:"refractory gate, shape [batch, Out] -- nil until the first Forward after Reset"`

	tape []srm0Frame
	gs   *etensor.Float32
	gr   *etensor.Float32
}

// NewSRM0 returns a fused SRM0 layer connecting in input neurons to
// out output neurons, with weights initialized uniformly in
// [-1/sqrt(in), 1/sqrt(in)].  Returns an error if either size is not
// positive or tauM is zero.
func NewSRM0(in, out int, tauM float32) (*SRM0, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("snn.NewSRM0: layer sizes must be positive, got %d -> %d", in, out)
	}
	if tauM == 0 {
		return nil, fmt.Errorf("snn.NewSRM0: membrane time constant tau_m cannot be zero")
	}
	sl := &SRM0{In: in, Out: out}
	sl.Defaults()
	sl.TauM = tauM
	sl.Update()
	sl.Weight = NewParam("Weight", []int{out, in})
	uniformInit(sl.Weight.Value, in)
	return sl, nil
}

func (sl *SRM0) Defaults() {
	sl.TauM = 2
	sl.UThreshold = 1
	sl.URest = 0
	if sl.Sg == nil {
		sl.Sg = surrogate.NewRectangular()
	}
	sl.Update()
}

func (sl *SRM0) Update() {
	sl.Dt = 1 / sl.TauM
}

func (sl *SRM0) Params() []*Param {
	return []*Param{sl.Weight}
}

// Reset zeroes the input trace and refractory gate.  The batch shape
// is dropped and re-derived from the next input.  Recorded backward
// steps are kept.
func (sl *SRM0) Reset() {
	sl.S = nil
	sl.R = nil
}

// Detach discards the recorded backward steps and the trace and
// refractory gradients carried across timesteps.  State values are
// untouched.
func (sl *SRM0) Detach() {
	sl.tape = nil
	sl.gs = nil
	sl.gr = nil
}

// Forward advances the layer by one timestep from input spikes o,
// shape [batch, In], returning the output spikes, shape [batch, Out].
func (sl *SRM0) Forward(o *etensor.Float32) *etensor.Float32 {
	batch := o.Dim(0)
	if sl.S == nil {
		sl.S = tensorLike(o)
	}
	if sl.R == nil {
		sl.R = etensor.NewFloat32([]int{batch, sl.Out}, nil, nil)
	}
	s := tensorLike(sl.S)
	dt := sl.Dt
	for i, sv := range sl.S.Values {
		s.Values[i] = dt*sv + o.Values[i]
	}
	x := etensor.NewFloat32([]int{batch, sl.Out}, nil, nil)
	wv := sl.Weight.Value.Values
	for b := 0; b < batch; b++ {
		for oi := 0; oi < sl.Out; oi++ {
			var sum float32
			for ii := 0; ii < sl.In; ii++ {
				sum += wv[oi*sl.In+ii] * s.Values[b*sl.In+ii]
			}
			x.Values[b*sl.Out+oi] = sum
		}
	}
	r := sl.R
	u := tensorLike(x)
	for i, xv := range x.Values {
		u.Values[i] = sl.URest + xv*r.Values[i]
	}
	out := tensorLike(u)
	nr := tensorLike(u)
	for i, uv := range u.Values {
		if uv-sl.UThreshold >= 0 {
			out.Values[i] = 1
		}
		nr.Values[i] = 1 - out.Values[i]
	}
	sl.S = s
	sl.R = nr
	sl.tape = append(sl.tape, srm0Frame{s: s, r: r, x: x, u: u})
	return out
}

// Backward consumes the most recent unconsumed Forward step,
// accumulating the weight gradient and returning the gradient with
// respect to that step's input spikes.  Trace and refractory gradients
// are carried internally into the next (earlier) Backward call.
// Returns nil if no step is recorded.
func (sl *SRM0) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(sl.tape)
	if n == 0 {
		return nil
	}
	fr := sl.tape[n-1]
	sl.tape = sl.tape[:n-1]
	batch := fr.r.Dim(0)
	if sl.gs == nil {
		sl.gs = tensorLike(fr.s)
	}
	if sl.gr == nil {
		sl.gr = tensorLike(fr.r)
	}

	// output path plus the refractory gate gradient: R = 1 - O
	du := tensorLike(fr.u)
	dx := tensorLike(fr.x)
	ngr := tensorLike(fr.r)
	for i, uv := range fr.u.Values {
		d := (dy.Values[i] - sl.gr.Values[i]) * sl.Sg.Deriv(uv-sl.UThreshold)
		du.Values[i] = d
		dx.Values[i] = d * fr.r.Values[i]
		ngr.Values[i] = d * fr.x.Values[i]
	}

	// weight gradient and trace gradient from the synaptic sum
	wv := sl.Weight.Value.Values
	gw := sl.Weight.Grad.Values
	ds := tensorLike(fr.s)
	for b := 0; b < batch; b++ {
		for oi := 0; oi < sl.Out; oi++ {
			dxv := dx.Values[b*sl.Out+oi]
			if dxv == 0 {
				continue
			}
			for ii := 0; ii < sl.In; ii++ {
				gw[oi*sl.In+ii] += dxv * fr.s.Values[b*sl.In+ii]
				ds.Values[b*sl.In+ii] += dxv * wv[oi*sl.In+ii]
			}
		}
	}

	dt := sl.Dt
	do := tensorLike(fr.s)
	ngs := tensorLike(fr.s)
	for i := range ds.Values {
		tot := ds.Values[i] + sl.gs.Values[i]
		do.Values[i] = tot
		ngs.Values[i] = tot * dt
	}
	sl.gs = ngs
	sl.gr = ngr
	if len(sl.tape) == 0 {
		sl.gs = nil
		sl.gr = nil
	}
	return do
}
