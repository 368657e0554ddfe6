// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/etable/etensor"
)

//////////////////////////////////////////////////////////////////////////////
//  Spatial

// Spatial chains single-step modules in network-depth order: the
// output spikes of each module feed the next within the same timestep.
// Lifecycle calls fan out to every child, so resetting or detaching
// the chain resets or detaches every layer in it.
type Spatial struct {
	Mods []Module `desc:"the chained modules, in input-to-output order"`
}

// NewSpatial returns a spatial chain of the given modules.
func NewSpatial(mods ...Module) *Spatial {
	return &Spatial{Mods: mods}
}

func (sp *Spatial) Forward(x *etensor.Float32) *etensor.Float32 {
	for _, md := range sp.Mods {
		x = md.Forward(x)
	}
	return x
}

func (sp *Spatial) Backward(dy *etensor.Float32) *etensor.Float32 {
	for i := len(sp.Mods) - 1; i >= 0; i-- {
		dy = sp.Mods[i].Backward(dy)
		if dy == nil {
			return nil
		}
	}
	return dy
}

func (sp *Spatial) Reset() {
	for _, md := range sp.Mods {
		md.Reset()
	}
}

func (sp *Spatial) Detach() {
	for _, md := range sp.Mods {
		md.Detach()
	}
}

func (sp *Spatial) StartStep() {
	for _, md := range sp.Mods {
		md.StartStep()
	}
}

func (sp *Spatial) StopStep() {
	for _, md := range sp.Mods {
		md.StopStep()
	}
}

func (sp *Spatial) StepOnce() {
	for _, md := range sp.Mods {
		md.StepOnce()
	}
}

func (sp *Spatial) Params() []*Param {
	var ps []*Param
	for _, md := range sp.Mods {
		ps = append(ps, md.Params()...)
	}
	return ps
}

//////////////////////////////////////////////////////////////////////////////
//  Temporal

// Temporal unrolls a single-step module over the leading time axis of
// its input: Forward takes [T, batch, ...], runs the inner module
// once per timestep in order, and stacks the outputs back into
// [T, batch, ...].  After the sequence it runs the learning step hook
// if enabled via StartStep, and then, if ResetAfterProcess, resets the
// inner module's state so the next sequence starts fresh.  The reset
// restores state values only -- the inner module's recorded backward
// steps survive it, so Backward on the full sequence still works after
// the automatic reset.
type Temporal struct {
	Mod               Module `desc:"the single-step module to unroll over time"`
	ResetAfterProcess bool   `def:"true" desc:"reset the inner module's state automatically after each full sequence -- if false the caller resets manually between sequences"`

	stepAfter bool
}

// NewTemporal returns a temporal container around the given
// single-step module, with automatic reset after each sequence.
func NewTemporal(mod Module) *Temporal {
	return &Temporal{Mod: mod, ResetAfterProcess: true}
}

func (tp *Temporal) Forward(x *etensor.Float32) *etensor.Float32 {
	steps := x.Dim(0)
	outs := make([]*etensor.Float32, steps)
	for t := 0; t < steps; t++ {
		outs[t] = tp.Mod.Forward(timeSlice(x, t))
	}
	y := stack(outs)
	if tp.stepAfter {
		tp.Mod.StepOnce()
	}
	if tp.ResetAfterProcess {
		tp.Mod.Reset()
	}
	return y
}

func (tp *Temporal) Backward(dy *etensor.Float32) *etensor.Float32 {
	steps := dy.Dim(0)
	dxs := make([]*etensor.Float32, steps)
	for t := steps - 1; t >= 0; t-- {
		dx := tp.Mod.Backward(timeSlice(dy, t))
		if dx == nil {
			return nil
		}
		dxs[t] = dx
	}
	return stack(dxs)
}

func (tp *Temporal) Reset() {
	tp.Mod.Reset()
}

func (tp *Temporal) Detach() {
	tp.Mod.Detach()
}

func (tp *Temporal) StartStep() {
	tp.stepAfter = true
	tp.Mod.StartStep()
}

func (tp *Temporal) StopStep() {
	tp.stepAfter = false
	tp.Mod.StopStep()
}

func (tp *Temporal) StepOnce() {
	tp.Mod.StepOnce()
}

func (tp *Temporal) Params() []*Param {
	return tp.Mod.Params()
}

//////////////////////////////////////////////////////////////////////////////
//  Network

// Network wraps a complete model as encoder -> model -> decoder, so
// analog data goes in one end and analog data comes out the other,
// with spike trains in between.  Any of the three stages may be nil
// and is then skipped.  The learning step hooks address the model
// stage only; Reset fans out to all three.
type Network struct {
	Encoder Module `desc:"analog-to-spike encoder, or nil for models taking spike input directly"`
	Model   Module `desc:"the spiking model, typically a Temporal-wrapped Spatial chain"`
	Decoder Module `desc:"spike-to-analog decoder, or nil for raw spike train output"`
}

// NewNetwork returns a Network with the given stages, any of which may
// be nil.
func NewNetwork(enc, model, dec Module) *Network {
	return &Network{Encoder: enc, Model: model, Decoder: dec}
}

func (nt *Network) Forward(x *etensor.Float32) *etensor.Float32 {
	if nt.Encoder != nil {
		x = nt.Encoder.Forward(x)
	}
	if nt.Model != nil {
		x = nt.Model.Forward(x)
	}
	if nt.Decoder != nil {
		x = nt.Decoder.Forward(x)
	}
	return x
}

func (nt *Network) Backward(dy *etensor.Float32) *etensor.Float32 {
	if nt.Decoder != nil {
		dy = nt.Decoder.Backward(dy)
		if dy == nil {
			return nil
		}
	}
	if nt.Model != nil {
		dy = nt.Model.Backward(dy)
		if dy == nil {
			return nil
		}
	}
	if nt.Encoder != nil {
		dy = nt.Encoder.Backward(dy)
	}
	return dy
}

func (nt *Network) Reset() {
	if nt.Encoder != nil {
		nt.Encoder.Reset()
	}
	if nt.Model != nil {
		nt.Model.Reset()
	}
	if nt.Decoder != nil {
		nt.Decoder.Reset()
	}
}

func (nt *Network) Detach() {
	if nt.Encoder != nil {
		nt.Encoder.Detach()
	}
	if nt.Model != nil {
		nt.Model.Detach()
	}
	if nt.Decoder != nil {
		nt.Decoder.Detach()
	}
}

func (nt *Network) StartStep() {
	if nt.Model != nil {
		nt.Model.StartStep()
	}
}

func (nt *Network) StopStep() {
	if nt.Model != nil {
		nt.Model.StopStep()
	}
}

func (nt *Network) StepOnce() {
	if nt.Model != nil {
		nt.Model.StepOnce()
	}
}

func (nt *Network) Params() []*Param {
	var ps []*Param
	if nt.Encoder != nil {
		ps = append(ps, nt.Encoder.Params()...)
	}
	if nt.Model != nil {
		ps = append(ps, nt.Model.Params()...)
	}
	if nt.Decoder != nil {
		ps = append(ps, nt.Decoder.Params()...)
	}
	return ps
}

// SizeReport returns a human-readable summary of the learnable
// parameters and the memory they occupy (values plus gradients).
func (nt *Network) SizeReport() string {
	var b strings.Builder
	tot := 0
	for _, pr := range nt.Params() {
		n := pr.Value.Len()
		tot += n
		fmt.Fprintf(&b, "%-8s %8d  %v\n", pr.Name, n, datasize.ByteSize(8*n).HumanReadable())
	}
	fmt.Fprintf(&b, "%-8s %8d  %v\n", "Total", tot, datasize.ByteSize(8*tot).HumanReadable())
	return b.String()
}
