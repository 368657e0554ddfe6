// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import "github.com/emer/etable/etensor"

// Module is the interface for all single-step SNN modules that can be
// composed in the Spatial, Temporal, and Network containers.
// Forward and Backward are the only methods every module implements
// itself -- the lifecycle methods have no-op defaults in ModuleBase, so
// a stateless module embeds ModuleBase and overrides nothing, and
// containers call every lifecycle method unconditionally on all
// children.
type Module interface {
	// Forward computes this module's output for the current instant
	// from input x.  Stateful modules update their internal state as a
	// side effect and record a backward frame for this step.
	Forward(x *etensor.Float32) *etensor.Float32

	// Backward consumes the most recent unconsumed Forward frame,
	// propagating the output gradient dy back to the input, returning
	// dx and accumulating parameter gradients.  Returns nil if there is
	// no recorded frame (e.g., a stochastic encoder, or after Detach).
	Backward(dy *etensor.Float32) *etensor.Float32

	// Reset returns every state variable to its initial pre-simulation
	// value.  It is idempotent, and does not discard recorded backward
	// frames, so a sequence can still be backpropagated after the
	// automatic reset at the end of a Temporal pass.
	Reset()

	// Detach discards recorded backward frames and any gradient state
	// carried across timesteps, without changing state values:
	// truncates backpropagation through time at the current step.
	Detach()

	// StartStep enables the per-sequence learning step hook
	// (e.g., an external STDP plasticity update).
	StartStep()

	// StopStep disables the per-sequence learning step hook.
	StopStep()

	// StepOnce invokes the external learning step hook once.
	// The Temporal container calls this after processing a full
	// sequence when enabled via StartStep.
	StepOnce()

	// Params returns the learnable parameters of this module, for
	// registration with an external optimizer.
	Params() []*Param
}

// Param is one learnable parameter: a value tensor and its accumulated
// gradient.  Backward passes add into Grad; the external optimizer
// applies it and calls ZeroGrad between steps.
type Param struct {
	Name  string           `desc:"name of the parameter, e.g., Weight"`
	Value *etensor.Float32 `desc:"current parameter value"`
	Grad  *etensor.Float32 `desc:"accumulated gradient of the loss with respect to Value"`
}

// NewParam returns a named parameter of the given shape, with value and
// gradient tensors allocated and zeroed.
func NewParam(name string, shp []int) *Param {
	return &Param{
		Name:  name,
		Value: etensor.NewFloat32(shp, nil, nil),
		Grad:  etensor.NewFloat32(shp, nil, nil),
	}
}

// ZeroGrad clears the accumulated gradient.
func (pr *Param) ZeroGrad() {
	for i := range pr.Grad.Values {
		pr.Grad.Values[i] = 0
	}
}

// ModuleBase provides no-op implementations of the optional Module
// lifecycle capabilities.  Concrete modules embed it and override only
// the methods relevant to their state -- this replaces probing children
// for optional methods: a child that does not need a capability simply
// inherits the no-op.
type ModuleBase struct{}

func (mb *ModuleBase) Reset()           {}
func (mb *ModuleBase) Detach()          {}
func (mb *ModuleBase) StartStep()       {}
func (mb *ModuleBase) StopStep()        {}
func (mb *ModuleBase) StepOnce()        {}
func (mb *ModuleBase) Params() []*Param { return nil }
