// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package surrogate provides surrogate gradient functions for spiking
neural networks.

The forward pass of a spiking neuron applies a hard Heaviside threshold
to the membrane potential, whose true derivative is zero almost
everywhere and undefined at the threshold itself, so no useful gradient
can flow through it during backpropagation.  Each type in this package
supplies a smooth stand-in derivative, evaluated at the pre-threshold
value v = u - u_threshold, which the firing stage substitutes for the
true derivative in its backward pass.  The choice of surrogate is a
per-neuron configuration option, injected at construction time.
*/
package surrogate

import "github.com/chewxy/math32"

// Grad is the surrogate gradient capability: Deriv returns the
// stand-in derivative of the Heaviside step evaluated at v, the
// membrane potential minus the firing threshold.
type Grad interface {
	Deriv(v float32) float32
}

//////////////////////////////////////////////////////////////////////////////
//  Rectangular

// Rectangular is the rectangular-window surrogate: the Heaviside step
// is treated as a linear ramp of width A centered on the threshold, so
// the derivative is 1/A within the window and 0 outside it.
type Rectangular struct {
	A float32 `def:"1" min:"0" desc:"width of the window around the threshold within which the gradient is passed -- derivative magnitude is 1/A"`
}

// NewRectangular returns a Rectangular surrogate with default parameters.
func NewRectangular() *Rectangular {
	rg := &Rectangular{}
	rg.Defaults()
	return rg
}

func (rg *Rectangular) Defaults() {
	rg.A = 1
}

func (rg *Rectangular) Deriv(v float32) float32 {
	if math32.Abs(v) < 0.5*rg.A {
		return 1 / rg.A
	}
	return 0
}

//////////////////////////////////////////////////////////////////////////////
//  Sigmoid

// Sigmoid treats the step as a logistic sigmoid with gain A, so the
// derivative is A * s * (1 - s) with s = 1 / (1 + exp(-A*v)).
// Higher gain concentrates the gradient nearer the threshold.
type Sigmoid struct {
	A float32 `def:"4" min:"0" desc:"gain of the sigmoid -- higher values concentrate the gradient around the threshold"`
}

// NewSigmoid returns a Sigmoid surrogate with default parameters.
func NewSigmoid() *Sigmoid {
	sg := &Sigmoid{}
	sg.Defaults()
	return sg
}

func (sg *Sigmoid) Defaults() {
	sg.A = 4
}

func (sg *Sigmoid) Deriv(v float32) float32 {
	s := 1 / (1 + math32.Exp(-sg.A*v))
	return sg.A * s * (1 - s)
}

//////////////////////////////////////////////////////////////////////////////
//  Atan

// Atan treats the step as a shifted arctangent,
// (1/pi) * atan(pi/2 * A * v) + 1/2, giving the derivative
// (A/2) / (1 + (pi/2 * A * v)^2) with wider tails than Sigmoid.
type Atan struct {
	A float32 `def:"2" min:"0" desc:"slope of the arctangent at the threshold"`
}

// NewAtan returns an Atan surrogate with default parameters.
func NewAtan() *Atan {
	ag := &Atan{}
	ag.Defaults()
	return ag
}

func (ag *Atan) Defaults() {
	ag.A = 2
}

func (ag *Atan) Deriv(v float32) float32 {
	hp := 0.5 * math32.Pi * ag.A * v
	return (0.5 * ag.A) / (1 + hp*hp)
}
