// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/snn/surrogate"
)

// Spike applies the Heaviside firing threshold elementwise to
// v = u - u_threshold, returning 1 where v >= 0 and 0 elsewhere.
// This is the forward half of the spiking nonlinearity -- the backward
// half is SpikeGrad, which substitutes a surrogate for the true
// derivative (zero almost everywhere).
func Spike(v *etensor.Float32) *etensor.Float32 {
	o := tensorLike(v)
	for i, vv := range v.Values {
		if vv >= 0 {
			o.Values[i] = 1
		}
	}
	return o
}

// SpikeGrad is the backward half of the spiking nonlinearity: it scales
// the output gradient do by the surrogate derivative sg evaluated at
// the saved pre-threshold value v, returning the gradient with respect
// to v.
func SpikeGrad(sg surrogate.Grad, v, do *etensor.Float32) *etensor.Float32 {
	dv := tensorLike(v)
	for i, vv := range v.Values {
		dv.Values[i] = do.Values[i] * sg.Deriv(vv)
	}
	return dv
}

// ToSpike re-binarizes x at 0.5, returning 1 where x >= 0.5 and 0
// elsewhere.  Shape-manipulation stages (flattening, pooling) can turn
// exact spike values into intermediate analog ones; applying ToSpike to
// their output restores the binary spike invariant.  Its gradient is
// the identity, so it is transparent to backpropagation.
func ToSpike(x *etensor.Float32) *etensor.Float32 {
	o := tensorLike(x)
	for i, xv := range x.Values {
		if xv >= 0.5 {
			o.Values[i] = 1
		}
	}
	return o
}
