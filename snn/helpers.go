// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
)

// shapeOf returns the shape of x as a plain int slice.
func shapeOf(x *etensor.Float32) []int {
	nd := x.NumDims()
	shp := make([]int, nd)
	for i := 0; i < nd; i++ {
		shp[i] = x.Dim(i)
	}
	return shp
}

// tensorLike returns a new zeroed tensor with the same shape as x.
func tensorLike(x *etensor.Float32) *etensor.Float32 {
	return etensor.NewFloat32(shapeOf(x), nil, nil)
}

// copyOf returns a new tensor with the same shape and values as x.
func copyOf(x *etensor.Float32) *etensor.Float32 {
	c := tensorLike(x)
	copy(c.Values, x.Values)
	return c
}

// fullLike returns a new tensor with the same shape as x, filled with v.
func fullLike(x *etensor.Float32, v float32) *etensor.Float32 {
	c := tensorLike(x)
	for i := range c.Values {
		c.Values[i] = v
	}
	return c
}

// stack concatenates the given equally-shaped tensors along a new
// leading axis, producing shape [len(xs), ...shape(xs[0])].
func stack(xs []*etensor.Float32) *etensor.Float32 {
	shp := append([]int{len(xs)}, shapeOf(xs[0])...)
	st := etensor.NewFloat32(shp, nil, nil)
	n := xs[0].Len()
	for t, x := range xs {
		copy(st.Values[t*n:(t+1)*n], x.Values)
	}
	return st
}

// timeSlice extracts step t along the leading axis of x, returning a
// tensor of the remaining dimensions.
func timeSlice(x *etensor.Float32, t int) *etensor.Float32 {
	shp := shapeOf(x)[1:]
	sl := etensor.NewFloat32(shp, nil, nil)
	n := sl.Len()
	copy(sl.Values, x.Values[t*n:(t+1)*n])
	return sl
}

// uniformInit fills w with uniform random values in [-b, b] where
// b = 1/sqrt(fanIn), the standard initialization for a dense
// connection receiving fanIn inputs.
func uniformInit(w *etensor.Float32, fanIn int) {
	b := 1 / math32.Sqrt(float32(fanIn))
	for i := range w.Values {
		w.Values[i] = b * (2*rand.Float32() - 1)
	}
}
