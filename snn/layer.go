// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
)

// Shape-manipulation modules for spike tensors.  Pooling and
// flattening can produce intermediate analog values (an average of
// spikes is fractional), so each module re-binarizes its output at 0.5
// with ToSpike, which is gradient-transparent, keeping downstream
// modules on exact spike trains.

//////////////////////////////////////////////////////////////////////////////
//  Flatten

// Flatten collapses all dimensions after the batch dimension into one,
// producing shape [batch, rest], and re-binarizes the result.
type Flatten struct {
	ModuleBase
	tape [][]int
}

// NewFlatten returns a Flatten module.
func NewFlatten() *Flatten {
	return &Flatten{}
}

func (fl *Flatten) Detach() {
	fl.tape = nil
}

func (fl *Flatten) Forward(x *etensor.Float32) *etensor.Float32 {
	shp := shapeOf(x)
	rest := 1
	for _, d := range shp[1:] {
		rest *= d
	}
	y := etensor.NewFloat32([]int{shp[0], rest}, nil, nil)
	for i, xv := range x.Values {
		if xv >= 0.5 {
			y.Values[i] = 1
		}
	}
	fl.tape = append(fl.tape, shp)
	return y
}

func (fl *Flatten) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(fl.tape)
	if n == 0 {
		return nil
	}
	shp := fl.tape[n-1]
	fl.tape = fl.tape[:n-1]
	dx := etensor.NewFloat32(shp, nil, nil)
	copy(dx.Values, dy.Values)
	return dx
}

//////////////////////////////////////////////////////////////////////////////
//  MaxPool2d

// MaxPool2d takes the maximum spike over each pooling window: the
// pooled unit fires if any unit in its window fires.  Backward routes
// the gradient to the first maximal unit of each window.
//
// Input shape [batch, chans, H, W].
type MaxPool2d struct {
	ModuleBase
	KernelSize int `desc:"side length of the square pooling window"`
	Stride     int `desc:"stride of the window -- equals KernelSize if constructed with stride 0"`

	tape []poolFrame
}

type poolFrame struct {
	shp []int
	arg []int // flat input index of the routed unit per output, -1 for empty windows
}

// NewMaxPool2d returns a 2D max pooling module.  A stride of 0 means
// stride = kernel (non-overlapping windows).
func NewMaxPool2d(kernel, stride int) (*MaxPool2d, error) {
	if kernel <= 0 || stride < 0 {
		return nil, fmt.Errorf("snn.NewMaxPool2d: invalid geometry: kernel %d, stride %d", kernel, stride)
	}
	if stride == 0 {
		stride = kernel
	}
	return &MaxPool2d{KernelSize: kernel, Stride: stride}, nil
}

func (mp *MaxPool2d) Detach() {
	mp.tape = nil
}

func (mp *MaxPool2d) Forward(x *etensor.Float32) *etensor.Float32 {
	batch, chans, h, w := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	ho := (h-mp.KernelSize)/mp.Stride + 1
	wo := (w-mp.KernelSize)/mp.Stride + 1
	y := etensor.NewFloat32([]int{batch, chans, ho, wo}, nil, nil)
	arg := make([]int, len(y.Values))
	for b := 0; b < batch; b++ {
		for c := 0; c < chans; c++ {
			for oy := 0; oy < ho; oy++ {
				for ox := 0; ox < wo; ox++ {
					best := float32(0)
					bi := -1
					for ky := 0; ky < mp.KernelSize; ky++ {
						for kx := 0; kx < mp.KernelSize; kx++ {
							xi := ((b*chans+c)*h+oy*mp.Stride+ky)*w + ox*mp.Stride + kx
							if bi < 0 || x.Values[xi] > best {
								best = x.Values[xi]
								bi = xi
							}
						}
					}
					yi := ((b*chans+c)*ho+oy)*wo + ox
					if best >= 0.5 {
						y.Values[yi] = 1
					}
					arg[yi] = bi
				}
			}
		}
	}
	mp.tape = append(mp.tape, poolFrame{shp: shapeOf(x), arg: arg})
	return y
}

func (mp *MaxPool2d) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(mp.tape)
	if n == 0 {
		return nil
	}
	fr := mp.tape[n-1]
	mp.tape = mp.tape[:n-1]
	dx := etensor.NewFloat32(fr.shp, nil, nil)
	for yi, xi := range fr.arg {
		if xi >= 0 {
			dx.Values[xi] += dy.Values[yi]
		}
	}
	return dx
}

//////////////////////////////////////////////////////////////////////////////
//  AvgPool2d

// AvgPool2d averages spikes over each pooling window and re-binarizes
// at 0.5: the pooled unit fires if at least half its window fires.
// Backward distributes the gradient evenly over each window.
//
// Input shape [batch, chans, H, W].
type AvgPool2d struct {
	ModuleBase
	KernelSize int `desc:"side length of the square pooling window"`
	Stride     int `desc:"stride of the window -- equals KernelSize if constructed with stride 0"`

	tape [][]int
}

// NewAvgPool2d returns a 2D average pooling module.  A stride of 0
// means stride = kernel (non-overlapping windows).
func NewAvgPool2d(kernel, stride int) (*AvgPool2d, error) {
	if kernel <= 0 || stride < 0 {
		return nil, fmt.Errorf("snn.NewAvgPool2d: invalid geometry: kernel %d, stride %d", kernel, stride)
	}
	if stride == 0 {
		stride = kernel
	}
	return &AvgPool2d{KernelSize: kernel, Stride: stride}, nil
}

func (ap *AvgPool2d) Detach() {
	ap.tape = nil
}

func (ap *AvgPool2d) Forward(x *etensor.Float32) *etensor.Float32 {
	batch, chans, h, w := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	ho := (h-ap.KernelSize)/ap.Stride + 1
	wo := (w-ap.KernelSize)/ap.Stride + 1
	y := etensor.NewFloat32([]int{batch, chans, ho, wo}, nil, nil)
	norm := 1 / float32(ap.KernelSize*ap.KernelSize)
	for b := 0; b < batch; b++ {
		for c := 0; c < chans; c++ {
			for oy := 0; oy < ho; oy++ {
				for ox := 0; ox < wo; ox++ {
					var sum float32
					for ky := 0; ky < ap.KernelSize; ky++ {
						for kx := 0; kx < ap.KernelSize; kx++ {
							xi := ((b*chans+c)*h+oy*ap.Stride+ky)*w + ox*ap.Stride + kx
							sum += x.Values[xi]
						}
					}
					if sum*norm >= 0.5 {
						y.Values[((b*chans+c)*ho+oy)*wo+ox] = 1
					}
				}
			}
		}
	}
	ap.tape = append(ap.tape, shapeOf(x))
	return y
}

func (ap *AvgPool2d) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(ap.tape)
	if n == 0 {
		return nil
	}
	shp := ap.tape[n-1]
	ap.tape = ap.tape[:n-1]
	batch, chans, h, w := shp[0], shp[1], shp[2], shp[3]
	ho := (h-ap.KernelSize)/ap.Stride + 1
	wo := (w-ap.KernelSize)/ap.Stride + 1
	dx := etensor.NewFloat32(shp, nil, nil)
	norm := 1 / float32(ap.KernelSize*ap.KernelSize)
	for b := 0; b < batch; b++ {
		for c := 0; c < chans; c++ {
			for oy := 0; oy < ho; oy++ {
				for ox := 0; ox < wo; ox++ {
					dyv := dy.Values[((b*chans+c)*ho+oy)*wo+ox] * norm
					if dyv == 0 {
						continue
					}
					for ky := 0; ky < ap.KernelSize; ky++ {
						for kx := 0; kx < ap.KernelSize; kx++ {
							dx.Values[((b*chans+c)*h+oy*ap.Stride+ky)*w+ox*ap.Stride+kx] += dyv
						}
					}
				}
			}
		}
	}
	return dx
}
