// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
)

//////////////////////////////////////////////////////////////////////////////
//  Linear

// Linear is a fully-connected synapse transform: it weights and sums
// input spikes into the synaptic drive for a downstream soma.  It is
// stateless across timesteps; Forward only records its input for the
// matching Backward.
//
// Input shape [batch, In], output shape [batch, Out].
type Linear struct {
	ModuleBase
	In     int    `desc:"number of input neurons"`
	Out    int    `desc:"number of output neurons"`
	Weight *Param `desc:"connection weights, shape [Out, In]"`
	Bias   *Param `desc:"per-output bias, shape [Out] -- nil if constructed without bias"`

	tape []*etensor.Float32
}

// NewLinear returns a fully-connected synapse from in to out neurons,
// with weights (and bias, if enabled) initialized uniformly in
// [-1/sqrt(in), 1/sqrt(in)].
func NewLinear(in, out int, bias bool) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("snn.NewLinear: layer sizes must be positive, got %d -> %d", in, out)
	}
	ln := &Linear{In: in, Out: out}
	ln.Weight = NewParam("Weight", []int{out, in})
	uniformInit(ln.Weight.Value, in)
	if bias {
		ln.Bias = NewParam("Bias", []int{out})
		uniformInit(ln.Bias.Value, in)
	}
	return ln, nil
}

func (ln *Linear) Params() []*Param {
	if ln.Bias == nil {
		return []*Param{ln.Weight}
	}
	return []*Param{ln.Weight, ln.Bias}
}

func (ln *Linear) Detach() {
	ln.tape = nil
}

func (ln *Linear) Forward(x *etensor.Float32) *etensor.Float32 {
	batch := x.Dim(0)
	y := etensor.NewFloat32([]int{batch, ln.Out}, nil, nil)
	wv := ln.Weight.Value.Values
	for b := 0; b < batch; b++ {
		for oi := 0; oi < ln.Out; oi++ {
			var sum float32
			if ln.Bias != nil {
				sum = ln.Bias.Value.Values[oi]
			}
			for ii := 0; ii < ln.In; ii++ {
				sum += wv[oi*ln.In+ii] * x.Values[b*ln.In+ii]
			}
			y.Values[b*ln.Out+oi] = sum
		}
	}
	ln.tape = append(ln.tape, x)
	return y
}

func (ln *Linear) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(ln.tape)
	if n == 0 {
		return nil
	}
	x := ln.tape[n-1]
	ln.tape = ln.tape[:n-1]
	batch := x.Dim(0)
	wv := ln.Weight.Value.Values
	gw := ln.Weight.Grad.Values
	dx := tensorLike(x)
	for b := 0; b < batch; b++ {
		for oi := 0; oi < ln.Out; oi++ {
			dyv := dy.Values[b*ln.Out+oi]
			if ln.Bias != nil {
				ln.Bias.Grad.Values[oi] += dyv
			}
			if dyv == 0 {
				continue
			}
			for ii := 0; ii < ln.In; ii++ {
				gw[oi*ln.In+ii] += dyv * x.Values[b*ln.In+ii]
				dx.Values[b*ln.In+ii] += dyv * wv[oi*ln.In+ii]
			}
		}
	}
	return dx
}

//////////////////////////////////////////////////////////////////////////////
//  Conv2d

// Conv2d is a 2D convolutional synapse transform over spike maps.
// Like Linear it is stateless across timesteps.
//
// Input shape [batch, InChans, H, W], output shape
// [batch, OutChans, Ho, Wo] with Ho = (H + 2*Padding - KernelSize) /
// Stride + 1 and likewise for Wo.
type Conv2d struct {
	ModuleBase
	InChans    int    `desc:"number of input channels"`
	OutChans   int    `desc:"number of output channels"`
	KernelSize int    `desc:"side length of the square kernel"`
	Stride     int    `def:"1" desc:"stride of the kernel"`
	Padding    int    `def:"0" desc:"zero padding on each spatial border"`
	Weight     *Param `desc:"kernel weights, shape [OutChans, InChans, KernelSize, KernelSize]"`
	Bias       *Param `desc:"per-channel bias, shape [OutChans] -- nil if constructed without bias"`

	tape []*etensor.Float32
}

// NewConv2d returns a 2D convolutional synapse with a square kernel,
// weights initialized uniformly in [-b, b] with b = 1/sqrt(fan-in) and
// fan-in = inChans * kernel^2.
func NewConv2d(inChans, outChans, kernel, stride, padding int, bias bool) (*Conv2d, error) {
	if inChans <= 0 || outChans <= 0 {
		return nil, fmt.Errorf("snn.NewConv2d: channel counts must be positive, got %d -> %d", inChans, outChans)
	}
	if kernel <= 0 || stride <= 0 || padding < 0 {
		return nil, fmt.Errorf("snn.NewConv2d: invalid geometry: kernel %d, stride %d, padding %d", kernel, stride, padding)
	}
	cv := &Conv2d{InChans: inChans, OutChans: outChans, KernelSize: kernel, Stride: stride, Padding: padding}
	fanIn := inChans * kernel * kernel
	cv.Weight = NewParam("Weight", []int{outChans, inChans, kernel, kernel})
	uniformInit(cv.Weight.Value, fanIn)
	if bias {
		cv.Bias = NewParam("Bias", []int{outChans})
		uniformInit(cv.Bias.Value, fanIn)
	}
	return cv, nil
}

func (cv *Conv2d) Params() []*Param {
	if cv.Bias == nil {
		return []*Param{cv.Weight}
	}
	return []*Param{cv.Weight, cv.Bias}
}

func (cv *Conv2d) Detach() {
	cv.tape = nil
}

// outSize returns the output spatial size for input size in.
func (cv *Conv2d) outSize(in int) int {
	return (in+2*cv.Padding-cv.KernelSize)/cv.Stride + 1
}

func (cv *Conv2d) Forward(x *etensor.Float32) *etensor.Float32 {
	batch, h, w := x.Dim(0), x.Dim(2), x.Dim(3)
	ho, wo := cv.outSize(h), cv.outSize(w)
	k := cv.KernelSize
	y := etensor.NewFloat32([]int{batch, cv.OutChans, ho, wo}, nil, nil)
	wv := cv.Weight.Value.Values
	for b := 0; b < batch; b++ {
		for oc := 0; oc < cv.OutChans; oc++ {
			for oy := 0; oy < ho; oy++ {
				for ox := 0; ox < wo; ox++ {
					var sum float32
					if cv.Bias != nil {
						sum = cv.Bias.Value.Values[oc]
					}
					for ic := 0; ic < cv.InChans; ic++ {
						for ky := 0; ky < k; ky++ {
							iy := oy*cv.Stride + ky - cv.Padding
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < k; kx++ {
								ix := ox*cv.Stride + kx - cv.Padding
								if ix < 0 || ix >= w {
									continue
								}
								xi := ((b*cv.InChans+ic)*h+iy)*w + ix
								wi := ((oc*cv.InChans+ic)*k+ky)*k + kx
								sum += wv[wi] * x.Values[xi]
							}
						}
					}
					y.Values[((b*cv.OutChans+oc)*ho+oy)*wo+ox] = sum
				}
			}
		}
	}
	cv.tape = append(cv.tape, x)
	return y
}

func (cv *Conv2d) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(cv.tape)
	if n == 0 {
		return nil
	}
	x := cv.tape[n-1]
	cv.tape = cv.tape[:n-1]
	batch, h, w := x.Dim(0), x.Dim(2), x.Dim(3)
	ho, wo := cv.outSize(h), cv.outSize(w)
	k := cv.KernelSize
	wv := cv.Weight.Value.Values
	gw := cv.Weight.Grad.Values
	dx := tensorLike(x)
	for b := 0; b < batch; b++ {
		for oc := 0; oc < cv.OutChans; oc++ {
			for oy := 0; oy < ho; oy++ {
				for ox := 0; ox < wo; ox++ {
					dyv := dy.Values[((b*cv.OutChans+oc)*ho+oy)*wo+ox]
					if cv.Bias != nil {
						cv.Bias.Grad.Values[oc] += dyv
					}
					if dyv == 0 {
						continue
					}
					for ic := 0; ic < cv.InChans; ic++ {
						for ky := 0; ky < k; ky++ {
							iy := oy*cv.Stride + ky - cv.Padding
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < k; kx++ {
								ix := ox*cv.Stride + kx - cv.Padding
								if ix < 0 || ix >= w {
									continue
								}
								xi := ((b*cv.InChans+ic)*h+iy)*w + ix
								wi := ((oc*cv.InChans+ic)*k+ky)*k + kx
								gw[wi] += dyv * x.Values[xi]
								dx.Values[xi] += dyv * wv[wi]
							}
						}
					}
				}
			}
		}
	}
	return dx
}
