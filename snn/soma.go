// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
	"github.com/emer/snn/surrogate"
	"github.com/goki/ki/kit"
)

// SomaModels are the available membrane dynamics models for the Soma
// module.  All share the same Response-Firing-Reset step structure and
// differ only in the response equation that advances the membrane
// potential -- the model is a configuration parameter, not a separate
// type.
type SomaModels int32

//go:generate stringer -type=SomaModels

var KiT_SomaModels = kit.Enums.AddEnum(SomaModelsN, kit.NotBitFlag, nil)

func (ev SomaModels) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *SomaModels) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// IF is the integrate-and-fire model: no leak, the potential just
	// accumulates input: U(t) = U(t-1) + X(t)
	IF SomaModels = iota

	// LIF is the leaky integrate-and-fire model, decaying toward the
	// resting potential: tau_m * dU/dt = -(U - U_rest) + X
	LIF

	// QIF is the quadratic integrate-and-fire model:
	// tau_m * dU/dt = -A0 * (U - U_rest) * (U - UC) + X
	QIF

	// EIF is the exponential integrate-and-fire model, adding an
	// exponential depolarizing term to LIF:
	// tau_m * dU/dt = -(U - U_rest) + DeltaT * exp((U - UT) / DeltaT) + X
	EIF

	// Izhikevich couples the potential with a recovery variable W:
	// dU/dt = 0.04*U^2 + 5*U + 140 - W + X,  dW/dt = A * (B*U - W)
	Izhikevich

	SomaModelsN
)

// ActFuncs are the activation functions available for the analog
// output variant of the Soma (Analog = true).
type ActFuncs int32

//go:generate stringer -type=ActFuncs

var KiT_ActFuncs = kit.Enums.AddEnum(ActFuncsN, kit.NotBitFlag, nil)

func (ev ActFuncs) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ActFuncs) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// ReLU passes positive values through and clips negatives to zero.
	ReLU ActFuncs = iota

	// SigmoidAct squashes values into (0, 1) with a logistic sigmoid.
	SigmoidAct

	ActFuncsN
)

// somaFrame is the per-timestep record needed to backpropagate one
// Forward step: the potential entering the step, the post-response
// potential before reset, and the emitted spikes.
type somaFrame struct {
	h *etensor.Float32
	u *etensor.Float32
	o *etensor.Float32
}

// Soma is a layer of point neurons sharing one membrane dynamics model
// and one set of dynamics parameters.  Each Forward call advances the
// neurons by one timestep: response (advance U from input X), firing
// (threshold U into spikes O), reset (neurons that fired return to
// URest).  The neuron shape is taken lazily from the first input after
// Reset, so the same Soma works for any upstream shape.
//
// Backward replays recorded steps in reverse, substituting the Sg
// surrogate for the derivative of the firing threshold, and carries
// the potential gradient across steps for full backpropagation through
// time.  Reset restores state values without discarding the recorded
// steps; Detach discards them.
type Soma struct {
	ModuleBase
	Model      SomaModels     `desc:"membrane dynamics model"`
	TauM       float32        `def:"2" desc:"membrane time constant -- larger means slower integration and leak"`
	UThreshold float32        `def:"1" desc:"firing threshold potential"`
	URest      float32        `def:"0" desc:"resting potential, also the post-spike reset value"`
	A0         float32        `viewif:"Model=QIF" def:"1" desc:"quadratic coefficient for the QIF model"`
	UC         float32        `viewif:"Model=QIF" def:"0.8" desc:"critical potential for the QIF model"`
	UT         float32        `viewif:"Model=EIF" def:"8" desc:"threshold of the exponential term for the EIF model"`
	DeltaT     float32        `viewif:"Model=EIF" def:"1" desc:"sharpness of the exponential term for the EIF model"`
	A          float32        `viewif:"Model=Izhikevich" def:"1" desc:"recovery time scale for the Izhikevich model"`
	B          float32        `viewif:"Model=Izhikevich" def:"1" desc:"recovery sensitivity to the potential for the Izhikevich model"`
	Analog     bool           `desc:"emit the analog activation Act(U - URest) instead of spikes -- spikes are still computed internally to drive the reset"`
	Act        ActFuncs       `viewif:"Analog" def:"ReLU" desc:"activation function for analog output"`
	Sg         surrogate.Grad `view:"inline" desc:"surrogate gradient substituted for the firing threshold derivative in Backward"`

	Dt float32 `view:"-" json:"-" xml:"-" desc:"rate = 1 / TauM"`

	U *etensor.Float32 `view:"-" desc:"membrane potential -- nil until the first Forward after Reset, then shaped like the input"`
	W *etensor.Float32 `view:"-" desc:"recovery variable for the Izhikevich model -- nil until the first Forward after Reset"`

	tape []somaFrame
	gu   *etensor.Float32
	gw   *etensor.Float32
}

// NewSoma returns a Soma with the given dynamics model and membrane
// time constant, with all other parameters at their defaults.
// Returns an error if tauM is zero, which would make the response
// equations divide by zero.
func NewSoma(model SomaModels, tauM float32) (*Soma, error) {
	if tauM == 0 {
		return nil, fmt.Errorf("snn.NewSoma: membrane time constant tau_m cannot be zero")
	}
	sm := &Soma{}
	sm.Defaults()
	sm.Model = model
	sm.TauM = tauM
	sm.Update()
	return sm, nil
}

// NewIF returns an integrate-and-fire Soma.  IF has no time constant,
// so construction cannot fail.
func NewIF() *Soma {
	sm, _ := NewSoma(IF, 1)
	return sm
}

// NewLIF returns a leaky integrate-and-fire Soma with time constant tauM.
func NewLIF(tauM float32) (*Soma, error) {
	return NewSoma(LIF, tauM)
}

// NewQIF returns a quadratic integrate-and-fire Soma with time constant tauM.
func NewQIF(tauM float32) (*Soma, error) {
	return NewSoma(QIF, tauM)
}

// NewEIF returns an exponential integrate-and-fire Soma with time constant tauM.
func NewEIF(tauM float32) (*Soma, error) {
	return NewSoma(EIF, tauM)
}

// NewIzhikevich returns an Izhikevich Soma with recovery parameters a, b.
func NewIzhikevich(a, b float32) *Soma {
	sm, _ := NewSoma(Izhikevich, 1)
	sm.A = a
	sm.B = b
	return sm
}

// NewLIAF returns a leaky integrate-and-fire Soma with analog output:
// LIF dynamics and spiking reset, but the module output is
// Act(U - URest) instead of the spike train.
func NewLIAF(tauM float32, act ActFuncs) (*Soma, error) {
	sm, err := NewSoma(LIF, tauM)
	if err != nil {
		return nil, err
	}
	sm.Analog = true
	sm.Act = act
	return sm, nil
}

func (sm *Soma) Defaults() {
	sm.TauM = 2
	sm.UThreshold = 1
	sm.URest = 0
	sm.A0 = 1
	sm.UC = 0.8
	sm.UT = 8
	sm.DeltaT = 1
	sm.A = 1
	sm.B = 1
	sm.Act = ReLU
	if sm.Sg == nil {
		sm.Sg = surrogate.NewRectangular()
	}
	sm.Update()
}

func (sm *Soma) Update() {
	sm.Dt = 1 / sm.TauM
}

// Reset returns the membrane potential (and recovery variable) to the
// initial resting state.  The neuron shape is dropped and re-derived
// from the next input.  Recorded backward steps are kept.
func (sm *Soma) Reset() {
	sm.U = nil
	sm.W = nil
}

// Detach discards the recorded backward steps and the gradients
// carried across timesteps, truncating backpropagation through time
// at the current point.  State values are untouched.
func (sm *Soma) Detach() {
	sm.tape = nil
	sm.gu = nil
	sm.gw = nil
}

// response advances the membrane potential by one timestep: from the
// potential h entering the step and the input x, per the configured
// model.  For Izhikevich this also advances the recovery variable W
// in place.
func (sm *Soma) response(h, x *etensor.Float32) *etensor.Float32 {
	u := tensorLike(h)
	switch sm.Model {
	case IF:
		for i, hv := range h.Values {
			u.Values[i] = hv + x.Values[i]
		}
	case LIF:
		dt := sm.Dt
		for i, hv := range h.Values {
			u.Values[i] = hv + dt*(-(hv-sm.URest)+x.Values[i])
		}
	case QIF:
		dt := sm.Dt
		for i, hv := range h.Values {
			u.Values[i] = hv + dt*(-sm.A0*(hv-sm.URest)*(hv-sm.UC)+x.Values[i])
		}
	case EIF:
		dt := sm.Dt
		for i, hv := range h.Values {
			ex := sm.DeltaT * math32.Exp((hv-sm.UT)/sm.DeltaT)
			u.Values[i] = hv + dt*(-(hv-sm.URest)+ex+x.Values[i])
		}
	case Izhikevich:
		for i, hv := range h.Values {
			wv := sm.W.Values[i] + sm.A*(sm.B*hv-sm.W.Values[i])
			sm.W.Values[i] = wv
			u.Values[i] = hv + 0.04*hv*hv + 5*hv + 140 - wv + x.Values[i]
		}
	}
	return u
}

func (sm *Soma) actFun(v float32) float32 {
	switch sm.Act {
	case SigmoidAct:
		return 1 / (1 + math32.Exp(-v))
	default: // ReLU
		if v > 0 {
			return v
		}
		return 0
	}
}

func (sm *Soma) actDeriv(v float32) float32 {
	switch sm.Act {
	case SigmoidAct:
		s := 1 / (1 + math32.Exp(-v))
		return s * (1 - s)
	default: // ReLU
		if v > 0 {
			return 1
		}
		return 0
	}
}

// Forward advances the neurons by one timestep from synaptic input x,
// returning the spike train (or the analog activation when Analog is
// set).  On the first call after Reset the potential is materialized
// at URest with the shape of x.
func (sm *Soma) Forward(x *etensor.Float32) *etensor.Float32 {
	if sm.U == nil {
		sm.U = fullLike(x, sm.URest)
	}
	if sm.Model == Izhikevich && sm.W == nil {
		sm.W = tensorLike(x)
	}
	h := sm.U
	u := sm.response(h, x)
	o := tensorLike(u)
	for i, uv := range u.Values {
		if uv-sm.UThreshold >= 0 {
			o.Values[i] = 1
		}
	}
	out := o
	if sm.Analog {
		out = tensorLike(u)
		for i, uv := range u.Values {
			out.Values[i] = sm.actFun(uv - sm.URest)
		}
	}
	nu := tensorLike(u)
	for i, uv := range u.Values {
		ov := o.Values[i]
		nu.Values[i] = uv*(1-ov) + sm.URest*ov
	}
	sm.U = nu
	sm.tape = append(sm.tape, somaFrame{h: h, u: u, o: o})
	return out
}

// Backward consumes the most recent unconsumed Forward step, returning
// the gradient with respect to that step's input.  The gradient of the
// post-reset potential is carried internally into the next (earlier)
// Backward call, so calling Backward once per Forward in reverse order
// backpropagates through the whole recorded sequence.  Returns nil if
// no step is recorded.
func (sm *Soma) Backward(dy *etensor.Float32) *etensor.Float32 {
	n := len(sm.tape)
	if n == 0 {
		return nil
	}
	fr := sm.tape[n-1]
	sm.tape = sm.tape[:n-1]
	if sm.gu == nil {
		sm.gu = tensorLike(fr.u)
	}
	if sm.Model == Izhikevich && sm.gw == nil {
		sm.gw = tensorLike(fr.u)
	}

	// gradient wrt the post-response potential, combining the output
	// path (through the threshold or the analog activation) with the
	// carried post-reset potential gradient, whose reset gate also
	// depends on the spikes
	du := tensorLike(fr.u)
	for i, uv := range fr.u.Values {
		sd := sm.Sg.Deriv(uv - sm.UThreshold)
		g := sm.gu.Values[i]
		var d float32
		if sm.Analog {
			d = dy.Values[i] * sm.actDeriv(uv-sm.URest)
		} else {
			d = dy.Values[i] * sd
		}
		d += g * (1 - fr.o.Values[i])
		d += g * (sm.URest - uv) * sd
		du.Values[i] = d
	}

	dx := tensorLike(fr.u)
	ngu := tensorLike(fr.u)
	switch sm.Model {
	case IF:
		for i, dv := range du.Values {
			dx.Values[i] = dv
			ngu.Values[i] = dv
		}
	case LIF:
		dt := sm.Dt
		for i, dv := range du.Values {
			dx.Values[i] = dv * dt
			ngu.Values[i] = dv * (1 - dt)
		}
	case QIF:
		dt := sm.Dt
		for i, dv := range du.Values {
			hv := fr.h.Values[i]
			dx.Values[i] = dv * dt
			ngu.Values[i] = dv * (1 - dt*sm.A0*(2*hv-sm.URest-sm.UC))
		}
	case EIF:
		dt := sm.Dt
		for i, dv := range du.Values {
			hv := fr.h.Values[i]
			ex := math32.Exp((hv - sm.UT) / sm.DeltaT)
			dx.Values[i] = dv * dt
			ngu.Values[i] = dv * (1 + dt*(ex-1))
		}
	case Izhikevich:
		ngw := tensorLike(fr.u)
		for i, dv := range du.Values {
			hv := fr.h.Values[i]
			g1 := sm.gw.Values[i] - dv // gradient wrt the advanced recovery variable
			dx.Values[i] = dv
			ngu.Values[i] = dv*(6+0.08*hv) + g1*sm.A*sm.B
			ngw.Values[i] = g1 * (1 - sm.A)
		}
		sm.gw = ngw
	}
	sm.gu = ngu
	if len(sm.tape) == 0 {
		sm.gu = nil
		sm.gw = nil
	}
	return dx
}
