// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package snn is the overall repository for spiking neural network (SNN)
modeling code implemented in the Go language (golang).

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* snn: the core implementation: soma membrane-dynamics state machines
(IF, LIF, QIF, EIF, Izhikevich, SRM0), synapse transforms, encoders and
decoders, and the temporal / spatial composition containers that unroll
stateful single-step modules across time and propagate the module
lifecycle (reset, detach, training-step hooks).

* surrogate: the surrogate gradient functions used to backpropagate
through the hard spike threshold, which has a zero derivative almost
everywhere -- each provides a smooth stand-in derivative, injectable
per neuron instance.

* examples: these compile into runnable programs -- examples/srm0 trains
a two-layer SRM0 network on synthetic patterns and is the place to start
for the standard template of an SNN model; examples/convnet runs a
convolutional spiking network with a time-to-first-spike encoder.
*/
package snn
