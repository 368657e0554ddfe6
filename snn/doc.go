// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package snn provides spiking neural network modules and the containers
that compose them.

Every module transforms tensors one timestep at a time through the
Module interface: Forward produces the output for the current instant,
and stateful modules (the Soma membrane models, the fused SRM0 layer)
carry membrane state from step to step.  The Temporal container unrolls
a single-step module over the leading time axis of a sequence, Spatial
chains modules in depth order within a step, and Network sandwiches a
model between an analog-to-spike encoder and a spike-to-analog decoder.

Training is gradient-based: each Forward records what its Backward
needs, and Backward calls in reverse order replay the sequence,
substituting a surrogate (package surrogate) for the derivative of the
hard firing threshold and carrying membrane potential gradients across
timesteps for full backpropagation through time.  Reset restores state
values without touching the recorded steps; Detach truncates the
gradient history instead.

Data layout convention: analog data is [batch, ...]; spike sequences
are [timestep, batch, ...], the layout Temporal consumes and the
encoders produce.
*/
package snn
