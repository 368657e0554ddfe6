// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"io"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// SpikeTable summarizes a spike sequence [T, batch, ...] into a table
// with one row per timestep: the mean firing rate and the total spike
// count across all units at that step.  Useful for logging and
// plotting the activity of a layer or of an encoder's output.
func SpikeTable(o *etensor.Float32) *etable.Table {
	steps := o.Dim(0)
	n := o.Len() / steps
	dt := &etable.Table{}
	dt.SetMetaData("name", "SpikeTable")
	dt.SetMetaData("read-only", "true")
	sch := etable.Schema{
		{"Step", etensor.INT64, nil, nil},
		{"Rate", etensor.FLOAT64, nil, nil},
		{"Count", etensor.FLOAT64, nil, nil},
	}
	dt.SetFromSchema(sch, steps)
	for t := 0; t < steps; t++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += float64(o.Values[t*n+i])
		}
		dt.SetCellFloat("Step", t, float64(t))
		dt.SetCellFloat("Rate", t, sum/float64(n))
		dt.SetCellFloat("Count", t, sum)
	}
	return dt
}

// WriteSpikeCSV writes the SpikeTable summary of a spike sequence to w
// in tab-separated form with headers.
func WriteSpikeCSV(w io.Writer, o *etensor.Float32) error {
	return SpikeTable(o).WriteCSV(w, etable.Tab, etable.Headers)
}
