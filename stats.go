/*
Copyright © 2019 the Cospike authors.
This file is part of Cospike.

Cospike is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Cospike is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Cospike.  If not, see <http://www.gnu.org/licenses/>.
*/

package cospike

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds aggregate statistics over one group's coincidence results.
type Summary struct {
	Channels   int     // channels in the group
	Input      int     // spike records examined
	Kept       int     // coincidental records retained
	MeanCount  float64 // mean channel multiplicity among kept records
	MaxCount   float64 // largest channel multiplicity among kept records
	KeptFrac   float64 // Kept / Input; zero when Input is zero
	MeanBefore float64 // mean pre-spike intensity among kept records
}

// Summarize computes aggregate statistics for one group. Input counts the
// records in sets; kept statistics cover every record in results.
func Summarize(sets []*ChannelSpikeSet, results []*CoincidenceResult) Summary {
	s := Summary{Channels: len(sets)}
	for _, set := range sets {
		s.Input += len(set.Spikes)
	}
	var counts, before []float64
	for _, r := range results {
		s.Kept += len(r.Coords)
		for i := range r.Coords {
			counts = append(counts, float64(r.Counts[i]))
			before = append(before, float64(r.Before[i]))
		}
	}
	if s.Input > 0 {
		s.KeptFrac = float64(s.Kept) / float64(s.Input)
	}
	if len(counts) > 0 {
		s.MeanCount = stat.Mean(counts, nil)
		s.MaxCount = floats.Max(counts)
		s.MeanBefore = stat.Mean(before, nil)
	}
	return s
}
