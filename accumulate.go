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
	"fmt"

	"github.com/ctessum/sparse"
)

// MinCoSpikes is the smallest coincidence threshold that has cross-channel
// meaning: a coordinate must be reached by the neighborhoods of at least two
// different channels.
const MinCoSpikes = 2

// Hits holds the coincidental subset of one channel's spikes as parallel
// slices: Coords[i] is a coordinate of an original spike record, Index[i] is
// that record's position in the channel's original record list (used to look
// up its intensities), and Counts[i] is the number of distinct channels in
// the group whose neighborhood expansions reached Coords[i].
type Hits struct {
	Coords []int32
	Index  []int
	Counts []int32
}

// Accumulate decides, for each channel of an acquisition group, which of its
// original spike coordinates are coincidental across channels.
//
// Each channel's spike coordinates are expanded through nbr to the set of
// all cells within one hop of any of its spikes, deduplicated within the
// channel so that a channel contributes a given cell at most once no matter
// how many of its spikes neighbor it. The per-cell contribution counts are
// then accumulated across channels, and cells reached by at least nCoSpikes
// channels form the coincidental set. Finally each channel's original
// (non-expanded) coordinates are intersected against that set, recovering
// the original record index and the cell's multiplicity.
//
// The returned slice has one Hits per channel, in input channel order. A
// channel with no spikes, or a threshold no channel combination can reach,
// yields empty Hits, not an error.
func Accumulate(nbr *NeighborTable, group []*ChannelSpikeSet, nCoSpikes int) ([]Hits, error) {
	if nCoSpikes < MinCoSpikes {
		return nil, fmt.Errorf("cospike: coincidence threshold %d < %d", nCoSpikes, MinCoSpikes)
	}
	size := nbr.Size()
	for _, set := range group {
		if err := set.Check(size); err != nil {
			return nil, err
		}
	}

	// Count, for every grid cell, how many channels' neighborhood
	// expansions contain it. The counts are sparse on the 16-million-cell
	// grid: only cells near a spike are ever touched.
	counts := sparse.ZerosSparse(size)
	for _, set := range group {
		expanded := nbr.NeighborsMany(set.Coords())
		seen := make(map[int32]struct{}, len(expanded))
		for _, c := range expanded {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			counts.AddVal(1, int(c))
		}
	}

	coincidental := make(map[int32]int32)
	for c, v := range counts.Elements {
		if int(v) >= nCoSpikes {
			coincidental[int32(c)] = int32(v)
		}
	}

	// Map the channel-agnostic coincidental set back to each channel's
	// original records. Repeated coordinates within a channel claim only
	// their first record.
	out := make([]Hits, len(group))
	for k, set := range group {
		seen := make(map[int32]struct{}, len(set.Spikes))
		for i, sp := range set.Spikes {
			if _, ok := seen[sp.Coord]; ok {
				continue
			}
			seen[sp.Coord] = struct{}{}
			if n, ok := coincidental[sp.Coord]; ok {
				out[k].Coords = append(out[k].Coords, sp.Coord)
				out[k].Index = append(out[k].Index, i)
				out[k].Counts = append(out[k].Counts, n)
			}
		}
	}
	return out, nil
}

// AccumulateGroup runs Accumulate and assembles the per-channel results.
// groupNum identifies the acquisition group in any error messages.
func AccumulateGroup(nbr *NeighborTable, groupNum int, group []*ChannelSpikeSet, nCoSpikes int) ([]*CoincidenceResult, error) {
	hits, err := Accumulate(nbr, group, nCoSpikes)
	if err != nil {
		return nil, err
	}
	results := make([]*CoincidenceResult, len(group))
	for k, set := range group {
		results[k], err = Assemble(groupNum, k, set, hits[k])
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// HitImage expands a group's spikes onto the full grid and returns the
// per-cell channel multiplicity as a dense Ny×Nx array. It is a diagnostic
// for visualizing where coincidences concentrate; Accumulate itself never
// materializes the dense grid.
func HitImage(nbr *NeighborTable, group []*ChannelSpikeSet) (*sparse.DenseArray, error) {
	size := nbr.Size()
	for _, set := range group {
		if err := set.Check(size); err != nil {
			return nil, err
		}
	}
	img := sparse.ZerosDense(nbr.Ny, nbr.Nx)
	for _, set := range group {
		expanded := nbr.NeighborsMany(set.Coords())
		seen := make(map[int32]struct{}, len(expanded))
		for _, c := range expanded {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			img.Elements[c]++
		}
	}
	return img, nil
}
