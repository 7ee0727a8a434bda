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

import "fmt"

// Spike is one anomalous-pixel record from a despiked exposure.
type Spike struct {
	Coord  int32 // flat row-major grid index
	Before int32 // intensity before despiking replacement
	After  int32 // intensity after despiking replacement
}

// ChannelSpikeSet holds the spike records of one wavelength channel of an
// acquisition group, in the order they were read from storage. Coordinates
// are not assumed unique; they are deduplicated during accumulation.
type ChannelSpikeSet struct {
	Channel    int // position of this channel within its group
	Wavelength int // instrument wavelength [Å]; informational only
	Spikes     []Spike
}

// Coords returns the raw spike coordinates of the channel, in record order.
func (s *ChannelSpikeSet) Coords() []int32 {
	o := make([]int32, len(s.Spikes))
	for i, sp := range s.Spikes {
		o[i] = sp.Coord
	}
	return o
}

// Check verifies that every coordinate of the channel is a valid flat index
// for a grid with size cells. An out-of-range coordinate is malformed input
// and fails the whole channel; clamping it would corrupt coincidence
// statistics at the grid extremes.
func (s *ChannelSpikeSet) Check(size int) error {
	for i, sp := range s.Spikes {
		if sp.Coord < 0 || int(sp.Coord) >= size {
			return fmt.Errorf("cospike: channel %d record %d: coordinate %d outside grid [0,%d)",
				s.Channel, i, sp.Coord, size)
		}
	}
	return nil
}

// FilterUnique returns the spikes whose coordinate occurs exactly once in
// the given list, preserving record order. It is the strict per-file
// sanitation step applied to raw spike tables that may contain repeated
// detections of the same pixel.
func FilterUnique(spikes []Spike) []Spike {
	count := make(map[int32]int, len(spikes))
	for _, sp := range spikes {
		count[sp.Coord]++
	}
	o := make([]Spike, 0, len(spikes))
	for _, sp := range spikes {
		if count[sp.Coord] == 1 {
			o = append(o, sp)
		}
	}
	return o
}
