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

// CoincidenceResult is the per-channel output of a group computation: the
// channel's coincidental coordinates with their original intensities and the
// number of channels that registered activity nearby. The four slices are
// parallel.
type CoincidenceResult struct {
	Channel int
	Coords  []int32
	Before  []int32
	After   []int32
	Counts  []int32
}

// LengthMismatchError reports accumulator output whose parallel slices
// disagree in length. It indicates a defect in the accumulator, not a
// recoverable input condition.
type LengthMismatchError struct {
	Group, Channel        int
	Coords, Index, Counts int
}

func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("cospike: group %d channel %d: mismatched accumulator output lengths coords=%d index=%d counts=%d",
		e.Group, e.Channel, e.Coords, e.Index, e.Counts)
}

// Assemble packages one channel's accumulator hits as a CoincidenceResult,
// looking up the before/after intensities of each hit by its original record
// index in set. No coincidence decision is made here; malformed hits (ragged
// slices, an index outside the record list) fail loudly rather than being
// truncated.
func Assemble(group, channel int, set *ChannelSpikeSet, h Hits) (*CoincidenceResult, error) {
	if len(h.Coords) != len(h.Index) || len(h.Index) != len(h.Counts) {
		return nil, LengthMismatchError{
			Group:   group,
			Channel: channel,
			Coords:  len(h.Coords),
			Index:   len(h.Index),
			Counts:  len(h.Counts),
		}
	}
	r := &CoincidenceResult{
		Channel: channel,
		Coords:  make([]int32, len(h.Coords)),
		Before:  make([]int32, len(h.Coords)),
		After:   make([]int32, len(h.Coords)),
		Counts:  make([]int32, len(h.Coords)),
	}
	for i, idx := range h.Index {
		if idx < 0 || idx >= len(set.Spikes) {
			return nil, fmt.Errorf("cospike: group %d channel %d: accumulator index %d outside record list of length %d",
				group, channel, idx, len(set.Spikes))
		}
		sp := set.Spikes[idx]
		if sp.Coord != h.Coords[i] {
			return nil, fmt.Errorf("cospike: group %d channel %d: accumulator coordinate %d does not match record %d coordinate %d",
				group, channel, h.Coords[i], idx, sp.Coord)
		}
		r.Coords[i] = sp.Coord
		r.Before[i] = sp.Before
		r.After[i] = sp.After
		r.Counts[i] = h.Counts[i]
	}
	return r, nil
}
