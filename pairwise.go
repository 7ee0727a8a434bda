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

// Attribution is one coincidental spike of a home channel together with the
// identity of the other channels that matched it. Matched has one element
// per channel in the group, in group order; Matched[home] is always true,
// and at least one other element is true.
type Attribution struct {
	Coord         int32
	Before, After int32
	Matched       []bool
}

// AttributionSet holds the pairwise coincidence decisions for one home
// channel of a group.
type AttributionSet struct {
	Channel int
	Spikes  []Attribution
}

// AccumulatePairwise is the attribution-preserving alternative to
// Accumulate. For each channel of the group in turn as the "home" channel,
// each of its spikes' 9-neighborhoods is tested against the raw spike
// coordinates of every other channel, and the spike is kept if any other
// channel matches, together with the full per-channel match row.
//
// Home channels are processed in ascending channel index order, and a
// coordinate kept by an earlier home channel is excluded from later home
// channels' own spike lists, so each shared coincidental coordinate is
// claimed exactly once, by the lowest-indexed channel containing it.
//
// Because the 8-neighborhood is symmetric away from the grid boundary,
// testing home neighborhoods against raw coordinates makes the same
// membership decision as Accumulate with a threshold of 2, before the claim
// exclusion is applied, while additionally recording which channels matched.
func AccumulatePairwise(nbr *NeighborTable, group []*ChannelSpikeSet) ([]AttributionSet, error) {
	size := nbr.Size()
	for _, set := range group {
		if err := set.Check(size); err != nil {
			return nil, err
		}
	}

	raw := make([]map[int32]struct{}, len(group))
	for k, set := range group {
		raw[k] = make(map[int32]struct{}, len(set.Spikes))
		for _, sp := range set.Spikes {
			raw[k][sp.Coord] = struct{}{}
		}
	}

	claimed := make(map[int32]struct{})
	out := make([]AttributionSet, len(group))
	for w, set := range group {
		out[w].Channel = w
		seen := make(map[int32]struct{}, len(set.Spikes))
		for _, sp := range set.Spikes {
			if _, ok := seen[sp.Coord]; ok {
				continue
			}
			seen[sp.Coord] = struct{}{}
			if _, ok := claimed[sp.Coord]; ok {
				continue
			}
			hood := nbr.Neighbors(sp.Coord)
			matched := make([]bool, len(group))
			matched[w] = true
			any := false
			for j := range group {
				if j == w {
					continue
				}
				for _, c := range hood {
					if _, ok := raw[j][c]; ok {
						matched[j] = true
						any = true
						break
					}
				}
			}
			if !any {
				continue
			}
			out[w].Spikes = append(out[w].Spikes, Attribution{
				Coord:   sp.Coord,
				Before:  sp.Before,
				After:   sp.After,
				Matched: matched,
			})
			claimed[sp.Coord] = struct{}{}
		}
	}
	return out, nil
}
