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
	"reflect"
	"testing"
)

func TestAccumulatePairwise(t *testing.T) {
	// 8×8 grid. Channels 0 and 1 have diagonally adjacent spikes at 9
	// (row 1, col 1) and 18 (row 2, col 2); channel 2 has an isolated
	// spike at 45.
	nbr := testTable(t, 8, 8)
	group := []*ChannelSpikeSet{
		{Channel: 0, Spikes: []Spike{{Coord: 9, Before: 700, After: 10}}},
		{Channel: 1, Spikes: []Spike{{Coord: 18, Before: 600, After: 20}}},
		{Channel: 2, Spikes: []Spike{{Coord: 45, Before: 500, After: 30}}},
	}
	sets, err := AccumulatePairwise(nbr, group)
	if err != nil {
		t.Fatal(err)
	}
	want := []AttributionSet{
		{Channel: 0, Spikes: []Attribution{
			{Coord: 9, Before: 700, After: 10, Matched: []bool{true, true, false}},
		}},
		{Channel: 1, Spikes: []Attribution{
			{Coord: 18, Before: 600, After: 20, Matched: []bool{true, true, false}},
		}},
		{Channel: 2},
	}
	if !reflect.DeepEqual(sets, want) {
		t.Errorf("have %v, want %v", sets, want)
	}
}

// A coordinate present in multiple channels is claimed by the
// lowest-indexed channel and excluded from the others.
func TestAccumulatePairwise_claimOrder(t *testing.T) {
	nbr := testTable(t, 8, 8)
	group := []*ChannelSpikeSet{
		{Channel: 0, Spikes: []Spike{{Coord: 9, Before: 1}}},
		{Channel: 1, Spikes: []Spike{{Coord: 9, Before: 2}}},
	}
	sets, err := AccumulatePairwise(nbr, group)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets[0].Spikes) != 1 {
		t.Fatalf("channel 0: have %d spikes, want 1", len(sets[0].Spikes))
	}
	if sets[0].Spikes[0].Before != 1 {
		t.Errorf("channel 0 kept the wrong record: %v", sets[0].Spikes[0])
	}
	if len(sets[1].Spikes) != 0 {
		t.Errorf("channel 1: have %v, want empty; coordinate 9 was already claimed", sets[1].Spikes)
	}
}

// An in-channel duplicate coordinate produces a single attribution.
func TestAccumulatePairwise_inChannelDuplicate(t *testing.T) {
	nbr := testTable(t, 8, 8)
	group := []*ChannelSpikeSet{
		{Channel: 0, Spikes: []Spike{{Coord: 9, Before: 1}, {Coord: 9, Before: 2}}},
		{Channel: 1, Spikes: []Spike{{Coord: 18}}},
	}
	sets, err := AccumulatePairwise(nbr, group)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets[0].Spikes) != 1 {
		t.Fatalf("channel 0: have %d spikes, want 1", len(sets[0].Spikes))
	}
	if sets[0].Spikes[0].Before != 1 {
		t.Errorf("channel 0 kept the wrong record: %v", sets[0].Spikes[0])
	}
}

// With no coordinate shared between channels, pairwise attribution keeps
// exactly the coordinates a threshold-2 accumulation keeps.
func TestAccumulatePairwise_matchesAccumulate(t *testing.T) {
	nbr := testTable(t, 8, 8)
	group := []*ChannelSpikeSet{
		{Channel: 0, Spikes: []Spike{{Coord: 9}, {Coord: 36}, {Coord: 62}}},
		{Channel: 1, Spikes: []Spike{{Coord: 18}, {Coord: 55}}},
		{Channel: 2, Spikes: []Spike{{Coord: 0}}},
	}

	hits, err := Accumulate(nbr, group, 2)
	if err != nil {
		t.Fatal(err)
	}
	sets, err := AccumulatePairwise(nbr, group)
	if err != nil {
		t.Fatal(err)
	}

	for k := range group {
		var pairwise []int32
		for _, sp := range sets[k].Spikes {
			pairwise = append(pairwise, sp.Coord)
		}
		if !reflect.DeepEqual(pairwise, hits[k].Coords) {
			t.Errorf("channel %d: pairwise kept %v, accumulate kept %v", k, pairwise, hits[k].Coords)
		}
	}
}

func TestAccumulatePairwise_outOfRangeCoordinate(t *testing.T) {
	nbr := testTable(t, 4, 4)
	group := []*ChannelSpikeSet{
		{Channel: 0, Spikes: []Spike{{Coord: -2}}},
	}
	if _, err := AccumulatePairwise(nbr, group); err == nil {
		t.Error("expected error for out-of-range coordinate")
	}
}
