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

import "testing"

func TestSummarize(t *testing.T) {
	sets := []*ChannelSpikeSet{
		{Channel: 0, Spikes: make([]Spike, 3)},
		{Channel: 1, Spikes: make([]Spike, 2)},
	}
	results := []*CoincidenceResult{
		{Channel: 0, Coords: []int32{5}, Before: []int32{10}, After: []int32{1}, Counts: []int32{2}},
		{Channel: 1, Coords: []int32{6}, Before: []int32{20}, After: []int32{2}, Counts: []int32{3}},
	}
	s := Summarize(sets, results)
	if s.Channels != 2 {
		t.Errorf("channels: have %d, want 2", s.Channels)
	}
	if s.Input != 5 {
		t.Errorf("input: have %d, want 5", s.Input)
	}
	if s.Kept != 2 {
		t.Errorf("kept: have %d, want 2", s.Kept)
	}
	if s.KeptFrac != 0.4 {
		t.Errorf("kept fraction: have %g, want 0.4", s.KeptFrac)
	}
	if s.MeanCount != 2.5 {
		t.Errorf("mean count: have %g, want 2.5", s.MeanCount)
	}
	if s.MaxCount != 3 {
		t.Errorf("max count: have %g, want 3", s.MaxCount)
	}
	if s.MeanBefore != 15 {
		t.Errorf("mean before: have %g, want 15", s.MeanBefore)
	}
}

func TestSummarize_empty(t *testing.T) {
	s := Summarize(nil, nil)
	if s != (Summary{}) {
		t.Errorf("have %+v, want zero summary", s)
	}
}
