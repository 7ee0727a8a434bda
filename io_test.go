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
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSpikeTableRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	want := &ChannelSpikeSet{Spikes: []Spike{
		{Coord: 5, Before: 900, After: 10},
		{Coord: 4093, Before: 850, After: 20},
		{Coord: 0, Before: 700, After: 30},
	}}
	name := filepath.Join(dir, "aia_spikes_171.nc")
	ff, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSpikeTable(ff, want); err != nil {
		t.Fatal(err)
	}
	ff.Close()

	rf, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	have, err := ReadSpikeTable(rf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have.Spikes, want.Spikes) {
		t.Errorf("have %v, want %v", have.Spikes, want.Spikes)
	}
}

func TestFilteredRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	want := &CoincidenceResult{
		Channel: 0,
		Coords:  []int32{5, 9},
		Before:  []int32{900, 850},
		After:   []int32{10, 20},
		Counts:  []int32{2, 3},
	}
	name := filepath.Join(dir, "aia_filtered2_171.nc")
	ff, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFiltered(ff, want); err != nil {
		t.Fatal(err)
	}
	ff.Close()

	rf, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	have, err := ReadFiltered(rf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have.Coords, want.Coords) ||
		!reflect.DeepEqual(have.Before, want.Before) ||
		!reflect.DeepEqual(have.After, want.After) ||
		!reflect.DeepEqual(have.Counts, want.Counts) {
		t.Errorf("have %v, want %v", have, want)
	}
}

// A channel with no coincidental spikes still gets an output table; its
// "spike" dimension has zero length.
func TestFilteredRoundTrip_empty(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "aia_filtered2_171.nc")
	ff, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFiltered(ff, &CoincidenceResult{Channel: 0}); err != nil {
		t.Fatal(err)
	}
	ff.Close()

	rf, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	have, err := ReadFiltered(rf)
	if err != nil {
		t.Fatal(err)
	}
	if len(have.Coords) != 0 || len(have.Before) != 0 ||
		len(have.After) != 0 || len(have.Counts) != 0 {
		t.Errorf("empty table read back non-empty: %v", have)
	}
}

func TestFilteredName(t *testing.T) {
	tests := []struct {
		path, outputDir string
		nCoSpikes       int
		want            string
	}{
		{
			path:      "/data/aia_spikes_171_2019.nc",
			outputDir: "/out",
			nCoSpikes: 2,
			want:      filepath.Join("/out", "aia_filtered2_171_2019.nc"),
		},
		{
			path:      "aia_spikes.nc",
			outputDir: "out",
			nCoSpikes: 4,
			want:      filepath.Join("out", "aia_filtered4.nc"),
		},
		{
			path:      "table_171.nc",
			outputDir: "out",
			nCoSpikes: 2,
			want:      filepath.Join("out", "filtered2_table_171.nc"),
		},
	}
	for _, test := range tests {
		have := FilteredName(test.path, test.outputDir, test.nCoSpikes)
		if have != test.want {
			t.Errorf("FilteredName(%q): have %q, want %q", test.path, have, test.want)
		}
	}
}

func TestAttributionName(t *testing.T) {
	have := AttributionName("/data/aia_spikes_171.nc", "/out")
	want := filepath.Join("/out", "aia_attributed_171.nc")
	if have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	have = AttributionName("table.nc", "out")
	want = filepath.Join("out", "attributed_table.nc")
	if have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestClean(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"aia_filtered2_171.nc", "aia_attributed_171.nc", "cospike.log"} {
		if err := ioutil.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Clean(dir); err != nil {
		t.Fatal(err)
	}
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory not empty after Clean: %v", names)
	}

	if err := Clean(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing directory: unexpected error %v", err)
	}
}
