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

package cospikeutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/solarmodel/cospike"
	"github.com/spf13/cobra"
)

func TestFilter(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	outDir := filepath.Join(dir, "out")

	inputs := []struct {
		name       string
		wavelength string
		spikes     []cospike.Spike
	}{
		{"aia_spikes_171.nc", "171", []cospike.Spike{{Coord: 5, Before: 900, After: 10}}},
		{"aia_spikes_193.nc", "193", []cospike.Spike{{Coord: 6, Before: 800, After: 20}}},
	}
	index := "GroupNumber,Wavelength,Path\n"
	for _, in := range inputs {
		ff, err := os.Create(filepath.Join(dir, in.name))
		if err != nil {
			t.Fatal(err)
		}
		if err := cospike.WriteSpikeTable(ff, &cospike.ChannelSpikeSet{Spikes: in.spikes}); err != nil {
			t.Fatal(err)
		}
		ff.Close()
		index += "1," + in.wavelength + "," + in.name + "\n"
	}
	spikeDB := filepath.Join(dir, "spikedb.csv")
	if err := ioutil.WriteFile(spikeDB, []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	cmd.SetOutput(ioutil.Discard)
	err = Filter(cmd, filepath.Join(outDir, "cospike.log"), spikeDB, dir, outDir,
		4, 4, 2, 1, 0, -1, nil, false, false)
	if err != nil {
		t.Fatal(err)
	}

	rf, err := os.Open(filepath.Join(outDir, "aia_filtered2_171.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	r, err := cospike.ReadFiltered(rf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Coords, []int32{5}) || !reflect.DeepEqual(r.Counts, []int32{2}) {
		t.Errorf("unexpected filtered table %v", r)
	}

	if _, err := os.Stat(filepath.Join(outDir, "cospike.log")); err != nil {
		t.Errorf("log file was not written: %v", err)
	}
}

func TestFilter_attribution(t *testing.T) {
	dir, err := ioutil.TempDir("", "cospike")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	outDir := filepath.Join(dir, "out")

	spikes := map[string][]cospike.Spike{
		"aia_spikes_171.nc": {{Coord: 5, Before: 900, After: 10}},
		"aia_spikes_193.nc": {{Coord: 6, Before: 800, After: 20}},
	}
	index := "GroupNumber,Wavelength,Path\n1,171,aia_spikes_171.nc\n1,193,aia_spikes_193.nc\n"
	for name, sp := range spikes {
		ff, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := cospike.WriteSpikeTable(ff, &cospike.ChannelSpikeSet{Spikes: sp}); err != nil {
			t.Fatal(err)
		}
		ff.Close()
	}
	spikeDB := filepath.Join(dir, "spikedb.csv")
	if err := ioutil.WriteFile(spikeDB, []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	cmd.SetOutput(ioutil.Discard)
	err = Filter(cmd, filepath.Join(outDir, "cospike.log"), spikeDB, dir, outDir,
		4, 4, 2, 1, 0, -1, nil, false, true)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "aia_attributed_171.nc")); err != nil {
		t.Errorf("attribution table was not written: %v", err)
	}
}
