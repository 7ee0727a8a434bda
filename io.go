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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
)

// Spike table files are netCDF classic files holding parallel int32
// variables along a "spike" dimension. Input tables have coords, before,
// and after; filtered tables add counts; attribution tables add a matched
// flag matrix along a second "channel" dimension.

// WriteSpikeTable writes the spike records in set to ff as a netcdf file.
func WriteSpikeTable(ff *os.File, set *ChannelSpikeSet) error {
	n := len(set.Spikes)
	h := cdf.NewHeader([]string{"spike"}, []int{n})
	for _, v := range []string{"coords", "before", "after"} {
		h.AddVariable(v, []string{"spike"}, []int32{0})
	}
	h.AddAttribute("coords", "description", "flattened row-major pixel coordinates")
	h.AddAttribute("before", "description", "pixel intensity before despiking")
	h.AddAttribute("after", "description", "pixel intensity after despiking")
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("cospike: creating spike table header: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("cospike: creating spike table: %v", err)
	}
	coords := make([]int32, n)
	before := make([]int32, n)
	after := make([]int32, n)
	for i, sp := range set.Spikes {
		coords[i] = sp.Coord
		before[i] = sp.Before
		after[i] = sp.After
	}
	data := [][]int32{coords, before, after}
	for i, v := range []string{"coords", "before", "after"} {
		if err := writeVarInt32(f, v, data[i]); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("cospike: finalizing spike table: %v", err)
	}
	return nil
}

// ReadSpikeTable reads a spike table written by WriteSpikeTable. The
// channel and wavelength of the returned set are left for the caller to
// fill in from the group index.
func ReadSpikeTable(r cdf.ReaderWriterAt) (*ChannelSpikeSet, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("cospike: opening spike table: %v", err)
	}
	coords, err := readVarInt32(f, "coords")
	if err != nil {
		return nil, err
	}
	before, err := readVarInt32(f, "before")
	if err != nil {
		return nil, err
	}
	after, err := readVarInt32(f, "after")
	if err != nil {
		return nil, err
	}
	if len(before) != len(coords) || len(after) != len(coords) {
		return nil, fmt.Errorf("cospike: reading spike table: mismatched variable lengths coords=%d before=%d after=%d",
			len(coords), len(before), len(after))
	}
	set := &ChannelSpikeSet{Spikes: make([]Spike, len(coords))}
	for i := range coords {
		set.Spikes[i] = Spike{Coord: coords[i], Before: before[i], After: after[i]}
	}
	return set, nil
}

// WriteFiltered writes one channel's coincidence result to ff as a netcdf
// file with the same layout as an input spike table plus a counts variable.
func WriteFiltered(ff *os.File, r *CoincidenceResult) error {
	n := len(r.Coords)
	h := cdf.NewHeader([]string{"spike"}, []int{n})
	for _, v := range []string{"coords", "before", "after", "counts"} {
		h.AddVariable(v, []string{"spike"}, []int32{0})
	}
	h.AddAttribute("counts", "description", "number of channels with a spike in the surrounding neighborhood")
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("cospike: creating filtered table header: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("cospike: creating filtered table: %v", err)
	}
	data := [][]int32{r.Coords, r.Before, r.After, r.Counts}
	for i, v := range []string{"coords", "before", "after", "counts"} {
		if err := writeVarInt32(f, v, data[i]); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("cospike: finalizing filtered table: %v", err)
	}
	return nil
}

// ReadFiltered reads a table written by WriteFiltered.
func ReadFiltered(r cdf.ReaderWriterAt) (*CoincidenceResult, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("cospike: opening filtered table: %v", err)
	}
	res := new(CoincidenceResult)
	dst := []*[]int32{&res.Coords, &res.Before, &res.After, &res.Counts}
	for i, v := range []string{"coords", "before", "after", "counts"} {
		if *dst[i], err = readVarInt32(f, v); err != nil {
			return nil, err
		}
	}
	if len(res.Before) != len(res.Coords) || len(res.After) != len(res.Coords) ||
		len(res.Counts) != len(res.Coords) {
		return nil, fmt.Errorf("cospike: reading filtered table: mismatched variable lengths")
	}
	return res, nil
}

// WriteAttribution writes one channel's pairwise attribution result to ff.
// wavelengths gives the wavelength of each channel in the group, in channel
// order, and sets the width of the matched flag matrix.
func WriteAttribution(ff *os.File, set *AttributionSet, wavelengths []int) error {
	n := len(set.Spikes)
	nch := len(wavelengths)
	h := cdf.NewHeader([]string{"spike", "channel"}, []int{n, nch})
	for _, v := range []string{"coords", "before", "after"} {
		h.AddVariable(v, []string{"spike"}, []int32{0})
	}
	h.AddVariable("matched", []string{"spike", "channel"}, []int32{0})
	h.AddAttribute("matched", "description", "1 where the channel has a spike in the surrounding neighborhood")
	h.AddVariable("wavelengths", []string{"channel"}, []int32{0})
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("cospike: creating attribution table header: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("cospike: creating attribution table: %v", err)
	}
	coords := make([]int32, n)
	before := make([]int32, n)
	after := make([]int32, n)
	matched := make([]int32, n*nch)
	for i, sp := range set.Spikes {
		coords[i] = sp.Coord
		before[i] = sp.Before
		after[i] = sp.After
		for j, m := range sp.Matched {
			if m {
				matched[i*nch+j] = 1
			}
		}
	}
	w := make([]int32, nch)
	for i, wl := range wavelengths {
		w[i] = int32(wl)
	}
	data := [][]int32{coords, before, after, matched, w}
	for i, v := range []string{"coords", "before", "after", "matched", "wavelengths"} {
		if err := writeVarInt32(f, v, data[i]); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("cospike: finalizing attribution table: %v", err)
	}
	return nil
}

func writeVarInt32(f *cdf.File, v string, data []int32) error {
	if len(data) == 0 {
		return nil
	}
	end := f.Header.Lengths(v)
	w := f.Writer(v, make([]int, len(end)), end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("cospike: writing variable %s: %v", v, err)
	}
	return nil
}

func readVarInt32(f *cdf.File, v string) ([]int32, error) {
	if f.Header.Lengths(v)[0] == 0 {
		return nil, nil
	}
	r := f.Reader(v, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("cospike: reading variable %s: %v", v, err)
	}
	d, ok := buf.([]int32)
	if !ok {
		return nil, fmt.Errorf("cospike: variable %s is not an integer variable", v)
	}
	return d, nil
}

// FilteredName derives the output file name for a filtered spike table from
// the input path: the base name's "spikes" token is replaced with
// "filtered<n>" where n is the channel coincidence threshold, and the file
// is placed in outputDir. If the base name does not contain "spikes", the
// "filtered<n>_" prefix is prepended instead.
func FilteredName(path, outputDir string, nCoSpikes int) string {
	base := filepath.Base(path)
	tag := fmt.Sprintf("filtered%d", nCoSpikes)
	if strings.Contains(base, "spikes") {
		base = strings.Replace(base, "spikes", tag, 1)
	} else {
		base = tag + "_" + base
	}
	return filepath.Join(outputDir, base)
}

// Clean empties the output directory dir, removing filtered and attribution
// tables along with any log files written alongside them. Missing
// directories are not an error.
func Clean(dir string) error {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cospike: cleaning %s: %v", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("cospike: cleaning %s: %v", dir, err)
		}
	}
	return nil
}
