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
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Group is one observation group: a set of simultaneously recorded spike
// tables, one per instrument channel. Wavelengths and Paths are parallel,
// ordered as the rows appear in the group index.
type Group struct {
	Number      int
	Wavelengths []int
	Paths       []string
}

// LoadGroupIndex reads a group index from r. The index is a CSV file with a
// header row and columns GroupNumber, Wavelength, and Path; rows sharing a
// GroupNumber form one group. Relative paths are resolved against dataDir;
// remote paths (see IsRemote) are left as given for later staging. Groups
// are returned in order of first appearance.
func LoadGroupIndex(r io.Reader, dataDir string) ([]Group, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("cospike: reading group index header: %v", err)
	}
	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"GroupNumber", "Wavelength", "Path"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("cospike: group index is missing column %s", name)
		}
	}
	var groups []Group
	byNumber := make(map[int]int) // group number to index in groups
	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("cospike: reading group index line %d: %v", line, err)
		}
		num, err := strconv.Atoi(strings.TrimSpace(rec[cols["GroupNumber"]]))
		if err != nil {
			return nil, fmt.Errorf("cospike: group index line %d: invalid group number: %v", line, err)
		}
		wl, err := strconv.Atoi(strings.TrimSpace(rec[cols["Wavelength"]]))
		if err != nil {
			return nil, fmt.Errorf("cospike: group index line %d: invalid wavelength: %v", line, err)
		}
		path := strings.TrimSpace(rec[cols["Path"]])
		if path == "" {
			return nil, fmt.Errorf("cospike: group index line %d: empty path", line)
		}
		if dataDir != "" && !filepath.IsAbs(path) && !IsRemote(path) {
			path = filepath.Join(dataDir, path)
		}
		i, ok := byNumber[num]
		if !ok {
			i = len(groups)
			byNumber[num] = i
			groups = append(groups, Group{Number: num})
		}
		groups[i].Wavelengths = append(groups[i].Wavelengths, wl)
		groups[i].Paths = append(groups[i].Paths, path)
	}
	return groups, nil
}

// IsRemote returns whether path names a remote location (an HTTP URL or a
// blob storage URL) rather than a local file path. Remote paths cannot be
// opened directly; they must be staged to local storage first.
func IsRemote(path string) bool {
	for _, scheme := range []string{"gs://", "s3://", "file://", "http://", "https://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}
