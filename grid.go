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

// Package cospike identifies coincidental anomalous-pixel events ("spikes")
// that appear at spatially nearby locations across the wavelength channels of
// an acquisition group on a fixed-size detector grid, and separates them from
// spikes that occur in only one channel.
package cospike

import "fmt"

// DefaultGridSize is the edge length of the detector on current instruments.
const DefaultGridSize = 4096

// neighborOffsets are the relative (row, col) positions making up the
// 8-connectivity neighborhood of a pixel. The first entry is the origin
// pixel itself.
var neighborOffsets = [9][2]int{
	{0, 0}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// NeighborTable maps every cell of an Ny×Nx pixel grid to the flat indices of
// its 8 geometric neighbors plus itself. Pixels are addressed by flat
// row-major indices (index = row*Nx + col). Neighbor positions falling
// outside the grid are clamped coordinate-wise to the nearest in-range
// row/col, so cells on the boundary list themselves (or a boundary
// row/column cell) more than once among their 9 entries.
//
// The table is built once and never modified afterwards, so it is safe for
// unsynchronized concurrent use by any number of workers.
type NeighborTable struct {
	Ny, Nx int

	// index holds the 9×(Ny*Nx) lookup table in offset-major order:
	// index[o*Ny*Nx+c] is the o'th neighbor of cell c.
	index []int32
}

// NewNeighborTable builds the neighbor lookup table for an ny×nx grid.
// Building the default 4096×4096 table allocates 9*ny*nx int32s, which is
// the dominant static memory cost of the model; build it once at startup
// and share it.
func NewNeighborTable(ny, nx int) (*NeighborTable, error) {
	if ny <= 0 || nx <= 0 {
		return nil, fmt.Errorf("cospike: invalid grid dimensions %d×%d; both must be positive", ny, nx)
	}
	n := ny * nx
	t := &NeighborTable{
		Ny:    ny,
		Nx:    nx,
		index: make([]int32, 9*n),
	}
	for o, offset := range neighborOffsets {
		dr, dc := offset[0], offset[1]
		block := t.index[o*n : (o+1)*n]
		for c := 0; c < n; c++ {
			row := c/nx + dr
			col := c%nx + dc
			if row < 0 {
				row = 0
			} else if row >= ny {
				row = ny - 1
			}
			if col < 0 {
				col = 0
			} else if col >= nx {
				col = nx - 1
			}
			block[c] = int32(row*nx + col)
		}
	}
	return t, nil
}

// Size returns the total number of grid cells.
func (t *NeighborTable) Size() int { return t.Ny * t.Nx }

// Neighbors returns the 9 flat indices of the neighborhood of cell c,
// beginning with c itself. c must be in [0, Size).
func (t *NeighborTable) Neighbors(c int32) [9]int32 {
	n := t.Size()
	var out [9]int32
	for o := 0; o < 9; o++ {
		out[o] = t.index[o*n+int(c)]
	}
	return out
}

// NeighborsMany returns the neighborhoods of all of the given cells as a
// flat 9×len(coords) matrix in offset-major order: element o*len(coords)+i
// is the o'th neighbor of coords[i]. The batch form avoids per-cell call
// overhead when expanding the tens of thousands of spikes in a channel.
func (t *NeighborTable) NeighborsMany(coords []int32) []int32 {
	n := t.Size()
	out := make([]int32, 9*len(coords))
	for o := 0; o < 9; o++ {
		block := t.index[o*n : (o+1)*n]
		outBlock := out[o*len(coords) : (o+1)*len(coords)]
		for i, c := range coords {
			outBlock[i] = block[c]
		}
	}
	return out
}
