/*
Copyright © 2019 the ViewLink authors.
This file is part of ViewLink.

ViewLink is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ViewLink is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ViewLink.  If not, see <http://www.gnu.org/licenses/>.
*/

package viewlink

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// StructuredGrid is a rectilinear IJK grid, such as the main grid of an
// Eclipse case. Cell (i, j, k) spans [X[i], X[i+1]] x [Y[j], Y[j+1]] x
// [Z[k], Z[k+1]].
type StructuredGrid struct {
	id string

	// X, Y and Z hold the node coordinates along each axis. They are
	// strictly increasing and one longer than the cell count.
	X, Y, Z []float64
}

// NewStructuredGrid creates a grid from node coordinates along each axis.
func NewStructuredGrid(x, y, z []float64) (*StructuredGrid, error) {
	for _, a := range []struct {
		name string
		c    []float64
	}{{"X", x}, {"Y", y}, {"Z", z}} {
		if len(a.c) < 2 {
			return nil, fmt.Errorf("viewlink: grid axis %s needs at least 2 nodes but has %d", a.name, len(a.c))
		}
		for i := 1; i < len(a.c); i++ {
			if !(a.c[i] > a.c[i-1]) {
				return nil, fmt.Errorf("viewlink: grid axis %s is not strictly increasing at node %d", a.name, i)
			}
		}
	}
	return &StructuredGrid{id: uuid.New().String(), X: x, Y: y, Z: z}, nil
}

// NewRegularGrid creates a grid with ni x nj x nk cells of size
// dx x dy x dz whose minimum corner is at origin.
func NewRegularGrid(origin Point3, dx, dy, dz float64, ni, nj, nk int) (*StructuredGrid, error) {
	if ni < 1 || nj < 1 || nk < 1 {
		return nil, fmt.Errorf("viewlink: invalid grid dimensions %dx%dx%d", ni, nj, nk)
	}
	return NewStructuredGrid(axis(origin.X, dx, ni), axis(origin.Y, dy, nj), axis(origin.Z, dz, nk))
}

func axis(o, d float64, n int) []float64 {
	c := make([]float64, n+1)
	for i := range c {
		c[i] = o + d*float64(i)
	}
	return c
}

// Kind returns EclipseDomain.
func (g *StructuredGrid) Kind() DomainKind { return EclipseDomain }

// ID returns the identity of g. A StructuredGrid not made by its constructor
// is identified by its address.
func (g *StructuredGrid) ID() string {
	if g.id == "" {
		return fmt.Sprintf("%p", g)
	}
	return g.id
}

// Dims returns the number of cells along each axis.
func (g *StructuredGrid) Dims() (ni, nj, nk int) {
	return len(g.X) - 1, len(g.Y) - 1, len(g.Z) - 1
}

// CellCount returns the total number of cells.
func (g *StructuredGrid) CellCount() int {
	ni, nj, nk := g.Dims()
	return ni * nj * nk
}

// CellIndex returns the flat index of cell (i, j, k).
func (g *StructuredGrid) CellIndex(i, j, k int) int {
	ni, nj, _ := g.Dims()
	return i + j*ni + k*ni*nj
}

// CellIJK returns the (i, j, k) indices of flat cell index idx.
func (g *StructuredGrid) CellIJK(idx int) (i, j, k int) {
	ni, nj, _ := g.Dims()
	return idx % ni, (idx / ni) % nj, idx / (ni * nj)
}

// Bounds returns the bounding box of g.
func (g *StructuredGrid) Bounds() Bounds3 {
	return Bounds3{
		Min: Point3{X: g.X[0], Y: g.Y[0], Z: g.Z[0]},
		Max: Point3{X: g.X[len(g.X)-1], Y: g.Y[len(g.Y)-1], Z: g.Z[len(g.Z)-1]},
	}
}

// CellBounds returns the extent of cell (i, j, k).
func (g *StructuredGrid) CellBounds(i, j, k int) (Bounds3, bool) {
	if !g.inRange(i, j, k) {
		return Bounds3{}, false
	}
	return Bounds3{
		Min: Point3{X: g.X[i], Y: g.Y[j], Z: g.Z[k]},
		Max: Point3{X: g.X[i+1], Y: g.Y[j+1], Z: g.Z[k+1]},
	}, true
}

// CellCentroid returns the center of cell (i, j, k).
func (g *StructuredGrid) CellCentroid(i, j, k int) (Point3, bool) {
	b, ok := g.CellBounds(i, j, k)
	if !ok {
		return Point3{}, false
	}
	return b.Center(), true
}

// FindCell locates the cell containing p. Points on a shared face belong
// to the cell with the higher index.
func (g *StructuredGrid) FindCell(p Point3) (i, j, k int, ok bool) {
	if !g.Bounds().Contains(p, geometryTolerance) {
		return -1, -1, -1, false
	}
	return locate(g.X, p.X), locate(g.Y, p.Y), locate(g.Z, p.Z), true
}

func (g *StructuredGrid) inRange(i, j, k int) bool {
	ni, nj, nk := g.Dims()
	return i >= 0 && i < ni && j >= 0 && j < nj && k >= 0 && k < nk
}

// locate returns the index of the interval of the sorted node
// coordinates c that contains v, clamped to the valid cell range.
func locate(c []float64, v float64) int {
	i := sort.Search(len(c), func(n int) bool { return c[n] > v }) - 1
	if i < 0 {
		return 0
	}
	if i > len(c)-2 {
		return len(c) - 2
	}
	return i
}
