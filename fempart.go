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
	"math"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/google/uuid"
)

// FemPart is a finite-element part of a GeoMech case made up of 8-node
// hexahedral elements. The elements are laid out on a structured
// ni x nj x nk element grid, so element index n corresponds to
// i + j*ni + k*ni*nj.
type FemPart struct {
	id string

	Nodes    []Point3
	Elements [][8]int

	ni, nj, nk int

	indexOnce sync.Once
	index     *rtree.Rtree
	centroids []Point3
	bounds    Bounds3
}

// elementBox is the spatial index entry for one element.
type elementBox struct {
	geom.Geom
	element    int
	zMin, zMax float64
}

// NewFemPart creates a part from node coordinates and element
// connectivity.
func NewFemPart(nodes []Point3, elements [][8]int, ni, nj, nk int) (*FemPart, error) {
	if ni < 1 || nj < 1 || nk < 1 {
		return nil, fmt.Errorf("viewlink: invalid element grid dimensions %dx%dx%d", ni, nj, nk)
	}
	if len(elements) != ni*nj*nk {
		return nil, fmt.Errorf("viewlink: %d elements do not fit a %dx%dx%d element grid", len(elements), ni, nj, nk)
	}
	for e, conn := range elements {
		for _, n := range conn {
			if n < 0 || n >= len(nodes) {
				return nil, fmt.Errorf("viewlink: element %d refers to node %d of %d", e, n, len(nodes))
			}
		}
	}
	return &FemPart{
		id:       uuid.New().String(),
		Nodes:    nodes,
		Elements: elements,
		ni:       ni, nj: nj, nk: nk,
	}, nil
}

// FemPartFromGrid creates a part with one element per cell of g, sharing
// its geometry.
func FemPartFromGrid(g *StructuredGrid) *FemPart {
	ni, nj, nk := g.Dims()
	node := func(i, j, k int) int { return i + j*(ni+1) + k*(ni+1)*(nj+1) }
	nodes := make([]Point3, 0, (ni+1)*(nj+1)*(nk+1))
	for k := 0; k <= nk; k++ {
		for j := 0; j <= nj; j++ {
			for i := 0; i <= ni; i++ {
				nodes = append(nodes, Point3{X: g.X[i], Y: g.Y[j], Z: g.Z[k]})
			}
		}
	}
	elements := make([][8]int, 0, ni*nj*nk)
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				elements = append(elements, [8]int{
					node(i, j, k), node(i+1, j, k), node(i+1, j+1, k), node(i, j+1, k),
					node(i, j, k+1), node(i+1, j, k+1), node(i+1, j+1, k+1), node(i, j+1, k+1),
				})
			}
		}
	}
	p, err := NewFemPart(nodes, elements, ni, nj, nk)
	if err != nil {
		panic(err) // The connectivity above is valid by construction.
	}
	return p
}

// Kind returns GeoMechDomain.
func (p *FemPart) Kind() DomainKind { return GeoMechDomain }

// ID returns the identity of p. A FemPart not made by its constructor
// is identified by its address.
func (p *FemPart) ID() string {
	if p.id == "" {
		return fmt.Sprintf("%p", p)
	}
	return p.id
}

// Dims returns the size of the structured element grid.
func (p *FemPart) Dims() (ni, nj, nk int) { return p.ni, p.nj, p.nk }

// ElementCount returns the number of elements.
func (p *FemPart) ElementCount() int { return len(p.Elements) }

// ElementIndex returns the element at structured position (i, j, k),
// or -1 if the position is out of range.
func (p *FemPart) ElementIndex(i, j, k int) int {
	if i < 0 || i >= p.ni || j < 0 || j >= p.nj || k < 0 || k >= p.nk {
		return -1
	}
	return i + j*p.ni + k*p.ni*p.nj
}

// ElementIJK returns the structured position of element e.
func (p *FemPart) ElementIJK(e int) (i, j, k int) {
	return e % p.ni, (e / p.ni) % p.nj, e / (p.ni * p.nj)
}

// Bounds returns the bounding box of all elements.
func (p *FemPart) Bounds() Bounds3 {
	p.buildIndex()
	return p.bounds
}

// ElementCentroid returns the average of the nodes of element e.
func (p *FemPart) ElementCentroid(e int) (Point3, bool) {
	if e < 0 || e >= len(p.Elements) {
		return Point3{}, false
	}
	p.buildIndex()
	return p.centroids[e], true
}

// CellCentroid returns the centroid of the element at (i, j, k).
func (p *FemPart) CellCentroid(i, j, k int) (Point3, bool) {
	return p.ElementCentroid(p.ElementIndex(i, j, k))
}

// FindElement returns the element containing pt. When several element
// bounding boxes contain the point, the one with the nearest centroid
// wins.
func (p *FemPart) FindElement(pt Point3) (int, bool) {
	p.buildIndex()
	if !p.bounds.Contains(pt, geometryTolerance) {
		return -1, false
	}
	best, bestDist := -1, math.Inf(1)
	for _, c := range p.index.SearchIntersect(rtree.ToRect(pt.xy(), geometryTolerance)) {
		eb := c.(*elementBox)
		if !within(pt.Z, eb.zMin, eb.zMax, geometryTolerance) {
			continue
		}
		if d := pt.sub(p.centroids[eb.element]).lenSq(); d < bestDist {
			best, bestDist = eb.element, d
		}
	}
	return best, best >= 0
}

// FindCell returns the structured position of the element containing pt.
func (p *FemPart) FindCell(pt Point3) (i, j, k int, ok bool) {
	e, ok := p.FindElement(pt)
	if !ok {
		return -1, -1, -1, false
	}
	i, j, k = p.ElementIJK(e)
	return i, j, k, true
}

// buildIndex computes element centroids and bounds and loads the element
// footprints into an R-tree.
func (p *FemPart) buildIndex() {
	p.indexOnce.Do(func() {
		p.index = rtree.NewTree(25, 50)
		p.centroids = make([]Point3, len(p.Elements))
		p.bounds = NewBounds3()
		for e, conn := range p.Elements {
			b := NewBounds3()
			var c Point3
			for _, n := range conn {
				pt := p.Nodes[n]
				b.Extend(pt)
				c.X += pt.X
				c.Y += pt.Y
				c.Z += pt.Z
			}
			p.centroids[e] = Point3{X: c.X / 8, Y: c.Y / 8, Z: c.Z / 8}
			p.bounds.Extend(b.Min)
			p.bounds.Extend(b.Max)
			p.index.Insert(&elementBox{
				Geom:    b.xy(),
				element: e,
				zMin:    b.Min.Z,
				zMax:    b.Max.Z,
			})
		}
	})
}
