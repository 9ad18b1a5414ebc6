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

// Package viewlink synchronizes state between a master 3D view and the
// dependent views linked to it: camera, time step, result coloring and
// cell and property filters, including the translation of range filters
// between structured (IJK) grids and finite-element parts.
package viewlink

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Version gives the version number.
const Version = "1.2.0"

// geometryTolerance is the absolute and relative tolerance used when
// comparing coordinates.
const geometryTolerance = 1e-6

// Point3 is a location in model coordinates. Z is depth and increases
// with the K index.
type Point3 struct {
	X, Y, Z float64
}

func (p Point3) sub(q Point3) Point3 { return Point3{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z} }

func (p Point3) lenSq() float64 { return p.X*p.X + p.Y*p.Y + p.Z*p.Z }

// xy returns the horizontal projection of p.
func (p Point3) xy() geom.Point { return geom.Point{X: p.X, Y: p.Y} }

// Bounds3 is an axis-aligned bounding box.
type Bounds3 struct {
	Min, Max Point3
}

// NewBounds3 returns an empty bounding box that can be extended.
func NewBounds3() Bounds3 {
	return Bounds3{
		Min: Point3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: Point3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
}

// Empty returns true if b does not contain any points.
func (b Bounds3) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Extend increases the extent of b to include p.
func (b *Bounds3) Extend(p Point3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Center returns the center of b.
func (b Bounds3) Center() Point3 {
	return Point3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Contains returns whether p is inside b or within tol of its boundary.
func (b Bounds3) Contains(p Point3, tol float64) bool {
	return within(p.X, b.Min.X, b.Max.X, tol) &&
		within(p.Y, b.Min.Y, b.Max.Y, tol) &&
		within(p.Z, b.Min.Z, b.Max.Z, tol)
}

// xy returns the horizontal footprint of b.
func (b Bounds3) xy() *geom.Bounds {
	return &geom.Bounds{Min: b.Min.xy(), Max: b.Max.xy()}
}

func within(v, lo, hi, tol float64) bool {
	if v >= lo && v <= hi {
		return true
	}
	return floats.EqualWithinAbsOrRel(v, lo, tol, tol) || floats.EqualWithinAbsOrRel(v, hi, tol, tol)
}

// DomainKind identifies the kind of spatial domain a view shows.
type DomainKind int

// The domain kinds.
const (
	NoDomain DomainKind = iota
	EclipseDomain
	GeoMechDomain
)

func (k DomainKind) String() string {
	switch k {
	case EclipseDomain:
		return "eclipse"
	case GeoMechDomain:
		return "geomech"
	default:
		return "none"
	}
}

// Domain is a structured spatial domain whose cells can be addressed by
// zero-based (i, j, k) indices.
type Domain interface {
	Kind() DomainKind

	// ID identifies the domain. Two domains with the same ID are
	// interchangeable for mapping purposes.
	ID() string

	// Dims returns the number of cells along each axis.
	Dims() (ni, nj, nk int)

	Bounds() Bounds3

	// CellCentroid returns the centroid of cell (i, j, k), or false
	// if the indices are out of range.
	CellCentroid(i, j, k int) (Point3, bool)

	// FindCell returns the cell containing p, or false if p is outside
	// of the domain.
	FindCell(p Point3) (i, j, k int, ok bool)
}

// Case is a loaded simulation case: either an Eclipse case with a
// structured main grid or a GeoMech case with finite-element parts.
type Case struct {
	ID   string
	Name string

	// Grid is the main grid of an Eclipse case.
	Grid *StructuredGrid

	// Parts are the finite-element parts of a GeoMech case. Only the first
	// part takes part in filtering and mapping.
	Parts []*FemPart
}

// NewEclipseCase creates a case for a structured grid.
func NewEclipseCase(name string, grid *StructuredGrid) *Case {
	return &Case{ID: uuid.New().String(), Name: name, Grid: grid}
}

// NewGeoMechCase creates a case for a set of finite-element parts.
func NewGeoMechCase(name string, parts ...*FemPart) *Case {
	return &Case{ID: uuid.New().String(), Name: name, Parts: parts}
}

// Kind returns the kind of domain of c.
func (c *Case) Kind() DomainKind {
	switch {
	case c == nil:
		return NoDomain
	case c.Grid != nil:
		return EclipseDomain
	case len(c.Parts) > 0:
		return GeoMechDomain
	}
	return NoDomain
}

// Domain returns the grid or the first part of c, or nil if c has no
// geometry loaded.
func (c *Case) Domain() Domain {
	switch c.Kind() {
	case EclipseDomain:
		return c.Grid
	case GeoMechDomain:
		return c.Parts[0]
	}
	return nil
}

// FemPart returns the first finite-element part of c, or nil.
func (c *Case) FemPart() *FemPart {
	if c == nil || len(c.Parts) == 0 {
		return nil
	}
	return c.Parts[0]
}
