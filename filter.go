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

import "github.com/ctessum/geom"

// FilterMode specifies whether a filter includes or excludes the cells
// it selects.
type FilterMode int

// The filter modes.
const (
	Include FilterMode = iota
	Exclude
)

func (m FilterMode) String() string {
	if m == Exclude {
		return "exclude"
	}
	return "include"
}

// FilterKind discriminates the variants of FilterSpec.
type FilterKind int

// The filter kinds.
const (
	RangeFilterKind FilterKind = iota + 1
	PropertyFilterKind
	PolygonFilterKind
)

func (k FilterKind) String() string {
	switch k {
	case RangeFilterKind:
		return "range"
	case PropertyFilterKind:
		return "property"
	case PolygonFilterKind:
		return "polygon"
	}
	return "unknown"
}

// FilterSpec holds the kind-specific part of a Filter. It is implemented
// only by *RangeFilter, *PropertyFilter and *PolygonFilter.
type FilterSpec interface {
	Kind() FilterKind
	clone() FilterSpec
}

// Filter is one spatial restriction on the cells shown in a view.
type Filter struct {
	Name                string
	Active              bool
	Mode                FilterMode
	GridIndex           int
	PropagateToSubgrids bool

	// DuplicatedFromLinkedView marks a filter copied from the master view
	// of a link.
	DuplicatedFromLinkedView bool

	Spec FilterSpec

	owner *FilterCollection
}

// NewRangeFilter returns an active include filter for the given range.
func NewRangeFilter(name string, r RangeFilter) *Filter {
	return &Filter{Name: name, Active: true, PropagateToSubgrids: true, Spec: &r}
}

// NewPropertyFilter returns an active include filter for the given
// property selection.
func NewPropertyFilter(name string, p PropertyFilter) *Filter {
	return &Filter{Name: name, Active: true, Spec: &p}
}

// NewPolygonFilter returns an active include filter for the given
// polygon.
func NewPolygonFilter(name string, p PolygonFilter) *Filter {
	return &Filter{Name: name, Active: true, Spec: &p}
}

// Kind returns the kind of f, or 0 if f has no spec.
func (f *Filter) Kind() FilterKind {
	if f.Spec == nil {
		return 0
	}
	return f.Spec.Kind()
}

// Range returns the range part of f, or nil if f is not a range filter.
func (f *Filter) Range() *RangeFilter {
	r, _ := f.Spec.(*RangeFilter)
	return r
}

// Property returns the property part of f, or nil if f is not a property
// filter.
func (f *Filter) Property() *PropertyFilter {
	p, _ := f.Spec.(*PropertyFilter)
	return p
}

// Polygon returns the polygon part of f, or nil if f is not a polygon
// filter.
func (f *Filter) Polygon() *PolygonFilter {
	p, _ := f.Spec.(*PolygonFilter)
	return p
}

// Owner returns the collection f is connected to, if any.
func (f *Filter) Owner() *FilterCollection { return f.owner }

// Modify applies fn to f and notifies the collection f is connected to.
func (f *Filter) Modify(fn func(*Filter)) {
	fn(f)
	if f.owner != nil {
		f.owner.filterChanged(f)
	}
}

// Clone returns a disconnected deep copy of f.
func (f *Filter) Clone() *Filter {
	c := *f
	c.owner = nil
	if f.Spec != nil {
		c.Spec = f.Spec.clone()
	}
	return &c
}

// RangeFilter selects a box of cells. Start indices are 1-based and the
// selection on each axis is [Start, Start+Count-1].
type RangeFilter struct {
	StartI, CountI int
	StartJ, CountJ int
	StartK, CountK int
}

// Kind returns RangeFilterKind.
func (r *RangeFilter) Kind() FilterKind { return RangeFilterKind }

func (r *RangeFilter) clone() FilterSpec {
	c := *r
	return &c
}

// FullRange returns a range covering a whole ni x nj x nk domain.
func FullRange(ni, nj, nk int) RangeFilter {
	return RangeFilter{StartI: 1, CountI: ni, StartJ: 1, CountJ: nj, StartK: 1, CountK: nk}
}

// Clamp corrects r so that 1 <= start <= start+count-1 <= n holds on every
// axis. Out of range values are corrected rather than rejected.
func (r *RangeFilter) Clamp(ni, nj, nk int) {
	r.StartI, r.CountI = clampAxis(r.StartI, r.CountI, ni)
	r.StartJ, r.CountJ = clampAxis(r.StartJ, r.CountJ, nj)
	r.StartK, r.CountK = clampAxis(r.StartK, r.CountK, nk)
}

func clampAxis(start, count, n int) (int, int) {
	if n < 1 {
		return 1, 1
	}
	count = clampInt(count, 1, n)
	start = clampInt(start, 1, n)
	if start+count-1 > n {
		count = n - start + 1
	}
	return start, count
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Contains returns whether zero-based cell (i, j, k) is within r.
func (r *RangeFilter) Contains(i, j, k int) bool {
	in := func(v, start, count int) bool { return v+1 >= start && v+1 <= start+count-1 }
	return in(i, r.StartI, r.CountI) && in(j, r.StartJ, r.CountJ) && in(k, r.StartK, r.CountK)
}

// minCell and maxCell return the zero-based corner cells of r.
func (r *RangeFilter) minCell() (i, j, k int) {
	return r.StartI - 1, r.StartJ - 1, r.StartK - 1
}

func (r *RangeFilter) maxCell() (i, j, k int) {
	return r.StartI + r.CountI - 2, r.StartJ + r.CountJ - 2, r.StartK + r.CountK - 2
}

// PropertyFilter selects cells by the value of a result property, either
// within [Min, Max] or, when UseCategories is set, by membership in
// Categories.
type PropertyFilter struct {
	ResultName    string
	Min, Max      float64
	UseCategories bool
	Categories    []int
}

// Kind returns PropertyFilterKind.
func (p *PropertyFilter) Kind() FilterKind { return PropertyFilterKind }

func (p *PropertyFilter) clone() FilterSpec {
	c := *p
	if p.Categories != nil {
		c.Categories = append([]int{}, p.Categories...)
	}
	return &c
}

// Accepts returns whether value is selected by p.
func (p *PropertyFilter) Accepts(value float64) bool {
	if p.UseCategories {
		for _, c := range p.Categories {
			if float64(c) == value {
				return true
			}
		}
		return false
	}
	return value >= p.Min && value <= p.Max
}

// PolygonFilter selects cells whose centers fall within a horizontal
// polygon, optionally restricted to the layers [KMin, KMax] (1-based).
type PolygonFilter struct {
	// CaseID is the case the polygon is evaluated against.
	CaseID string

	Points []geom.Point

	EnableK    bool
	KMin, KMax int
}

// Kind returns PolygonFilterKind.
func (p *PolygonFilter) Kind() FilterKind { return PolygonFilterKind }

func (p *PolygonFilter) clone() FilterSpec {
	c := *p
	if p.Points != nil {
		c.Points = append([]geom.Point{}, p.Points...)
	}
	return &c
}

// SetCase binds p to c.
func (p *PolygonFilter) SetCase(c *Case) {
	if c == nil {
		p.CaseID = ""
		return
	}
	p.CaseID = c.ID
}

// EnableKFilter turns the layer restriction on or off.
func (p *PolygonFilter) EnableKFilter(enable bool) { p.EnableK = enable }

// Contains returns whether the horizontal location (x, y) is within the
// polygon. Points on the boundary are inside.
func (p *PolygonFilter) Contains(x, y float64) bool {
	if len(p.Points) < 3 {
		return false
	}
	return geom.Point{X: x, Y: y}.Within(geom.Polygon{p.Points}) != geom.Outside
}

// ContainsLayer returns whether zero-based layer k passes the layer
// restriction.
func (p *PolygonFilter) ContainsLayer(k int) bool {
	if !p.EnableK {
		return true
	}
	return k+1 >= p.KMin && k+1 <= p.KMax
}
