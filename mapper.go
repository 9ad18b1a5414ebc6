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

import "sort"

// IndexMapper maps cells of a master domain to cells of a dependent
// domain and back. The mapping is computed for every cell when the mapper
// is created.
type IndexMapper struct {
	master, dependent Domain

	// toDependent holds, for each flat master cell index, the flat
	// dependent cell index or -1.
	toDependent []int

	// toMaster holds, for each flat dependent cell index, the flat
	// master cell index or -1.
	toMaster []int
}

// NewIndexMapper builds the cell mapping between master and dependent.
// Cells are matched by locating the centroid of a cell of one domain in
// the other.
func NewIndexMapper(master, dependent Domain) *IndexMapper {
	return &IndexMapper{
		master:      master,
		dependent:   dependent,
		toDependent: mapCells(master, dependent),
		toMaster:    mapCells(dependent, master),
	}
}

func mapCells(from, to Domain) []int {
	ni, nj, nk := from.Dims()
	out := make([]int, ni*nj*nk)
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				idx := flatIndex(from, i, j, k)
				out[idx] = -1
				c, ok := from.CellCentroid(i, j, k)
				if !ok {
					continue
				}
				ti, tj, tk, ok := to.FindCell(c)
				if !ok {
					continue
				}
				out[idx] = flatIndex(to, ti, tj, tk)
			}
		}
	}
	return out
}

func flatIndex(d Domain, i, j, k int) int {
	ni, nj, nk := d.Dims()
	if i < 0 || i >= ni || j < 0 || j >= nj || k < 0 || k >= nk {
		return -1
	}
	return i + j*ni + k*ni*nj
}

func unflatIndex(d Domain, idx int) (i, j, k int) {
	ni, nj, _ := d.Dims()
	return idx % ni, (idx / ni) % nj, idx / (ni * nj)
}

// Master returns the master domain.
func (m *IndexMapper) Master() Domain { return m.master }

// Dependent returns the dependent domain.
func (m *IndexMapper) Dependent() Domain { return m.dependent }

// MapToDependent returns the dependent cell matching master cell
// (i, j, k).
func (m *IndexMapper) MapToDependent(i, j, k int) (int, int, int, bool) {
	return lookup(m.toDependent, m.master, m.dependent, i, j, k)
}

// MapToMaster returns the master cell matching dependent cell (i, j, k).
func (m *IndexMapper) MapToMaster(i, j, k int) (int, int, int, bool) {
	return lookup(m.toMaster, m.dependent, m.master, i, j, k)
}

func lookup(table []int, from, to Domain, i, j, k int) (int, int, int, bool) {
	idx := flatIndex(from, i, j, k)
	if idx < 0 || table[idx] < 0 {
		return -1, -1, -1, false
	}
	ti, tj, tk := unflatIndex(to, table[idx])
	return ti, tj, tk, true
}

// ConvertRangeFilter sets the range of dst to the dependent cells
// matching the range of src in the master domain. It returns false if
// a corner of the range could not be mapped, in which case dst covers the
// whole dependent domain.
func (m *IndexMapper) ConvertRangeFilter(src, dst *Filter) bool {
	return convertRangeFilter(src, dst, m.master, m.dependent, m.MapToDependent)
}

// BestFemCellFromEclCell returns the element of part that contains the
// centroid of grid cell (i, j, k).
func BestFemCellFromEclCell(grid *StructuredGrid, part *FemPart, i, j, k int) (int, bool) {
	c, ok := grid.CellCentroid(i, j, k)
	if !ok {
		return -1, false
	}
	return part.FindElement(c)
}

// BestEclCellFromFemCell returns the grid cell that contains the centroid
// of element e of part.
func BestEclCellFromFemCell(part *FemPart, grid *StructuredGrid, e int) (i, j, k int, ok bool) {
	c, ok := part.ElementCentroid(e)
	if !ok {
		return -1, -1, -1, false
	}
	return grid.FindCell(c)
}

// ConvertRangeFilterEclToFem sets the range of dst, a filter on part, to
// the elements matching the range of src, a filter on grid.
func ConvertRangeFilterEclToFem(src *Filter, grid *StructuredGrid, dst *Filter, part *FemPart) bool {
	return convertRangeFilter(src, dst, grid, part, func(i, j, k int) (int, int, int, bool) {
		e, ok := BestFemCellFromEclCell(grid, part, i, j, k)
		if !ok {
			return -1, -1, -1, false
		}
		i, j, k = part.ElementIJK(e)
		return i, j, k, true
	})
}

// ConvertRangeFilterFemToEcl sets the range of dst, a filter on grid, to
// the cells matching the range of src, a filter on part.
func ConvertRangeFilterFemToEcl(src *Filter, part *FemPart, dst *Filter, grid *StructuredGrid) bool {
	return convertRangeFilter(src, dst, part, grid, func(i, j, k int) (int, int, int, bool) {
		return BestEclCellFromFemCell(part, grid, part.ElementIndex(i, j, k))
	})
}

// convertRangeFilter maps the minimum and maximum corner cells of the
// range of src and spans dst between the mapped corners. Fields other
// than the range are copied from src.
func convertRangeFilter(src, dst *Filter, from, to Domain, mapCell func(i, j, k int) (int, int, int, bool)) bool {
	sr, dr := src.Range(), dst.Range()
	if sr == nil || dr == nil {
		return false
	}
	dst.Name = src.Name
	dst.Active = src.Active
	dst.Mode = src.Mode
	dst.PropagateToSubgrids = src.PropagateToSubgrids

	r := *sr
	r.Clamp(from.Dims())
	i0, j0, k0 := r.minCell()
	i1, j1, k1 := r.maxCell()
	mi0, mj0, mk0, ok0 := mapCell(i0, j0, k0)
	mi1, mj1, mk1, ok1 := mapCell(i1, j1, k1)
	if !ok0 || !ok1 {
		*dr = FullRange(to.Dims())
		return false
	}
	is, js, ks := []int{mi0, mi1}, []int{mj0, mj1}, []int{mk0, mk1}
	sort.Ints(is)
	sort.Ints(js)
	sort.Ints(ks)
	*dr = RangeFilter{
		StartI: is[0] + 1, CountI: is[1] - is[0] + 1,
		StartJ: js[0] + 1, CountJ: js[1] - js[0] + 1,
		StartK: ks[0] + 1, CountK: ks[1] - ks[0] + 1,
	}
	return true
}
