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

import "github.com/google/uuid"

// Camera is the position and orientation of a view's camera.
type Camera struct {
	Eye     Point3
	ViewDir Point3
	Up      Point3
}

// LegendDefinition is the color legend used for a cell result.
type LegendDefinition struct {
	ColorMap  string
	RangeMode string
	Min, Max  float64
}

// CellResult is the result property used to color cells.
type CellResult struct {
	ResultName string
	Legend     LegendDefinition
}

// View is a master or dependent 3D view of a case. Views are not safe for
// concurrent use.
type View struct {
	ID   string
	Name string

	c *Case

	camera     Camera
	scaleZ     float64
	cursor     *Point3
	timeStep   int
	cellResult CellResult

	cellFilters             *FilterCollection
	overrideCellFilters     *FilterCollection
	propertyFilters         *FilterCollection
	overridePropertyFilters *FilterCollection

	cellFilterListener func(*Filter)

	// controller is set while the view is managed by a link.
	controller *ViewController

	// linker is set while the view is the master of a link.
	linker *ViewLinker
}

// NewView creates a view of c with empty filter collections. c may be nil
// for a view with no domain.
func NewView(name string, c *Case) *View {
	return &View{
		ID:              uuid.New().String(),
		Name:            name,
		c:               c,
		scaleZ:          1,
		cellFilters:     NewCellFilterCollection(),
		propertyFilters: NewPropertyFilterCollection(),
	}
}

// Case returns the case shown in v.
func (v *View) Case() *Case { return v.c }

// DomainKind returns the kind of domain shown in v.
func (v *View) DomainKind() DomainKind { return v.c.Kind() }

// Domain returns the grid or part shown in v, or nil.
func (v *View) Domain() Domain {
	if v.c == nil {
		return nil
	}
	return v.c.Domain()
}

// Controller returns the controller managing v, or nil if v is not a
// dependent view.
func (v *View) Controller() *ViewController { return v.controller }

// Linker returns the linker v is the master of, or nil.
func (v *View) Linker() *ViewLinker { return v.linker }

// SetCase changes the case shown in v and clamps the range filters of
// both its own and its override cell filter collections to the new
// extents.
func (v *View) SetCase(c *Case) []Change {
	v.c = c
	if d := v.Domain(); d != nil {
		v.cellFilters.ClampTo(d)
		if v.overrideCellFilters != nil {
			v.overrideCellFilters.ClampTo(d)
		}
	}
	return []Change{
		regen(v, ActiveCells),
		regen(v, RangeFiltered),
		regen(v, RangeFilteredInactive),
		regen(v, PropertyFiltered),
		redraw(v),
		notify(v, NameUpdate),
	}
}

// CellFilterCollection returns the view's own cell filter collection.
func (v *View) CellFilterCollection() *FilterCollection { return v.cellFilters }

// PropertyFilterCollection returns the view's own property filter
// collection.
func (v *View) PropertyFilterCollection() *FilterCollection { return v.propertyFilters }

// OverrideCellFilterCollection returns the installed override, or nil.
func (v *View) OverrideCellFilterCollection() *FilterCollection { return v.overrideCellFilters }

// HasOverriddenCellFilterCollection returns whether an override cell
// filter collection is installed.
func (v *View) HasOverriddenCellFilterCollection() bool { return v.overrideCellFilters != nil }

// SetOverrideCellFilterCollection installs fc as the override cell filter
// collection of v, disposing any previous override. A nil fc clears the
// override. v takes ownership of fc.
func (v *View) SetOverrideCellFilterCollection(fc *FilterCollection) []Change {
	if fc == nil && v.overrideCellFilters == nil {
		return nil
	}
	if v.overrideCellFilters != nil && v.overrideCellFilters != fc {
		v.overrideCellFilters.Dispose()
	}
	v.overrideCellFilters = fc
	return []Change{
		regen(v, OverriddenCellVisibility),
		regen(v, RangeFiltered),
		regen(v, RangeFilteredInactive),
		redraw(v),
	}
}

// ReplaceCellFilterCollectionWithOverride makes the installed override
// the view's own cell filter collection. The previous own collection is
// disposed and the override slot is left empty.
func (v *View) ReplaceCellFilterCollectionWithOverride() []Change {
	if v.overrideCellFilters == nil {
		return nil
	}
	promoted := v.overrideCellFilters
	v.overrideCellFilters = nil
	v.cellFilters.Dispose()
	v.cellFilters = promoted
	promoted.SetChangeListener(v.cellFilterListener)
	return []Change{
		regen(v, OverriddenCellVisibility),
		regen(v, RangeFiltered),
		regen(v, RangeFilteredInactive),
		redraw(v),
		notify(v, EditorsUpdate),
	}
}

// OverridePropertyFilterCollection returns the property filter collection
// that overrides the view's own, or nil.
func (v *View) OverridePropertyFilterCollection() *FilterCollection {
	return v.overridePropertyFilters
}

// HasOverriddenPropertyFilterCollection returns whether a property filter
// override is set.
func (v *View) HasOverriddenPropertyFilterCollection() bool {
	return v.overridePropertyFilters != nil
}

// SetOverridePropertyFilterCollection makes v use fc, which belongs to
// another view, instead of its own property filters. A nil fc clears the
// override. v does not take ownership of fc.
func (v *View) SetOverridePropertyFilterCollection(fc *FilterCollection) []Change {
	if fc == v.overridePropertyFilters {
		return nil
	}
	v.overridePropertyFilters = fc
	return []Change{
		regen(v, PropertyFiltered),
		redraw(v),
		notify(v, IconState),
	}
}

// EffectiveCellFilters returns the cell filter collection that
// decides which cells v shows: the override while v's cell filters are
// controlled by a link and an override is installed, and v's own
// collection otherwise.
func (v *View) EffectiveCellFilters() *FilterCollection {
	if v.overrideCellFilters != nil && v.controller != nil && v.controller.IsCellFiltersControlled() {
		return v.overrideCellFilters
	}
	return v.cellFilters
}

// EffectivePropertyFilters returns the property filter
// collection that decides which cells v shows.
func (v *View) EffectivePropertyFilters() *FilterCollection {
	if v.overridePropertyFilters != nil && v.controller != nil && v.controller.IsPropertyFilterOverridden() {
		return v.overridePropertyFilters
	}
	return v.propertyFilters
}

// Camera returns the camera of v.
func (v *View) Camera() Camera { return v.camera }

// SetCamera moves the camera of v.
func (v *View) SetCamera(c Camera) []Change {
	if c == v.camera {
		return nil
	}
	v.camera = c
	return []Change{redraw(v)}
}

// ScaleZ returns the vertical exaggeration of v.
func (v *View) ScaleZ() float64 { return v.scaleZ }

// SetScaleZ sets the vertical exaggeration of v.
func (v *View) SetScaleZ(z float64) []Change {
	if z == v.scaleZ {
		return nil
	}
	v.scaleZ = z
	return []Change{redraw(v)}
}

// Cursor returns the position of the 3D cursor, or nil if it is hidden.
func (v *View) Cursor() *Point3 { return v.cursor }

// SetCursor shows the 3D cursor at p, or hides it if p is nil.
func (v *View) SetCursor(p *Point3) []Change {
	if p == nil && v.cursor == nil {
		return nil
	}
	if p != nil {
		pp := *p
		p = &pp
	}
	v.cursor = p
	return []Change{redraw(v)}
}

// TimeStep returns the current time step of v.
func (v *View) TimeStep() int { return v.timeStep }

// SetCurrentTimeStep changes the current time step of v.
func (v *View) SetCurrentTimeStep(step int) []Change {
	if step == v.timeStep {
		return nil
	}
	v.timeStep = step
	return []Change{regen(v, PropertyFiltered), redraw(v)}
}

// CellResult returns the cell coloring of v.
func (v *View) CellResult() CellResult { return v.cellResult }

// SetCellResult changes the cell coloring of v.
func (v *View) SetCellResult(r CellResult) []Change {
	if r == v.cellResult {
		return nil
	}
	v.cellResult = r
	return []Change{redraw(v), notify(v, IconState)}
}
