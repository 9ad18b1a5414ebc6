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

	"github.com/sirupsen/logrus"
)

// Category is a kind of view state that a view controller can link or
// control.
type Category int

// The categories.
const (
	CameraCategory Category = iota
	CursorCategory
	TimeStepCategory
	CellResultCategory
	LegendCategory
	CellFiltersCategory
	PropertyFiltersCategory
	numCategories
)

func (c Category) String() string {
	switch c {
	case CameraCategory:
		return "camera"
	case CursorCategory:
		return "cursor"
	case TimeStepCategory:
		return "timestep"
	case CellResultCategory:
		return "cellresult"
	case LegendCategory:
		return "legend"
	case CellFiltersCategory:
		return "cellfilters"
	case PropertyFiltersCategory:
		return "propertyfilters"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory parses the name of a category.
func ParseCategory(s string) (Category, error) {
	for c := Category(0); c < numCategories; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("viewlink: invalid link category %q", s)
}

// emptyViewName is the name of a controller without a managed view.
const emptyViewName = "View Config: Empty view"

// ViewController manages one dependent view on behalf of a view linker,
// deciding which of its state follows the master view.
type ViewController struct {
	linker  *ViewLinker
	managed *View

	active                   bool
	sync                     [numCategories]bool
	readOnly                 [numCategories]bool
	duplicatePropertyFilters bool

	name       string
	iconActive bool
}

func newViewController(lk *ViewLinker) *ViewController {
	vc := &ViewController{
		linker:     lk,
		active:     true,
		name:       emptyViewName,
		iconActive: true,
	}
	vc.sync[CameraCategory] = true
	vc.sync[CursorCategory] = true
	vc.sync[TimeStepCategory] = true
	vc.sync[LegendCategory] = true
	return vc
}

// ownerViewLinker returns the linker owning vc. A controller always has
// an owner while it is in use.
func (vc *ViewController) ownerViewLinker() *ViewLinker {
	if vc.linker == nil {
		panic("viewlink: view controller has no view linker")
	}
	return vc.linker
}

// masterView returns the master view of the owning linker.
func (vc *ViewController) masterView() *View {
	m := vc.ownerViewLinker().master
	if m == nil {
		panic("viewlink: view linker has no master view")
	}
	return m
}

func (vc *ViewController) project() *Project { return vc.ownerViewLinker().project }

func (vc *ViewController) emit(cs ...Change) { vc.project().emit(cs...) }

func (vc *ViewController) log() logrus.FieldLogger {
	f := logrus.Fields{"controller": vc.name}
	if vc.managed != nil {
		f["view"] = vc.managed.Name
	}
	return vc.project().log().WithFields(f)
}

// ManagedView returns the dependent view, or nil.
func (vc *ViewController) ManagedView() *View { return vc.managed }

// Name returns the display name of vc.
func (vc *ViewController) Name() string { return vc.name }

// IconActive returns whether vc is shown with an active icon.
func (vc *ViewController) IconActive() bool { return vc.iconActive }

// Sync returns the raw link flag of c, regardless of whether vc is
// active.
func (vc *ViewController) Sync(c Category) bool { return vc.sync[c] }

// ReadOnly returns whether the link flag of c currently cannot be
// changed.
func (vc *ViewController) ReadOnly(c Category) bool { return vc.readOnly[c] }

// DuplicatePropertyFilters returns whether the master's property filters
// are copied into the dependent view.
func (vc *ViewController) DuplicatePropertyFilters() bool { return vc.duplicatePropertyFilters }

// IsActive returns whether both vc and its linker are active.
func (vc *ViewController) IsActive() bool {
	return vc.ownerViewLinker().IsActive() && vc.active
}

func (vc *ViewController) isLinked(c Category) bool {
	return vc.IsActive() && vc.sync[c]
}

// IsCameraLinked returns whether the camera follows the master view.
func (vc *ViewController) IsCameraLinked() bool { return vc.isLinked(CameraCategory) }

// ShowCursor returns whether the 3D cursor of the master view is shown.
func (vc *ViewController) ShowCursor() bool { return vc.sync[CursorCategory] }

// IsTimeStepLinked returns whether the time step follows the master view.
func (vc *ViewController) IsTimeStepLinked() bool { return vc.isLinked(TimeStepCategory) }

// IsResultColorControlled returns whether the cell result follows the
// master view.
func (vc *ViewController) IsResultColorControlled() bool {
	return vc.isLinked(CellResultCategory)
}

// IsLegendDefinitionsControlled returns whether the legend follows the
// master view.
func (vc *ViewController) IsLegendDefinitionsControlled() bool {
	return vc.isLinked(LegendCategory)
}

// IsCellFiltersControlled returns whether the cell filters of the
// dependent view are replaced by the master's.
func (vc *ViewController) IsCellFiltersControlled() bool {
	return vc.isLinked(CellFiltersCategory) && vc.IsCellFilterControlPossible()
}

// IsPropertyFilterOverridden returns whether the dependent view uses the
// master's property filters.
func (vc *ViewController) IsPropertyFilterOverridden() bool {
	return vc.IsPropertyFilterControlPossible() && vc.isLinked(PropertyFiltersCategory)
}

// IsVisibleCellsOverridden returns whether the visible cells of the
// dependent view are set by the master view. Cell visibility is never
// overridden as a whole.
func (vc *ViewController) IsVisibleCellsOverridden() bool { return false }

// IsMasterAndDepViewDifferentType returns whether the master and the
// dependent view show different kinds of domains.
func (vc *ViewController) IsMasterAndDepViewDifferentType() bool {
	mk := vc.masterView().DomainKind()
	var dk DomainKind
	if vc.managed != nil {
		dk = vc.managed.DomainKind()
	}
	return (mk == EclipseDomain || mk == GeoMechDomain) && mk != dk
}

// IsCellResultControlAdvisable returns whether linking the cell result
// makes sense for the pair of views.
func (vc *ViewController) IsCellResultControlAdvisable() bool {
	return vc.managed != nil && !vc.IsMasterAndDepViewDifferentType()
}

// IsPropertyFilterControlPossible returns whether the master and the
// dependent view show the same case.
func (vc *ViewController) IsPropertyFilterControlPossible() bool {
	master := vc.masterView()
	if vc.managed == nil || master.c == nil || master.c != vc.managed.c {
		return false
	}
	return master.DomainKind() == vc.managed.DomainKind()
}

// IsCellFilterControlPossible returns whether the cell filters of the
// master may control the dependent view under the project policy.
func (vc *ViewController) IsCellFilterControlPossible() bool {
	if vc.project().Policy != PolicyGeometryChecked {
		return true
	}
	if vc.managed == nil || vc.managed.Domain() == nil || vc.masterView().Domain() == nil {
		return false
	}
	return !vc.IsMasterAndDepViewDifferentType() || vc.IsCellFilterMappingApplicable()
}

// IsCellFilterMappingApplicable returns whether range filters can be
// converted between the master and the dependent view: the views must
// show different kinds of domains and the finite-element part must
// enclose the grid.
func (vc *ViewController) IsCellFilterMappingApplicable() bool {
	if vc.managed == nil || !vc.IsMasterAndDepViewDifferentType() {
		return false
	}
	grid, part := gridAndPart(vc.masterView().c, vc.managed.c)
	if grid == nil || part == nil {
		return false
	}
	fb, gb := part.Bounds(), grid.Bounds()
	if fb.Empty() || gb.Empty() {
		return false
	}
	return fb.Contains(gb.Min, geometryTolerance) && fb.Contains(gb.Max, geometryTolerance)
}

// gridAndPart returns the grid and the part of a pair of cases of
// different kinds, in either order.
func gridAndPart(a, b *Case) (*StructuredGrid, *FemPart) {
	switch {
	case a.Kind() == EclipseDomain && b.Kind() == GeoMechDomain:
		return a.Grid, b.FemPart()
	case a.Kind() == GeoMechDomain && b.Kind() == EclipseDomain:
		return b.Grid, a.FemPart()
	}
	return nil, nil
}

// CellMapper returns the index mapper from the master view's domain to the
// dependent view's domain, or nil if either view has no domain.
func (vc *ViewController) CellMapper() *IndexMapper {
	if vc.managed == nil {
		return nil
	}
	return vc.project().mapperCache().Mapper(vc.masterView().Domain(), vc.managed.Domain())
}

// UpdateOptionSensitivity forces off the link flags that cannot apply to
// the current pair of views and marks them read-only.
func (vc *ViewController) UpdateOptionSensitivity() {
	different := vc.IsMasterAndDepViewDifferentType()
	if different {
		vc.sync[CellResultCategory] = false
		vc.sync[LegendCategory] = false
		vc.readOnly[CellResultCategory] = true
		vc.readOnly[LegendCategory] = true
	} else {
		vc.readOnly[CellResultCategory] = false
		vc.readOnly[LegendCategory] = !vc.sync[CellResultCategory]
	}

	if vc.IsPropertyFilterControlPossible() {
		vc.readOnly[PropertyFiltersCategory] = false
	} else {
		vc.sync[PropertyFiltersCategory] = false
		vc.readOnly[PropertyFiltersCategory] = true
	}

	if vc.project().Policy == PolicyGeometryChecked && !vc.IsCellFilterControlPossible() {
		vc.sync[CellFiltersCategory] = false
		vc.readOnly[CellFiltersCategory] = true
	} else {
		vc.readOnly[CellFiltersCategory] = false
	}

	if !vc.sync[CameraCategory] {
		vc.sync[CursorCategory] = false
		vc.readOnly[CursorCategory] = true
	} else {
		vc.readOnly[CursorCategory] = false
	}
}

// SetManagedView makes v the dependent view of vc. Overrides installed in
// the previous dependent view are removed and rebuilt for v.
func (vc *ViewController) SetManagedView(v *View) error {
	lk := vc.ownerViewLinker()
	if v != nil && v != vc.managed {
		if err := lk.project.checkLinkable(v, vc); err != nil {
			return err
		}
	}
	if prev := vc.managed; prev != nil && prev != v {
		vc.removeOverridesFrom(prev)
		prev.controller = nil
		vc.emit(notify(prev, IconState), notify(prev, NameUpdate))
	}
	vc.managed = v
	if v != nil {
		v.controller = vc
	}

	vc.UpdateOptionSensitivity()
	vc.UpdateOverrides()
	vc.UpdateDuplicatedPropertyFilters()
	vc.UpdateResultColorsControl()
	vc.UpdateCameraLink()
	vc.updateDisplayNameAndIcon()
	vc.UpdateTimeStepLink()
	if v != nil {
		vc.emit(notify(v, NameUpdate))
	}
	return nil
}

// SetActive turns vc on or off. When vc is turned off the user chooses
// whether the dependent view keeps the cell filters it got from the
// master.
func (vc *ViewController) SetActive(active bool) {
	if vc.active == active {
		return
	}
	vc.active = active
	if !active {
		vc.ApplyCellFilterCollectionByUserChoice()
	}
	vc.refresh()
}

// refresh brings every linked category of the dependent view up to date.
func (vc *ViewController) refresh() {
	vc.UpdateOverrides()
	vc.UpdateDuplicatedPropertyFilters()
	vc.UpdateResultColorsControl()
	vc.UpdateCameraLink()
	vc.updateDisplayNameAndIcon()
	vc.UpdateTimeStepLink()
	if vc.managed != nil {
		vc.emit(notify(vc.managed, NameUpdate))
	}
}

// SetSync turns linking of category c on or off. Read-only categories
// cannot be turned on.
func (vc *ViewController) SetSync(c Category, on bool) {
	if c < 0 || c >= numCategories {
		return
	}
	if on && vc.readOnly[c] {
		return
	}
	if vc.sync[c] == on {
		return
	}
	vc.sync[c] = on

	switch c {
	case CameraCategory:
		vc.UpdateOptionSensitivity()
		vc.UpdateCameraLink()
		if !vc.sync[CursorCategory] && vc.managed != nil {
			vc.emit(vc.managed.SetCursor(nil)...)
		}
	case CursorCategory:
		if !on && vc.managed != nil {
			vc.emit(vc.managed.SetCursor(nil)...)
		}
	case TimeStepCategory:
		vc.UpdateTimeStepLink()
	case CellResultCategory:
		vc.UpdateOptionSensitivity()
		vc.UpdateResultColorsControl()
		if vc.managed != nil {
			vc.emit(notify(vc.managed, IconState))
		}
	case LegendCategory:
		vc.UpdateLegendDefinitions()
	case CellFiltersCategory:
		if !on {
			vc.ApplyCellFilterCollectionByUserChoice()
		}
		vc.UpdateOverrides()
	case PropertyFiltersCategory:
		vc.UpdateOverrides()
	}
}

// SetDuplicatePropertyFilters turns copying of the master's property
// filters into the dependent view on or off. Turning it off keeps the
// copied filters and clears their linked-view annotations.
func (vc *ViewController) SetDuplicatePropertyFilters(on bool) {
	if vc.duplicatePropertyFilters == on {
		return
	}
	vc.duplicatePropertyFilters = on
	if !on {
		vc.project().clearDuplicatedFilterAnnotations()
		return
	}
	vc.UpdateDuplicatedPropertyFilters()
}

// UpdateOverrides installs or removes the filter overrides of the
// dependent view according to the link flags.
func (vc *ViewController) UpdateOverrides() {
	master := vc.masterView()
	v := vc.managed
	if v == nil {
		return
	}
	if vc.IsVisibleCellsOverridden() {
		vc.emit(v.SetOverridePropertyFilterCollection(nil)...)
	} else if !vc.IsMasterAndDepViewDifferentType() && master.DomainKind() != NoDomain {
		if vc.IsPropertyFilterOverridden() {
			vc.emit(v.SetOverridePropertyFilterCollection(master.propertyFilters)...)
		} else {
			vc.emit(v.SetOverridePropertyFilterCollection(nil)...)
		}
	} else {
		vc.emit(v.SetOverridePropertyFilterCollection(nil)...)
	}
	vc.UpdateCellFilterOverrides(nil)
	vc.emit(notify(v, IconState))
}

// RemoveOverrides removes all filter overrides from the dependent view.
func (vc *ViewController) RemoveOverrides() {
	if vc.managed == nil {
		return
	}
	vc.removeOverridesFrom(vc.managed)
	vc.emit(notify(vc.managed, IconState))
}

func (vc *ViewController) removeOverridesFrom(v *View) {
	vc.emit(v.SetOverridePropertyFilterCollection(nil)...)
	vc.emit(v.SetOverrideCellFilterCollection(nil)...)
}

// UpdateCellFilterOverrides rebuilds the override cell filter collection
// of the dependent view from the master's cell filters. Range filters are
// converted between domains when the views show different kinds of
// domains, and polygon filters are rebound to the dependent view's case.
// changed is the master filter that triggered the update, or nil.
func (vc *ViewController) UpdateCellFilterOverrides(changed *Filter) {
	v := vc.managed
	if v == nil {
		return
	}
	if !vc.IsCellFiltersControlled() {
		vc.emit(v.SetOverrideCellFilterCollection(nil)...)
		return
	}
	master := vc.masterView()
	src := master.cellFilters
	override, err := src.Clone()
	if err != nil {
		vc.log().WithFields(logrus.Fields{"error": err}).Error("viewlink: copying cell filters")
		return
	}
	srcFilters, dstFilters := src.filters, override.filters
	depCase := v.c

	if vc.IsCellFilterMappingApplicable() {
		m := vc.CellMapper()
		for i, sf := range srcFilters {
			if i >= len(dstFilters) {
				break
			}
			df := dstFilters[i]
			override.ConnectToFilterUpdates(df)
			if sf.Range() != nil && df.Range() != nil {
				if !m.ConvertRangeFilter(sf, df) {
					vc.log().WithFields(logrus.Fields{"filter": sf.Name}).Debug("viewlink: range filter corner not mapped; using full extent")
				}
				continue
			}
			if p := df.Polygon(); p != nil {
				p.SetCase(depCase)
				p.EnableKFilter(false)
			}
		}
	} else {
		for _, df := range dstFilters {
			override.ConnectToFilterUpdates(df)
			if p := df.Polygon(); p != nil {
				p.SetCase(depCase)
			}
		}
	}
	override.ClampTo(v.Domain())
	override.SetChangeListener(func(*Filter) {
		vc.emit(regen(v, RangeFiltered), regen(v, RangeFilteredInactive), redraw(v))
	})

	fields := logrus.Fields{"filters": override.Len()}
	if changed != nil {
		fields["changed"] = changed.Name
	}
	vc.log().WithFields(fields).Debug("viewlink: installed cell filter override")
	vc.emit(v.SetOverrideCellFilterCollection(override)...)
}

// UpdatePropertyFilterOverrides brings the property filters of the
// dependent view up to date after a master property filter changed.
func (vc *ViewController) UpdatePropertyFilterOverrides(changed *Filter) {
	vc.UpdateOverrides()
	vc.UpdateDuplicatedPropertyFilters()
	if vc.managed != nil && vc.IsPropertyFilterOverridden() {
		vc.emit(regen(vc.managed, PropertyFiltered), redraw(vc.managed))
	}
}

// UpdateDuplicatedPropertyFilters copies the master's property filters
// into the dependent view while duplication is on.
func (vc *ViewController) UpdateDuplicatedPropertyFilters() {
	if !vc.duplicatePropertyFilters {
		return
	}
	master := vc.masterView()
	v := vc.managed
	if v == nil || master.DomainKind() == NoDomain || master.DomainKind() != v.DomainKind() {
		return
	}
	text, err := master.propertyFilters.SerializeToText()
	if err == nil {
		err = v.propertyFilters.ReadFromText(text)
	}
	if err != nil {
		vc.log().WithFields(logrus.Fields{"error": err}).Error("viewlink: duplicating property filters")
		return
	}
	v.propertyFilters.SetDuplicatedFromLinkedView(true)
	vc.emit(
		notify(v, PropertyFiltersReload),
		notify(v, EditorsUpdate),
		regen(v, PropertyFiltered),
		redraw(v),
	)
}

// ApplyCellFilterCollectionByUserChoice ends cell filter control of the
// dependent view. If the master has cell filters, the user chooses
// whether the dependent view keeps a copy of them; otherwise the copy is
// kept without asking.
func (vc *ViewController) ApplyCellFilterCollectionByUserChoice() {
	v := vc.managed
	if v == nil || !v.HasOverriddenCellFilterCollection() {
		return
	}
	master := vc.ownerViewLinker().master
	anyFilters := master != nil && master.cellFilters.Len() > 0
	if anyFilters && !vc.project().keepCellFilters(v.Name) {
		vc.emit(v.SetOverrideCellFilterCollection(nil)...)
		return
	}
	vc.emit(v.ReplaceCellFilterCollectionWithOverride()...)
}

// UpdateCameraLink makes the dependent view follow the master camera if
// the camera is linked.
func (vc *ViewController) UpdateCameraLink() {
	if vc.managed == nil || !vc.IsCameraLinked() {
		return
	}
	master := vc.masterView()
	lk := vc.ownerViewLinker()
	lk.UpdateScaleZ(master, master.ScaleZ())
	lk.UpdateCamera(master)
}

// UpdateTimeStepLink makes the dependent view follow the master time
// step if the time step is linked.
func (vc *ViewController) UpdateTimeStepLink() {
	if vc.managed == nil || !vc.IsTimeStepLinked() {
		return
	}
	master := vc.masterView()
	vc.ownerViewLinker().UpdateTimeStep(master, master.TimeStep())
}

// UpdateResultColorsControl makes the dependent view follow the master
// cell result if it is controlled.
func (vc *ViewController) UpdateResultColorsControl() {
	if vc.managed == nil || !vc.IsResultColorControlled() {
		return
	}
	vc.ownerViewLinker().UpdateCellResult()
}

// UpdateLegendDefinitions makes the dependent view follow the master
// legend if it is controlled.
func (vc *ViewController) UpdateLegendDefinitions() {
	if vc.managed == nil || !vc.IsLegendDefinitionsControlled() {
		return
	}
	vc.ownerViewLinker().UpdateCellResult()
}

// ScheduleCreateDisplayModelAndRedrawForDependentView asks for a redraw of
// the dependent view if anything in it follows the master.
func (vc *ViewController) ScheduleCreateDisplayModelAndRedrawForDependentView() {
	v := vc.managed
	if v == nil || !vc.IsActive() {
		return
	}
	if vc.IsCameraLinked() || vc.IsResultColorControlled() || vc.IsLegendDefinitionsControlled() ||
		vc.IsTimeStepLinked() || vc.IsCellFiltersControlled() || vc.IsPropertyFilterOverridden() {
		vc.emit(redraw(v))
	}
}

// ScheduleGeometryRegenForDepViews asks for regeneration of cell set s in
// the dependent view if its filters follow the master.
func (vc *ViewController) ScheduleGeometryRegenForDepViews(s CellSet) {
	v := vc.managed
	if v == nil || !vc.IsActive() {
		return
	}
	if vc.IsVisibleCellsOverridden() || vc.IsCellFiltersControlled() || vc.IsPropertyFilterOverridden() || vc.IsResultColorControlled() {
		vc.emit(regen(v, s))
	}
}

// updateDisplayNameAndIcon derives the display name of vc from its
// dependent view.
func (vc *ViewController) updateDisplayNameAndIcon() {
	vc.name = displayName(vc.managed)
	vc.iconActive = vc.IsActive()
}

func displayName(v *View) string {
	if v == nil {
		return emptyViewName
	}
	if v.c == nil || v.c.Name == "" {
		return v.Name
	}
	return v.c.Name + ": " + v.Name
}
