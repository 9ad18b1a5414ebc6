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
	"io/ioutil"
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

type recordingPrompter struct {
	keep  bool
	asked []string
}

func (p *recordingPrompter) KeepCellFilters(viewName string) bool {
	p.asked = append(p.asked, viewName)
	return p.keep
}

func newTestProject(pr Prompter) *Project {
	p := NewProject()
	log := logrus.New()
	log.Out = ioutil.Discard
	p.Log = log
	if pr != nil {
		p.Prompter = pr
	}
	return p
}

func addView(p *Project, name string, c *Case) *View {
	v := NewView(name, c)
	if c != nil {
		p.AddCase(c)
	}
	p.AddView(v)
	return v
}

// link creates a project with a master and one dependent view.
func link(t *testing.T, pr Prompter, masterCase, depCase *Case) (*Project, *View, *View, *ViewController) {
	p := newTestProject(pr)
	master := addView(p, "master", masterCase)
	dep := addView(p, "dependent", depCase)
	lk, err := p.LinkViews(master, dep)
	if err != nil {
		t.Fatal(err)
	}
	return p, master, dep, lk.ControllerFor(dep)
}

func square(x0, y0, x1, y1 float64) []geom.Point {
	return []geom.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
}

// hex returns the nodes of an axis-aligned hexahedron.
func hex(b Bounds3) []Point3 {
	return []Point3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z}, {X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z}, {X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

func TestControllerDefaults(t *testing.T) {
	ecl := NewEclipseCase("ecl", regularGrid(t, 1, 2, 2, 2))
	_, _, dep, vc := link(t, nil, ecl, ecl)
	want := map[Category]bool{
		CameraCategory:          true,
		CursorCategory:          true,
		TimeStepCategory:        true,
		CellResultCategory:      false,
		LegendCategory:          true,
		CellFiltersCategory:     false,
		PropertyFiltersCategory: false,
	}
	for c, w := range want {
		if vc.Sync(c) != w {
			t.Errorf("%s: have %v, want %v", c, vc.Sync(c), w)
		}
	}
	if vc.DuplicatePropertyFilters() {
		t.Error("duplication should be off")
	}
	if !vc.IsActive() || !vc.IconActive() {
		t.Error("controller should be active")
	}
	if vc.Name() != "ecl: dependent" {
		t.Errorf("name %q", vc.Name())
	}
	if !vc.ReadOnly(LegendCategory) {
		t.Error("legend should be read-only while the cell result is not linked")
	}
	if dep.Controller() != vc || vc.ManagedView() != dep {
		t.Error("back references")
	}
}

func TestControllerWithoutLinkerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	vc := &ViewController{}
	vc.IsActive()
}

func TestScenarioSameDomainCellFilters(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 10, 10, 10))
	caseB := NewEclipseCase("B", regularGrid(t, 1, 10, 10, 10))
	p, master, dep, vc := link(t, nil, caseA, caseB)

	master.CellFilterCollection().Add(NewRangeFilter("range", RangeFilter{StartI: 2, CountI: 3, StartJ: 1, CountJ: 5, StartK: 1, CountK: 2}))
	poly := PolygonFilter{Points: square(0, 0, 5, 5)}
	poly.SetCase(caseA)
	master.CellFilterCollection().Add(NewPolygonFilter("polygon", poly))

	vc.SetSync(CellFiltersCategory, true)
	if !vc.IsCellFiltersControlled() {
		t.Fatal("cell filters not controlled")
	}
	o := dep.OverrideCellFilterCollection()
	if o == nil || o.Len() != 2 {
		t.Fatalf("override %v", o)
	}
	if dep.EffectiveCellFilters() != o {
		t.Error("override not authoritative")
	}
	fs := o.Filters()
	if fs[0].Kind() != RangeFilterKind || *fs[0].Range() != *master.CellFilterCollection().Filters()[0].Range() {
		t.Errorf("range filter %+v", fs[0].Spec)
	}
	if fs[1].Kind() != PolygonFilterKind || fs[1].Polygon().CaseID != caseB.ID {
		t.Errorf("polygon filter not rebound: %+v", fs[1].Spec)
	}
	for _, f := range fs {
		if f.Owner() != o {
			t.Errorf("filter %s not connected to the override", f.Name)
		}
	}
	if !p.Changes().Contains(regen(dep, OverriddenCellVisibility)) {
		t.Error("no geometry regen for the dependent view")
	}

	// A change to a master filter rebuilds the override.
	master.CellFilterCollection().Filters()[0].Modify(func(f *Filter) { f.Range().StartI = 4 })
	if o.Disposed() != true {
		t.Error("previous override not disposed")
	}
	if have := dep.OverrideCellFilterCollection().Filters()[0].Range().StartI; have != 4 {
		t.Errorf("override StartI %d, want 4", have)
	}
}

func TestScenarioKeepFilters(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 10, 10, 10))
	tests := []struct {
		name       string
		keep       bool
		masterLen  int
		wantAsked  int
		wantNative int
	}{
		{name: "keep", keep: true, masterLen: 2, wantAsked: 1, wantNative: 2},
		{name: "discard", keep: false, masterLen: 2, wantAsked: 1, wantNative: 0},
		{name: "no master filters", keep: false, masterLen: 0, wantAsked: 0, wantNative: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pr := &recordingPrompter{keep: test.keep}
			_, master, dep, vc := link(t, pr, caseA, caseA)
			for i := 0; i < test.masterLen; i++ {
				master.CellFilterCollection().Add(NewRangeFilter("r", FullRange(10, 10, 10)))
			}
			vc.SetSync(CellFiltersCategory, true)
			o := dep.OverrideCellFilterCollection()
			want := detached(o)

			vc.SetSync(CellFiltersCategory, false)
			if len(pr.asked) != test.wantAsked {
				t.Errorf("asked %d times, want %d", len(pr.asked), test.wantAsked)
			}
			if dep.HasOverriddenCellFilterCollection() {
				t.Error("override slot not empty")
			}
			native := dep.CellFilterCollection()
			if native.Len() != test.wantNative {
				t.Errorf("native has %d filters, want %d", native.Len(), test.wantNative)
			}
			if test.keep {
				if native != o {
					t.Error("override not promoted")
				}
				if have := detached(native); !reflect.DeepEqual(have, want) {
					t.Errorf("promoted filters differ:\n%v", pretty.Diff(have, want))
				}
			}
			if dep.EffectiveCellFilters() != native {
				t.Error("native collection not authoritative")
			}
		})
	}
}

func TestScenarioCrossDomainRangeFilter(t *testing.T) {
	grid := regularGrid(t, 10, 8, 4, 2)
	ecl := NewEclipseCase("ecl", grid)
	geo := NewGeoMechCase("geo", FemPartFromGrid(regularGrid(t, 20, 4, 2, 1)))
	_, master, dep, vc := link(t, nil, ecl, geo)

	if !vc.IsMasterAndDepViewDifferentType() || !vc.IsCellFilterMappingApplicable() {
		t.Fatal("mapping should apply")
	}
	master.CellFilterCollection().Add(NewRangeFilter("r", RangeFilter{StartI: 3, CountI: 4, StartJ: 1, CountJ: 4, StartK: 1, CountK: 2}))
	poly := PolygonFilter{Points: square(0, 0, 30, 30), EnableK: true, KMin: 1, KMax: 1}
	poly.SetCase(ecl)
	master.CellFilterCollection().Add(NewPolygonFilter("p", poly))
	vc.SetSync(CellFiltersCategory, true)

	fs := dep.OverrideCellFilterCollection().Filters()
	want := RangeFilter{StartI: 2, CountI: 2, StartJ: 1, CountJ: 2, StartK: 1, CountK: 1}
	if *fs[0].Range() != want {
		t.Errorf("have %+v, want %+v", *fs[0].Range(), want)
	}
	if pf := fs[1].Polygon(); pf.CaseID != geo.ID || pf.EnableK {
		t.Errorf("polygon filter %+v", pf)
	}
}

func TestScenarioCrossDomainUnmappedCorner(t *testing.T) {
	grid := regularGrid(t, 10, 4, 1, 1)
	ecl := NewEclipseCase("ecl", grid)
	// Two elements with a gap between them covering grid cells 1 and 2.
	nodes := append(
		hex(Bounds3{Min: Point3{X: 0, Y: 0, Z: 0}, Max: Point3{X: 10, Y: 10, Z: 10}}),
		hex(Bounds3{Min: Point3{X: 30, Y: 0, Z: 0}, Max: Point3{X: 40, Y: 10, Z: 10}})...,
	)
	part, err := NewFemPart(nodes, [][8]int{{0, 1, 2, 3, 4, 5, 6, 7}, {8, 9, 10, 11, 12, 13, 14, 15}}, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	geo := NewGeoMechCase("geo", part)
	_, master, dep, vc := link(t, nil, ecl, geo)
	if !vc.IsCellFilterMappingApplicable() {
		t.Fatal("mapping should apply")
	}
	master.CellFilterCollection().Add(NewRangeFilter("r", RangeFilter{StartI: 2, CountI: 2, StartJ: 1, CountJ: 1, StartK: 1, CountK: 1}))
	vc.SetSync(CellFiltersCategory, true)

	if have, want := *dep.OverrideCellFilterCollection().Filters()[0].Range(), FullRange(2, 1, 1); have != want {
		t.Errorf("have %+v, want %+v", have, want)
	}
}

func TestCellFilterControlPolicy(t *testing.T) {
	ecl := NewEclipseCase("ecl", regularGrid(t, 10, 8, 4, 2))
	small := NewGeoMechCase("geo", FemPartFromGrid(regularGrid(t, 10, 2, 2, 2)))

	t.Run("permissive", func(t *testing.T) {
		_, _, dep, vc := link(t, nil, ecl, small)
		if vc.IsCellFilterMappingApplicable() || !vc.IsCellFilterControlPossible() {
			t.Error("permissive policy should allow control without mapping")
		}
		vc.SetSync(CellFiltersCategory, true)
		if !dep.HasOverriddenCellFilterCollection() {
			t.Error("override not installed")
		}
	})
	t.Run("geometry", func(t *testing.T) {
		p := newTestProject(nil)
		p.Policy = PolicyGeometryChecked
		master := addView(p, "master", ecl)
		dep := addView(p, "dependent", small)
		lk, err := p.LinkViews(master, dep)
		if err != nil {
			t.Fatal(err)
		}
		vc := lk.ControllerFor(dep)
		if vc.IsCellFilterControlPossible() || !vc.ReadOnly(CellFiltersCategory) {
			t.Error("control should be impossible")
		}
		vc.SetSync(CellFiltersCategory, true)
		if vc.Sync(CellFiltersCategory) || dep.HasOverriddenCellFilterCollection() {
			t.Error("read-only category turned on")
		}
	})
}

func TestPropertyFilterOverride(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	caseB := NewEclipseCase("B", regularGrid(t, 1, 2, 2, 2))

	t.Run("same case", func(t *testing.T) {
		_, master, dep, vc := link(t, nil, caseA, caseA)
		vc.SetSync(PropertyFiltersCategory, true)
		if !vc.IsPropertyFilterOverridden() {
			t.Fatal("not overridden")
		}
		if dep.EffectivePropertyFilters() != master.PropertyFilterCollection() {
			t.Error("master's property filters not used")
		}
		vc.SetActive(false)
		if dep.EffectivePropertyFilters() != dep.PropertyFilterCollection() || dep.HasOverriddenPropertyFilterCollection() {
			t.Error("override kept after deactivation")
		}
	})
	t.Run("different case", func(t *testing.T) {
		_, _, dep, vc := link(t, nil, caseA, caseB)
		vc.sync[PropertyFiltersCategory] = true
		if vc.IsPropertyFilterControlPossible() || vc.IsPropertyFilterOverridden() {
			t.Error("property filters overridden across cases")
		}
		vc.UpdateOverrides()
		if dep.HasOverriddenPropertyFilterCollection() {
			t.Error("override installed across cases")
		}
	})
}

func TestDuplicatePropertyFilters(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	p, master, dep, vc := link(t, nil, caseA, caseA)
	master.PropertyFilterCollection().Add(NewPropertyFilter("oil", PropertyFilter{ResultName: "SOIL", Min: 0.1, Max: 1}))

	vc.SetDuplicatePropertyFilters(true)
	fs := dep.PropertyFilterCollection().Filters()
	if len(fs) != 1 || fs[0].Property().ResultName != "SOIL" || !fs[0].DuplicatedFromLinkedView {
		t.Fatalf("duplicated filters %# v", pretty.Formatter(fs))
	}
	if !p.Changes().Contains(notify(dep, PropertyFiltersReload)) {
		t.Error("no reload requested")
	}

	vc.SetDuplicatePropertyFilters(false)
	fs = dep.PropertyFilterCollection().Filters()
	if len(fs) != 1 || fs[0].DuplicatedFromLinkedView {
		t.Error("annotation not cleared or filters removed")
	}
}

func TestDuplicatedAnnotationsSurviveOtherLinks(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	p, master, depA, vcA := link(t, nil, caseA, caseA)
	master.PropertyFilterCollection().Add(NewPropertyFilter("oil", PropertyFilter{ResultName: "SOIL", Min: 0.1, Max: 1}))
	vcA.SetDuplicatePropertyFilters(true)

	annotated := func() bool {
		fs := depA.PropertyFilterCollection().Filters()
		return len(fs) == 1 && fs[0].DuplicatedFromLinkedView
	}
	if !annotated() {
		t.Fatal("filters not duplicated")
	}

	depB := addView(p, "dependent B", caseA)
	vcB, err := p.ViewLinker().AddViewController(depB)
	if err != nil {
		t.Fatal(err)
	}
	if !annotated() {
		t.Error("linking another view cleared the annotations")
	}
	vcB.SetDuplicatePropertyFilters(true)
	vcB.SetDuplicatePropertyFilters(false)
	if !annotated() {
		t.Error("another controller turning duplication off cleared the annotations")
	}
	if fs := depB.PropertyFilterCollection().Filters(); len(fs) != 1 || fs[0].DuplicatedFromLinkedView {
		t.Error("annotations of dependent B not cleared")
	}

	vcA.SetDuplicatePropertyFilters(false)
	if annotated() {
		t.Error("annotations not cleared when duplication ends")
	}
}

func TestDuplicateOpenRangePropertyFilter(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	_, master, dep, vc := link(t, nil, caseA, caseA)
	master.PropertyFilterCollection().Add(NewPropertyFilter("shallow", PropertyFilter{ResultName: "DEPTH", Min: math.Inf(-1), Max: 50}))

	vc.SetDuplicatePropertyFilters(true)
	fs := dep.PropertyFilterCollection().Filters()
	if len(fs) != 1 {
		t.Fatalf("dependent has %d duplicated filters, want 1", len(fs))
	}
	if p := fs[0].Property(); !math.IsInf(p.Min, -1) || p.Max != 50 {
		t.Errorf("have Min %v, Max %v", p.Min, p.Max)
	}
}

func TestOptionSensitivity(t *testing.T) {
	ecl := NewEclipseCase("ecl", regularGrid(t, 10, 2, 2, 2))
	geo := NewGeoMechCase("geo", FemPartFromGrid(regularGrid(t, 10, 2, 2, 2)))
	_, _, _, vc := link(t, nil, ecl, geo)

	for _, c := range []Category{CellResultCategory, LegendCategory} {
		if vc.Sync(c) || !vc.ReadOnly(c) {
			t.Errorf("%s should be off and read-only", c)
		}
	}
	if vc.IsCellResultControlAdvisable() {
		t.Error("cell result control advisable across domains")
	}
	vc.SetSync(CellResultCategory, true)
	if vc.Sync(CellResultCategory) {
		t.Error("read-only cell result turned on")
	}

	vc.SetSync(CameraCategory, false)
	if vc.Sync(CursorCategory) || !vc.ReadOnly(CursorCategory) {
		t.Error("cursor should follow the camera link")
	}
	vc.SetSync(CameraCategory, true)
	if vc.ReadOnly(CursorCategory) {
		t.Error("cursor should be editable again")
	}
}

func TestSetManagedView(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	p, master, dep, vc := link(t, nil, caseA, caseA)
	other := addView(p, "other", caseA)
	master.CellFilterCollection().Add(NewRangeFilter("r", FullRange(2, 2, 2)))
	vc.SetSync(CellFiltersCategory, true)
	vc.SetSync(PropertyFiltersCategory, true)

	if err := vc.SetManagedView(other); err != nil {
		t.Fatal(err)
	}
	if dep.HasOverriddenCellFilterCollection() || dep.HasOverriddenPropertyFilterCollection() || dep.Controller() != nil {
		t.Error("previous view still linked")
	}
	if !other.HasOverriddenCellFilterCollection() || !other.HasOverriddenPropertyFilterCollection() {
		t.Error("overrides not installed in the new view")
	}
	if vc.Name() != "A: other" {
		t.Errorf("name %q", vc.Name())
	}
	if err := vc.SetManagedView(master); err != ErrMasterView {
		t.Errorf("have %v, want %v", err, ErrMasterView)
	}
	if err := vc.SetManagedView(nil); err != nil {
		t.Fatal(err)
	}
	if vc.Name() != "View Config: Empty view" {
		t.Errorf("name %q", vc.Name())
	}
}

func TestCellResultLink(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	_, master, dep, vc := link(t, nil, caseA, caseA)
	master.SetCellResult(CellResult{ResultName: "SOIL", Legend: LegendDefinition{ColorMap: "rainbow", Min: 0, Max: 1}})
	dep.SetCellResult(CellResult{ResultName: "PRESSURE", Legend: LegendDefinition{ColorMap: "grey"}})

	vc.SetSync(CellResultCategory, true)
	if have := dep.CellResult(); have != master.CellResult() {
		t.Errorf("have %+v, want %+v", have, master.CellResult())
	}

	vc.SetSync(LegendCategory, false)
	master.SetCellResult(CellResult{ResultName: "SWAT", Legend: LegendDefinition{ColorMap: "blue"}})
	vc.UpdateResultColorsControl()
	if have := dep.CellResult(); have.ResultName != "SWAT" || have.Legend.ColorMap != "rainbow" {
		t.Errorf("legend should not follow: %+v", have)
	}
}

func TestScheduleForDependentView(t *testing.T) {
	caseA := NewEclipseCase("A", regularGrid(t, 1, 2, 2, 2))
	p, _, dep, vc := link(t, nil, caseA, caseA)
	p.Changes().Flush(nil)
	vc.ScheduleGeometryRegenForDepViews(RangeFiltered)
	if p.Changes().Len() != 0 {
		t.Error("regen scheduled without filter control")
	}
	vc.SetSync(CellFiltersCategory, true)
	p.Changes().Flush(nil)
	vc.ScheduleGeometryRegenForDepViews(RangeFiltered)
	vc.ScheduleCreateDisplayModelAndRedrawForDependentView()
	want := []Change{regen(dep, RangeFiltered), redraw(dep)}
	if have := p.Changes().Items(); !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}
