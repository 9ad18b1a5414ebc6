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

package linkutil

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/viewlink"
)

func testProject(t *testing.T) *viewlink.Project {
	cfg, err := ReadProjectConfig("testdata/project.toml")
	if err != nil {
		t.Fatal(err)
	}
	p := viewlink.NewProject()
	log := logrus.New()
	log.Out = ioutil.Discard
	p.Log = log
	if err := cfg.Build(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParsePolygon(t *testing.T) {
	square := []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}
	for _, test := range []struct {
		name, json string
		want       []geom.Point
		err        bool
	}{
		{
			name: "polygon",
			json: `{"type": "Polygon","coordinates": [ [ [0, 0], [1, 0], [1, 1], [0, 0] ] ] }`,
			want: square,
		},
		{
			name: "linestring",
			json: `{"type": "LineString","coordinates": [ [0, 0], [1, 0], [1, 1], [0, 0] ] }`,
			want: square,
		},
		{
			name: "point",
			json: `{"type": "Point","coordinates": [0, 0] }`,
			err:  true,
		},
		{
			name: "garbage",
			json: `{"type": "Polygon"`,
			err:  true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			f, err := os.Create("tmp_polygon.json")
			if err != nil {
				t.Fatal(err)
			}
			defer os.Remove("tmp_polygon.json")
			fmt.Fprint(f, test.json)
			f.Close()
			pts, err := parsePolygon("tmp_polygon.json")
			if test.err {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(pts, test.want) {
				t.Errorf("%v != %v", pts, test.want)
			}
		})
	}
}

func TestReadProjectConfig(t *testing.T) {
	p := testProject(t)

	if len(p.Cases()) != 2 || len(p.Views()) != 4 {
		t.Fatalf("have %d cases and %d views", len(p.Cases()), len(p.Views()))
	}
	if k := p.CaseByName("geomech").Kind(); k != viewlink.GeoMechDomain {
		t.Errorf("geomech case has kind %v", k)
	}
	master := p.ViewByName("master")
	if lk := p.ViewLinker(); lk == nil || lk.MasterView() != master {
		t.Fatal("master view not linked")
	}
	if r := master.CellResult().ResultName; r != "PORO" {
		t.Errorf("cell result %q", r)
	}

	t.Run("converted range", func(t *testing.T) {
		geo := p.ViewByName("geo")
		fs := geo.EffectiveCellFilters().Filters()
		if len(fs) != 1 {
			t.Fatalf("have %d filters", len(fs))
		}
		want := viewlink.RangeFilter{StartI: 2, CountI: 2, StartJ: 1, CountJ: 2, StartK: 1, CountK: 1}
		if *fs[0].Range() != want {
			t.Errorf("have %+v, want %+v", *fs[0].Range(), want)
		}
		if fs[0].Mode != viewlink.Exclude {
			t.Error("mode not copied")
		}
		if geo.Controller().Sync(viewlink.PropertyFiltersCategory) {
			t.Error("property filters of another case should not be linked")
		}
	})
	t.Run("same case", func(t *testing.T) {
		cp := p.ViewByName("copy")
		if !cp.HasOverriddenPropertyFilterCollection() {
			t.Fatal("property filters not overridden")
		}
		fs := cp.EffectivePropertyFilters().Filters()
		if len(fs) != 1 || fs[0].Property().ResultName != "PORO" {
			t.Errorf("property filters %v", fs)
		}
		vc := cp.Controller()
		if vc.Sync(viewlink.CameraCategory) || vc.Sync(viewlink.CursorCategory) {
			t.Error("camera and cursor should be off")
		}
		if !vc.ReadOnly(viewlink.CursorCategory) {
			t.Error("cursor should be read-only without the camera")
		}
	})
	t.Run("polygon file", func(t *testing.T) {
		spare := p.ViewByName("spare")
		if spare.Controller() != nil {
			t.Fatal("spare view should be unlinked")
		}
		fs := spare.CellFilterCollection().Filters()
		if len(fs) != 1 {
			t.Fatalf("have %d filters", len(fs))
		}
		poly := fs[0].Polygon()
		if len(poly.Points) != 5 || poly.CaseID != p.CaseByName("reservoir").ID || !poly.EnableK {
			t.Errorf("polygon %+v", poly)
		}
		if !poly.Contains(20, 20) || poly.Contains(60, 20) {
			t.Error("wrong polygon")
		}
	})
}

func TestReadProjectConfigUnknownKey(t *testing.T) {
	f, err := os.Create("tmp_project.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove("tmp_project.toml")
	fmt.Fprint(f, "[[Cases]]\nName = \"a\"\nColour = \"red\"\n")
	f.Close()
	_, err = ReadProjectConfig("tmp_project.toml")
	if err == nil || !strings.Contains(err.Error(), "Colour") {
		t.Errorf("have error %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	grid := CaseConfig{Name: "g", Origin: []float64{0, 0, 0}, CellSize: []float64{1, 1, 1}, Dims: []int{2, 2, 2}}
	for _, test := range []struct {
		name string
		cfg  ProjectConfig
		msg  string
	}{
		{
			name: "kind",
			cfg: ProjectConfig{Cases: []CaseConfig{{Name: "g", Kind: "seismic",
				Origin: []float64{0, 0, 0}, CellSize: []float64{1, 1, 1}, Dims: []int{2, 2, 2}}}},
			msg: "invalid kind",
		},
		{
			name: "geometry",
			cfg:  ProjectConfig{Cases: []CaseConfig{{Name: "g"}}},
			msg:  "need 3 values",
		},
		{
			name: "unknown case",
			cfg:  ProjectConfig{Views: []ViewConfig{{Name: "v", Case: "nope"}}},
			msg:  "unknown case",
		},
		{
			name: "duplicate view",
			cfg:  ProjectConfig{Views: []ViewConfig{{Name: "v"}, {Name: "v"}}},
			msg:  "duplicate view",
		},
		{
			name: "short range",
			cfg: ProjectConfig{Cases: []CaseConfig{grid}, Views: []ViewConfig{{Name: "v", Case: "g",
				CellFilters: []FilterConfig{{Name: "r", Kind: "range", Range: []int{1, 2}}}}}},
			msg: "needs 6 values",
		},
		{
			name: "mode",
			cfg: ProjectConfig{Cases: []CaseConfig{grid}, Views: []ViewConfig{{Name: "v", Case: "g",
				CellFilters: []FilterConfig{{Name: "r", Kind: "range", Mode: "maybe", Range: []int{1, 1, 1, 1, 1, 1}}}}}},
			msg: "invalid mode",
		},
		{
			name: "unknown master",
			cfg:  ProjectConfig{Link: &LinkConfig{Master: "m"}},
			msg:  "unknown master",
		},
		{
			name: "category",
			cfg: ProjectConfig{
				Views: []ViewConfig{{Name: "m"}, {Name: "d"}},
				Link: &LinkConfig{Master: "m", Dependents: []DependentConfig{
					{View: "d", Sync: map[string]bool{"zoom": true}},
				}},
			},
			msg: "invalid link category",
		},
		{
			name: "self link",
			cfg: ProjectConfig{
				Views: []ViewConfig{{Name: "m"}},
				Link:  &LinkConfig{Master: "m", Dependents: []DependentConfig{{View: "m"}}},
			},
			msg: "linking view",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := viewlink.NewProject()
			err := test.cfg.Build(p)
			if err == nil || !strings.Contains(err.Error(), test.msg) {
				t.Errorf("have error %v, want %q", err, test.msg)
			}
		})
	}
}

func TestBuildInactiveLink(t *testing.T) {
	cfg := ProjectConfig{
		Cases: []CaseConfig{{Name: "g", Origin: []float64{0, 0, 0}, CellSize: []float64{1, 1, 1}, Dims: []int{2, 2, 2}}},
		Views: []ViewConfig{
			{Name: "m", Case: "g", CellFilters: []FilterConfig{{Name: "r", Kind: "range", Range: []int{1, 1, 1, 1, 1, 1}}}},
			{Name: "d", Case: "g"},
		},
		Link: &LinkConfig{Master: "m", Dependents: []DependentConfig{
			{View: "d", Inactive: true, Sync: map[string]bool{"cellfilters": true}},
		}},
	}
	p := viewlink.NewProject()
	p.Prompter = viewlink.PrompterFunc(func(string) bool { return false })
	if err := cfg.Build(p); err != nil {
		t.Fatal(err)
	}
	d := p.ViewByName("d")
	if d.Controller().IsActive() {
		t.Error("controller should be inactive")
	}
	if d.HasOverriddenCellFilterCollection() || d.CellFilterCollection().Len() != 0 {
		t.Error("filters should have been dropped")
	}
}
