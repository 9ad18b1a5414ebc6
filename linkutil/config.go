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
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spatialmodel/viewlink"
)

// ProjectConfig is the contents of a project file.
type ProjectConfig struct {
	Cases []CaseConfig
	Views []ViewConfig
	Link  *LinkConfig

	// dir is the directory of the project file, against which relative
	// file paths are resolved.
	dir string
}

// CaseConfig describes a case and its geometry. The grid is either
// regular, given by Origin, CellSize and Dims, or rectilinear, given by
// node coordinates X, Y and Z.
type CaseConfig struct {
	Name string

	// Kind is either "eclipse" or "geomech".
	Kind string

	Origin   []float64
	CellSize []float64
	Dims     []int

	X, Y, Z []float64
}

// ViewConfig describes a view and its filters.
type ViewConfig struct {
	Name            string
	Case            string
	TimeStep        int
	CellResult      string
	CellFilters     []FilterConfig
	PropertyFilters []FilterConfig
}

// FilterConfig describes one filter.
type FilterConfig struct {
	Name string

	// Kind is "range", "property" or "polygon".
	Kind string

	// Mode is "include" (the default) or "exclude".
	Mode     string
	Inactive bool

	// Range holds StartI, CountI, StartJ, CountJ, StartK and CountK of a
	// range filter.
	Range []int

	Result     string
	Min, Max   float64
	Categories []int

	// Points holds the (x, y) vertices of a polygon filter. Alternatively,
	// PolygonFile names a GeoJSON file holding the polygon.
	Points      [][]float64
	PolygonFile string
	KMin, KMax  int
}

// LinkConfig describes the view link of a project.
type LinkConfig struct {
	Master     string
	Inactive   bool
	Dependents []DependentConfig
}

// DependentConfig describes a dependent view and what it follows. Sync
// maps category names such as "camera" or "cellfilters" to whether the
// category is linked; categories not listed keep their defaults.
type DependentConfig struct {
	View                     string
	Inactive                 bool
	Sync                     map[string]bool
	DuplicatePropertyFilters bool
}

// ReadProjectConfig reads a project file.
func ReadProjectConfig(path string) (*ProjectConfig, error) {
	path = os.ExpandEnv(path)
	cfg := new(ProjectConfig)
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("viewlink: reading project file: %v", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		return nil, fmt.Errorf("viewlink: unknown keys in project file: %v", u)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Build adds the cases and views of cfg to p and links them.
func (cfg *ProjectConfig) Build(p *viewlink.Project) error {
	for _, cc := range cfg.Cases {
		c, err := cc.build()
		if err != nil {
			return err
		}
		p.AddCase(c)
	}
	for _, vc := range cfg.Views {
		if p.ViewByName(vc.Name) != nil {
			return fmt.Errorf("viewlink: duplicate view name %q", vc.Name)
		}
		var c *viewlink.Case
		if vc.Case != "" {
			if c = p.CaseByName(vc.Case); c == nil {
				return fmt.Errorf("viewlink: view %q refers to unknown case %q", vc.Name, vc.Case)
			}
		}
		v := viewlink.NewView(vc.Name, c)
		v.SetCurrentTimeStep(vc.TimeStep)
		v.SetCellResult(viewlink.CellResult{ResultName: vc.CellResult})
		p.AddView(v)
		for _, fcs := range [][]FilterConfig{vc.CellFilters, vc.PropertyFilters} {
			for _, fc := range fcs {
				f, err := fc.build(cfg.dir, c)
				if err != nil {
					return fmt.Errorf("viewlink: view %q: %v", vc.Name, err)
				}
				p.AddFilter(v, f)
			}
		}
		if d := v.Domain(); d != nil {
			v.CellFilterCollection().ClampTo(d)
		}
	}
	if cfg.Link != nil {
		if err := cfg.Link.build(p); err != nil {
			return err
		}
	}
	return nil
}

func (cc CaseConfig) build() (*viewlink.Case, error) {
	if cc.Name == "" {
		return nil, fmt.Errorf("viewlink: case without a name")
	}
	grid, err := cc.grid()
	if err != nil {
		return nil, fmt.Errorf("viewlink: case %q: %v", cc.Name, err)
	}
	switch strings.ToLower(cc.Kind) {
	case "eclipse", "":
		return viewlink.NewEclipseCase(cc.Name, grid), nil
	case "geomech":
		return viewlink.NewGeoMechCase(cc.Name, viewlink.FemPartFromGrid(grid)), nil
	}
	return nil, fmt.Errorf("viewlink: case %q has invalid kind %q; it should be eclipse or geomech", cc.Name, cc.Kind)
}

func (cc CaseConfig) grid() (*viewlink.StructuredGrid, error) {
	if len(cc.X) > 0 || len(cc.Y) > 0 || len(cc.Z) > 0 {
		return viewlink.NewStructuredGrid(cc.X, cc.Y, cc.Z)
	}
	if len(cc.Origin) != 3 || len(cc.CellSize) != 3 || len(cc.Dims) != 3 {
		return nil, fmt.Errorf("Origin, CellSize and Dims need 3 values each or X, Y and Z must be given")
	}
	o := viewlink.Point3{X: cc.Origin[0], Y: cc.Origin[1], Z: cc.Origin[2]}
	return viewlink.NewRegularGrid(o, cc.CellSize[0], cc.CellSize[1], cc.CellSize[2], cc.Dims[0], cc.Dims[1], cc.Dims[2])
}

func (fc FilterConfig) build(dir string, c *viewlink.Case) (*viewlink.Filter, error) {
	var f *viewlink.Filter
	switch strings.ToLower(fc.Kind) {
	case "range":
		if len(fc.Range) != 6 {
			return nil, fmt.Errorf("range filter %q needs 6 values but has %d", fc.Name, len(fc.Range))
		}
		r := fc.Range
		f = viewlink.NewRangeFilter(fc.Name, viewlink.RangeFilter{
			StartI: r[0], CountI: r[1],
			StartJ: r[2], CountJ: r[3],
			StartK: r[4], CountK: r[5],
		})
	case "property":
		if fc.Result == "" {
			return nil, fmt.Errorf("property filter %q has no result", fc.Name)
		}
		f = viewlink.NewPropertyFilter(fc.Name, viewlink.PropertyFilter{
			ResultName:    fc.Result,
			Min:           fc.Min,
			Max:           fc.Max,
			UseCategories: len(fc.Categories) > 0,
			Categories:    fc.Categories,
		})
	case "polygon":
		pts, err := fc.points(dir)
		if err != nil {
			return nil, err
		}
		pf := viewlink.PolygonFilter{Points: pts, KMin: fc.KMin, KMax: fc.KMax, EnableK: fc.KMax > 0}
		pf.SetCase(c)
		f = viewlink.NewPolygonFilter(fc.Name, pf)
	default:
		return nil, fmt.Errorf("filter %q has invalid kind %q", fc.Name, fc.Kind)
	}
	switch strings.ToLower(fc.Mode) {
	case "", "include":
	case "exclude":
		f.Mode = viewlink.Exclude
	default:
		return nil, fmt.Errorf("filter %q has invalid mode %q", fc.Name, fc.Mode)
	}
	f.Active = !fc.Inactive
	return f, nil
}

func (fc FilterConfig) points(dir string) ([]geom.Point, error) {
	if fc.PolygonFile != "" {
		path := os.ExpandEnv(fc.PolygonFile)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return parsePolygon(path)
	}
	if len(fc.Points) < 3 {
		return nil, fmt.Errorf("polygon filter %q needs at least 3 points", fc.Name)
	}
	pts := make([]geom.Point, len(fc.Points))
	for i, p := range fc.Points {
		if len(p) != 2 {
			return nil, fmt.Errorf("polygon filter %q: point %d has %d coordinates", fc.Name, i, len(p))
		}
		pts[i] = geom.Point{X: p[0], Y: p[1]}
	}
	return pts, nil
}

// parsePolygon reads the outer boundary of a polygon from a GeoJSON file.
// Only the first polygon of a multipolygon is used, and a line string is
// used as the boundary as is.
func parsePolygon(path string) ([]geom.Point, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading polygon file: %v", err)
	}
	g, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding polygon file %s: %v", path, err)
	}
	switch p := g.(type) {
	case geom.Polygon:
		if len(p) == 0 {
			return nil, fmt.Errorf("polygon file %s has no rings", path)
		}
		return []geom.Point(p[0]), nil
	case geom.MultiPolygon:
		if len(p) == 0 || len(p[0]) == 0 {
			return nil, fmt.Errorf("polygon file %s has no rings", path)
		}
		return []geom.Point(p[0][0]), nil
	case geom.LineString:
		return []geom.Point(p), nil
	}
	return nil, fmt.Errorf("invalid polygon geometry type %T in %s", g, path)
}

func (lc *LinkConfig) build(p *viewlink.Project) error {
	master := p.ViewByName(lc.Master)
	if master == nil {
		return fmt.Errorf("viewlink: unknown master view %q", lc.Master)
	}
	lk, err := p.LinkViews(master)
	if err != nil {
		return err
	}
	for _, dc := range lc.Dependents {
		v := p.ViewByName(dc.View)
		if v == nil {
			return fmt.Errorf("viewlink: unknown dependent view %q", dc.View)
		}
		vc, err := lk.AddViewController(v)
		if err != nil {
			return fmt.Errorf("viewlink: linking view %q: %v", dc.View, err)
		}
		sync := make(map[viewlink.Category]bool, len(dc.Sync))
		for name, on := range dc.Sync {
			c, err := viewlink.ParseCategory(strings.ToLower(name))
			if err != nil {
				return err
			}
			sync[c] = on
		}
		// Camera comes before cursor, and cell result before legend.
		for c := viewlink.CameraCategory; c <= viewlink.PropertyFiltersCategory; c++ {
			if on, ok := sync[c]; ok {
				vc.SetSync(c, on)
			}
		}
		vc.SetDuplicatePropertyFilters(dc.DuplicatePropertyFilters)
		if dc.Inactive {
			vc.SetActive(false)
		}
	}
	if lc.Inactive {
		lk.SetActive(false)
	}
	return nil
}
