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
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
)

// ErrUnknownClass is returned when transfer text does not describe a
// filter collection of the expected class.
var ErrUnknownClass = errors.New("viewlink: unknown object class")

// collectionDoc is the transfer form of a FilterCollection.
type collectionDoc struct {
	Class   string
	Active  bool
	Filters []filterDoc
}

type filterDoc struct {
	Kind                     string
	Name                     string
	Active                   bool
	Mode                     string
	GridIndex                int
	PropagateToSubgrids      bool
	DuplicatedFromLinkedView bool

	Range    *RangeFilter
	Property *propertyDoc
	Polygon  *polygonDoc
}

type propertyDoc struct {
	ResultName    string
	Min, Max      float64
	UseCategories bool
	Categories    []int

	// MinBound and MaxBound name a Min or Max that TOML floats cannot
	// hold: "inf", "-inf" or "nan".
	MinBound string `toml:",omitempty"`
	MaxBound string `toml:",omitempty"`
}

// encodeBound returns v as a TOML float, or as a bound name if v is not
// finite.
func encodeBound(v float64) (float64, string) {
	switch {
	case math.IsNaN(v):
		return 0, "nan"
	case math.IsInf(v, 1):
		return 0, "inf"
	case math.IsInf(v, -1):
		return 0, "-inf"
	}
	return v, ""
}

func decodeBound(v float64, bound string) (float64, error) {
	switch strings.ToLower(bound) {
	case "":
		return v, nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("invalid bound %q", bound)
}

type polygonDoc struct {
	CaseID     string
	EnableK    bool
	KMin, KMax int
	Points     []pointDoc
}

type pointDoc struct {
	X, Y float64
}

// SerializeToText writes c, including all filters and flags, to its
// transfer text.
func (c *FilterCollection) SerializeToText() (string, error) {
	doc := collectionDoc{Class: c.Class, Active: c.Active, Filters: make([]filterDoc, len(c.filters))}
	for i, f := range c.filters {
		fd, err := encodeFilter(f)
		if err != nil {
			return "", fmt.Errorf("viewlink: serializing filter %d (%q): %v", i, f.Name, err)
		}
		doc.Filters[i] = fd
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return "", fmt.Errorf("viewlink: serializing %s: %v", c.Class, err)
	}
	return buf.String(), nil
}

// DeserializeFromText creates a new, independent collection from
// transfer text written by SerializeToText.
func DeserializeFromText(text string) (*FilterCollection, error) {
	doc, err := decodeCollection(text)
	if err != nil {
		return nil, err
	}
	c := &FilterCollection{Class: doc.Class}
	if err := c.load(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadFromText replaces the contents of c with the contents described by
// text. The class of the text must match the class of c.
func (c *FilterCollection) ReadFromText(text string) error {
	doc, err := decodeCollection(text)
	if err != nil {
		return err
	}
	if doc.Class != c.Class {
		return fmt.Errorf("%v: cannot read %s into %s", ErrUnknownClass, doc.Class, c.Class)
	}
	for _, f := range c.filters {
		if f.owner == c {
			f.owner = nil
		}
	}
	c.filters = nil
	return c.load(doc)
}

func decodeCollection(text string) (*collectionDoc, error) {
	doc := new(collectionDoc)
	md, err := toml.Decode(text, doc)
	if err != nil {
		return nil, fmt.Errorf("viewlink: reading filter collection: %v", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		return nil, fmt.Errorf("viewlink: reading filter collection: unexpected keys %v", u)
	}
	if doc.Class != CellFilterClass && doc.Class != PropertyFilterClass {
		return nil, fmt.Errorf("%v: %q", ErrUnknownClass, doc.Class)
	}
	return doc, nil
}

func (c *FilterCollection) load(doc *collectionDoc) error {
	c.Active = doc.Active
	for i, fd := range doc.Filters {
		f, err := decodeFilter(fd)
		if err != nil {
			return fmt.Errorf("viewlink: reading filter %d: %v", i, err)
		}
		c.Add(f)
	}
	return nil
}

func encodeFilter(f *Filter) (filterDoc, error) {
	fd := filterDoc{
		Kind:                     f.Kind().String(),
		Name:                     f.Name,
		Active:                   f.Active,
		Mode:                     f.Mode.String(),
		GridIndex:                f.GridIndex,
		PropagateToSubgrids:      f.PropagateToSubgrids,
		DuplicatedFromLinkedView: f.DuplicatedFromLinkedView,
	}
	switch s := f.Spec.(type) {
	case *RangeFilter:
		r := *s
		fd.Range = &r
	case *PropertyFilter:
		pd := &propertyDoc{
			ResultName:    s.ResultName,
			UseCategories: s.UseCategories,
			Categories:    s.Categories,
		}
		pd.Min, pd.MinBound = encodeBound(s.Min)
		pd.Max, pd.MaxBound = encodeBound(s.Max)
		fd.Property = pd
	case *PolygonFilter:
		pd := &polygonDoc{CaseID: s.CaseID, EnableK: s.EnableK, KMin: s.KMin, KMax: s.KMax}
		for _, p := range s.Points {
			pd.Points = append(pd.Points, pointDoc{X: p.X, Y: p.Y})
		}
		fd.Polygon = pd
	default:
		return fd, fmt.Errorf("unsupported filter spec %T", f.Spec)
	}
	return fd, nil
}

func decodeFilter(fd filterDoc) (*Filter, error) {
	f := &Filter{
		Name:                     fd.Name,
		Active:                   fd.Active,
		GridIndex:                fd.GridIndex,
		PropagateToSubgrids:      fd.PropagateToSubgrids,
		DuplicatedFromLinkedView: fd.DuplicatedFromLinkedView,
	}
	switch strings.ToLower(fd.Mode) {
	case "include", "":
		f.Mode = Include
	case "exclude":
		f.Mode = Exclude
	default:
		return nil, fmt.Errorf("invalid filter mode %q", fd.Mode)
	}
	switch fd.Kind {
	case RangeFilterKind.String():
		if fd.Range == nil {
			return nil, fmt.Errorf("range filter %q has no range", fd.Name)
		}
		r := *fd.Range
		f.Spec = &r
	case PropertyFilterKind.String():
		if fd.Property == nil {
			return nil, fmt.Errorf("property filter %q has no property selection", fd.Name)
		}
		p := &PropertyFilter{
			ResultName:    fd.Property.ResultName,
			UseCategories: fd.Property.UseCategories,
		}
		var err error
		if p.Min, err = decodeBound(fd.Property.Min, fd.Property.MinBound); err != nil {
			return nil, fmt.Errorf("property filter %q: Min: %v", fd.Name, err)
		}
		if p.Max, err = decodeBound(fd.Property.Max, fd.Property.MaxBound); err != nil {
			return nil, fmt.Errorf("property filter %q: Max: %v", fd.Name, err)
		}
		if len(fd.Property.Categories) > 0 {
			p.Categories = fd.Property.Categories
		}
		f.Spec = p
	case PolygonFilterKind.String():
		if fd.Polygon == nil {
			return nil, fmt.Errorf("polygon filter %q has no polygon", fd.Name)
		}
		p := &PolygonFilter{
			CaseID:  fd.Polygon.CaseID,
			EnableK: fd.Polygon.EnableK,
			KMin:    fd.Polygon.KMin,
			KMax:    fd.Polygon.KMax,
		}
		for _, pt := range fd.Polygon.Points {
			p.Points = append(p.Points, geom.Point{X: pt.X, Y: pt.Y})
		}
		f.Spec = p
	default:
		return nil, fmt.Errorf("unknown filter kind %q", fd.Kind)
	}
	return f, nil
}
