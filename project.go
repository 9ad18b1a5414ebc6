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
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrLinkerExists is returned when a second view linker is requested
	// for a project.
	ErrLinkerExists = errors.New("viewlink: project already has a view linker")

	// ErrAlreadyLinked is returned when a view that is already managed by
	// a view controller is linked again.
	ErrAlreadyLinked = errors.New("viewlink: view is already linked")

	// ErrMasterView is returned when the master view is used as a
	// dependent view.
	ErrMasterView = errors.New("viewlink: view is the master view")

	// ErrUnknownView is returned when a view does not belong to the
	// project.
	ErrUnknownView = errors.New("viewlink: view is not part of the project")
)

// Policy decides when a dependent view may have its cell filters
// controlled by the master view.
type Policy int

const (
	// PolicyPermissive allows cell filter control between any views.
	PolicyPermissive Policy = iota

	// PolicyGeometryChecked allows cell filter control between views of
	// different domain kinds only when cells can be mapped between them.
	PolicyGeometryChecked
)

func (p Policy) String() string {
	switch p {
	case PolicyPermissive:
		return "permissive"
	case PolicyGeometryChecked:
		return "geometry"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the name of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "permissive", "":
		return PolicyPermissive, nil
	case "geometry":
		return PolicyGeometryChecked, nil
	}
	return PolicyPermissive, fmt.Errorf("viewlink: invalid cell filter control policy %q", s)
}

// Prompter asks the user whether a dependent view should keep the cell
// filters it got from the master view when cell filter linking ends.
type Prompter interface {
	KeepCellFilters(viewName string) bool
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(viewName string) bool

// KeepCellFilters calls f.
func (f PrompterFunc) KeepCellFilters(viewName string) bool { return f(viewName) }

// Project holds the cases and views that may be linked, and the view
// linker linking them.
type Project struct {
	Log      logrus.FieldLogger
	Prompter Prompter
	Policy   Policy

	cases   []*Case
	views   []*View
	linker  *ViewLinker
	changes Changes
	mappers *MapperCache
}

// NewProject creates an empty project that logs to the standard logger
// and keeps cell filters when linking ends.
func NewProject() *Project {
	return &Project{
		Log:      logrus.StandardLogger(),
		Prompter: PrompterFunc(func(string) bool { return true }),
	}
}

func (p *Project) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func (p *Project) mapperCache() *MapperCache {
	if p.mappers == nil {
		p.mappers = NewMapperCache()
	}
	return p.mappers
}

func (p *Project) keepCellFilters(viewName string) bool {
	if p.Prompter == nil {
		return true
	}
	return p.Prompter.KeepCellFilters(viewName)
}

func (p *Project) emit(cs ...Change) { p.changes.Add(cs...) }

// Changes returns the queue of display changes not yet flushed.
func (p *Project) Changes() *Changes { return &p.changes }

// Flush hands the queued display changes to d.
func (p *Project) Flush(d Dispatcher) { p.changes.Flush(d) }

// AddCase adds c to the project.
func (p *Project) AddCase(c *Case) { p.cases = append(p.cases, c) }

// Cases returns the cases of the project.
func (p *Project) Cases() []*Case { return append([]*Case(nil), p.cases...) }

// CaseByName returns the first case named name, or nil.
func (p *Project) CaseByName(name string) *Case {
	for _, c := range p.cases {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddView adds v to the project. Filter changes in v are from then on
// turned into display changes and, if v is the master view, propagated
// to the dependent views.
func (p *Project) AddView(v *View) {
	v.cellFilterListener = func(f *Filter) { p.cellFilterChanged(v, f) }
	v.cellFilters.SetChangeListener(v.cellFilterListener)
	v.propertyFilters.SetChangeListener(func(f *Filter) { p.propertyFilterChanged(v, f) })
	p.views = append(p.views, v)
}

// Views returns the views of the project.
func (p *Project) Views() []*View { return append([]*View(nil), p.views...) }

// ViewByName returns the first view named name, or nil.
func (p *Project) ViewByName(name string) *View {
	for _, v := range p.views {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// RemoveView removes v from the project. Removing the master view
// unlinks all views; removing a dependent view removes its controller.
func (p *Project) RemoveView(v *View) error {
	idx := -1
	for i, vv := range p.views {
		if vv == v {
			idx = i
		}
	}
	if idx < 0 {
		return ErrUnknownView
	}
	if v.linker != nil {
		v.linker.Unlink()
	} else if vc := v.controller; vc != nil && vc.linker != nil {
		vc.linker.RemoveViewController(vc)
	}
	p.views = append(p.views[:idx], p.views[idx+1:]...)
	return nil
}

// SetViewCase changes the case shown in v and refreshes the links v takes
// part in.
func (p *Project) SetViewCase(v *View, c *Case) {
	p.emit(v.SetCase(c)...)
	if lk := v.linker; lk != nil {
		for _, vc := range lk.controllers {
			vc.UpdateOptionSensitivity()
		}
		lk.UpdateOverrides()
		return
	}
	if vc := v.controller; vc != nil {
		vc.UpdateOptionSensitivity()
		vc.UpdateOverrides()
		vc.updateDisplayNameAndIcon()
	}
}

// ViewLinker returns the view linker of the project, or nil.
func (p *Project) ViewLinker() *ViewLinker { return p.linker }

// NewViewLinker creates the view linker of the project with master as the
// master view.
func (p *Project) NewViewLinker(master *View) (*ViewLinker, error) {
	if p.linker != nil {
		return nil, ErrLinkerExists
	}
	if !p.hasView(master) {
		return nil, ErrUnknownView
	}
	if master.controller != nil {
		return nil, ErrAlreadyLinked
	}
	lk := &ViewLinker{project: p, master: master, active: true}
	master.linker = lk
	p.linker = lk
	p.log().WithFields(logrus.Fields{"master": master.Name}).Debug("viewlink: created view linker")
	p.emit(notify(master, NameUpdate))
	return lk, nil
}

// LinkViews links dependents to master, creating the view linker if the
// project has none.
func (p *Project) LinkViews(master *View, dependents ...*View) (*ViewLinker, error) {
	lk := p.linker
	if lk == nil {
		var err error
		if lk, err = p.NewViewLinker(master); err != nil {
			return nil, err
		}
	} else if lk.master != master {
		return nil, ErrLinkerExists
	}
	for _, v := range dependents {
		if _, err := lk.AddViewController(v); err != nil {
			return lk, fmt.Errorf("viewlink: linking view %q: %v", v.Name, err)
		}
	}
	return lk, nil
}

// UnlinkedViews returns the views that are neither the master view nor
// managed by a view controller.
func (p *Project) UnlinkedViews() []*View {
	var out []*View
	for _, v := range p.views {
		if v.linker == nil && v.controller == nil {
			out = append(out, v)
		}
	}
	return out
}

func (p *Project) hasView(v *View) bool {
	for _, vv := range p.views {
		if vv == v {
			return true
		}
	}
	return false
}

// checkLinkable returns an error if v cannot be managed by vc.
func (p *Project) checkLinkable(v *View, vc *ViewController) error {
	if !p.hasView(v) {
		return ErrUnknownView
	}
	if v.linker != nil {
		return ErrMasterView
	}
	if v.controller != nil && v.controller != vc {
		return ErrAlreadyLinked
	}
	return nil
}

// AddFilter appends f to the property filters of v if it is a property
// filter and to its cell filters otherwise, and propagates the change.
func (p *Project) AddFilter(v *View, f *Filter) {
	if f.Kind() == PropertyFilterKind {
		v.propertyFilters.Add(f)
		p.propertyFilterChanged(v, f)
		return
	}
	v.cellFilters.Add(f)
	p.cellFilterChanged(v, f)
}

// RemoveFilter removes f from the filters of v and propagates the change.
// It returns false if v does not hold f.
func (p *Project) RemoveFilter(v *View, f *Filter) bool {
	switch {
	case v.propertyFilters.Remove(f):
		p.propertyFilterChanged(v, f)
	case v.cellFilters.Remove(f):
		p.cellFilterChanged(v, f)
	default:
		return false
	}
	return true
}

func (p *Project) cellFilterChanged(v *View, f *Filter) {
	p.emit(regen(v, RangeFiltered), regen(v, RangeFilteredInactive), redraw(v))
	if lk := v.linker; lk != nil {
		lk.UpdateCellFilters(f)
	}
}

func (p *Project) propertyFilterChanged(v *View, f *Filter) {
	p.emit(regen(v, PropertyFiltered), redraw(v))
	if lk := v.linker; lk != nil {
		lk.UpdatePropertyFilters(f)
	}
}

// clearDuplicatedFilterAnnotations clears the linked-view annotations of
// the views whose controller no longer duplicates property filters.
func (p *Project) clearDuplicatedFilterAnnotations() {
	for _, v := range p.views {
		if vc := v.controller; vc != nil && vc.duplicatePropertyFilters {
			continue
		}
		fc := v.propertyFilters
		annotated := false
		for _, f := range fc.filters {
			if f.DuplicatedFromLinkedView {
				annotated = true
				break
			}
		}
		if annotated {
			fc.SetDuplicatedFromLinkedView(false)
			p.emit(notify(v, EditorsUpdate))
		}
	}
}
