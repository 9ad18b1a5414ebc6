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

import "github.com/sirupsen/logrus"

// ViewLinker links a master view to the dependent views managed by its
// view controllers.
type ViewLinker struct {
	project     *Project
	master      *View
	active      bool
	controllers []*ViewController
}

// Project returns the project the linker belongs to.
func (l *ViewLinker) Project() *Project { return l.project }

// MasterView returns the master view.
func (l *ViewLinker) MasterView() *View { return l.master }

// IsActive returns whether linking is turned on.
func (l *ViewLinker) IsActive() bool { return l.active }

// SetActive turns linking on or off. When linking is turned off the user
// chooses, for each dependent view, whether it keeps the cell filters it
// got from the master.
func (l *ViewLinker) SetActive(active bool) {
	if l.active == active {
		return
	}
	l.active = active
	if !active {
		for _, vc := range l.controllers {
			vc.ApplyCellFilterCollectionByUserChoice()
		}
	}
	for _, vc := range l.controllers {
		vc.refresh()
	}
	l.project.emit(notify(l.master, NameUpdate))
}

// Controllers returns the view controllers of l.
func (l *ViewLinker) Controllers() []*ViewController {
	return append([]*ViewController(nil), l.controllers...)
}

// ControllerFor returns the controller managing v, or nil.
func (l *ViewLinker) ControllerFor(v *View) *ViewController {
	for _, vc := range l.controllers {
		if vc.managed == v {
			return vc
		}
	}
	return nil
}

// AddViewController makes v a dependent view of the master view.
func (l *ViewLinker) AddViewController(v *View) (*ViewController, error) {
	if v == nil {
		return nil, ErrUnknownView
	}
	if err := l.project.checkLinkable(v, nil); err != nil {
		return nil, err
	}
	vc := newViewController(l)
	l.controllers = append(l.controllers, vc)
	if err := vc.SetManagedView(v); err != nil {
		l.controllers = l.controllers[:len(l.controllers)-1]
		return nil, err
	}
	l.project.log().WithFields(logrus.Fields{
		"master":    l.master.Name,
		"dependent": v.Name,
	}).Debug("viewlink: linked view")
	return vc, nil
}

// RemoveViewController removes vc from l and all overrides from the view
// it manages.
func (l *ViewLinker) RemoveViewController(vc *ViewController) {
	idx := -1
	for i, c := range l.controllers {
		if c == vc {
			idx = i
		}
	}
	if idx < 0 {
		return
	}
	l.detach(vc)
	l.controllers = append(l.controllers[:idx], l.controllers[idx+1:]...)
	vc.linker = nil
}

func (l *ViewLinker) detach(vc *ViewController) {
	v := vc.managed
	if v == nil {
		return
	}
	vc.RemoveOverrides()
	v.controller = nil
	vc.managed = nil
	l.project.emit(notify(v, NameUpdate))
	l.project.log().WithFields(logrus.Fields{"dependent": v.Name}).Debug("viewlink: unlinked view")
}

// Unlink removes all dependent views and detaches l from the master view
// and the project.
func (l *ViewLinker) Unlink() {
	for _, vc := range l.controllers {
		l.detach(vc)
		vc.linker = nil
	}
	l.controllers = nil
	if l.master != nil {
		l.master.linker = nil
		l.project.emit(notify(l.master, NameUpdate))
	}
	if l.project.linker == l {
		l.project.linker = nil
	}
}

// propagationTargets returns the views that should follow a change of
// category c in source: the master view if source is not the master, and
// every dependent view other than source that has c linked. Nothing is
// propagated from a dependent view that does not have c linked itself.
func (l *ViewLinker) propagationTargets(source *View, linked func(*ViewController) bool) []*View {
	if !l.active {
		return nil
	}
	if vc := source.controller; vc != nil && vc.linker == l && !linked(vc) {
		return nil
	}
	var out []*View
	if source != l.master {
		out = append(out, l.master)
	}
	for _, vc := range l.controllers {
		v := vc.managed
		if v == nil || v == source {
			continue
		}
		if linked(vc) {
			out = append(out, v)
		}
	}
	return out
}

func cameraLinked(vc *ViewController) bool   { return vc.IsCameraLinked() }
func timeStepLinked(vc *ViewController) bool { return vc.IsTimeStepLinked() }

// UpdateCamera moves the cameras of the linked views to the camera of
// source.
func (l *ViewLinker) UpdateCamera(source *View) {
	cam := source.Camera()
	for _, v := range l.propagationTargets(source, cameraLinked) {
		l.project.emit(v.SetCamera(cam)...)
	}
}

// UpdateScaleZ sets the vertical exaggeration of the camera-linked views.
func (l *ViewLinker) UpdateScaleZ(source *View, z float64) {
	for _, v := range l.propagationTargets(source, cameraLinked) {
		l.project.emit(v.SetScaleZ(z)...)
	}
}

// UpdateTimeStep sets the time step of the time-step-linked views.
func (l *ViewLinker) UpdateTimeStep(source *View, step int) {
	for _, v := range l.propagationTargets(source, timeStepLinked) {
		l.project.emit(v.SetCurrentTimeStep(step)...)
	}
}

// UpdateCursorPosition shows the 3D cursor of source at p in the master
// view and in the dependent views that show the cursor.
func (l *ViewLinker) UpdateCursorPosition(source *View, p *Point3) {
	targets := l.propagationTargets(source, func(vc *ViewController) bool {
		return vc.IsCameraLinked() && vc.ShowCursor()
	})
	for _, v := range targets {
		l.project.emit(v.SetCursor(p)...)
	}
}

// UpdateCellResult copies the master cell result to the dependent views
// that have it controlled. The legend is copied only where the legend is
// controlled as well.
func (l *ViewLinker) UpdateCellResult() {
	if !l.active {
		return
	}
	mr := l.master.CellResult()
	for _, vc := range l.controllers {
		v := vc.managed
		if v == nil || !vc.IsResultColorControlled() || vc.IsMasterAndDepViewDifferentType() {
			continue
		}
		r := v.CellResult()
		r.ResultName = mr.ResultName
		if vc.IsLegendDefinitionsControlled() {
			r.Legend = mr.Legend
		}
		l.project.emit(v.SetCellResult(r)...)
	}
}

// UpdateCellFilters rebuilds the cell filter overrides of the dependent
// views after a master cell filter changed.
func (l *ViewLinker) UpdateCellFilters(changed *Filter) {
	for _, vc := range l.controllers {
		vc.UpdateCellFilterOverrides(changed)
	}
}

// UpdatePropertyFilters brings the property filters of the dependent
// views up to date after a master property filter changed.
func (l *ViewLinker) UpdatePropertyFilters(changed *Filter) {
	for _, vc := range l.controllers {
		vc.UpdatePropertyFilterOverrides(changed)
	}
}

// UpdateOverrides installs or removes the filter overrides of every
// dependent view.
func (l *ViewLinker) UpdateOverrides() {
	for _, vc := range l.controllers {
		vc.UpdateOverrides()
	}
}

// ScheduleGeometryRegenForDepViews asks for regeneration of cell set s in
// the dependent views that follow the master's filters.
func (l *ViewLinker) ScheduleGeometryRegenForDepViews(s CellSet) {
	for _, vc := range l.controllers {
		vc.ScheduleGeometryRegenForDepViews(s)
	}
}

// ScheduleCreateDisplayModelAndRedrawForDependentViews asks for a redraw
// of the dependent views that follow the master.
func (l *ViewLinker) ScheduleCreateDisplayModelAndRedrawForDependentViews() {
	for _, vc := range l.controllers {
		vc.ScheduleCreateDisplayModelAndRedrawForDependentView()
	}
}

// Flush hands the queued display changes of the project to d.
func (l *ViewLinker) Flush(d Dispatcher) { l.project.Flush(d) }
