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

import "fmt"

// CellSet identifies a set of cells whose geometry a view caches and must
// regenerate when the state that selects them changes.
type CellSet int

// The cell sets.
const (
	ActiveCells CellSet = iota
	OverriddenCellVisibility
	RangeFiltered
	RangeFilteredInactive
	PropertyFiltered
)

func (s CellSet) String() string {
	switch s {
	case ActiveCells:
		return "ActiveCells"
	case OverriddenCellVisibility:
		return "OverriddenCellVisibility"
	case RangeFiltered:
		return "RangeFiltered"
	case RangeFilteredInactive:
		return "RangeFilteredInactive"
	case PropertyFiltered:
		return "PropertyFiltered"
	}
	return fmt.Sprintf("CellSet(%d)", int(s))
}

// ChangeKind is the kind of display update a state change calls for.
type ChangeKind int

// The change kinds.
const (
	// GeometryRegen asks for regeneration of the geometry of a cell set.
	GeometryRegen ChangeKind = iota

	// DisplayModelRedraw asks for the display model to be rebuilt and the
	// view redrawn.
	DisplayModelRedraw

	// EditorsUpdate asks for the editors showing the view's filters to be
	// refreshed.
	EditorsUpdate

	// IconState asks for the filter collection icons of the view to be
	// refreshed.
	IconState

	// PropertyFiltersReload asks for the results used by the property
	// filters of the view to be loaded and the filters recomputed.
	PropertyFiltersReload

	// NameUpdate asks for the window title and link name to be refreshed.
	NameUpdate
)

func (k ChangeKind) String() string {
	switch k {
	case GeometryRegen:
		return "GeometryRegen"
	case DisplayModelRedraw:
		return "DisplayModelRedraw"
	case EditorsUpdate:
		return "EditorsUpdate"
	case IconState:
		return "IconState"
	case PropertyFiltersReload:
		return "PropertyFiltersReload"
	case NameUpdate:
		return "NameUpdate"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is a display update that a state transition calls for. CellSet
// is only meaningful for GeometryRegen.
type Change struct {
	ViewID  string
	Kind    ChangeKind
	CellSet CellSet
}

func (c Change) String() string {
	if c.Kind == GeometryRegen {
		return fmt.Sprintf("%s %s(%s)", c.ViewID, c.Kind, c.CellSet)
	}
	return fmt.Sprintf("%s %s", c.ViewID, c.Kind)
}

func regen(v *View, s CellSet) Change { return Change{ViewID: v.ID, Kind: GeometryRegen, CellSet: s} }

func redraw(v *View) Change { return Change{ViewID: v.ID, Kind: DisplayModelRedraw} }

func notify(v *View, k ChangeKind) Change { return Change{ViewID: v.ID, Kind: k} }

// Dispatcher is the scene and redraw layer that carries out changes.
// Calls are hints; implementations must not call back into the linking
// state synchronously.
type Dispatcher interface {
	ScheduleGeometryRegen(viewID string, s CellSet)
	ScheduleCreateDisplayModelAndRedraw(viewID string)
	UpdateEditors(c Change)
}

// Changes is an ordered queue of changes without duplicates.
type Changes struct {
	items []Change
	seen  map[Change]bool
}

// Add appends the changes in cs that are not already queued.
func (q *Changes) Add(cs ...Change) {
	if q.seen == nil {
		q.seen = make(map[Change]bool)
	}
	for _, c := range cs {
		if q.seen[c] {
			continue
		}
		q.seen[c] = true
		q.items = append(q.items, c)
	}
}

// Len returns the number of queued changes.
func (q *Changes) Len() int { return len(q.items) }

// Items returns the queued changes in order.
func (q *Changes) Items() []Change { return append([]Change(nil), q.items...) }

// Contains returns whether c is queued.
func (q *Changes) Contains(c Change) bool { return q.seen[c] }

// Flush sends the queued changes to d in order and empties the queue.
func (q *Changes) Flush(d Dispatcher) {
	items := q.items
	q.items = nil
	q.seen = nil
	if d == nil {
		return
	}
	for _, c := range items {
		switch c.Kind {
		case GeometryRegen:
			d.ScheduleGeometryRegen(c.ViewID, c.CellSet)
		case DisplayModelRedraw:
			d.ScheduleCreateDisplayModelAndRedraw(c.ViewID)
		default:
			d.UpdateEditors(c)
		}
	}
}
