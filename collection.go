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

// The classes of filter collections. The class is part of the transfer
// text so that text of one class cannot be read as another.
const (
	CellFilterClass     = "CellFilterCollection"
	PropertyFilterClass = "PropertyFilterCollection"
)

// FilterCollection is an ordered set of filters belonging to one view.
// The order is the display and evaluation order.
type FilterCollection struct {
	Class  string
	Active bool

	filters  []*Filter
	listener func(*Filter)
	disposed bool
}

// NewCellFilterCollection returns an empty, active cell filter
// collection.
func NewCellFilterCollection() *FilterCollection {
	return &FilterCollection{Class: CellFilterClass, Active: true}
}

// NewPropertyFilterCollection returns an empty, active property filter
// collection.
func NewPropertyFilterCollection() *FilterCollection {
	return &FilterCollection{Class: PropertyFilterClass, Active: true}
}

// Filters returns the filters in order. The returned slice may be
// modified without affecting c.
func (c *FilterCollection) Filters() []*Filter {
	return append([]*Filter(nil), c.filters...)
}

// Len returns the number of filters.
func (c *FilterCollection) Len() int { return len(c.filters) }

// HasActiveFilters returns whether c is active and holds at least one
// active filter.
func (c *FilterCollection) HasActiveFilters() bool {
	if !c.Active {
		return false
	}
	for _, f := range c.filters {
		if f.Active {
			return true
		}
	}
	return false
}

// Add appends f and connects it to c.
func (c *FilterCollection) Add(f *Filter) {
	c.filters = append(c.filters, f)
	c.ConnectToFilterUpdates(f)
}

// Remove removes f from c, returning false if c does not hold f.
func (c *FilterCollection) Remove(f *Filter) bool {
	for i, ff := range c.filters {
		if ff == f {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			if f.owner == c {
				f.owner = nil
			}
			return true
		}
	}
	return false
}

// ConnectToFilterUpdates makes c the owner of f, so that later
// modifications of f through Filter.Modify are reported to the change
// listener of c.
func (c *FilterCollection) ConnectToFilterUpdates(f *Filter) {
	f.owner = c
}

// SetChangeListener sets the function called after a connected filter
// is modified.
func (c *FilterCollection) SetChangeListener(fn func(changed *Filter)) {
	c.listener = fn
}

func (c *FilterCollection) filterChanged(f *Filter) {
	if c.disposed || c.listener == nil {
		return
	}
	c.listener(f)
}

// ClampTo corrects every range filter in c to fit the extents of d.
func (c *FilterCollection) ClampTo(d Domain) {
	if d == nil {
		return
	}
	ni, nj, nk := d.Dims()
	for _, f := range c.filters {
		if r := f.Range(); r != nil {
			r.Clamp(ni, nj, nk)
		}
	}
}

// SetDuplicatedFromLinkedView sets the linked-view annotation of every
// filter in c.
func (c *FilterCollection) SetDuplicatedFromLinkedView(duplicated bool) {
	for _, f := range c.filters {
		f.DuplicatedFromLinkedView = duplicated
	}
}

// Clone returns an independent copy of c made by a round trip through the
// transfer text.
func (c *FilterCollection) Clone() (*FilterCollection, error) {
	text, err := c.SerializeToText()
	if err != nil {
		return nil, err
	}
	return DeserializeFromText(text)
}

// Dispose detaches every filter from c and stops change notification.
// A disposed collection must not be installed in a view again.
func (c *FilterCollection) Dispose() {
	for _, f := range c.filters {
		if f.owner == c {
			f.owner = nil
		}
	}
	c.listener = nil
	c.disposed = true
}

// Disposed returns whether Dispose has been called.
func (c *FilterCollection) Disposed() bool { return c.disposed }
