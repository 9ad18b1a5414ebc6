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

// Package redraw carries out the display updates requested by linked
// views. Requests are coalesced per view and executed in the background
// once the application is not busy.
package redraw

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/viewlink"
)

// Default timing of a Scheduler.
const (
	DefaultDelay        = 50 * time.Millisecond
	DefaultBusyInterval = 100 * time.Millisecond
)

var errBusy = errors.New("redraw: application busy")

// Target performs display updates.
type Target interface {
	RegenerateGeometry(viewID string, s viewlink.CellSet)
	CreateDisplayModelAndRedraw(viewID string)
	UpdateEditors(c viewlink.Change)
}

// Scheduler collects display update requests and hands them to a Target
// after Delay. Identical requests made before they are carried out are
// merged. While Busy reports true, execution is postponed and retried
// every BusyInterval. Scheduler implements viewlink.Dispatcher and is
// safe for concurrent use.
type Scheduler struct {
	Delay        time.Duration
	BusyInterval time.Duration

	// Busy reports whether the application is showing blocking
	// progress. It may be nil.
	Busy func() bool

	Log logrus.FieldLogger

	target Target

	mu      sync.Mutex
	pending []viewlink.Change
	seen    map[viewlink.Change]bool
	timer   *time.Timer
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// execMu serializes batches.
	execMu sync.Mutex
}

// NewScheduler creates a scheduler for target with the default timing.
func NewScheduler(target Target) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		Delay:        DefaultDelay,
		BusyInterval: DefaultBusyInterval,
		Log:          logrus.StandardLogger(),
		target:       target,
		seen:         make(map[viewlink.Change]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ScheduleGeometryRegen requests regeneration of cell set cs in a view.
func (s *Scheduler) ScheduleGeometryRegen(viewID string, cs viewlink.CellSet) {
	s.add(viewlink.Change{ViewID: viewID, Kind: viewlink.GeometryRegen, CellSet: cs})
}

// ScheduleCreateDisplayModelAndRedraw requests a redraw of a view.
func (s *Scheduler) ScheduleCreateDisplayModelAndRedraw(viewID string) {
	s.add(viewlink.Change{ViewID: viewID, Kind: viewlink.DisplayModelRedraw})
}

// UpdateEditors requests a refresh of the editors and icons of a view.
func (s *Scheduler) UpdateEditors(c viewlink.Change) {
	s.add(c)
}

func (s *Scheduler) add(c viewlink.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.seen[c] {
		return
	}
	s.seen[c] = true
	s.pending = append(s.pending, c)
	if s.timer == nil {
		s.wg.Add(1)
		s.timer = time.AfterFunc(s.Delay, func() {
			defer s.wg.Done()
			s.run()
		})
	}
}

// Pending returns the number of requests waiting to be carried out.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// run waits until the application is not busy and carries out the
// pending requests.
func (s *Scheduler) run() {
	err := backoff.RetryNotify(
		func() error {
			if s.Busy != nil && s.Busy() {
				return errBusy
			}
			return nil
		},
		backoff.WithContext(backoff.NewConstantBackOff(s.BusyInterval), s.ctx),
		func(err error, d time.Duration) {
			s.log().WithFields(logrus.Fields{"retry": d}).Debug("redraw: postponing display updates")
		},
	)
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()
	if err != nil {
		// Stopped while busy.
		return
	}
	s.RunPending()
}

// RunPending carries out the pending requests immediately, in the order
// they were first made.
func (s *Scheduler) RunPending() {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.seen = make(map[viewlink.Change]bool)
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	s.log().WithFields(logrus.Fields{"requests": len(batch)}).Debug("redraw: updating views")
	for _, c := range batch {
		switch c.Kind {
		case viewlink.GeometryRegen:
			s.target.RegenerateGeometry(c.ViewID, c.CellSet)
		case viewlink.DisplayModelRedraw:
			s.target.CreateDisplayModelAndRedraw(c.ViewID)
		default:
			s.target.UpdateEditors(c)
		}
	}
}

// Stop discards pending requests and waits for a running batch to
// finish. Requests made after Stop are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
		s.timer = nil
	}
	s.pending = nil
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
