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
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/viewlink"
)

// WriteReport writes the link state of every view in p to w, followed by
// the cell and property filters in effect for the view, in transfer text
// format.
func WriteReport(w io.Writer, p *viewlink.Project) error {
	lk := p.ViewLinker()
	for _, v := range p.Views() {
		caseName := "none"
		if c := v.Case(); c != nil {
			caseName = c.Name
		}
		fmt.Fprintf(w, "# view %q (case %s, %s)\n", v.Name, caseName, role(lk, v))
		if vc := v.Controller(); vc != nil {
			fmt.Fprintf(w, "# active: %v\n", vc.IsActive())
			fmt.Fprintf(w, "# linked: %s\n", strings.Join(linkedCategories(vc), ", "))
		}
		for _, fc := range []struct {
			title string
			c     *viewlink.FilterCollection
		}{
			{"cell filters", v.EffectiveCellFilters()},
			{"property filters", v.EffectivePropertyFilters()},
		} {
			text, err := fc.c.SerializeToText()
			if err != nil {
				return fmt.Errorf("viewlink: writing %s of view %q: %v", fc.title, v.Name, err)
			}
			fmt.Fprintf(w, "## %s\n%s\n", fc.title, text)
		}
	}
	return nil
}

func role(lk *viewlink.ViewLinker, v *viewlink.View) string {
	switch {
	case lk != nil && lk.MasterView() == v:
		return "master"
	case v.Controller() != nil:
		return "dependent"
	}
	return "unlinked"
}

func linkedCategories(vc *viewlink.ViewController) []string {
	var out []string
	for c := viewlink.CameraCategory; c <= viewlink.PropertyFiltersCategory; c++ {
		if vc.Sync(c) {
			out = append(out, c.String())
		}
	}
	if len(out) == 0 {
		out = append(out, "nothing")
	}
	return out
}

// logTarget carries out display updates by logging them. It counts the
// updates made for each view.
type logTarget struct {
	log    logrus.FieldLogger
	counts map[string]int
}

func newLogTarget(log logrus.FieldLogger) *logTarget {
	return &logTarget{log: log, counts: make(map[string]int)}
}

func (t *logTarget) RegenerateGeometry(viewID string, cs viewlink.CellSet) {
	t.counts[viewID]++
	t.log.WithFields(logrus.Fields{"view": viewID, "cells": cs}).Info("regenerate geometry")
}

func (t *logTarget) CreateDisplayModelAndRedraw(viewID string) {
	t.counts[viewID]++
	t.log.WithFields(logrus.Fields{"view": viewID}).Info("redraw")
}

func (t *logTarget) UpdateEditors(c viewlink.Change) {
	t.counts[c.ViewID]++
	t.log.WithFields(logrus.Fields{"view": c.ViewID, "update": c.Kind}).Info("update editors")
}
