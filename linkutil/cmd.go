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

// Package linkutil holds the command-line interface to ViewLink.
package linkutil

import (
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/viewlink"
	"github.com/spatialmodel/viewlink/redraw"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to ViewLink.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "project",
			usage: `
              project specifies the location of the project file holding
              the cases, views, filters and view link.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel specifies the level of log messages to print:
              debug, info, warning or error.`,
			defaultVal: "warning",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "policy",
			usage: `
              policy specifies when cell filter control is possible.
              "permissive" allows it between views of any kind and
              "geometry" only when the cells of the dependent view can
              be mapped to the master view.`,
			defaultVal: "permissive",
			flagsets:   []*pflag.FlagSet{syncCmd.Flags()},
		},
		{
			name: "keepfilters",
			usage: `
              keepfilters specifies whether a view that stops following
              the cell filters of the master view keeps the filters it
              was shown with.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{syncCmd.Flags()},
		},
		{
			name: "timestep",
			usage: `
              timestep, if not negative, is the time step to set in the
              master view before reporting.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{syncCmd.Flags()},
		},
		{
			name: "redrawdelay",
			usage: `
              redrawdelay is the time to wait before carrying out display
              updates, so that updates made in quick succession are
              merged.`,
			defaultVal: "50ms",
			flagsets:   []*pflag.FlagSet{syncCmd.Flags()},
		},
		{
			name: "busyinterval",
			usage: `
              busyinterval is how often to retry display updates that
              were postponed.`,
			defaultVal: "100ms",
			flagsets:   []*pflag.FlagSet{syncCmd.Flags()},
		},
		{
			name: "from",
			usage: `
              from is the name of the case the cell to map is in.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mapCmd.Flags()},
		},
		{
			name: "to",
			usage: `
              to is the name of the case to map the cell to.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mapCmd.Flags()},
		},
		{
			name: "cell",
			usage: `
              cell gives the zero-based I, J and K indices of the cell to
              map.`,
			defaultVal: []int{0, 0, 0},
			flagsets:   []*pflag.FlagSet{mapCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("VIEWLINK")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(syncCmd)
	Root.AddCommand(mapCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("viewlink: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "viewlink",
	Short: "Linked 3D views of reservoir and geomechanical cases.",
	Long: `ViewLink keeps dependent views of simulation cases in step with a
master view: camera, cursor, time step, cell result, legend, and cell and
property filters. Use the subcommands specified below to access its
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'VIEWLINK_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ViewLink.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ViewLink v%s\n", viewlink.Version)
	},
	DisableAutoGenTag: true,
}

// syncCmd loads a project, links its views and reports the filters in
// effect for each view.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Link the views of a project and report their state.",
	Long: `sync loads the project file, links the views as the project file
specifies and carries out the resulting display updates. It then prints the
link state of each view and the cell and property filters in effect for it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(Cfg.GetString("loglevel"))
		if err != nil {
			return err
		}
		p, err := loadProject(log)
		if err != nil {
			return err
		}
		delay, err := cast.ToDurationE(Cfg.Get("redrawdelay"))
		if err != nil {
			return fmt.Errorf("viewlink: invalid redrawdelay: %v", err)
		}
		busy, err := cast.ToDurationE(Cfg.Get("busyinterval"))
		if err != nil {
			return fmt.Errorf("viewlink: invalid busyinterval: %v", err)
		}
		if step := Cfg.GetInt("timestep"); step >= 0 {
			if lk := p.ViewLinker(); lk != nil {
				master := lk.MasterView()
				p.Changes().Add(master.SetCurrentTimeStep(step)...)
				lk.UpdateTimeStep(master, step)
			}
		}
		n, err := Sync(p, log, delay, busy)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"updates": n}).Info("viewlink: display updates carried out")
		return WriteReport(cmd.OutOrStdout(), p)
	},
	DisableAutoGenTag: true,
}

// mapCmd maps a cell from one case to another.
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map a cell from one case to another.",
	Long: `map finds the cell of the case given by --to that holds the center
of the cell given by --cell in the case given by --from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(Cfg.GetString("loglevel"))
		if err != nil {
			return err
		}
		p, err := loadProject(log)
		if err != nil {
			return err
		}
		from, err := caseDomain(p, Cfg.GetString("from"))
		if err != nil {
			return err
		}
		to, err := caseDomain(p, Cfg.GetString("to"))
		if err != nil {
			return err
		}
		cell, err := cast.ToIntSliceE(Cfg.Get("cell"))
		if err != nil {
			return fmt.Errorf("viewlink: invalid cell: %v", err)
		}
		if len(cell) != 3 {
			return fmt.Errorf("viewlink: cell needs 3 indices but has %d", len(cell))
		}
		m := viewlink.NewIndexMapper(from, to)
		i, j, k, ok := m.MapToDependent(cell[0], cell[1], cell[2])
		if !ok {
			cmd.Printf("cell (%d, %d, %d) of %s has no counterpart in %s\n",
				cell[0], cell[1], cell[2], Cfg.GetString("from"), Cfg.GetString("to"))
			return nil
		}
		cmd.Printf("(%d, %d, %d)\n", i, j, k)
		return nil
	},
	DisableAutoGenTag: true,
}

// Sync carries out the display updates pending in p using a scheduler
// that logs them. It returns the number of updates carried out.
func Sync(p *viewlink.Project, log logrus.FieldLogger, delay, busyInterval time.Duration) (int, error) {
	if delay < 0 || busyInterval <= 0 {
		return 0, fmt.Errorf("viewlink: invalid redraw timing: delay %v, busy interval %v", delay, busyInterval)
	}
	t := newLogTarget(log)
	s := redraw.NewScheduler(t)
	s.Delay = delay
	s.BusyInterval = busyInterval
	s.Log = log
	p.Flush(s)
	s.RunPending()
	s.Stop()
	var n int
	for _, c := range t.counts {
		n += c
	}
	return n, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("viewlink: invalid loglevel: %v", err)
	}
	log := logrus.New()
	log.Out = os.Stderr
	log.Level = l
	return log, nil
}

// loadProject reads the project file given in the configuration.
func loadProject(log logrus.FieldLogger) (*viewlink.Project, error) {
	path := Cfg.GetString("project")
	if path == "" {
		return nil, fmt.Errorf("viewlink: no project file given; use the --project flag")
	}
	cfg, err := ReadProjectConfig(path)
	if err != nil {
		return nil, err
	}
	p := viewlink.NewProject()
	p.Log = log
	if p.Policy, err = viewlink.ParsePolicy(Cfg.GetString("policy")); err != nil {
		return nil, err
	}
	keep := Cfg.GetBool("keepfilters")
	p.Prompter = viewlink.PrompterFunc(func(string) bool { return keep })
	if err := cfg.Build(p); err != nil {
		return nil, err
	}
	return p, nil
}

func caseDomain(p *viewlink.Project, name string) (viewlink.Domain, error) {
	c := p.CaseByName(name)
	if c == nil {
		return nil, fmt.Errorf("viewlink: unknown case %q", name)
	}
	d := c.Domain()
	if d == nil {
		return nil, fmt.Errorf("viewlink: case %q has no geometry", name)
	}
	return d, nil
}
