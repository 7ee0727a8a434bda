/*
Copyright © 2019 the Cospike authors.
This file is part of Cospike.

Cospike is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Cospike is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Cospike.  If not, see <http://www.gnu.org/licenses/>.
*/

package cospikeutil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/solarmodel/cospike"
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
	// Options are the configuration options available to Cospike.
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
			name: "SpikeDB",
			usage: `
              SpikeDB is the location of the observation group index: a CSV
              file with columns GroupNumber, Wavelength, and Path where each
              row names one channel spike table and rows sharing a
              GroupNumber form one simultaneously recorded group.`,
			defaultVal: "spikedb.csv",
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory relative paths in the group index are
              resolved against.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the filtered spike tables are
              written to. It is created if it does not exist.`,
			defaultVal: "filtered",
			flagsets:   []*pflag.FlagSet{filterCmd.Flags(), cleanCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the file where the run log is stored.
              If LogFile is left blank, the log will be written to
              OutputDir/cospike.log.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "NCoSpikes",
			usage: `
              NCoSpikes is the number of channels that must register a spike
              in the same pixel neighborhood for the spike to be kept as
              coincidental. It must be at least 2.`,
			shorthand:  "n",
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "GridNy",
			usage: `
              GridNy is the number of detector pixel rows.`,
			defaultVal: cospike.DefaultGridSize,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "GridNx",
			usage: `
              GridNx is the number of detector pixel columns.`,
			defaultVal: cospike.DefaultGridSize,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "NumWorkers",
			usage: `
              NumWorkers is the number of observation groups to process
              concurrently. If it is not positive, three workers per
              available processor are used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "StrictUnique",
			usage: `
              StrictUnique specifies whether pixel coordinates appearing
              more than once within a single channel's spike table should be
              dropped entirely instead of collapsed to their first record.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "Attribution",
			usage: `
              Attribution specifies whether to record, for each kept spike,
              which specific channels matched it, instead of only how many.
              Attribution mode always uses a coincidence threshold of 2.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "groups",
			usage: `
              groups specifies a list of group numbers to process. The
              default is an empty list, which processes every group in the
              index.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "begin",
			usage: `
              begin specifies the index of the first observation group
              (inclusive) to process.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
		{
			name: "end",
			usage: `
              end specifies the index of the last observation group
              (exclusive) to process. The default is -1 which represents
              the last group.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{filterCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("COSPIKE")

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
	Root.AddCommand(filterCmd)
	Root.AddCommand(cleanCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Printf(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cospike: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cospike",
	Short: "A multi-channel coincidental spike detector.",
	Long: `Cospike cross-references the despiking records of simultaneous
solar EUV exposures in different wavelength channels to find the spikes
that coincide spatially across channels, which are likely to be real
compact brightenings rather than radiation noise.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'COSPIKE_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Cospike.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Cospike v%s\n", cospike.Version)
	},
	DisableAutoGenTag: true,
}

// filterCmd is a command that runs the coincidence computation over all
// observation groups in the spike database.
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Find coincidental spikes.",
	Long: `filter reads the observation group index, loads each group's
channel spike tables, keeps the spikes whose pixel neighborhood saw spikes
in at least NCoSpikes channels, and writes one filtered table per channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		outputDir := os.ExpandEnv(Cfg.GetString("OutputDir"))
		spikeDB := maybeDownload(context.Background(), os.ExpandEnv(Cfg.GetString("SpikeDB")), outChan)

		groupNums, err := cast.ToIntSliceE(Cfg.Get("groups"))
		if err != nil {
			return fmt.Errorf("cospike: the 'groups' configuration option must be a list of integers: %v", err)
		}

		return Filter(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputDir),
			spikeDB,
			os.ExpandEnv(Cfg.GetString("DataDir")),
			outputDir,
			Cfg.GetInt("GridNy"), Cfg.GetInt("GridNx"),
			Cfg.GetInt("NCoSpikes"),
			Cfg.GetInt("NumWorkers"),
			Cfg.GetInt("begin"), Cfg.GetInt("end"),
			groupNums,
			Cfg.GetBool("StrictUnique"), Cfg.GetBool("Attribution"))
	},
	DisableAutoGenTag: true,
}

// cleanCmd removes previously written filtered tables.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete filtered spike tables",
	Long:  "clean deletes the filtered spike tables in OutputDir, leaving input tables alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cospike.Clean(os.ExpandEnv(Cfg.GetString("OutputDir")))
	},
	DisableAutoGenTag: true,
}
