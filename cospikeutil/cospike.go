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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solarmodel/cospike"
	"github.com/spf13/cobra"
)

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputDir string) string {
	if logFile == "" {
		logFile = filepath.Join(outputDir, "cospike.log")
	}
	return logFile
}

// Filter runs the coincidence computation over the observation groups in
// the group index at spikeDB, writing one filtered spike table per channel
// per group to outputDir. begin and end select a half-open range of groups;
// an end of -1 means the last group. groupNums, if not empty, further
// restricts the run to the listed group numbers. A group that fails is
// logged and skipped without stopping the others.
func Filter(cmd *cobra.Command, logFile, spikeDB, dataDir, outputDir string,
	gridNy, gridNx, nCoSpikes, numWorkers, begin, end int, groupNums []int,
	strictUnique, attribution bool) error {

	startTime := time.Now()

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return fmt.Errorf("cospike: problem creating output directory: %v", err)
	}
	logfile, err := os.Create(logFile)
	if err != nil {
		return fmt.Errorf("cospike: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(cmd.OutOrStdout(), logfile)

	nbr, err := cospike.NewNeighborTable(gridNy, gridNx)
	if err != nil {
		return err
	}

	f, err := os.Open(spikeDB)
	if err != nil {
		return fmt.Errorf("cospike: problem opening the group index: %v", err)
	}
	groups, err := cospike.LoadGroupIndex(f, dataDir)
	f.Close()
	if err != nil {
		return err
	}
	if end < 0 || end > len(groups) {
		end = len(groups)
	}
	if begin < 0 {
		begin = 0
	}
	if begin > end {
		return fmt.Errorf("cospike: begin group index %d is after end index %d", begin, end)
	}
	groups = groups[begin:end]
	if len(groupNums) > 0 {
		keep := make(map[int]struct{}, len(groupNums))
		for _, n := range groupNums {
			keep[n] = struct{}{}
		}
		var selected []cospike.Group
		for _, g := range groups {
			if _, ok := keep[g.Number]; ok {
				selected = append(selected, g)
			}
		}
		groups = selected
	}

	log.WithFields(logrus.Fields{
		"groups":      len(groups),
		"nCoSpikes":   nCoSpikes,
		"attribution": attribution,
	}).Info("starting coincidence filtering")

	src := &cospike.FileSource{StrictUnique: strictUnique, Stage: stage}
	snk := &summarySink{
		FileSink: cospike.FileSink{OutputDir: outputDir, NCoSpikes: nCoSpikes},
		src:      src,
		log:      log,
	}

	ctx := context.Background()
	var outcomes []cospike.Outcome
	if attribution {
		outcomes, err = cospike.ProcessAttribution(ctx, nbr, groups, src, snk, numWorkers)
	} else {
		outcomes, err = cospike.Process(ctx, nbr, groups, src, snk, nCoSpikes, numWorkers)
	}
	if err != nil {
		return err
	}

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			log.WithFields(logrus.Fields{"group": o.Group}).Error(o.Err)
		}
	}
	log.WithFields(logrus.Fields{
		"groups":  len(outcomes),
		"failed":  failed,
		"elapsed": time.Since(startTime).String(),
	}).Info("finished coincidence filtering")

	if failed > 0 {
		return fmt.Errorf("cospike: %d of %d groups failed; see the log for details", failed, len(outcomes))
	}
	return nil
}

// summarySink writes results through an embedded FileSink and logs summary
// statistics for each group as it completes. The group's input spike sets
// come from the source's cache, so they are not read from disk twice.
type summarySink struct {
	cospike.FileSink
	src cospike.Source
	log logrus.FieldLogger
}

func (s *summarySink) Put(ctx context.Context, g cospike.Group, results []*cospike.CoincidenceResult) error {
	if err := s.FileSink.Put(ctx, g, results); err != nil {
		return err
	}
	sets, err := s.src.Group(ctx, g)
	if err != nil {
		return err
	}
	sum := cospike.Summarize(sets, results)
	s.log.WithFields(logrus.Fields{
		"group":     g.Number,
		"channels":  sum.Channels,
		"input":     sum.Input,
		"kept":      sum.Kept,
		"keptFrac":  sum.KeptFrac,
		"meanCount": sum.MeanCount,
		"maxCount":  sum.MaxCount,
	}).Info("group filtered")
	return nil
}

func (s *summarySink) PutAttribution(ctx context.Context, g cospike.Group, sets []cospike.AttributionSet) error {
	if err := s.FileSink.PutAttribution(ctx, g, sets); err != nil {
		return err
	}
	var kept int
	for _, set := range sets {
		kept += len(set.Spikes)
	}
	s.log.WithFields(logrus.Fields{
		"group":    g.Number,
		"channels": len(sets),
		"kept":     kept,
	}).Info("group attributed")
	return nil
}
