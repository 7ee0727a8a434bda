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

package cospike

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
)

// Source supplies the spike tables of an observation group.
type Source interface {
	// Group returns the channel spike sets of g, indexed and ordered as
	// g.Paths.
	Group(ctx context.Context, g Group) ([]*ChannelSpikeSet, error)
}

// Sink receives the coincidence results of an observation group.
type Sink interface {
	Put(ctx context.Context, g Group, results []*CoincidenceResult) error
}

// AttributionSink receives the pairwise attribution results of an
// observation group.
type AttributionSink interface {
	PutAttribution(ctx context.Context, g Group, sets []AttributionSet) error
}

// Outcome reports the disposition of one observation group.
type Outcome struct {
	Group int
	Err   error
}

// Process runs the coincidence computation for each group in groups,
// reading spike tables from src and handing the results to snk.
// Groups are processed concurrently by nWorkers workers; if nWorkers is
// not positive, three workers per available processor are used. A group
// that fails does not stop the others; its error is recorded in the
// returned outcomes, which are sorted by group number. An invalid
// nCoSpikes fails immediately without processing any group.
func Process(ctx context.Context, nbr *NeighborTable, groups []Group, src Source, snk Sink, nCoSpikes, nWorkers int) ([]Outcome, error) {
	do := func(g Group, sets []*ChannelSpikeSet) error {
		results, err := AccumulateGroup(nbr, g.Number, sets, nCoSpikes)
		if err != nil {
			return err
		}
		return snk.Put(ctx, g, results)
	}
	return run(ctx, groups, src, do, nCoSpikes, nWorkers)
}

// ProcessAttribution is like Process but computes pairwise channel
// attribution instead of global channel multiplicity. The coincidence
// threshold is fixed at two channels.
func ProcessAttribution(ctx context.Context, nbr *NeighborTable, groups []Group, src Source, snk AttributionSink, nWorkers int) ([]Outcome, error) {
	do := func(g Group, sets []*ChannelSpikeSet) error {
		results, err := AccumulatePairwise(nbr, sets)
		if err != nil {
			return err
		}
		return snk.PutAttribution(ctx, g, results)
	}
	return run(ctx, groups, src, do, MinCoSpikes, nWorkers)
}

func run(ctx context.Context, groups []Group, src Source, do func(Group, []*ChannelSpikeSet) error, nCoSpikes, nWorkers int) ([]Outcome, error) {
	if nCoSpikes < MinCoSpikes {
		return nil, fmt.Errorf("cospike: channel coincidence threshold is %d but must be at least %d", nCoSpikes, MinCoSpikes)
	}
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(-1) * 3
	}
	groupChan := make(chan Group)
	outChan := make(chan Outcome)
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range groupChan {
				sets, err := src.Group(ctx, g)
				if err == nil {
					err = do(g, sets)
				}
				if err != nil {
					err = fmt.Errorf("cospike: group %d: %v", g.Number, err)
				}
				outChan <- Outcome{Group: g.Number, Err: err}
			}
		}()
	}
	go func() {
		for _, g := range groups {
			select {
			case groupChan <- g:
			case <-ctx.Done():
				close(groupChan)
				return
			}
		}
		close(groupChan)
	}()
	go func() {
		wg.Wait()
		close(outChan)
	}()
	var outcomes []Outcome
	for o := range outChan {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Group < outcomes[j].Group })
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// FileSource reads spike tables from local netcdf files, caching parsed
// tables in memory so a file shared between groups is only read once.
type FileSource struct {
	// StrictUnique specifies whether in-channel duplicate coordinates
	// should be dropped entirely when a table is loaded, instead of being
	// collapsed to their first record during accumulation.
	StrictUnique bool

	// CacheSize is the number of parsed spike tables to hold in memory.
	// The default is 100.
	CacheSize int

	// Stage downloads a remote table path to local storage and returns
	// the local path. It is consulted for paths IsRemote reports true
	// for; if it is nil, remote paths are an error.
	Stage func(ctx context.Context, path string) (string, error)

	cache *requestcache.Cache
	init  sync.Once
}

func (s *FileSource) lazyLoad() {
	s.init.Do(func() {
		if s.CacheSize == 0 {
			s.CacheSize = 100
		}
		nprocs := runtime.GOMAXPROCS(-1)
		s.cache = requestcache.NewCache(s.loadTable, nprocs,
			requestcache.Deduplicate(), requestcache.Memory(s.CacheSize))
	})
}

// loadTable reads the spike table at the path given by request, staging
// remote paths to local storage first and retrying with exponential backoff
// on transient failures.
func (s *FileSource) loadTable(ctx context.Context, request interface{}) (interface{}, error) {
	path := request.(string)
	if IsRemote(path) {
		if s.Stage == nil {
			return nil, fmt.Errorf("cospike: reading spike table %s: no stager configured for remote paths", path)
		}
		local, err := s.Stage(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("cospike: staging spike table %s: %v", path, err)
		}
		path = local
	}
	var set *ChannelSpikeSet
	op := func() error {
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			return backoff.Permanent(err)
		} else if err != nil {
			return err
		}
		defer f.Close()
		set, err = ReadSpikeTable(f)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("cospike: reading spike table %s: %v", path, err)
	}
	if s.StrictUnique {
		set.Spikes = FilterUnique(set.Spikes)
	}
	return set, nil
}

// Group implements Source.
func (s *FileSource) Group(ctx context.Context, g Group) ([]*ChannelSpikeSet, error) {
	s.lazyLoad()
	reqs := make([]*requestcache.Request, len(g.Paths))
	for i, path := range g.Paths {
		reqs[i] = s.cache.NewRequest(ctx, path, path)
	}
	sets := make([]*ChannelSpikeSet, len(g.Paths))
	for i, req := range reqs {
		result, err := req.Result()
		if err != nil {
			return nil, err
		}
		cached := result.(*ChannelSpikeSet)
		// The cached set is shared between groups, so the channel and
		// wavelength fields are set on a shallow copy.
		sets[i] = &ChannelSpikeSet{
			Channel:    i,
			Wavelength: g.Wavelengths[i],
			Spikes:     cached.Spikes,
		}
	}
	return sets, nil
}

// FileSink writes coincidence results as netcdf files named after their
// input spike tables.
type FileSink struct {
	// OutputDir is the directory the filtered tables are written to. It
	// is created if it does not exist.
	OutputDir string

	// NCoSpikes is the channel coincidence threshold, used in the output
	// file names.
	NCoSpikes int
}

// Put implements Sink.
func (s *FileSink) Put(ctx context.Context, g Group, results []*CoincidenceResult) error {
	if err := os.MkdirAll(s.OutputDir, os.ModePerm); err != nil {
		return fmt.Errorf("cospike: creating output directory: %v", err)
	}
	for _, r := range results {
		if r.Channel < 0 || r.Channel >= len(g.Paths) {
			return fmt.Errorf("cospike: group %d: result channel %d outside group of %d channels",
				g.Number, r.Channel, len(g.Paths))
		}
		name := FilteredName(g.Paths[r.Channel], s.OutputDir, s.NCoSpikes)
		if err := writeTableFile(name, func(ff *os.File) error {
			return WriteFiltered(ff, r)
		}); err != nil {
			return err
		}
	}
	return nil
}

// PutAttribution implements AttributionSink. Attribution tables are named
// like filtered tables but with an "attributed" tag.
func (s *FileSink) PutAttribution(ctx context.Context, g Group, sets []AttributionSet) error {
	if err := os.MkdirAll(s.OutputDir, os.ModePerm); err != nil {
		return fmt.Errorf("cospike: creating output directory: %v", err)
	}
	for _, set := range sets {
		if set.Channel < 0 || set.Channel >= len(g.Paths) {
			return fmt.Errorf("cospike: group %d: result channel %d outside group of %d channels",
				g.Number, set.Channel, len(g.Paths))
		}
		name := AttributionName(g.Paths[set.Channel], s.OutputDir)
		set := set
		if err := writeTableFile(name, func(ff *os.File) error {
			return WriteAttribution(ff, &set, g.Wavelengths)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeTableFile(name string, write func(*os.File) error) error {
	ff, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("cospike: creating output file: %v", err)
	}
	if err := write(ff); err != nil {
		ff.Close()
		return err
	}
	if err := ff.Close(); err != nil {
		return fmt.Errorf("cospike: closing output file %s: %v", name, err)
	}
	return nil
}

// AttributionName derives the output file name for an attribution table
// the same way FilteredName does for a filtered table.
func AttributionName(path, outputDir string) string {
	base := filepath.Base(path)
	if strings.Contains(base, "spikes") {
		base = strings.Replace(base, "spikes", "attributed", 1)
	} else {
		base = "attributed_" + base
	}
	return filepath.Join(outputDir, base)
}
