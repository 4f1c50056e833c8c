// Package features slices per-trajectory feature dumps down to a chosen set
// of feature columns, across every protein of a project.
package features

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/lunny/log"
)

// DefaultFolder is the output folder, inside each protein's data directory,
// used when Options.Folder is empty.
const DefaultFolder = "sliced_feature_dir"

// Describer describes the features of a protein. It stands in for the
// featurizer that produced the dumps.
type Describer interface {
	DescribeFeatures(protein string) ([]project.FeatureDescriptor, error)
}

// Descriptors describes features from the feature_descriptor artifact of
// each protein.
type Descriptors struct {
	Config *project.Config
}

func (d Descriptors) DescribeFeatures(protein string) ([]project.FeatureDescriptor, error) {
	return project.LoadFeatureDescriptors(d.Config, protein)
}

// ListFiles returns the feature dumps in dir in name order. Hidden files
// are skipped.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, project.CompressedSuffix) || strings.HasSuffix(name, project.PlainSuffix) {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Slice returns the columns idx of every row of m, in idx order.
func Slice(m [][]float64, idx []int) ([][]float64, error) {
	out := make([][]float64, len(m))
	for f, row := range m {
		out[f] = make([]float64, len(idx))
		for j, c := range idx {
			if c < 0 || c >= len(row) {
				return nil, msmerr.DimensionMismatch(c+1, len(row)).With("frame", f)
			}
			out[f][j] = row[c]
		}
	}
	return out, nil
}

// SliceFile slices the dump at inPath and writes it under the same name in
// outDir. It returns the written path.
func SliceFile(inPath string, idx []int, outDir string) (string, error) {
	var m [][]float64
	if err := project.ReadArtifact(inPath, &m); err != nil {
		return "", err
	}
	sliced, err := Slice(m, idx)
	if err != nil {
		return "", fmt.Errorf("slice %s: %w", inPath, err)
	}
	out := filepath.Join(outDir, filepath.Base(inPath))
	if err := project.WriteArtifact(out, sliced); err != nil {
		return "", err
	}
	return out, nil
}

// CommonFeatures would select the features shared by every protein from the
// sequence alignment. Selection by alignment is not supported, so it always
// fails with a configuration error instead of guessing.
func CommonFeatures(cfg *project.Config, d Describer) (map[string][]int, error) {
	return nil, msmerr.Configuration("common-feature discovery from the alignment is not supported; pass explicit feature indices").
		With("alignment_file", cfg.AlignmentFile)
}

// Options configures SeriesSlicer.
type Options struct {
	// Indices maps each protein to the feature columns to keep. When nil
	// the columns are discovered through the alignment and Describer.
	Indices   map[string][]int
	Describer Describer
	Folder    string
	Workers   int
	Logger    *log.Logger
}

// SeriesSlicer slices every feature dump of every protein in the project
// into <base_dir>/<protein>/<folder>, one file per job on a worker pool that
// is shut down before it returns. Written paths are returned in protein then
// file order.
func SeriesSlicer(ctx context.Context, cfg *project.Config, opts Options) ([]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	folder := opts.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	indices := opts.Indices
	if indices == nil {
		if cfg.AlignmentFile == "" || opts.Describer == nil {
			return nil, msmerr.Configuration("finding common features needs both alignment_file in the project and a feature describer")
		}
		var err error
		if indices, err = CommonFeatures(cfg, opts.Describer); err != nil {
			return nil, err
		}
	}

	type job struct {
		ordinal int
		in, out string
		idx     []int
	}
	var jobs []job
	for _, protein := range cfg.ProteinList {
		idx, ok := indices[protein]
		if !ok {
			return nil, msmerr.Configuration("no feature indices for protein").With("protein", protein)
		}
		files, err := ListFiles(cfg.FeaturePath(protein))
		if err != nil {
			return nil, err
		}
		outDir := filepath.Join(cfg.ProteinDir(protein), folder)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, err
		}
		logger.Infof("%s: slicing %d files to %d features", protein, len(files), len(idx))
		for _, f := range files {
			jobs = append(jobs, job{ordinal: len(jobs), in: f, out: outDir, idx: idx})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		written  = make([]string, len(jobs))
		queue    = make(chan job, workers*2)
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-queue:
					if !ok {
						return
					}
					out, err := SliceFile(j.in, j.idx, j.out)
					if err != nil {
						once.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
					logger.Debugf("sliced %s", out)
					written[j.ordinal] = out
				}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case queue <- j:
		}
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return written, nil
}
