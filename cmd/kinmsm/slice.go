package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/features"
	"gopkg.in/yaml.v3"
)

var sliceCmd = &command.Command{
	Usage: `slice-features -project <file> [-indices <file>] [-folder <name>]
	[-workers <number>] [-catalog <file>]`,
	Short: "keep a subset of features in every feature dump",
	Long: wrap(`
Command slice-features copies every feature dump of every protein keeping
only the chosen feature columns. The columns are read from a YAML or JSON file
mapping each protein to a list of feature indices, for example:`) + `

	abl: [0, 4, 17]
	src: [1, 4, 18]

` + wrap(`Sliced dumps are written with the same names to the folder given with
-folder (default sliced_feature_dir) inside each protein's data directory.

Selecting the common features from the sequence alignment is not supported:
without -indices the command reports what is missing and writes nothing.`),
	SetFlags: func(c *command.Command) {
		o := &sliceFlags
		o.common.setFlags(c)
		c.Flags().StringVar(&o.indices, "indices", "", "YAML `file` of feature indices per protein")
		c.Flags().StringVar(&o.folder, "folder", features.DefaultFolder, "output folder `name`")
		c.Flags().IntVar(&o.workers, "workers", runtime.NumCPU(), "`number` of parallel workers")
	},
	Run: runSlice,
}

var sliceFlags struct {
	common
	indices string
	folder  string
	workers int
}

func readIndices(path string) (map[string][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var indices map[string][]int
	if err := yaml.NewDecoder(f).Decode(&indices); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return indices, nil
}

func runSlice(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &sliceFlags
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	opts := features.Options{
		Describer: features.Descriptors{Config: cfg},
		Folder:    o.folder,
		Workers:   o.workers,
		Logger:    o.logger(),
	}
	if o.indices != "" {
		if opts.Indices, err = readIndices(o.indices); err != nil {
			return err
		}
	}

	written, err := features.SeriesSlicer(ctx, cfg, opts)
	if err != nil {
		return err
	}
	store, err := o.openCatalog(ctx)
	if err != nil || store == nil {
		return err
	}
	defer closeCatalog(store)
	run := catalog.NewRun("", catalog.KindSlice, map[string]string{"folder": o.folder, "indices": o.indices})
	_, err = catalog.Record(ctx, store, run, written...)
	return err
}
