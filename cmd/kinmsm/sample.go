package main

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/tica"
)

var sampleTicCmd = &command.Command{
	Usage: `sample-tic -project <file> -protein <name> [-tic <index>]
	[-frames <number>] [-scheme linear|random|edge] [-seed <number>]
	[-catalog <file>]`,
	Short: "sample a continuous path of frames along one tic",
	Long: wrap(`
Command sample-tic picks frames whose value along one tic follows a set of
targets, preferring at each step the candidate structurally closest to the
previous pick. Targets are evenly spaced between the extremes of the tic
(linear), drawn from the observed values (random) or taken from both ends
(edge).

The path is written to tic<index>.dcd with a reference structure tic<index>.pdb and
a plain-text log tic<index>.log in the model directory of the protein. Nothing
is written if any frame cannot be sampled or loaded.`),
	SetFlags: func(c *command.Command) {
		sampleTicFlags.setFlags(c, tica.DefaultPathSize)
		c.Flags().IntVar(&sampleTicFlags.tic, "tic", 0, "tic `index`")
	},
	Run: runSampleTic,
}

var sampleTicFlags struct {
	sampling
	tic int
}

func runSampleTic(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &sampleTicFlags
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	prt, err := o.loadProtein(c, cfg, o.protein)
	if err != nil {
		return err
	}
	opts, err := o.options(cfg)
	if err != nil {
		return err
	}
	store, err := o.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	out, err := tica.SampleOneTic(cfg, prt, o.tic, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout(), out.TrajPath)
	return record(ctx, store, catalog.KindSampleTic, o.params(map[string]string{"tic": strconv.Itoa(o.tic)}), out)
}

var sampleAllCmd = &command.Command{
	Usage: `sample-all -project <file> [-proteins <list>] [-tics <list>]
	[-frames <number>] [-scheme linear|random|edge] [-workers <number>]
	[-seed <number>] [-catalog <file>]`,
	Short: "sample tic paths for every protein and tic",
	Long: wrap(`
Command sample-all runs sample-tic for every protein of the project and every
tic, or for the comma-separated subsets given with -proteins and -tics. Pairs
run in parallel on -workers workers; each pair draws from its own random
source derived from -seed, so results do not depend on the number of
workers.`),
	SetFlags: func(c *command.Command) {
		sampleAllFlags.setFlags(c, tica.DefaultPathSize)
		c.Flags().StringVar(&sampleAllFlags.proteins, "proteins", "", "comma-separated protein `list`")
		c.Flags().StringVar(&sampleAllFlags.tics, "tics", "", "comma-separated tic `list`")
		c.Flags().IntVar(&sampleAllFlags.workers, "workers", runtime.NumCPU(), "`number` of parallel workers")
	},
	Run: runSampleAll,
}

var sampleAllFlags struct {
	sampling
	proteins string
	tics     string
	workers  int
}

func runSampleAll(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &sampleAllFlags
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	tics, err := parseInts(o.tics)
	if err != nil {
		return c.UsageError(err.Error())
	}
	var proteins []string
	for _, p := range splitList(o.proteins) {
		if !cfg.HasProtein(p) {
			return fmt.Errorf("protein %q is not in the project", p)
		}
		proteins = append(proteins, p)
	}
	opts, err := o.options(cfg)
	if err != nil {
		return err
	}
	store, err := o.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	outs, err := tica.SampleAll(ctx, cfg, tica.BatchOptions{
		Options:  opts,
		Proteins: proteins,
		Tics:     tics,
		Workers:  o.workers,
		Seed:     o.seed,
	})
	if err != nil {
		return err
	}
	for _, out := range outs {
		fmt.Fprintln(c.Stdout(), out.TrajPath)
		params := o.params(map[string]string{"tic": strconv.Itoa(out.Tic)})
		if err := record(ctx, store, catalog.KindSampleTic, params, out); err != nil {
			return err
		}
	}
	return nil
}

var sampleRegionCmd = &command.Command{
	Usage: `sample-region -project <file> -protein <name> -region <tic=value,...>
	[-frames <number>] [-o <name>] [-catalog <file>]`,
	Short: "sample the frames nearest to a point in tic space",
	Long: wrap(`
Command sample-region writes the frames nearest to a point of the full tic
space, nearest first. The point is given as comma-separated tic=value terms;
tics left out are zero. The trajectory is written to the model directory as
sampled_tic_region.dcd, or the name given with -o, with a reference structure of the same name
ending in .pdb.`),
	SetFlags: func(c *command.Command) {
		sampleRegionFlags.setFlags(c, tica.DefaultRegion)
		c.Flags().StringVar(&sampleRegionFlags.region, "region", "", "target `point` as tic=value terms")
		c.Flags().StringVar(&sampleRegionFlags.name, "o", tica.RegionTrajName, "output trajectory `name`")
	},
	Run: runSampleRegion,
}

var sampleRegionFlags struct {
	sampling
	region string
	name   string
}

func runSampleRegion(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &sampleRegionFlags
	region, err := parseRegion(o.region)
	if err != nil {
		return c.UsageError(err.Error())
	}
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	prt, err := o.loadProtein(c, cfg, o.protein)
	if err != nil {
		return err
	}
	opts, err := o.options(cfg)
	if err != nil {
		return err
	}
	store, err := o.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	out, err := tica.SampleRegion(cfg, prt, region, o.name, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout(), out.TrajPath)
	return record(ctx, store, catalog.KindSampleRegion, o.params(map[string]string{"region": o.region}), out)
}

var sampleStatesCmd = &command.Command{
	Usage: `sample-states -project <file> -protein <name> [-frames <number>]
	[-seed <number>] [-catalog <file>]`,
	Short: "sample frames at equilibrium from the MSM",
	Long: wrap(`
Command sample-states draws frames at equilibrium: a state with probability
given by its stationary population, then a frame of that state uniformly at
random. The result is written to sampled_states.dcd in the model directory.`),
	SetFlags: func(c *command.Command) {
		sampleStatesFlags.setFlags(c, tica.DefaultPathSize)
	},
	Run: runSampleStates,
}

var sampleStatesFlags struct {
	sampling
}

func runSampleStates(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &sampleStatesFlags
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	prt, err := o.loadProtein(c, cfg, o.protein)
	if err != nil {
		return err
	}
	opts, err := o.options(cfg)
	if err != nil {
		return err
	}
	store, err := o.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	out, err := tica.SampleStates(cfg, prt, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout(), out.TrajPath)
	return record(ctx, store, catalog.KindSampleStates, o.params(nil), out)
}
