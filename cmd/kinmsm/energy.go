package main

import (
	"context"
	"io"
	"strconv"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/energy"
	"github.com/kinase-msm/kinmsm/project"
)

var freeEnergyCmd = &command.Command{
	Usage: `free-energy -project <file> -protein <name> [-tics <list>]
	[-bins <number>] [-errorbars] [-o <file>] [-catalog <file>]`,
	Short: "compute free energy along one or two tics",
	Long: wrap(`
Command free-energy histograms the tICA projection of a protein state by
state, weights each state by its stationary population and reports
F = -0.6 ln(H) in kcal/mol, up to an additive constant.

With one tic the output is a tab-delimited table with the columns tic_value,
free_energy, protein_name and mdl_index; mdl_index is "mle", or "mean",
"lower" and "upper" for the bootstrap rows added by -errorbars. With two tics
the output has the columns x, y and free_energy, one line per bin. Bins with
no weight have free energy "inf".

The -bins flag sets the number of bin edges, spaced evenly between the
extremes of each tic.`),
	SetFlags: func(c *command.Command) {
		o := &freeEnergyFlags
		o.common.setFlags(c)
		c.Flags().StringVar(&o.protein, "protein", "", "protein `name`")
		c.Flags().StringVar(&o.tics, "tics", "0", "one or two comma-separated tic `indices`")
		c.Flags().IntVar(&o.bins, "bins", energy.DefaultEdges, "`number` of bin edges per tic")
		c.Flags().BoolVar(&o.errorbars, "errorbars", false, "add bootstrap mean, lower and upper rows")
		c.Flags().StringVar(&o.output, "o", "", "output `file`, default standard output")
	},
	Run: runFreeEnergy,
}

var freeEnergyFlags struct {
	common
	protein   string
	tics      string
	bins      int
	errorbars bool
	output    string
}

func runFreeEnergy(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &freeEnergyFlags
	tics, err := parseInts(o.tics)
	if err != nil {
		return c.UsageError(err.Error())
	}
	if len(tics) != 1 && len(tics) != 2 {
		return c.UsageError("flag -tics takes one or two tics")
	}
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	prt, err := o.loadProtein(c, cfg, o.protein)
	if err != nil {
		return err
	}

	bins := energy.Bins{Count: o.bins}
	var write func(io.Writer) error
	if len(tics) == 1 {
		rows, err := energy.OneDimTicFreeEnergy(prt, tics[0], bins, o.errorbars)
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return energy.WriteRows(w, rows) }
	} else {
		surface, err := energy.TwoDimTicFreeEnergy(prt, [2]int{tics[0], tics[1]}, bins)
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return energy.WriteSurface(w, surface) }
	}

	if o.output == "" {
		return write(c.Stdout())
	}
	if err := project.WriteFileAtomic(o.output, write); err != nil {
		return err
	}
	o.logger().Infof("%s: wrote free energy to %s", prt.Name, o.output)

	store, err := o.openCatalog(ctx)
	if err != nil || store == nil {
		return err
	}
	defer closeCatalog(store)
	run := catalog.NewRun(prt.Name, catalog.KindFreeEnergy, map[string]string{
		"tics":      o.tics,
		"bins":      strconv.Itoa(o.bins),
		"errorbars": strconv.FormatBool(o.errorbars),
	})
	_, err = catalog.Record(ctx, store, run, o.output)
	return err
}
