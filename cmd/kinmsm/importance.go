package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/frames"
	"github.com/kinase-msm/kinmsm/importance"
)

var importanceCmd = &command.Command{
	Usage: `importance -project <file> -protein <name> -tic <index> [-o <file>]
	[-catalog <file>]`,
	Short: "map a tic onto the residues of a protein",
	Long: wrap(`
Command importance sums the absolute weight of every feature of a tICA
component into the residues the feature is computed from, and gives each atom
the importance of its residue. The residue importances are printed as a
tab-delimited table with the columns residue and importance.

With -o, the reference structure of the protein is also written as a PDB file
with the atom importance in the B-factor column.`),
	SetFlags: func(c *command.Command) {
		o := &importanceFlags
		o.common.setFlags(c)
		c.Flags().StringVar(&o.protein, "protein", "", "protein `name`")
		c.Flags().IntVar(&o.tic, "tic", 0, "tic `index`")
		c.Flags().StringVar(&o.output, "o", "", "output PDB `file`")
	},
	Run: runImportance,
}

var importanceFlags struct {
	common
	protein string
	tic     int
	output  string
}

func writeResidues(w io.Writer, residues []float64) error {
	if _, err := fmt.Fprintln(w, "residue\timportance"); err != nil {
		return err
	}
	for i, v := range residues {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", i, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

func runImportance(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &importanceFlags
	cfg, err := o.load(c)
	if err != nil {
		return err
	}
	if !cfg.HasProtein(o.protein) {
		return c.UsageError(fmt.Sprintf("protein %q is not in the project", o.protein))
	}
	mol, err := frames.NewDCDStore(cfg).Topology(o.protein)
	if err != nil {
		return err
	}
	imp, err := importance.ForTic(cfg, o.protein, o.tic, mol)
	if err != nil {
		return err
	}
	if err := writeResidues(c.Stdout(), imp.Residues); err != nil {
		return err
	}
	if o.output == "" {
		return nil
	}
	if err := importance.WritePDB(o.output, mol.Coords[0], mol, imp); err != nil {
		return err
	}

	store, err := o.openCatalog(ctx)
	if err != nil || store == nil {
		return err
	}
	defer closeCatalog(store)
	run := catalog.NewRun(o.protein, catalog.KindImportance, map[string]string{"tic": strconv.Itoa(o.tic)})
	_, err = catalog.Record(ctx, store, run, o.output)
	return err
}
