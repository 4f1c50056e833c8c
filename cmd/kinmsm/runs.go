package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var runsCmd = &command.Command{
	Usage: "runs -catalog <file> [-protein <name>] [-verify] [-path]",
	Short: "list the runs recorded in a catalog",
	Long: wrap(`
Command runs lists the runs recorded in a catalog, oldest first, with the
artifacts each one wrote and their BLAKE3 digests. With -verify the artifacts
are hashed again and changed files are flagged. With -path the sampled steps
of tic runs are printed as well.`),
	SetFlags: func(c *command.Command) {
		o := &runsFlags
		c.Flags().StringVar(&o.catalog, "catalog", "", "SQLite catalog `file`")
		c.Flags().StringVar(&o.protein, "protein", "", "only runs of protein `name`")
		c.Flags().BoolVar(&o.verify, "verify", false, "check artifact digests")
		c.Flags().BoolVar(&o.path, "path", false, "print sampled path steps")
	},
	Run: runRuns,
}

var runsFlags struct {
	catalog string
	protein string
	verify  bool
	path    bool
}

func formatParams(p map[string]string) string {
	keys := maps.Keys(p)
	slices.Sort(keys)
	terms := make([]string, len(keys))
	for i, k := range keys {
		terms[i] = k + "=" + p[k]
	}
	return strings.Join(terms, " ")
}

func runRuns(c *command.Command, args []string) error {
	ctx := context.Background()
	o := &runsFlags
	if o.catalog == "" {
		return c.UsageError("flag -catalog must be set")
	}
	store := catalog.NewSQLiteStore(o.catalog)
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, o.protein)
	if err != nil {
		return err
	}
	w := c.Stdout()
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", run.ID, run.CreatedAt.Format(time.RFC3339), run.Kind, run.Protein, formatParams(run.Params))

		changed := make(map[string]bool)
		if o.verify {
			paths, err := catalog.Verify(run)
			if err != nil {
				return err
			}
			for _, p := range paths {
				changed[p] = true
			}
		}
		for _, a := range run.Artifacts {
			mark := ""
			if changed[a.Path] {
				mark = "\tCHANGED"
			}
			fmt.Fprintf(w, "\t%s\t%d\t%s%s\n", a.Digest, a.Size, a.Path, mark)
		}

		if !o.path {
			continue
		}
		steps, ok, err := store.GetPath(ctx, run.ID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, st := range steps {
			fmt.Fprintf(w, "\t%d\t%g\t%g\t%s\t%d\n", st.Index, st.Requested, st.Achieved, st.Traj, st.Frame)
		}
	}
	return nil
}
