package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/js-arias/command"
	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/frames"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/kinase-msm/kinmsm/tica"
	"github.com/lunny/log"
	"github.com/mitchellh/go-wordwrap"
)

const helpWidth = 76

// wrap reflows a help paragraph to the help width.
func wrap(s string) string {
	paras := strings.Split(strings.TrimSpace(s), "\n\n")
	for i, p := range paras {
		paras[i] = wordwrap.WrapString(strings.Join(strings.Fields(p), " "), helpWidth)
	}
	return "\n" + strings.Join(paras, "\n\n")
}

// common holds the flags shared by every project command.
type common struct {
	project string
	catalog string
	verbose bool
}

func (o *common) setFlags(c *command.Command) {
	c.Flags().StringVar(&o.project, "project", "", "project YAML `file`")
	c.Flags().StringVar(&o.catalog, "catalog", "", "record the run in the SQLite catalog `file`")
	c.Flags().BoolVar(&o.verbose, "v", false, "log every sampled step")
}

func (o *common) load(c *command.Command) (*project.Config, error) {
	if o.project == "" {
		return nil, c.UsageError("flag -project must be set")
	}
	return project.Load(o.project)
}

func (o *common) loadProtein(c *command.Command, cfg *project.Config, name string) (*project.Protein, error) {
	if name == "" {
		return nil, c.UsageError("flag -protein must be set")
	}
	if !cfg.HasProtein(name) {
		return nil, fmt.Errorf("protein %q is not in the project", name)
	}
	return project.LoadProtein(cfg, name)
}

func (o *common) logger() *log.Logger {
	l := log.New(os.Stderr, "", log.LstdFlags)
	if o.verbose {
		l.SetOutputLevel(log.Ldebug)
	} else {
		l.SetOutputLevel(log.Linfo)
	}
	return l
}

// openCatalog returns nil when no catalog was requested.
func (o *common) openCatalog(ctx context.Context) (catalog.Store, error) {
	if o.catalog == "" {
		return nil, nil
	}
	store, err := catalog.NewStore("sqlite", o.catalog)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", o.catalog, err)
	}
	return store, nil
}

func closeCatalog(store catalog.Store) {
	if store != nil {
		_ = catalog.CloseIfSupported(store)
	}
}

// record saves one sampling output to store, if any.
func record(ctx context.Context, store catalog.Store, kind string, params map[string]string, out *tica.Output) error {
	if store == nil {
		return nil
	}
	run, err := catalog.Record(ctx, store, catalog.NewRun(out.Protein, kind, params), out.Artifacts()...)
	if err != nil {
		return err
	}
	if len(out.Steps) > 0 {
		return store.SavePath(ctx, run.ID, out.Steps)
	}
	return nil
}

// sampling holds the flags of the sampling commands.
type sampling struct {
	common
	protein    string
	frames     int
	scheme     string
	candidates int
	seed       int64
}

func (o *sampling) setFlags(c *command.Command, frames int) {
	o.common.setFlags(c)
	c.Flags().StringVar(&o.protein, "protein", "", "protein `name`")
	c.Flags().IntVar(&o.frames, "frames", frames, "`number` of frames to sample")
	c.Flags().StringVar(&o.scheme, "scheme", string(tica.Linear), "sampling `scheme`: linear, random or edge")
	c.Flags().IntVar(&o.candidates, "candidates", tica.DefaultCandidates, "`number` of candidates in the continuity tie-break")
	c.Flags().Int64Var(&o.seed, "seed", tica.DefaultSeed, "random `seed`")
}

func (o *sampling) options(cfg *project.Config) (tica.Options, error) {
	scheme, err := tica.ParseScheme(o.scheme)
	if err != nil {
		return tica.Options{}, err
	}
	return tica.Options{
		Frames:       o.frames,
		Scheme:       scheme,
		Candidates:   o.candidates,
		Rand:         rand.New(rand.NewSource(o.seed)),
		Logger:       o.logger(),
		Materializer: frames.NewDCDStore(cfg),
	}, nil
}

func (o *sampling) params(extra map[string]string) map[string]string {
	p := map[string]string{
		"frames": strconv.Itoa(o.frames),
		"scheme": o.scheme,
		"seed":   strconv.FormatInt(o.seed, 10),
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// parseInts parses a comma-separated list such as "0,2,3".
func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseRegion parses tic=value pairs such as "0=1.5,2=-0.3".
func parseRegion(s string) (map[int]float64, error) {
	region := make(map[int]float64)
	if s == "" {
		return region, nil
	}
	for _, f := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid region term %q, want tic=value", f)
		}
		tic, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid tic %q", k)
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for tic %d", v, tic)
		}
		region[tic] = val
	}
	return region, nil
}

// splitList splits a comma-separated list, dropping empty terms.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
