package tica

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kinase-msm/kinmsm/frames"
	"github.com/kinase-msm/kinmsm/project"
	"github.com/lunny/log"
)

// Default output names inside a protein's model directory.
const (
	RegionTrajName  = "sampled_tic_region.dcd"
	StatesTrajName  = "sampled_states.dcd"
	DefaultSeed     = 1
	DefaultPathSize = 100
	DefaultRegion   = 50
)

// Materializer loads frames and persists joined trajectories.
// WriteTrajectory leaves either both files or neither.
// *frames.DCDStore implements it.
type Materializer interface {
	LoadFrame(protein, traj string, frame int) (*frames.Frame, error)
	WriteTrajectory(t *frames.Trajectory, trajPath, refPath string) error
}

// Options configures a sampling call. Materializer is required.
type Options struct {
	Frames       int
	Scheme       Scheme
	Candidates   int
	Rand         *rand.Rand
	Logger       *log.Logger
	Materializer Materializer
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(DefaultSeed))
}

// Output describes the artifacts of one sampling call.
type Output struct {
	Protein  string
	Tic      int
	Steps    []Step
	Frames   []FrameRef
	LogPath  string
	TrajPath string
	RefPath  string
}

// Artifacts lists every file the call wrote.
func (o *Output) Artifacts() []string {
	var out []string
	for _, p := range []string{o.LogPath, o.TrajPath, o.RefPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SampleOneTic samples opts.Frames frames along tic of prt and writes
// tic<N>.dcd, its reference tic<N>.pdb and the path log tic<N>.log into the
// protein's model directory. Nothing is written unless the whole path was
// sampled and loaded, and the log goes last: if it cannot be written the
// trajectory and reference are removed again.
func SampleOneTic(cfg *project.Config, prt *project.Protein, tic int, opts Options) (*Output, error) {
	logger := opts.logger()
	sampler, err := NewPathSampler(prt.Tica, tic)
	if err != nil {
		return nil, err
	}
	sampler.SetCandidates(opts.Candidates)
	steps, err := sampler.Run(opts.Frames, opts.Scheme, opts.rng())
	if err != nil {
		return nil, fmt.Errorf("sample %s tic %d: %w", prt.Name, tic, err)
	}

	refs := make([]FrameRef, len(steps))
	for i, s := range steps {
		refs[i] = s.FrameRef
		logger.Debugf("%s tic%d step %d: want %g got %g from %s[%d]",
			prt.Name, tic, s.Index, s.Requested, s.Achieved, s.Traj, s.Frame)
	}
	trj, err := materialize(opts.Materializer, prt.Name, refs)
	if err != nil {
		return nil, err
	}

	dir := cfg.ModelDir(prt.Name)
	out := &Output{
		Protein:  prt.Name,
		Tic:      tic,
		Steps:    steps,
		Frames:   refs,
		LogPath:  filepath.Join(dir, fmt.Sprintf("tic%d.log", tic)),
		TrajPath: filepath.Join(dir, fmt.Sprintf("tic%d.dcd", tic)),
	}
	out.RefPath = referencePath(out.TrajPath)
	if err := opts.Materializer.WriteTrajectory(trj, out.TrajPath, out.RefPath); err != nil {
		return nil, err
	}
	if err := project.WriteFileAtomic(out.LogPath, func(w io.Writer) error {
		return WritePathLog(w, steps)
	}); err != nil {
		os.Remove(out.TrajPath)
		os.Remove(out.RefPath)
		return nil, err
	}
	logger.Infof("%s tic%d: wrote %d frames to %s", prt.Name, tic, len(steps), out.TrajPath)
	return out, nil
}

// SampleRegion writes the k frames nearest to region (tic -> value; other
// tics 0) to name, default sampled_tic_region.dcd, in nearest-first order.
// The reference structure takes the same name with a .pdb extension.
func SampleRegion(cfg *project.Config, prt *project.Protein, region map[int]float64, name string, opts Options) (*Output, error) {
	if name == "" {
		name = RegionTrajName
	}
	hits, err := NearestFrames(prt.Tica, prt.NTics(), region, opts.Frames)
	if err != nil {
		return nil, fmt.Errorf("sample %s region: %w", prt.Name, err)
	}
	refs := make([]FrameRef, len(hits))
	for i, h := range hits {
		refs[i] = h.FrameRef
	}
	return writeFrames(cfg, prt.Name, refs, name, opts)
}

// SampleStates writes opts.Frames frames drawn at equilibrium from the MSM
// populations to sampled_states.dcd.
func SampleStates(cfg *project.Config, prt *project.Protein, opts Options) (*Output, error) {
	refs, err := EquilibriumFrames(prt.Assignments, prt.MSM.Populations, opts.Frames, opts.rng())
	if err != nil {
		return nil, fmt.Errorf("sample %s states: %w", prt.Name, err)
	}
	return writeFrames(cfg, prt.Name, refs, StatesTrajName, opts)
}

func writeFrames(cfg *project.Config, protein string, refs []FrameRef, name string, opts Options) (*Output, error) {
	trj, err := materialize(opts.Materializer, protein, refs)
	if err != nil {
		return nil, err
	}
	dir := cfg.ModelDir(protein)
	out := &Output{
		Protein:  protein,
		Tic:      -1,
		Frames:   refs,
		TrajPath: filepath.Join(dir, name),
	}
	out.RefPath = referencePath(out.TrajPath)
	if err := opts.Materializer.WriteTrajectory(trj, out.TrajPath, out.RefPath); err != nil {
		return nil, err
	}
	opts.logger().Infof("%s: wrote %d frames to %s", protein, len(refs), out.TrajPath)
	return out, nil
}

// referencePath names the reference structure of a trajectory output, so
// outputs sharing a directory never overwrite each other's reference.
func referencePath(trajPath string) string {
	return strings.TrimSuffix(trajPath, filepath.Ext(trajPath)) + ".pdb"
}

func materialize(m Materializer, protein string, refs []FrameRef) (*frames.Trajectory, error) {
	if m == nil {
		return nil, fmt.Errorf("no frame materializer configured")
	}
	loaded := make([]*frames.Frame, len(refs))
	for i, r := range refs {
		f, err := m.LoadFrame(protein, r.Traj, r.Frame)
		if err != nil {
			return nil, fmt.Errorf("load %s %s[%d]: %w", protein, r.Traj, r.Frame, err)
		}
		loaded[i] = f
	}
	return frames.Join(loaded)
}

// BatchOptions configures SampleAll.
type BatchOptions struct {
	Options
	// Proteins defaults to the project's protein_list.
	Proteins []string
	// Tics defaults to every tic of the project.
	Tics []int
	// Workers is the pool size, at least 1.
	Workers int
	// Seed offsets the per-pair random source.
	Seed int64
}

// SampleAll runs SampleOneTic for every (protein, tic) pair on a worker
// pool that lives for the duration of the call. Each pair draws from its own
// source seeded with Seed plus the pair's ordinal, so results do not depend
// on scheduling. The first error cancels outstanding pairs.
func SampleAll(ctx context.Context, cfg *project.Config, opts BatchOptions) ([]*Output, error) {
	proteins := opts.Proteins
	if len(proteins) == 0 {
		proteins = cfg.ProteinList
	}
	tics := opts.Tics
	if len(tics) == 0 {
		tics = cfg.Tics()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	type job struct {
		ordinal int
		prt     *project.Protein
		tic     int
	}
	var jobs []job
	for _, name := range proteins {
		prt, err := project.LoadProtein(cfg, name)
		if err != nil {
			return nil, err
		}
		for _, tic := range tics {
			jobs = append(jobs, job{ordinal: len(jobs), prt: prt, tic: tic})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		outputs  = make([]*Output, len(jobs))
		queue    = make(chan job)
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range queue {
				o := opts.Options
				o.Rand = rand.New(rand.NewSource(opts.Seed + int64(j.ordinal)))
				out, err := SampleOneTic(cfg, j.prt, j.tic, o)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				outputs[j.ordinal] = out
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
	return outputs, nil
}
