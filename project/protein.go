package project

import (
	"math"

	"github.com/kinase-msm/kinmsm/checks"
	"github.com/kinase-msm/kinmsm/msmerr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Artifact stems under the protein's model directory.
const (
	TicaDataArtifact    = "tica_data"
	AssignmentsArtifact = "assignments"
	MSMArtifact         = "msm_mdl"
	TicaModelArtifact   = "tica_mdl"
	DescriptorArtifact  = "feature_descriptor"
)

// Coordinates maps a trajectory id to its (n_frames, n_dims) coordinate rows.
// Trajectories generally differ in length.
type Coordinates map[string][][]float64

// Assignments maps a trajectory id to its per-frame state labels.
type Assignments map[string][]int

// Trajectories returns the trajectory ids in sorted order.
func (c Coordinates) Trajectories() []string {
	keys := maps.Keys(c)
	slices.Sort(keys)
	return keys
}

// Frames returns the total number of frames across all trajectories.
func (c Coordinates) Frames() int {
	n := 0
	for _, rows := range c {
		n += len(rows)
	}
	return n
}

// Column returns every trajectory's values along dimension dim.
func (c Coordinates) Column(dim int) map[string][]float64 {
	out := make(map[string][]float64, len(c))
	for traj, rows := range c {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[dim]
		}
		out[traj] = col
	}
	return out
}

// Bootstrap holds the bootstrap-MSM population estimates.
type Bootstrap struct {
	Mean []float64 `json:"mapped_populations_mean"`
	SEM  []float64 `json:"mapped_populations_sem"`
}

// MSM is the fitted Markov state model as seen by this package: stationary
// populations and, when available, bootstrap estimates.
type MSM struct {
	Populations []float64  `json:"populations"`
	LagTime     int        `json:"lag_time,omitempty"`
	Bootstrap   *Bootstrap `json:"bootstrap,omitempty"`
}

// TicaModel holds the fitted tICA eigenvectors, one feature-weight row per tic.
type TicaModel struct {
	Components [][]float64 `json:"components"`
}

// FeatureDescriptor names the residues a feature is computed from.
type FeatureDescriptor struct {
	Index    int    `json:"index"`
	Residues []int  `json:"resid"`
	Kind     string `json:"featurizer,omitempty"`
}

// Protein is the loaded analysis state of one protein: its tICA projection,
// state assignments and MSM. It is read-only once loaded.
type Protein struct {
	Name        string
	Tica        Coordinates
	Assignments Assignments
	MSM         MSM
}

// LoadProtein reads and validates the artifacts of protein from the model
// directory named by cfg.
func LoadProtein(cfg *Config, name string) (*Protein, error) {
	dir := cfg.ModelDir(name)
	p := &Protein{Name: name}

	if err := readStem(dir, TicaDataArtifact, &p.Tica); err != nil {
		return nil, err
	}
	if err := readStem(dir, AssignmentsArtifact, &p.Assignments); err != nil {
		return nil, err
	}
	if err := readStem(dir, MSMArtifact, &p.MSM); err != nil {
		return nil, err
	}
	if err := p.validate(cfg.Params.TicaComponents); err != nil {
		return nil, err
	}
	return p, nil
}

func readStem(dir, stem string, v any) error {
	path, err := ResolveArtifact(dir, stem)
	if err != nil {
		return err
	}
	return ReadArtifact(path, v)
}

func (p *Protein) validate(nTics int) error {
	dims, ok := checks.Dims(p.Tica)
	if !ok {
		return msmerr.Configuration("tica data rows have inconsistent widths").With("protein", p.Name)
	}
	if dims != nTics {
		return msmerr.Configuration("tica data width does not match tica__n_components").
			With("protein", p.Name).
			With("width", dims).
			With("n_components", nTics)
	}
	if !checks.AssignmentsMatch(p.Tica, p.Assignments) {
		return msmerr.Configuration("assignments do not match tica trajectories").With("protein", p.Name)
	}
	if !checks.IsPopulationVector(p.MSM.Populations) {
		return msmerr.Configuration("msm populations are not a probability vector").With("protein", p.Name)
	}
	if !checks.LabelsInRange(p.Assignments, p.NStates()) {
		return msmerr.Configuration("state labels outside [0, n_states)").
			With("protein", p.Name).
			With("n_states", p.NStates())
	}
	return nil
}

// NStates is the number of MSM states.
func (p *Protein) NStates() int {
	return len(p.MSM.Populations)
}

// NTics is the width of the tICA projection.
func (p *Protein) NTics() int {
	dims, _ := checks.Dims(p.Tica)
	return dims
}

// TicRange returns the minimum and maximum of tic over every frame.
func (p *Protein) TicRange(tic int) (lo, hi float64, err error) {
	if tic < 0 || tic >= p.NTics() {
		return 0, 0, msmerr.DimensionMismatch(tic+1, p.NTics()).With("tic", tic)
	}
	if p.Tica.Frames() == 0 {
		return 0, 0, msmerr.InsufficientData("frames", 0, 1).With("protein", p.Name)
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, rows := range p.Tica {
		for _, row := range rows {
			lo = math.Min(lo, row[tic])
			hi = math.Max(hi, row[tic])
		}
	}
	return lo, hi, nil
}

// TicDict returns the values of tic grouped by the state of each frame.
func (p *Protein) TicDict(tic int) (map[int][]float64, error) {
	if tic < 0 || tic >= p.NTics() {
		return nil, msmerr.DimensionMismatch(tic+1, p.NTics()).With("tic", tic)
	}
	return p.MapObsToState(p.Tica.Column(tic))
}

// MapObsToState regroups a per-trajectory, per-frame observable by MSM state.
// Trajectories are visited in sorted order so the grouping is deterministic.
func (p *Protein) MapObsToState(obs map[string][]float64) (map[int][]float64, error) {
	out := make(map[int][]float64, p.NStates())
	keys := maps.Keys(obs)
	slices.Sort(keys)
	for _, traj := range keys {
		labels, ok := p.Assignments[traj]
		if !ok {
			return nil, msmerr.Configuration("observable for unassigned trajectory").
				With("protein", p.Name).
				With("traj", traj)
		}
		values := obs[traj]
		if len(values) != len(labels) {
			return nil, msmerr.DimensionMismatch(len(values), len(labels)).With("traj", traj)
		}
		for i, s := range labels {
			out[s] = append(out[s], values[i])
		}
	}
	return out, nil
}

// LoadTicaModel reads the fitted tICA components of protein.
func LoadTicaModel(cfg *Config, protein string) (*TicaModel, error) {
	var m TicaModel
	if err := readStem(cfg.ModelDir(protein), TicaModelArtifact, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFeatureDescriptors reads the residue description of every feature of protein.
func LoadFeatureDescriptors(cfg *Config, protein string) ([]FeatureDescriptor, error) {
	var d []FeatureDescriptor
	if err := readStem(cfg.ModelDir(protein), DescriptorArtifact, &d); err != nil {
		return nil, err
	}
	return d, nil
}
