/*
Package project loads a kinase MSM project: the YAML configuration naming the
proteins and directories, and the per-protein artifacts (tICA projections,
state assignments, MSM populations) dumped by the model-fitting stage.
*/
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kinase-msm/kinmsm/msmerr"
	"gopkg.in/yaml.v3"
)

const (
	defaultFeatureDir   = "feature_dir"
	defaultTrajDir      = "protein_traj"
	defaultTopologyFile = "prot.pdb"
)

// Params holds the model-fitting parameters recorded in the project file.
// Only TicaComponents is required by the analysis routines.
type Params struct {
	TicaComponents int `yaml:"tica__n_components"`
	TicaLagTime    int `yaml:"tica__lag_time"`
	Clusters       int `yaml:"cluster__n_clusters"`
	MSMLagTime     int `yaml:"msm__lag_time"`
}

// Config is a project configuration.
type Config struct {
	BaseDir       string   `yaml:"base_dir"`
	MdlDir        string   `yaml:"mdl_dir"`
	FeatureDir    string   `yaml:"feature_dir"`
	TrajDir       string   `yaml:"traj_dir"`
	TopologyFile  string   `yaml:"topology_file"`
	AlignmentFile string   `yaml:"alignment_file"`
	ProteinList   []string `yaml:"protein_list"`
	Params        Params   `yaml:"params"`
}

// Load reads the project file at path. Relative base_dir, mdl_dir and
// alignment_file entries are resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, msmerr.Configuration("cannot open project file").With("path", path).WithCause(err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.BaseDir = resolve(dir, cfg.BaseDir)
	cfg.MdlDir = resolve(dir, cfg.MdlDir)
	cfg.AlignmentFile = resolve(dir, cfg.AlignmentFile)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (c *Config) applyDefaults() {
	if c.FeatureDir == "" {
		c.FeatureDir = defaultFeatureDir
	}
	if c.TrajDir == "" {
		c.TrajDir = defaultTrajDir
	}
	if c.TopologyFile == "" {
		c.TopologyFile = defaultTopologyFile
	}
}

// Validate checks the fields every analysis needs.
func (c *Config) Validate() error {
	switch {
	case c.BaseDir == "":
		return msmerr.Configuration("base_dir is required")
	case c.MdlDir == "":
		return msmerr.Configuration("mdl_dir is required")
	case len(c.ProteinList) == 0:
		return msmerr.Configuration("protein_list is empty")
	case c.Params.TicaComponents <= 0:
		return msmerr.Configuration("params.tica__n_components must be positive").
			With("value", c.Params.TicaComponents)
	}
	return nil
}

// HasProtein reports whether name is listed in protein_list.
func (c *Config) HasProtein(name string) bool {
	for _, p := range c.ProteinList {
		if p == name {
			return true
		}
	}
	return false
}

// Tics returns the tic indices 0..tica__n_components-1.
func (c *Config) Tics() []int {
	tics := make([]int, c.Params.TicaComponents)
	for i := range tics {
		tics[i] = i
	}
	return tics
}

// ModelDir is where fitted models of protein live and where sampled
// structures are written.
func (c *Config) ModelDir(protein string) string {
	return filepath.Join(c.MdlDir, protein)
}

// ProteinDir is the raw-data directory of protein.
func (c *Config) ProteinDir(protein string) string {
	return filepath.Join(c.BaseDir, protein)
}

// FeaturePath is the directory holding the per-trajectory feature dumps.
func (c *Config) FeaturePath(protein string) string {
	return filepath.Join(c.ProteinDir(protein), c.FeatureDir)
}

// TrajectoryPath is the DCD file of one trajectory.
func (c *Config) TrajectoryPath(protein, traj string) string {
	return filepath.Join(c.ProteinDir(protein), c.TrajDir, traj+".dcd")
}

// TopologyPath is the reference structure shared by all trajectories of protein.
func (c *Config) TopologyPath(protein string) string {
	return filepath.Join(c.ProteinDir(protein), c.TopologyFile)
}
