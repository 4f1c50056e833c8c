// Package frames materializes trajectory frames: it reads single frames out
// of per-trajectory DCD files, joins them into one trajectory and writes the
// result as DCD plus a PDB reference structure.
package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/dcd"
	v3 "github.com/rmera/gochem/v3"
)

// Frame is one structural snapshot.
type Frame struct {
	Coords   *v3.Matrix
	Topology chem.Atomer
}

// Trajectory is an ordered set of frames sharing one topology.
type Trajectory struct {
	Topology chem.Atomer
	Frames   []*v3.Matrix
}

// Join concatenates frames in order. All frames must have the same atom count.
func Join(frames []*Frame) (*Trajectory, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to join")
	}
	t := &Trajectory{Topology: frames[0].Topology, Frames: make([]*v3.Matrix, len(frames))}
	natoms := frames[0].Coords.NVecs()
	for i, f := range frames {
		if n := f.Coords.NVecs(); n != natoms {
			return nil, fmt.Errorf("frame %d has %d atoms, frame 0 has %d", i, n, natoms)
		}
		t.Frames[i] = f.Coords
	}
	return t, nil
}

// Len is the number of frames.
func (t *Trajectory) Len() int { return len(t.Frames) }

// WriteDCD writes every frame to path. The file is renamed into place only
// after the last frame is written.
func (t *Trajectory) WriteDCD(path string) error {
	if t.Len() == 0 {
		return errors.New("empty trajectory")
	}
	tmp, err := tempSibling(path)
	if err != nil {
		return err
	}
	w, err := dcd.NewWriter(tmp, t.Frames[0].NVecs())
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	for i, c := range t.Frames {
		if err := w.WNext(c); err != nil {
			w.Close()
			os.Remove(tmp)
			return fmt.Errorf("write frame %d of %s: %w", i, path, err)
		}
	}
	w.Close()
	return os.Rename(tmp, path)
}

// WriteReference writes the first frame as a structure-only PDB file.
func (t *Trajectory) WriteReference(path string) error {
	if t.Len() == 0 {
		return errors.New("empty trajectory")
	}
	return WritePDB(path, t.Frames[0], t.Topology, nil)
}

// WritePDB writes one structure, optionally with per-atom B-factors.
func WritePDB(path string, coords *v3.Matrix, top chem.Atomer, bfactors []float64) error {
	tmp, err := tempSibling(path)
	if err != nil {
		return err
	}
	if err := chem.PDBFileWrite(tmp, coords, top, bfactors); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// tempSibling reserves a unique file next to path, keeping its extension so
// writers that dispatch on it still work.
func tempSibling(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".tmp-*-"+filepath.Base(path))
	if err != nil {
		return "", err
	}
	name := f.Name()
	return name, f.Close()
}

// Paths locates trajectory and topology files of a protein.
type Paths interface {
	TrajectoryPath(protein, traj string) string
	TopologyPath(protein string) string
}

// DCDStore reads frames from per-trajectory DCD files and writes joined
// trajectories. Topologies are read once per protein and shared.
type DCDStore struct {
	paths Paths

	mu   sync.Mutex
	tops map[string]*chem.Molecule
}

// NewDCDStore returns a store resolving files through paths; a *project.Config
// satisfies Paths.
func NewDCDStore(paths Paths) *DCDStore {
	return &DCDStore{paths: paths, tops: make(map[string]*chem.Molecule)}
}

// Topology returns the reference structure of protein.
func (s *DCDStore) Topology(protein string) (*chem.Molecule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mol, ok := s.tops[protein]; ok {
		return mol, nil
	}
	path := s.paths.TopologyPath(protein)
	mol, err := chem.PDBFileRead(path)
	if err != nil {
		return nil, fmt.Errorf("read topology %s: %w", path, err)
	}
	s.tops[protein] = mol
	return mol, nil
}

// LoadFrame reads frame index (0-based) of trajectory traj of protein.
func (s *DCDStore) LoadFrame(protein, traj string, index int) (*Frame, error) {
	if index < 0 {
		return nil, fmt.Errorf("negative frame index %d", index)
	}
	top, err := s.Topology(protein)
	if err != nil {
		return nil, err
	}
	path := s.paths.TrajectoryPath(protein, traj)
	r, err := dcd.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	if r.Len() != top.Len() {
		return nil, fmt.Errorf("%s has %d atoms, topology has %d", path, r.Len(), top.Len())
	}
	for i := 0; i < index; i++ {
		if err := r.Next(nil); err != nil {
			return nil, frameErr(path, index, err)
		}
	}
	coords := v3.Zeros(r.Len())
	if err := r.Next(coords); err != nil {
		return nil, frameErr(path, index, err)
	}
	return &Frame{Coords: coords, Topology: top}, nil
}

func frameErr(path string, index int, err error) error {
	if _, ok := err.(chem.LastFrameError); ok {
		return fmt.Errorf("%s has no frame %d", path, index)
	}
	return fmt.Errorf("read frame %d of %s: %w", index, path, err)
}

// WriteTrajectory writes t to trajPath and its first frame to refPath. If
// the reference cannot be written the trajectory is removed again.
func (s *DCDStore) WriteTrajectory(t *Trajectory, trajPath, refPath string) error {
	if err := t.WriteDCD(trajPath); err != nil {
		return err
	}
	if err := t.WriteReference(refPath); err != nil {
		os.Remove(trajPath)
		return err
	}
	return nil
}
