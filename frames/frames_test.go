package frames_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kinase-msm/kinmsm/frames"
	v3 "github.com/rmera/gochem/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layout struct{ dir string }

func (l layout) TrajectoryPath(protein, traj string) string {
	return filepath.Join(l.dir, protein, "protein_traj", traj+".dcd")
}

func (l layout) TopologyPath(protein string) string {
	return filepath.Join(l.dir, protein, "prot.pdb")
}

func pdbAtom(serial int, name, res string, resSeq int, x, y, z float64, elem string) string {
	return fmt.Sprintf("ATOM  %5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
		serial, name, res, "A", resSeq, x, y, z, 1.0, 0.0, elem)
}

func writeTopology(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(pdbAtom(1, "N", "ALA", 1, 0, 0, 0, "N"))
	b.WriteString(pdbAtom(2, "CA", "ALA", 1, 1.458, 0, 0, "C"))
	b.WriteString("END\n")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func frame(natoms int, x float64) *frames.Frame {
	c := v3.Zeros(natoms)
	c.Set(0, 0, x)
	return &frames.Frame{Coords: c}
}

func TestJoinRejectsMixedAtomCounts(t *testing.T) {
	_, err := frames.Join([]*frames.Frame{frame(2, 0), frame(3, 0)})
	assert.Error(t, err)

	_, err = frames.Join(nil)
	assert.Error(t, err)

	trj, err := frames.Join([]*frames.Frame{frame(2, 0), frame(2, 1), frame(2, 2)})
	require.NoError(t, err)
	assert.Equal(t, 3, trj.Len())
	assert.Equal(t, 2.0, trj.Frames[2].At(0, 0))
}

func TestDCDStoreRoundTrip(t *testing.T) {
	l := layout{dir: t.TempDir()}
	writeTopology(t, l.TopologyPath("abl"))

	src, err := frames.Join([]*frames.Frame{frame(2, 0.5), frame(2, 1.5), frame(2, 2.5)})
	require.NoError(t, err)
	require.NoError(t, src.WriteDCD(l.TrajectoryPath("abl", "run0")))

	store := frames.NewDCDStore(l)
	f, err := store.LoadFrame("abl", "run0", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f.Coords.At(0, 0), 1e-5)
	assert.Equal(t, 2, f.Topology.Len())

	_, err = store.LoadFrame("abl", "run0", 7)
	assert.Error(t, err)

	out := filepath.Join(l.dir, "out")
	joined, err := frames.Join([]*frames.Frame{f, f})
	require.NoError(t, err)
	require.NoError(t, store.WriteTrajectory(joined, filepath.Join(out, "tic0.dcd"), filepath.Join(out, "prot.pdb")))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"tic0.dcd", "prot.pdb"}, names)
}

func TestWriteTrajectoryRemovesDCDWhenReferenceFails(t *testing.T) {
	l := layout{dir: t.TempDir()}
	writeTopology(t, l.TopologyPath("abl"))
	store := frames.NewDCDStore(l)
	top, err := store.Topology("abl")
	require.NoError(t, err)

	trj, err := frames.Join([]*frames.Frame{
		{Coords: v3.Zeros(2), Topology: top},
		{Coords: v3.Zeros(2), Topology: top},
	})
	require.NoError(t, err)

	out := filepath.Join(l.dir, "out")
	trajPath := filepath.Join(out, "tic0.dcd")
	// the reference would have to live under the trajectory file
	err = store.WriteTrajectory(trj, trajPath, filepath.Join(trajPath, "tic0.pdb"))
	assert.Error(t, err)
	assert.NoFileExists(t, trajPath)
}
