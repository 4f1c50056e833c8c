package catalog_test

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kinase-msm/kinmsm/catalog"
	"github.com/kinase-msm/kinmsm/tica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func backends(t *testing.T) map[string]catalog.Store {
	t.Helper()
	out := make(map[string]catalog.Store)
	for _, kind := range []string{"memory", "sqlite"} {
		store, err := catalog.NewStore(kind, filepath.Join(t.TempDir(), "catalog.db"))
		require.NoError(t, err)
		require.NoError(t, store.Init(context.Background()))
		t.Cleanup(func() { _ = catalog.CloseIfSupported(store) })
		out[kind] = store
	}
	return out
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tic0.log")
	body := []byte("Index Tic Value, Actual Value, TrajName, FrmInd\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	a, err := catalog.DigestFile(path)
	require.NoError(t, err)
	sum := blake3.Sum256(body)
	assert.Equal(t, int64(len(body)), a.Size)
	assert.Equal(t, path, a.Path)

	b, err := catalog.DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, hex.EncodeToString(sum[:]), a.Digest)

	_, err = catalog.DigestFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "tic0.log")
	require.NoError(t, os.WriteFile(logPath, []byte("log"), 0o644))
	trajPath := filepath.Join(dir, "tic0.dcd")
	require.NoError(t, os.WriteFile(trajPath, []byte("dcd"), 0o644))

	steps := []tica.Step{
		{Index: 0, Requested: 0, Achieved: 0.1, FrameRef: tica.FrameRef{Traj: "run0", Frame: 3}},
		{Index: 1, Requested: 1, Achieved: 0.9, FrameRef: tica.FrameRef{Traj: "run1", Frame: 0}},
	}

	for kind, store := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			first := catalog.NewRun("abl", catalog.KindSampleTic, map[string]string{"tic": "0", "scheme": "linear"})
			first.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
			first, err := catalog.Record(ctx, store, first, logPath, trajPath)
			require.NoError(t, err)
			require.NoError(t, store.SavePath(ctx, first.ID, steps))

			second := catalog.NewRun("src", catalog.KindFreeEnergy, nil)
			second.CreatedAt = first.CreatedAt.Add(time.Second)
			require.NoError(t, store.SaveRun(ctx, second))

			got, ok, err := store.GetRun(ctx, first.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first.Params, got.Params)
			assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, first.Artifacts, got.Artifacts)

			path, ok, err := store.GetPath(ctx, first.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, steps, path)

			_, ok, err = store.GetPath(ctx, second.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			all, err := store.ListRuns(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, first.ID, all[0].ID)
			assert.Equal(t, second.ID, all[1].ID)

			abl, err := store.ListRuns(ctx, "abl")
			require.NoError(t, err)
			require.Len(t, abl, 1)
			assert.Equal(t, catalog.KindSampleTic, abl[0].Kind)

			_, ok, err = store.GetRun(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyDetectsChangedArtifacts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prot.pdb")
	require.NoError(t, os.WriteFile(path, []byte("ATOM"), 0o644))

	store := catalog.NewMemoryStore()
	require.NoError(t, store.Init(ctx))
	run, err := catalog.Record(ctx, store, catalog.NewRun("abl", catalog.KindImportance, nil), path)
	require.NoError(t, err)

	changed, err := catalog.Verify(run)
	require.NoError(t, err)
	assert.Empty(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("HETATM"), 0o644))
	changed, err = catalog.Verify(run)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, changed)
}

func TestStoreErrors(t *testing.T) {
	_, err := catalog.NewStore("postgres", "")
	assert.Error(t, err)

	store := catalog.NewSQLiteStore("")
	assert.Error(t, store.Init(context.Background()))
	assert.Error(t, store.SaveRun(context.Background(), catalog.NewRun("abl", catalog.KindSlice, nil)))

	mem := catalog.NewMemoryStore()
	assert.Error(t, mem.SaveRun(context.Background(), catalog.Run{ID: "x"}))
}
