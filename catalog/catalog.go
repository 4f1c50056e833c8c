// Package catalog records what each run of the tools produced: the run's
// parameters, the sampled path for tic runs, and a BLAKE3 digest of every
// artifact written.
package catalog

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kinase-msm/kinmsm/tica"
	"lukechampine.com/blake3"
)

// Run kinds.
const (
	KindSampleTic    = "sample-tic"
	KindSampleRegion = "sample-region"
	KindSampleStates = "sample-states"
	KindFreeEnergy   = "free-energy"
	KindImportance   = "importance"
	KindSlice        = "slice-features"
)

// Artifact is one file written by a run.
type Artifact struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// Run is one recorded invocation.
type Run struct {
	ID        string            `json:"id"`
	Protein   string            `json:"protein"`
	Kind      string            `json:"kind"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Artifacts []Artifact        `json:"artifacts,omitempty"`
}

// NewRun starts a run record with a fresh id.
func NewRun(protein, kind string, params map[string]string) Run {
	return Run{
		ID:        uuid.New().String(),
		Protein:   protein,
		Kind:      kind,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists runs and sampled paths.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns runs of protein, or of every protein when it is
	// empty, oldest first.
	ListRuns(ctx context.Context, protein string) ([]Run, error)
	SavePath(ctx context.Context, runID string, steps []tica.Step) error
	GetPath(ctx context.Context, runID string) ([]tica.Step, bool, error)
}

// NewStore returns an uninitialized store of the named backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported catalog backend: %s", kind)
	}
}

// CloseIfSupported closes store when the backend holds resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// DigestFile hashes the file at path with BLAKE3-256.
func DigestFile(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	n, err := io.Copy(h, f)
	if err != nil {
		return Artifact{}, fmt.Errorf("digest %s: %w", path, err)
	}
	return Artifact{Path: path, Digest: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// Record digests paths into run and saves it.
func Record(ctx context.Context, store Store, run Run, paths ...string) (Run, error) {
	for _, p := range paths {
		a, err := DigestFile(p)
		if err != nil {
			return run, err
		}
		run.Artifacts = append(run.Artifacts, a)
	}
	return run, store.SaveRun(ctx, run)
}

// Verify re-digests every artifact of run and returns the paths whose
// content no longer matches.
func Verify(run Run) ([]string, error) {
	var changed []string
	for _, a := range run.Artifacts {
		now, err := DigestFile(a.Path)
		if err != nil {
			return nil, err
		}
		if now.Digest != a.Digest {
			changed = append(changed, a.Path)
		}
	}
	return changed, nil
}
