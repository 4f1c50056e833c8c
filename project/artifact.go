package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kinase-msm/kinmsm/msmerr"
	"github.com/klauspost/compress/zstd"
)

// Artifact suffixes, in lookup order.
const (
	CompressedSuffix = ".json.zst"
	PlainSuffix      = ".json"
)

// ResolveArtifact returns the path of the artifact stem in dir, preferring
// the zstd-compressed dump.
func ResolveArtifact(dir, stem string) (string, error) {
	for _, suffix := range []string{CompressedSuffix, PlainSuffix} {
		p := filepath.Join(dir, stem+suffix)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", msmerr.Configuration("artifact not found").
		With("dir", dir).
		With("artifact", stem).
		WithCause(fs.ErrNotExist)
}

// ReadArtifact decodes the JSON artifact at path into v. Paths ending in
// .zst are zstd-decompressed first.
func ReadArtifact(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader for %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteArtifact encodes v as JSON to path, zstd-compressed when path ends in
// .zst. The file appears only once fully written.
func WriteArtifact(path string, v any) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		if !strings.HasSuffix(path, ".zst") {
			return json.NewEncoder(w).Encode(v)
		}
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := json.NewEncoder(enc).Encode(v); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	})
}

// WriteFileAtomic writes path through a temporary sibling that is renamed
// into place after write returns successfully.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
