// Package store keeps the defence registry and submission ledger as
// whole-file JSON documents on local disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OneOfOne/xxhash"
	"go.uber.org/zap"
)

// document is one JSON file rewritten atomically on every change.
type document struct {
	path   string
	log    *zap.Logger
	digest uint64
	synced bool
	writes int
}

func newDocument(path string, log *zap.Logger) *document {
	if log == nil {
		log = zap.NewNop()
	}
	return &document{path: path, log: log}
}

// load decodes the file into v. A missing file leaves v untouched. A
// file that does not parse is moved aside and reported as empty.
func (d *document) load(v any) error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("store: read %s: %w", d.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", d.path, time.Now().Unix())
		if renameErr := os.Rename(d.path, aside); renameErr != nil {
			return fmt.Errorf("store: %s is corrupt and could not be moved: %w", d.path, renameErr)
		}
		d.log.Warn("corrupt state file moved aside",
			zap.String("path", d.path),
			zap.String("moved_to", aside),
			zap.Error(err))
		return errCorrupt
	}
	d.digest = xxhash.Checksum64(data)
	d.synced = true
	return nil
}

var errCorrupt = errors.New("store: corrupt document")

// save writes v unless it encodes to the bytes already on disk.
func (d *document) save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", d.path, err)
	}
	sum := xxhash.Checksum64(data)
	if d.synced && sum == d.digest {
		return nil
	}
	if err := writeFileAtomic(d.path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", d.path, err)
	}
	d.digest = sum
	d.synced = true
	d.writes++
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
