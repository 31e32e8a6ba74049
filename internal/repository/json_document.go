package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/atomicwriter"
)

// jsonDocument is a JSON array stored in a single file that is always read and
// written whole. All access in this process is serialized through mu; separate
// processes sharing one file are not supported.
type jsonDocument[T any] struct {
	path string
	mu   sync.Mutex
}

func newJSONDocument[T any](path string) *jsonDocument[T] {
	return &jsonDocument[T]{path: path}
}

// load returns a snapshot of the document
func (d *jsonDocument[T]) load() ([]T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read()
}

// errUnchanged lets an update function skip the write without failing
var errUnchanged = errors.New("document unchanged")

// update runs a read-modify-write cycle. Nothing is written when fn fails
// or returns errUnchanged.
func (d *jsonDocument[T]) update(fn func(items []T) ([]T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.read()
	if err != nil {
		return err
	}

	items, err = fn(items)
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	return d.write(items)
}

// read treats a missing or empty file as an empty collection
func (d *jsonDocument[T]) read() ([]T, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", d.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (d *jsonDocument[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}

	if dir := filepath.Dir(d.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// temp file + rename, a crash never leaves a torn document
	if err := atomicwriter.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	return nil
}
