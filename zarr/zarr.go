// Package zarr reads and writes numeric arrays in the zarr v2 storage
// format, and maps groups of arrays laid out the way xarray writes them onto
// geogrid band sets.
package zarr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// Version is the zarr storage format version this library implements.
	Version = 2
)

type Array struct {
	path  Path
	store Store
	mode  PersistenceMode
	meta  *ArrayMeta
}

// Create writes array metadata at path and returns the new array. ModeRead
// and ModeReadWrite refuse to create, ModeWriteFail refuses to replace an
// existing array and ModeReadWriteCreate opens it, ignoring m.
func Create(store Store, path string, m *ArrayMeta, mode PersistenceMode) (*Array, error) {
	p := NewPath(path)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("array %q: %w", p, err)
	}

	key := p.Join(string(MTArray)).String()
	switch mode {
	case ModeRead, ModeReadWrite:
		return nil, fmt.Errorf("cannot create array %q in mode %q", p, mode)
	case ModeWriteFail, ModeReadWriteCreate:
		ok, err := exists(store, key)
		if err != nil {
			return nil, err
		}
		if ok && mode == ModeWriteFail {
			return nil, fmt.Errorf("array %q already exists", p)
		}
		if ok {
			return Open(store, path, mode)
		}
	}

	if err := putJSON(store, key, m); err != nil {
		return nil, err
	}
	return &Array{path: p, store: store, mode: mode, meta: m}, nil
}

// Open reads the array metadata stored at path. Missing metadata is an
// error wrapping ErrNotfound.
func Open(store Store, path string, mode PersistenceMode) (*Array, error) {
	p := NewPath(path)
	a := &Array{
		path:  p,
		store: store,
		mode:  mode,
		meta:  &ArrayMeta{},
	}

	if err := getJSON(store, p.Join(string(MTArray)).String(), a.meta); err != nil {
		return nil, fmt.Errorf("opening array %q: %w", p, err)
	}
	if err := a.meta.Validate(); err != nil {
		return nil, fmt.Errorf("array %q: %w", p, err)
	}
	return a, nil
}

func (a *Array) Info() string {
	return fmt.Sprintf("<zarr-go.Array %q shape=%v chunks=%v dtype=%s>", a.path, a.meta.Shape, a.meta.Chunks, a.meta.Dtype)
}

func (a *Array) Path() string {
	return a.path.String()
}

func (a *Array) Meta() *ArrayMeta {
	return a.meta
}

// Attributes reads the array's ".zattrs", returning empty attributes when
// none are stored
func (a *Array) Attributes() (Attributes, error) {
	attrs := Attributes{}
	err := getJSON(a.store, a.path.Join(string(MTAttributes)).String(), &attrs)
	if errors.Is(err, ErrNotfound) {
		return attrs, nil
	}
	return attrs, err
}

func (a *Array) SetAttributes(attrs Attributes) error {
	if err := a.writable(); err != nil {
		return err
	}
	return putJSON(a.store, a.path.Join(string(MTAttributes)).String(), attrs)
}

// ReadFloat64 reads the whole array in C order. Chunks absent from the store
// are filled with the array's fill value.
func (a *Array) ReadFloat64() ([]float64, error) {
	fill, err := a.meta.fill()
	if err != nil {
		return nil, err
	}

	grid := newChunkGrid(a.meta.Shape, a.meta.Chunks)
	n := 1
	for _, s := range a.meta.Shape {
		n *= s
	}
	out := make([]float64, n)

	for _, cc := range grid.coords() {
		p := grid.project(cc)
		vals, err := a.readChunk(cc, grid.chunkLen())
		if errors.Is(err, ErrNotfound) {
			logrus.Debugf("zarr: chunk %s of %q missing, using fill value", a.chunkKey(cc), a.path)
			for _, o := range p.OutSelection {
				out[o] = fill
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		for i, o := range p.OutSelection {
			out[o] = vals[p.ChunkSelection[i]]
		}
	}

	return out, nil
}

// WriteFloat64 replaces the array contents with data, given in C order
func (a *Array) WriteFloat64(data []float64) error {
	if err := a.writable(); err != nil {
		return err
	}
	grid := newChunkGrid(a.meta.Shape, a.meta.Chunks)
	n := 1
	for _, s := range a.meta.Shape {
		n *= s
	}
	if len(data) != n {
		return fmt.Errorf("array %q holds %d values, got %d", a.path, n, len(data))
	}
	fill, err := a.meta.fill()
	if err != nil {
		return err
	}

	chunk := make([]float64, grid.chunkLen())
	for _, cc := range grid.coords() {
		for i := range chunk {
			chunk[i] = fill
		}
		p := grid.project(cc)
		for i, o := range p.OutSelection {
			chunk[p.ChunkSelection[i]] = data[o]
		}
		if err := a.writeChunk(cc, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) writable() error {
	if a.mode == ModeRead {
		return fmt.Errorf("array %q is read only", a.path)
	}
	return nil
}

func (a *Array) readChunk(cc []int, want int) ([]float64, error) {
	key := a.chunkKey(cc)
	f, err := a.store.Get(key)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := a.meta.Compressor.decompress(f)
	if err != nil {
		return nil, fmt.Errorf("decompressing chunk %s: %w", key, err)
	}
	vals, err := a.meta.Dtype.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %s: %w", key, err)
	}
	if len(vals) != want {
		return nil, fmt.Errorf("chunk %s holds %d values, want %d", key, len(vals), want)
	}
	return vals, nil
}

func (a *Array) writeChunk(cc []int, vals []float64) error {
	key := a.chunkKey(cc)
	raw, err := a.meta.Dtype.encode(vals)
	if err != nil {
		return fmt.Errorf("encoding chunk %s: %w", key, err)
	}
	data, err := a.meta.Compressor.compress(raw)
	if err != nil {
		return fmt.Errorf("compressing chunk %s: %w", key, err)
	}
	return a.store.Put(key, bytes.NewReader(data))
}

func (a *Array) chunkKey(cc []int) string {
	parts := make([]string, len(cc))
	for i, c := range cc {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return a.path.Join(strings.Join(parts, a.meta.separator())).String()
}

type PersistenceMode string

const (
	// Persistence mode:
	// ‘r’ means read only (must exist);
	ModeRead PersistenceMode = "r"
	//‘r+’ means read/write (must exist)
	ModeReadWrite PersistenceMode = "r+"
	// ‘a’ means read/write (create if doesn’t exist)
	ModeReadWriteCreate PersistenceMode = "a"
	// ‘w’ means create (overwrite if exists)
	ModeWrite PersistenceMode = "w"
	// ‘w-’ means create (fail if exists).
	ModeWriteFail PersistenceMode = "w-"
)

// Path is a normalized logical path within a store
type Path []string

// NewPath normalizes a logical path so keys are identical across stores:
// backslashes become forward slashes, leading and trailing slashes are
// stripped and repeated slashes collapse into one
func NewPath(posix string) Path {
	posix = strings.ReplaceAll(posix, "\\", "/")
	var p Path
	for _, part := range strings.Split(posix, "/") {
		if part != "" {
			p = append(p, part)
		}
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Join returns a new path with elems appended; p is not modified
func (p Path) Join(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, NewPath(strings.Join(elems, "/"))...)
}

func getJSON(s Store, key string, v interface{}) error {
	f, err := s.Get(key)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func putJSON(s Store, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return s.Put(key, bytes.NewReader(data))
}
