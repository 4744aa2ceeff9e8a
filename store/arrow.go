package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

const (
	arrowPhotonFile = "photons.arrows"
	arrowAtomFile   = "atoms.arrows"
)

var (
	photonSchema = float64Schema(photonColumns)
	atomSchema   = float64Schema(atomColumns)
)

func float64Schema(cols [6]string) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64}
	}
	return arrow.NewSchema(fields, nil)
}

// ArrowStore keeps photons and atoms as Arrow IPC streams inside a
// directory. Every appended batch becomes one record batch of the photon
// stream, so the stream is readable after each step.
type ArrowStore struct {
	dir      string
	mem      memory.Allocator
	f        *os.File
	w        *ipc.Writer
	n        int
	readOnly bool
}

// CreateArrow creates a store in the directory dir, creating it if needed.
// Only the store's own streams are removed from an existing directory;
// other files in it are left alone.
func CreateArrow(dir string) (*ArrowStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty store directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	for _, name := range []string{arrowPhotonFile, arrowAtomFile} {
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to truncate %s: %w", p, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, arrowPhotonFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create photon stream: %w", err)
	}
	mem := memory.NewGoAllocator()
	s := &ArrowStore{
		dir: dir,
		mem: mem,
		f:   f,
		w:   ipc.NewWriter(f, ipc.WithSchema(photonSchema), ipc.WithAllocator(mem)),
	}
	return s, nil
}

// OpenArrow opens an existing store directory read-only.
func OpenArrow(dir string) (*ArrowStore, error) {
	if _, err := os.Stat(filepath.Join(dir, arrowPhotonFile)); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s := &ArrowStore{dir: dir, mem: memory.NewGoAllocator(), readOnly: true}

	rows, err := s.readStream(arrowPhotonFile)
	if err != nil {
		return nil, err
	}
	s.n = len(rows)
	return s, nil
}

// AppendPhotons writes recs as a single record batch.
func (s *ArrowStore) AppendPhotons(ctx context.Context, recs []PhotonRecord) error {
	if s.readOnly {
		return ErrReadOnly
	} else if s.w == nil {
		return ErrClosed
	}
	if len(recs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([][6]float64, len(recs))
	for i := range recs {
		rows[i] = recs[i].row()
	}
	rec := s.record(photonSchema, rows)
	defer rec.Release()

	if err := s.w.Write(rec); err != nil {
		return fmt.Errorf("failed to write %d photons: %w", len(recs), err)
	}
	s.n += len(recs)
	return nil
}

// WriteAtoms writes the atom stream. The file is created exclusively, so a
// second write fails.
func (s *ArrowStore) WriteAtoms(ctx context.Context, recs []AtomRecord) error {
	if s.readOnly {
		return ErrReadOnly
	} else if s.w == nil {
		return ErrClosed
	}
	if len(recs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, arrowAtomFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrAtomsWritten)
	} else if err != nil {
		return fmt.Errorf("failed to create atom stream: %w", err)
	}

	rows := make([][6]float64, len(recs))
	for i := range recs {
		rows[i] = recs[i].row()
	}
	rec := s.record(atomSchema, rows)
	defer rec.Release()

	w := ipc.NewWriter(f, ipc.WithSchema(atomSchema), ipc.WithAllocator(s.mem))
	if err := w.Write(rec); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %d atoms: %w", len(recs), err)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finish atom stream: %w", err)
	}
	return closeFile(f)
}

func (s *ArrowStore) record(schema *arrow.Schema, rows [][6]float64) arrow.Record {
	b := array.NewRecordBuilder(s.mem, schema)
	defer b.Release()

	col := make([]float64, len(rows))
	for k := 0; k < 6; k++ {
		for i := range rows {
			col[i] = rows[i][k]
		}
		b.Field(k).(*array.Float64Builder).AppendValues(col, nil)
	}
	return b.NewRecord()
}

func (s *ArrowStore) readStream(name string) ([][6]float64, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// A stream which never received a batch may be empty.
	if info, err := f.Stat(); err != nil {
		return nil, err
	} else if info.Size() == 0 {
		return nil, nil
	}

	r, err := ipc.NewReader(f, ipc.WithAllocator(s.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer r.Release()

	out := [][6]float64{}
	for r.Next() {
		rec := r.Record()
		if rec.NumCols() != 6 {
			return nil, fmt.Errorf("%s has %d columns, expected 6",
				path, rec.NumCols())
		}
		var cols [6]*array.Float64
		for k := range cols {
			c, ok := rec.Column(k).(*array.Float64)
			if !ok {
				return nil, fmt.Errorf("%s column %d is %s, expected float64",
					path, k, rec.Column(k).DataType())
			}
			cols[k] = c
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			var x [6]float64
			for k := range cols {
				x[k] = cols[k].Value(i)
			}
			out = append(out, x)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// Len returns the number of photon records.
func (s *ArrowStore) Len(ctx context.Context) (int, error) { return s.n, nil }

// ReadPhotons returns every photon record in sequence order.
func (s *ArrowStore) ReadPhotons(ctx context.Context) ([]PhotonRecord, error) {
	rows, err := s.readStream(arrowPhotonFile)
	if err != nil {
		return nil, err
	}
	recs := make([]PhotonRecord, len(rows))
	for i := range rows {
		recs[i] = photonFromRow(rows[i])
	}
	return recs, nil
}

// ReadAtoms returns the initial atom table, or nil if it was never written.
func (s *ArrowStore) ReadAtoms(ctx context.Context) ([]AtomRecord, error) {
	rows, err := s.readStream(arrowAtomFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	recs := make([]AtomRecord, len(rows))
	for i := range rows {
		recs[i] = atomFromRow(rows[i])
	}
	return recs, nil
}

// Close ends the photon stream.
func (s *ArrowStore) Close() error {
	if s.readOnly || s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	if cerr := closeFile(s.f); err == nil {
		err = cerr
	}
	return err
}

// closeFile closes f, tolerating writers which already closed it.
func closeFile(f *os.File) error {
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
