package io

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/phil-mansfield/gophot/emission"
	"github.com/phil-mansfield/gophot/geom"
)

// PhotonStream writes emission events to a CSV file as they are produced,
// one "px,py,pz,dx,dy,dz" line per photon. Events are buffered in memory and
// written whenever the buffer fills or Flush is called. If the path ends in
// ".zst" the file is zstd compressed.
type PhotonStream struct {
	buf  []emission.Event
	idx  int
	path string
	n    int64

	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
	line []byte
}

// NewPhotonStream creates (or truncates) the file at path.
func NewPhotonStream(path string, bufSize int) (*PhotonStream, error) {
	if bufSize <= 0 {
		bufSize = 1 << 12
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	ps := &PhotonStream{buf: make([]emission.Event, bufSize), path: path, f: f}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		ps.enc = enc
		ps.w = bufio.NewWriterSize(enc, 128*1024)
	} else {
		ps.w = bufio.NewWriterSize(f, 128*1024)
	}
	return ps, nil
}

// Path returns the file the stream writes to.
func (ps *PhotonStream) Path() string { return ps.path }

// Len returns the number of events appended so far.
func (ps *PhotonStream) Len() int64 { return ps.n }

// Append adds an event to the buffer, which will eventually be written to
// the target file.
func (ps *PhotonStream) Append(e emission.Event) error {
	ps.buf[ps.idx] = e
	ps.idx++
	ps.n++
	if ps.idx == len(ps.buf) {
		return ps.writeBuf()
	}
	return nil
}

// WritePhotons appends every event in es and flushes, so that the whole
// batch is on disk when it returns.
func (ps *PhotonStream) WritePhotons(es []emission.Event) error {
	for i := range es {
		if err := ps.Append(es[i]); err != nil {
			return err
		}
	}
	return ps.Flush()
}

// Flush writes the contents of the buffer to the target file. This is
// called automatically whenever the buffer fills.
func (ps *PhotonStream) Flush() error {
	if err := ps.writeBuf(); err != nil {
		return err
	}
	if err := ps.w.Flush(); err != nil {
		return err
	}
	if ps.enc != nil {
		return ps.enc.Flush()
	}
	return nil
}

func (ps *PhotonStream) writeBuf() error {
	for i := 0; i < ps.idx; i++ {
		ps.line = appendEvent(ps.line[:0], &ps.buf[i])
		if _, err := ps.w.Write(ps.line); err != nil {
			return fmt.Errorf("failed to write %s: %w", ps.path, err)
		}
	}
	ps.idx = 0
	return nil
}

// Close flushes the stream and closes the file.
func (ps *PhotonStream) Close() error {
	if ps.f == nil {
		return nil
	}
	err := ps.Flush()
	if ps.enc != nil {
		if cerr := ps.enc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := ps.f.Close(); err == nil {
		err = cerr
	}
	ps.f, ps.enc = nil, nil
	return err
}

func appendEvent(b []byte, e *emission.Event) []byte {
	for k := 0; k < 3; k++ {
		b = strconv.AppendFloat(b, e.Position[k], 'g', -1, 64)
		b = append(b, ',')
	}
	for k := 0; k < 3; k++ {
		b = strconv.AppendFloat(b, e.Direction[k], 'g', -1, 64)
		if k < 2 {
			b = append(b, ',')
		}
	}
	return append(b, '\n')
}

// ReadPhotonStream reads every event from a file written by PhotonStream.
func ReadPhotonStream(path string) ([]emission.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sc *bufio.Scanner
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		sc = bufio.NewScanner(dec)
	} else {
		sc = bufio.NewScanner(f)
	}

	out := []emission.Event{}
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		tok := strings.Split(text, ",")
		if len(tok) != 6 {
			return nil, fmt.Errorf(
				"%s line %d has %d columns, expected 6.", path, line, len(tok),
			)
		}
		var x [6]float64
		for k := range x {
			x[k], err = strconv.ParseFloat(strings.TrimSpace(tok[k]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line, err)
			}
		}
		out = append(out, emission.Event{
			Position:  geom.Vec{x[0], x[1], x[2]},
			Direction: geom.Vec{x[3], x[4], x[5]},
		})
	}
	return out, sc.Err()
}
