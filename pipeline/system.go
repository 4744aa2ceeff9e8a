package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/phil-mansfield/gophot"
	"github.com/phil-mansfield/gophot/density"
	"github.com/phil-mansfield/gophot/emission"
	"github.com/phil-mansfield/gophot/logging"
	"github.com/phil-mansfield/gophot/store"
)

// PhotonWriter receives one batch of events per step in Stream mode. The
// batch must be on disk when WritePhotons returns.
type PhotonWriter interface {
	WritePhotons(es []emission.Event) error
	Close() error
}

// SystemConfig describes a System. Only the sink belonging to Mode is used.
type SystemConfig struct {
	Mode    Mode
	Workers int
	// Seed fixes the worker generators. Zero seeds from process entropy.
	Seed uint64

	// Histogram mode.
	Histogram     *density.Histogram
	HistogramPath string
	// List mode.
	Store store.Store
	// Stream mode.
	Writer PhotonWriter

	Logger *slog.Logger
}

// Stats are running totals over all steps. Photons counts every sampled
// event, including the Dropped ones which fell outside the histogram.
type Stats struct {
	Steps    int
	Photons  int64
	Dropped  int64
	NewAtoms int
}

// System is the photon accounting stage of the step loop.
type System struct {
	mode   Mode
	col    *Collector
	rec    *Recorder
	hist   *density.Histogram
	hpath  string
	st     store.Store
	writer PhotonWriter
	log    *slog.Logger

	batch  []emission.Event
	recs   []store.PhotonRecord
	stats  Stats
	closed bool
}

// NewSystem checks that cfg has a sink for its mode and creates the worker
// pool.
func NewSystem(cfg SystemConfig) (*System, error) {
	switch cfg.Mode {
	case Histogram:
		if cfg.Histogram == nil {
			return nil, fmt.Errorf("Histogram mode requires a histogram.")
		} else if cfg.HistogramPath == "" {
			return nil, fmt.Errorf("Histogram mode requires an output path.")
		}
	case List:
		if cfg.Store == nil {
			return nil, fmt.Errorf("List mode requires an event store.")
		}
	case Stream:
		if cfg.Writer == nil {
			return nil, fmt.Errorf("Stream mode requires a photon writer.")
		}
	default:
		return nil, fmt.Errorf("Unknown mode %s.", cfg.Mode)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &System{
		mode:   cfg.Mode,
		col:    NewCollector(cfg.Workers, cfg.Seed),
		hist:   cfg.Histogram,
		hpath:  cfg.HistogramPath,
		st:     cfg.Store,
		writer: cfg.Writer,
		log:    log.With("mode", cfg.Mode.String()),
	}
	if cfg.Mode == List {
		s.rec = NewRecorder(cfg.Store)
	}
	return s, nil
}

// Mode returns the output mode of the system.
func (s *System) Mode() Mode { return s.mode }

// Stats returns the totals accumulated so far.
func (s *System) Stats() Stats { return s.stats }

// Step accounts for the photons scattered by atoms during one step. Any
// error is an I/O failure and the run should be aborted.
func (s *System) Step(ctx context.Context, atoms []gophot.Atom) error {
	if s.closed {
		return fmt.Errorf("step after close")
	}

	var photons, dropped int
	switch s.mode {
	case Histogram:
		counted, d := s.col.CountInto(atoms, s.hist)
		photons, dropped = counted+d, d

	case List:
		n, err := s.rec.Record(ctx, atoms)
		if err != nil {
			return fmt.Errorf("step %d: record atoms: %w", s.stats.Steps, err)
		}
		s.stats.NewAtoms += n

		s.batch = s.col.Collect(atoms, s.batch[:0])
		s.recs = s.recs[:0]
		for i := range s.batch {
			s.recs = append(s.recs, store.NewPhotonRecord(&s.batch[i]))
		}
		if err := s.st.AppendPhotons(ctx, s.recs); err != nil {
			return fmt.Errorf("step %d: append photons: %w", s.stats.Steps, err)
		}
		photons = len(s.batch)

	case Stream:
		s.batch = s.col.Collect(atoms, s.batch[:0])
		if err := s.writer.WritePhotons(s.batch); err != nil {
			return fmt.Errorf("step %d: write photons: %w", s.stats.Steps, err)
		}
		photons = len(s.batch)
	}

	s.stats.Steps++
	s.stats.Photons += int64(photons)
	s.stats.Dropped += int64(dropped)
	s.log.Log(ctx, logging.LevelTrace, "step",
		"step", s.stats.Steps, "atoms", len(atoms),
		"photons", photons, "dropped", dropped)
	return nil
}

// Close finishes the output: the histogram is flushed to its path, and the
// store or writer is closed. Calling Close more than once does nothing.
func (s *System) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	switch s.mode {
	case Histogram:
		err = s.hist.Flush(s.hpath)
		if sat := s.hist.Saturated(); sat > 0 {
			s.log.Warn("histogram cells saturated",
				"clamped", humanize.Comma(sat))
		}
	case List:
		err = s.st.Close()
	case Stream:
		err = s.writer.Close()
	}
	if err != nil {
		return fmt.Errorf("close %s output: %w", s.mode, err)
	}

	s.log.Info("photon accounting finished",
		"steps", s.stats.Steps,
		"photons", humanize.Comma(s.stats.Photons),
		"dropped", humanize.Comma(s.stats.Dropped))
	return nil
}
