package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gophot/density"
	"github.com/phil-mansfield/gophot/io"
	"github.com/phil-mansfield/gophot/pipeline"
	"github.com/phil-mansfield/gophot/scenario"
	"github.com/phil-mansfield/gophot/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <config>",
		Short: "Run an imaging simulation described by an [Imaging] config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := io.ReadImagingConfig(args[0])
			if err != nil {
				return err
			}
			logger, fg, err := setupFiles(con)
			if err != nil {
				return err
			}
			defer fg.Close()

			m, err := runImaging(cmd.Context(), con, logger)
			if err != nil {
				return err
			}
			logger.Info("wrote run manifest",
				"path", io.ManifestPath(con.Output), "run_id", m.RunID)
			return nil
		},
	}
}

// runImaging runs the step loop described by con and writes its manifest.
func runImaging(
	ctx context.Context, con *io.ImagingConfig, logger *slog.Logger,
) (*io.Manifest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	mode, err := pipeline.ParseMode(con.Mode)
	if err != nil {
		return nil, err
	}

	world, err := scenario.NewWorld(scenario.Config{
		Beams: []scenario.Beam{
			scenario.ImagingBeam(con.BeamPower, con.BeamRadius, con.Detuning),
		},
		Timestep:     con.Timestep,
		Fluctuations: con.Fluctuations,
		Workers:      con.Threads,
		Seed:         uint64(con.Seed),
	})
	if err != nil {
		return nil, err
	}
	if con.ValidAtomFile() {
		if _, err := world.LoadAtoms(con.AtomFile); err != nil {
			return nil, fmt.Errorf("load atoms: %w", err)
		}
	} else {
		world.AddAtoms(con.Atoms)
	}

	sysCon := pipeline.SystemConfig{
		Mode: mode, Workers: con.Threads, Seed: uint64(con.Seed),
		Logger: logger,
	}
	var hist *density.Histogram
	switch mode {
	case pipeline.Histogram:
		hist, err = density.NewHistogram(con.DomainSize, con.CellNumber)
		if err != nil {
			return nil, err
		}
		sysCon.Histogram, sysCon.HistogramPath = hist, con.Output
	case pipeline.List:
		b, err := store.ParseBackend(con.Backend)
		if err != nil {
			return nil, err
		}
		if sysCon.Store, err = store.Create(b, con.Output); err != nil {
			return nil, err
		}
	case pipeline.Stream:
		if sysCon.Writer, err = io.NewPhotonStream(con.Output, photonBufLen); err != nil {
			return nil, err
		}
	}

	sys, err := pipeline.NewSystem(sysCon)
	if err != nil {
		return nil, err
	}

	steps := con.Steps()
	logger.Info("starting imaging run",
		"mode", mode.String(), "atoms", len(world.Atoms), "steps", steps,
		"threads", con.Threads, "output", con.Output)

	for i := 0; i < steps; i++ {
		world.Scatter()
		if err := sys.Step(ctx, world.Atoms); err != nil {
			_ = sys.Close()
			return nil, err
		}
		world.Integrate()
		world.Maintain()
	}
	if err := sys.Close(); err != nil {
		return nil, err
	}

	st := sys.Stats()
	m := io.NewManifest(con, start)
	m.Finished = time.Now().UTC()
	m.Atoms, m.Steps = len(world.Atoms), st.Steps
	m.Photons, m.Dropped = st.Photons, st.Dropped
	if hist != nil {
		m.Saturated = hist.Saturated()
	}
	if err := io.WriteManifest(io.ManifestPath(con.Output), m); err != nil {
		return nil, err
	}

	logger.Info("imaging run finished",
		"photons", humanize.Comma(st.Photons),
		"elapsed", m.Finished.Sub(m.Started).Round(time.Millisecond))
	return m, nil
}
