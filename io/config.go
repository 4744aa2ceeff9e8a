package io

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gophot/pipeline"
	"github.com/phil-mansfield/gophot/store"
)

const ExampleImagingFile = `[Imaging]

#######################
# Required Parameters #
#######################

# Mode controls what happens to scattered photons. It must be one of
# [ Histogram | List | Stream ].
# Histogram: emission positions are binned onto a cubic grid and the grid is
#     written to Output as comma separated counts when the run finishes.
# List: every photon is appended to an event store at Output once per step,
#     together with a table of the initial atom positions and velocities.
# Stream: every photon is written as a line of a CSV file. If Output ends in
#     .zst the file is zstd compressed.
Mode = Histogram

# Where the output is written.
Output = photons.csv

# Histogram only: width of the histogram cube in meters (it is centered on the
# origin) and the number of cells along each side.
DomainSize = 2e-3
CellNumber = 100

#######################
# Optional Parameters #
#######################

# List only: event store backend, one of [ SQLite | Arrow ]. SQLite writes a
# single database file, Arrow writes a directory of IPC streams.
# Backend = SQLite

# Number of atoms placed at the origin at the start of the run. If AtomFile
# is set, atoms are read from its first six columns (x y z vx vy vz, SI units)
# instead.
# Atoms = 20
# AtomFile = atoms.txt

# Timestep and total exposure in seconds.
# Timestep = 1e-7
# Exposure = 1.5e-5

# Imaging beam, propagating along +x through the origin. Power in W, 1/e
# radius in m and detuning in units of the natural linewidth.
# BeamPower = 0.01
# BeamRadius = 0.01
# Detuning = 0

# If true, the number of photons scattered each step is Poisson distributed
# rather than rounded from its mean.
# Fluctuations = true

# Number of worker threads. Default is the number of logical cores. Seed fixes
# the random streams of every worker; 0 seeds from process entropy.
# Threads = 8
# Seed = 0

# Output files which are useful for profiling and debugging. LogLevel is one
# of [ info | debug | trace ].
# ProfileFile = prof.out
# LogFile = log.out
# LogLevel = info

# Threads, Seed, Output, LogFile and LogLevel can also be set with the
# environment variables GOPHOT_THREADS, GOPHOT_SEED, GOPHOT_OUTPUT,
# GOPHOT_LOG_FILE and GOPHOT_LOG_LEVEL, which take precedence over this file.`

type SharedConfig struct {
	// Required
	Output string `env:"GOPHOT_OUTPUT"`
	// Optional
	LogFile     string `env:"GOPHOT_LOG_FILE"`
	LogLevel    string `env:"GOPHOT_LOG_LEVEL"`
	ProfileFile string
}

func (con *SharedConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}
func (con *SharedConfig) ValidLogLevel() bool {
	switch strings.ToLower(con.LogLevel) {
	case "info", "debug", "trace":
		return true
	}
	return false
}

type ImagingConfig struct {
	SharedConfig

	// Required
	Mode string

	// Histogram
	DomainSize float64
	CellNumber int

	// List
	Backend string

	// Scenario
	Atoms                           int
	AtomFile                        string
	Timestep, Exposure              float64
	BeamPower, BeamRadius, Detuning float64
	Fluctuations                    bool

	Threads int   `env:"GOPHOT_THREADS"`
	Seed    int64 `env:"GOPHOT_SEED"`
}

type ImagingWrapper struct {
	Imaging ImagingConfig
}

func DefaultImagingWrapper() *ImagingWrapper {
	con := ImagingConfig{}
	con.Backend = string(store.SQLite)
	con.Atoms = 20
	con.Timestep = 1e-7
	con.Exposure = 15e-6
	con.BeamPower = 0.01
	con.BeamRadius = 0.01
	con.Fluctuations = true
	con.Threads = runtime.NumCPU()
	con.LogLevel = "info"
	return &ImagingWrapper{con}
}

func (con *ImagingConfig) ValidMode() bool {
	_, err := pipeline.ParseMode(con.Mode)
	return err == nil
}
func (con *ImagingConfig) ValidDomainSize() bool {
	return con.DomainSize > 0 && !math.IsInf(con.DomainSize, 0)
}
func (con *ImagingConfig) ValidCellNumber() bool {
	return con.CellNumber > 0
}
func (con *ImagingConfig) ValidBackend() bool {
	_, err := store.ParseBackend(con.Backend)
	return err == nil
}
func (con *ImagingConfig) ValidAtoms() bool {
	return con.Atoms > 0
}
func (con *ImagingConfig) ValidAtomFile() bool {
	return con.AtomFile != ""
}
func (con *ImagingConfig) ValidTimestep() bool {
	return con.Timestep > 0
}
func (con *ImagingConfig) ValidExposure() bool {
	return con.Exposure >= con.Timestep
}
func (con *ImagingConfig) ValidBeam() bool {
	return con.BeamPower >= 0 && con.BeamRadius > 0
}
func (con *ImagingConfig) ValidThreads() bool {
	return con.Threads > 0
}

// Steps returns the number of timesteps needed to cover the exposure.
func (con *ImagingConfig) Steps() int {
	return int(math.Ceil(con.Exposure/con.Timestep - 1e-9))
}

// Check returns a descriptive error for the first invalid field.
func (con *ImagingConfig) Check() error {
	if !con.ValidMode() {
		return fmt.Errorf(
			"Mode must be one of [Histogram | List | Stream]. '%s' is "+
				"not recognized.", con.Mode,
		)
	} else if !con.ValidOutput() {
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	} else if !con.ValidLogLevel() {
		return fmt.Errorf("Invalid 'LogLevel' value '%s'.", con.LogLevel)
	} else if !con.ValidThreads() {
		return fmt.Errorf("'Threads' must be positive, but is %d.", con.Threads)
	} else if !con.ValidTimestep() {
		return fmt.Errorf("'Timestep' must be positive, but is %g.", con.Timestep)
	} else if !con.ValidExposure() {
		return fmt.Errorf(
			"'Exposure' must be at least one Timestep, but is %g.", con.Exposure,
		)
	} else if !con.ValidBeam() {
		return fmt.Errorf("Invalid 'BeamPower' or 'BeamRadius' value.")
	} else if !con.ValidAtoms() && !con.ValidAtomFile() {
		return fmt.Errorf("You must set either a positive 'Atoms' or an 'AtomFile'.")
	}

	mode, _ := pipeline.ParseMode(con.Mode)
	switch mode {
	case pipeline.Histogram:
		if !con.ValidDomainSize() {
			return fmt.Errorf(
				"Histogram mode requires a positive 'DomainSize', but it is %g.",
				con.DomainSize,
			)
		} else if !con.ValidCellNumber() {
			return fmt.Errorf(
				"Histogram mode requires a positive 'CellNumber', but it is %d.",
				con.CellNumber,
			)
		}
	case pipeline.List:
		if !con.ValidBackend() {
			return fmt.Errorf(
				"Backend must be one of [SQLite | Arrow]. '%s' is not "+
					"recognized.", con.Backend,
			)
		}
	}
	return nil
}

// ReadImagingConfig reads an [Imaging] config file, applies environment
// overrides and checks the result.
func ReadImagingConfig(fname string) (*ImagingConfig, error) {
	wrap := DefaultImagingWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	con := &wrap.Imaging
	if err := env.Parse(con); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := con.Check(); err != nil {
		return nil, err
	}
	return con, nil
}
