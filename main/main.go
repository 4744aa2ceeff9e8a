package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gophot/io"
	"github.com/phil-mansfield/gophot/logging"
)

const (
	photonBufLen = 1 << 12
)

// FileGroup holds the profiling and logging files of a run.
type FileGroup struct {
	prof     *os.File
	closeLog func() error
}

func (fg *FileGroup) Close() error {
	var err error
	if fg.prof != nil {
		pprof.StopCPUProfile()
		err = fg.prof.Close()
	}
	if fg.closeLog != nil {
		if lerr := fg.closeLog(); err == nil {
			err = lerr
		}
	}
	return err
}

// setupFiles opens the log and profile files requested by con.
func setupFiles(con *io.ImagingConfig) (*slog.Logger, *FileGroup, error) {
	fg := &FileGroup{}
	logPath := ""
	if con.ValidLogFile() {
		logPath = con.LogFile
	}
	logger, closeLog, err := logging.Open(con.LogLevel, logPath)
	if err != nil {
		return nil, nil, err
	}
	fg.closeLog = closeLog

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			_ = fg.Close()
			return nil, nil, err
		}
		if err := pprof.StartCPUProfile(fg.prof); err != nil {
			_ = fg.prof.Close()
			fg.prof = nil
			_ = fg.Close()
			return nil, nil, err
		}
	}
	return logger, fg, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gophot",
		Short: "Photon accounting for atom imaging simulations",
		Long: `gophot simulates a cloud of atoms illuminated by an imaging beam and
records the photons they scatter, either as a 3D histogram of emission
positions, as an event store of individual photons, or as a CSV stream.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newRunCmd(),
		newExampleConfigCmd(),
		newInspectCmd(),
		newPlotCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newExampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config",
		Short: "Print an example [Imaging] configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), io.ExampleImagingFile)
		},
	}
}
