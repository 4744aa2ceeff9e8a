package main

import (
	"fmt"
	goio "io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/gophot/io"
	"github.com/phil-mansfield/gophot/store"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <sqlite | arrow | stream> <path>",
		Short: "Summarize the photons and atoms written by a List or Stream run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, args[0], args[1])
		},
	}
}

// photonColumns holds the six columns of a photon table.
type photonColumns [6][]float64

var photonColumnNames = [6]string{"px", "py", "pz", "dx", "dy", "dz"}

func (cols *photonColumns) add(x [6]float64) {
	for k := range cols {
		cols[k] = append(cols[k], x[k])
	}
}

func inspect(cmd *cobra.Command, kind, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cols := &photonColumns{}
	atoms := -1
	if strings.EqualFold(kind, "stream") {
		es, err := io.ReadPhotonStream(path)
		if err != nil {
			return err
		}
		for i := range es {
			p, d := es[i].Position, es[i].Direction
			cols.add([6]float64{p[0], p[1], p[2], d[0], d[1], d[2]})
		}
	} else {
		b, err := store.ParseBackend(kind)
		if err != nil {
			return err
		}
		s, err := store.Open(b, path)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.ReadPhotons(ctx)
		if err != nil {
			return err
		}
		for _, r := range recs {
			cols.add([6]float64{r.PX, r.PY, r.PZ, r.DX, r.DY, r.DZ})
		}
		as, err := s.ReadAtoms(ctx)
		if err != nil {
			return err
		}
		atoms = len(as)
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		fmt.Fprintf(out, "%s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	} else {
		fmt.Fprintln(out, path)
	}
	n := len(cols[0])
	fmt.Fprintf(out, "photons: %s\n", humanize.Comma(int64(n)))
	if atoms >= 0 {
		fmt.Fprintf(out, "initial atoms: %s\n", humanize.Comma(int64(atoms)))
	}
	if n > 0 {
		writeColumnStats(out, cols)
	}
	return nil
}

func writeColumnStats(out goio.Writer, cols *photonColumns) {
	fmt.Fprintf(out, "%-4s %12s %12s %12s %12s\n", "col", "mean", "std", "min", "max")
	for k, name := range photonColumnNames {
		mean, std := stat.MeanStdDev(cols[k], nil)
		lo, hi := cols[k][0], cols[k][0]
		for _, x := range cols[k] {
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		fmt.Fprintf(out, "%-4s %12.4g %12.4g %12.4g %12.4g\n", name, mean, std, lo, hi)
	}
}
