package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/gophot/density"
)

func newPlotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plot <histogram> <cells> <domain size> <out.png>",
		Short: "Plot the x, y and z profiles of a Histogram run (needs matplotlib)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cells, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("cells: %w", err)
			}
			domain, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("domain size: %w", err)
			}
			vals, err := density.ReadHistogram(args[0], cells)
			if err != nil {
				return err
			}
			plotProfiles(vals, cells, domain, args[3])
			plt.Execute()
			return nil
		},
	}
}

// plotProfiles plots the photon count summed over planes perpendicular to
// each axis.
func plotProfiles(vals []uint32, cells int, domain float64, fname string) {
	centers := density.CellCenters(domain, cells)
	mm := make([]float64, len(centers))
	for i := range centers {
		mm[i] = centers[i] * 1e3
	}
	colors := []string{"r", "g", "b"}

	plt.Figure()
	for axis := 0; axis < 3; axis++ {
		plt.Plot(mm, density.Profile(vals, cells, axis),
			plt.LW(3), plt.C(colors[axis]))
	}
	plt.Title("Emission profiles (x: red, y: green, z: blue)")
	plt.XLabel(`Position [mm]`, plt.FontSize(16))
	plt.YLabel(`Photons`, plt.FontSize(16))
	plt.XLim(mm[0], mm[len(mm)-1])
	plt.Grid(plt.Axis("y"))
	plt.SaveFig(fname)
}
